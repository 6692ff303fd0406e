package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jpalmerr/tokenwatch/internal/account"
)

// timeLayout is fixed-width UTC so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Entry is one recorded probe.
type Entry struct {
	RunID      string
	Identifier string
	Outcome    string
	Reason     string
	StatusCode int
	Latency    time.Duration
	CheckedAt  time.Time
}

// Stats summarizes the recorded probes of one account.
type Stats struct {
	Identifier  string
	Checks      int
	Successes   int
	LastSuccess time.Time
	LastFailure time.Time
}

// Uptime returns the fraction of successful probes in [0, 1], or 0 when
// nothing has been recorded.
func (s Stats) Uptime() float64 {
	if s.Checks == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Checks)
}

// Record stores one row per result under runID in a single transaction.
// Results with a zero CheckedAt are stamped with the current time.
func (db *DB) Record(ctx context.Context, runID string, results []account.ProbeResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const insertQuery = `
		INSERT INTO probes (run_id, identifier, outcome, reason, status_code, latency_ms, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	for _, r := range results {
		checkedAt := r.CheckedAt
		if checkedAt.IsZero() {
			checkedAt = time.Now()
		}
		if _, err := tx.ExecContext(ctx, insertQuery,
			runID, r.Identifier, r.Outcome.String(), r.Reason.String(),
			r.StatusCode, r.Latency.Milliseconds(), formatTime(checkedAt),
		); err != nil {
			return fmt.Errorf("insert probe for %s: %w", r.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", runID, err)
	}
	return nil
}

// Stats returns per-account totals keyed by identifier.
func (db *DB) Stats(ctx context.Context) (map[string]Stats, error) {
	const query = `
		SELECT identifier,
		       COUNT(*),
		       SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END),
		       MAX(CASE WHEN outcome = 'success' THEN checked_at END),
		       MAX(CASE WHEN outcome <> 'success' THEN checked_at END)
		FROM probes
		GROUP BY identifier
		ORDER BY identifier
	`

	rows, err := db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]Stats)
	for rows.Next() {
		var s Stats
		var lastSuccess, lastFailure sql.NullString
		if err := rows.Scan(&s.Identifier, &s.Checks, &s.Successes, &lastSuccess, &lastFailure); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		if s.LastSuccess, err = parseNullTime(lastSuccess); err != nil {
			return nil, err
		}
		if s.LastFailure, err = parseNullTime(lastFailure); err != nil {
			return nil, err
		}
		stats[s.Identifier] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// Uptime returns [Stats.Uptime] for every account with recorded probes.
func (db *DB) Uptime(ctx context.Context) (map[string]float64, error) {
	stats, err := db.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(stats))
	for id, s := range stats {
		out[id] = s.Uptime()
	}
	return out, nil
}

// Recent returns up to limit probes for identifier, newest first.
func (db *DB) Recent(ctx context.Context, identifier string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT run_id, identifier, outcome, reason, status_code, latency_ms, checked_at
		FROM probes
		WHERE identifier = ?
		ORDER BY checked_at DESC, id DESC
		LIMIT ?
	`

	rows, err := db.Reader.QueryContext(ctx, query, identifier, limit)
	if err != nil {
		return nil, fmt.Errorf("query probes for %s: %w", identifier, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var latencyMS int64
		var checkedAt string
		if err := rows.Scan(&e.RunID, &e.Identifier, &e.Outcome, &e.Reason, &e.StatusCode, &latencyMS, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan probe: %w", err)
		}
		e.Latency = time.Duration(latencyMS) * time.Millisecond
		if e.CheckedAt, err = parseTime(checkedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate probes: %w", err)
	}
	return entries, nil
}

// Prune deletes probes checked before cutoff and returns how many went.
func (db *DB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.Writer.ExecContext(ctx, `DELETE FROM probes WHERE checked_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune probes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune probes: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid {
		return time.Time{}, nil
	}
	return parseTime(ns.String)
}
