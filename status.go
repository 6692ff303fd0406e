package tokenwatch

import "github.com/jpalmerr/tokenwatch/internal/account"

// Status is the display state of an account: [StatusActive],
// [StatusInvalid] or [StatusUnknown].
type Status = account.Status

const (
	// StatusActive means the last probe of the account succeeded.
	StatusActive = account.StatusActive

	// StatusInvalid means the last probe failed for any reason.
	StatusInvalid = account.StatusInvalid

	// StatusUnknown is only produced when a persisted status is not recognized.
	StatusUnknown = account.StatusUnknown
)

// Credential is one configured account token.
type Credential = account.Credential

// Profile is the last-known record of an account as persisted and rendered.
type Profile = account.Profile

// Table maps account identifiers to their profiles.
type Table = account.Table

// ProbeResult holds the outcome of probing a single account.
//
// ProbeResult is created once per credential per run and handed to result
// callbacks before it is merged into the account table. Its Outcome says
// which fields are meaningful: Profile on success, Reason otherwise.
type ProbeResult = account.ProbeResult

// RunReport summarizes one pass of [Monitor.RunOnce].
//
// A run never fails as a whole. Every step that went wrong is logged and
// appended to Errors, and the remaining steps still execute.
type RunReport struct {
	// RunID is a random identifier shared by the run's log lines and
	// history rows.
	RunID string

	// Results holds one entry per credential, in identifier order.
	Results []ProbeResult

	// Table is the merged account table after this run.
	Table Table

	// Active is the number of active accounts in Table.
	Active int

	// Rendered is true when the page file was written.
	Rendered bool

	// Published is true when the commit was pushed.
	Published bool

	// Skipped is true when the publisher found nothing to commit.
	Skipped bool

	// Errors lists every swallowed failure, wrapped with the failing step.
	Errors []error
}

// OK reports whether the run completed without any swallowed failure.
func (r RunReport) OK() bool {
	return len(r.Errors) == 0
}
