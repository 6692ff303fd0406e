package tokenwatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/jpalmerr/tokenwatch/internal/account"
	"github.com/jpalmerr/tokenwatch/internal/history"
	"github.com/jpalmerr/tokenwatch/internal/prober"
	"github.com/jpalmerr/tokenwatch/internal/publish"
	"github.com/jpalmerr/tokenwatch/internal/render"
	"github.com/jpalmerr/tokenwatch/internal/report"
	"github.com/jpalmerr/tokenwatch/internal/scheduler"
	"github.com/jpalmerr/tokenwatch/internal/server"
	"github.com/jpalmerr/tokenwatch/internal/store"
)

const (
	// DefaultIntervalHours is the run interval when none is configured.
	DefaultIntervalHours = 1

	// MaxIntervalHours is the largest interval "0 */N * * *" can express.
	MaxIntervalHours = 24

	DefaultTemplatePath = "template.html"
	DefaultOutputPath   = "index.html"
	DefaultAccountsFile = "accounts.json"
)

// Publisher pushes the files written by a run. [publish.Git] is the
// production implementation.
type Publisher interface {
	Publish(ctx context.Context, message string) (publish.Result, error)
}

// History stores probe results across runs. [history.DB] is the
// production implementation.
type History interface {
	Record(ctx context.Context, runID string, results []account.ProbeResult) error
	Uptime(ctx context.Context) (map[string]float64, error)
	Recent(ctx context.Context, identifier string, limit int) ([]history.Entry, error)
}

// Monitor probes every configured account, keeps the account table and
// publishes the rendered status page.
//
// Monitor is created using [New] with functional options. Use
// [Monitor.RunOnce] for a single pass or [Monitor.Start] to run on a
// schedule until the context is cancelled:
//
//	mon, err := tokenwatch.New(tokenwatch.WithCredentials(creds...))
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	mon.Start(ctx) // blocks until context cancelled
type Monitor struct {
	credentials   []Credential
	prober        *prober.Prober
	intervalHours int
	schedule      string
	store         store.Store
	templatePath  string
	outputPath    string
	reportPath    string
	report        *report.Writer
	publisher     Publisher
	history       History
	listenAddr    string
	logger        *slog.Logger
	callbacks     []func(ProbeResult)
	now           func() time.Time
}

// New creates a new [Monitor] with the given options.
//
// Defaults:
//   - Profile URL: [prober.DefaultProfileURL]
//   - Timeout: 10 seconds
//   - Interval: 1 hour, schedule "0 */1 * * *"
//   - Store: accounts.json
//   - Template: template.html, output: index.html
//
// Returns an error if any option is invalid or the resulting configuration
// cannot run.
func New(opts ...Option) (*Monitor, error) {
	cfg := &monitorConfig{
		profileURL:    prober.DefaultProfileURL,
		timeout:       prober.DefaultTimeout,
		intervalHours: DefaultIntervalHours,
		templatePath:  DefaultTemplatePath,
		outputPath:    DefaultOutputPath,
		version:       "dev",
		now:           time.Now,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(cfg.profileURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q must be an http or https url", ErrInvalidURL, cfg.profileURL)
	}

	if cfg.intervalHours < 1 || cfg.intervalHours > MaxIntervalHours {
		return nil, fmt.Errorf("%w: must be between 1 and %d hours, got %d",
			ErrInvalidInterval, MaxIntervalHours, cfg.intervalHours)
	}

	if cfg.timeout <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %s", ErrInvalidTimeout, cfg.timeout)
	}

	if strings.TrimSpace(cfg.templatePath) == "" {
		return nil, fmt.Errorf("%w: template path is required", ErrMissingPath)
	}
	if strings.TrimSpace(cfg.outputPath) == "" {
		return nil, fmt.Errorf("%w: output path is required", ErrMissingPath)
	}

	schedule := cfg.schedule
	if schedule == "" {
		schedule = scheduler.CronSpec(cfg.intervalHours)
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, schedule, err)
	}

	seen := make(map[string]bool, len(cfg.credentials))
	for _, c := range cfg.credentials {
		if seen[c.Identifier] {
			return nil, fmt.Errorf("duplicate account identifier: %q", c.Identifier)
		}
		seen[c.Identifier] = true
	}

	creds := slices.Clone(cfg.credentials)
	slices.SortFunc(creds, func(a, b Credential) int {
		return strings.Compare(a.Identifier, b.Identifier)
	})

	st := cfg.store
	if st == nil {
		st = store.NewFileStore(DefaultAccountsFile)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		credentials: creds,
		prober: prober.New(cfg.profileURL,
			prober.WithTimeout(cfg.timeout),
			prober.WithUserAgent("tokenwatch/"+cfg.version),
			prober.WithClock(cfg.now),
		),
		intervalHours: cfg.intervalHours,
		schedule:      schedule,
		store:         st,
		templatePath:  cfg.templatePath,
		outputPath:    cfg.outputPath,
		reportPath:    cfg.reportPath,
		report:        report.NewWriter(),
		publisher:     cfg.publisher,
		history:       cfg.history,
		listenAddr:    cfg.listenAddr,
		logger:        logger,
		callbacks:     cfg.callbacks,
		now:           cfg.now,
	}, nil
}

// Start runs one pass immediately, then repeats on the schedule.
//
// Start is a blocking call that runs until the provided context is
// cancelled. When a listen address is configured the status server runs
// alongside the scheduler.
//
// Returns nil on graceful shutdown. Returns an error if the status server
// fails to start.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("tokenwatch starting",
		"accounts", len(m.credentials),
		"schedule", m.schedule,
		"interval_hours", m.intervalHours,
	)

	if ctx.Err() != nil {
		return nil
	}

	sched, err := scheduler.New(m.schedule, func(ctx context.Context) { m.RunOnce(ctx) }, m.logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if m.listenAddr != "" {
		var hist server.HistoryReader
		if m.history != nil {
			hist = m.history
		}
		srv := server.NewServer(m.store, m.listenAddr, m.outputPath, hist, m.logger)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
	}

	sched.Start(ctx)
	m.logger.Info("schedule registered", "spec", m.schedule)

	<-ctx.Done()
	m.logger.Info("shutting down")
	sched.Stop()
	m.prober.Close()
	m.logger.Info("tokenwatch stopped")
	return nil
}

// RunOnce executes a single pass: probe every account, merge the results
// into the stored table, render the page and publish it.
//
// RunOnce never returns an error. Each failing step is logged and recorded in
// the returned [RunReport]. A failed table load or a cancelled ctx ends the
// pass before anything is written; any other failing step lets the
// remaining steps run.
func (m *Monitor) RunOnce(ctx context.Context) RunReport {
	rep := RunReport{RunID: uuid.NewString()}
	logger := m.logger.With("run_id", rep.RunID)
	started := m.now()

	fail := func(step string, err error) {
		rep.Errors = append(rep.Errors, fmt.Errorf("%s: %w", step, err))
		logger.Warn("run step failed", "step", step, "error", err)
	}

	logger.Info("run started", "accounts", len(m.credentials))
	if len(m.credentials) == 0 {
		logger.Info("0 accounts configured")
	}

	rep.Results = make([]ProbeResult, 0, len(m.credentials))
	for _, cred := range m.credentials {
		if ctx.Err() != nil {
			fail("probe", ctx.Err())
			break
		}
		res := m.prober.Probe(ctx, cred)
		m.logResult(logger, res)
		m.notify(logger, res)
		rep.Results = append(rep.Results, res)
	}

	existing, err := m.store.Load(ctx)
	if err != nil {
		fail("load account table", err)
	}

	now := m.now()
	rep.Table = store.Merge(existing, rep.Results, now)
	rep.Active = rep.Table.ActiveCount()

	// Without the stored table, or once cancelled, the previous page,
	// report and table stay as they are on disk.
	if err != nil || ctx.Err() != nil {
		if len(rep.Errors) == 0 {
			fail("run", ctx.Err())
		}
		logger.Warn("run aborted, previous output kept",
			"load_failed", err != nil,
			"cancelled", ctx.Err() != nil,
		)
		return rep
	}

	if err := m.store.Save(ctx, rep.Table); err != nil {
		fail("save account table", err)
	}

	var uptime map[string]float64
	if m.history != nil {
		if err := m.history.Record(ctx, rep.RunID, rep.Results); err != nil {
			fail("record history", err)
		}
		u, err := m.history.Uptime(ctx)
		if err != nil {
			fail("read uptime", err)
		}
		uptime = u
	}

	rc := render.Context{
		Table:         rep.Table,
		CheckedAt:     now,
		IntervalHours: m.intervalHours,
		Uptime:        uptime,
	}

	if err := render.RenderFile(m.templatePath, m.outputPath, rc); err != nil {
		fail("render page", err)
	} else {
		rep.Rendered = true
		logger.Debug("page rendered", "path", m.outputPath)
	}

	if m.reportPath != "" {
		if err := m.report.WriteFile(m.reportPath, rc); err != nil {
			fail("write status report", err)
		}
	}

	if m.publisher != nil {
		res, err := m.publisher.Publish(ctx, publish.Message(now, len(rep.Table)))
		if err != nil {
			fail("publish", err)
		} else {
			rep.Published = res.Pushed
			rep.Skipped = res.Skipped
			if res.Skipped {
				logger.Info("nothing to publish")
			} else {
				logger.Info("published", "pushed", res.Pushed)
			}
		}
	}

	logger.Info("run finished",
		"active", rep.Active,
		"total", len(rep.Table),
		"errors", len(rep.Errors),
		"duration_ms", m.now().Sub(started).Milliseconds(),
	)
	return rep
}

// Credentials returns a copy of the configured credentials, sorted by
// identifier.
func (m *Monitor) Credentials() []Credential {
	return slices.Clone(m.credentials)
}

// Schedule returns the cron expression runs are scheduled with.
func (m *Monitor) Schedule() string {
	return m.schedule
}

// IntervalHours returns the configured run interval.
func (m *Monitor) IntervalHours() int {
	return m.intervalHours
}

// logResult logs a probe at a level matching its outcome.
func (m *Monitor) logResult(logger *slog.Logger, res ProbeResult) {
	attrs := []any{
		"account", res.Identifier,
		"outcome", res.Outcome.String(),
		"status_code", res.StatusCode,
		"latency_ms", res.Latency.Milliseconds(),
	}

	switch {
	case res.Failed():
		attrs = append(attrs, "reason", res.Reason.String())
		if res.Err != nil {
			attrs = append(attrs, "error", res.Err.Error())
		}
		logger.Warn("probe failed", attrs...)
	case res.Err != nil:
		logger.Warn("profile decoded with anomaly", append(attrs, "error", res.Err.Error())...)
	default:
		logger.Debug("probe completed", append(attrs, "tag", res.Profile.Tag)...)
	}
}

// notify invokes every result callback with panic recovery.
func (m *Monitor) notify(logger *slog.Logger, res ProbeResult) {
	for _, cb := range m.callbacks {
		invokeCallbackSafe(cb, res, logger)
	}
}

// invokeCallbackSafe calls a result callback with panic recovery.
// Panics are logged with a correlation id but do not propagate.
func invokeCallbackSafe(cb func(ProbeResult), res ProbeResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("result callback panicked",
				"panic", r,
				"account", res.Identifier,
				"correlation_id", uuid.NewString(),
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(res)
}
