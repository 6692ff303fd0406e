package tokenwatch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/tokenwatch/internal/store"
)

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	credentials   []Credential
	profileURL    string
	timeout       time.Duration
	intervalHours int
	schedule      string
	store         store.Store
	templatePath  string
	outputPath    string
	reportPath    string
	publisher     Publisher
	history       History
	listenAddr    string
	logger        *slog.Logger
	version       string
	callbacks     []func(ProbeResult)
	now           func() time.Time
}

// Option is a function that configures a [Monitor] instance during construction.
//
// Options return an error if validation fails. Cross-field checks (such as
// the interval range) happen in [New] after every option has been applied.
type Option func(*monitorConfig) error

// WithCredentials adds account credentials to probe.
//
// Can be called multiple times. Zero credentials is valid: each run then
// renders an empty page and logs "0 accounts".
//
// Example:
//
//	mon, err := tokenwatch.New(
//	    tokenwatch.WithCredentials(credentials.List(env, credentials.DefaultPrefix)...),
//	)
func WithCredentials(creds ...Credential) Option {
	return func(cfg *monitorConfig) error {
		cfg.credentials = append(cfg.credentials, creds...)
		return nil
	}
}

// WithProfileURL sets the endpoint tokens are validated against.
// Defaults to [prober.DefaultProfileURL].
func WithProfileURL(url string) Option {
	return func(cfg *monitorConfig) error {
		cfg.profileURL = url
		return nil
	}
}

// WithTimeout sets the per-probe request timeout. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithIntervalHours sets how often runs repeat, in whole hours.
//
// The schedule becomes "0 */N * * *" unless [WithSchedule] overrides it.
// Defaults to 1.
func WithIntervalHours(n int) Option {
	return func(cfg *monitorConfig) error {
		cfg.intervalHours = n
		return nil
	}
}

// WithSchedule overrides the cron expression derived from the interval.
//
// Example:
//
//	mon, err := tokenwatch.New(
//	    tokenwatch.WithSchedule("30 */6 * * *"),
//	)
func WithSchedule(spec string) Option {
	return func(cfg *monitorConfig) error {
		cfg.schedule = spec
		return nil
	}
}

// WithStore sets where the account table is persisted.
// Defaults to a file store at accounts.json.
//
// Returns an error if the store is nil.
func WithStore(s store.Store) Option {
	return func(cfg *monitorConfig) error {
		if s == nil {
			return errors.New("store cannot be nil")
		}
		cfg.store = s
		return nil
	}
}

// WithTemplatePath sets the HTML template. A path that does not exist at
// render time falls back to the built-in template.
func WithTemplatePath(path string) Option {
	return func(cfg *monitorConfig) error {
		cfg.templatePath = path
		return nil
	}
}

// WithOutputPath sets where the rendered page is written.
func WithOutputPath(path string) Option {
	return func(cfg *monitorConfig) error {
		cfg.outputPath = path
		return nil
	}
}

// WithReportPath enables the Markdown status report at path.
func WithReportPath(path string) Option {
	return func(cfg *monitorConfig) error {
		cfg.reportPath = path
		return nil
	}
}

// WithPublisher sets what publishes the rendered files after each run.
// Without a publisher, runs only write files locally.
func WithPublisher(p Publisher) Option {
	return func(cfg *monitorConfig) error {
		cfg.publisher = p
		return nil
	}
}

// WithHistory records every probe and adds uptime to the page.
func WithHistory(h History) Option {
	return func(cfg *monitorConfig) error {
		cfg.history = h
		return nil
	}
}

// WithListenAddr starts the status server on addr during [Monitor.Start].
//
// Example:
//
//	mon, err := tokenwatch.New(
//	    tokenwatch.WithListenAddr("127.0.0.1:8080"),
//	)
func WithListenAddr(addr string) Option {
	return func(cfg *monitorConfig) error {
		cfg.listenAddr = addr
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Monitor.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithVersion sets the version sent in the User-Agent header.
func WithVersion(v string) Option {
	return func(cfg *monitorConfig) error {
		cfg.version = v
		return nil
	}
}

// WithResultCallback registers a function called with every probe result.
//
// Callbacks run synchronously on the run goroutine, in registration order,
// before results are merged. Panics within callbacks are recovered and
// logged; they do not abort the run.
//
// Nil callbacks are silently ignored.
func WithResultCallback(cb func(ProbeResult)) Option {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}

// withClock overrides the run timestamp source.
func withClock(now func() time.Time) Option {
	return func(cfg *monitorConfig) error {
		cfg.now = now
		return nil
	}
}
