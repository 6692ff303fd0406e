// Package config provides YAML configuration parsing for tokenwatch.
//
// Configuration comes from three layers. A YAML file sets paths and the
// schedule; a .env file in the repository directory holds the account
// tokens; the real process environment overrides both. Nothing here
// mutates the process environment.
//
// Example configuration:
//
//	token_prefix: DISCORD_TOKEN_
//	interval_hours: 2
//	repo_dir: ${HOME}/status-page
//	template: template.html
//	output: index.html
//	status_report: STATUS.md
//	history_db: default
//
//	publish:
//	  enabled: true
//	  remote: origin
//	  branch: main
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/tokenwatch"
	"github.com/jpalmerr/tokenwatch/internal/credentials"
	"github.com/jpalmerr/tokenwatch/internal/prober"
	"github.com/jpalmerr/tokenwatch/internal/scheduler"
)

// IntervalEnvVar overrides interval_hours when set in the environment.
const IntervalEnvVar = "CHECK_INTERVAL_HOURS"

// DefaultHistoryDB is the history_db value that selects the per-user data
// directory.
const DefaultHistoryDB = "default"

// Config is the root configuration structure for tokenwatch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config.
type Config struct {
	// TokenPrefix selects credential keys. Defaults to DISCORD_TOKEN_.
	TokenPrefix string `yaml:"token_prefix"`

	// IntervalHours is the run interval, 1 to 24. Defaults to 1.
	// CHECK_INTERVAL_HOURS overrides it.
	IntervalHours int `yaml:"interval_hours"`

	// Schedule replaces the cron expression derived from IntervalHours.
	Schedule string `yaml:"schedule"`

	// ProfileURL is the endpoint tokens are validated against.
	ProfileURL string `yaml:"profile_url"`

	// Timeout bounds each probe. Accepts duration strings like "10s".
	Timeout Duration `yaml:"timeout"`

	// RepoDir is the git working tree. Relative paths below resolve
	// against it, and its .env file supplies credentials.
	RepoDir string `yaml:"repo_dir"`

	Template     string `yaml:"template"`
	Output       string `yaml:"output"`
	AccountsFile string `yaml:"accounts_file"`

	// StatusReport enables the Markdown report when set.
	StatusReport string `yaml:"status_report"`

	// HistoryDB enables probe history when set. "default" selects
	// $XDG_DATA_HOME/tokenwatch/history.db.
	HistoryDB string `yaml:"history_db"`

	// Listen starts the status server on this address when set.
	Listen string `yaml:"listen"`

	Publish PublishConfig `yaml:"publish"`

	// Source is the file the configuration was read from, empty when
	// only defaults apply.
	Source string `yaml:"-"`
}

// PublishConfig controls the git publish step.
type PublishConfig struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled"`

	Remote string `yaml:"remote"`
	Branch string `yaml:"branch"`

	// SkipUnchanged avoids empty commits by checking git status first.
	SkipUnchanged bool `yaml:"skip_unchanged"`
}

// IsEnabled reports whether publishing is on.
func (p PublishConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load resolves and reads the configuration file, merges the repository's
// .env file with processEnv, and returns the validated configuration
// together with the merged environment snapshot.
//
// An empty path searches ./tokenwatch.yaml and then the XDG config
// directory. When no file is found, defaults apply. An explicit path that
// does not exist is an error.
func Load(path string, processEnv map[string]string) (*Config, map[string]string, error) {
	source, err := Locate(path)
	if err != nil {
		return nil, nil, err
	}

	var data []byte
	if source != "" {
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := decode(data)
	if err != nil {
		return nil, nil, err
	}
	cfg.Source = source

	// repo_dir can only see the process environment: it locates the .env file
	repoDir, err := expandEnvVars(cfg.RepoDir, processEnv)
	if err != nil {
		return nil, nil, fmt.Errorf("repo_dir: %w", err)
	}
	if repoDir == "" {
		repoDir = "."
	}
	if cfg.RepoDir, err = filepath.Abs(repoDir); err != nil {
		return nil, nil, fmt.Errorf("repo_dir: %w", err)
	}

	env, err := Environment(cfg.RepoDir, processEnv)
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.finish(env); err != nil {
		return nil, nil, err
	}
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, env, nil
}

// Parse parses YAML configuration data against an environment snapshot.
//
// Environment variables are expanded in every string field, defaults are
// applied and CHECK_INTERVAL_HOURS is honoured. Paths are left as written.
func Parse(data []byte, env map[string]string) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.finish(env); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// finish expands variables, applies defaults and environment overrides.
func (c *Config) finish(env map[string]string) error {
	if err := c.expand(env); err != nil {
		return err
	}
	c.applyDefaults()
	return c.applyEnv(env)
}

// expand replaces ${VAR} references in every string field.
func (c *Config) expand(env map[string]string) error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"token_prefix", &c.TokenPrefix},
		{"schedule", &c.Schedule},
		{"profile_url", &c.ProfileURL},
		{"repo_dir", &c.RepoDir},
		{"template", &c.Template},
		{"output", &c.Output},
		{"accounts_file", &c.AccountsFile},
		{"status_report", &c.StatusReport},
		{"history_db", &c.HistoryDB},
		{"listen", &c.Listen},
		{"publish.remote", &c.Publish.Remote},
		{"publish.branch", &c.Publish.Branch},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.ptr, env)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = expanded
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.TokenPrefix == "" {
		c.TokenPrefix = credentials.DefaultPrefix
	}
	if c.IntervalHours == 0 {
		c.IntervalHours = tokenwatch.DefaultIntervalHours
	}
	if c.ProfileURL == "" {
		c.ProfileURL = prober.DefaultProfileURL
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(prober.DefaultTimeout)
	}
	if c.Template == "" {
		c.Template = tokenwatch.DefaultTemplatePath
	}
	if c.Output == "" {
		c.Output = tokenwatch.DefaultOutputPath
	}
	if c.AccountsFile == "" {
		c.AccountsFile = tokenwatch.DefaultAccountsFile
	}
}

// applyEnv applies environment overrides.
func (c *Config) applyEnv(env map[string]string) error {
	v, ok := env[IntervalEnvVar]
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a whole number of hours", ErrInvalidInterval, IntervalEnvVar, v)
	}
	c.IntervalHours = n
	return nil
}

// resolvePaths makes file paths absolute against RepoDir.
func (c *Config) resolvePaths() {
	c.Template = c.resolve(c.Template)
	c.Output = c.resolve(c.Output)
	c.AccountsFile = c.resolve(c.AccountsFile)
	c.StatusReport = c.resolve(c.StatusReport)

	if c.HistoryDB == DefaultHistoryDB {
		c.HistoryDB = filepath.Join(xdg.DataHome, "tokenwatch", "history.db")
	} else {
		c.HistoryDB = c.resolve(c.HistoryDB)
	}
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.RepoDir, path)
}

// Validate checks the configuration and returns a wrapped sentinel error
// describing the first problem found.
func (c *Config) Validate() error {
	if c.IntervalHours < 1 || c.IntervalHours > tokenwatch.MaxIntervalHours {
		return fmt.Errorf("%w: interval_hours must be between 1 and %d, got %d",
			ErrInvalidInterval, tokenwatch.MaxIntervalHours, c.IntervalHours)
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, c.Schedule, err)
		}
	}

	parsedURL, err := url.Parse(c.ProfileURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%w: profile_url scheme must be http or https, got %q", ErrInvalidURL, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%w: profile_url has no host", ErrInvalidURL)
	}

	if c.Timeout.Duration() < 0 {
		return fmt.Errorf("%w: timeout cannot be negative, got %s", ErrInvalidTimeout, c.Timeout.Duration())
	}
	if c.Timeout.Duration() < time.Second {
		return fmt.Errorf("%w: timeout must be at least 1s, got %s", ErrInvalidTimeout, c.Timeout.Duration())
	}

	if strings.TrimSpace(c.TokenPrefix) == "" {
		return fmt.Errorf("%w: token_prefix cannot be blank", ErrInvalidPrefix)
	}

	// both end up as git arguments
	if strings.HasPrefix(c.Publish.Remote, "-") {
		return fmt.Errorf("%w: remote %q", ErrInvalidPublish, c.Publish.Remote)
	}
	if strings.HasPrefix(c.Publish.Branch, "-") {
		return fmt.Errorf("%w: branch %q", ErrInvalidPublish, c.Publish.Branch)
	}

	return nil
}

// CronSpec returns the effective schedule.
func (c *Config) CronSpec() string {
	if c.Schedule != "" {
		return c.Schedule
	}
	return scheduler.CronSpec(c.IntervalHours)
}
