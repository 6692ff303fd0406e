package config

import (
	"github.com/jpalmerr/tokenwatch"
	"github.com/jpalmerr/tokenwatch/internal/credentials"
	"github.com/jpalmerr/tokenwatch/internal/publish"
	"github.com/jpalmerr/tokenwatch/internal/store"
)

// BuildOptions converts parsed configuration into Monitor options.
//
// Credentials are selected from env with the configured prefix. The
// history database is not opened here; callers that want history open it
// and add [tokenwatch.WithHistory] themselves, since they own its lifetime.
func BuildOptions(cfg *Config, env map[string]string) []tokenwatch.Option {
	opts := []tokenwatch.Option{
		tokenwatch.WithCredentials(credentials.List(env, cfg.TokenPrefix)...),
		tokenwatch.WithProfileURL(cfg.ProfileURL),
		tokenwatch.WithTimeout(cfg.Timeout.Duration()),
		tokenwatch.WithIntervalHours(cfg.IntervalHours),
		tokenwatch.WithStore(store.NewFileStore(cfg.AccountsFile)),
		tokenwatch.WithTemplatePath(cfg.Template),
		tokenwatch.WithOutputPath(cfg.Output),
	}

	if cfg.Schedule != "" {
		opts = append(opts, tokenwatch.WithSchedule(cfg.Schedule))
	}
	if cfg.StatusReport != "" {
		opts = append(opts, tokenwatch.WithReportPath(cfg.StatusReport))
	}
	if cfg.Listen != "" {
		opts = append(opts, tokenwatch.WithListenAddr(cfg.Listen))
	}
	if cfg.Publish.IsEnabled() {
		opts = append(opts, tokenwatch.WithPublisher(Publisher(cfg)))
	}

	return opts
}

// Publisher returns the git publisher for cfg.
func Publisher(cfg *Config) *publish.Git {
	return &publish.Git{
		Dir:           cfg.RepoDir,
		Remote:        cfg.Publish.Remote,
		Branch:        cfg.Publish.Branch,
		SkipUnchanged: cfg.Publish.SkipUnchanged,
	}
}

// Secrets returns the credential values in env, for log redaction.
func Secrets(cfg *Config, env map[string]string) []string {
	creds := credentials.Read(env, cfg.TokenPrefix)
	out := make([]string, 0, len(creds))
	for _, v := range creds {
		out = append(out, v)
	}
	return out
}
