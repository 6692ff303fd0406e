package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/tokenwatch"
	"github.com/jpalmerr/tokenwatch/config"
	"github.com/jpalmerr/tokenwatch/internal/credentials"
	"github.com/jpalmerr/tokenwatch/internal/history"
	tlog "github.com/jpalmerr/tokenwatch/internal/log"
)

const (
	shutdownTimeout = 10 * time.Second

	// historyRetention bounds how far back probe history is kept.
	historyRetention = 90 * 24 * time.Hour
)

// runCmd starts the monitor.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check all accounts now and then on the schedule",
	Long: `Run the monitor.

Each run:
  - Reads credentials from .env in the repository directory and the environment
  - Probes every account once
  - Updates the account table, the HTML page and the optional STATUS.md
  - Commits and pushes the repository

The first run starts immediately. The process then runs until interrupted
(Ctrl+C) or it receives SIGTERM.

Example:
  tokenwatch run
  tokenwatch run -c /etc/tokenwatch/config.yaml --listen 127.0.0.1:8080
  tokenwatch run --once --no-push`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file")
	runCmd.Flags().Bool("once", false, "run a single pass and exit")
	runCmd.Flags().Bool("no-push", false, "write files locally without publishing")
	runCmd.Flags().String("listen", "", "serve the status page on this address")
	runCmd.Flags().BoolP("verbose", "v", false, "enable debug logging")
	runCmd.Flags().String("log-format", tlog.FormatJSON, "log format: json or text")
}

func runRun(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	once, _ := flags.GetBool("once")
	noPush, _ := flags.GetBool("no-push")
	listen, _ := flags.GetString("listen")
	verbose, _ := flags.GetBool("verbose")
	logFormat, _ := flags.GetString("log-format")

	if logFormat != tlog.FormatJSON && logFormat != tlog.FormatText {
		return fmt.Errorf("unknown log format %q (expected json or text)", logFormat)
	}

	cfg, env, err := config.Load(configFile, credentials.Environ(os.Environ()))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := tlog.New(cmd.ErrOrStderr(), logFormat, verbose, config.Secrets(cfg, env)...)
	logger.Info("config loaded",
		"source", cfg.Source,
		"repo_dir", cfg.RepoDir,
		"token_prefix", cfg.TokenPrefix,
	)

	opts := config.BuildOptions(cfg, env)
	opts = append(opts,
		tokenwatch.WithLogger(logger),
		tokenwatch.WithVersion(version),
	)
	if noPush {
		opts = append(opts, tokenwatch.WithPublisher(nil))
	}
	if listen != "" {
		opts = append(opts, tokenwatch.WithListenAddr(listen))
	}

	if cfg.HistoryDB != "" {
		db, err := openHistory(cmd.Context(), cfg.HistoryDB, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("failed to close history database", "error", err)
			}
		}()
		opts = append(opts, tokenwatch.WithHistory(db))
	}

	mon, err := tokenwatch.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		rep := mon.RunOnce(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d/%d active, %d error(s)\n",
			rep.RunID, rep.Active, len(rep.Table), len(rep.Errors))
		return nil
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- mon.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("monitor error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("monitor error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// openHistory opens the history database and drops rows past retention.
func openHistory(ctx context.Context, path string, logger *slog.Logger) (*history.DB, error) {
	db, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pruned, err := db.Prune(ctx, time.Now().Add(-historyRetention))
	if err != nil {
		logger.Warn("failed to prune history", "error", err)
	} else if pruned > 0 {
		logger.Info("history pruned", "rows", pruned)
	}

	logger.Info("history enabled", "path", db.Path())
	return db, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
