// Package tokenwatch monitors a set of account tokens and publishes their
// health as a static status page.
//
// Each run probes every configured token once against the profile
// endpoint, merges the outcomes into the persisted account table, rewrites
// the HTML page from a template and pushes the result with git. Runs
// happen once on start and then on an hourly cron schedule.
//
// # Quick Start
//
//	env := credentials.Environ(os.Environ())
//	mon, _ := tokenwatch.New(
//	    tokenwatch.WithCredentials(credentials.List(env, credentials.DefaultPrefix)...),
//	    tokenwatch.WithIntervalHours(2),
//	    tokenwatch.WithPublisher(&publish.Git{Dir: "."}),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	mon.Start(ctx) // blocks until context is cancelled
//
// # Failure Handling
//
// A run never aborts. A rejected token marks its account invalid while the
// identity fields learned from an earlier success are kept. A failure to
// save, render or publish is logged and reported in [RunReport.Errors], and
// the next scheduled run tries again.
//
// # Templates
//
// The page template is plain HTML with two placeholders, {{STATUS}} for the
// summary block and {{ACCOUNTS}} for the account cards. Either may be
// omitted. When the template file does not exist a built-in one is used.
//
// # Scheduling
//
// Runs never overlap. A tick that fires while the previous run is still in
// progress is skipped and logged.
package tokenwatch
