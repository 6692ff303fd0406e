// Package scheduler drives periodic runs.
//
// A [Scheduler] executes one pass immediately on start, then fires on a
// cron expression (by default [CronSpec] of the configured hour interval).
// A weighted semaphore of size one keeps runs from overlapping: a tick that
// arrives while a run is in progress is skipped and logged. Panics inside a
// run are recovered and logged with a correlation ID so the schedule
// survives a bad pass.
package scheduler
