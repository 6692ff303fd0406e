package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"
)

// ErrInvalidSchedule is returned by [New] for an unparseable cron expression.
var ErrInvalidSchedule = errors.New("invalid schedule")

// RunFunc performs one pass. It should return promptly once ctx is done.
type RunFunc func(ctx context.Context)

// CronSpec returns the standard five-field expression that fires at minute
// zero of every hours-th hour.
func CronSpec(hours int) string {
	return fmt.Sprintf("0 */%d * * *", hours)
}

// Scheduler runs a [RunFunc] once on start and then on a cron schedule.
//
// At most one run is in flight at any time. A tick that fires while the
// previous run is still going is dropped and logged, not queued.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	spec    string
	run     RunFunc
	logger  *slog.Logger
	cron    *cron.Cron
	entry   cron.EntryID
	running *semaphore.Weighted
	skipped atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a [Scheduler] for spec, a standard five-field cron expression
// or a descriptor such as "@hourly". Times are evaluated in UTC.
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop].
func New(spec string, run RunFunc, logger *slog.Logger) (*Scheduler, error) {
	if run == nil {
		return nil, errors.New("scheduler: run func is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		spec:    spec,
		run:     run,
		logger:  logger,
		running: semaphore.NewWeighted(1),
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{logger}),
		),
	}

	id, err := s.cron.AddFunc(spec, func() { s.tick(s.context(), "cron") })
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, spec, err)
	}
	s.entry = id

	return s, nil
}

// Spec returns the cron expression.
func (s *Scheduler) Spec() string {
	return s.spec
}

// Start runs one pass in a background goroutine and, once it finishes,
// begins firing on the cron schedule.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		s.tick(runCtx, "startup")

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped || runCtx.Err() != nil {
			return
		}
		s.cron.Start()
		s.logger.Info("schedule armed", "spec", s.spec, "next_run", s.cron.Entry(s.entry).Next)
	}()
}

// Stop halts the schedule, cancels any in-flight run and waits for it to
// return.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	// waits for cron-triggered jobs
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Next returns the next scheduled fire time, or the zero time if the
// schedule is not running yet.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Skipped returns the number of ticks dropped because a run was in flight.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// tick starts a run unless one is already in flight.
func (s *Scheduler) tick(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	if !s.running.TryAcquire(1) {
		s.skipped.Add(1)
		s.logger.Warn("run skipped", "trigger", trigger, "reason", "previous run still in progress")
		return
	}
	defer s.running.Release(1)

	s.safeRun(ctx, trigger)
}

// safeRun calls the run func with panic recovery.
// A panic is logged with its stack under a correlation ID; the schedule
// keeps going.
func (s *Scheduler) safeRun(ctx context.Context, trigger string) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("run panic",
				"correlation_id", correlationID,
				"trigger", trigger,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.run(ctx)
}

// cronLogger routes cron's internal logging to slog. Routine wake-ups go to
// debug; job panics caught by cron go to error.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
