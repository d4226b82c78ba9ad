package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Task is one independently scheduled unit of periodic work.
type Task[R any] struct {
	// Name identifies the task in logs.
	Name string

	// Interval is the fixed delay between two runs. It is not adjusted for
	// failures and there is no backoff.
	Interval time.Duration

	// Run performs one run and returns its result. The result is emitted on
	// [Scheduler.Results] unless the scheduler is stopping.
	Run func(ctx context.Context) R
}

// Scheduler runs a set of tasks periodically.
//
// Each task has its own ticker goroutine, so a slow task never delays another.
// A tick that fires while the previous run of the same task is still in
// flight is skipped rather than queued. Results are emitted to a channel that
// is consumed by a single caller goroutine.
//
// The first run of each task happens one interval after Start; callers that
// want an eager first run perform it themselves before starting the scheduler.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler[R any] struct {
	tasks    []Task[R]
	inFlight []atomic.Bool
	skipped  atomic.Int64
	results  chan R
	logger   *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewScheduler creates a new [Scheduler] for tasks.
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler[R any](tasks []Task[R], logger *slog.Logger) *Scheduler[R] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler[R]{
		tasks:    tasks,
		inFlight: make([]atomic.Bool, len(tasks)),
		results:  make(chan R, len(tasks)),
		logger:   logger,
	}
}

// Results returns a receive-only channel that emits task results.
//
// The channel is closed when the scheduler stops. Consumers should read from
// this channel until it is closed.
func (s *Scheduler[R]) Results() <-chan R {
	return s.results
}

// Skipped returns how many ticks were dropped because the previous run of
// the same task had not finished.
func (s *Scheduler[R]) Skipped() int64 {
	return s.skipped.Load()
}

// Start launches one ticker goroutine per task.
//
// Start is non-blocking and idempotent. If ctx is nil, context.Background()
// is used. If Stop was called before Start, Start is a no-op.
func (s *Scheduler[R]) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := range s.tasks {
		if s.tasks[i].Interval <= 0 {
			s.logger.Warn("task has no interval, not scheduling", "task", s.tasks[i].Name)
			continue
		}
		s.wg.Add(1)
		go s.loop(runCtx, i)
	}
}

// Stop cancels all tasks and blocks until every in-flight run has returned
// and the results channel is closed.
//
// Stop is idempotent. Calling Stop before Start is a safe no-op.
func (s *Scheduler[R]) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.closeOnce.Do(func() { close(s.results) })
}

func (s *Scheduler[R]) loop(ctx context.Context, i int) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tasks[i].Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.dispatch(ctx, i)
		}
	}
}

// dispatch starts one run of task i unless the previous one is still active.
func (s *Scheduler[R]) dispatch(ctx context.Context, i int) {
	task := s.tasks[i]
	if !s.inFlight[i].CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Debug("previous run still in flight, skipping tick", "task", task.Name)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight[i].Store(false)

		result, ok := s.safeRun(ctx, task)
		if !ok {
			return
		}
		select {
		case s.results <- result:
		case <-ctx.Done():
		}
	}()
}

// safeRun calls the task with panic recovery.
// If the task panics, the full stack trace is logged with a correlation ID
// and no result is emitted.
func (s *Scheduler[R]) safeRun(ctx context.Context, task Task[R]) (result R, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("task panic",
				"task", task.Name,
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			ok = false
		}
	}()
	return task.Run(ctx), true
}
