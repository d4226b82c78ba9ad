package poolbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/poolbridge/internal/poller"
)

// RequestTimeout bounds every refresh request, independent of the poll interval.
const RequestTimeout = 10 * time.Second

// Target is the read side of a polled controller, as seen by readings.
//
// [*Coordinator] implements Target.
type Target interface {
	// Config returns the target's configuration.
	Config() TargetConfig

	// Refresh fetches a new snapshot.
	Refresh(ctx context.Context) Outcome

	// Snapshot returns the last successfully fetched document.
	Snapshot() (Value, bool)

	// LastOutcome returns the result of the most recent committed refresh.
	LastOutcome() (Outcome, bool)
}

// fetcher performs the HTTP exchange for a coordinator.
type fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) poller.Response
}

// coordinatorState is swapped as a whole on every committed refresh.
type coordinatorState struct {
	snapshot    Value
	hasSnapshot bool
	outcome     Outcome
	hasOutcome  bool
	state       State
}

// Coordinator owns the polling of one target and the latest snapshot
// fetched from it.
//
// Refreshes are serialized: at most one fetch is in flight per coordinator.
// The snapshot, the last outcome and the lifecycle state form one immutable
// record that is replaced atomically, so readers never observe a
// half-updated state and never block on a refresh.
//
// A failed refresh never discards the previous snapshot. Every refresh is a
// fresh attempt with no retry or backoff.
type Coordinator struct {
	cfg            TargetConfig
	client         fetcher
	logger         *slog.Logger
	requestTimeout time.Duration

	mu      sync.Mutex // serializes refreshes
	current atomic.Pointer[coordinatorState]

	lifetime context.Context
	teardown context.CancelFunc
	closed   atomic.Bool
}

// CoordinatorOption configures a [Coordinator].
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the logger used by the coordinator.
// A nil logger is ignored.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a [Coordinator] for cfg. No request is made until
// [Coordinator.FirstRefresh] or [Coordinator.Refresh] is called.
func NewCoordinator(cfg TargetConfig, opts ...CoordinatorOption) *Coordinator {
	lifetime, teardown := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:            cfg,
		client:         poller.NewClient(),
		logger:         slog.Default(),
		requestTimeout: RequestTimeout,
		lifetime:       lifetime,
		teardown:       teardown,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("target", cfg.Name(), "url", cfg.URL())
	c.current.Store(&coordinatorState{state: StateUninitialized})
	return c
}

// Config returns the target configuration.
func (c *Coordinator) Config() TargetConfig {
	return c.cfg
}

// Snapshot returns the last successfully fetched document.
// The second result is false until a refresh has succeeded.
func (c *Coordinator) Snapshot() (Value, bool) {
	s := c.current.Load()
	return s.snapshot, s.hasSnapshot
}

// LastOutcome returns the most recent committed outcome.
// The second result is false until the first refresh completes.
func (c *Coordinator) LastOutcome() (Outcome, bool) {
	s := c.current.Load()
	return s.outcome, s.hasOutcome
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return c.current.Load().state
}

// Available reports whether a snapshot exists. Readings are available
// whenever their target has ever produced a snapshot, including while it
// is degraded.
func (c *Coordinator) Available() bool {
	return c.current.Load().hasSnapshot
}

// Refresh performs one fetch and commits its outcome.
//
// Concurrent calls are serialized. On success the snapshot is replaced
// wholesale; on failure the previous snapshot is kept and the failure is
// recorded. Panics during the refresh are recovered and reported as
// [ReasonUnknown].
//
// If the coordinator is closed, or is closed or ctx ends while the request
// is in flight, the result is [ReasonCanceled] and nothing is committed.
func (c *Coordinator) Refresh(ctx context.Context) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return c.canceledOutcome()
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.lifetime, cancel)
	defer stop()

	out := c.fetch(fetchCtx)

	if out.Reason == ReasonCanceled || c.closed.Load() || errors.Is(ctx.Err(), context.Canceled) {
		c.logger.Debug("refresh abandoned", "reason", out.Reason.String())
		return c.canceledOutcome()
	}

	c.commit(out)

	logAttrs := []any{
		"reason", out.Reason.String(),
		"status_code", out.StatusCode,
		"latency_ms", out.Latency.Milliseconds(),
		"state", c.State().String(),
	}
	if out.OK() {
		c.logger.Debug("refresh completed", logAttrs...)
	} else {
		c.logger.Warn("refresh failed", append(logAttrs, "error", out.Message)...)
	}
	return out
}

// FirstRefresh performs the eager first refresh of a new target.
//
// A failure is a hard setup error: the returned error wraps [ErrSetupFailed]
// and either [ErrCannotConnect] (non-200 status, connection failure or
// timeout) or [ErrUnknown] (invalid document or anything else). The caller
// should report it and discard the coordinator.
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	out := c.Refresh(ctx)
	if out.OK() {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrSetupFailed, c.cfg.Name(), classifySetupFailure(out))
}

// Close tears the coordinator down. An in-flight refresh is abandoned and
// its result is discarded; later refreshes return [ReasonCanceled]
// immediately. The last committed snapshot stays readable.
//
// Close is idempotent.
func (c *Coordinator) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.teardown()
	if closer, ok := c.client.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Run performs [Coordinator.FirstRefresh] and then refreshes the target
// every poll interval until ctx is done. It returns the setup error if the
// first refresh fails, and nil on shutdown.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.FirstRefresh(ctx); err != nil {
		return err
	}

	scheduler := poller.NewScheduler([]poller.Task[Outcome]{c.task()}, c.logger)
	scheduler.Start(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range scheduler.Results() {
		}
	}()

	<-ctx.Done()
	scheduler.Stop()
	<-done
	return nil
}

// task wraps Refresh as a scheduler task on the target's poll interval.
func (c *Coordinator) task() poller.Task[Outcome] {
	return poller.Task[Outcome]{
		Name:     c.cfg.Name(),
		Interval: c.cfg.PollInterval(),
		Run:      c.Refresh,
	}
}

func (c *Coordinator) canceledOutcome() Outcome {
	return Outcome{
		Target:    c.cfg.Name(),
		URL:       c.cfg.URL(),
		Reason:    ReasonCanceled,
		Message:   "refresh canceled",
		CheckedAt: time.Now(),
	}
}

// fetch performs the request and classifies the result.
func (c *Coordinator) fetch(ctx context.Context) (out Outcome) {
	start := time.Now()
	out = Outcome{Target: c.cfg.Name(), URL: c.cfg.URL()}

	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			c.logger.Error("refresh panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			out = Outcome{
				Target:    c.cfg.Name(),
				URL:       c.cfg.URL(),
				Reason:    ReasonUnknown,
				Message:   fmt.Sprintf("unexpected error (correlation_id: %s)", correlationID),
				CheckedAt: time.Now(),
				Latency:   time.Since(start),
			}
		}
	}()

	resp := c.client.Fetch(ctx, out.URL, c.requestTimeout)
	out.CheckedAt = time.Now()
	out.Latency = resp.Latency
	out.StatusCode = resp.StatusCode

	tooLarge := errors.Is(resp.Error, poller.ErrBodyTooLarge)
	switch {
	case resp.Error != nil && !tooLarge:
		out.Reason, out.Message = classifyFetchError(ctx, resp.Error)
	case resp.StatusCode != http.StatusOK:
		out.Reason = ReasonHTTPStatus
		out.Message = fmt.Sprintf("HTTP error %d", resp.StatusCode)
	case tooLarge:
		out.Reason = ReasonParse
		out.Message = resp.Error.Error()
	default:
		doc, err := ParseDocument(resp.Body)
		if err != nil {
			out.Reason = ReasonParse
			out.Message = err.Error()
			return out
		}
		out.Snapshot = doc
	}
	return out
}

// commit records out. Only called with mu held.
func (c *Coordinator) commit(out Outcome) {
	prev := c.current.Load()
	next := &coordinatorState{outcome: out, hasOutcome: true}

	if out.OK() {
		next.snapshot = out.Snapshot
		next.hasSnapshot = true
		next.state = StateReady
	} else {
		next.snapshot = prev.snapshot
		next.hasSnapshot = prev.hasSnapshot
		next.state = StateUninitialized
		if prev.hasSnapshot {
			next.state = StateDegraded
		}
	}

	c.current.Store(next)
}

// classifyFetchError maps a transport error to a failure reason.
// ctx is the context the request was made with.
func classifyFetchError(ctx context.Context, err error) (FailureReason, string) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ReasonCanceled, "refresh canceled"
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ReasonTimeout, "timeout connecting to device"
	}

	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ReasonConnection, err.Error()
	}

	return ReasonUnknown, err.Error()
}
