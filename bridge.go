package poolbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/poolbridge/dashboard"
	"github.com/jpalmerr/poolbridge/internal/poller"
	"github.com/jpalmerr/poolbridge/internal/server"
	"github.com/jpalmerr/poolbridge/internal/store"
)

const defaultPort = 8080

// Publisher pushes target data to an external host platform, such as an
// MQTT broker with Home Assistant discovery.
//
// Announce is called once per active target after its first successful
// refresh. Publish is called for every committed refresh, from a single
// goroutine. Errors are logged and never stop polling.
type Publisher interface {
	Announce(ctx context.Context, target TargetConfig, fields []Field) error
	Publish(ctx context.Context, update TargetUpdate) error
}

// TargetUpdate is the state of one target after a committed refresh,
// together with every reading evaluated against the same snapshot.
type TargetUpdate struct {
	// Target is the configuration of the refreshed target.
	Target TargetConfig

	// State is the coordinator state after the refresh.
	State State

	// Available reports whether the target has a snapshot.
	Available bool

	// Outcome is the result of the refresh.
	Outcome Outcome

	// Readings holds one entry per configured field, in field order.
	Readings []ReadingValue
}

// Bridge polls one or more pool controllers and exposes their readings.
//
// A Bridge owns one [Coordinator] per target. Each target is refreshed on its
// own interval, and every committed refresh is fanned out to the built-in
// dashboard and API, the optional [Publisher], and any update callbacks.
//
// Bridge is created using [New] and started with [Bridge.Start]:
//
//	b, err := poolbridge.New(poolbridge.WithTarget(cfg))
//	if err != nil {
//	    slog.Error("failed to create bridge", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until context cancelled
//
// Changing a target's configuration means building a new Bridge.
type Bridge struct {
	title           string
	targets         []TargetConfig
	fields          []Field
	port            int
	httpDisabled    bool
	logger          *slog.Logger
	publisher       Publisher
	updateCallbacks []func(TargetUpdate)
}

// New creates a new [Bridge] with the given options.
//
// At least one target must be configured via [WithTarget] or [WithTargets].
// Other options have defaults:
//   - Fields: [PoolFields]
//   - Port: 8080
//   - Logger: [slog.Default]
//
// Returns an error if no target is configured, if two targets share a host
// and path ([ErrDuplicateTarget]) or a name, if the field set is invalid, or
// if any option is invalid.
func New(opts ...Option) (*Bridge, error) {
	cfg := &bridgeConfig{
		port: defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.targets) == 0 {
		return nil, errors.New("at least one target is required")
	}

	registry := NewRegistry()
	names := make(map[string]bool, len(cfg.targets))
	for _, t := range cfg.targets {
		if err := registry.Add(t); err != nil {
			return nil, err
		}
		if names[t.Name()] {
			return nil, fmt.Errorf("duplicate target name: %q", t.Name())
		}
		names[t.Name()] = true
	}

	fields := cfg.fields
	if fields == nil {
		fields = PoolFields()
	}
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		title:           cfg.title,
		targets:         registry.Targets(),
		fields:          fields,
		port:            cfg.port,
		httpDisabled:    cfg.httpDisabled,
		logger:          logger,
		publisher:       cfg.publisher,
		updateCallbacks: cfg.updateCallbacks,
	}, nil
}

// Start sets up every target, then polls and serves until ctx is cancelled.
//
// Each target gets an eager first refresh; these run concurrently and each
// target's initial update is dispatched as soon as its own refresh succeeds.
// A target whose first contact fails is logged and left inactive; if no target can be set up, Start returns the
// joined setup errors, each wrapping [ErrSetupFailed]. Active targets are then
// refreshed on their own poll intervals and the dashboard is served on the
// configured port unless [WithHTTPDisabled] was given.
//
// Returns nil on graceful shutdown, or an error if the HTTP server fails to
// start.
func (b *Bridge) Start(ctx context.Context) error {
	b.logger.Info("poolbridge starting",
		"target_count", len(b.targets),
		"field_count", len(b.fields),
	)

	if ctx.Err() != nil {
		return nil
	}

	statusStore := store.NewMemoryStore()

	coordinators, setupErr := b.setupTargets(ctx, statusStore)
	defer func() {
		for _, c := range coordinators {
			c.Close()
		}
	}()
	if ctx.Err() != nil {
		return nil
	}
	if len(coordinators) == 0 {
		return setupErr
	}

	tasks := make([]poller.Task[TargetUpdate], len(coordinators))
	for i, c := range coordinators {
		tasks[i] = b.task(c)
	}

	scheduler := poller.NewScheduler(tasks, b.logger)
	scheduler.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range scheduler.Results() {
			// abandoned refreshes commit nothing and are not reported
			if update.Outcome.Reason == ReasonCanceled {
				continue
			}
			b.dispatch(ctx, statusStore, update)
		}
	}()

	cleanup := func() {
		scheduler.Stop()
		wg.Wait()
	}

	if !b.httpDisabled {
		httpServer := server.NewServer(statusStore, b.port, dashboard.Assets, b.title, b.logger)
		if err := httpServer.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))
	}

	<-ctx.Done()
	cleanup()
	b.logger.Info("poolbridge stopped")
	return nil
}

// setupTargets creates a coordinator per target and performs every first
// refresh concurrently, so one unreachable controller does not hold back the
// others. A target is announced and its initial update dispatched as soon as
// its own first refresh succeeds.
//
// It returns the coordinators that succeeded, in registration order, and the
// joined errors of those that did not.
func (b *Bridge) setupTargets(ctx context.Context, st store.Store) ([]*Coordinator, error) {
	ready := make([]*Coordinator, len(b.targets))
	errs := make([]error, len(b.targets))

	var (
		wg         sync.WaitGroup
		dispatchMu sync.Mutex
	)
	for i, cfg := range b.targets {
		wg.Add(1)
		go func() {
			defer wg.Done()

			c := NewCoordinator(cfg, WithCoordinatorLogger(b.logger))
			if err := c.FirstRefresh(ctx); err != nil {
				c.Close()
				b.logger.Error("target setup failed",
					"target", cfg.Name(),
					"url", cfg.URL(),
					"code", SetupErrorCode(err),
					"error", err,
				)
				errs[i] = err
				return
			}
			b.logger.Info("target ready",
				"target", cfg.Name(),
				"url", cfg.URL(),
				"poll_interval", cfg.PollInterval().String(),
			)
			ready[i] = c

			dispatchMu.Lock()
			defer dispatchMu.Unlock()
			b.activate(ctx, st, c)
		}()
	}
	wg.Wait()

	var active []*Coordinator
	for _, c := range ready {
		if c != nil {
			active = append(active, c)
		}
	}
	return active, errors.Join(errs...)
}

// activate announces a freshly set up target and dispatches the state from
// its first refresh.
func (b *Bridge) activate(ctx context.Context, st store.Store, c *Coordinator) {
	if b.publisher != nil {
		if err := b.publisher.Announce(ctx, c.Config(), b.fields); err != nil {
			b.logger.Warn("announce failed", "target", c.Config().Name(), "error", err)
		}
	}
	out, _ := c.LastOutcome()
	b.dispatch(ctx, st, b.newTargetUpdate(c, out))
}

// task wraps a coordinator refresh as a scheduler task producing updates.
func (b *Bridge) task(c *Coordinator) poller.Task[TargetUpdate] {
	return poller.Task[TargetUpdate]{
		Name:     c.Config().Name(),
		Interval: c.Config().PollInterval(),
		Run: func(ctx context.Context) TargetUpdate {
			out := c.Refresh(ctx)
			if out.Reason == ReasonCanceled {
				return TargetUpdate{Target: c.Config(), Outcome: out}
			}
			return b.newTargetUpdate(c, out)
		},
	}
}

// newTargetUpdate evaluates every field against the coordinator's current
// snapshot.
func (b *Bridge) newTargetUpdate(c *Coordinator, out Outcome) TargetUpdate {
	doc, ok := c.Snapshot()
	readings := make([]ReadingValue, len(b.fields))
	for i, f := range b.fields {
		readings[i] = evaluateField(f, doc, ok)
	}
	return TargetUpdate{
		Target:    c.Config(),
		State:     c.State(),
		Available: ok,
		Outcome:   out,
		Readings:  readings,
	}
}

// dispatch fans one update out to the store, the publisher and callbacks,
// in that order. Only called from one goroutine at a time.
func (b *Bridge) dispatch(ctx context.Context, st store.Store, update TargetUpdate) {
	st.Update(toTargetStatus(update))

	if b.publisher != nil {
		if err := b.publisher.Publish(ctx, update); err != nil {
			b.logger.Warn("publish failed", "target", update.Target.Name(), "error", err)
		}
	}

	for _, cb := range b.updateCallbacks {
		invokeCallbackSafe(cb, update, b.logger)
	}
}

// Targets returns a copy of the configured targets.
func (b *Bridge) Targets() []TargetConfig {
	cp := make([]TargetConfig, len(b.targets))
	copy(cp, b.targets)
	return cp
}

// Fields returns a copy of the configured fields.
func (b *Bridge) Fields() []Field {
	cp := make([]Field, len(b.fields))
	copy(cp, b.fields)
	return cp
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Bridge) Port() int {
	return b.port
}

// toTargetStatus converts an update to its storage representation.
func toTargetStatus(u TargetUpdate) store.TargetStatus {
	var errStr *string
	if !u.Outcome.OK() {
		s := u.Outcome.Message
		errStr = &s
	}

	readings := make([]store.Reading, len(u.Readings))
	for i, rv := range u.Readings {
		readings[i] = store.Reading{
			Key:         rv.Field.Key(),
			Name:        rv.Field.Name(),
			Present:     rv.Present,
			Unit:        rv.Field.Unit(),
			DeviceClass: rv.Field.DeviceClass(),
			StateClass:  rv.Field.StateClass(),
			Icon:        rv.Field.Icon(),
			Attributes:  attributesInterface(rv.Attributes),
		}
		if rv.Present {
			readings[i].Value = rv.Value.Interface()
		}
	}

	return store.TargetStatus{
		Name:           u.Target.Name(),
		ID:             u.Target.ID(),
		URL:            u.Target.URL(),
		State:          u.State.String(),
		Available:      u.Available,
		Reason:         u.Outcome.Reason.String(),
		StatusCode:     u.Outcome.StatusCode,
		ResponseTimeMs: u.Outcome.Latency.Milliseconds(),
		CheckedAt:      checkedAt(u.Outcome),
		Error:          errStr,
		Readings:       readings,
	}
}

func attributesInterface(attrs map[string]Value) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for name, v := range attrs {
		out[name] = v.Interface()
	}
	return out
}

func checkedAt(out Outcome) time.Time {
	if out.CheckedAt.IsZero() {
		return time.Now()
	}
	return out.CheckedAt
}

// invokeCallbackSafe calls an update callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(TargetUpdate), update TargetUpdate, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("update callback panicked",
				"panic", r,
				"target", update.Target.Name(),
			)
		}
	}()
	cb(update)
}
