package poolbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/poolbridge/internal/store"
)

// recorder collects updates delivered to a callback.
type recorder struct {
	mu      sync.Mutex
	updates []TargetUpdate
	notify  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 100)}
}

func (r *recorder) callback(u TargetUpdate) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *recorder) all() []TargetUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TargetUpdate(nil), r.updates...)
}

// waitFor blocks until at least n updates have arrived.
func (r *recorder) waitFor(t *testing.T, n int) []TargetUpdate {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if got := r.all(); len(got) >= n {
			return got
		}
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timeout waiting for %d updates, got %d", n, len(r.all()))
		}
	}
}

// fakePublisher records announcements and updates.
type fakePublisher struct {
	mu         sync.Mutex
	announced  []string
	fieldCount int
	published  atomic.Int32
	err        error
}

func (p *fakePublisher) Announce(ctx context.Context, target TargetConfig, fields []Field) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.announced = append(p.announced, target.Name())
	p.fieldCount = len(fields)
	return p.err
}

func (p *fakePublisher) Publish(ctx context.Context, update TargetUpdate) error {
	p.published.Add(1)
	return p.err
}

// runBridge starts b in the background and returns a stop function that
// cancels it and returns Start's error.
func runBridge(t *testing.T, b *Bridge) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Start(ctx)
	}()

	var once sync.Once
	var err error
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case err = <-done:
			case <-time.After(5 * time.Second):
				err = errors.New("Start() did not return after cancellation")
			}
		})
		return err
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func namedTarget(serverURL, name string, interval time.Duration) TargetConfig {
	cfg := testTarget(serverURL, interval)
	cfg.name = name
	return cfg
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer func() { _ = ln.Close() }()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestNew_Defaults(t *testing.T) {
	b, err := New(WithTarget(MustTargetConfig(DefaultHost)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if b.Port() != 8080 {
		t.Errorf("Port() = %d, want 8080", b.Port())
	}
	if len(b.Fields()) != len(PoolFields()) {
		t.Errorf("Fields() has %d entries, want the pool table", len(b.Fields()))
	}
	if len(b.Targets()) != 1 {
		t.Errorf("Targets() has %d entries, want 1", len(b.Targets()))
	}
}

func TestNew_Validation(t *testing.T) {
	a := MustTargetConfig("10.0.0.1:11000", WithName("A"))
	aAgain := MustTargetConfig("10.0.0.1:11000", WithName("A2"))
	sameName := MustTargetConfig("10.0.0.2:11000", WithName("A"))
	ph := MustField("ph", "pH", MustPath("state", "metrics", "ph"))

	tests := []struct {
		name    string
		opts    []Option
		wantErr string
		is      error
	}{
		{"no targets", nil, "at least one target", nil},
		{"duplicate host and path", []Option{WithTargets(a, aAgain)}, "already configured", ErrDuplicateTarget},
		{"duplicate name", []Option{WithTarget(a), WithTarget(sameName)}, "duplicate target name", nil},
		{"port zero", []Option{WithTarget(a), WithPort(0)}, "port must be between", nil},
		{"port too large", []Option{WithTarget(a), WithPort(70000)}, "port must be between", nil},
		{"nil logger", []Option{WithTarget(a), WithLogger(nil)}, "logger cannot be nil", nil},
		{"nil publisher", []Option{WithTarget(a), WithPublisher(nil)}, "publisher cannot be nil", nil},
		{"no fields", []Option{WithTarget(a), WithFields()}, "at least one field", nil},
		{"duplicate fields", []Option{WithTarget(a), WithFields(ph, ph)}, "duplicate field key", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if err == nil {
				t.Fatal("New() should return error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestNew_AccessorsReturnCopies(t *testing.T) {
	b, err := New(WithTarget(MustTargetConfig(DefaultHost)), WithPort(9090))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	targets := b.Targets()
	targets[0] = MustTargetConfig("other:1")
	if b.Targets()[0].Host() != DefaultHost {
		t.Error("Targets() should return a copy")
	}

	fields := b.Fields()
	fields[0] = MustField("other", "Other", MustPath("x"))
	if b.Fields()[0].Key() == "other" {
		t.Error("Fields() should return a copy")
	}

	if b.Port() != 9090 {
		t.Errorf("Port() = %d, want 9090", b.Port())
	}
}

func TestWithUpdateCallback_NilIgnored(t *testing.T) {
	b, err := New(WithTarget(MustTargetConfig(DefaultHost)), WithUpdateCallback(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(b.updateCallbacks) != 0 {
		t.Errorf("nil callback should not be registered, got %d", len(b.updateCallbacks))
	}
}

func TestStart_ReturnsImmediatelyIfContextAlreadyCancelled(t *testing.T) {
	srv, calls := sequenceServer(t, respondJSON(poolInfoJSON))

	b, err := New(WithTarget(testTarget(srv.URL, time.Hour)), WithHTTPDisabled(), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Start(ctx); err != nil {
		t.Errorf("Start() error = %v, want nil", err)
	}
	if calls.Load() != 0 {
		t.Errorf("server saw %d requests, want none", calls.Load())
	}
}

func TestStart_BlocksUntilContextCancelled(t *testing.T) {
	srv, _ := sequenceServer(t, respondJSON(poolInfoJSON))
	rec := newRecorder()

	b, err := New(
		WithTarget(testTarget(srv.URL, time.Hour)),
		WithHTTPDisabled(),
		WithLogger(testLogger()),
		WithUpdateCallback(rec.callback),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Start(ctx)
	}()

	rec.waitFor(t, 1)

	select {
	case err := <-done:
		t.Fatalf("Start() returned early with error: %v", err)
	default:
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

func TestStart_AllTargetsFailSetup(t *testing.T) {
	srv, _ := sequenceServer(t, respondStatus(http.StatusInternalServerError))
	other, _ := sequenceServer(t, respondJSON(`not json`))

	b, err := New(
		WithTargets(namedTarget(srv.URL, "Broken", time.Hour), namedTarget(other.URL, "Garbled", time.Hour)),
		WithHTTPDisabled(),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = b.Start(ctx)
	if err == nil {
		t.Fatal("Start() should fail when no target can be set up")
	}
	if !errors.Is(err, ErrSetupFailed) {
		t.Errorf("error = %v, want ErrSetupFailed", err)
	}
	if !errors.Is(err, ErrCannotConnect) || !errors.Is(err, ErrUnknown) {
		t.Errorf("error = %v, want both setup classifications joined", err)
	}
	if !strings.Contains(err.Error(), "Broken") || !strings.Contains(err.Error(), "Garbled") {
		t.Errorf("error should name both targets, got %q", err.Error())
	}
}

func TestStart_PartialSetupFailureSkipsTarget(t *testing.T) {
	good, _ := sequenceServer(t, respondJSON(poolInfoJSON))
	bad, _ := sequenceServer(t, respondStatus(http.StatusInternalServerError))
	rec := newRecorder()
	pub := &fakePublisher{}

	b, err := New(
		WithTargets(namedTarget(good.URL, "Good", 20*time.Millisecond), namedTarget(bad.URL, "Bad", 20*time.Millisecond)),
		WithHTTPDisabled(),
		WithLogger(testLogger()),
		WithPublisher(pub),
		WithUpdateCallback(rec.callback),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runBridge(t, b)
	updates := rec.waitFor(t, 3)
	if err := stop(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, u := range updates {
		if u.Target.Name() != "Good" {
			t.Errorf("update for %q, only Good should be active", u.Target.Name())
		}
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.announced) != 1 || pub.announced[0] != "Good" {
		t.Errorf("announced = %v, want [Good]", pub.announced)
	}
}

func TestStart_SlowTargetDoesNotDelayOthers(t *testing.T) {
	slow, _ := sequenceServer(t, respondSlow(2*time.Second, poolInfoJSON))
	fast, _ := sequenceServer(t, respondJSON(poolInfoJSON))
	rec := newRecorder()

	// the slow target is registered first
	b, err := New(
		WithTargets(namedTarget(slow.URL, "Slow", time.Hour), namedTarget(fast.URL, "Fast", time.Hour)),
		WithHTTPDisabled(),
		WithLogger(testLogger()),
		WithUpdateCallback(rec.callback),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	runBridge(t, b)
	first := rec.waitFor(t, 1)[0]
	elapsed := time.Since(start)

	if first.Target.Name() != "Fast" {
		t.Errorf("first update for %q, want Fast", first.Target.Name())
	}
	if elapsed > time.Second {
		t.Errorf("first update after %v, want it before the slow target answers", elapsed)
	}
}

func TestStart_FirstUpdateCarriesReadings(t *testing.T) {
	srv, _ := sequenceServer(t, respondJSON(poolInfoJSON))
	rec := newRecorder()

	b, err := New(
		WithTarget(testTarget(srv.URL, time.Hour)),
		WithHTTPDisabled(),
		WithLogger(testLogger()),
		WithUpdateCallback(rec.callback),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	runBridge(t, b)
	u := rec.waitFor(t, 1)[0]

	if u.State != StateReady || !u.Available || !u.Outcome.OK() {
		t.Errorf("first update state=%v available=%v reason=%v", u.State, u.Available, u.Outcome.Reason)
	}
	if len(u.Readings) != len(PoolFields()) {
		t.Fatalf("got %d readings, want %d", len(u.Readings), len(PoolFields()))
	}

	byKey := make(map[string]ReadingValue)
	for _, rv := range u.Readings {
		byKey[rv.Field.Key()] = rv
	}
	if rpm := byKey["pump_rpm"]; !rpm.Present || !rpm.Value.Equal(Number(1450)) {
		t.Errorf("pump_rpm = %v (present=%v)", rpm.Value, rpm.Present)
	}
	if ph := byKey["ph"]; len(ph.Attributes) != 2 {
		t.Errorf("ph attributes = %v", ph.Attributes)
	}
}

func TestStart_DegradedUpdateKeepsReadings(t *testing.T) {
	srv, _ := sequenceServer(t, respondJSON(poolInfoJSON), respondStatus(http.StatusBadGateway))
	rec := newRecorder()

	b, err := New(
		WithTarget(testTarget(srv.URL, 20*time.Millisecond)),
		WithHTTPDisabled(),
		WithLogger(testLogger()),
		WithUpdateCallback(rec.callback),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	runBridge(t, b)
	u := rec.waitFor(t, 2)[1]

	if u.State != StateDegraded {
		t.Errorf("State = %v, want degraded", u.State)
	}
	if !u.Available {
		t.Error("Available should stay true while degraded")
	}
	if u.Outcome.Reason != ReasonHTTPStatus || u.Outcome.StatusCode != http.StatusBadGateway {
		t.Errorf("Outcome = %v %d", u.Outcome.Reason, u.Outcome.StatusCode)
	}
	for _, rv := range u.Readings {
		if !rv.Present {
			t.Errorf("%s should still be present from the last snapshot", rv.Field.Key())
		}
	}
}

func TestStart_TargetsPolledIndependently(t *testing.T) {
	fast, fastCalls := sequenceServer(t, respondJSON(poolInfoJSON))
	slow, slowCalls := sequenceServer(t, respondJSON(poolInfoJSON))

	b, err := New(
		WithTargets(namedTarget(fast.URL, "Fast", 20*time.Millisecond), namedTarget(slow.URL, "Slow", time.Hour)),
		WithHTTPDisabled(),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runBridge(t, b)
	time.Sleep(200 * time.Millisecond)
	if err := stop(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if fastCalls.Load() < 3 {
		t.Errorf("fast target polled %d times, want several", fastCalls.Load())
	}
	if slowCalls.Load() != 1 {
		t.Errorf("slow target polled %d times, want only the setup request", slowCalls.Load())
	}
}

func TestStart_CallbackPanicIsRecovered(t *testing.T) {
	srv, _ := sequenceServer(t, respondJSON(poolInfoJSON))
	rec := newRecorder()

	b, err := New(
		WithTarget(testTarget(srv.URL, 20*time.Millisecond)),
		WithHTTPDisabled(),
		WithLogger(testLogger()),
		WithUpdateCallback(func(TargetUpdate) { panic("callback bug") }),
		WithUpdateCallback(rec.callback),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runBridge(t, b)
	rec.waitFor(t, 3)
	if err := stop(); err != nil {
		t.Errorf("Start() error = %v", err)
	}
}

func TestStart_CallbacksRunInRegistrationOrder(t *testing.T) {
	srv, _ := sequenceServer(t, respondJSON(poolInfoJSON))

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})
	var once sync.Once

	b, err := New(
		WithTarget(testTarget(srv.URL, time.Hour)),
		WithHTTPDisabled(),
		WithLogger(testLogger()),
		WithUpdateCallback(func(TargetUpdate) {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
		}),
		WithUpdateCallback(func(TargetUpdate) {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			once.Do(func() { close(done) })
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	runBridge(t, b)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callbacks not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) < 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v, want [first second]", order)
	}
}

func TestStart_PublisherErrorsDoNotStopPolling(t *testing.T) {
	srv, _ := sequenceServer(t, respondJSON(poolInfoJSON))
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	rec := newRecorder()

	b, err := New(
		WithTarget(testTarget(srv.URL, 20*time.Millisecond)),
		WithHTTPDisabled(),
		WithLogger(testLogger()),
		WithPublisher(pub),
		WithUpdateCallback(rec.callback),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runBridge(t, b)
	rec.waitFor(t, 3)
	if err := stop(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if pub.published.Load() < 3 {
		t.Errorf("Publish called %d times, want every update", pub.published.Load())
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.fieldCount != len(PoolFields()) {
		t.Errorf("Announce got %d fields, want %d", pub.fieldCount, len(PoolFields()))
	}
}

func TestStart_ServesTargetsAPI(t *testing.T) {
	srv, _ := sequenceServer(t, respondJSON(poolInfoJSON))
	port := freePort(t)

	b, err := New(
		WithTarget(namedTarget(srv.URL, "Back Garden", time.Hour)),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	runBridge(t, b)

	var body []byte
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/targets/Back%%20Garden", port))
		if err == nil {
			body, _ = io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}

	var status store.TargetStatus
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("failed to decode %q: %v", body, err)
	}
	if status.Name != "Back Garden" || status.State != "ready" {
		t.Errorf("status = %q %q", status.Name, status.State)
	}
	if len(status.Readings) != len(PoolFields()) {
		t.Errorf("got %d readings, want %d", len(status.Readings), len(PoolFields()))
	}
}

func TestStart_PortInUse(t *testing.T) {
	srv, _ := sequenceServer(t, respondJSON(poolInfoJSON))

	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer func() { _ = ln.Close() }()

	b, err := New(
		WithTarget(testTarget(srv.URL, time.Hour)),
		WithPort(ln.Addr().(*net.TCPAddr).Port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = b.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "failed to start HTTP server") {
		t.Errorf("Start() error = %v, want HTTP server error", err)
	}
}

func TestToTargetStatus(t *testing.T) {
	cfg := MustTargetConfig(DefaultHost, WithName("Pool"))
	ph := MustField("ph", "pH", MustPath("state", "metrics", "ph"),
		WithAttribute("alarm_min", MustPath("state", "metrics", "phAlarmLimits", 0)))
	orp := MustField("orp", "ORP", MustPath("state", "metrics", "orp"), WithUnit("mV"))
	doc := MustParseDocument(`{"state":{"metrics":{"ph":7.2,"phAlarmLimits":[6.8]}}}`)

	u := TargetUpdate{
		Target:    cfg,
		State:     StateDegraded,
		Available: true,
		Outcome: Outcome{
			Reason:     ReasonHTTPStatus,
			StatusCode: 500,
			Message:    "HTTP error 500",
			Latency:    42 * time.Millisecond,
			CheckedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		Readings: []ReadingValue{evaluateField(ph, doc, true), evaluateField(orp, doc, true)},
	}

	got := toTargetStatus(u)

	if got.Name != "Pool" || got.ID != cfg.ID() || got.URL != cfg.URL() {
		t.Errorf("identity = %q %q %q", got.Name, got.ID, got.URL)
	}
	if got.State != "degraded" || got.Reason != "http_status" || got.StatusCode != 500 {
		t.Errorf("state = %q reason = %q code = %d", got.State, got.Reason, got.StatusCode)
	}
	if got.ResponseTimeMs != 42 {
		t.Errorf("ResponseTimeMs = %d, want 42", got.ResponseTimeMs)
	}
	if got.Error == nil || *got.Error != "HTTP error 500" {
		t.Errorf("Error = %v", got.Error)
	}

	if got.Readings[0].Value != json.Number("7.2") || !got.Readings[0].Present {
		t.Errorf("ph reading = %+v", got.Readings[0])
	}
	if got.Readings[0].Attributes["alarm_min"] != json.Number("6.8") {
		t.Errorf("ph attributes = %v", got.Readings[0].Attributes)
	}
	if got.Readings[1].Value != nil || got.Readings[1].Present {
		t.Errorf("orp reading = %+v, want absent", got.Readings[1])
	}
	if got.Readings[1].Unit != "mV" {
		t.Errorf("orp unit = %q", got.Readings[1].Unit)
	}
}

func TestToTargetStatus_SuccessHasNoError(t *testing.T) {
	got := toTargetStatus(TargetUpdate{
		Target:  MustTargetConfig(DefaultHost),
		State:   StateReady,
		Outcome: Outcome{Reason: ReasonNone},
	})
	if got.Error != nil {
		t.Errorf("Error = %q, want nil", *got.Error)
	}
	if got.CheckedAt.IsZero() {
		t.Error("CheckedAt should default to now")
	}
}
