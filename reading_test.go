package poolbridge

import (
	"context"
	"testing"
)

// staticTarget is a Target with a fixed snapshot.
type staticTarget struct {
	cfg  TargetConfig
	doc  Value
	has  bool
	last Outcome
}

func (s *staticTarget) Config() TargetConfig                { return s.cfg }
func (s *staticTarget) Refresh(ctx context.Context) Outcome { return s.last }
func (s *staticTarget) Snapshot() (Value, bool)             { return s.doc, s.has }
func (s *staticTarget) LastOutcome() (Outcome, bool)        { return s.last, s.has }

func newStaticTarget(doc string) *staticTarget {
	st := &staticTarget{cfg: MustTargetConfig(DefaultHost)}
	if doc != "" {
		st.doc = MustParseDocument(doc)
		st.has = true
	}
	return st
}

func fieldByKey(t *testing.T, key string) Field {
	t.Helper()
	for _, f := range PoolFields() {
		if f.Key() == key {
			return f
		}
	}
	t.Fatalf("no field %q", key)
	return Field{}
}

func TestReading_Value(t *testing.T) {
	target := newStaticTarget(poolInfoJSON)
	r := NewReading(target, fieldByKey(t, "pump_rpm"))

	v, ok := r.Value()
	if !ok || !v.Equal(Number(1450)) {
		t.Errorf("Value() = %v, %v; want 1450, true", v, ok)
	}
	if !r.Available() {
		t.Error("Available() = false with a snapshot")
	}
}

func TestReading_NoSnapshot(t *testing.T) {
	r := NewReading(newStaticTarget(""), fieldByKey(t, "ph"))

	if _, ok := r.Value(); ok {
		t.Error("Value() should be absent without a snapshot")
	}
	if r.Attributes() != nil {
		t.Error("Attributes() should be nil without a snapshot")
	}
	if r.Available() {
		t.Error("Available() = true without a snapshot")
	}

	rv := r.Evaluate()
	if rv.Present || rv.Attributes != nil {
		t.Errorf("Evaluate() = %+v, want nothing present", rv)
	}
}

// An empty state leaves every reading available but unknown.
func TestReading_EmptyState(t *testing.T) {
	target := newStaticTarget(`{"state":{}}`)

	for _, r := range NewReadings(target, PoolFields()) {
		if _, ok := r.Value(); ok {
			t.Errorf("%s: Value() should be absent", r.Field().Key())
		}
		if !r.Available() {
			t.Errorf("%s: Available() should be true", r.Field().Key())
		}
	}
}

func TestReading_MissingAlarmLimitsOmitsAttributes(t *testing.T) {
	target := newStaticTarget(`{"state":{"metrics":{"ph":7.2}}}`)
	r := NewReading(target, fieldByKey(t, "ph"))

	v, ok := r.Value()
	if !ok || !v.Equal(Number(7.2)) {
		t.Errorf("Value() = %v, %v; want 7.2, true", v, ok)
	}
	if attrs := r.Attributes(); attrs != nil {
		t.Errorf("Attributes() = %v, want nil", attrs)
	}
}

func TestReading_Attributes(t *testing.T) {
	target := newStaticTarget(poolInfoJSON)
	r := NewReading(target, fieldByKey(t, "ph"))

	attrs := r.Attributes()
	if !attrs["alarm_min"].Equal(Number(6.8)) || !attrs["alarm_max"].Equal(Number(7.8)) {
		t.Errorf("Attributes() = %v", attrs)
	}

	salinity := NewReading(target, fieldByKey(t, "salinity")).Attributes()
	if len(salinity) != 1 || !salinity["alarm_min"].Equal(Number(3.5)) {
		t.Errorf("salinity attributes = %v", salinity)
	}
}

func TestReading_Evaluate(t *testing.T) {
	target := newStaticTarget(poolInfoJSON)
	rv := NewReading(target, fieldByKey(t, "orp")).Evaluate()

	if rv.Field.Key() != "orp" {
		t.Errorf("Field.Key() = %q", rv.Field.Key())
	}
	if !rv.Present || !rv.Value.Equal(Number(720)) {
		t.Errorf("Value = %v (present=%v), want 720", rv.Value, rv.Present)
	}
	if len(rv.Attributes) != 2 {
		t.Errorf("Attributes = %v, want 2 entries", rv.Attributes)
	}
}

func TestReading_IDs(t *testing.T) {
	r := NewReading(newStaticTarget(""), fieldByKey(t, "water_temperature"))

	if got := r.ID(); got != "192.168.1.52:11000/api/v1/pool/info/water_temperature" {
		t.Errorf("ID() = %q", got)
	}
	if got := r.UniqueID(); got != "192_168_1_52_11000_api_v1_pool_info_water_temperature" {
		t.Errorf("UniqueID() = %q", got)
	}
}

func TestNodeID(t *testing.T) {
	tests := []struct {
		host string
		path string
		want string
	}{
		{"192.168.1.52:11000", "/api/v1/pool/info", "192_168_1_52_11000_api_v1_pool_info"},
		{"Pool.Local", "/", "pool_local"},
		{"pool.local:80", "/status/", "pool_local_80_status"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := MustTargetConfig(tt.host, WithPath(tt.path))
			if got := NodeID(cfg); got != tt.want {
				t.Errorf("NodeID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewReadings_KeepsFieldOrder(t *testing.T) {
	fields := PoolFields()
	readings := NewReadings(newStaticTarget(""), fields)

	if len(readings) != len(fields) {
		t.Fatalf("got %d readings, want %d", len(readings), len(fields))
	}
	for i := range fields {
		if readings[i].Field().Key() != fields[i].Key() {
			t.Errorf("reading %d = %q, want %q", i, readings[i].Field().Key(), fields[i].Key())
		}
	}
}

func TestReading_FollowsCoordinatorSnapshot(t *testing.T) {
	srv, _ := sequenceServer(t,
		respondJSON(`{"state":{"metrics":{"waterTemperature":25.0}}}`),
		respondStatus(500),
		respondJSON(`{"state":{"metrics":{"waterTemperature":26.0}}}`),
	)
	c := newTestCoordinator(t, srv.URL)
	r := NewReading(c, fieldByKey(t, "water_temperature"))

	want := []float64{25.0, 25.0, 26.0}
	for i, w := range want {
		c.Refresh(context.Background())
		v, ok := r.Value()
		if n, _ := v.AsNumber(); !ok || n != w {
			t.Errorf("poll %d: Value() = %v, %v; want %v", i+1, v, ok, w)
		}
	}
}
