package poolbridge

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParseDocument_Object(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"state":{"temperature":{"value":26.5,"unit":"C"},"on":true,"pumps":[{"rpm":1450}],"note":null}}`))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	if doc.Kind() != KindMapping {
		t.Fatalf("Kind() = %v, want mapping", doc.Kind())
	}

	state, ok := doc.Get("state")
	if !ok {
		t.Fatal("state key not found")
	}
	if got := state.Keys(); strings.Join(got, ",") != "note,on,pumps,temperature" {
		t.Errorf("Keys() = %v, want sorted keys", got)
	}

	temp, _ := state.Get("temperature")
	value, _ := temp.Get("value")
	if n, ok := value.AsNumber(); !ok || n != 26.5 {
		t.Errorf("temperature.value = %v, %v; want 26.5, true", n, ok)
	}

	on, _ := state.Get("on")
	if b, ok := on.AsBool(); !ok || !b {
		t.Errorf("on = %v, %v; want true, true", b, ok)
	}

	note, ok := state.Get("note")
	if !ok || !note.IsNull() {
		t.Errorf("note should be present and null, got %v (present=%v)", note.Kind(), ok)
	}

	pumps, _ := state.Get("pumps")
	if pumps.Len() != 1 {
		t.Errorf("pumps.Len() = %d, want 1", pumps.Len())
	}
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed", `{"state":`},
		{"top-level array", `[1,2,3]`},
		{"top-level string", `"ok"`},
		{"top-level number", `42`},
		{"top-level null", `null`},
		{"trailing data", `{"a":1} {"b":2}`},
		{"html error page", `<html><body>Internal Server Error</body></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.body))
			if err == nil {
				t.Fatal("ParseDocument() should return error")
			}
			if !errors.Is(err, ErrParse) {
				t.Errorf("error should wrap ErrParse, got: %v", err)
			}
		})
	}
}

func TestParseDocument_TrailingWhitespace(t *testing.T) {
	if _, err := ParseDocument([]byte("{\"a\":1}\n\n  ")); err != nil {
		t.Errorf("trailing whitespace should be accepted, got: %v", err)
	}
}

func TestParseDocument_LargeIntegersKeepPrecision(t *testing.T) {
	// 2^53 + 1 has no exact float64 representation.
	doc := MustParseDocument(`{"energy":9007199254740993}`)
	v, _ := doc.Get("energy")
	if text, ok := v.NumberText(); !ok || text != "9007199254740993" {
		t.Errorf("NumberText() = %q, %v, want 9007199254740993", text, ok)
	}
	if v.Equal(Number(9007199254740992)) {
		t.Error("9007199254740993 should not equal 9007199254740992")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"energy":9007199254740993}` {
		t.Errorf("Marshal() = %s, want {\"energy\":9007199254740993}", data)
	}

	data, err = json.Marshal(v.Interface())
	if err != nil {
		t.Fatalf("Marshal(Interface()) error = %v", err)
	}
	if string(data) != "9007199254740993" {
		t.Errorf("Marshal(Interface()) = %s, want 9007199254740993", data)
	}
}

func TestParseDocument_NumberOutOfFloatRange(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"state":{"x":1e400}}`))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	v, ok := doc.Get("state")
	if !ok {
		t.Fatal("state missing")
	}
	x, _ := v.Get("x")
	if x.Kind() != KindNumber || x.String() != "1e400" {
		t.Errorf("x = %v (%v), want number 1e400", x, x.Kind())
	}
	if n, ok := x.AsNumber(); !ok || !math.IsInf(n, 1) {
		t.Errorf("AsNumber() = %v, %v, want +Inf", n, ok)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"state":{"x":1e400}}` {
		t.Errorf("Marshal() = %s", data)
	}
}

func TestValue_NumberEqualByValue(t *testing.T) {
	doc := MustParseDocument(`{"a":7.20,"b":1450,"c":1.45e3}`)
	a, _ := doc.Get("a")
	b, _ := doc.Get("b")
	c, _ := doc.Get("c")
	if !a.Equal(Number(7.2)) {
		t.Error("7.20 should equal 7.2")
	}
	if !b.Equal(Number(1450)) || !b.Equal(c) {
		t.Error("1450 should equal 1.45e3")
	}
	if a.Equal(b) {
		t.Error("7.20 should not equal 1450")
	}
}

func TestNumberLiteral(t *testing.T) {
	for _, text := range []string{"0", "-1", "7.25", "1e400", "-2.5E-3"} {
		v, err := NumberLiteral(text)
		if err != nil {
			t.Errorf("NumberLiteral(%q) error = %v", text, err)
			continue
		}
		if got, _ := v.NumberText(); got != text {
			t.Errorf("NumberLiteral(%q).NumberText() = %q", text, got)
		}
	}
	for _, text := range []string{"", "NaN", "Inf", "0x10", "01", "1.", " 1", "1 ", `"1"`} {
		if _, err := NumberLiteral(text); err == nil {
			t.Errorf("NumberLiteral(%q) should fail", text)
		}
	}
}

func TestMustParseDocument_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustParseDocument() should panic on invalid input")
		}
	}()
	MustParseDocument(`[]`)
}

func TestValue_Accessors_WrongKind(t *testing.T) {
	s := String("7.2")
	if _, ok := s.AsNumber(); ok {
		t.Error("AsNumber() on string should report false")
	}
	if _, ok := s.AsBool(); ok {
		t.Error("AsBool() on string should report false")
	}
	if _, ok := s.Get("x"); ok {
		t.Error("Get() on string should report false")
	}
	if _, ok := s.Index(0); ok {
		t.Error("Index() on string should report false")
	}
	if s.Keys() != nil {
		t.Error("Keys() on string should be nil")
	}
	if s.Len() != 0 {
		t.Error("Len() on string should be 0")
	}
}

func TestValue_Index_Bounds(t *testing.T) {
	seq := Sequence(Number(1), Number(2))

	tests := []struct {
		i  int
		ok bool
	}{
		{0, true},
		{1, true},
		{2, false},
		{-1, false},
	}
	for _, tt := range tests {
		if _, ok := seq.Index(tt.i); ok != tt.ok {
			t.Errorf("Index(%d) ok = %v, want %v", tt.i, ok, tt.ok)
		}
	}
}

func TestValue_ConstructorsCopyInputs(t *testing.T) {
	items := []Value{Number(1)}
	seq := Sequence(items...)
	items[0] = Number(99)
	if v, _ := seq.Index(0); !v.Equal(Number(1)) {
		t.Errorf("Sequence should copy its input, got %v", v)
	}

	m := map[string]Value{"a": Number(1)}
	mapping := Mapping(m)
	m["a"] = Number(99)
	m["b"] = Number(2)
	if mapping.Len() != 1 {
		t.Errorf("Mapping should copy its input, Len() = %d", mapping.Len())
	}
}

func TestValue_Equal(t *testing.T) {
	a := MustParseDocument(`{"x":[1,{"y":"z"}],"n":null}`)
	b := MustParseDocument(`{"n":null,"x":[1,{"y":"z"}]}`)
	c := MustParseDocument(`{"x":[1,{"y":"w"}],"n":null}`)

	if !a.Equal(b) {
		t.Error("documents differing only in key order should be equal")
	}
	if a.Equal(c) {
		t.Error("documents with different leaves should not be equal")
	}
	if Number(0).Equal(Bool(false)) {
		t.Error("values of different kinds should not be equal")
	}
	if !Null().Equal(Value{}) {
		t.Error("zero Value should equal Null()")
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), "null"},
		{"true", Bool(true), "true"},
		{"integer", Number(1450), "1450"},
		{"decimal", Number(7.25), "7.25"},
		{"string", String("°C"), "°C"},
		{"sequence", Sequence(Number(6.8), Number(7.8)), "[6.8,7.8]"},
		{"mapping", Mapping(map[string]Value{"a": Bool(false)}), `{"a":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	doc := MustParseDocument(`{"a":[1,true,null,"s"]}`)
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"a":[1,true,null,"s"]}` {
		t.Errorf("Marshal() = %s", data)
	}
}

func TestValueOf(t *testing.T) {
	v, err := ValueOf(map[string]any{
		"n":   3,
		"f":   float32(1.5),
		"i64": int64(7),
		"seq": []any{"x", nil},
	})
	if err != nil {
		t.Fatalf("ValueOf() error = %v", err)
	}
	want := Mapping(map[string]Value{
		"n":   Number(3),
		"f":   Number(1.5),
		"i64": Number(7),
		"seq": Sequence(String("x"), Null()),
	})
	if !v.Equal(want) {
		t.Errorf("ValueOf() = %v, want %v", v, want)
	}

	if _, err := ValueOf(struct{}{}); err == nil {
		t.Error("ValueOf() should reject unsupported types")
	}
}

func TestKind_String(t *testing.T) {
	if KindSequence.String() != "sequence" {
		t.Errorf("KindSequence.String() = %q", KindSequence.String())
	}
	if Kind(42).String() != "kind(42)" {
		t.Errorf("Kind(42).String() = %q", Kind(42).String())
	}
}
