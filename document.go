package poolbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"sort"
	"strconv"
)

// Kind identifies which variant a [Value] holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one node of a parsed JSON document.
//
// Value is immutable: constructors copy their inputs and accessors never
// expose internal slices or maps. This makes a snapshot safe to share between
// the polling goroutine and any number of readers without locking.
//
// Numbers keep the literal text they were decoded from, so integers wider
// than a float64 mantissa and exponents outside its range survive a round
// trip unchanged.
//
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	num  string
	s    string
	seq  []Value
	m    map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: formatNumber(n)} }

// NumberLiteral returns a number holding the JSON number literal text
// verbatim. It fails if text is not a valid JSON number.
func NumberLiteral(text string) (Value, error) {
	if !isNumberLiteral(text) {
		return Value{}, fmt.Errorf("invalid number %q", text)
	}
	return Value{kind: KindNumber, num: text}, nil
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Sequence returns an ordered sequence of values.
func Sequence(items ...Value) Value {
	seq := make([]Value, len(items))
	copy(seq, items)
	return Value{kind: KindSequence, seq: seq}
}

// Mapping returns a key/value mapping. The map is copied.
func Mapping(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMapping, m: cp}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsNumber returns the number held by v as a float64. Literals beyond the
// float64 range report ±Inf and wide integers are rounded; use
// [Value.NumberText] for the exact literal.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, _ := strconv.ParseFloat(v.num, 64)
	return f, true
}

// NumberText returns the literal text of the number held by v.
func (v Value) NumberText() (string, bool) {
	return v.num, v.kind == KindNumber
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// Len returns the number of elements of a sequence or entries of a mapping.
// It returns 0 for every other kind.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.m)
	default:
		return 0
	}
}

// Get returns the entry stored under key when v is a mapping.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	item, ok := v.m[key]
	return item, ok
}

// Index returns the i-th element when v is a sequence long enough to hold it.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindSequence || i < 0 || i >= len(v.seq) {
		return Value{}, false
	}
	return v.seq[i], true
}

// Keys returns the sorted keys of a mapping, or nil for any other kind.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface converts v into plain Go values: nil, bool, [json.Number],
// string, []any and map[string]any. Numbers are returned as their literal
// text so that encoding the result with encoding/json reproduces them
// exactly. The result is freshly allocated.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.num)
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether v and other are structurally identical. Numbers
// compare by value, so 7.2 equals 7.20.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return numberEqual(v.num, other.num)
	case KindString:
		return v.s == other.s
	case KindSequence:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, item := range v.m {
			o, ok := other.m[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders v for display. Strings are returned verbatim, numbers use
// their literal text, containers are rendered as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return v.num
	case KindString:
		return v.s
	default:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}
		return string(data)
	}
}

// MarshalJSON encodes v as the JSON it was parsed from (modulo key order
// and whitespace).
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// ValueOf converts decoded JSON (as produced by encoding/json into an any)
// into a [Value]. Integer types are accepted for convenience.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		return NumberLiteral(t.String())
	case string:
		return String(t), nil
	case []any:
		seq := make([]Value, len(t))
		for i, item := range t {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			seq[i] = v
		}
		return Value{kind: KindSequence, seq: seq}, nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Value{kind: KindMapping, m: m}, nil
	default:
		return Value{}, fmt.Errorf("unsupported document type %T", x)
	}
}

// ParseDocument parses a response body into a snapshot document.
//
// The body must hold exactly one JSON object. Any other top-level value,
// malformed JSON, or trailing data is rejected with an error wrapping
// [ErrParse].
func ParseDocument(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("%w: unexpected data after JSON document", ErrParse)
	}
	if _, ok := raw.(map[string]any); !ok {
		return Value{}, fmt.Errorf("%w: expected a JSON object, got %T", ErrParse, raw)
	}

	doc, err := ValueOf(raw)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return doc, nil
}

// MustParseDocument is like [ParseDocument] but panics on error.
// It is intended for fixtures and static documents.
func MustParseDocument(data string) Value {
	doc, err := ParseDocument([]byte(data))
	if err != nil {
		panic("poolbridge: " + err.Error())
	}
	return doc
}

// formatNumber renders f the way encoding/json does.
func formatNumber(f float64) string {
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	return strconv.FormatFloat(f, format, -1, 64)
}

func isNumberLiteral(text string) bool {
	if text == "" {
		return false
	}
	first, last := text[0], text[len(text)-1]
	if first != '-' && (first < '0' || first > '9') {
		return false
	}
	if last < '0' || last > '9' {
		return false
	}
	return json.Valid([]byte(text))
}

// numberPrec is wide enough to hold any integer a controller reports.
const numberPrec = 1024

func numberEqual(a, b string) bool {
	if a == b {
		return true
	}
	x, _, errA := big.ParseFloat(a, 10, numberPrec, big.ToNearestEven)
	y, _, errB := big.ParseFloat(b, 10, numberPrec, big.ToNearestEven)
	if errA != nil || errB != nil {
		return false
	}
	return x.Cmp(y) == 0
}
