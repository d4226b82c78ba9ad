package poolbridge

import "strings"

// Reading is one field of one target, evaluated on demand against the
// target's latest snapshot. A Reading holds no state of its own.
type Reading struct {
	target Target
	field  Field
}

// NewReading binds field to target.
func NewReading(target Target, field Field) Reading {
	return Reading{target: target, field: field}
}

// NewReadings binds every field to target, preserving field order.
func NewReadings(target Target, fields []Field) []Reading {
	readings := make([]Reading, len(fields))
	for i, f := range fields {
		readings[i] = NewReading(target, f)
	}
	return readings
}

// Field returns the field definition.
func (r Reading) Field() Field {
	return r.field
}

// Target returns the target the reading belongs to.
func (r Reading) Target() Target {
	return r.target
}

// ID returns "<target id>/<field key>".
func (r Reading) ID() string {
	return r.target.Config().ID() + "/" + r.field.key
}

// UniqueID returns "<target>_<field key>" with the target ID reduced to
// [a-z0-9_], suitable for host entity registries and topic names.
func (r Reading) UniqueID() string {
	return NodeID(r.target.Config()) + "_" + r.field.key
}

// Value returns the primary value from the latest snapshot. The second
// result is false when there is no snapshot or the path is absent.
func (r Reading) Value() (Value, bool) {
	doc, ok := r.target.Snapshot()
	if !ok {
		return Value{}, false
	}
	return r.field.Extract(doc)
}

// Attributes returns the resolved attributes from the latest snapshot, or
// nil when there is no snapshot or none resolve.
func (r Reading) Attributes() map[string]Value {
	doc, ok := r.target.Snapshot()
	if !ok {
		return nil
	}
	return r.field.ExtractAttributes(doc)
}

// Available reports whether the target has ever produced a snapshot.
// A reading whose path is absent is still available; its value is unknown.
func (r Reading) Available() bool {
	_, ok := r.target.Snapshot()
	return ok
}

// Evaluate captures the reading against a single snapshot so that value
// and attributes are guaranteed to come from the same document.
func (r Reading) Evaluate() ReadingValue {
	doc, ok := r.target.Snapshot()
	return evaluateField(r.field, doc, ok)
}

// ReadingValue is a point-in-time evaluation of a [Reading].
type ReadingValue struct {
	// Field is the evaluated field definition.
	Field Field

	// Value is the primary value. Meaningful only if Present.
	Value Value

	// Present is false when the path did not resolve or there is no snapshot.
	Present bool

	// Attributes are the resolved attributes, nil if none.
	Attributes map[string]Value
}

func evaluateField(f Field, doc Value, hasSnapshot bool) ReadingValue {
	rv := ReadingValue{Field: f}
	if !hasSnapshot {
		return rv
	}
	rv.Value, rv.Present = f.Extract(doc)
	rv.Attributes = f.ExtractAttributes(doc)
	return rv
}

// NodeID reduces a target's ID to lowercase [a-z0-9_], e.g.
// "192.168.1.52:11000/api/v1/pool/info" becomes
// "192_168_1_52_11000_api_v1_pool_info".
func NodeID(cfg TargetConfig) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(cfg.ID()) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
