package poolbridge

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// State classes understood by the host platform.
const (
	StateClassMeasurement     = "measurement"
	StateClassTotal           = "total"
	StateClassTotalIncreasing = "total_increasing"
)

var fieldKeyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Field describes one reading exposed for every target: where its value
// lives in the snapshot and how the host should present it.
//
// Field is immutable after creation via [NewField]. The attribute map is
// copied on the way in and on the way out.
type Field struct {
	key         string
	name        string
	path        Path
	unit        string
	deviceClass string
	stateClass  string
	icon        string
	attributes  map[string]Path
}

// Key returns the stable identifier of the field, e.g. "water_temperature".
func (f Field) Key() string {
	return f.key
}

// Name returns the human-readable name, e.g. "Water Temperature".
func (f Field) Name() string {
	return f.name
}

// Path returns a copy of the primary value path.
func (f Field) Path() Path {
	return copyPath(f.path)
}

// Unit returns the unit of measurement, or "" when the value is unitless.
func (f Field) Unit() string {
	return f.unit
}

// DeviceClass returns the host device class, or "".
func (f Field) DeviceClass() string {
	return f.deviceClass
}

// StateClass returns the measurement kind, or "".
func (f Field) StateClass() string {
	return f.stateClass
}

// Icon returns the icon hint, or "".
func (f Field) Icon() string {
	return f.icon
}

// Attributes returns a copy of the attribute paths keyed by attribute name.
// Returns nil if the field has no attributes.
func (f Field) Attributes() map[string]Path {
	if len(f.attributes) == 0 {
		return nil
	}
	cp := make(map[string]Path, len(f.attributes))
	for name, p := range f.attributes {
		cp[name] = copyPath(p)
	}
	return cp
}

// AttributeNames returns the sorted attribute names.
func (f Field) AttributeNames() []string {
	names := make([]string, 0, len(f.attributes))
	for name := range f.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extract resolves the field's primary value against doc.
func (f Field) Extract(doc Value) (Value, bool) {
	return Extract(doc, f.path)
}

// ExtractAttributes resolves the field's attributes against doc.
// See [ExtractAttributes].
func (f Field) ExtractAttributes(doc Value) map[string]Value {
	if len(f.attributes) == 0 {
		return nil
	}
	return ExtractAttributes(doc, f.attributes)
}

// fieldConfig holds mutable state during field construction.
type fieldConfig struct {
	unit        string
	deviceClass string
	stateClass  string
	icon        string
	attributes  map[string]Path
}

// FieldOption configures a [Field] during construction.
type FieldOption func(*fieldConfig) error

// WithUnit sets the unit of measurement, e.g. "°C" or "mV".
func WithUnit(unit string) FieldOption {
	return func(cfg *fieldConfig) error {
		cfg.unit = unit
		return nil
	}
}

// WithDeviceClass sets the host device class, e.g. "temperature".
func WithDeviceClass(class string) FieldOption {
	return func(cfg *fieldConfig) error {
		cfg.deviceClass = class
		return nil
	}
}

// WithStateClass sets the measurement kind.
//
// Returns an error unless class is one of [StateClassMeasurement],
// [StateClassTotal] or [StateClassTotalIncreasing].
func WithStateClass(class string) FieldOption {
	return func(cfg *fieldConfig) error {
		switch class {
		case StateClassMeasurement, StateClassTotal, StateClassTotalIncreasing:
			cfg.stateClass = class
			return nil
		default:
			return fmt.Errorf("invalid state class %q (must be measurement, total or total_increasing)", class)
		}
	}
}

// WithIcon sets the icon hint, e.g. "mdi:pump".
func WithIcon(icon string) FieldOption {
	return func(cfg *fieldConfig) error {
		cfg.icon = icon
		return nil
	}
}

// WithAttribute adds a secondary value published alongside the primary one.
//
// Example:
//
//	poolbridge.WithAttribute("alarm_min", poolbridge.MustPath("state", "metrics", "phAlarmLimits", 0))
//
// Returns an error if the name is empty, already used, or the path is empty.
func WithAttribute(name string, path Path) FieldOption {
	return func(cfg *fieldConfig) error {
		if name == "" {
			return errors.New("attribute name cannot be empty")
		}
		if len(path) == 0 {
			return fmt.Errorf("attribute %q: path cannot be empty", name)
		}
		if _, exists := cfg.attributes[name]; exists {
			return fmt.Errorf("duplicate attribute %q", name)
		}
		cfg.attributes[name] = copyPath(path)
		return nil
	}
}

// NewField creates a [Field].
//
// The key must match [a-z0-9_]+ since it is used in identifiers and topic
// names. The name must be non-empty and the path must have at least one
// segment.
//
// Example:
//
//	f, err := poolbridge.NewField("water_temperature", "Water Temperature",
//	    poolbridge.MustPath("state", "metrics", "waterTemperature"),
//	    poolbridge.WithDeviceClass("temperature"),
//	    poolbridge.WithUnit("°C"),
//	    poolbridge.WithStateClass(poolbridge.StateClassMeasurement),
//	)
func NewField(key, name string, path Path, opts ...FieldOption) (Field, error) {
	if !fieldKeyPattern.MatchString(key) {
		return Field{}, fmt.Errorf("invalid field key %q (must match [a-z0-9_]+)", key)
	}
	if name == "" {
		return Field{}, fmt.Errorf("field %q: name cannot be empty", key)
	}
	if len(path) == 0 {
		return Field{}, fmt.Errorf("field %q: path cannot be empty", key)
	}

	cfg := &fieldConfig{attributes: make(map[string]Path)}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Field{}, fmt.Errorf("field %q: %w", key, err)
		}
	}

	var attrs map[string]Path
	if len(cfg.attributes) > 0 {
		attrs = cfg.attributes
	}

	return Field{
		key:         key,
		name:        name,
		path:        copyPath(path),
		unit:        cfg.unit,
		deviceClass: cfg.deviceClass,
		stateClass:  cfg.stateClass,
		icon:        cfg.icon,
		attributes:  attrs,
	}, nil
}

// MustField is like [NewField] but panics on error.
func MustField(key, name string, path Path, opts ...FieldOption) Field {
	f, err := NewField(key, name, path, opts...)
	if err != nil {
		panic("poolbridge: " + err.Error())
	}
	return f
}

// ValidateFields checks that fields is non-empty and that keys are unique.
func ValidateFields(fields []Field) error {
	if len(fields) == 0 {
		return errors.New("at least one field is required")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.key == "" {
			return errors.New("field key cannot be empty")
		}
		if seen[f.key] {
			return fmt.Errorf("duplicate field key: %q", f.key)
		}
		seen[f.key] = true
	}
	return nil
}

func copyPath(p Path) Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}
