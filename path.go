package poolbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Segment is one step of a [Path]: either a mapping key or a sequence index.
//
// Segments are created with [Key] and [Index]. The zero Segment is the
// empty key.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a segment that selects the entry named k of a mapping.
func Key(k string) Segment {
	return Segment{key: k}
}

// Index returns a segment that selects element i of a sequence.
func Index(i int) Segment {
	return Segment{index: i, isIndex: true}
}

// IsIndex reports whether the segment selects a sequence element.
func (s Segment) IsIndex() bool {
	return s.isIndex
}

// Key returns the mapping key selected by the segment.
// It returns "" for index segments.
func (s Segment) Key() string {
	return s.key
}

// Index returns the sequence index selected by the segment.
// It returns 0 for key segments.
func (s Segment) Index() int {
	return s.index
}

// String renders the segment as it appears in dot notation.
func (s Segment) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return s.key
}

// Path locates a value inside a snapshot document.
//
// A Path is evaluated left to right by [Extract]. Paths are written in code
// with [MustPath] and in configuration either as a YAML sequence
// (["state", "cards", "pumps", 0, "rpm"]) or as dot notation
// ("state.cards.pumps[0].rpm"), see [ParsePath].
type Path []Segment

// MustPath builds a [Path] from strings (keys) and ints (indexes).
//
// It panics on any other part type and is intended for static field tables.
//
// Example:
//
//	rpm := poolbridge.MustPath("state", "cards", "pumps", 0, "rpm")
func MustPath(parts ...any) Path {
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch v := part.(type) {
		case string:
			p = append(p, Key(v))
		case int:
			p = append(p, Index(v))
		case Segment:
			p = append(p, v)
		default:
			panic(fmt.Sprintf("poolbridge: invalid path segment %v (%T)", part, part))
		}
	}
	return p
}

// ParsePath parses dot notation with bracketed indexes.
//
// Keys are separated by dots and indexes follow a key in brackets:
//
//	state.cards.pumps[0].rpm
//	state.metrics.phAlarmLimits[1]
//
// Keys that themselves contain '.' or '[' cannot be expressed in this form;
// use the YAML sequence form or [MustPath] for those.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("path cannot be empty")
	}

	var p Path
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", s)
		}

		name, rest := part, ""
		if i := strings.IndexByte(part, '['); i >= 0 {
			name, rest = part[:i], part[i:]
		}
		if strings.ContainsRune(name, ']') {
			return nil, fmt.Errorf("invalid path %q: unexpected ']'", s)
		}
		if name != "" {
			p = append(p, Key(name))
		}

		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, fmt.Errorf("invalid path %q: malformed index in %q", s, part)
			}
			n, err := strconv.Atoi(rest[1:end])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid path %q: index %q must be a non-negative integer", s, rest[1:end])
			}
			p = append(p, Index(n))
			rest = rest[end+1:]
		}
	}
	return p, nil
}

// String renders the path in dot notation. The empty path renders as "".
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if !seg.isIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.String())
	}
	return b.String()
}

// Equal reports whether p and other select the same location.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the path in dot notation.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// MarshalYAML encodes the path as a sequence of keys and indexes.
func (p Path) MarshalYAML() (interface{}, error) {
	out := make([]interface{}, len(p))
	for i, seg := range p {
		if seg.isIndex {
			out[i] = seg.index
		} else {
			out[i] = seg.key
		}
	}
	return out, nil
}

// UnmarshalYAML accepts either a dot-notation string or a sequence of
// scalars. In the sequence form, plain integers become indexes and every
// other scalar (including quoted numbers) becomes a key.
func (p *Path) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		parsed, err := ParsePath(s)
		if err != nil {
			return err
		}
		*p = parsed
		return nil

	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return errors.New("path cannot be empty")
		}
		parsed := make(Path, 0, len(node.Content))
		for i, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("path segment %d must be a scalar", i)
			}
			if item.ShortTag() == "!!int" {
				var n int
				if err := item.Decode(&n); err != nil {
					return fmt.Errorf("path segment %d: %w", i, err)
				}
				if n < 0 {
					return fmt.Errorf("path segment %d: index must be non-negative, got %d", i, n)
				}
				parsed = append(parsed, Index(n))
				continue
			}
			parsed = append(parsed, Key(item.Value))
		}
		*p = parsed
		return nil

	default:
		return fmt.Errorf("path must be a string or a sequence (line %d)", node.Line)
	}
}
