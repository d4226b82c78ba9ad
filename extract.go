package poolbridge

// Extract resolves path against doc.
//
// Segments are applied left to right. A key segment requires the current
// value to be a mapping that contains the key; an index segment requires a
// sequence with more than index elements. The first segment that cannot be
// applied makes the whole path absent and Extract returns false. The
// resolved value is returned as is, without coercion.
//
// Extract never panics. The empty path resolves to doc itself.
//
// Example:
//
//	// For {"state": {"cards": {"pumps": [{"rpm": 1450}]}}}
//	v, ok := poolbridge.Extract(doc, poolbridge.MustPath("state", "cards", "pumps", 0, "rpm"))
//	// v = 1450, ok = true
func Extract(doc Value, path Path) (Value, bool) {
	current := doc
	for _, seg := range path {
		var ok bool
		if seg.isIndex {
			current, ok = current.Index(seg.index)
		} else {
			current, ok = current.Get(seg.key)
		}
		if !ok {
			return Value{}, false
		}
	}
	return current, true
}

// ExtractAttributes resolves each named path against doc independently.
//
// Attributes whose path is absent are omitted. When no attribute resolves
// the result is nil, so callers can distinguish "no attributes" from an
// empty set by a simple nil check.
func ExtractAttributes(doc Value, paths map[string]Path) map[string]Value {
	var out map[string]Value
	for name, p := range paths {
		v, ok := Extract(doc, p)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]Value, len(paths))
		}
		out[name] = v
	}
	return out
}
