package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Canonical returns m in the shape every store hands back: objects as
// map[string]any, arrays as []any, integral numbers as int64 and any other
// number as float64. Values that do not survive JSON (times, typed slices)
// come back as their JSON form.
func (m Metadata) Canonical() (Metadata, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	var out Metadata
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return out, nil
}

// UnmarshalJSON decodes into the canonical shape. Integers keep their full
// 64-bit precision.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}
	out := make(Metadata, len(raw))
	for k, v := range raw {
		out[k] = canonicalValue(v)
	}
	*m = out
	return nil
}

func canonicalValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = canonicalValue(e)
		}
		return t
	case []any:
		for i := range t {
			t[i] = canonicalValue(t[i])
		}
		return t
	default:
		return v
	}
}
