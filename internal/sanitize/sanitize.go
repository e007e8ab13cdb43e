// Package sanitize strips attributes that must not leave the API from rendered entities.
package sanitize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gallery/internal/model"
)

// Entity renders v to its JSON object form and removes every attribute the
// schema marks private, including inside nested relations. A nil entity
// yields a nil map.
func Entity(v any, schema *model.Schema) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	m, err := toMap(v)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	return Map(m, schema), nil
}

// Entities sanitizes each item of a slice. The result is never nil.
func Entities[T any](items []T, schema *model.Schema) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		m, err := Entity(&items[i], schema)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Map removes private attributes from an already rendered entity in place and returns it.
func Map(m map[string]any, schema *model.Schema) map[string]any {
	for key, value := range m {
		if schema.IsPrivate(key) {
			delete(m, key)
			continue
		}
		rel := schema.Relation(key)
		if rel == nil {
			continue
		}
		switch nested := value.(type) {
		case map[string]any:
			Map(nested, rel)
		case []any:
			for _, item := range nested {
				if obj, ok := item.(map[string]any); ok {
					Map(obj, rel)
				}
			}
		}
	}
	return m
}

// Filter returns a copy of m holding only the keys accepted by keep.
func Filter(m map[string]any, keep func(key string) bool) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		if keep(k) {
			out[k] = v
		}
	}
	return out
}

// ToMap renders v through its JSON encoding.
func ToMap(v any) (map[string]any, error) {
	return toMap(v)
}

func toMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return m, nil
}
