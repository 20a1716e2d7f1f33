package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Element gives a collection member a stable row id independent of its position.
type Element[T any] struct {
	ID    string `json:"id"`
	Value T      `json:"value"`
}

// NewElement wraps v with a fresh random id. Only code that adds a new
// collection entry should call it; migrations read existing elements.
func NewElement[T any](v T) Element[T] {
	return Element[T]{ID: uuid.NewString(), Value: v}
}

// Elements reads a collection field whose members are {"id", "value"} objects.
func (d Data) Elements(key string) ([]Element[Data], bool, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return nil, false, nil
	}

	switch list := v.(type) {
	case []Element[Data]:
		return list, true, nil
	case []any:
		out := make([]Element[Data], 0, len(list))
		for i, item := range list {
			el, err := toElement(item)
			if err != nil {
				return nil, true, fmt.Errorf("field %s[%d]: %w", key, i, err)
			}
			out = append(out, el)
		}
		return out, true, nil
	case []map[string]any:
		out := make([]Element[Data], 0, len(list))
		for i, item := range list {
			el, err := toElement(item)
			if err != nil {
				return nil, true, fmt.Errorf("field %s[%d]: %w", key, i, err)
			}
			out = append(out, el)
		}
		return out, true, nil
	default:
		return nil, true, mismatch(key, "list", v)
	}
}

func toElement(item any) (Element[Data], error) {
	switch t := item.(type) {
	case Element[Data]:
		return t, nil
	case Element[map[string]any]:
		return Element[Data]{ID: t.ID, Value: Data(t.Value)}, nil
	}

	m, ok := asMap(item)
	if !ok {
		return Element[Data]{}, fmt.Errorf("want element object, got %T: %w", item, ErrTypeMismatch)
	}
	id, _, err := m.String("id")
	if err != nil {
		return Element[Data]{}, err
	}
	value, _, err := m.Map("value")
	if err != nil {
		return Element[Data]{}, err
	}
	return Element[Data]{ID: id, Value: value}, nil
}
