package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrTypeMismatch is returned by Data accessors when a field holds a value
// of a different shape than the caller expects.
var ErrTypeMismatch = errors.New("type mismatch")

// Data is a case's business data document. Values are whatever the case
// store decoded: strings, float64 numbers, bools, nested maps and lists.
// Accessors report (value, present, error); a key holding null counts as absent.
type Data map[string]any

func (d Data) Map(key string) (Data, bool, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil, true, mismatch(key, "object", v)
	}
	return m, true, nil
}

func (d Data) String(key string) (string, bool, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, mismatch(key, "string", v)
	}
	return s, true, nil
}

// Date reads a "yyyy-MM-dd" field.
func (d Data) Date(key string) (Date, bool, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return Date{}, false, nil
	}
	switch t := v.(type) {
	case Date:
		return t, true, nil
	case *Date:
		if t == nil {
			return Date{}, false, nil
		}
		return *t, true, nil
	case string:
		date, err := ParseDate(t)
		if err != nil {
			return Date{}, true, fmt.Errorf("field %s: %w", key, err)
		}
		return date, true, nil
	default:
		return Date{}, true, mismatch(key, "date", v)
	}
}

// DateTime reads a local "yyyy-MM-ddTHH:mm:ss" field.
func (d Data) DateTime(key string) (DateTime, bool, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return DateTime{}, false, nil
	}
	switch t := v.(type) {
	case DateTime:
		return t, true, nil
	case time.Time:
		return DateTime{t}, true, nil
	case string:
		dt, err := ParseDateTime(t)
		if err != nil {
			return DateTime{}, true, fmt.Errorf("field %s: %w", key, err)
		}
		return dt, true, nil
	default:
		return DateTime{}, true, mismatch(key, "date-time", v)
	}
}

// Clone returns a deep copy of maps and lists; leaf values are shared.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Data:
		return t.Clone()
	case map[string]any:
		return map[string]any(Data(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func asMap(v any) (Data, bool) {
	switch t := v.(type) {
	case Data:
		return t, true
	case map[string]any:
		return Data(t), true
	default:
		return nil, false
	}
}

func mismatch(key, want string, got any) error {
	return fmt.Errorf("field %s: want %s, got %T: %w", key, want, got, ErrTypeMismatch)
}
