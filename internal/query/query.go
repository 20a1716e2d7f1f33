// Package query models the search-index predicates used to select cases
// for a migration. Clause trees are immutable once built.
package query

import (
	"reflect"
	"strings"

	json "github.com/goccy/go-json"
)

// Query is a node of a clause tree. It renders to the index's JSON body and
// can be evaluated against a document whose fields are addressed by dotted path.
type Query interface {
	json.Marshaler
	Matches(doc map[string]any) bool
}

// MatchQuery requires a field to equal a value.
type MatchQuery struct {
	Field string
	Value any
}

func Match(field string, value any) MatchQuery {
	return MatchQuery{Field: field, Value: value}
}

func (q MatchQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Match map[string]any `json:"match"`
	}{Match: map[string]any{q.Field: q.Value}})
}

func (q MatchQuery) Matches(doc map[string]any) bool {
	v, ok := lookup(doc, q.Field)
	if !ok {
		return false
	}
	return equal(v, q.Value)
}

// ExistsQuery requires a field to be present and non-null. Empty lists and
// objects count as present.
type ExistsQuery struct {
	Field string
}

func Exists(field string) ExistsQuery {
	return ExistsQuery{Field: field}
}

func (q ExistsQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Exists struct {
			Field string `json:"field"`
		} `json:"exists"`
	}{Exists: struct {
		Field string `json:"field"`
	}{Field: q.Field}})
}

func (q ExistsQuery) Matches(doc map[string]any) bool {
	v, ok := lookup(doc, q.Field)
	return ok && v != nil
}

// BoolQuery combines clauses: every must and filter clause has to match and
// no must_not clause may match. An empty slot adds no constraint.
type BoolQuery struct {
	must    []Query
	mustNot []Query
	filter  []Query
}

func Bool() BoolQuery {
	return BoolQuery{}
}

func (q BoolQuery) Must(clauses ...Query) BoolQuery {
	q.must = appendClauses(q.must, clauses)
	return q
}

func (q BoolQuery) MustNot(clauses ...Query) BoolQuery {
	q.mustNot = appendClauses(q.mustNot, clauses)
	return q
}

func (q BoolQuery) Filter(clauses ...Query) BoolQuery {
	q.filter = appendClauses(q.filter, clauses)
	return q
}

// appendClauses never writes into a slice another BoolQuery value may share.
func appendClauses(dst, clauses []Query) []Query {
	out := make([]Query, 0, len(dst)+len(clauses))
	out = append(out, dst...)
	return append(out, clauses...)
}

type boolBody struct {
	Must    []Query `json:"must,omitempty"`
	MustNot []Query `json:"must_not,omitempty"`
	Filter  []Query `json:"filter,omitempty"`
}

func (q BoolQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Bool boolBody `json:"bool"`
	}{Bool: boolBody{Must: q.must, MustNot: q.mustNot, Filter: q.filter}})
}

func (q BoolQuery) Matches(doc map[string]any) bool {
	for _, c := range q.must {
		if !c.Matches(doc) {
			return false
		}
	}
	for _, c := range q.filter {
		if !c.Matches(doc) {
			return false
		}
	}
	for _, c := range q.mustNot {
		if c.Matches(doc) {
			return false
		}
	}
	return true
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func equal(a, b any) bool {
	if ai, ok := toInt(a); ok {
		if bi, ok := toInt(b); ok {
			return ai == bi
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
