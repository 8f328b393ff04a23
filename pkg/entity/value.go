package entity

import (
	"fmt"
	"reflect"
	"strings"
)

// Value is the result of reading a fact field. It is a tagged variant with
// three states: absent, a single value, or a set of conflicting candidates
// retained from contradictory observations.
//
// Absence is data, not an error: querying an unknown kind or field yields
// Absent so report generation can proceed over incomplete evidence.
type Value struct {
	candidates []any
}

// Absent is the well-defined "no value" sentinel.
var Absent = Value{}

// One wraps a single field value.
func One(v any) Value {
	if v == nil {
		return Absent
	}
	return Value{candidates: []any{v}}
}

// Conflicting builds a value holding every distinct candidate, preserving
// first-seen order. With zero candidates it is Absent, with one it is
// indistinguishable from One.
func Conflicting(vs ...any) Value {
	out := Value{}
	for _, v := range vs {
		out = out.union(One(v))
	}
	return out
}

// IsAbsent reports whether no observation supplied this field.
func (v Value) IsAbsent() bool {
	return len(v.candidates) == 0
}

// IsConflict reports whether observations disagree on this field.
func (v Value) IsConflict() bool {
	return len(v.candidates) > 1
}

// First returns the positionally earliest candidate, or nil when absent.
// Collector order is deterministic within a session, so First is
// reproducible across identical runs.
func (v Value) First() any {
	if len(v.candidates) == 0 {
		return nil
	}
	return v.candidates[0]
}

// All returns every candidate in observation order. Empty when absent.
func (v Value) All() []any {
	return v.candidates
}

// Equal reports candidate-for-candidate equality, order included.
func (v Value) Equal(other Value) bool {
	if len(v.candidates) != len(other.candidates) {
		return false
	}
	for i := range v.candidates {
		if !candidateEqual(v.candidates[i], other.candidates[i]) {
			return false
		}
	}
	return true
}

// union merges two values, deduplicating candidates while preserving order.
// Merging a value with itself is a no-op.
func (v Value) union(other Value) Value {
	merged := Value{candidates: append([]any(nil), v.candidates...)}
	for _, c := range other.candidates {
		if !merged.contains(c) {
			merged.candidates = append(merged.candidates, c)
		}
	}
	return merged
}

func (v Value) contains(c any) bool {
	for _, have := range v.candidates {
		if candidateEqual(have, c) {
			return true
		}
	}
	return false
}

// String renders the value for tables and logs: "-" when absent, the bare
// value when single, and all candidates joined when conflicting.
func (v Value) String() string {
	switch len(v.candidates) {
	case 0:
		return "-"
	case 1:
		return formatCandidate(v.candidates[0])
	default:
		parts := make([]string, len(v.candidates))
		for i, c := range v.candidates {
			parts[i] = formatCandidate(c)
		}
		return strings.Join(parts, " | ")
	}
}

// candidateEqual compares field values. Identities compare by key; anything
// else falls back to deep equality since fields may hold slices.
func candidateEqual(a, b any) bool {
	if ai, ok := a.(Identity); ok {
		if bi, ok := b.(Identity); ok {
			return ai.Equal(bi)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func formatCandidate(c any) string {
	switch t := c.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// RefValue converts an identity reference field into a Value: absent for
// nil or zero references, a conflict set when the reference is a
// superposition of candidates. Fact kinds use this to expose their
// relationship fields through the one Value pattern callers match on.
func RefValue(r Ref) Value {
	if r == nil {
		return Absent
	}
	variants := r.Variants()
	switch len(variants) {
	case 0:
		return Absent
	case 1:
		return One(variants[0])
	default:
		vs := make([]any, len(variants))
		for i, id := range variants {
			vs[i] = id
		}
		return Conflicting(vs...)
	}
}
