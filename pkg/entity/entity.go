package entity

import (
	"fmt"
	"sort"
	"strings"
)

// IdentityMismatchError is returned when a merge is attempted across two
// different identities. This is a programmer error, not a recoverable
// runtime condition: the cache only ever merges entities that share a key,
// so seeing this means the calling code is broken.
type IdentityMismatchError struct {
	X, Y Identity
}

func (e IdentityMismatchError) Error() string {
	return fmt.Sprintf("cannot merge entities with different identities: %q vs %q", e.X.Key(), e.Y.Key())
}

// Entity is the resolved record of everything known about one real-world
// object: an identity, the current best-known fact per kind, the set of
// collectors that contributed, and how many raw observations were merged in.
//
// Identity equality is the sole basis of entity equality; fact content never
// participates. Entities are immutable: merging produces a fresh value and
// the cache swaps it in.
type Entity struct {
	identity     Identity
	facts        map[Kind]Fact
	sources      map[string]struct{}
	observations int
}

// New builds an entity from a single observation. Facts sharing a kind
// within one observation are merged under the preserving policy.
func New(id Identity, facts []Fact, source string) *Entity {
	e := &Entity{
		identity:     id,
		facts:        make(map[Kind]Fact, len(facts)),
		sources:      make(map[string]struct{}, 1),
		observations: 1,
	}
	if source != "" {
		e.sources[source] = struct{}{}
	}
	for _, f := range facts {
		if have, ok := e.facts[f.Kind()]; ok {
			e.facts[f.Kind()] = mergeFacts(have, f)
			continue
		}
		e.facts[f.Kind()] = f
	}
	return e
}

// Identity returns the entity's primary key.
func (e *Entity) Identity() Identity {
	return e.identity
}

// Equal reports whether two entities name the same object. Fact content is
// deliberately ignored.
func (e *Entity) Equal(other *Entity) bool {
	return other != nil && e.identity.Equal(other.identity)
}

// Fact returns the current fact of the given kind, if any.
func (e *Entity) Fact(kind Kind) (Fact, bool) {
	f, ok := e.facts[kind]
	return f, ok
}

// HasKind reports whether any observation contributed a fact of this kind.
func (e *Entity) HasKind(kind Kind) bool {
	_, ok := e.facts[kind]
	return ok
}

// Kinds returns the fact kinds present on this entity, sorted for
// deterministic output.
func (e *Entity) Kinds() []Kind {
	kinds := make([]Kind, 0, len(e.facts))
	for k := range e.facts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Sources returns the names of the collectors that contributed to this
// entity, sorted.
func (e *Entity) Sources() []string {
	out := make([]string, 0, len(e.sources))
	for s := range e.sources {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Observations returns the number of raw observations merged in (>= 1).
func (e *Entity) Observations() int {
	return e.observations
}

// Get reads a field via a dotted "Kind.field" path. Missing kinds, missing
// fields, and malformed paths all yield Absent, never an error — absence of
// evidence must not abort analysis.
func (e *Entity) Get(path string) Value {
	kind, field, ok := strings.Cut(path, ".")
	if !ok {
		return Absent
	}
	return e.GetField(Kind(kind), field)
}

// GetField is the two-argument form of Get.
func (e *Entity) GetField(kind Kind, field string) Value {
	f, ok := e.facts[kind]
	if !ok {
		return Absent
	}
	return f.Field(field)
}

func (e *Entity) String() string {
	return e.identity.String()
}

// Merge reconciles two entities observed under the same identity.
//
// Fact kinds present in only one side carry over unchanged; kinds present in
// both dedupe when equal and are preserved as a conflict when they differ.
// Sources union, observation counts add. Merge is commutative and
// associative in facts and sources, idempotent on fact content, and safe to
// apply to an entity and itself (collectors may legitimately be re-registered).
func Merge(x, y *Entity) (*Entity, error) {
	if !x.identity.Equal(y.identity) {
		return nil, IdentityMismatchError{X: x.identity, Y: y.identity}
	}

	merged := &Entity{
		identity:     x.identity,
		facts:        make(map[Kind]Fact, len(x.facts)+len(y.facts)),
		sources:      make(map[string]struct{}, len(x.sources)+len(y.sources)),
		observations: x.observations + y.observations,
	}

	for k, f := range x.facts {
		merged.facts[k] = f
	}
	for k, f := range y.facts {
		if have, ok := merged.facts[k]; ok {
			merged.facts[k] = mergeFacts(have, f)
			continue
		}
		merged.facts[k] = f
	}

	for s := range x.sources {
		merged.sources[s] = struct{}{}
	}
	for s := range y.sources {
		merged.sources[s] = struct{}{}
	}

	return merged, nil
}
