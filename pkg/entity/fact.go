package entity

// Kind names a fact schema (e.g. "Process", "Named"). The set of kinds is
// closed and defined by pkg/component; the core only ever treats kinds as
// opaque map keys.
type Kind string

// Fact is one immutable, kind-tagged slice of evidence about an entity.
// A fact is pure data: the only behavior is named field access.
//
// Fields hold primitives, strings, or identity references to other entities
// (never embedded entities, so ownership can never become cyclic). A new
// observation is a new Fact value; facts are never mutated after creation.
type Fact interface {
	// Kind returns the fact's schema name.
	Kind() Kind

	// Fields returns the schema's field names in declaration order.
	Fields() []string

	// Field returns the named field's value. Unknown names are Absent,
	// never an error.
	Field(name string) Value
}

// Observation is one (identity, facts) pair yielded by a collector.
type Observation struct {
	Identity Identity
	Facts    []Fact
}

// FactsEqual reports field-for-field equality of two facts of the same
// kind. Facts of different kinds are never equal.
func FactsEqual(a, b Fact) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	fields := a.Fields()
	if len(fields) != len(b.Fields()) {
		return false
	}
	for _, name := range fields {
		if !a.Field(name).Equal(b.Field(name)) {
			return false
		}
	}
	return true
}

// conflictFact preserves contradictory observations of one kind. It holds
// every distinct variant and exposes each field as the union of the
// variants' values, so downstream readers transparently receive either the
// single value or the conflict set.
type conflictFact struct {
	kind     Kind
	variants []Fact
}

func (c conflictFact) Kind() Kind {
	return c.kind
}

func (c conflictFact) Fields() []string {
	return c.variants[0].Fields()
}

func (c conflictFact) Field(name string) Value {
	out := Absent
	for _, v := range c.variants {
		out = out.union(v.Field(name))
	}
	return out
}

// Variants returns the conflicting facts in observation order.
func (c conflictFact) Variants() []Fact {
	return c.variants
}

// ConflictingFacts exposes the individual variants of a fact when it is a
// merge conflict. For a plain fact it returns the fact itself as the sole
// variant.
func ConflictingFacts(f Fact) []Fact {
	if c, ok := f.(conflictFact); ok {
		return c.Variants()
	}
	return []Fact{f}
}

// mergeFacts reconciles two same-kind facts per the preserving policy:
// equal content dedupes to one copy, differing content is retained as a
// conflict rather than one value silently overwriting the other.
// Commutative as a set of variants and idempotent.
func mergeFacts(a, b Fact) Fact {
	variants := appendVariants(nil, a)
	variants = appendVariants(variants, b)
	if len(variants) == 1 {
		return variants[0]
	}
	return conflictFact{kind: a.Kind(), variants: variants}
}

// appendVariants flattens conflict facts and drops duplicates so re-merging
// never grows the variant set.
func appendVariants(variants []Fact, f Fact) []Fact {
	for _, v := range ConflictingFacts(f) {
		dup := false
		for _, have := range variants {
			if FactsEqual(have, v) {
				dup = true
				break
			}
		}
		if !dup {
			variants = append(variants, v)
		}
	}
	return variants
}
