// Package entity implements the entity resolution core: identities, facts,
// entities, the merge algorithm, and the session-scoped cache that reconciles
// collector observations into a single queryable fact base.
package entity

// Identity uniquely names one real-world object (a process, a user, a socket)
// across observations. Two observations with equal identities describe the
// same object and will be merged into one entity.
//
// The key is the stable, unique value equality is based on. The display
// string is only used for human-facing output and never participates in
// equality, so two collectors may describe the same object differently
// without splitting it in two.
type Identity struct {
	key     string
	display string
}

// NewIdentity creates an identity from a stable key and a display string.
// If display is empty the key doubles as the display string.
func NewIdentity(key, display string) Identity {
	if display == "" {
		display = key
	}
	return Identity{key: key, display: display}
}

// Key returns the stable unique key for this identity.
func (id Identity) Key() string {
	return id.key
}

// IsZero reports whether this is the absent identity. A zero identity
// resolves to nothing; it is never an error to look one up.
func (id Identity) IsZero() bool {
	return id.key == ""
}

// Equal reports whether two identities name the same object.
func (id Identity) Equal(other Identity) bool {
	return id.key == other.key
}

func (id Identity) String() string {
	if id.display != "" {
		return id.display
	}
	return id.key
}

// Variants implements Ref. A zero identity has no variants.
func (id Identity) Variants() []Identity {
	if id.IsZero() {
		return nil
	}
	return []Identity{id}
}

// Ref is anything that resolves to a set of candidate identities: a plain
// Identity (zero or one variant) or a Superposition (several). Resolution
// routines accept a Ref so callers never have to branch on which one they
// hold. A nil Ref resolves to nothing.
type Ref interface {
	// Variants returns the candidate identities in deterministic order.
	Variants() []Identity
}

// Superposition is an ordered, deduplicated set of candidate identities,
// used when the available evidence cannot disambiguate which object an
// observation refers to (e.g. a socket that could belong to either of two
// file descriptors).
//
// A superposition is a query-time expansion construct, not a stored
// identity: resolving one yields the registered entity for each variant
// present in the cache, silently skipping the rest.
type Superposition struct {
	variants []Identity
}

// NewSuperposition builds a superposition from candidate identities,
// preserving first-seen order, dropping duplicates and zero identities.
func NewSuperposition(ids ...Identity) Superposition {
	seen := make(map[string]struct{}, len(ids))
	variants := make([]Identity, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := seen[id.key]; ok {
			continue
		}
		seen[id.key] = struct{}{}
		variants = append(variants, id)
	}
	return Superposition{variants: variants}
}

// Variants implements Ref.
func (s Superposition) Variants() []Identity {
	return s.variants
}

// Len returns the number of distinct candidates.
func (s Superposition) Len() int {
	return len(s.variants)
}

func (s Superposition) String() string {
	out := "("
	for i, v := range s.variants {
		if i > 0 {
			out += " | "
		}
		out += v.String()
	}
	return out + ")"
}
