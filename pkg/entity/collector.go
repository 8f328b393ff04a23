package entity

import "context"

// CollectFunc is an extraction routine bound to its target at construction
// time. It inspects the target's memory state and yields a finite sequence
// of (identity, facts) observations. The core never looks inside: collectors
// are opaque, expensive, side-effect-free functions whose output is
// memoized per session.
type CollectFunc func(ctx context.Context) ([]Observation, error)

// Collector pairs an extraction routine with its stable name and the fact
// kinds it is able to produce. The name keys memoization; the produced
// kinds drive lookup.
type Collector struct {
	// Name is the stable identifier used for memoization and provenance.
	Name string

	// Produces lists the fact kinds this collector can yield.
	Produces []Kind

	// Collect runs the extraction. Must be restartable: re-invoking yields
	// equivalent output (the cache still never invokes it twice).
	Collect CollectFunc
}

// CanProduce reports whether the collector declares the given kind.
func (c *Collector) CanProduce(kind Kind) bool {
	for _, k := range c.Produces {
		if k == kind {
			return true
		}
	}
	return false
}

// Profile resolves fact kinds to the collectors able to produce them. The
// cache treats it as a pure lookup; its own memoization sits above whatever
// caching the profile performs.
type Profile interface {
	// CollectorsFor returns the collectors producing kind, in a stable
	// order. Order determines collector invocation order and therefore
	// which conflicting fact is positionally first.
	CollectorsFor(kind Kind) []*Collector

	// Related returns kinds derived from the given kind, so a query for a
	// kind can also run collectors whose output implies it.
	Related(kind Kind) []Kind
}

// Registry is the default Profile: an explicit collector table built once
// at session start and handed to the cache by reference. There is no global
// registration; tests inject deterministic doubles the same way production
// wiring injects real collectors.
type Registry struct {
	collectors []*Collector
	byName     map[string]*Collector
	related    map[Kind][]Kind
}

// NewRegistry builds a registry over the given collectors, preserving
// order. Later collectors with a duplicate name are dropped.
func NewRegistry(collectors ...*Collector) *Registry {
	r := &Registry{
		byName:  make(map[string]*Collector, len(collectors)),
		related: make(map[Kind][]Kind),
	}
	for _, c := range collectors {
		if _, ok := r.byName[c.Name]; ok {
			continue
		}
		r.byName[c.Name] = c
		r.collectors = append(r.collectors, c)
	}
	return r
}

// Relate declares that queries for kind should also consider collectors for
// the given derived kinds (e.g. Named is derived from Process listings).
func (r *Registry) Relate(kind Kind, derived ...Kind) {
	r.related[kind] = append(r.related[kind], derived...)
}

// CollectorsFor implements Profile. Registration order is preserved.
func (r *Registry) CollectorsFor(kind Kind) []*Collector {
	var out []*Collector
	for _, c := range r.collectors {
		if c.CanProduce(kind) {
			out = append(out, c)
		}
	}
	return out
}

// Related implements Profile.
func (r *Registry) Related(kind Kind) []Kind {
	return r.related[kind]
}

// All returns every registered collector in registration order.
func (r *Registry) All() []*Collector {
	return append([]*Collector(nil), r.collectors...)
}

// Lookup finds a collector by name.
func (r *Registry) Lookup(name string) (*Collector, bool) {
	c, ok := r.byName[name]
	return c, ok
}
