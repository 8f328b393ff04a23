package entity

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Cache is the session-scoped entity register: the identity-keyed entity
// table plus the memo of which collectors have already run and what they
// produced. It is deliberately the only mutable shared state in the core.
//
// The cache is defined for one logical thread of control per session;
// mutation is serialized through a single mutex so a query always observes
// every registration that happened before it. Collectors are invoked
// strictly in profile order and each one is drained fully before the next
// runs, which keeps memoization unambiguous and merge order reproducible.
type Cache struct {
	mu      sync.Mutex
	profile Profile
	logger  *zap.Logger

	// autoCreate makes identity lookups materialize a provisional entity
	// when the identity is not yet registered. Off by default; see Option.
	autoCreate bool

	byIdentity map[string]*Entity
	order      []string

	byCollector map[string][]string
	memoSets    map[string]map[string]struct{}
}

// Option configures a Cache created with NewCache.
type Option func(*Cache)

// WithLogger sets the logger used for soft collector warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithAutoCreate makes FindByIdentity build a provisional, fact-less entity
// for a plain identity that is not yet registered (never for superposition
// variants, and never in cache-only mode). This is an explicit opt-in: the
// default resolves unknown identities to an empty result.
func WithAutoCreate(enabled bool) Option {
	return func(c *Cache) {
		c.autoCreate = enabled
	}
}

// NewCache builds an empty per-session cache over the given profile.
func NewCache(profile Profile, opts ...Option) *Cache {
	c := &Cache{
		profile:     profile,
		logger:      zap.NewNop(),
		byIdentity:  make(map[string]*Entity),
		byCollector: make(map[string][]string),
		memoSets:    make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query describes one lookup. Exactly one of Identity and Kind is expected
// to be meaningful; supplying neither is a vacuous query, not an error.
type Query struct {
	// Identity resolves directly, expanding superpositions. Takes
	// precedence over Kind when both are set.
	Identity Ref

	// Kind resolves by running (or replaying) every collector declared to
	// produce it.
	Kind Kind

	// CacheOnly answers purely from already-registered state. It never
	// mutates the cache and never invokes a collector.
	CacheOnly bool

	// ExactKind suppresses collectors for related/derived kinds.
	ExactKind bool
}

// Warning records a collector failure that was absorbed rather than
// propagated. A failing collector never prevents other collectors or other
// entities from resolving; its contribution is simply omitted.
type Warning struct {
	Collector string
	Err       error
}

// Result is the outcome of a query: the matching entities, deduplicated by
// identity in deterministic order, plus any soft collector warnings.
type Result struct {
	Entities []*Entity
	Warnings []Warning
}

// Register builds or updates the entity for one observation. A fresh
// identity inserts a new entity; a known identity merges under the
// preserving policy and the stored entity is replaced. The identity is
// always recorded under the collector's memo. Safe to call repeatedly for
// the same identity; this is the only mutation path into the register.
//
// A zero identity is ignored: incomplete evidence is forensic reality, not
// an error.
func (c *Cache) Register(id Identity, facts []Fact, collector string) *Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registerLocked(id, facts, collector)
}

func (c *Cache) registerLocked(id Identity, facts []Fact, collector string) *Entity {
	if id.IsZero() {
		c.logger.Debug("dropping observation with no identity",
			zap.String("collector", collector),
		)
		return nil
	}

	fresh := New(id, facts, collector)

	stored := fresh
	if existing, ok := c.byIdentity[id.Key()]; ok {
		merged, err := Merge(existing, fresh)
		if err != nil {
			// Unreachable: both sides share id by construction.
			c.logger.Error("register merge failed", zap.Error(err))
			return existing
		}
		stored = merged
	} else {
		c.order = append(c.order, id.Key())
	}

	c.byIdentity[id.Key()] = stored
	if collector != "" {
		c.memoAddLocked(collector, id.Key())
	}
	return stored
}

func (c *Cache) memoAddLocked(collector, key string) {
	set, ok := c.memoSets[collector]
	if !ok {
		set = make(map[string]struct{})
		c.memoSets[collector] = set
		if _, present := c.byCollector[collector]; !present {
			c.byCollector[collector] = []string{}
		}
	}
	if _, have := set[key]; have {
		return
	}
	set[key] = struct{}{}
	c.byCollector[collector] = append(c.byCollector[collector], key)
}

// Find dispatches per the query: identity lookups expand superpositions,
// kind lookups fan out across collectors, and a query with neither yields
// an empty result.
func (c *Cache) Find(ctx context.Context, q Query) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if q.Identity != nil {
		return &Result{Entities: c.findByIdentityLocked(q.Identity, q.CacheOnly)}
	}
	if q.Kind != "" {
		return c.findByKindLocked(ctx, q.Kind, q.CacheOnly, q.ExactKind)
	}
	return &Result{}
}

// FindByIdentity resolves a plain identity or a superposition. Variants not
// registered are silently skipped: ambiguity resolves to whatever is
// currently known, never to failure. A nil or zero reference yields nothing.
func (c *Cache) FindByIdentity(ref Ref, cacheOnly bool) []*Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findByIdentityLocked(ref, cacheOnly)
}

func (c *Cache) findByIdentityLocked(ref Ref, cacheOnly bool) []*Entity {
	if ref == nil {
		return nil
	}

	var out []*Entity
	for _, id := range ref.Variants() {
		if e, ok := c.byIdentity[id.Key()]; ok {
			out = append(out, e)
			continue
		}
		if c.autoCreate && !cacheOnly {
			if _, isPlain := ref.(Identity); isPlain {
				out = append(out, c.registerLocked(id, nil, ""))
			}
		}
	}
	return out
}

// FindByKind resolves every collector declared to produce the kind
// (including related kinds), replaying memoized collectors from the cache
// and running the rest, then returns the registered entities that actually
// carry a fact of the requested kind.
func (c *Cache) FindByKind(ctx context.Context, kind Kind, cacheOnly bool) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findByKindLocked(ctx, kind, cacheOnly, false)
}

func (c *Cache) findByKindLocked(ctx context.Context, kind Kind, cacheOnly, exact bool) *Result {
	kinds := []Kind{kind}
	if !exact {
		kinds = append(kinds, c.profile.Related(kind)...)
	}

	var collectors []*Collector
	seen := make(map[string]struct{})
	for _, k := range kinds {
		for _, col := range c.profile.CollectorsFor(k) {
			if _, ok := seen[col.Name]; ok {
				continue
			}
			seen[col.Name] = struct{}{}
			collectors = append(collectors, col)
		}
	}

	res := &Result{}
	var keys []string
	for _, col := range collectors {
		// Already ran this session: replay the memo, never re-invoke.
		if memo, ok := c.byCollector[col.Name]; ok {
			keys = append(keys, memo...)
			continue
		}

		if cacheOnly {
			continue
		}

		obs, err := col.Collect(ctx)
		if err != nil {
			// Soft failure: the collector's contribution is omitted and
			// everything else proceeds. Not memoized, so a later query may
			// retry it.
			c.logger.Warn("collector failed",
				zap.String("collector", col.Name),
				zap.Error(err),
			)
			res.Warnings = append(res.Warnings, Warning{Collector: col.Name, Err: err})
			continue
		}

		for _, ob := range obs {
			if e := c.registerLocked(ob.Identity, ob.Facts, col.Name); e != nil {
				keys = append(keys, ob.Identity.Key())
			}
		}

		// Memoize even an empty yield so the collector never runs twice.
		if _, ok := c.byCollector[col.Name]; !ok {
			c.byCollector[col.Name] = []string{}
			c.memoSets[col.Name] = make(map[string]struct{})
		}
	}

	dedup := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := dedup[key]; ok {
			continue
		}
		dedup[key] = struct{}{}
		e := c.byIdentity[key]
		if e != nil && e.HasKind(kind) {
			res.Entities = append(res.Entities, e)
		}
	}
	return res
}

// Entity looks up one registered entity by identity.
func (c *Cache) Entity(id Identity) (*Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byIdentity[id.Key()]
	return e, ok
}

// All returns every registered entity in registration order.
func (c *Cache) All() []*Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Entity, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.byIdentity[key])
	}
	return out
}

// Len returns the number of registered entities.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byIdentity)
}

// CollectorRan reports whether the named collector has been memoized.
func (c *Cache) CollectorRan(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byCollector[name]
	return ok
}

// Stats summarizes the cache for status surfaces.
type Stats struct {
	Entities      int `json:"entities"`
	CollectorsRun int `json:"collectors_run"`
	Observations  int `json:"observations"`
}

// Stats returns a point-in-time summary.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Entities:      len(c.byIdentity),
		CollectorsRun: len(c.byCollector),
	}
	for _, e := range c.byIdentity {
		s.Observations += e.Observations()
	}
	return s
}
