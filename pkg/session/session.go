package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cairnforensics/cairn/pkg/collectors"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/evidence"
)

// Session binds one evidence snapshot to one entity cache. All collector
// memoization lives in the cache, so a session sees each collector run at
// most once. Reloading the snapshot starts a fresh cache under the same
// session ID.
type Session struct {
	mu sync.RWMutex

	id     uuid.UUID
	logger *zap.Logger

	source   evidence.Source
	registry *entity.Registry
	cache    *entity.Cache

	autoCreate bool
}

// Option configures a Session beyond its evidence source.
type Option func(*Session)

// WithLogger sets the session logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithAutoCreate enables placeholder entities for identity lookups that
// miss the cache.
func WithAutoCreate(enabled bool) Option {
	return func(s *Session) {
		s.autoCreate = enabled
	}
}

// New opens the snapshot at path and builds a session around it.
func New(path string, opts ...Option) (*Session, error) {
	src, err := evidence.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}

	return FromSource(src, opts...), nil
}

// FromSource builds a session around an already-open evidence source.
func FromSource(src evidence.Source, opts ...Option) *Session {
	s := &Session{
		id:     uuid.New(),
		logger: zap.NewNop(),
		source: src,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registry, s.cache = s.newCache(src)

	return s
}

func (s *Session) newCache(src evidence.Source) (*entity.Registry, *entity.Cache) {
	registry := collectors.NewRegistry(src)
	cache := entity.NewCache(
		registry,
		entity.WithLogger(s.logger.Named("cache")),
		entity.WithAutoCreate(s.autoCreate),
	)
	return registry, cache
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Cache returns the session's entity cache.
func (s *Session) Cache() *entity.Cache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}

// Registry returns the session's collector registry.
func (s *Session) Registry() *entity.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// Source returns the session's evidence source.
func (s *Session) Source() evidence.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Reload replaces the evidence source with a fresh open of the same path
// and resets the entity cache. Collector memoization does not survive a
// reload; the snapshot may have changed underneath us.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.source.Path()

	src, err := evidence.Open(path)
	if err != nil {
		return fmt.Errorf("reopening snapshot: %w", err)
	}

	if err := s.source.Close(); err != nil {
		s.logger.Warn("closing previous snapshot source", zap.Error(err))
	}

	s.source = src
	s.registry, s.cache = s.newCache(src)

	s.logger.Info("snapshot reloaded",
		zap.String("path", path),
		zap.String("session_id", s.id.String()),
	)

	return nil
}

// Close releases the underlying evidence source.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source.Close()
}
