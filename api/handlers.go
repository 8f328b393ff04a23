package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/render"
)

// ErrorResponse is the wire form of an API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CollectorInfo describes one registered collector and whether it has run
// in the current session.
type CollectorInfo struct {
	Name     string   `json:"name"`
	Produces []string `json:"produces"`
	Ran      bool     `json:"ran"`
}

// KindInfo describes one fact kind and its field schema.
type KindInfo struct {
	Kind   string   `json:"kind"`
	Fields []string `json:"fields"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns cache statistics for the current session.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats := s.session.Cache().Stats()

	return c.JSON(map[string]any{
		"session_id":     s.session.ID().String(),
		"snapshot":       s.session.Source().Path(),
		"entities":       stats.Entities,
		"collectors_run": stats.CollectorsRun,
		"observations":   stats.Observations,
	})
}

// handleListKinds returns every fact kind with its field schema.
func (s *Server) handleListKinds(c *fiber.Ctx) error {
	kinds := component.Kinds()
	out := make([]KindInfo, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, KindInfo{
			Kind:   string(k),
			Fields: component.Schema(k),
		})
	}
	return c.JSON(out)
}

// handleListCollectors returns every registered collector and its run state.
func (s *Server) handleListCollectors(c *fiber.Ctx) error {
	cache := s.session.Cache()

	all := s.session.Registry().All()
	out := make([]CollectorInfo, 0, len(all))
	for _, col := range all {
		produces := make([]string, 0, len(col.Produces))
		for _, k := range col.Produces {
			produces = append(produces, string(k))
		}
		out = append(out, CollectorInfo{
			Name:     col.Name,
			Produces: produces,
			Ran:      cache.CollectorRan(col.Name),
		})
	}

	return c.JSON(out)
}

// handleFindByKind resolves all entities carrying the requested fact kind,
// running the collectors that produce it unless cache_only is set.
func (s *Server) handleFindByKind(c *fiber.Ctx) error {
	kind := c.Query("kind")
	if kind == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "kind parameter required"})
	}
	if len(component.Schema(entity.Kind(kind))) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown kind: " + kind})
	}

	q := entity.Query{
		Kind:      entity.Kind(kind),
		CacheOnly: c.QueryBool("cache_only"),
		ExactKind: c.QueryBool("exact"),
	}

	result := s.session.Cache().Find(c.Context(), q)

	return c.JSON(render.NewResultDoc(result))
}

// handleGetEntity returns a single entity by its identity key.
func (s *Server) handleGetEntity(c *fiber.Ctx) error {
	key := c.Params("+")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "key parameter required"})
	}

	e, ok := s.session.Cache().Entity(entity.NewIdentity(key, ""))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "entity not found"})
	}

	return c.JSON(render.NewEntityDoc(e))
}
