package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/cairnforensics/cairn/pkg/session"
)

// Server is the API server for querying entities resolved from a snapshot.
type Server struct {
	config  Config
	session *session.Session
	logger  *zap.Logger
	app     *fiber.App
}

// NewServer creates a new API server.
// The session is injected so the CLI and the server can share one cache
// (and therefore one set of collector memos).
func NewServer(config Config, sess *session.Session, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:  config,
		session: sess,
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/stats", s.handleStats)
	app.Get("/kinds", s.handleListKinds)
	app.Get("/collectors", s.handleListCollectors)
	app.Get("/entities", s.handleFindByKind)
	// Plus wildcard: identity keys may contain slashes (e.g. file paths).
	app.Get("/entities/+", s.handleGetEntity)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("snapshot", s.session.Source().Path()),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
