package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/DocLink/internal/app/service"
	"github.com/sifan077/DocLink/internal/http/handler"
	"github.com/sifan077/DocLink/internal/http/middleware"
	httpUtil "github.com/sifan077/DocLink/internal/http/util"
	"github.com/sifan077/DocLink/internal/infra/ratelimit"
	"go.uber.org/zap"
)

// Dependencies bundles the services and settings required by the HTTP server.
type Dependencies struct {
	Logger *zap.Logger

	Views     handler.ViewRecorder
	Links     service.LinkService
	Documents handler.DocumentDuplicator
	Datarooms handler.DataroomViewLister
	Reactions handler.ReactionRecorder
	Notifier  handler.ViewNotifier

	// Limiter applies the global per-ip API limit. Nil disables it.
	Limiter      ratelimit.Limiter
	HealthChecks map[string]handler.HealthCheck

	SessionSecret  []byte
	InternalAPIKey string
	TrustProxy     bool
	// AllowedOrigins restricts CORS. Empty allows any origin.
	AllowedOrigins []string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "DocLink",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.Logger),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS(s.deps.AllowedOrigins))
	if s.deps.Limiter != nil {
		trust := s.deps.TrustProxy
		s.app.Use(middleware.RateLimit(s.deps.Limiter, func(c *fiber.Ctx) string {
			return httpUtil.ClientIP(c, trust)
		}, s.deps.Logger))
	}
	s.app.Use(middleware.Session(s.deps.SessionSecret, s.deps.Logger))
}

func (s *Server) registerRoutes() {
	handler.NewHealthHandler(s.deps.HealthChecks).Register(s.app)

	handler.NewViewHandler(handler.ViewDeps{
		Logger:     s.deps.Logger,
		Views:      s.deps.Views,
		TrustProxy: s.deps.TrustProxy,
	}).Register(s.app)

	handler.NewAPIHandler(handler.APIDeps{
		Logger:    s.deps.Logger,
		Links:     s.deps.Links,
		Documents: s.deps.Documents,
		Datarooms: s.deps.Datarooms,
	}).Register(s.app)

	handler.NewJobHandler(handler.JobDeps{
		Logger:         s.deps.Logger,
		Reactions:      s.deps.Reactions,
		Notifier:       s.deps.Notifier,
		InternalAPIKey: s.deps.InternalAPIKey,
	}).Register(s.app)
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"message": err.Error()})
	}
}
