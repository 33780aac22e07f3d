package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sifan077/curto/internal/app/service"
	inthttp "github.com/sifan077/curto/internal/http/handler"
	"github.com/sifan077/curto/internal/http/middleware"
)

const (
	bodyLimit    = 100 * 1024
	readTimeout  = 8 * time.Second
	writeTimeout = 8 * time.Second
)

// Dependencies bundles what the HTTP server needs.
type Dependencies struct {
	Logger    *zap.Logger
	Links     service.LinkService
	Registry  *prometheus.Registry
	Namespace string
	// RateLimiter enables per-IP rate limiting when non-nil.
	RateLimiter middleware.HitCounter
	// LocalRateLimit limits in process memory when RateLimiter is nil.
	LocalRateLimit bool
	RateLimit      middleware.RateLimitConfig
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.RateLimit.MaxRequests <= 0 {
		deps.RateLimit = middleware.DefaultRateLimitConfig()
	}

	app := fiber.New(fiber.Config{
		AppName:               "curto",
		BodyLimit:             bodyLimit,
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          inthttp.ErrorHandler(deps.Logger),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber app, mainly for app.Test.
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
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Metrics(s.deps.Registry, s.deps.Namespace))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	switch {
	case s.deps.RateLimiter != nil:
		s.app.Use(middleware.RateLimit(s.deps.RateLimiter, s.deps.RateLimit, s.deps.Logger))
	case s.deps.LocalRateLimit:
		s.app.Use(middleware.LocalRateLimit(s.deps.RateLimit))
	}
	s.app.Use(compress.New())
}

func (s *Server) registerRoutes() {
	systemHandler := inthttp.NewSystemHandler(inthttp.SystemDeps{
		Logger:   s.deps.Logger,
		Registry: s.deps.Registry,
		Title:    "curto",
	})
	systemHandler.Register(s.app)

	linkHandler := inthttp.NewLinkHandler(inthttp.LinkDeps{
		Logger:      s.deps.Logger,
		LinkService: s.deps.Links,
	})
	linkHandler.Register(s.app)

	s.app.Use(inthttp.RouteNotFound)
}
