package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/wikifetch/pkg/resolver"
	"github.com/papercomputeco/wikifetch/pkg/storage"
)

// Resolver is the part of resolver.Resolver the server calls.
type Resolver interface {
	ResolveTemplate(ctx context.Context, raw string) (string, bool)
	ResolveImageLink(ctx context.Context, sink resolver.LinkSink, namespace, rawSpec string)
	Stats(ctx context.Context) (*storage.Stats, error)
}

// Server is the API server for the wikifetch cache.
type Server struct {
	config   Config
	resolver Resolver
	logger   *slog.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The resolver is injected so the server shares one cache with the other
// components started in the same process.
func NewServer(config Config, res Resolver, logger *slog.Logger) (*Server, error) {
	if res == nil {
		return nil, errors.New("resolver is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		UnescapePath:          true,
	})

	s := &Server{
		config:   config,
		resolver: res,
		logger:   logger,
		app:      app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/templates/:name", s.handleGetTemplate)
	app.Get("/v1/images", s.handleGetImage)
	app.Get("/v1/cache/stats", s.handleCacheStats)

	if config.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})))
	}
	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// App returns the underlying fiber app, e.g. for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
