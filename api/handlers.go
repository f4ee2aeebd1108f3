package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/wikifetch/pkg/resolver"
	"github.com/papercomputeco/wikifetch/pkg/wikiname"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TemplateResponse is the body of GET /v1/templates/:name.
type TemplateResponse struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleGetTemplate resolves a template by name.
func (s *Server) handleGetTemplate(c *fiber.Ctx) error {
	raw := c.Params("name")
	name := wikiname.Parse(raw, resolver.DefaultTemplateNamespace)
	if !name.Valid {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid template name"})
	}

	content, ok := s.resolver.ResolveTemplate(c.Context(), raw)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "template not found"})
	}

	return c.JSON(TemplateResponse{Name: name.String(), Content: content})
}

// handleGetImage resolves an image spec into a local file and link.
func (s *Server) handleGetImage(c *fiber.Ctx) error {
	spec := c.Query("spec")
	if spec == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "spec query parameter required"})
	}
	namespace := c.Query("namespace", resolver.DefaultImageNamespace)

	buf := &resolver.LinkBuffer{}
	s.resolver.ResolveImageLink(c.Context(), buf, namespace, spec)

	links := buf.Links()
	if len(links) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "image not found"})
	}

	return c.JSON(links[0])
}

// handleCacheStats returns record counts for the cache.
func (s *Server) handleCacheStats(c *fiber.Ctx) error {
	stats, err := s.resolver.Stats(c.Context())
	if err != nil {
		s.logger.Error("failed to read cache stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read cache stats"})
	}

	return c.JSON(stats)
}
