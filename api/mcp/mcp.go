// Package mcp provides an MCP (Model Context Protocol) server exposing the
// resolver as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/wikifetch/pkg/resolver"
	"github.com/papercomputeco/wikifetch/pkg/utils"
)

// Resolver is the part of resolver.Resolver the tools call.
type Resolver interface {
	ResolveTemplate(ctx context.Context, raw string) (string, bool)
	ResolveImageLink(ctx context.Context, sink resolver.LinkSink, namespace, rawSpec string)
}

type Config struct {
	// Resolver answers tool calls.
	Resolver Resolver

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the resolve tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "wikifetch",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Resolver == nil {
			return nil, errors.New("resolver is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        resolveTemplateToolName,
			Description: resolveTemplateDescription,
		}, s.handleResolveTemplate)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        resolveImageToolName,
			Description: resolveImageDescription,
		}, s.handleResolveImage)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying MCP server, e.g. to connect it to a
// transport other than HTTP.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
