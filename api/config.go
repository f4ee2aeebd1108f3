// Package api provides an HTTP API server for resolving templates and images
// through the wikifetch cache.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string

	// Gatherer backs GET /metrics. The endpoint is not mounted when nil.
	Gatherer prometheus.Gatherer

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}
