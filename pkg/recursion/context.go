// Package recursion bounds the depth of redirect chains followed while
// resolving a single top-level request.
package recursion

import (
	"github.com/google/uuid"
)

// Context is the resolution context for one top-level request. It is passed
// explicitly down every nested resolution call and must never be shared
// between concurrent requests. It is not safe for concurrent use.
type Context struct {
	// ID correlates log lines and events for one request.
	ID uuid.UUID

	// PageName is the page being rendered, used by builtins such as PAGENAME.
	PageName string

	// Params are the template parameters in scope for the request.
	Params map[string]string

	depth int
	limit int
}

// New creates a Context with the given maximum redirect depth.
func New(limit int) *Context {
	return &Context{
		ID:     uuid.New(),
		Params: map[string]string{},
		limit:  limit,
	}
}

// Enter increments the depth and returns the new value. Callers compare it
// with Exceeded before doing further work and must pair every Enter with
// Exit:
//
//	depth := rc.Enter()
//	defer rc.Exit()
//	if rc.Exceeded(depth) { ... }
func (c *Context) Enter() int {
	c.depth++
	return c.depth
}

// Exit decrements the depth. The depth never drops below zero.
func (c *Context) Exit() {
	if c.depth > 0 {
		c.depth--
	}
}

// Exceeded reports whether depth is past the configured limit.
func (c *Context) Exceeded(depth int) bool {
	return depth > c.limit
}

// Depth returns the current depth.
func (c *Context) Depth() int {
	return c.depth
}

// Limit returns the maximum allowed depth.
func (c *Context) Limit() int {
	return c.limit
}
