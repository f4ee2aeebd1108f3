package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/wikifetch/pkg/resolver"
	"github.com/papercomputeco/wikifetch/pkg/wikiname"
)

var (
	resolveTemplateToolName    = "resolve_template"
	resolveTemplateDescription = "Return the wikitext of a template, following redirects. Names without a namespace are looked up in the Template namespace. Results are cached locally."

	resolveImageToolName    = "resolve_image"
	resolveImageDescription = "Download an image named by a wiki image spec such as \"Logo.png|thumb|200px\" into the local cache and return its link and local path."
)

// ResolveTemplateInput represents the input arguments for the resolve_template tool.
type ResolveTemplateInput struct {
	Name string `json:"name" jsonschema:"the template name, e.g. Cite web or Template:Cite web"`
}

// ResolveTemplateOutput represents the output of the resolve_template tool.
type ResolveTemplateOutput struct {
	Name    string `json:"name"`
	Found   bool   `json:"found"`
	Content string `json:"content,omitempty"`
}

// ResolveImageInput represents the input arguments for the resolve_image tool.
type ResolveImageInput struct {
	Spec      string `json:"spec" jsonschema:"the image spec, e.g. Logo.png|thumb|200px"`
	Namespace string `json:"namespace,omitempty" jsonschema:"the image namespace the spec was written in (default: File)"`
}

// ResolveImageOutput represents the output of the resolve_image tool.
type ResolveImageOutput struct {
	Spec  string              `json:"spec"`
	Found bool                `json:"found"`
	Link  *resolver.ImageLink `json:"link,omitempty"`
}

func (s *Server) handleResolveTemplate(ctx context.Context, _ *mcp.CallToolRequest, input ResolveTemplateInput) (*mcp.CallToolResult, ResolveTemplateOutput, error) {
	name := wikiname.Parse(input.Name, resolver.DefaultTemplateNamespace)
	s.config.Logger.Debug("MCP resolve_template request", "name", name.String())

	if !name.Valid {
		return errorResult(fmt.Sprintf("Invalid template name: %q", input.Name)), ResolveTemplateOutput{}, nil
	}

	content, ok := s.config.Resolver.ResolveTemplate(ctx, input.Name)
	output := ResolveTemplateOutput{
		Name:    name.String(),
		Found:   ok,
		Content: content,
	}

	return jsonResult(s, output), output, nil
}

func (s *Server) handleResolveImage(ctx context.Context, _ *mcp.CallToolRequest, input ResolveImageInput) (*mcp.CallToolResult, ResolveImageOutput, error) {
	namespace := input.Namespace
	if namespace == "" {
		namespace = resolver.DefaultImageNamespace
	}
	s.config.Logger.Debug("MCP resolve_image request", "spec", input.Spec, "namespace", namespace)

	if input.Spec == "" {
		return errorResult("Image spec is required"), ResolveImageOutput{}, nil
	}

	buf := &resolver.LinkBuffer{}
	s.config.Resolver.ResolveImageLink(ctx, buf, namespace, input.Spec)

	output := ResolveImageOutput{Spec: input.Spec}
	if links := buf.Links(); len(links) > 0 {
		output.Found = true
		output.Link = &links[0]
	}

	return jsonResult(s, output), output, nil
}

// jsonResult serializes the structured output as JSON into a text block as
// well, for clients that only read text content.
func jsonResult(s *Server, output any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		s.config.Logger.Error("failed to marshal tool output", "error", err)
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
