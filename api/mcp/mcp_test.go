package mcp_test

import (
	"context"
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wikifetch/api/mcp"
	"github.com/papercomputeco/wikifetch/pkg/logger"
	"github.com/papercomputeco/wikifetch/pkg/resolver"
	"github.com/papercomputeco/wikifetch/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/wikifetch/pkg/utils/test"
	"github.com/papercomputeco/wikifetch/pkg/wikiapi"
	"github.com/papercomputeco/wikifetch/pkg/wikiname"
)

var _ = Describe("MCP Server", func() {
	var (
		ctx     context.Context
		wiki    *testutils.MockWiki
		res     *resolver.Resolver
		server  *mcp.Server
		session *sdkmcp.ClientSession
	)

	callTool := func(name string, args map[string]any) *sdkmcp.CallToolResult {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	textOf := func(result *sdkmcp.CallToolResult) string {
		Expect(result.Content).To(HaveLen(1))
		text, ok := result.Content[0].(*sdkmcp.TextContent)
		Expect(ok).To(BeTrue())
		return text.Text
	}

	BeforeEach(func() {
		ctx = context.Background()
		wiki = testutils.NewMockWiki()
		wiki.Pages["Template:Foo"] = "Hello"
		wiki.Images["File:Logo.png"] = &wikiapi.ImageInfo{Title: "File:Logo.png", URL: "https://upload.example.org/Logo.png"}
		wiki.Files["https://upload.example.org/Logo.png"] = []byte("png")

		var err error
		res, err = resolver.New(resolver.Config{
			Store:    inmemory.NewDriver(),
			Content:  wiki,
			Images:   wiki,
			Codec:    wikiname.NewCodec(false, "", ""),
			ImageDir: GinkgoT().TempDir(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = mcp.NewServer(mcp.Config{Resolver: res, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		session = connect(ctx, server)
		DeferCleanup(session.Close)
	})

	Describe("NewServer", func() {
		It("returns an error when the resolver is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("resolver is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Resolver: res})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("builds an empty server in noop mode", func() {
			noop, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(noop.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	It("lists both tools", func() {
		tools, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
		Expect(err).NotTo(HaveOccurred())

		var names []string
		for _, t := range tools.Tools {
			names = append(names, t.Name)
		}
		Expect(names).To(ConsistOf("resolve_template", "resolve_image"))
	})

	Describe("resolve_template", func() {
		It("returns the template content", func() {
			result := callTool("resolve_template", map[string]any{"name": "foo"})
			Expect(result.IsError).To(BeFalse())

			var out mcp.ResolveTemplateOutput
			Expect(json.Unmarshal([]byte(textOf(result)), &out)).To(Succeed())
			Expect(out).To(Equal(mcp.ResolveTemplateOutput{Name: "Template:Foo", Found: true, Content: "Hello"}))
		})

		It("reports a missing template as not found", func() {
			result := callTool("resolve_template", map[string]any{"name": "Nope"})
			Expect(result.IsError).To(BeFalse())

			var out mcp.ResolveTemplateOutput
			Expect(json.Unmarshal([]byte(textOf(result)), &out)).To(Succeed())
			Expect(out.Found).To(BeFalse())
		})

		It("flags an invalid name as a tool error", func() {
			result := callTool("resolve_template", map[string]any{"name": "Bad{name}"})
			Expect(result.IsError).To(BeTrue())
			Expect(textOf(result)).To(ContainSubstring("Invalid template name"))
		})
	})

	Describe("resolve_image", func() {
		It("returns the link for a cached image", func() {
			result := callTool("resolve_image", map[string]any{"spec": "Logo.png|left"})
			Expect(result.IsError).To(BeFalse())

			var out mcp.ResolveImageOutput
			Expect(json.Unmarshal([]byte(textOf(result)), &out)).To(Succeed())
			Expect(out.Found).To(BeTrue())
			Expect(out.Link.Href).To(Equal("File:Logo.png"))
			Expect(out.Link.LocalPath).To(BeARegularFile())
			Expect(out.Link.Format.Location).To(Equal("left"))
		})

		It("reports a missing image as not found", func() {
			result := callTool("resolve_image", map[string]any{"spec": "Nope.png"})

			var out mcp.ResolveImageOutput
			Expect(json.Unmarshal([]byte(textOf(result)), &out)).To(Succeed())
			Expect(out.Found).To(BeFalse())
			Expect(out.Link).To(BeNil())
		})

		It("flags an empty spec as a tool error", func() {
			result := callTool("resolve_image", map[string]any{"spec": ""})
			Expect(result.IsError).To(BeTrue())
		})
	})
})

// connect wires an in-memory client session to server.
func connect(ctx context.Context, server *mcp.Server) *sdkmcp.ClientSession {
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()

	_, err := server.MCPServer().Connect(ctx, serverTransport, nil)
	Expect(err).NotTo(HaveOccurred())

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "wikifetch-test", Version: "v0.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	Expect(err).NotTo(HaveOccurred())

	return session
}
