package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/papercomputeco/wikifetch/api"
	"github.com/papercomputeco/wikifetch/api/mcp"
	"github.com/papercomputeco/wikifetch/pkg/logger"
	"github.com/papercomputeco/wikifetch/pkg/resolver"
	"github.com/papercomputeco/wikifetch/pkg/storage"
	"github.com/papercomputeco/wikifetch/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/wikifetch/pkg/utils/test"
	"github.com/papercomputeco/wikifetch/pkg/wikiapi"
	"github.com/papercomputeco/wikifetch/pkg/wikiname"
)

// brokenStats fails every Stats call.
type brokenStats struct {
	*resolver.Resolver
}

func (brokenStats) Stats(context.Context) (*storage.Stats, error) {
	return nil, errors.New("database is locked")
}

var _ = Describe("Server", func() {
	var (
		wiki     *testutils.MockWiki
		res      *resolver.Resolver
		registry *prometheus.Registry
		server   *api.Server
	)

	do := func(req *http.Request) (int, []byte) {
		resp, err := server.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, body
	}

	get := func(target string) (int, []byte) {
		return do(httptest.NewRequest(http.MethodGet, target, nil))
	}

	BeforeEach(func() {
		wiki = testutils.NewMockWiki()
		wiki.Pages["Template:Cite web"] = "citation"
		wiki.Images["File:Logo.png"] = &wikiapi.ImageInfo{Title: "File:Logo.png", URL: "https://upload.example.org/Logo.png"}
		wiki.Files["https://upload.example.org/Logo.png"] = []byte("png")

		registry = prometheus.NewRegistry()

		var err error
		res, err = resolver.New(resolver.Config{
			Store:    inmemory.NewDriver(),
			Content:  wiki,
			Images:   wiki,
			Codec:    wikiname.NewCodec(false, "https://en.wikipedia.org/wiki/${title}", ""),
			ImageDir: GinkgoT().TempDir(),
			Metrics:  resolver.NewMetrics(registry),
		})
		Expect(err).NotTo(HaveOccurred())

		mcpServer, err := mcp.NewServer(mcp.Config{Resolver: res, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		server, err = api.NewServer(api.Config{
			ListenAddr: ":0",
			Gatherer:   registry,
			MCPHandler: mcpServer.Handler(),
		}, res, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a resolver and logger", func() {
		_, err := api.NewServer(api.Config{}, nil, logger.Nop())
		Expect(err).To(HaveOccurred())
		_, err = api.NewServer(api.Config{}, res, nil)
		Expect(err).To(HaveOccurred())
	})

	It("answers ping", func() {
		status, body := get("/ping")
		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("GET /v1/templates/:name", func() {
		It("returns template content", func() {
			status, body := get("/v1/templates/Cite_web")
			Expect(status).To(Equal(http.StatusOK))

			var resp api.TemplateResponse
			Expect(json.Unmarshal(body, &resp)).To(Succeed())
			Expect(resp).To(Equal(api.TemplateResponse{Name: "Template:Cite web", Content: "citation"}))
		})

		It("unescapes the path", func() {
			status, _ := get("/v1/templates/Cite%20web")
			Expect(status).To(Equal(http.StatusOK))
			Expect(wiki.Fetches("Template:Cite web")).To(Equal(1))
		})

		It("returns 404 for an unknown template", func() {
			status, body := get("/v1/templates/Nope")
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(string(body)).To(ContainSubstring("template not found"))
		})

		It("returns 400 for an invalid name", func() {
			status, _ := get("/v1/templates/" + url.PathEscape("Bad{x}"))
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /v1/images", func() {
		It("returns the image link", func() {
			status, body := get("/v1/images?spec=" + url.QueryEscape("Logo.png|thumb"))
			Expect(status).To(Equal(http.StatusOK))

			var link resolver.ImageLink
			Expect(json.Unmarshal(body, &link)).To(Succeed())
			Expect(link.Href).To(Equal("https://en.wikipedia.org/wiki/File:Logo.png"))
			Expect(link.LocalPath).To(BeARegularFile())
			Expect(link.Format.Type).To(Equal("thumb"))
		})

		It("returns 404 for an unknown image", func() {
			status, _ := get("/v1/images?spec=Nope.png")
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("returns 400 without a spec", func() {
			status, body := get("/v1/images")
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("spec query parameter required"))
		})
	})

	Describe("GET /v1/cache/stats", func() {
		It("counts cached records", func() {
			get("/v1/templates/Cite_web")
			get("/v1/images?spec=Logo.png")

			status, body := get("/v1/cache/stats")
			Expect(status).To(Equal(http.StatusOK))

			var stats storage.Stats
			Expect(json.Unmarshal(body, &stats)).To(Succeed())
			Expect(stats).To(Equal(storage.Stats{Topics: 1, Images: 1}))
		})

		It("returns 500 when the store fails", func() {
			var err error
			server, err = api.NewServer(api.Config{}, brokenStats{res}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			status, _ := get("/v1/cache/stats")
			Expect(status).To(Equal(http.StatusInternalServerError))
		})
	})

	It("exposes resolver metrics", func() {
		get("/v1/templates/Cite_web")

		status, body := get("/metrics")
		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`wikifetch_resolver_resolutions_total{kind="topic",outcome="remote_hit"} 1`))
	})

	It("mounts the MCP handler", func() {
		payload := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"v0"}}}`
		req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")

		status, body := do(req)
		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring("wikifetch"))
	})
})
