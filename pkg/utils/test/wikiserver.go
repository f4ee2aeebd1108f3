package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"sync/atomic"
)

// WikiServer is an httptest server speaking the subset of the MediaWiki
// action API the wiki client uses. Image bytes are served under /images/ and
// thumbnails under /images/thumb/<width>px-<name>.
type WikiServer struct {
	*httptest.Server

	mu     sync.Mutex
	pages  map[string]string
	images map[string][]byte

	requests atomic.Int64
}

// NewWikiServer starts an empty wiki. Callers must Close it.
func NewWikiServer() *WikiServer {
	s := &WikiServer{
		pages:  make(map[string]string),
		images: make(map[string][]byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", s.handleAPI)
	mux.HandleFunc("/images/", s.handleImage)
	s.Server = httptest.NewServer(mux)

	return s
}

// APIURL returns the api.php endpoint.
func (s *WikiServer) APIURL() string {
	return s.URL + "/w/api.php"
}

// SetPage stores wikitext for a full page name such as "Template:Foo".
func (s *WikiServer) SetPage(title, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[title] = content
}

// SetImage stores bytes for a "File:" title.
func (s *WikiServer) SetImage(title string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[fileName(title)] = data
}

// Requests returns the number of API and image requests served.
func (s *WikiServer) Requests() int64 {
	return s.requests.Load()
}

func fileName(title string) string {
	if i := strings.IndexByte(title, ':'); i >= 0 {
		title = title[i+1:]
	}
	return strings.ReplaceAll(title, " ", "_")
}

func (s *WikiServer) handleAPI(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	q := r.URL.Query()
	title := q.Get("titles")

	s.mu.Lock()
	defer s.mu.Unlock()

	p := map[string]any{"title": title}
	switch q.Get("prop") {
	case "revisions":
		content, ok := s.pages[title]
		if !ok {
			p["missing"] = true
			break
		}
		p["revisions"] = []any{
			map[string]any{"slots": map[string]any{"main": map[string]any{"content": content}}},
		}

	case "imageinfo":
		name := fileName(title)
		if _, ok := s.images[name]; !ok {
			p["missing"] = true
			break
		}
		info := map[string]any{"url": s.URL + "/images/" + name}
		if width := q.Get("iiurlwidth"); width != "" {
			info["thumburl"] = s.URL + "/images/thumb/" + width + "px-" + name
		}
		p["imageinfo"] = []any{info}

	default:
		writeJSON(w, map[string]any{"error": map[string]any{"code": "badvalue", "info": "unsupported prop"}})
		return
	}

	writeJSON(w, map[string]any{"query": map[string]any{"pages": []any{p}}})
}

func (s *WikiServer) handleImage(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	name := path.Base(r.URL.Path)
	if strings.HasPrefix(r.URL.Path, "/images/thumb/") {
		if i := strings.Index(name, "px-"); i >= 0 {
			name = name[i+len("px-"):]
		}
	}

	s.mu.Lock()
	data, ok := s.images[name]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
