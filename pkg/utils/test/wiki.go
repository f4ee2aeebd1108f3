package testutils

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/papercomputeco/wikifetch/pkg/wikiapi"
)

// MockWiki is a test wiki that serves pages, image info and image bytes from
// maps and records every call.
type MockWiki struct {
	mu sync.Mutex

	// Pages maps full page names to wikitext.
	Pages map[string]string

	// Images maps File: titles to image info.
	Images map[string]*wikiapi.ImageInfo

	// Files maps download URLs to bytes.
	Files map[string][]byte

	// FetchCalls counts FetchPageContent calls per name.
	FetchCalls map[string]int

	// InfoCalls counts FetchImageInfo calls per title.
	InfoCalls map[string]int

	// InfoWidths records the width requested per title.
	InfoWidths map[string]int

	// DownloadCalls counts Download calls per URL.
	DownloadCalls map[string]int

	// FailWith, when set, is returned by every call.
	FailWith error

	// FailDownloadAfter writes this many bytes and then fails the download.
	// Zero disables.
	FailDownloadAfter int

	// Delay is slept (honoring ctx) before answering.
	Delay time.Duration
}

// NewMockWiki creates an empty mock wiki.
func NewMockWiki() *MockWiki {
	return &MockWiki{
		Pages:         make(map[string]string),
		Images:        make(map[string]*wikiapi.ImageInfo),
		Files:         make(map[string][]byte),
		FetchCalls:    make(map[string]int),
		InfoCalls:     make(map[string]int),
		InfoWidths:    make(map[string]int),
		DownloadCalls: make(map[string]int),
	}
}

// Fetches returns the number of FetchPageContent calls for name.
func (m *MockWiki) Fetches(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchCalls[name]
}

// Downloads returns the number of Download calls for url.
func (m *MockWiki) Downloads(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DownloadCalls[url]
}

func (m *MockWiki) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", wikiapi.ErrTransport, ctx.Err())
	}
}

func (m *MockWiki) FetchPageContent(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	m.FetchCalls[name]++
	content, ok := m.Pages[name]
	fail := m.FailWith
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if fail != nil {
		return "", fail
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", wikiapi.ErrNotFound, name)
	}
	return content, nil
}

func (m *MockWiki) FetchImageInfo(ctx context.Context, title string, width int) (*wikiapi.ImageInfo, error) {
	m.mu.Lock()
	m.InfoCalls[title]++
	m.InfoWidths[title] = width
	info, ok := m.Images[title]
	fail := m.FailWith
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if fail != nil {
		return nil, fail
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", wikiapi.ErrNotFound, title)
	}

	cp := *info
	return &cp, nil
}

func (m *MockWiki) Download(ctx context.Context, url string, w io.Writer) error {
	m.mu.Lock()
	m.DownloadCalls[url]++
	data, ok := m.Files[url]
	fail := m.FailWith
	failAfter := m.FailDownloadAfter
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return err
	}
	if fail != nil {
		return fail
	}
	if !ok {
		return fmt.Errorf("%w: %s", wikiapi.ErrNotFound, url)
	}

	if failAfter > 0 && failAfter < len(data) {
		_, _ = w.Write(data[:failAfter])
		return fmt.Errorf("%w: connection reset", wikiapi.ErrTransport)
	}

	_, err := w.Write(data)
	return err
}
