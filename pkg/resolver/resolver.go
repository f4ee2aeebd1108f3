// Package resolver is the resolution-and-cache layer: it serves template
// bodies and images from the durable store, fetches and caches them from the
// remote wiki on a miss, and follows redirects under a per-request depth
// bound.
//
// No failure in this package aborts a render. Every failure degrades to
// "no content" or "no link" for the single name being resolved, and is
// reported as an Outcome on the logger and the metrics.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/papercomputeco/wikifetch/pkg/eventstream"
	"github.com/papercomputeco/wikifetch/pkg/logger"
	"github.com/papercomputeco/wikifetch/pkg/recursion"
	"github.com/papercomputeco/wikifetch/pkg/storage"
	"github.com/papercomputeco/wikifetch/pkg/wikiapi"
	"github.com/papercomputeco/wikifetch/pkg/wikiname"
	"github.com/papercomputeco/wikifetch/pkg/wikitext"
)

// Resolver defaults.
const (
	DefaultRecursionLimit    = 32
	DefaultThumbWidth        = 220
	DefaultFetchTimeout      = 30 * time.Second
	DefaultTemplateNamespace = wikiname.TemplateNamespace
	DefaultImageNamespace    = wikiname.FileNamespace
)

// ContentSource fetches raw page text from the remote wiki.
type ContentSource interface {
	FetchPageContent(ctx context.Context, fullName string) (string, error)
}

// ImageSource fetches image metadata and bytes from the remote wiki.
type ImageSource interface {
	FetchImageInfo(ctx context.Context, title string, width int) (*wikiapi.ImageInfo, error)
	Download(ctx context.Context, url string, w io.Writer) error
}

// BuiltinResolver expands magic words before any cache or remote lookup.
type BuiltinResolver interface {
	ResolveBuiltin(title, pageName string) (string, bool)
}

// RedirectParser extracts a redirect target from page text.
type RedirectParser interface {
	ParseRedirect(text string) (string, bool)
}

// Outcome classifies how a single name was resolved.
type Outcome string

const (
	OutcomeCacheHit      Outcome = "cache_hit"
	OutcomeRemoteHit     Outcome = "remote_hit"
	OutcomeBuiltin       Outcome = "builtin"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeFailed        Outcome = "failed"
	OutcomeRedirectError Outcome = "redirect_error"
)

// classify maps a remote or local error to an Outcome.
func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeRemoteHit
	case errors.Is(err, wikiapi.ErrNotFound), storage.IsNotFound(err):
		return OutcomeNotFound
	default:
		return OutcomeFailed
	}
}

// Config is the immutable configuration of a Resolver.
type Config struct {
	// Store is the durable cache. Required.
	Store storage.Driver

	// Content and Images are the remote collaborators. Required.
	Content ContentSource
	Images  ImageSource

	// Builtins are consulted first for template names. Optional.
	Builtins BuiltinResolver

	// Redirects defaults to wikitext.NewRedirects().
	Redirects RedirectParser

	// Codec builds cache keys and link tokens.
	Codec wikiname.Codec

	// ImageDir holds downloaded images. Created if absent. Required.
	ImageDir string

	// ImageNamespace qualifies remote image titles. Defaults to "File".
	ImageNamespace string

	// DefaultThumbWidth is applied to thumbnails without an explicit width.
	DefaultThumbWidth int

	// RecursionLimit is the maximum redirect chain depth.
	RecursionLimit int

	// FetchTimeout bounds every remote call for one name.
	FetchTimeout time.Duration

	// Publisher receives an event for every newly inserted record. Optional.
	Publisher eventstream.Publisher

	// Source identifies the wiki in published events.
	Source string

	// Metrics are optional.
	Metrics *Metrics

	Logger *slog.Logger
}

// Resolver resolves template content and images. It is safe for concurrent
// use; each top-level request brings its own recursion.Context.
type Resolver struct {
	store     storage.Driver
	content   ContentSource
	images    ImageSource
	builtins  BuiltinResolver
	redirects RedirectParser
	codec     wikiname.Codec

	imageDir          string
	imageNamespace    string
	defaultThumbWidth int
	recursionLimit    int
	fetchTimeout      time.Duration

	publisher eventstream.Publisher
	source    string
	metrics   *Metrics
	logger    *slog.Logger

	flight singleflight.Group
}

// New validates cfg, creates the image directory and returns a Resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Store == nil {
		return nil, errors.New("resolver requires a store")
	}
	if cfg.Content == nil || cfg.Images == nil {
		return nil, errors.New("resolver requires content and image sources")
	}
	if cfg.ImageDir == "" {
		return nil, errors.New("resolver requires an image directory")
	}

	if err := os.MkdirAll(cfg.ImageDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	r := &Resolver{
		store:             cfg.Store,
		content:           cfg.Content,
		images:            cfg.Images,
		builtins:          cfg.Builtins,
		redirects:         cfg.Redirects,
		codec:             cfg.Codec,
		imageDir:          cfg.ImageDir,
		imageNamespace:    cfg.ImageNamespace,
		defaultThumbWidth: cfg.DefaultThumbWidth,
		recursionLimit:    cfg.RecursionLimit,
		fetchTimeout:      cfg.FetchTimeout,
		publisher:         cfg.Publisher,
		source:            cfg.Source,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
	}

	if r.redirects == nil {
		r.redirects = wikitext.NewRedirects()
	}
	if r.imageNamespace == "" {
		r.imageNamespace = DefaultImageNamespace
	}
	if r.defaultThumbWidth <= 0 {
		r.defaultThumbWidth = DefaultThumbWidth
	}
	if r.recursionLimit <= 0 {
		r.recursionLimit = DefaultRecursionLimit
	}
	if r.fetchTimeout <= 0 {
		r.fetchTimeout = DefaultFetchTimeout
	}
	if r.logger == nil {
		r.logger = logger.Nop()
	}

	return r, nil
}

// NewContext starts a top-level request for pageName.
func (r *Resolver) NewContext(pageName string) *recursion.Context {
	rc := recursion.New(r.recursionLimit)
	rc.PageName = pageName
	return rc
}

// Codec returns the resolver's name codec.
func (r *Resolver) Codec() wikiname.Codec {
	return r.codec
}

// Stats returns cache record counts.
func (r *Resolver) Stats(ctx context.Context) (*storage.Stats, error) {
	return r.store.Stats(ctx)
}

func (r *Resolver) observe(kind string, outcome Outcome) {
	if r.metrics != nil {
		r.metrics.Resolutions.WithLabelValues(kind, string(outcome)).Inc()
	}
}

func (r *Resolver) publish(ctx context.Context, rc *recursion.Context, event *eventstream.CacheEvent) {
	if r.publisher == nil {
		return
	}
	if rc != nil {
		event.RequestID = rc.ID.String()
	}
	if err := r.publisher.PublishCacheEvent(ctx, event); err != nil {
		r.logger.Warn("failed to publish cache event",
			"event_type", event.EventType,
			"name", event.Key(),
			"error", err,
		)
	}
}

// shared runs fn once for all concurrent callers of key. fn gets a context
// that keeps the first caller's values but not its cancellation, so a caller
// that gives up does not fail the others. Each caller stops waiting when its
// own ctx is done.
func (r *Resolver) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// logFailure logs at debug for not-found and warn for everything else.
func (r *Resolver) logFailure(msg, name string, err error) {
	if classify(err) == OutcomeNotFound {
		r.logger.Debug(msg, "name", name, "outcome", OutcomeNotFound, "error", err)
		return
	}
	r.logger.Warn(msg, "name", name, "outcome", OutcomeFailed, "error", err)
}
