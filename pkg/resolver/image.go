package resolver

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/wikifetch/pkg/eventstream"
	"github.com/papercomputeco/wikifetch/pkg/storage"
	"github.com/papercomputeco/wikifetch/pkg/wikiapi"
	"github.com/papercomputeco/wikifetch/pkg/wikitext"
)

// ResolveImageLink resolves rawSpec and appends the resulting link to sink.
// Nothing is appended when the image cannot be resolved.
func (r *Resolver) ResolveImageLink(ctx context.Context, sink LinkSink, namespace, rawSpec string) {
	link, ok := r.resolveImage(ctx, namespace, rawSpec)
	if !ok {
		return
	}
	sink.AppendImageLink(*link)
}

// ResolveImage resolves rawSpec to the path of a local file.
func (r *Resolver) ResolveImage(ctx context.Context, namespace, rawSpec string) (string, bool) {
	link, ok := r.resolveImage(ctx, namespace, rawSpec)
	if !ok {
		return "", false
	}
	return link.LocalPath, true
}

func (r *Resolver) resolveImage(ctx context.Context, namespace, rawSpec string) (*ImageLink, bool) {
	format := wikitext.ParseImageSpec(rawSpec, namespace)
	if format.Filename == "" {
		return nil, false
	}

	href := r.codec.Href(namespace, format.Filename)

	// stale is the recorded path of a file that has since vanished.
	var stale string
	rec, err := r.store.GetImage(ctx, format.Filename)
	switch {
	case err == nil:
		if fileExists(rec.Filename) {
			r.observe(kindImage, OutcomeCacheHit)
			r.logger.Debug("image cache hit", "name", format.Filename, "path", rec.Filename)
			return r.imageLink(href, rec.Filename, format), true
		}
		stale = rec.Filename
		r.logger.Debug("cached image file missing, refetching", "name", format.Filename, "path", rec.Filename)
	case !storage.IsNotFound(err):
		r.logger.Warn("image cache read failed", "name", format.Filename, "error", err)
	}

	format.SetDefaultThumbWidth(r.defaultThumbWidth)

	key := "image\x00" + format.Filename + "\x00" + strconv.Itoa(format.Width)
	v, err := r.shared(ctx, key, func(fctx context.Context) (any, error) {
		return r.fetchImage(fctx, format, stale)
	})
	if err != nil {
		r.logFailure("image fetch failed", format.Filename, err)
		r.observe(kindImage, classify(err))
		return nil, false
	}

	r.observe(kindImage, OutcomeRemoteHit)
	return r.imageLink(href, v.(string), format), true
}

// fetchImage looks up image info, downloads the file if it is not already on
// disk and records it. A non-empty stale is the path held by an existing
// record, which is repaired instead of inserted. It returns the local path.
func (r *Resolver) fetchImage(ctx context.Context, format wikitext.ImageFormat, stale string) (string, error) {
	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	title := r.codec.FullName(r.imageNamespace, format.Filename)

	start := time.Now()
	info, err := r.images.FetchImageInfo(fctx, title, format.Width)
	if err != nil {
		r.observeFetch(kindImage, start)
		return "", err
	}

	resourceURL := info.ResourceURL(format.Width)
	path := filepath.Join(r.imageDir, r.localToken(resourceURL, info.Title, title))

	if !fileExists(path) {
		if err := r.download(fctx, resourceURL, path); err != nil {
			r.observeFetch(kindImage, start)
			return "", err
		}
	}
	r.observeFetch(kindImage, start)

	rec := &storage.Image{
		Name:     format.Filename,
		URL:      resourceURL,
		Filename: path,
	}
	if stale != "" {
		r.repairImage(ctx, rec, stale)
		return path, nil
	}

	isNew, err := r.store.PutImage(ctx, rec)
	if err != nil {
		r.logger.Warn("failed to cache image record", "name", format.Filename, "error", err)
		return path, nil
	}

	r.logger.Debug("image fetched", "name", format.Filename, "url", resourceURL, "path", path, "new", isNew)
	if isNew {
		r.publish(ctx, nil, eventstream.NewImageCached(r.source, format.Filename, resourceURL, path))
	}

	return path, nil
}

// repairImage points a record whose file vanished at the file just fetched.
// The record is not new, so no event is published.
func (r *Resolver) repairImage(ctx context.Context, rec *storage.Image, stale string) {
	replaced, err := r.store.ReplaceImage(ctx, rec, stale)
	if err != nil {
		r.logger.Warn("failed to repair image record", "name", rec.Name, "error", err)
		return
	}
	r.logger.Debug("image record repaired",
		"name", rec.Name,
		"stale", stale,
		"path", rec.Filename,
		"replaced", replaced,
	)
}

// localToken names the local file after the last path segment of the
// resource URL, falling back to the page title.
func (r *Resolver) localToken(resourceURL, pageTitle, fallback string) string {
	name := pageTitle
	if name == "" {
		name = fallback
	}

	if u, err := url.Parse(resourceURL); err == nil && u.Path != "" {
		if i := strings.LastIndex(u.Path, "/"); i >= 0 && i < len(u.Path)-1 {
			name = u.Path[i+1:]
		}
	}

	return r.codec.FileToken(name)
}

// download writes rawURL to path through a temp file in the same directory.
// A failed or cancelled download leaves no file behind, and concurrent
// downloads of the same path never expose a partial file.
func (r *Resolver) download(ctx context.Context, rawURL, path string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: image has no url", wikiapi.ErrNotFound)
	}

	tmp, err := os.CreateTemp(r.imageDir, ".download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if err := r.images.Download(ctx, rawURL, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("moving download into place: %w", err)
	}
	tmpName = ""

	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
