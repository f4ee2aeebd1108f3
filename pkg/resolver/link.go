package resolver

import (
	"net/url"
	"path/filepath"
	"sync"

	"github.com/papercomputeco/wikifetch/pkg/wikitext"
)

// ImageLink is a resolved image ready to embed: Href points at the image's
// wiki page, Src at the local file and PublicSrc at the file under the
// configured image base URL.
type ImageLink struct {
	Href      string               `json:"href"`
	Src       string               `json:"src"`
	PublicSrc string               `json:"public_src"`
	LocalPath string               `json:"local_path"`
	Format    wikitext.ImageFormat `json:"format"`
}

// LinkSink receives resolved image links, in resolution order.
type LinkSink interface {
	AppendImageLink(link ImageLink)
}

func (r *Resolver) imageLink(href, localPath string, format wikitext.ImageFormat) *ImageLink {
	return &ImageLink{
		Href:      href,
		Src:       fileURL(localPath),
		PublicSrc: r.codec.ImageSrc(localName(localPath)),
		LocalPath: localPath,
		Format:    format,
	}
}

// localName reverses FileToken on the base of path so ImageSrc escapes the
// name exactly once.
func localName(path string) string {
	base := filepath.Base(path)
	if name, err := url.PathUnescape(base); err == nil {
		return name
	}
	return base
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// LinkBuffer is an in-memory LinkSink.
type LinkBuffer struct {
	mu    sync.Mutex
	links []ImageLink
}

var _ LinkSink = (*LinkBuffer)(nil)

// AppendImageLink records link.
func (b *LinkBuffer) AppendImageLink(link ImageLink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.links = append(b.links, link)
}

// Links returns a copy of the recorded links.
func (b *LinkBuffer) Links() []ImageLink {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ImageLink, len(b.links))
	copy(out, b.links)
	return out
}
