package wikiname

import (
	"strings"
)

const (
	titleVar = "${title}"
	imageVar = "${image}"
)

// Codec turns names into cache keys and link tokens. A single ReplaceColon
// policy is applied to both Href and ImageSrc so generated links and cached
// file references agree.
type Codec struct {
	// ReplaceColon renders the namespace separator as '/' in generated links.
	ReplaceColon bool

	// LinkBaseURL must contain "${title}".
	LinkBaseURL string

	// ImageBaseURL must contain "${image}".
	ImageBaseURL string
}

// NewCodec returns a Codec with the given link templates. Empty templates
// default to the bare token.
func NewCodec(replaceColon bool, linkBaseURL, imageBaseURL string) Codec {
	if linkBaseURL == "" {
		linkBaseURL = titleVar
	}
	if imageBaseURL == "" {
		imageBaseURL = imageVar
	}
	return Codec{
		ReplaceColon: replaceColon,
		LinkBaseURL:  linkBaseURL,
		ImageBaseURL: imageBaseURL,
	}
}

// FullName is the cache key for a page: "Namespace:Title", or the title
// unchanged when the namespace is empty.
func (c Codec) FullName(namespace, title string) string {
	return joinName(namespace, title, ':')
}

// URLToken escapes name for use inside a URL path. Namespace separators and
// slashes are kept.
func (c Codec) URLToken(name string) string {
	return escape(name, ":/")
}

// FileToken escapes name into a single filesystem path element.
func (c Codec) FileToken(name string) string {
	token := escape(name, "")
	if token == "." || token == ".." {
		return strings.ReplaceAll(token, ".", "%2E")
	}
	return token
}

// Href builds the outbound link for a page from LinkBaseURL.
func (c Codec) Href(namespace, title string) string {
	token := joinName(c.URLToken(namespace), c.URLToken(title), c.separator())
	return strings.ReplaceAll(c.LinkBaseURL, titleVar, token)
}

// ImageSrc builds the outbound image source for a file name from
// ImageBaseURL.
func (c Codec) ImageSrc(filename string) string {
	token := c.URLToken(filename)
	if c.ReplaceColon {
		token = strings.ReplaceAll(token, ":", "/")
	}
	return strings.ReplaceAll(c.ImageBaseURL, imageVar, token)
}

func (c Codec) separator() byte {
	if c.ReplaceColon {
		return '/'
	}
	return ':'
}

const upperhex = "0123456789ABCDEF"

// escape maps spaces to underscores and percent-escapes every byte outside
// [A-Za-z0-9._~-] and keep.
func escape(s, keep string) string {
	s = strings.ReplaceAll(s, " ", "_")

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if unreserved(ch) || strings.IndexByte(keep, ch) >= 0 {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[ch>>4])
		b.WriteByte(upperhex[ch&0x0f])
	}
	return b.String()
}

func unreserved(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	case ch == '-', ch == '.', ch == '_', ch == '~':
		return true
	}
	return false
}
