// Package wikitext recognizes the small pieces of wikitext the resolver needs:
// redirect markers, builtin magic words and image link specs.
package wikitext

import (
	"regexp"
	"strings"
)

// MinRedirectLen is the length of "#REDIRECT". Shorter text can never be a
// redirect.
const MinRedirectLen = len("#REDIRECT")

// Redirects parses redirect markers. The English marker is always
// recognized; localized markers (for example "#WEITERLEITUNG") can be added.
type Redirects struct {
	pattern *regexp.Regexp
}

// NewRedirects returns a parser recognizing "#REDIRECT" plus any extra markers.
func NewRedirects(markers ...string) *Redirects {
	alts := []string{regexp.QuoteMeta("#REDIRECT")}
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		alts = append(alts, regexp.QuoteMeta(m))
	}

	expr := `(?is)^\s*(?:` + strings.Join(alts, "|") + `)\s*:?\s*\[\[([^\]|]+)(?:\|[^\]]*)?\]\]`
	return &Redirects{pattern: regexp.MustCompile(expr)}
}

// ParseRedirect returns the target of a redirect page, if text is one.
func (r *Redirects) ParseRedirect(text string) (string, bool) {
	if len(text) < MinRedirectLen {
		return "", false
	}

	m := r.pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	target := strings.TrimSpace(m[1])
	if target == "" {
		return "", false
	}
	return target, true
}
