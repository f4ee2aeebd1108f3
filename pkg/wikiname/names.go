// Package wikiname canonicalizes wiki page names into cache keys, URL tokens
// and filesystem tokens.
package wikiname

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	TemplateNamespace = "Template"
	FileNamespace     = "File"
)

// namespaces maps lower-cased names and aliases to their canonical name.
var namespaces = map[string]string{
	"media":          "Media",
	"special":        "Special",
	"talk":           "Talk",
	"user":           "User",
	"user talk":      "User talk",
	"project":        "Project",
	"project talk":   "Project talk",
	"file":           FileNamespace,
	"image":          FileNamespace,
	"file talk":      "File talk",
	"image talk":     "File talk",
	"mediawiki":      "MediaWiki",
	"mediawiki talk": "MediaWiki talk",
	"template":       TemplateNamespace,
	"template talk":  "Template talk",
	"help":           "Help",
	"help talk":      "Help talk",
	"category":       "Category",
	"category talk":  "Category talk",
	"module":         "Module",
	"module talk":    "Module talk",
}

// illegalTitleChars can never appear in a page title.
const illegalTitleChars = "<>[]|{}\x7f"

// PageName is a parsed namespace-qualified page name.
type PageName struct {
	Namespace string
	Title     string

	// Valid is false when the title is empty or holds characters a wiki
	// never allows in a title.
	Valid bool
}

// String returns the "Namespace:Title" form, or the bare title for the main
// namespace.
func (p PageName) String() string {
	return joinName(p.Namespace, p.Title, ':')
}

// CanonicalNamespace returns the canonical spelling of a known namespace
// (or alias) and reports whether it is known.
func CanonicalNamespace(ns string) (string, bool) {
	canonical, ok := namespaces[strings.ToLower(normalizeSpaces(ns))]
	return canonical, ok
}

// IsTemplate reports whether ns is the template namespace.
func IsTemplate(ns string) bool {
	canonical, ok := CanonicalNamespace(ns)
	return ok && canonical == TemplateNamespace
}

// Parse splits a raw page reference into namespace and title. A leading
// known namespace prefix wins; otherwise defaultNamespace is used. A leading
// ':' forces the main namespace. Section anchors are dropped.
func Parse(raw, defaultNamespace string) PageName {
	name := normalizeSpaces(raw)

	if i := strings.IndexByte(name, '#'); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}

	ns := defaultNamespace
	if strings.HasPrefix(name, ":") {
		ns = ""
		name = strings.TrimSpace(name[1:])
	}

	if i := strings.IndexByte(name, ':'); i > 0 {
		if canonical, ok := CanonicalNamespace(name[:i]); ok {
			ns = canonical
			name = strings.TrimSpace(name[i+1:])
		}
	}

	if canonical, ok := CanonicalNamespace(ns); ok {
		ns = canonical
	}

	title := upperFirst(name)
	return PageName{
		Namespace: ns,
		Title:     title,
		Valid:     validTitle(title),
	}
}

// normalizeSpaces maps underscores to spaces, collapses runs of whitespace
// and trims the result.
func normalizeSpaces(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func validTitle(title string) bool {
	if title == "" {
		return false
	}
	if strings.ContainsAny(title, illegalTitleChars) {
		return false
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func joinName(ns, title string, sep byte) string {
	if ns == "" {
		return title
	}
	return ns + string(sep) + title
}
