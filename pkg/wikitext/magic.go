package wikitext

import (
	"strconv"
	"time"
)

// MagicWords resolves builtin template names that never hit the cache or the
// remote wiki.
type MagicWords struct {
	now func() time.Time
}

// MagicOption configures MagicWords.
type MagicOption func(*MagicWords)

// WithClock overrides the clock used by the CURRENT* words.
func WithClock(now func() time.Time) MagicOption {
	return func(m *MagicWords) {
		m.now = now
	}
}

// NewMagicWords creates a builtin resolver.
func NewMagicWords(opts ...MagicOption) *MagicWords {
	m := &MagicWords{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// escapes are the parser-function escapes for syntax characters.
var escapes = map[string]string{
	"!":  "|",
	"!!": "||",
	"=":  "=",
	"((": "{{",
	"))": "}}",
}

// ResolveBuiltin returns the expansion of a builtin template title.
// pageName is the page being rendered and backs PAGENAME.
func (m *MagicWords) ResolveBuiltin(title, pageName string) (string, bool) {
	if v, ok := escapes[title]; ok {
		return v, true
	}

	now := m.now().UTC()
	switch title {
	case "CURRENTYEAR":
		return strconv.Itoa(now.Year()), true
	case "CURRENTMONTH":
		return now.Format("01"), true
	case "CURRENTMONTHNAME":
		return now.Month().String(), true
	case "CURRENTDAY":
		return strconv.Itoa(now.Day()), true
	case "CURRENTDAYNAME":
		return now.Weekday().String(), true
	case "CURRENTTIME":
		return now.Format("15:04"), true
	case "CURRENTTIMESTAMP":
		return now.Format("20060102150405"), true
	case "PAGENAME":
		return pageName, true
	}

	return "", false
}
