package wikitext_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wikifetch/pkg/wikitext"
)

var _ = Describe("Redirects", func() {
	var redirects *wikitext.Redirects

	BeforeEach(func() {
		redirects = wikitext.NewRedirects()
	})

	DescribeTable("ParseRedirect",
		func(text, target string, ok bool) {
			got, found := redirects.ParseRedirect(text)
			Expect(found).To(Equal(ok))
			Expect(got).To(Equal(target))
		},
		Entry("plain redirect", "#REDIRECT [[Bar]]", "Bar", true),
		Entry("case-insensitive marker", "#redirect [[Template:Bar]]", "Template:Bar", true),
		Entry("colon after marker", "#REDIRECT:[[Bar]]", "Bar", true),
		Entry("leading whitespace and trailing text", "  #REDIRECT [[ Bar ]]\n{{R from move}}", "Bar", true),
		Entry("piped target", "#REDIRECT [[Bar|label]]", "Bar", true),
		Entry("too short", "#REDIR", "", false),
		Entry("ordinary content", "Hello {{world}}", "", false),
		Entry("marker not at start", "See #REDIRECT [[Bar]]", "", false),
		Entry("empty link", "#REDIRECT [[]]", "", false),
	)

	It("recognizes localized markers", func() {
		redirects = wikitext.NewRedirects("#WEITERLEITUNG")
		target, ok := redirects.ParseRedirect("#WEITERLEITUNG [[Ziel]]")
		Expect(ok).To(BeTrue())
		Expect(target).To(Equal("Ziel"))

		_, ok = redirects.ParseRedirect("#REDIRECT [[Bar]]")
		Expect(ok).To(BeTrue())
	})
})
