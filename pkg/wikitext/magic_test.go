package wikitext_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wikifetch/pkg/wikitext"
)

var _ = Describe("MagicWords", func() {
	var magic *wikitext.MagicWords

	BeforeEach(func() {
		fixed := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)
		magic = wikitext.NewMagicWords(wikitext.WithClock(func() time.Time { return fixed }))
	})

	DescribeTable("ResolveBuiltin",
		func(title, want string) {
			got, ok := magic.ResolveBuiltin(title, "Main Page")
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(want))
		},
		Entry("pipe escape", "!", "|"),
		Entry("double pipe escape", "!!", "||"),
		Entry("equals escape", "=", "="),
		Entry("open braces", "((", "{{"),
		Entry("close braces", "))", "}}"),
		Entry("year", "CURRENTYEAR", "2024"),
		Entry("month", "CURRENTMONTH", "03"),
		Entry("month name", "CURRENTMONTHNAME", "March"),
		Entry("day", "CURRENTDAY", "5"),
		Entry("day name", "CURRENTDAYNAME", "Tuesday"),
		Entry("time", "CURRENTTIME", "14:07"),
		Entry("timestamp", "CURRENTTIMESTAMP", "20240305140709"),
		Entry("page name", "PAGENAME", "Main Page"),
	)

	It("does not resolve ordinary templates", func() {
		_, ok := magic.ResolveBuiltin("Infobox", "Main Page")
		Expect(ok).To(BeFalse())
	})
})
