package resolver_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/wikifetch/pkg/eventstream"
	"github.com/papercomputeco/wikifetch/pkg/resolver"
	"github.com/papercomputeco/wikifetch/pkg/storage"
	"github.com/papercomputeco/wikifetch/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/wikifetch/pkg/utils/test"
	"github.com/papercomputeco/wikifetch/pkg/wikiapi"
	"github.com/papercomputeco/wikifetch/pkg/wikiname"
	"github.com/papercomputeco/wikifetch/pkg/wikitext"
)

var _ = Describe("ResolveContent", func() {
	var (
		ctx       context.Context
		store     *inmemory.Driver
		wiki      *testutils.MockWiki
		publisher *recordingPublisher
		metrics   *resolver.Metrics
		cfg       resolver.Config
	)

	newResolver := func() *resolver.Resolver {
		r, err := resolver.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	template := func(title string) wikiname.PageName {
		return wikiname.Parse(title, wikiname.TemplateNamespace)
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		wiki = testutils.NewMockWiki()
		publisher = &recordingPublisher{}
		metrics = resolver.NewMetrics(prometheus.NewRegistry())
		cfg = resolver.Config{
			Store:          store,
			Content:        wiki,
			Images:         wiki,
			Builtins:       wikitext.NewMagicWords(),
			Codec:          wikiname.NewCodec(false, "", ""),
			ImageDir:       GinkgoT().TempDir(),
			RecursionLimit: 5,
			FetchTimeout:   time.Second,
			Publisher:      publisher,
			Source:         "test-wiki",
			Metrics:        metrics,
		}
	})

	It("fetches a miss once and serves it from the cache afterwards", func() {
		wiki.Pages["Template:Foo"] = "Hello"
		r := newResolver()

		for range 3 {
			text, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Foo"))
			Expect(ok).To(BeTrue())
			Expect(text).To(Equal("Hello"))
		}

		Expect(wiki.Fetches("Template:Foo")).To(Equal(1))

		topic, err := store.GetTopic(ctx, "Template:Foo")
		Expect(err).NotTo(HaveOccurred())
		Expect(topic.Content).To(Equal("Hello"))

		Expect(testutil.ToFloat64(metrics.Resolutions.WithLabelValues("topic", "remote_hit"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.Resolutions.WithLabelValues("topic", "cache_hit"))).To(Equal(2.0))
	})

	It("publishes one event per newly cached topic", func() {
		wiki.Pages["Template:Foo"] = "Hello"
		r := newResolver()

		rc := r.NewContext("Page")
		r.ResolveContent(ctx, rc, template("Foo"))
		r.ResolveContent(ctx, r.NewContext("Page"), template("Foo"))

		events := publisher.Events()
		Expect(events).To(HaveLen(1))
		Expect(events[0].EventType).To(Equal(eventstream.EventTypeTopicCached))
		Expect(events[0].Topic.Name).To(Equal("Template:Foo"))
		Expect(events[0].Source.APIURL).To(Equal("test-wiki"))
		Expect(events[0].RequestID).To(Equal(rc.ID.String()))
	})

	It("follows a redirect: Foo -> Bar", func() {
		wiki.Pages["Template:Foo"] = "#REDIRECT [[Bar]]"
		wiki.Pages["Template:Bar"] = "Hello"
		r := newResolver()

		rc := r.NewContext("Page")
		text, ok := r.ResolveContent(ctx, rc, template("Foo"))
		Expect(ok).To(BeTrue())
		Expect(text).To(Equal("Hello"))
		Expect(rc.Depth()).To(BeZero())
	})

	It("follows a redirect stored in the cache without fetching", func() {
		_, err := store.PutTopic(ctx, &storage.Topic{Name: "Template:Foo", Content: "#REDIRECT [[Template:Bar]]"})
		Expect(err).NotTo(HaveOccurred())
		_, err = store.PutTopic(ctx, &storage.Topic{Name: "Template:Bar", Content: "Hello"})
		Expect(err).NotTo(HaveOccurred())
		r := newResolver()

		text, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Foo"))
		Expect(ok).To(BeTrue())
		Expect(text).To(Equal("Hello"))
		Expect(wiki.Fetches("Template:Foo")).To(BeZero())
		Expect(wiki.Fetches("Template:Bar")).To(BeZero())
	})

	It("stops a redirect cycle: A <-> B with limit 3", func() {
		wiki.Pages["Template:A"] = "#REDIRECT [[B]]"
		wiki.Pages["Template:B"] = "#REDIRECT [[A]]"
		cfg.RecursionLimit = 3
		r := newResolver()

		rc := r.NewContext("Page")
		done := make(chan string)
		go func() {
			defer GinkgoRecover()
			text, ok := r.ResolveContent(ctx, rc, template("A"))
			Expect(ok).To(BeTrue())
			done <- text
		}()

		var text string
		Eventually(done, 2*time.Second).Should(Receive(&text))
		Expect(text).To(HavePrefix("Error - getting content of redirected link: "))
		Expect(text).To(Or(
			Equal("Error - getting content of redirected link: Template:A"),
			Equal("Error - getting content of redirected link: Template:B"),
		))
		Expect(rc.Depth()).To(BeZero())
		Expect(testutil.ToFloat64(metrics.Resolutions.WithLabelValues("topic", "redirect_error"))).To(Equal(1.0))
	})

	DescribeTable("bounds redirect chains by the limit",
		func(length int, resolves bool) {
			cfg.RecursionLimit = 4
			for i := range length {
				wiki.Pages[fmt.Sprintf("Template:T%d", i)] = fmt.Sprintf("#REDIRECT [[T%d]]", i+1)
			}
			wiki.Pages[fmt.Sprintf("Template:T%d", length)] = "end of chain"
			r := newResolver()

			text, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("T0"))
			Expect(ok).To(BeTrue())
			if resolves {
				Expect(text).To(Equal("end of chain"))
			} else {
				Expect(text).To(HavePrefix("Error - getting content of redirected link: Template:T"))
				Expect(len(text)).To(BeNumerically("<", 80))
			}
		},
		Entry("no redirect", 0, true),
		Entry("one hop", 1, true),
		Entry("at the limit", 4, true),
		Entry("one past the limit", 5, false),
		Entry("far past the limit", 40, false),
	)

	It("reports an invalid redirect target inline", func() {
		wiki.Pages["Template:Broken"] = "#REDIRECT [[Bad{name}]]"
		r := newResolver()

		text, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Broken"))
		Expect(ok).To(BeTrue())
		Expect(text).To(Equal("Error - getting content of redirected link: Template:Bad{name}"))
	})

	It("answers a cached empty page with no content and no fetch", func() {
		_, err := store.PutTopic(ctx, &storage.Topic{Name: "Template:Empty", Content: ""})
		Expect(err).NotTo(HaveOccurred())
		wiki.Pages["Template:Empty"] = "remote text that must not be used"
		r := newResolver()

		_, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Empty"))
		Expect(ok).To(BeFalse())
		Expect(wiki.Fetches("Template:Empty")).To(BeZero())
	})

	It("caches a remote empty page so it is not fetched again", func() {
		wiki.Pages["Template:Empty"] = ""
		r := newResolver()

		for range 2 {
			_, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Empty"))
			Expect(ok).To(BeFalse())
		}
		Expect(wiki.Fetches("Template:Empty")).To(Equal(1))

		topic, err := store.GetTopic(ctx, "Template:Empty")
		Expect(err).NotTo(HaveOccurred())
		Expect(topic.Content).To(BeEmpty())
	})

	It("does not cache a page missing on the wiki", func() {
		r := newResolver()

		for range 2 {
			_, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Nope"))
			Expect(ok).To(BeFalse())
		}
		Expect(wiki.Fetches("Template:Nope")).To(Equal(2))

		_, err := store.GetTopic(ctx, "Template:Nope")
		Expect(storage.IsNotFound(err)).To(BeTrue())
		Expect(testutil.ToFloat64(metrics.Resolutions.WithLabelValues("topic", "not_found"))).To(Equal(2.0))
	})

	It("degrades a transport failure to no content", func() {
		wiki.Pages["Template:Foo"] = "Hello"
		wiki.FailWith = fmt.Errorf("%w: connection refused", wikiapi.ErrTransport)
		r := newResolver()

		_, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Foo"))
		Expect(ok).To(BeFalse())

		_, err := store.GetTopic(ctx, "Template:Foo")
		Expect(storage.IsNotFound(err)).To(BeTrue())
		Expect(testutil.ToFloat64(metrics.Resolutions.WithLabelValues("topic", "failed"))).To(Equal(1.0))
	})

	It("treats a slow fetch as a failure for that name only", func() {
		wiki.Pages["Template:Slow"] = "late"
		wiki.Delay = 500 * time.Millisecond
		cfg.FetchTimeout = 20 * time.Millisecond
		r := newResolver()

		start := time.Now()
		_, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Slow"))
		Expect(ok).To(BeFalse())
		Expect(time.Since(start)).To(BeNumerically("<", 400*time.Millisecond))

		_, err := store.GetTopic(ctx, "Template:Slow")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("ignores names outside the template namespace", func() {
		wiki.Pages["Category:Birds"] = "birds"
		r := newResolver()

		_, ok := r.ResolveContent(ctx, r.NewContext("Page"), wikiname.Parse("Category:Birds", ""))
		Expect(ok).To(BeFalse())
		Expect(wiki.Fetches("Category:Birds")).To(BeZero())
	})

	It("resolves builtins before the cache and the wiki", func() {
		wiki.Pages["Template:!"] = "remote pipe"
		r := newResolver()

		text, ok := r.ResolveContent(ctx, r.NewContext("Main Page"), template("!"))
		Expect(ok).To(BeTrue())
		Expect(text).To(Equal("|"))

		text, ok = r.ResolveContent(ctx, r.NewContext("Main Page"), template("PAGENAME"))
		Expect(ok).To(BeTrue())
		Expect(text).To(Equal("Main Page"))
		Expect(wiki.Fetches("Template:!")).To(BeZero())
	})

	It("still returns fetched content when the cache write fails", func() {
		wiki.Pages["Template:Foo"] = "Hello"
		cfg.Store = &failingStore{Driver: store, failPuts: true}
		r := newResolver()

		text, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Foo"))
		Expect(ok).To(BeTrue())
		Expect(text).To(Equal("Hello"))
		Expect(publisher.Events()).To(BeEmpty())
	})

	It("falls back to the wiki when the cache read fails", func() {
		wiki.Pages["Template:Foo"] = "Hello"
		cfg.Store = &failingStore{Driver: store, failReads: true}
		r := newResolver()

		text, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Foo"))
		Expect(ok).To(BeTrue())
		Expect(text).To(Equal("Hello"))
	})

	It("shares one fetch between concurrent requests for the same name", func() {
		wiki.Pages["Template:Busy"] = "Hello"
		wiki.Delay = 50 * time.Millisecond
		r := newResolver()

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				text, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("Busy"))
				Expect(ok).To(BeTrue())
				Expect(text).To(Equal("Hello"))
			}()
		}
		wg.Wait()

		Expect(wiki.Fetches("Template:Busy")).To(Equal(1))
	})

	It("keeps a shared fetch alive when the caller that started it gives up", func() {
		wiki.Pages["Template:Busy"] = "Hello"
		wiki.Delay = 200 * time.Millisecond
		r := newResolver()

		impatient, cancel := context.WithCancel(ctx)
		defer cancel()

		firstDone := make(chan bool, 1)
		go func() {
			_, ok := r.ResolveContent(impatient, r.NewContext("Page"), template("Busy"))
			firstDone <- ok
		}()
		Eventually(func() int { return wiki.Fetches("Template:Busy") }).Should(Equal(1))

		secondDone := make(chan string, 1)
		go func() {
			text, _ := r.ResolveContent(ctx, r.NewContext("Page"), template("Busy"))
			secondDone <- text
		}()
		cancel()

		Eventually(firstDone).Should(Receive(BeFalse()))
		Eventually(secondDone).Should(Receive(Equal("Hello")))
		Expect(wiki.Fetches("Template:Busy")).To(Equal(1))

		topic, err := store.GetTopic(ctx, "Template:Busy")
		Expect(err).NotTo(HaveOccurred())
		Expect(topic.Content).To(Equal("Hello"))
	})

	It("keeps concurrent requests' depth independent", func() {
		wiki.Pages["Template:A0"] = "#REDIRECT [[A1]]"
		wiki.Pages["Template:A1"] = "#REDIRECT [[A2]]"
		wiki.Pages["Template:A2"] = "done"
		cfg.RecursionLimit = 2
		r := newResolver()

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				text, ok := r.ResolveContent(ctx, r.NewContext("Page"), template("A0"))
				Expect(ok).To(BeTrue())
				Expect(text).To(Equal("done"))
			}()
		}
		wg.Wait()
	})

	Describe("ResolveTemplate", func() {
		It("parses the raw name with Template as the default namespace", func() {
			wiki.Pages["Template:Cite web"] = "citation"
			r := newResolver()

			text, ok := r.ResolveTemplate(ctx, "cite_web")
			Expect(ok).To(BeTrue())
			Expect(text).To(Equal("citation"))
		})
	})

	Describe("RedirectError", func() {
		It("formats namespace and title", func() {
			msg := resolver.RedirectError(wikiname.PageName{Namespace: "Template", Title: "X"})
			Expect(msg).To(Equal("Error - getting content of redirected link: Template:X"))
			Expect(strings.Count(msg, ":")).To(Equal(2))
		})
	})
})

var _ = Describe("New", func() {
	It("requires a store, sources and an image directory", func() {
		wiki := testutils.NewMockWiki()

		_, err := resolver.New(resolver.Config{Content: wiki, Images: wiki, ImageDir: GinkgoT().TempDir()})
		Expect(err).To(MatchError(ContainSubstring("store")))

		_, err = resolver.New(resolver.Config{Store: inmemory.NewDriver(), ImageDir: GinkgoT().TempDir()})
		Expect(err).To(MatchError(ContainSubstring("sources")))

		_, err = resolver.New(resolver.Config{Store: inmemory.NewDriver(), Content: wiki, Images: wiki})
		Expect(err).To(MatchError(ContainSubstring("image directory")))
	})

	It("creates the image directory", func() {
		wiki := testutils.NewMockWiki()
		dir := GinkgoT().TempDir() + "/nested/images"

		_, err := resolver.New(resolver.Config{Store: inmemory.NewDriver(), Content: wiki, Images: wiki, ImageDir: dir})
		Expect(err).NotTo(HaveOccurred())
		Expect(dir).To(BeADirectory())
	})

	It("applies defaults", func() {
		wiki := testutils.NewMockWiki()
		r, err := resolver.New(resolver.Config{Store: inmemory.NewDriver(), Content: wiki, Images: wiki, ImageDir: GinkgoT().TempDir()})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.NewContext("Page").Limit()).To(Equal(resolver.DefaultRecursionLimit))
	})
})
