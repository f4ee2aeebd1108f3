package testutils

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wikifetch/pkg/storage"
)

// DescribeDriverContract registers the specs every storage.Driver must pass.
// Call it inside a Describe; newDriver runs before each spec and may Skip.
func DescribeDriverContract(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("topics", func() {
		It("returns NotFoundError for an unknown topic", func() {
			_, err := driver.GetTopic(ctx, "Template:Nope")
			Expect(storage.IsNotFound(err)).To(BeTrue())

			var nf storage.NotFoundError
			Expect(err).To(BeAssignableToTypeOf(nf))
			Expect(err.Error()).To(Equal("topic not found: Template:Nope"))
		})

		It("stores and retrieves a topic", func() {
			created := time.UnixMilli(1_700_000_000_000)
			isNew, err := driver.PutTopic(ctx, &storage.Topic{Name: "Template:Foo", Content: "Hello", CreatedAt: created})
			Expect(err).NotTo(HaveOccurred())
			Expect(isNew).To(BeTrue())

			topic, err := driver.GetTopic(ctx, "Template:Foo")
			Expect(err).NotTo(HaveOccurred())
			Expect(topic.Name).To(Equal("Template:Foo"))
			Expect(topic.Content).To(Equal("Hello"))
			Expect(topic.CreatedAt.UnixMilli()).To(Equal(created.UnixMilli()))
		})

		It("keeps empty content distinct from absence", func() {
			_, err := driver.PutTopic(ctx, &storage.Topic{Name: "Template:Empty"})
			Expect(err).NotTo(HaveOccurred())

			topic, err := driver.GetTopic(ctx, "Template:Empty")
			Expect(err).NotTo(HaveOccurred())
			Expect(topic.Content).To(BeEmpty())
			Expect(topic.CreatedAt.IsZero()).To(BeFalse())
		})

		It("lets the first writer win", func() {
			isNew, err := driver.PutTopic(ctx, &storage.Topic{Name: "Template:Foo", Content: "first"})
			Expect(err).NotTo(HaveOccurred())
			Expect(isNew).To(BeTrue())

			isNew, err = driver.PutTopic(ctx, &storage.Topic{Name: "Template:Foo", Content: "second"})
			Expect(err).NotTo(HaveOccurred())
			Expect(isNew).To(BeFalse())

			topic, err := driver.GetTopic(ctx, "Template:Foo")
			Expect(err).NotTo(HaveOccurred())
			Expect(topic.Content).To(Equal("first"))
		})

		It("rejects nil topics", func() {
			_, err := driver.PutTopic(ctx, nil)
			Expect(err).To(HaveOccurred())
		})

		It("survives concurrent inserts of the same name", func() {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				inserts int
			)
			for i := range 8 {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					isNew, err := driver.PutTopic(ctx, &storage.Topic{Name: "Template:Race", Content: "v"})
					Expect(err).NotTo(HaveOccurred())
					if isNew {
						mu.Lock()
						inserts++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()
			Expect(inserts).To(Equal(1))
		})
	})

	Describe("images", func() {
		It("returns NotFoundError for an unknown image", func() {
			_, err := driver.GetImage(ctx, "Nope.png")
			Expect(storage.IsNotFound(err)).To(BeTrue())
			Expect(err.Error()).To(Equal("image not found: Nope.png"))
		})

		It("stores and retrieves an image record", func() {
			isNew, err := driver.PutImage(ctx, &storage.Image{
				Name:     "Logo.png",
				URL:      "https://upload.example/Logo123.png",
				Filename: "/tmp/images/Logo123.png",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(isNew).To(BeTrue())

			img, err := driver.GetImage(ctx, "Logo.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.URL).To(Equal("https://upload.example/Logo123.png"))
			Expect(img.Filename).To(Equal("/tmp/images/Logo123.png"))
		})

		It("lets the first writer win", func() {
			_, err := driver.PutImage(ctx, &storage.Image{Name: "Logo.png", URL: "a", Filename: "/a"})
			Expect(err).NotTo(HaveOccurred())

			isNew, err := driver.PutImage(ctx, &storage.Image{Name: "Logo.png", URL: "b", Filename: "/b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(isNew).To(BeFalse())

			img, err := driver.GetImage(ctx, "Logo.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Filename).To(Equal("/a"))
		})

		It("rejects nil images", func() {
			_, err := driver.PutImage(ctx, nil)
			Expect(err).To(HaveOccurred())
		})

		It("replaces a record whose filename matches the stale one", func() {
			_, err := driver.PutImage(ctx, &storage.Image{Name: "Logo.png", URL: "a", Filename: "/a"})
			Expect(err).NotTo(HaveOccurred())

			replaced, err := driver.ReplaceImage(ctx, &storage.Image{Name: "Logo.png", URL: "b", Filename: "/b"}, "/a")
			Expect(err).NotTo(HaveOccurred())
			Expect(replaced).To(BeTrue())

			img, err := driver.GetImage(ctx, "Logo.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.URL).To(Equal("b"))
			Expect(img.Filename).To(Equal("/b"))
		})

		It("leaves a record alone when the stale filename no longer matches", func() {
			_, err := driver.PutImage(ctx, &storage.Image{Name: "Logo.png", URL: "a", Filename: "/a"})
			Expect(err).NotTo(HaveOccurred())

			replaced, err := driver.ReplaceImage(ctx, &storage.Image{Name: "Logo.png", URL: "c", Filename: "/c"}, "/old")
			Expect(err).NotTo(HaveOccurred())
			Expect(replaced).To(BeFalse())

			img, err := driver.GetImage(ctx, "Logo.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Filename).To(Equal("/a"))
		})

		It("does not create a record that was never stored", func() {
			replaced, err := driver.ReplaceImage(ctx, &storage.Image{Name: "Ghost.png", URL: "g", Filename: "/g"}, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(replaced).To(BeFalse())

			_, err = driver.GetImage(ctx, "Ghost.png")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("lets only one of two racing repairs win", func() {
			_, err := driver.PutImage(ctx, &storage.Image{Name: "Logo.png", URL: "a", Filename: "/a"})
			Expect(err).NotTo(HaveOccurred())

			first, err := driver.ReplaceImage(ctx, &storage.Image{Name: "Logo.png", URL: "b", Filename: "/b"}, "/a")
			Expect(err).NotTo(HaveOccurred())
			second, err := driver.ReplaceImage(ctx, &storage.Image{Name: "Logo.png", URL: "c", Filename: "/c"}, "/a")
			Expect(err).NotTo(HaveOccurred())

			Expect(first).To(BeTrue())
			Expect(second).To(BeFalse())
		})
	})

	Describe("Stats", func() {
		It("counts records", func() {
			_, err := driver.PutTopic(ctx, &storage.Topic{Name: "Template:A", Content: "a"})
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.PutTopic(ctx, &storage.Topic{Name: "Template:B", Content: "b"})
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.PutImage(ctx, &storage.Image{Name: "Logo.png", URL: "u", Filename: "/f"})
			Expect(err).NotTo(HaveOccurred())

			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Topics).To(Equal(2))
			Expect(stats.Images).To(Equal(1))
		})
	})
}
