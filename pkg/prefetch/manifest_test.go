package prefetch_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wikifetch/pkg/prefetch"
)

var _ = Describe("Manifest", func() {
	It("expands templates then images, skipping blanks and duplicates", func() {
		m, err := prefetch.ParseManifest([]byte(`
templates = ["Cite web", "  ", "Infobox", "Cite web"]
images = ["Logo.png|thumb", "Logo.png|thumb"]
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(m.ImageNamespace).To(Equal("File"))

		Expect(m.Jobs()).To(Equal([]prefetch.Job{
			{Kind: prefetch.KindTemplate, Name: "Cite web"},
			{Kind: prefetch.KindTemplate, Name: "Infobox"},
			{Kind: prefetch.KindImage, Name: "Logo.png|thumb", Namespace: "File"},
		}))
	})

	It("keeps a configured image namespace", func() {
		m, err := prefetch.ParseManifest([]byte(`
image_namespace = "Image"
images = ["Map.svg"]
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Jobs()).To(ConsistOf(prefetch.Job{Kind: prefetch.KindImage, Name: "Map.svg", Namespace: "Image"}))
	})

	It("rejects malformed TOML", func() {
		_, err := prefetch.ParseManifest([]byte("templates = [unterminated"))
		Expect(err).To(MatchError(ContainSubstring("parsing manifest TOML")))
	})

	It("loads a manifest from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "prefetch.toml")
		Expect(os.WriteFile(path, []byte(`templates = ["Foo"]`), 0o600)).To(Succeed())

		m, err := prefetch.LoadManifest(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Templates).To(Equal([]string{"Foo"}))

		_, err = prefetch.LoadManifest(filepath.Join(GinkgoT().TempDir(), "absent.toml"))
		Expect(err).To(MatchError(ContainSubstring("reading manifest")))
	})
})
