package resolvecmder_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	resolvecmder "github.com/papercomputeco/wikifetch/cmd/wikifetch/resolve"
	"github.com/papercomputeco/wikifetch/pkg/credentials"
	"github.com/papercomputeco/wikifetch/pkg/resolver"
	testutils "github.com/papercomputeco/wikifetch/pkg/utils/test"
)

var _ = Describe("Resolve command", func() {
	var (
		wiki      *testutils.WikiServer
		configDir string
		imageDir  string
		out       *bytes.Buffer
	)

	newCmd := func(args ...string) *cobra.Command {
		cmd := resolvecmder.NewResolveCmd()
		cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
		cmd.PersistentFlags().String("config-dir", "", "Override path to .wikifetch/ config directory")
		cmd.SetOut(out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append(args,
			"--config-dir", configDir,
			"--api-url", wiki.APIURL(),
			"--image-dir", imageDir,
			"--storage", "sqlite",
		))
		return cmd
	}

	BeforeEach(func() {
		wiki = testutils.NewWikiServer()
		DeferCleanup(wiki.Close)

		GinkgoT().Setenv(credentials.EnvUsername, "")
		configDir = GinkgoT().TempDir()
		imageDir = filepath.Join(configDir, "img")
		out = &bytes.Buffer{}
	})

	It("has template and image subcommands", func() {
		cmd := resolvecmder.NewResolveCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ConsistOf("template", "image"))
	})

	Describe("template", func() {
		It("prints the raw wikitext of a resolved template", func() {
			wiki.SetPage("Template:Greeting", "Hello, {{{1}}}")

			Expect(newCmd("template", "Greeting").Execute()).To(Succeed())
			Expect(out.String()).To(Equal("Hello, {{{1}}}\n"))
		})

		It("answers the second run from the sqlite cache", func() {
			wiki.SetPage("Template:Greeting", "Hello")

			Expect(newCmd("template", "Greeting").Execute()).To(Succeed())
			served := wiki.Requests()

			out.Reset()
			Expect(newCmd("template", "Greeting").Execute()).To(Succeed())
			Expect(out.String()).To(Equal("Hello\n"))
			Expect(wiki.Requests()).To(Equal(served))
		})

		It("fails for a template missing on the wiki", func() {
			err := newCmd("template", "Nope").Execute()
			Expect(err).To(MatchError(ContainSubstring(`template "Nope" not found`)))
		})

		It("requires exactly one name", func() {
			Expect(newCmd("template").Execute()).To(HaveOccurred())
		})
	})

	Describe("image", func() {
		BeforeEach(func() {
			wiki.SetImage("File:Logo.png", []byte("png bytes"))
		})

		It("downloads the image and prints its link as JSON", func() {
			Expect(newCmd("image", "Logo.png", "--json").Execute()).To(Succeed())

			var link resolver.ImageLink
			Expect(json.Unmarshal(out.Bytes(), &link)).To(Succeed())
			Expect(link.LocalPath).To(Equal(filepath.Join(imageDir, "Logo.png")))
			Expect(link.Src).To(HavePrefix("file://"))
			Expect(link.PublicSrc).To(Equal("Logo.png"))
			Expect(os.ReadFile(link.LocalPath)).To(Equal([]byte("png bytes")))
		})

		It("prints a summary by default", func() {
			Expect(newCmd("image", "Logo.png").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Logo.png"))
			Expect(out.String()).To(ContainSubstring("href"))
			Expect(out.String()).To(ContainSubstring("url"))
		})

		It("fails for an image missing on the wiki", func() {
			err := newCmd("image", "Missing.png").Execute()
			Expect(err).To(MatchError(ContainSubstring(`image "Missing.png" not found`)))
		})
	})
})
