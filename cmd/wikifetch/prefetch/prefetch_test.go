package prefetchcmder_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/spf13/cobra"

	prefetchcmder "github.com/papercomputeco/wikifetch/cmd/wikifetch/prefetch"
	"github.com/papercomputeco/wikifetch/pkg/credentials"
	testutils "github.com/papercomputeco/wikifetch/pkg/utils/test"
)

var _ = Describe("Prefetch command", func() {
	var (
		wiki      *testutils.WikiServer
		configDir string
		manifest  string
		out       *gbytes.Buffer
	)

	newCmd := func(args ...string) *cobra.Command {
		cmd := prefetchcmder.NewPrefetchCmd()
		cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
		cmd.PersistentFlags().String("config-dir", "", "Override path to .wikifetch/ config directory")
		cmd.SetOut(out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{manifest,
			"--config-dir", configDir,
			"--api-url", wiki.APIURL(),
			"--storage", "memory",
			"--workers", "2",
		}, args...))
		return cmd
	}

	writeManifest := func(data string) {
		Expect(os.WriteFile(manifest, []byte(data), 0o600)).To(Succeed())
	}

	BeforeEach(func() {
		wiki = testutils.NewWikiServer()
		DeferCleanup(wiki.Close)
		wiki.SetPage("Template:Foo", "foo")
		wiki.SetPage("Template:Bar", "bar")
		wiki.SetImage("File:Logo.png", []byte("png"))

		GinkgoT().Setenv(credentials.EnvUsername, "")
		configDir = GinkgoT().TempDir()
		manifest = filepath.Join(configDir, "manifest.toml")
		out = gbytes.NewBuffer()
	})

	It("has --workers and --watch flags", func() {
		cmd := prefetchcmder.NewPrefetchCmd()
		Expect(cmd.Flags().Lookup("workers")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("watch")).NotTo(BeNil())
	})

	It("resolves every name in the manifest and reports misses", func() {
		writeManifest(`templates = ["Foo", "Missing"]
images = ["Logo.png|thumb"]
`)

		Expect(newCmd().Execute()).To(Succeed())
		Expect(out).To(gbytes.Say("Prefetching 3 names"))
		Expect(out).To(gbytes.Say("2 resolved, 1 missing, 0 dropped"))
	})

	It("fails on an unreadable manifest", func() {
		err := newCmd().Execute()
		Expect(err).To(MatchError(ContainSubstring("reading manifest")))
	})

	It("prefetches again when the manifest changes under --watch", func() {
		writeManifest(`templates = ["Foo"]`)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- newCmd("--watch").ExecuteContext(ctx)
		}()
		DeferCleanup(func() {
			cancel()
			Eventually(done, 5*time.Second).Should(Receive(BeNil()))
		})

		Eventually(out, 5*time.Second).Should(gbytes.Say("1 resolved, 0 missing"))

		Eventually(func() *gbytes.Buffer {
			writeManifest(`templates = ["Foo", "Bar"]`)
			return out
		}).WithTimeout(10 * time.Second).WithPolling(500 * time.Millisecond).
			Should(gbytes.Say("2 resolved, 0 missing"))
	})
})
