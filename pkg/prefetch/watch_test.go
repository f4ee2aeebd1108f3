package prefetch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wikifetch/pkg/prefetch"
)

var _ = Describe("Watch", func() {
	It("calls back once per burst of writes to the watched file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "prefetch.toml")
		Expect(os.WriteFile(path, []byte(`templates = []`), 0o600)).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var calls atomic.Int32
		done := make(chan error, 1)
		go func() {
			done <- prefetch.Watch(ctx, path, 50*time.Millisecond, func() { calls.Add(1) })
		}()

		// Give the watcher time to register before writing.
		time.Sleep(100 * time.Millisecond)

		Expect(os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o600)).To(Succeed())
		for range 3 {
			Expect(os.WriteFile(path, []byte(`templates = ["Foo"]`), 0o600)).To(Succeed())
		}

		Eventually(calls.Load, time.Second).Should(Equal(int32(1)))
		Consistently(calls.Load, 200*time.Millisecond).Should(Equal(int32(1)))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})
})
