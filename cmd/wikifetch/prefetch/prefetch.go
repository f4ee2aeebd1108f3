// Package prefetchcmder provides the prefetch command for warming the cache
// from a manifest of template and image names.
package prefetchcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wikifetch/pkg/cliui"
	"github.com/papercomputeco/wikifetch/pkg/config"
	"github.com/papercomputeco/wikifetch/pkg/engine"
	"github.com/papercomputeco/wikifetch/pkg/logger"
	"github.com/papercomputeco/wikifetch/pkg/prefetch"
)

type prefetchCommander struct {
	watch     bool
	debug     bool
	configDir string

	cfg    *config.Config
	logger *slog.Logger
}

const prefetchLongDesc string = `Warm the wikifetch cache from a manifest file.

The manifest is TOML listing templates and image specs:

  image_namespace = "File"
  templates = ["Cite web", "Infobox person"]
  images = ["Logo.png|thumb", "Map.svg|300px"]

Every name is resolved through the cache by a pool of workers, so names
already cached cost nothing. With --watch the manifest is prefetched again
each time it changes, until interrupted.

Examples:
  wikifetch prefetch manifest.toml
  wikifetch prefetch manifest.toml --workers 8
  wikifetch prefetch manifest.toml --watch`

const prefetchShortDesc string = "Warm the cache from a manifest"

func NewPrefetchCmd() *cobra.Command {
	cmder := &prefetchCommander{}

	cmd := &cobra.Command{
		Use:   "prefetch <manifest>",
		Short: prefetchShortDesc,
		Long:  prefetchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.LoadForCommand(cmd, config.ResolverFlags, config.PrefetchFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0])
		},
	}

	config.AddResolverFlags(cmd)
	config.AddUintFlag(cmd, config.PrefetchFlags, config.FlagWorkers, new(uint))
	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Prefetch again whenever the manifest changes")

	return cmd
}

func (c *prefetchCommander) run(ctx context.Context, out, errOut io.Writer, path string) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(errOut),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(ctx, c.cfg,
		engine.WithConfigDir(c.configDir),
		engine.WithLogger(c.logger),
	)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := c.prefetchOnce(ctx, out, eng, path); err != nil {
		if !c.watch {
			return err
		}
		c.logger.Error("prefetch failed", "manifest", path, "error", err)
	}

	if !c.watch {
		return nil
	}

	c.logger.Info("watching manifest for changes", "manifest", path)
	return prefetch.Watch(ctx, path, prefetch.DefaultDebounce, func() {
		if err := c.prefetchOnce(ctx, out, eng, path); err != nil {
			c.logger.Error("prefetch failed", "manifest", path, "error", err)
		}
	})
}

func (c *prefetchCommander) prefetchOnce(ctx context.Context, out io.Writer, eng *engine.Engine, path string) error {
	manifest, err := prefetch.LoadManifest(path)
	if err != nil {
		return err
	}
	jobs := manifest.Jobs()

	pool, err := prefetch.NewPool(&prefetch.Config{
		Resolver:   eng.Resolver,
		NumWorkers: c.cfg.Prefetch.Workers,
		QueueSize:  c.cfg.Prefetch.QueueSize,
		Logger:     c.logger.With("component", "prefetch"),
	})
	if err != nil {
		return err
	}

	err = cliui.Step(out, fmt.Sprintf("Prefetching %d names", len(jobs)), func() error {
		for _, job := range jobs {
			if err := pool.Submit(ctx, job); err != nil {
				pool.Abort()
				return err
			}
		}
		pool.Close()
		return nil
	})

	summary := pool.Summary()
	fmt.Fprintf(out, "  %s\n",
		cliui.DimStyle.Render(fmt.Sprintf("%d resolved, %d missing, %d dropped",
			summary.Resolved, summary.Missing, summary.Dropped)),
	)

	return err
}
