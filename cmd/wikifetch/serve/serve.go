// Package servecmder provides the serve command for running the wikifetch
// HTTP API and MCP server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wikifetch/api"
	"github.com/papercomputeco/wikifetch/api/mcp"
	"github.com/papercomputeco/wikifetch/pkg/config"
	"github.com/papercomputeco/wikifetch/pkg/engine"
	"github.com/papercomputeco/wikifetch/pkg/logger"
	"github.com/papercomputeco/wikifetch/pkg/prefetch"
)

type ServeCommander struct {
	noMCP     bool
	manifest  string
	debug     bool
	json      bool
	logFile   string
	configDir string

	cfg    *config.Config
	logger *slog.Logger
}

const serveLongDesc string = `Run the wikifetch server.

The server answers template and image lookups over HTTP through a shared
cache, exposes Prometheus metrics at /metrics and serves the resolve tools
over MCP (streamable HTTP) at /mcp.

Routes:
  GET /v1/templates/:name           Resolve a template
  GET /v1/images?spec=&namespace=   Resolve an image
  GET /v1/cache/stats               Cache record counts
  GET /metrics                      Prometheus metrics
  /mcp                              MCP endpoint

Examples:
  wikifetch serve
  wikifetch serve --listen :9000 --storage postgres --postgres-dsn postgres://...
  wikifetch serve --prefetch manifest.toml`

const serveShortDesc string = "Run the wikifetch server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.LoadForCommand(cmd, config.ResolverFlags, config.ServeFlags, config.PrefetchFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.logger = logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithPretty(!cmder.json),
				logger.WithJSON(cmder.json),
				logger.WithWriter(cmd.ErrOrStderr()),
			)

			if cmder.logFile != "" {
				f, err := os.OpenFile(cmder.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("opening log file: %w", err)
				}
				defer f.Close()

				cmder.logger = logger.Multi(cmder.logger, logger.New(
					logger.WithDebug(cmder.debug),
					logger.WithJSON(true),
					logger.WithWriter(f),
				))
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddResolverFlags(cmd)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagListen, new(string))
	config.AddUintFlag(cmd, config.PrefetchFlags, config.FlagWorkers, new(uint))
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")
	cmd.Flags().StringVar(&cmder.manifest, "prefetch", "", "Manifest to warm the cache with in the background at startup")
	cmd.Flags().BoolVar(&cmder.json, "json-logs", false, "Emit JSON structured logs")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON structured logs to this file")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
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

	apiConfig := api.Config{
		ListenAddr: c.cfg.API.Listen,
		Gatherer:   eng.Registry,
	}

	if !c.noMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Resolver: eng.Resolver,
			Logger:   c.logger.With("component", "mcp"),
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	server, err := api.NewServer(apiConfig, eng.Resolver, c.logger.With("component", "api"))
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if c.manifest != "" {
		pool, err := c.startPrefetch(eng)
		if err != nil {
			return err
		}
		defer pool.Abort()
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down")
		return server.Shutdown()
	}
}

// startPrefetch queues the manifest without blocking startup. Names that do
// not fit the queue are dropped; they are resolved on first request instead.
func (c *ServeCommander) startPrefetch(eng *engine.Engine) (*prefetch.Pool, error) {
	manifest, err := prefetch.LoadManifest(c.manifest)
	if err != nil {
		return nil, err
	}

	log := c.logger.With("component", "prefetch")
	pool, err := prefetch.NewPool(&prefetch.Config{
		Resolver:   eng.Resolver,
		NumWorkers: c.cfg.Prefetch.Workers,
		QueueSize:  c.cfg.Prefetch.QueueSize,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	jobs := manifest.Jobs()
	for _, job := range jobs {
		pool.Enqueue(job)
	}

	go func() {
		pool.Close()
		s := pool.Summary()
		log.Info("prefetch finished",
			"manifest", c.manifest,
			"resolved", s.Resolved,
			"missing", s.Missing,
			"dropped", s.Dropped,
		)
	}()

	return pool, nil
}
