// Package resolvecmder provides the resolve command for resolving a single
// template or image through the cache.
package resolvecmder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wikifetch/pkg/config"
	"github.com/papercomputeco/wikifetch/pkg/engine"
	"github.com/papercomputeco/wikifetch/pkg/logger"
)

const resolveLongDesc string = `Resolve a template or an image through the wikifetch cache.

A name already in the cache is answered locally. A miss is fetched from the
configured wiki once and stored for every later request.

Examples:
  wikifetch resolve template Infobox
  wikifetch resolve template "Template:Cite web" --raw
  wikifetch resolve image "Logo.png|thumb|120px"`

const resolveShortDesc string = "Resolve a template or an image"

func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: resolveShortDesc,
		Long:  resolveLongDesc,
	}

	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newImageCmd())

	return cmd
}

// openEngine builds the engine shared by both subcommands from the merged
// config of cmd.
func openEngine(ctx context.Context, cmd *cobra.Command) (*engine.Engine, *slog.Logger, error) {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, nil, fmt.Errorf("could not get debug flag: %w", err)
	}
	configDir, _ := cmd.Flags().GetString("config-dir")

	cfg, err := config.LoadForCommand(cmd, config.ResolverFlags)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithWriter(cmd.ErrOrStderr()),
	)

	eng, err := engine.New(ctx, cfg,
		engine.WithConfigDir(configDir),
		engine.WithLogger(log),
	)
	if err != nil {
		return nil, nil, err
	}

	return eng, log, nil
}
