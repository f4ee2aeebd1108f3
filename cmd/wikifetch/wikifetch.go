// Package wikifetchcmder
package wikifetchcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/wikifetch/cmd/wikifetch/auth"
	configcmder "github.com/papercomputeco/wikifetch/cmd/wikifetch/config"
	initcmder "github.com/papercomputeco/wikifetch/cmd/wikifetch/init"
	prefetchcmder "github.com/papercomputeco/wikifetch/cmd/wikifetch/prefetch"
	resolvecmder "github.com/papercomputeco/wikifetch/cmd/wikifetch/resolve"
	servecmder "github.com/papercomputeco/wikifetch/cmd/wikifetch/serve"
	statscmder "github.com/papercomputeco/wikifetch/cmd/wikifetch/stats"
	versioncmder "github.com/papercomputeco/wikifetch/cmd/version"
)

const wikifetchLongDesc string = `Wikifetch resolves wiki templates and images through a durable local cache.

Every template or image is fetched from the remote wiki at most once, then
served from the cache on every later request.

Get started with:
  wikifetch init --preset wikipedia    Create a local .wikifetch/ directory
  wikifetch resolve template Infobox   Resolve a template
  wikifetch resolve image Logo.png     Download and link an image
  wikifetch prefetch manifest.toml     Warm the cache from a manifest
  wikifetch serve                      Run the HTTP and MCP server`

const wikifetchShortDesc string = "Wikifetch - cached wiki resolution"

func NewWikifetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "wikifetch",
		Short:        wikifetchShortDesc,
		Long:         wikifetchLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .wikifetch/ config directory")

	// Add subcommands
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(prefetchcmder.NewPrefetchCmd())
	cmd.AddCommand(resolvecmder.NewResolveCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
