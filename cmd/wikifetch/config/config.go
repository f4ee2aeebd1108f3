// Package configcmder provides the config command for managing persistent
// wikifetch configuration stored in the .wikifetch/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wikifetch/pkg/cliui"
	"github.com/papercomputeco/wikifetch/pkg/config"
)

const configLongDesc string = `Manage persistent wikifetch configuration.

Configuration is stored as config.toml in the .wikifetch/ directory and
provides default values for command flags. CLI flags and WIKIFETCH_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  wiki.api_url, wiki.user_agent, wiki.timeout,
  images.directory, images.image_base_url, images.link_base_url,
  images.default_thumb_width,
  resolver.recursion_limit, resolver.replace_colon,
  api.listen,
  events.provider, events.brokers, events.topic,
  prefetch.workers, prefetch.queue_size

Use subcommands to get, set, or list configuration values:
  wikifetch config set <key> <value>    Set a configuration value
  wikifetch config get <key>            Get a configuration value
  wikifetch config list                 List all configuration values

Examples:
  wikifetch config set wiki.api_url https://commons.wikimedia.org/w/api.php
  wikifetch config set resolver.recursion_limit 16
  wikifetch config get storage.provider
  wikifetch config list`

const configShortDesc string = "Manage persistent wikifetch configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validKeyArgs(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
