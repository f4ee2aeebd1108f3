package configcmder

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wikifetch/pkg/cliui"
	"github.com/papercomputeco/wikifetch/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays all configuration keys and their current values from the
config.toml file stored in the .wikifetch/ directory. The PostgreSQL
connection string is masked because it may carry a password.

Examples:
  wikifetch config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runList(w io.Writer, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(w, cfger)

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}

	keys := config.ValidConfigKeys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		label := cliui.KeyStyle.Render(fmt.Sprintf("%-*s", width, key))
		switch {
		case value == "":
			fmt.Fprintf(w, "  %s  %s\n", label, cliui.DimStyle.Render("<not set>"))
		case key == "storage.postgres_dsn" && cfg.Storage.PostgresDSN != "":
			fmt.Fprintf(w, "  %s  %s\n", label, cliui.DimStyle.Render("<hidden>"))
		default:
			fmt.Fprintf(w, "  %s  %s\n", label, cliui.ValueStyle.Render(strconv.Quote(value)))
		}
	}
	fmt.Fprintln(w)

	return nil
}
