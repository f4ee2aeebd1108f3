// Package statscmder provides the stats command for inspecting an existing
// SQLite cache.
package statscmder

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wikifetch/cmd/wikifetch/sqlitepath"
	"github.com/papercomputeco/wikifetch/pkg/cliui"
	"github.com/papercomputeco/wikifetch/pkg/storage/sqlite"
)

type statsCommander struct {
	sqlitePath string
	json       bool
}

type statsOutput struct {
	Path   string `json:"path"`
	Topics int    `json:"topics"`
	Images int    `json:"images"`
}

const statsLongDesc string = `Show record counts for a SQLite cache.

The cache is located from --sqlite, the WIKIFETCH_SQLITE environment variable
or the well-known locations (./wikifetch.db, ./.wikifetch/wikifetch.db,
~/.wikifetch/wikifetch.db, $XDG_DATA_HOME/wikifetch/wikifetch.db). A missing
cache is reported instead of created.

Examples:
  wikifetch stats
  wikifetch stats --sqlite ./cache.db --json`

const statsShortDesc string = "Show cache record counts"

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to the SQLite cache database")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print the counts as JSON")

	return cmd
}

func (c *statsCommander) run(cmd *cobra.Command, w io.Writer) error {
	path, err := sqlitepath.ResolveSQLitePath(c.sqlitePath)
	if err != nil {
		return err
	}

	driver, err := sqlite.NewSQLiteDriver(path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite cache: %w", err)
	}
	defer driver.Close()

	stats, err := driver.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}

	out := statsOutput{Path: path, Topics: stats.Topics, Images: stats.Images}
	if c.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "\n  %s %s\n\n", cliui.HeaderStyle.Render("Cache"), cliui.DimStyle.Render(out.Path))
	fmt.Fprintf(w, "  %s  %d\n", cliui.KeyStyle.Render("topics"), out.Topics)
	fmt.Fprintf(w, "  %s  %d\n\n", cliui.KeyStyle.Render("images"), out.Images)
	return nil
}
