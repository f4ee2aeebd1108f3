// Package initcmder provides the init command for initializing a local
// .wikifetch directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/wikifetch/pkg/config"
)

const (
	dirName = ".wikifetch"

	remoteConfigTimeout = 15 * time.Second
	maxRemoteConfigSize = 1 << 20
)

type initCommander struct {
	preset string
}

const initLongDesc string = `Initialize a new .wikifetch/ directory in the current working directory.

Creates a local .wikifetch/ directory that takes precedence over the default
~/.wikifetch/ directory for configuration, credentials, the cache database
and downloaded images, and writes a config.toml into it.

A preset points the config at a well known wiki, or at a config.toml served
over HTTP. Re-running init with --preset overwrites the existing config.

Available presets: wikipedia, commons, wiktionary

Examples:
  wikifetch init
  wikifetch init --preset commons
  wikifetch init --preset https://example.org/wikifetch/config.toml`

const initShortDesc string = "Initialize a local .wikifetch/ directory"

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Preset name or URL of a config.toml to start from")

	return cmd
}

func (c *initCommander) run(w io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .wikifetch directory: %w", err)
	}

	if existed {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	} else {
		fmt.Fprintf(w, "Initialized .wikifetch directory: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if c.preset == "" {
		if _, err := os.Stat(cfger.GetTarget()); err == nil {
			return nil
		}
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote default config: %s\n", cfger.GetTarget())
		return nil
	}

	cfg, err := c.presetConfig()
	if err != nil {
		return err
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote %s config: %s\n", c.preset, cfger.GetTarget())
	return nil
}

func (c *initCommander) presetConfig() (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(c.preset)
	}
	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: remoteConfigTimeout}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	if len(data) > maxRemoteConfigSize {
		return nil, errors.New("fetching remote config: config exceeds 1MiB")
	}

	return config.ParseConfigTOML(data)
}
