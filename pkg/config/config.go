package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/wikifetch/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// keyOrder is the TOML section layout; every configKeys entry appears once.
var keyOrder = []string{
	"storage.provider",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"wiki.api_url",
	"wiki.user_agent",
	"wiki.timeout",
	"images.directory",
	"images.image_base_url",
	"images.link_base_url",
	"images.default_thumb_width",
	"resolver.recursion_limit",
	"resolver.replace_colon",
	"api.listen",
	"events.provider",
	"events.brokers",
	"events.topic",
	"prefetch.workers",
	"prefetch.queue_size",
}

// ValidConfigKeys returns every supported key in section order.
func ValidConfigKeys() []string {
	return slices.Clone(keyOrder)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .wikifetch/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always receive
// a fully-populated Config. Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = defaults.Storage.Provider
	}

	if cfg.Wiki.APIURL == "" {
		cfg.Wiki.APIURL = defaults.Wiki.APIURL
	}
	if cfg.Wiki.Timeout == "" {
		cfg.Wiki.Timeout = defaults.Wiki.Timeout
	}

	if cfg.Images.ImageBaseURL == "" {
		cfg.Images.ImageBaseURL = defaults.Images.ImageBaseURL
	}
	if cfg.Images.LinkBaseURL == "" {
		cfg.Images.LinkBaseURL = defaults.Images.LinkBaseURL
	}
	if cfg.Images.DefaultThumbWidth == 0 {
		cfg.Images.DefaultThumbWidth = defaults.Images.DefaultThumbWidth
	}

	if cfg.Resolver.RecursionLimit == 0 {
		cfg.Resolver.RecursionLimit = defaults.Resolver.RecursionLimit
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Events.Provider == "" {
		cfg.Events.Provider = defaults.Events.Provider
	}
	if cfg.Events.Brokers == "" {
		cfg.Events.Brokers = defaults.Events.Brokers
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = defaults.Events.Topic
	}

	if cfg.Prefetch.Workers == 0 {
		cfg.Prefetch.Workers = defaults.Prefetch.Workers
	}
	if cfg.Prefetch.QueueSize == 0 {
		cfg.Prefetch.QueueSize = defaults.Prefetch.QueueSize
	}
}

// SaveConfig persists the configuration to config.toml in the target .wikifetch/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with defaults pointed at a well known wiki.
// Supported presets: "wikipedia", "commons", "wiktionary".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "wikipedia":
		cfg.Wiki.APIURL = "https://en.wikipedia.org/w/api.php"
		cfg.Images.LinkBaseURL = "https://en.wikipedia.org/wiki/${title}"
	case "commons":
		cfg.Wiki.APIURL = "https://commons.wikimedia.org/w/api.php"
		cfg.Images.LinkBaseURL = "https://commons.wikimedia.org/wiki/${title}"
	case "wiktionary":
		cfg.Wiki.APIURL = "https://en.wiktionary.org/w/api.php"
		cfg.Images.LinkBaseURL = "https://en.wiktionary.org/wiki/${title}"
	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"wikipedia", "commons", "wiktionary"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
