package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/wikifetch/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the WIKIFETCH_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (WIKIFETCH_WIKI_API_URL, WIKIFETCH_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("WIKIFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the merged viper view.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Wiki: WikiConfig{
			APIURL:    v.GetString("wiki.api_url"),
			UserAgent: v.GetString("wiki.user_agent"),
			Timeout:   v.GetString("wiki.timeout"),
		},
		Images: ImagesConfig{
			Directory:         v.GetString("images.directory"),
			ImageBaseURL:      v.GetString("images.image_base_url"),
			LinkBaseURL:       v.GetString("images.link_base_url"),
			DefaultThumbWidth: v.GetUint("images.default_thumb_width"),
		},
		Resolver: ResolverConfig{
			RecursionLimit: v.GetUint("resolver.recursion_limit"),
			ReplaceColon:   v.GetBool("resolver.replace_colon"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		Prefetch: PrefetchConfig{
			Workers:   v.GetUint("prefetch.workers"),
			QueueSize: v.GetUint("prefetch.queue_size"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Wiki
	v.SetDefault("wiki.api_url", d.Wiki.APIURL)
	v.SetDefault("wiki.user_agent", d.Wiki.UserAgent)
	v.SetDefault("wiki.timeout", d.Wiki.Timeout)

	// Images
	v.SetDefault("images.directory", d.Images.Directory)
	v.SetDefault("images.image_base_url", d.Images.ImageBaseURL)
	v.SetDefault("images.link_base_url", d.Images.LinkBaseURL)
	v.SetDefault("images.default_thumb_width", d.Images.DefaultThumbWidth)

	// Resolver
	v.SetDefault("resolver.recursion_limit", d.Resolver.RecursionLimit)
	v.SetDefault("resolver.replace_colon", d.Resolver.ReplaceColon)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Prefetch
	v.SetDefault("prefetch.workers", d.Prefetch.Workers)
	v.SetDefault("prefetch.queue_size", d.Prefetch.QueueSize)
}
