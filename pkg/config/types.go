package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent wikifetch configuration stored as config.toml
// in the .wikifetch/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Storage  StorageConfig  `toml:"storage"`
	Wiki     WikiConfig     `toml:"wiki"`
	Images   ImagesConfig   `toml:"images"`
	Resolver ResolverConfig `toml:"resolver"`
	API      APIConfig      `toml:"api"`
	Events   EventsConfig   `toml:"events"`
	Prefetch PrefetchConfig `toml:"prefetch"`
}

// StorageConfig selects and configures the durable cache.
type StorageConfig struct {
	// Provider is one of "sqlite", "postgres" or "memory".
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// WikiConfig holds settings for the remote MediaWiki API.
type WikiConfig struct {
	APIURL    string `toml:"api_url,omitempty"`
	UserAgent string `toml:"user_agent,omitempty"`

	// Timeout bounds every remote call, as a Go duration string (e.g. "30s").
	Timeout string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout.
func (w WikiConfig) TimeoutDuration() (time.Duration, error) {
	if w.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(w.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid wiki.timeout %q: %w", w.Timeout, err)
	}
	return d, nil
}

// ImagesConfig holds settings for downloaded images and generated links.
type ImagesConfig struct {
	Directory string `toml:"directory,omitempty"`

	// ImageBaseURL must contain "${image}".
	ImageBaseURL string `toml:"image_base_url,omitempty"`

	// LinkBaseURL must contain "${title}".
	LinkBaseURL       string `toml:"link_base_url,omitempty"`
	DefaultThumbWidth uint   `toml:"default_thumb_width,omitempty"`
}

// ResolverConfig holds resolution policy.
type ResolverConfig struct {
	RecursionLimit uint `toml:"recursion_limit,omitempty"`
	ReplaceColon   bool `toml:"replace_colon,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig configures publication of cache population events.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of kafka broker addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// PrefetchConfig sizes the prefetch worker pool.
type PrefetchConfig struct {
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"wiki.api_url":         stringKey(func(c *Config) *string { return &c.Wiki.APIURL }),
	"wiki.user_agent":      stringKey(func(c *Config) *string { return &c.Wiki.UserAgent }),
	"wiki.timeout": {
		get: func(c *Config) string { return c.Wiki.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for wiki.timeout: %w", err)
			}
			c.Wiki.Timeout = v
			return nil
		},
	},
	"images.directory":           stringKey(func(c *Config) *string { return &c.Images.Directory }),
	"images.image_base_url":      stringKey(func(c *Config) *string { return &c.Images.ImageBaseURL }),
	"images.link_base_url":       stringKey(func(c *Config) *string { return &c.Images.LinkBaseURL }),
	"images.default_thumb_width": uintKey("images.default_thumb_width", func(c *Config) *uint { return &c.Images.DefaultThumbWidth }),
	"resolver.recursion_limit":   uintKey("resolver.recursion_limit", func(c *Config) *uint { return &c.Resolver.RecursionLimit }),
	"resolver.replace_colon": {
		get: func(c *Config) string { return strconv.FormatBool(c.Resolver.ReplaceColon) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for resolver.replace_colon: %w", err)
			}
			c.Resolver.ReplaceColon = b
			return nil
		},
	},
	"api.listen":          stringKey(func(c *Config) *string { return &c.API.Listen }),
	"events.provider":     stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":      stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":        stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"prefetch.workers":    uintKey("prefetch.workers", func(c *Config) *uint { return &c.Prefetch.Workers }),
	"prefetch.queue_size": uintKey("prefetch.queue_size", func(c *Config) *uint { return &c.Prefetch.QueueSize }),
}
