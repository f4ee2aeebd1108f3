package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on "wikifetch resolve", "wikifetch prefetch" and "wikifetch serve").
type Flag struct {
	// Name is the long flag name (e.g. "api-url").
	Name string

	// Shorthand is the one-letter short flag (e.g. "s"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "wiki.api_url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagStorageProvider = "storage"
	FlagSQLite          = "sqlite"
	FlagPostgresDSN     = "postgres-dsn"
	FlagAPIURL          = "api-url"
	FlagWikiTimeout     = "timeout"
	FlagImageDir        = "image-dir"
	FlagRecursionLimit  = "recursion-limit"
	FlagReplaceColon    = "replace-colon"
	FlagListen          = "listen"
	FlagEventsProvider  = "events"
	FlagEventsBrokers   = "brokers"
	FlagWorkers         = "workers"
)

// ResolverFlags are the flags shared by every command that resolves names.
var ResolverFlags = FlagSet{
	FlagStorageProvider: {
		Name:        "storage",
		ViperKey:    "storage.provider",
		Description: "Cache storage provider (sqlite, postgres, memory)",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to SQLite cache database (default: .wikifetch/wikifetch.db)",
	},
	FlagPostgresDSN: {
		Name:        "postgres-dsn",
		ViperKey:    "storage.postgres_dsn",
		Description: "PostgreSQL connection string for the postgres storage provider",
	},
	FlagAPIURL: {
		Name:        "api-url",
		Shorthand:   "u",
		ViperKey:    "wiki.api_url",
		Description: "MediaWiki api.php endpoint",
	},
	FlagWikiTimeout: {
		Name:        "timeout",
		ViperKey:    "wiki.timeout",
		Description: "Timeout for each remote wiki call",
	},
	FlagImageDir: {
		Name:        "image-dir",
		ViperKey:    "images.directory",
		Description: "Directory for downloaded images (default: .wikifetch/images)",
	},
	FlagRecursionLimit: {
		Name:        "recursion-limit",
		ViperKey:    "resolver.recursion_limit",
		Description: "Maximum redirect chain depth",
	},
	FlagReplaceColon: {
		Name:        "replace-colon",
		ViperKey:    "resolver.replace_colon",
		Description: "Render namespace separators as '/' in generated links",
	},
	FlagEventsProvider: {
		Name:        "events",
		ViperKey:    "events.provider",
		Description: "Cache event publisher (nop, kafka)",
	},
	FlagEventsBrokers: {
		Name:        "brokers",
		ViperKey:    "events.brokers",
		Description: "Comma separated kafka brokers for the kafka event publisher",
	},
}

// ServeFlags are the flags specific to "wikifetch serve".
var ServeFlags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
}

// PrefetchFlags are the flags specific to "wikifetch prefetch".
var PrefetchFlags = FlagSet{
	FlagWorkers: {
		Name:        "workers",
		Shorthand:   "w",
		ViperKey:    "prefetch.workers",
		Description: "Number of concurrent prefetch workers",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddResolverFlags registers every ResolverFlags entry on cmd. Their values
// are read back through LoadForCommand rather than through variables.
func AddResolverFlags(cmd *cobra.Command) {
	for _, key := range []string{
		FlagStorageProvider,
		FlagSQLite,
		FlagPostgresDSN,
		FlagAPIURL,
		FlagWikiTimeout,
		FlagImageDir,
		FlagEventsProvider,
		FlagEventsBrokers,
	} {
		AddStringFlag(cmd, ResolverFlags, key, new(string))
	}
	AddUintFlag(cmd, ResolverFlags, FlagRecursionLimit, new(uint))
	AddBoolFlag(cmd, ResolverFlags, FlagReplaceColon, new(bool))
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// Keys returns the registry keys of the FlagSet.
func (fs FlagSet) Keys() []string {
	keys := make([]string, 0, len(fs))
	for k := range fs {
		keys = append(keys, k)
	}
	return keys
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}

// LoadForCommand resolves the merged config for cmd: its --config-dir selects
// the config.toml, and flags from the given sets that were registered on cmd
// take precedence over every other source.
func LoadForCommand(cmd *cobra.Command, sets ...FlagSet) (*Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	for _, fs := range sets {
		BindRegisteredFlags(v, cmd, fs, fs.Keys())
	}

	return FromViper(v), nil
}
