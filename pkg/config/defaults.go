package config

const (
	defaultStorageProvider = "sqlite"

	defaultWikiAPIURL  = "https://en.wikipedia.org/w/api.php"
	defaultWikiTimeout = "30s"

	defaultImageBaseURL      = "${image}"
	defaultLinkBaseURL       = "${title}"
	defaultThumbWidth        = 220
	defaultRecursionLimit    = 32
	defaultAPIListen         = ":8082"
	defaultEventsProvider    = "nop"
	defaultEventsBrokers     = "localhost:9092"
	defaultEventsTopic       = "wikifetch.cache"
	defaultPrefetchWorkers   = 4
	defaultPrefetchQueueSize = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
//
// Storage.SQLitePath and Images.Directory are left empty: they default to
// locations inside the resolved .wikifetch/ directory at startup.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		Wiki: WikiConfig{
			APIURL:  defaultWikiAPIURL,
			Timeout: defaultWikiTimeout,
		},
		Images: ImagesConfig{
			ImageBaseURL:      defaultImageBaseURL,
			LinkBaseURL:       defaultLinkBaseURL,
			DefaultThumbWidth: defaultThumbWidth,
		},
		Resolver: ResolverConfig{
			RecursionLimit: defaultRecursionLimit,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Brokers:  defaultEventsBrokers,
			Topic:    defaultEventsTopic,
		},
		Prefetch: PrefetchConfig{
			Workers:   defaultPrefetchWorkers,
			QueueSize: defaultPrefetchQueueSize,
		},
	}
}
