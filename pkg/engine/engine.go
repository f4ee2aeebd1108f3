// Package engine assembles a ready-to-use resolver from configuration: the
// durable store, the remote wiki client, the event publisher and metrics.
// Every command and the API server start from here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/papercomputeco/wikifetch/pkg/config"
	"github.com/papercomputeco/wikifetch/pkg/credentials"
	"github.com/papercomputeco/wikifetch/pkg/dotdir"
	"github.com/papercomputeco/wikifetch/pkg/eventstream"
	"github.com/papercomputeco/wikifetch/pkg/eventstream/kafka"
	"github.com/papercomputeco/wikifetch/pkg/eventstream/nop"
	"github.com/papercomputeco/wikifetch/pkg/logger"
	"github.com/papercomputeco/wikifetch/pkg/resolver"
	"github.com/papercomputeco/wikifetch/pkg/storage"
	"github.com/papercomputeco/wikifetch/pkg/storage/inmemory"
	"github.com/papercomputeco/wikifetch/pkg/storage/postgres"
	"github.com/papercomputeco/wikifetch/pkg/storage/sqlite"
	"github.com/papercomputeco/wikifetch/pkg/wikiapi"
	"github.com/papercomputeco/wikifetch/pkg/wikiname"
	"github.com/papercomputeco/wikifetch/pkg/wikitext"
)

// Storage providers.
const (
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
	ProviderMemory   = "memory"
)

// Event providers.
const (
	EventsNop   = "nop"
	EventsKafka = "kafka"
)

// Engine owns the long-lived collaborators behind a Resolver.
type Engine struct {
	Resolver  *resolver.Resolver
	Store     storage.Driver
	Client    *wikiapi.Client
	Publisher eventstream.Publisher
	Registry  *prometheus.Registry

	// ImageDir and SQLitePath are the resolved on-disk locations.
	ImageDir   string
	SQLitePath string

	logger *slog.Logger
}

type options struct {
	configDir  string
	logger     *slog.Logger
	httpClient *http.Client
	store      storage.Driver
	publisher  eventstream.Publisher
}

// Option configures New.
type Option func(*options)

// WithConfigDir overrides the .wikifetch/ directory used for default paths
// and credentials.
func WithConfigDir(dir string) Option {
	return func(o *options) { o.configDir = dir }
}

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient overrides the wiki client's HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithStore uses an existing store instead of opening one from config.
// The engine takes ownership and closes it.
func WithStore(s storage.Driver) Option {
	return func(o *options) { o.store = s }
}

// WithPublisher uses an existing publisher instead of building one from
// config. The engine takes ownership and closes it.
func WithPublisher(p eventstream.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// New builds an Engine from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine requires a config")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}

	e := &Engine{
		Registry: prometheus.NewRegistry(),
		logger:   o.logger,
	}

	ok := false
	defer func() {
		if !ok {
			_ = e.Close()
		}
	}()

	timeout, err := cfg.Wiki.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	e.Store = o.store
	if e.Store == nil {
		e.Store, e.SQLitePath, err = newStorageDriver(ctx, cfg.Storage, o.configDir, o.logger)
		if err != nil {
			return nil, err
		}
	}

	e.Publisher = o.publisher
	if e.Publisher == nil {
		e.Publisher, err = newPublisher(cfg.Events, o.logger)
		if err != nil {
			return nil, err
		}
	}

	username, password, err := lookupLogin(cfg.Wiki.APIURL, o.configDir)
	if err != nil {
		return nil, err
	}

	e.Client, err = wikiapi.NewClient(wikiapi.Config{
		APIURL:     cfg.Wiki.APIURL,
		UserAgent:  cfg.Wiki.UserAgent,
		Username:   username,
		Password:   password,
		Timeout:    timeout,
		HTTPClient: o.httpClient,
		Logger:     o.logger.With("component", "wikiapi"),
	})
	if err != nil {
		return nil, err
	}

	e.ImageDir = cfg.Images.Directory
	if e.ImageDir == "" {
		e.ImageDir, err = dotdir.NewManager().ImageDir(o.configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving image directory: %w", err)
		}
	}

	e.Resolver, err = resolver.New(resolver.Config{
		Store:             e.Store,
		Content:           e.Client,
		Images:            e.Client,
		Builtins:          wikitext.NewMagicWords(),
		Redirects:         wikitext.NewRedirects(),
		Codec:             wikiname.NewCodec(cfg.Resolver.ReplaceColon, cfg.Images.LinkBaseURL, cfg.Images.ImageBaseURL),
		ImageDir:          e.ImageDir,
		DefaultThumbWidth: int(cfg.Images.DefaultThumbWidth),
		RecursionLimit:    int(cfg.Resolver.RecursionLimit),
		FetchTimeout:      timeout,
		Publisher:         e.Publisher,
		Source:            e.Client.APIURL(),
		Metrics:           resolver.NewMetrics(e.Registry),
		Logger:            o.logger.With("component", "resolver"),
	})
	if err != nil {
		return nil, err
	}

	o.logger.Debug("engine ready",
		"api_url", e.Client.APIURL(),
		"image_dir", e.ImageDir,
		"storage", cfg.Storage.Provider,
		"events", cfg.Events.Provider,
		"login", username != "",
	)

	ok = true
	return e, nil
}

// Close releases the store and the publisher.
func (e *Engine) Close() error {
	var errs []error
	if e.Publisher != nil {
		if err := e.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing publisher: %w", err))
		}
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func newStorageDriver(ctx context.Context, sc config.StorageConfig, configDir string, log *slog.Logger) (storage.Driver, string, error) {
	switch strings.ToLower(sc.Provider) {
	case ProviderMemory:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), "", nil

	case ProviderPostgres:
		if sc.PostgresDSN == "" {
			return nil, "", errors.New("postgres storage requires storage.postgres_dsn")
		}
		driver, err := postgres.NewDriver(ctx, sc.PostgresDSN)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create postgres storer: %w", err)
		}
		log.Info("using postgres storage")
		return driver, "", nil

	case ProviderSQLite, "":
		path := sc.SQLitePath
		if path == "" {
			var err error
			path, err = dotdir.NewManager().DatabasePath(configDir)
			if err != nil {
				return nil, "", fmt.Errorf("resolving sqlite path: %w", err)
			}
		}
		driver, err := sqlite.NewSQLiteDriver(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		log.Info("using SQLite storage", "path", path)
		return driver, path, nil

	default:
		return nil, "", fmt.Errorf("unknown storage provider: %q", sc.Provider)
	}
}

func newPublisher(ec config.EventsConfig, log *slog.Logger) (eventstream.Publisher, error) {
	switch strings.ToLower(ec.Provider) {
	case EventsNop, "":
		return nop.NewPublisher(), nil

	case EventsKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: strings.Split(ec.Brokers, ","),
			Topic:   ec.Topic,
		})
		if err != nil {
			return nil, err
		}
		log.Info("publishing cache events to kafka", "brokers", ec.Brokers, "topic", ec.Topic)
		return p, nil

	default:
		return nil, fmt.Errorf("unknown events provider: %q", ec.Provider)
	}
}

func lookupLogin(apiURL, configDir string) (string, string, error) {
	if apiURL == "" {
		apiURL = wikiapi.DefaultAPIURL
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return "", "", fmt.Errorf("loading credentials: %w", err)
	}

	login, ok, err := mgr.GetLogin(apiURL)
	if err != nil || !ok {
		return "", "", err
	}
	return login.Username, login.Password, nil
}
