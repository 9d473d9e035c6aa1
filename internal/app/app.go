// Package app wires the catalog, ingestion and remote store from config.
// Both the HTTP server and the CLI start from here.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/eppla/storefront/config"
	"github.com/eppla/storefront/internal/catalog"
	"github.com/eppla/storefront/internal/database"
	httpclient "github.com/eppla/storefront/internal/http"
	"github.com/eppla/storefront/internal/parsers/xml"
	"github.com/eppla/storefront/internal/pipeline"
	"github.com/eppla/storefront/internal/pricing"
	"github.com/eppla/storefront/internal/storage"
)

// App holds the long-lived services
type App struct {
	Config   *config.Config
	Storage  storage.Storage
	Remote   catalog.RemoteStore
	Catalog  *catalog.Service
	Pipeline *pipeline.Pipeline

	closers []func()
}

// New builds the services described by cfg. The catalog is not hydrated.
// A remote store that cannot be reached at startup is disabled with a
// warning so the local and bundled catalogs still serve.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := OpenStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.Storage = store

	remote, closer, err := a.openRemote(ctx)
	if err != nil {
		log.Warn().Err(err).Str("type", cfg.Remote.Type).Msg("Remote catalog store unavailable; remote disabled")
		remote = catalog.DisabledRemote{}
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.Remote = remote

	engine, err := pricing.NewEngine(cfg.PricingEngineConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid pricing config: %w", err)
	}
	normalizer, err := catalog.NewNormalizer(cfg.NormalizerOptions())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid feed config: %w", err)
	}

	a.Catalog = catalog.NewService(
		catalog.NewLocalStore(store),
		remote,
		catalog.NewClassifier(cfg.ClassifierOptions()),
		catalog.WithClientName(cfg.Server.ClientName),
	)

	opts := []pipeline.Option{pipeline.WithFetcher(httpclient.NewClient(cfg.FeedClientConfig()))}
	if cfg.Storage.ArchiveFeed {
		opts = append(opts, pipeline.WithArchive(store))
	}
	a.Pipeline = pipeline.New(a.Catalog, xml.NewParser(cfg.ParserOptions()), normalizer, engine, opts...)
	return a, nil
}

// OpenStorage opens the configured local storage backend
func OpenStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch storage.StorageType(cfg.Type) {
	case storage.StorageTypeMemory:
		return storage.NewMemoryStorage(), nil
	case storage.StorageTypeLocal, "":
		s, err := storage.NewLocalStorage(cfg.BasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open local storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func (a *App) openRemote(ctx context.Context) (catalog.RemoteStore, func(), error) {
	cfg := a.Config
	ctx, cancel := context.WithTimeout(ctx, cfg.Remote.Timeout)
	defer cancel()

	switch cfg.Remote.Type {
	case config.RemotePostgres:
		pool, err := database.Connect(ctx, cfg.PostgresConfig())
		if err != nil {
			return nil, nil, err
		}
		remote := catalog.NewPostgresRemote(pool)
		if err := remote.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info().Msg("Remote catalog store: postgres")
		return remote, pool.Close, nil
	case config.RemoteRedis:
		client, err := database.ConnectRedis(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("Remote catalog store: redis")
		return catalog.NewRedisRemote(client, cfg.Remote.RedisPrefix), func() { _ = client.Close() }, nil
	default:
		log.Info().Msg("Remote catalog store disabled")
		return catalog.DisabledRemote{}, nil, nil
	}
}

// Close releases remote connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
