// Package app provides the composition root: it wires config, logging,
// metrics, the cache backend, the persister, the catalog service and the
// client-state stores, and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"shopwise/config"
	"shopwise/internal/cache"
	"shopwise/internal/catalog"
	"shopwise/internal/fakestore"
	"shopwise/internal/metrics"
	"shopwise/internal/state"
)

// Options holds optional wiring for New.
type Options struct {
	// ThemeApply receives theme changes; nil means no presentation hook.
	ThemeApply state.ApplyFunc
}

// App bundles all constructed components. The catalog cache is owned here
// and injected into the service, not reached through package globals, so
// every App (and every test) gets isolated state.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Catalog   *catalog.Service
	Cart      *state.Cart
	Favorites *state.Favorites
	Filters   *state.Filters
	Theme     *state.Theme

	cache     cache.Cache
	persister state.Persister

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates an App from cfg. The caller must call Close to release
// resources.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := metrics.New(nil)

	entityCache, err := newCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	client := fakestore.New(fakestore.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		Retries:   cfg.API.Retries,
		BaseDelay: cfg.API.RetryBaseDelay,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
	}, logger, m)

	service := catalog.NewService(catalog.ServiceConfig{
		Fetcher: client,
		Cache:   entityCache,
		TTLs: catalog.TTLs{
			Products:   cfg.Cache.ProductsTTL,
			Product:    cfg.Cache.ProductTTL,
			Categories: cfg.Cache.CategoriesTTL,
		},
		Logger:  logger,
		Metrics: m,
	})

	persister, err := newPersister(cfg)
	if err != nil {
		closeErr := entityCache.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("initializing persister: %w (also: cache close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("initializing persister: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   m,
		Catalog:   service,
		Cart:      state.NewCart(ctx, persister, logger),
		Favorites: state.NewFavorites(ctx, persister, logger),
		Filters:   state.NewFilters(ctx, persister, logger),
		Theme:     state.NewTheme(ctx, persister, opts.ThemeApply, logger),
		cache:     entityCache,
		persister: persister,
	}, nil
}

func newCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheFile:
		return cache.NewFileCache(cfg.Cache.Dir), nil
	case config.CacheRedis:
		return cache.NewRedisCache(cache.RedisConfig{
			URL:       cfg.Cache.RedisURL,
			KeyPrefix: cfg.Cache.RedisKeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func newPersister(cfg *config.Config) (state.Persister, error) {
	switch cfg.State.Backend {
	case config.StateFile:
		return state.NewFilePersister(cfg.State.Dir), nil
	case config.StateSQLite:
		return state.NewSQLitePersister(cfg.State.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

// Close releases all resources in reverse construction order. It is safe
// to call more than once.
func (a *App) Close() error {
	a.shutdownMu.Lock()
	defer a.shutdownMu.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	return errors.Join(a.persister.Close(), a.cache.Close())
}
