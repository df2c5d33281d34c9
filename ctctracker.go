package ctctracker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ctctracker/catalog"
	"ctctracker/config"
	apihttp "ctctracker/http"
	"ctctracker/internal/logging"
	"ctctracker/internal/retry"
	"ctctracker/storage"
	"ctctracker/tracker"
	"ctctracker/youtube"
)

// App wires the store, the API client and the catalog service for one
// configuration. It holds the database lock until Close.
type App struct {
	Config  *config.Config
	Store   *storage.SQLiteStore
	Service *catalog.Service
	Logger  *zap.Logger

	lock *storage.FileLock
}

// Open locks and opens the database described by cfg and builds the catalog
// service. The API key comes from cfg when set, else from the settings table.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := storage.NewFileLock(cfg.LockPath())
	if err := lock.Lock(ctx, cfg.LockTimeout); err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}

	store, err := storage.OpenSQLite(ctx, cfg.DatabasePath())
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	apiKey, err := resolveAPIKey(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		_ = lock.Unlock()
		return nil, err
	}

	httpCfg := apihttp.DefaultConfig()
	httpCfg.Timeout = cfg.RequestTimeout
	httpCfg.RequestsPerSecond = cfg.RequestsPerSecond
	httpCfg.CircuitBreaker = apihttp.CircuitBreakerConfig{
		FailureThreshold: cfg.CircuitFailureThreshold,
		RecoveryTimeout:  cfg.CircuitRecoveryTimeout,
	}

	client, err := youtube.NewClient(ctx, youtube.ClientConfig{
		APIKey:     apiKey,
		HTTPClient: apihttp.NewClient(httpCfg, logger.Named("http")),
		PageSize:   cfg.PageSize,
		Retry: retry.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     cfg.MaxBackoff,
			Multiplier:     cfg.BackoffMultiplier,
			JitterFraction: retry.DefaultConfig().JitterFraction,
		},
		Logger: logger.Named("youtube"),
	})
	if err != nil {
		_ = store.Close()
		_ = lock.Unlock()
		return nil, err
	}

	synchronizer := catalog.NewSynchronizer(client, store, cfg.ChannelID, logger.Named("sync"))
	return &App{
		Config:  cfg,
		Store:   store,
		Service: catalog.NewService(store, synchronizer, logger.Named("catalog")),
		Logger:  logger,
		lock:    lock,
	}, nil
}

// NewTracker returns a consumer state machine backed by the app's service.
func (a *App) NewTracker() *tracker.Tracker {
	return tracker.New(a.Service, a.Logger.Named("tracker"))
}

// Close waits for background work, then closes the store and releases the lock.
func (a *App) Close() error {
	a.Service.Wait()
	return errors.Join(a.Store.Close(), a.lock.Unlock())
}

func resolveAPIKey(ctx context.Context, cfg *config.Config, store storage.SettingsStore) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	key, err := store.APIKey(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return key, nil
}
