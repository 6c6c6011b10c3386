package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/savestats/internal/data/db"
	"github.com/yungbote/savestats/internal/data/repos"
	"github.com/yungbote/savestats/internal/observability"
	"github.com/yungbote/savestats/internal/platform/config"
	"github.com/yungbote/savestats/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      config.Config
	DB       *db.Service
	Repos    repos.Set
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	shutdownOtel func(context.Context) error
}

// New wires the whole process from one Config. The schema is migrated on
// every start; migrations are idempotent.
func New(ctx context.Context, cfg config.Config, version string) (*App, error) {
	log, err := logger.NewWithOptions(cfg.LogMode, logger.Options{
		Redact:   cfg.LogRedaction,
		HashSalt: cfg.LogHashSalt,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics := observability.Init(log)
	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.ServiceName,
		Version:     version,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})

	dsn := cfg.SQLitePath
	if strings.EqualFold(strings.TrimSpace(cfg.DBDriver), db.DriverPostgres) {
		dsn = cfg.PostgresDSN()
	}
	store, err := db.Open(db.Options{Driver: cfg.DBDriver, DSN: dsn}, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrateAll(store.DB()); err != nil {
		_ = store.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	reposet := wireRepos(store.DB(), log)

	clients, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(store.DB(), log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           store,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		shutdownOtel: shutdown,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if path := strings.TrimSpace(a.Cfg.MetricsFile); path != "" {
		if err := a.Metrics.WriteFile(path); err != nil && a.Log != nil {
			a.Log.Warn("metrics file write failed", "path", path, "error", err)
		}
	}
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOtel(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Clients.Close()
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
