package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/savestats/internal/clients/redis"
	"github.com/yungbote/savestats/internal/observability"
	"github.com/yungbote/savestats/internal/platform/config"
	"github.com/yungbote/savestats/internal/platform/logger"
	"github.com/yungbote/savestats/internal/platform/objectstore"
)

type Clients struct {
	Store         objectstore.Store
	ChecksumCache redis.ChecksumCache
}

func wireClients(ctx context.Context, log *logger.Logger, cfg config.Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	store, err := resolveObjectStore(ctx, log, cfg)
	if err != nil {
		return Clients{}, err
	}

	// Redis is optional; without it the gate always asks the database.
	var cache redis.ChecksumCache
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		c, err := redis.NewChecksumCache(log, redis.ChecksumCacheOptions{
			Addr:      cfg.RedisAddr,
			KeyPrefix: cfg.RedisKeyPrefix,
			Metrics:   metrics,
		})
		if err != nil {
			_ = store.Close()
			return Clients{}, fmt.Errorf("init redis checksum cache: %w", err)
		}
		cache = c
	}

	return Clients{
		Store:         store,
		ChecksumCache: cache,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.ChecksumCache != nil {
		_ = c.ChecksumCache.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}
