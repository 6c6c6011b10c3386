package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/savestats/internal/observability"
	"github.com/yungbote/savestats/internal/platform/logger"
)

const defaultKeyPrefix = "savestats:checksum:"

type ChecksumCacheOptions struct {
	Addr      string
	KeyPrefix string
	// TTL bounds how long a processed marker lives; zero keeps it forever.
	TTL     time.Duration
	Metrics *observability.Metrics
}

// ChecksumCache remembers processed save checksums so repeat uploads skip the
// database lookup.
type ChecksumCache interface {
	Seen(ctx context.Context, checksum string) (bool, error)
	MarkProcessed(ctx context.Context, checksum string) error
	Close() error
}

type checksumCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix  string
	ttl     time.Duration
	metrics *observability.Metrics
}

func NewChecksumCache(log *logger.Logger, opts ChecksumCacheOptions) (ChecksumCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &checksumCache{
		log:    log.With("service", "RedisChecksumCache"),
		rdb:    rdb,
		prefix:  keyPrefix(opts.KeyPrefix),
		ttl:     opts.TTL,
		metrics: opts.Metrics,
	}, nil
}

func keyPrefix(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return defaultKeyPrefix
	}
	return p
}

func (c *checksumCache) key(checksum string) string {
	return c.prefix + strings.ToLower(strings.TrimSpace(checksum))
}

func (c *checksumCache) Seen(ctx context.Context, checksum string) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, fmt.Errorf("redis checksum cache not initialized")
	}
	n, err := c.rdb.Exists(ctx, c.key(checksum)).Result()
	if err != nil {
		c.metrics.IncChecksumCache("error")
		return false, err
	}
	if n > 0 {
		c.metrics.IncChecksumCache("hit")
		return true, nil
	}
	c.metrics.IncChecksumCache("miss")
	return false, nil
}

func (c *checksumCache) MarkProcessed(ctx context.Context, checksum string) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis checksum cache not initialized")
	}
	return c.rdb.Set(ctx, c.key(checksum), time.Now().UTC().Unix(), c.ttl).Err()
}

func (c *checksumCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
