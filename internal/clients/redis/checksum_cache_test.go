package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/savestats/internal/platform/logger"
)

func TestChecksumCacheKey(t *testing.T) {
	c := &checksumCache{prefix: keyPrefix("")}
	if got := c.key("  ABCdef "); got != "savestats:checksum:abcdef" {
		t.Fatalf("key: got=%s", got)
	}
	c = &checksumCache{prefix: keyPrefix("test:")}
	if got := c.key("x"); got != "test:x" {
		t.Fatalf("key with prefix: got=%s", got)
	}
}

func TestNewChecksumCacheRequiresAddr(t *testing.T) {
	if _, err := NewChecksumCache(logger.Nop(), ChecksumCacheOptions{}); err == nil || !strings.Contains(err.Error(), "REDIS_ADDR") {
		t.Fatalf("expected missing addr error, got %v", err)
	}
	if _, err := NewChecksumCache(nil, ChecksumCacheOptions{Addr: "x"}); err == nil {
		t.Fatalf("expected logger error")
	}
}

func TestNilChecksumCache(t *testing.T) {
	var c *checksumCache
	if _, err := c.Seen(context.Background(), "x"); err == nil {
		t.Fatalf("nil Seen should error")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestChecksumCacheRoundTrip(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("REDIS_TEST_ADDR"))
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	prefix := "savestats:test:" + time.Now().Format("150405.000000") + ":"
	c, err := NewChecksumCache(logger.Nop(), ChecksumCacheOptions{Addr: addr, KeyPrefix: prefix, TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewChecksumCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	seen, err := c.Seen(ctx, "abc")
	if err != nil || seen {
		t.Fatalf("Seen before mark: seen=%v err=%v", seen, err)
	}
	if err := c.MarkProcessed(ctx, "abc"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	seen, err = c.Seen(ctx, "ABC")
	if err != nil || !seen {
		t.Fatalf("Seen after mark: seen=%v err=%v", seen, err)
	}
}
