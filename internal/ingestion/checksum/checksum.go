// Package checksum is the idempotency gate in front of the ingestion pipeline.
package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/yungbote/savestats/internal/pkg/ingesterr"
	"github.com/yungbote/savestats/internal/platform/logger"
)

// Sum returns the lowercase hex SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Lookup answers whether a checksum already has a processing record.
type Lookup interface {
	ExistsByChecksum(ctx context.Context, checksum string) (bool, error)
}

// LookupFunc adapts a plain function to Lookup.
type LookupFunc func(ctx context.Context, checksum string) (bool, error)

func (f LookupFunc) ExistsByChecksum(ctx context.Context, checksum string) (bool, error) {
	return f(ctx, checksum)
}

// Cache is an optional fast path consulted before Lookup. A cache hit is
// trusted; a miss always falls through to the store.
type Cache interface {
	Seen(ctx context.Context, checksum string) (bool, error)
	MarkProcessed(ctx context.Context, checksum string) error
}

type Decision struct {
	Skip     bool
	Checksum string
}

type Gate interface {
	ShouldProcess(ctx context.Context, blob []byte) (Decision, error)
	// MarkProcessed records a committed checksum in the cache, if any.
	MarkProcessed(ctx context.Context, checksum string)
}

type gate struct {
	log    *logger.Logger
	lookup Lookup
	cache  Cache
}

func NewGate(log *logger.Logger, lookup Lookup, cache Cache) Gate {
	return &gate{
		log:    log.With("component", "ChecksumGate"),
		lookup: lookup,
		cache:  cache,
	}
}

func (g *gate) ShouldProcess(ctx context.Context, blob []byte) (Decision, error) {
	if len(blob) == 0 {
		return Decision{}, ingesterr.Validation("checksum.ShouldProcess", errors.New("empty input"))
	}
	sum := Sum(blob)
	log := g.log.With("checksum", sum)

	if g.cache != nil {
		seen, err := g.cache.Seen(ctx, sum)
		if err != nil {
			log.Warn("checksum cache lookup failed; falling back to store", "error", err)
		} else if seen {
			log.Info("file already processed (cache)")
			return Decision{Skip: true, Checksum: sum}, nil
		}
	}

	exists, err := g.lookup.ExistsByChecksum(ctx, sum)
	if err != nil {
		return Decision{}, ingesterr.Persistence("checksum.ShouldProcess", sum, err)
	}
	if exists {
		log.Info("file already processed")
		g.MarkProcessed(ctx, sum)
		return Decision{Skip: true, Checksum: sum}, nil
	}
	log.Debug("checksum not seen; proceeding")
	return Decision{Checksum: sum}, nil
}

func (g *gate) MarkProcessed(ctx context.Context, checksum string) {
	if g.cache == nil || checksum == "" {
		return
	}
	if err := g.cache.MarkProcessed(ctx, checksum); err != nil {
		g.log.Warn("checksum cache write failed", "checksum", checksum, "error", err)
	}
}
