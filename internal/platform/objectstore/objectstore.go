// Package objectstore holds raw save uploads, either on local disk or in a
// GCS bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/yungbote/savestats/internal/platform/gcp"
	"github.com/yungbote/savestats/internal/platform/logger"
)

const ModeLocal = "local"

// ErrNotFound is returned (wrapped) by Get for a missing key.
var ErrNotFound = fs.ErrNotExist

type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

type Options struct {
	Mode         string
	LocalDir     string
	Bucket       string
	EmulatorHost string
	Credentials  string
}

func New(ctx context.Context, log *logger.Logger, opts Options) (Store, error) {
	mode := strings.ToLower(strings.TrimSpace(opts.Mode))
	if mode == "" || mode == ModeLocal {
		return NewLocal(log, opts.LocalDir)
	}
	cfg, err := gcp.ResolveObjectStorageConfig(mode, opts.EmulatorHost, opts.Bucket, opts.Credentials)
	if err != nil {
		return nil, err
	}
	return gcp.NewBucketService(ctx, log, cfg)
}

// ReadAll fetches key fully into memory.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
