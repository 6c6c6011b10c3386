package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/savestats/internal/platform/config"
	"github.com/yungbote/savestats/internal/platform/gcp"
	"github.com/yungbote/savestats/internal/platform/logger"
	"github.com/yungbote/savestats/internal/platform/objectstore"
)

var newObjectStore = objectstore.New

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func objectStoreOptions(cfg config.Config) objectstore.Options {
	return objectstore.Options{
		Mode:         strings.ToLower(strings.TrimSpace(cfg.ObjectStorageMode)),
		LocalDir:     strings.TrimSpace(cfg.LocalStorageDir),
		Bucket:       strings.TrimSpace(cfg.SaveBucket),
		EmulatorHost: strings.TrimSpace(cfg.StorageEmulatorHost),
		Credentials:  strings.TrimSpace(cfg.GoogleCredentials),
	}
}

func resolveObjectStore(ctx context.Context, log *logger.Logger, cfg config.Config) (objectstore.Store, error) {
	opts := objectStoreOptions(cfg)
	if opts.Mode == "" {
		opts.Mode = objectstore.ModeLocal
	}
	if opts.Mode != objectstore.ModeLocal && !gcp.IsSupportedObjectStorageMode(gcp.ObjectStorageMode(opts.Mode)) {
		err := &StorageProviderBootstrapError{
			Code:         StorageProviderBootstrapErrorInvalidMode,
			Mode:         opts.Mode,
			EmulatorHost: opts.EmulatorHost,
			Cause:        fmt.Errorf("unsupported object storage mode %q", opts.Mode),
		}
		log.Error(
			"Object storage provider selection failed",
			"mode", opts.Mode,
			"emulator_host", opts.EmulatorHost,
			"error_code", err.Code,
			"error", err,
		)
		return nil, err
	}

	log.Info(
		"Selecting object storage provider",
		"mode", opts.Mode,
		"bucket", opts.Bucket,
		"local_dir", opts.LocalDir,
		"emulator_host", opts.EmulatorHost,
	)

	store, err := newObjectStore(ctx, log, opts)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(opts, err)
		log.Error(
			"Object storage provider bootstrap failed",
			"mode", opts.Mode,
			"emulator_host", opts.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return store, nil
}

func classifyStorageProviderBootstrapError(opts objectstore.Options, err error) error {
	out := &StorageProviderBootstrapError{
		Code:         StorageProviderBootstrapErrorConnectFailed,
		Mode:         opts.Mode,
		EmulatorHost: opts.EmulatorHost,
		Cause:        err,
	}
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ObjectStorageConfigErrorInvalidMode:
			out.Code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ObjectStorageConfigErrorMissingEmulatorHost:
			out.Code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ObjectStorageConfigErrorInvalidEmulatorHost:
			out.Code = StorageProviderBootstrapErrorInvalidEmulatorHost
		case gcp.ObjectStorageConfigErrorMissingBucket:
			out.Code = StorageProviderBootstrapErrorMissingBucket
		}
	}
	return out
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return StorageProviderBootstrapErrorConnectFailed
}
