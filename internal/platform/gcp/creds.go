package gcp

import (
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// storageClientOptions builds client options for cfg.Mode. Real GCS takes
// GOOGLE_APPLICATION_CREDENTIALS as a file path or inline JSON and falls back
// to ambient credentials; the emulator runs unauthenticated.
func storageClientOptions(cfg ObjectStorageConfig) ([]option.ClientOption, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := credentialOptions(cfg.Credentials)
		return append(opts, option.WithScopes(storage.ScopeReadWrite)), nil
	case ObjectStorageModeGCSEmulator:
		return []option.ClientOption{option.WithoutAuthentication()}, nil
	default:
		return nil, &ObjectStorageConfigError{
			Code: ObjectStorageConfigErrorInvalidMode,
			Mode: string(cfg.Mode),
		}
	}
}

func credentialOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	switch {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds)}
	}
}
