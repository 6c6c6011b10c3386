package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/savestats/internal/data/repos"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
	"github.com/yungbote/savestats/internal/pkg/ingesterr"
	"github.com/yungbote/savestats/internal/platform/logger"
	"github.com/yungbote/savestats/internal/platform/objectstore"
)

// OwnedFile is one processed save visible to a user.
type OwnedFile struct {
	Checksum   string    `json:"checksum"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
	Tags       []string  `json:"tags"`
}

// SaveService moves raw saves in and out of object storage and lists what a
// user has processed.
type SaveService interface {
	Upload(ctx context.Context, userID int64, fileName string, data []byte) (string, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
	ListOwned(ctx context.Context, userID int64) ([]OwnedFile, error)
}

type saveService struct {
	log       *logger.Logger
	store     objectstore.Store
	files     repos.ProcessedFileRepo
	snapshots repos.PolitySnapshotRepo
}

func NewSaveService(
	log *logger.Logger,
	store objectstore.Store,
	files repos.ProcessedFileRepo,
	snapshots repos.PolitySnapshotRepo,
) SaveService {
	return &saveService{
		log:       log.With("service", "SaveService"),
		store:     store,
		files:     files,
		snapshots: snapshots,
	}
}

// UploadKey builds the object key for a user's upload.
func UploadKey(userID int64, id uuid.UUID, fileName string) string {
	return fmt.Sprintf("user_%d/%s_%s", userID, strings.ReplaceAll(id.String(), "-", ""), fileName)
}

// OriginalName recovers the uploaded file name from an object key.
func OriginalName(key string) string {
	base := path.Base(strings.TrimSpace(key))
	if prefix, rest, ok := strings.Cut(base, "_"); ok && len(prefix) == 32 && rest != "" {
		if _, err := hex.DecodeString(prefix); err == nil {
			return rest
		}
	}
	return base
}

func cleanFileName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "" || base == "." || base == "/" || base == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return base, nil
}

func (s *saveService) Upload(ctx context.Context, userID int64, fileName string, data []byte) (string, error) {
	const op = "saves.upload"
	if userID <= 0 {
		return "", ingesterr.Validation(op, fmt.Errorf("invalid user id %d", userID))
	}
	if len(data) == 0 {
		return "", ingesterr.Validation(op, errors.New("save file is empty"))
	}
	name, err := cleanFileName(fileName)
	if err != nil {
		return "", ingesterr.Validation(op, err)
	}
	if s.store == nil {
		return "", errors.New("object store not configured")
	}

	key := UploadKey(userID, uuid.New(), name)
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check %s: %w", key, err)
	}
	if exists {
		return "", fmt.Errorf("object %s already exists", key)
	}
	if err := s.store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	s.log.Info("save uploaded", "key", key, "bytes", len(data), "user_id", userID)
	return key, nil
}

func (s *saveService) Fetch(ctx context.Context, key string) ([]byte, error) {
	const op = "saves.fetch"
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ingesterr.Validation(op, errors.New("object key required"))
	}
	if s.store == nil {
		return nil, errors.New("object store not configured")
	}
	b, err := objectstore.ReadAll(ctx, s.store, key)
	if err != nil {
		if objectstore.IsNotFound(err) {
			return nil, ingesterr.Validation(op, err)
		}
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	return b, nil
}

func (s *saveService) ListOwned(ctx context.Context, userID int64) ([]OwnedFile, error) {
	dbc := dbctx.Context{Ctx: ctx}
	files, err := s.files.ListOwnedBy(dbc, userID)
	if err != nil {
		return nil, err
	}
	out := make([]OwnedFile, 0, len(files))
	for _, f := range files {
		snaps, err := s.snapshots.GetByChecksum(dbc, f.Checksum)
		if err != nil {
			return nil, err
		}
		tags := make([]string, 0, len(snaps))
		for _, sn := range snaps {
			tags = append(tags, sn.Tag)
		}
		sort.Strings(tags)
		out = append(out, OwnedFile{
			Checksum:   f.Checksum,
			FileName:   f.FileName,
			UploadedAt: f.UploadedAt,
			Tags:       tags,
		})
	}
	return out, nil
}
