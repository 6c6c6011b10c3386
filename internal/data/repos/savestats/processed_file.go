package savestats

import (
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/savestats/internal/domain"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
	"github.com/yungbote/savestats/internal/platform/logger"
)

type ProcessedFileRepo interface {
	Create(dbc dbctx.Context, files []*types.ProcessedFile) ([]*types.ProcessedFile, error)
	ExistsByChecksum(dbc dbctx.Context, checksum string) (bool, error)
	GetByChecksums(dbc dbctx.Context, checksums []string) ([]*types.ProcessedFile, error)
	ListOwnedBy(dbc dbctx.Context, userID int64) ([]*types.ProcessedFile, error)
}

type processedFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProcessedFileRepo(db *gorm.DB, baseLog *logger.Logger) ProcessedFileRepo {
	return &processedFileRepo{db: db, log: baseLog.With("repo", "ProcessedFileRepo")}
}

func (r *processedFileRepo) Create(dbc dbctx.Context, files []*types.ProcessedFile) ([]*types.ProcessedFile, error) {
	if len(files) == 0 {
		return []*types.ProcessedFile{}, nil
	}
	if err := dbc.DB(r.db).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *processedFileRepo) ExistsByChecksum(dbc dbctx.Context, checksum string) (bool, error) {
	checksum = strings.TrimSpace(checksum)
	if checksum == "" {
		return false, nil
	}
	var count int64
	if err := dbc.DB(r.db).
		Model(&types.ProcessedFile{}).
		Where("checksum = ?", checksum).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *processedFileRepo) GetByChecksums(dbc dbctx.Context, checksums []string) ([]*types.ProcessedFile, error) {
	var out []*types.ProcessedFile
	if len(checksums) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("checksum IN ?", checksums).
		Order("uploaded_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *processedFileRepo) ListOwnedBy(dbc dbctx.Context, userID int64) ([]*types.ProcessedFile, error) {
	var out []*types.ProcessedFile
	if userID <= 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Joins("JOIN file_ownership ON file_ownership.checksum = processed_files.checksum").
		Where("file_ownership.user_id = ?", userID).
		Order("processed_files.uploaded_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
