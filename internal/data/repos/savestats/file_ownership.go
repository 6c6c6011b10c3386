package savestats

import (
	"gorm.io/gorm"

	types "github.com/yungbote/savestats/internal/domain"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
	"github.com/yungbote/savestats/internal/platform/logger"
)

type FileOwnershipRepo interface {
	Create(dbc dbctx.Context, rows []*types.FileOwnership) ([]*types.FileOwnership, error)
	GetByChecksum(dbc dbctx.Context, checksum string) ([]*types.FileOwnership, error)
}

type fileOwnershipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileOwnershipRepo(db *gorm.DB, baseLog *logger.Logger) FileOwnershipRepo {
	return &fileOwnershipRepo{db: db, log: baseLog.With("repo", "FileOwnershipRepo")}
}

func (r *fileOwnershipRepo) Create(dbc dbctx.Context, rows []*types.FileOwnership) ([]*types.FileOwnership, error) {
	if len(rows) == 0 {
		return []*types.FileOwnership{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *fileOwnershipRepo) GetByChecksum(dbc dbctx.Context, checksum string) ([]*types.FileOwnership, error) {
	var out []*types.FileOwnership
	if checksum == "" {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("checksum = ?", checksum).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
