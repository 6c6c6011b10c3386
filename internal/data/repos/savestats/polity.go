package savestats

import (
	"gorm.io/gorm"

	types "github.com/yungbote/savestats/internal/domain"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
	"github.com/yungbote/savestats/internal/platform/logger"
)

// createBatchSize keeps multi-row inserts under SQLite's bound-variable limit.
const createBatchSize = 200

type PolitySnapshotRepo interface {
	Create(dbc dbctx.Context, rows []*types.PolitySnapshot) ([]*types.PolitySnapshot, error)
	GetByChecksum(dbc dbctx.Context, checksum string) ([]*types.PolitySnapshot, error)
}

type HistoricalEventRepo interface {
	Create(dbc dbctx.Context, rows []*types.HistoricalEvent) ([]*types.HistoricalEvent, error)
	GetByChecksumTag(dbc dbctx.Context, checksum, tag string) ([]*types.HistoricalEvent, error)
}

type AnnualIncomeRepo interface {
	Create(dbc dbctx.Context, rows []*types.AnnualIncome) ([]*types.AnnualIncome, error)
	GetByChecksumTag(dbc dbctx.Context, checksum, tag string) ([]*types.AnnualIncome, error)
}

type politySnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolitySnapshotRepo(db *gorm.DB, baseLog *logger.Logger) PolitySnapshotRepo {
	return &politySnapshotRepo{db: db, log: baseLog.With("repo", "PolitySnapshotRepo")}
}

func (r *politySnapshotRepo) Create(dbc dbctx.Context, rows []*types.PolitySnapshot) ([]*types.PolitySnapshot, error) {
	if len(rows) == 0 {
		return []*types.PolitySnapshot{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *politySnapshotRepo) GetByChecksum(dbc dbctx.Context, checksum string) ([]*types.PolitySnapshot, error) {
	var out []*types.PolitySnapshot
	if checksum == "" {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("checksum = ?", checksum).
		Order("tag ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type historicalEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHistoricalEventRepo(db *gorm.DB, baseLog *logger.Logger) HistoricalEventRepo {
	return &historicalEventRepo{db: db, log: baseLog.With("repo", "HistoricalEventRepo")}
}

func (r *historicalEventRepo) Create(dbc dbctx.Context, rows []*types.HistoricalEvent) ([]*types.HistoricalEvent, error) {
	if len(rows) == 0 {
		return []*types.HistoricalEvent{}, nil
	}
	if err := dbc.DB(r.db).CreateInBatches(&rows, createBatchSize).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *historicalEventRepo) GetByChecksumTag(dbc dbctx.Context, checksum, tag string) ([]*types.HistoricalEvent, error) {
	var out []*types.HistoricalEvent
	if checksum == "" || tag == "" {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("checksum = ? AND tag = ?", checksum, tag).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type annualIncomeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnnualIncomeRepo(db *gorm.DB, baseLog *logger.Logger) AnnualIncomeRepo {
	return &annualIncomeRepo{db: db, log: baseLog.With("repo", "AnnualIncomeRepo")}
}

func (r *annualIncomeRepo) Create(dbc dbctx.Context, rows []*types.AnnualIncome) ([]*types.AnnualIncome, error) {
	if len(rows) == 0 {
		return []*types.AnnualIncome{}, nil
	}
	if err := dbc.DB(r.db).CreateInBatches(&rows, createBatchSize).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *annualIncomeRepo) GetByChecksumTag(dbc dbctx.Context, checksum, tag string) ([]*types.AnnualIncome, error) {
	var out []*types.AnnualIncome
	if checksum == "" || tag == "" {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("checksum = ? AND tag = ?", checksum, tag).
		Order("year ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
