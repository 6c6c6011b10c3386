package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/savestats/internal/data/repos/auth"
	"github.com/yungbote/savestats/internal/data/repos/savestats"
	"github.com/yungbote/savestats/internal/data/repos/user"
	"github.com/yungbote/savestats/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type ProcessedFileRepo = savestats.ProcessedFileRepo
type FileOwnershipRepo = savestats.FileOwnershipRepo
type PolitySnapshotRepo = savestats.PolitySnapshotRepo
type HistoricalEventRepo = savestats.HistoricalEventRepo
type AnnualIncomeRepo = savestats.AnnualIncomeRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewProcessedFileRepo(db *gorm.DB, baseLog *logger.Logger) ProcessedFileRepo {
	return savestats.NewProcessedFileRepo(db, baseLog)
}
func NewFileOwnershipRepo(db *gorm.DB, baseLog *logger.Logger) FileOwnershipRepo {
	return savestats.NewFileOwnershipRepo(db, baseLog)
}
func NewPolitySnapshotRepo(db *gorm.DB, baseLog *logger.Logger) PolitySnapshotRepo {
	return savestats.NewPolitySnapshotRepo(db, baseLog)
}
func NewHistoricalEventRepo(db *gorm.DB, baseLog *logger.Logger) HistoricalEventRepo {
	return savestats.NewHistoricalEventRepo(db, baseLog)
}
func NewAnnualIncomeRepo(db *gorm.DB, baseLog *logger.Logger) AnnualIncomeRepo {
	return savestats.NewAnnualIncomeRepo(db, baseLog)
}

// Set bundles every repo the ingestion and auth flows need.
type Set struct {
	Users     UserRepo
	Tokens    UserTokenRepo
	Files     ProcessedFileRepo
	Ownership FileOwnershipRepo
	Snapshots PolitySnapshotRepo
	Events    HistoricalEventRepo
	Income    AnnualIncomeRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Users:     NewUserRepo(db, baseLog),
		Tokens:    NewUserTokenRepo(db, baseLog),
		Files:     NewProcessedFileRepo(db, baseLog),
		Ownership: NewFileOwnershipRepo(db, baseLog),
		Snapshots: NewPolitySnapshotRepo(db, baseLog),
		Events:    NewHistoricalEventRepo(db, baseLog),
		Income:    NewAnnualIncomeRepo(db, baseLog),
	}
}
