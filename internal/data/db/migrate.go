package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/savestats/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureIngestIndexes(db)
}

// EnsureIngestIndexes re-asserts the uniqueness constraints the idempotent
// commit depends on. The statements are valid on both SQLite and Postgres.
func EnsureIngestIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_processed_files_checksum", `CREATE UNIQUE INDEX IF NOT EXISTS idx_processed_files_checksum ON processed_files (checksum)`},
		{"idx_file_ownership_checksum_user", `CREATE UNIQUE INDEX IF NOT EXISTS idx_file_ownership_checksum_user ON file_ownership (checksum, user_id)`},
		{"idx_polity_snapshot_checksum_tag", `CREATE UNIQUE INDEX IF NOT EXISTS idx_polity_snapshot_checksum_tag ON polity_snapshot (checksum, tag)`},
		{"idx_annual_income_checksum_tag_year", `CREATE UNIQUE INDEX IF NOT EXISTS idx_annual_income_checksum_tag_year ON annual_income (checksum, tag, year)`},
		{"idx_historical_event_checksum_tag_seq", `CREATE INDEX IF NOT EXISTS idx_historical_event_checksum_tag_seq ON historical_event (checksum, tag, seq)`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
