package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/savestats/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username string) *types.User {
	tb.Helper()
	u := &types.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "pw",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProcessedFile(tb testing.TB, ctx context.Context, tx *gorm.DB, checksum, name string, userID int64) *types.ProcessedFile {
	tb.Helper()
	f := &types.ProcessedFile{
		Checksum:   checksum,
		FileName:   name,
		UserID:     userID,
		UploadedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed processed file: %v", err)
	}
	return f
}

func SeedOwnership(tb testing.TB, ctx context.Context, tx *gorm.DB, checksum string, userID int64) *types.FileOwnership {
	tb.Helper()
	o := &types.FileOwnership{
		Checksum:   checksum,
		UserID:     userID,
		Permission: types.PermissionOwner,
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed ownership: %v", err)
	}
	return o
}

func SeedSnapshot(tb testing.TB, ctx context.Context, tx *gorm.DB, checksum, tag string) *types.PolitySnapshot {
	tb.Helper()
	s := &types.PolitySnapshot{
		Checksum:         checksum,
		Tag:              tag,
		Date:             "1444.11.11",
		IncomeComponents: []byte("[]"),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed snapshot: %v", err)
	}
	return s
}
