package savestats

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessedFile marks a save as fully ingested. A row exists only if every
// per-polity row for the same checksum was committed with it.
type ProcessedFile struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Checksum   string    `gorm:"not null;size:64;uniqueIndex:idx_processed_files_checksum;column:checksum" json:"checksum"`
	FileName   string    `gorm:"not null;column:file_name" json:"file_name"`
	UserID     int64     `gorm:"not null;index;column:user_id" json:"user_id"`
	UploadedAt time.Time `gorm:"not null;column:uploaded_at" json:"uploaded_at"`
}

func (ProcessedFile) TableName() string { return "processed_files" }

func (f *ProcessedFile) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

type Permission string

const (
	PermissionOwner  Permission = "owner"
	PermissionShared Permission = "shared"
)

type FileOwnership struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Checksum   string     `gorm:"not null;size:64;uniqueIndex:idx_file_ownership_checksum_user,priority:1;column:checksum" json:"checksum"`
	UserID     int64      `gorm:"not null;uniqueIndex:idx_file_ownership_checksum_user,priority:2;index;column:user_id" json:"user_id"`
	Permission Permission `gorm:"not null;size:16;column:permission" json:"permission"`
	CreatedAt  time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (FileOwnership) TableName() string { return "file_ownership" }

func (o *FileOwnership) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
