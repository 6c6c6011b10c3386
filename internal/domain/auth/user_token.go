package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/savestats/internal/domain/user"
)

// UserToken is an issued opaque session token. Only the SHA-256 of the token
// is stored.
type UserToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    int64      `gorm:"index;not null" json:"user_id"`
	User      *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	TokenHash string     `gorm:"uniqueIndex;not null;size:64;column:token_hash" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (UserToken) TableName() string { return "user_token" }

func (t *UserToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
