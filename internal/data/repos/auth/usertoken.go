package auth

import (
	"errors"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/savestats/internal/domain"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
	"github.com/yungbote/savestats/internal/platform/logger"
)

type UserTokenRepo interface {
	Create(dbc dbctx.Context, userTokens []*types.UserToken) ([]*types.UserToken, error)
	GetByTokenHash(dbc dbctx.Context, tokenHash string) (*types.UserToken, error)
	DeleteByUserIDs(dbc dbctx.Context, userIDs []int64) error
	DeleteExpired(dbc dbctx.Context, now time.Time) (int64, error)
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	repoLog := baseLog.With("repo", "UserTokenRepo")
	return &userTokenRepo{db: db, log: repoLog}
}

func (utr *userTokenRepo) Create(dbc dbctx.Context, userTokens []*types.UserToken) ([]*types.UserToken, error) {
	if len(userTokens) == 0 {
		return []*types.UserToken{}, nil
	}
	if err := dbc.DB(utr.db).Create(&userTokens).Error; err != nil {
		return nil, err
	}
	return userTokens, nil
}

// GetByTokenHash returns nil, nil for unknown hashes.
func (utr *userTokenRepo) GetByTokenHash(dbc dbctx.Context, tokenHash string) (*types.UserToken, error) {
	if tokenHash == "" {
		return nil, nil
	}
	var tok types.UserToken
	err := dbc.DB(utr.db).Where("token_hash = ?", tokenHash).First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (utr *userTokenRepo) DeleteByUserIDs(dbc dbctx.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	return dbc.DB(utr.db).
		Where("user_id IN ?", userIDs).
		Delete(&types.UserToken{}).Error
}

func (utr *userTokenRepo) DeleteExpired(dbc dbctx.Context, now time.Time) (int64, error) {
	res := dbc.DB(utr.db).
		Where("expires_at <= ?", now).
		Delete(&types.UserToken{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		utr.log.Debug("expired tokens removed", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
