package domain

import (
	"github.com/yungbote/savestats/internal/domain/auth"
	"github.com/yungbote/savestats/internal/domain/savestats"
	"github.com/yungbote/savestats/internal/domain/user"
)

const (
	PermissionOwner  = savestats.PermissionOwner
	PermissionShared = savestats.PermissionShared
)

type (
	User      = user.User
	UserToken = auth.UserToken

	ProcessedFile   = savestats.ProcessedFile
	FileOwnership   = savestats.FileOwnership
	Permission      = savestats.Permission
	PolitySnapshot  = savestats.PolitySnapshot
	HistoricalEvent = savestats.HistoricalEvent
	AnnualIncome    = savestats.AnnualIncome
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&UserToken{},
		&ProcessedFile{},
		&FileOwnership{},
		&PolitySnapshot{},
		&HistoricalEvent{},
		&AnnualIncome{},
	}
}
