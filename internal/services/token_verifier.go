package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/savestats/internal/data/repos"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
	"github.com/yungbote/savestats/internal/pkg/ingesterr"
	"github.com/yungbote/savestats/internal/platform/logger"
)

const verifyOp = "auth.Verify"

// Identity is the acting user resolved from a token.
type Identity struct {
	UserID   int64
	Username string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type tokenVerifier struct {
	log           *logger.Logger
	mode          string
	jwtSecretKey  string
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	now           func() time.Time
}

func NewTokenVerifier(
	log *logger.Logger,
	mode string,
	jwtSecretKey string,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
) TokenVerifier {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = AuthModeOpaque
	}
	return &tokenVerifier{
		log:           log.With("service", "TokenVerifier", "mode", mode),
		mode:          mode,
		jwtSecretKey:  jwtSecretKey,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		now:           time.Now,
	}
}

func (v *tokenVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ingesterr.Auth(verifyOp, errors.New("missing token"))
	}

	var (
		userID int64
		err    error
	)
	switch v.mode {
	case AuthModeJWT:
		userID, err = v.parseJWT(token)
	case AuthModeOpaque:
		userID, err = v.checkOpaque(ctx, token)
	default:
		err = fmt.Errorf("unsupported auth mode %q", v.mode)
	}
	if err != nil {
		v.log.Warn("token rejected", "error", err)
		return Identity{}, asAuthError(err)
	}

	user, err := v.userRepo.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return Identity{}, ingesterr.Auth(verifyOp, fmt.Errorf("load user: %w", err))
	}
	if user == nil {
		return Identity{}, ingesterr.Auth(verifyOp, fmt.Errorf("user %d does not exist", userID))
	}
	return Identity{UserID: user.ID, Username: user.Username}, nil
}

func asAuthError(err error) error {
	if ingesterr.Is(err, ingesterr.KindAuth) {
		return err
	}
	return ingesterr.Auth(verifyOp, err)
}

// ParseOpaqueToken splits "<user_id>-<hex>" on the first "-".
func ParseOpaqueToken(token string) (int64, error) {
	idPart, secret, ok := strings.Cut(strings.TrimSpace(token), "-")
	if !ok {
		return 0, errors.New("malformed token: missing separator")
	}
	userID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("malformed token: bad user id %q", idPart)
	}
	if secret == "" {
		return 0, errors.New("malformed token: empty secret")
	}
	if _, err := hex.DecodeString(secret); err != nil {
		return 0, errors.New("malformed token: secret is not hex")
	}
	return userID, nil
}

func (v *tokenVerifier) checkOpaque(ctx context.Context, token string) (int64, error) {
	userID, err := ParseOpaqueToken(token)
	if err != nil {
		return 0, err
	}
	issued, err := v.userTokenRepo.GetByTokenHash(dbctx.Context{Ctx: ctx}, HashToken(token))
	if err != nil {
		return 0, fmt.Errorf("load token: %w", err)
	}
	if issued == nil || issued.UserID != userID {
		return 0, errors.New("token was not issued")
	}
	if !issued.ExpiresAt.After(v.now()) {
		return 0, errors.New("token expired")
	}
	return userID, nil
}

func (v *tokenVerifier) parseJWT(token string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(token, &JWTClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(v.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return 0, errors.New("invalid or expired JWT token")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid user id in token: %q", claims.Subject)
	}
	return userID, nil
}
