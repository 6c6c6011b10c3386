package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/savestats/internal/data/repos"
	types "github.com/yungbote/savestats/internal/domain"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
	"github.com/yungbote/savestats/internal/pkg/ingesterr"
	"github.com/yungbote/savestats/internal/platform/logger"
)

const (
	AuthModeOpaque = "opaque"
	AuthModeJWT    = "jwt"

	// opaqueSecretBytes random bytes become 32 hex chars after the id.
	opaqueSecretBytes = 16
)

var errInvalidCredentials = errors.New("invalid username or password")

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*types.User, error)
	// Login returns a token in the configured mode and its expiry.
	Login(ctx context.Context, username, password string) (string, time.Time, error)
}

type AuthOptions struct {
	Mode         string
	JWTSecretKey string
	TokenTTL     time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	opts          AuthOptions
	now           func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	opts AuthOptions,
) AuthService {
	opts.Mode = strings.ToLower(strings.TrimSpace(opts.Mode))
	if opts.Mode == "" {
		opts.Mode = AuthModeOpaque
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * 24 * time.Hour
	}
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		opts:          opts,
		now:           time.Now,
	}
}

func (as *authService) Register(ctx context.Context, username, email, password string) (*types.User, error) {
	const op = "auth.Register"
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case username == "":
		return nil, ingesterr.Validation(op, errors.New("a username is required to register"))
	case strings.ContainsAny(username, " \t\n"):
		return nil, ingesterr.Validation(op, errors.New("username must not contain whitespace"))
	case email == "" || !strings.Contains(email, "@"):
		return nil, ingesterr.Validation(op, errors.New("a valid email is required to register"))
	case len(password) < 8:
		return nil, ingesterr.Validation(op, errors.New("password must be at least 8 characters"))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &types.User{Username: username, Email: email, PasswordHash: string(hashed)}

	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		taken, err := as.userRepo.UsernameExists(dbc, username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			return ingesterr.Validation(op, fmt.Errorf("username %q is already taken", username))
		}
		emailTaken, err := as.userRepo.EmailExists(dbc, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if emailTaken {
			return ingesterr.Validation(op, errors.New("email is already in use"))
		}
		if _, err := as.userRepo.Create(dbc, []*types.User{user}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ingesterr.Validation(op, errors.New("username or email already in use"))
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (as *authService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	const op = "auth.Login"
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", time.Time{}, ingesterr.Auth(op, errors.New("username and password are required"))
	}
	user, err := as.userRepo.GetByUsername(dbctx.Context{Ctx: ctx}, username)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return "", time.Time{}, ingesterr.Auth(op, errInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ingesterr.Auth(op, errInvalidCredentials)
	}

	now := as.now().UTC()
	expiresAt := now.Add(as.opts.TokenTTL)
	if as.opts.Mode == AuthModeJWT {
		tok, err := signAccessToken(as.opts.JWTSecretKey, user.ID, now, expiresAt)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("sign token: %w", err)
		}
		as.log.Info("user logged in", "user_id", user.ID, "mode", AuthModeJWT)
		return tok, expiresAt, nil
	}

	tok, err := newOpaqueToken(user.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := as.userTokenRepo.DeleteExpired(dbc, now); err != nil {
			return fmt.Errorf("prune expired tokens: %w", err)
		}
		_, err := as.userTokenRepo.Create(dbc, []*types.UserToken{{
			UserID:    user.ID,
			TokenHash: HashToken(tok),
			ExpiresAt: expiresAt,
		}})
		return err
	})
	if err != nil {
		as.log.Warn("Create User Token Error", "error", err)
		return "", time.Time{}, fmt.Errorf("store token: %w", err)
	}
	as.log.Info("user logged in", "user_id", user.ID, "mode", AuthModeOpaque)
	return tok, expiresAt, nil
}

func newOpaqueToken(userID int64) (string, error) {
	buf := make([]byte, opaqueSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return strconv.FormatInt(userID, 10) + "-" + hex.EncodeToString(buf), nil
}

// HashToken is the stored form of an opaque token.
func HashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

type JWTClaims struct {
	jwt.RegisteredClaims
}

func signAccessToken(secret string, userID int64, issuedAt, expiresAt time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
