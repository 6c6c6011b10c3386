package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/savestats/internal/domain/aggregates"
)

var (
	ErrValidation = errors.New("aggregate validation")
	ErrInvariant  = errors.New("aggregate invariant violation")
	// ErrConflict marks a uniqueness collision with rows another writer committed.
	ErrConflict  = errors.New("aggregate conflict")
	ErrRetryable = errors.New("aggregate retryable")
)

func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

func InvariantError(msg string) error {
	return errors.Join(ErrInvariant, errors.New(strings.TrimSpace(msg)))
}

func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

type tableError struct {
	table string
	err   error
}

func (e *tableError) Error() string { return fmt.Sprintf("insert %s: %v", e.table, e.err) }
func (e *tableError) Unwrap() error { return e.err }

// TableError records which table an insert failed on. MapError copies it onto
// the resulting *domainagg.Error.
func TableError(table string, err error) error {
	if err == nil {
		return nil
	}
	return &tableError{table: strings.TrimSpace(table), err: err}
}

// MapError maps driver and aggregate failures onto aggregate error codes.
// Postgres and SQLite unique violations both land on CodeConflict.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	out := &domainagg.Error{
		Code:    classify(err),
		Op:      strings.TrimSpace(op),
		Message: err.Error(),
		Cause:   err,
	}
	var te *tableError
	if errors.As(err, &te) {
		out.Table = te.table
	}
	return out
}

func classify(err error) domainagg.ErrorCode {
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.CodeValidation
	case errors.Is(err, ErrInvariant):
		return domainagg.CodeInvariantViolation
	case errors.Is(err, ErrConflict), errors.Is(err, gorm.ErrDuplicatedKey):
		return domainagg.CodeConflict
	case errors.Is(err, ErrRetryable):
		return domainagg.CodeRetryable
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.CodeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.CodeRetryable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505": // unique_violation
			return domainagg.CodeConflict
		case "23503": // foreign_key_violation
			return domainagg.CodePreconditionFailed
		case "40001", "40P01", "55P03": // serialization, deadlock, lock_not_available
			return domainagg.CodeRetryable
		}
	}

	// SQLite surfaces these only as text.
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint failed"):
		return domainagg.CodeConflict
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "sqlite_busy"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"):
		return domainagg.CodeRetryable
	default:
		return domainagg.CodeInternal
	}
}
