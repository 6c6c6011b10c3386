package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies why a write boundary refused or lost a write.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error is returned by every aggregate write. Table is set when the failure
// happened while inserting into a specific table.
type Error struct {
	Code    ErrorCode
	Op      string
	Table   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if op := strings.TrimSpace(e.Op); op != "" {
		b.WriteString(op)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(msg)
	}
	tail := string(e.Code)
	if t := strings.TrimSpace(e.Table); t != "" {
		tail += ", table=" + t
	}
	if b.Len() == 0 {
		return tail
	}
	return fmt.Sprintf("%s (%s)", b.String(), tail)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether running the same write again may succeed.
func (e *Error) Retryable() bool { return e != nil && e.Code == CodeRetryable }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// TableOf returns the table a failed write was inserting into, if known.
func TableOf(err error) string {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Table
}
