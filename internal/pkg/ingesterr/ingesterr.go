// Package ingesterr is the closed error taxonomy of a save ingestion run.
//
// Every failure that crosses a component boundary is an *Error carrying the
// kind plus whatever context is known at that point (file checksum, polity
// tag). Callers branch on the kind, never on message text.
package ingesterr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	// KindValidation: input bytes unreadable or absent. Fatal.
	KindValidation Kind = "validation"
	// KindDecode: the save container could not be parsed. Fatal.
	KindDecode Kind = "decode"
	// KindNotFound: a polity has no extractable data. Recoverable per polity.
	KindNotFound Kind = "not_found"
	// KindDuplicate: checksum already recorded. Not a failure.
	KindDuplicate Kind = "duplicate"
	// KindPersistence: the commit transaction failed and was rolled back.
	KindPersistence Kind = "persistence"
	// KindAuth: malformed or unresolvable token/user. Fatal.
	KindAuth Kind = "auth"
)

// Fatal reports whether an error of this kind aborts the whole invocation.
func (k Kind) Fatal() bool {
	switch k {
	case KindNotFound, KindDuplicate:
		return false
	default:
		return true
	}
}

type Error struct {
	Kind     Kind
	Op       string
	Checksum string
	Tag      string
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Tag != "" {
		fmt.Fprintf(&b, " tag=%s", e.Tag)
	}
	if e.Checksum != "" {
		fmt.Fprintf(&b, " checksum=%s", shortSum(e.Checksum))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// WithChecksum returns a copy annotated with the file checksum.
func (e *Error) WithChecksum(sum string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Checksum = strings.TrimSpace(sum)
	return &cp
}

func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: strings.TrimSpace(op), Cause: cause}
}

func Validation(op string, cause error) *Error { return New(KindValidation, op, cause) }

func Decode(op string, cause error) *Error { return New(KindDecode, op, cause) }

func NotFound(op, tag string, cause error) *Error {
	e := New(KindNotFound, op, cause)
	e.Tag = tag
	return e
}

func Duplicate(op, checksum string) *Error {
	e := New(KindDuplicate, op, nil)
	e.Checksum = checksum
	return e
}

func Persistence(op, checksum string, cause error) *Error {
	e := New(KindPersistence, op, cause)
	e.Checksum = checksum
	return e
}

func Auth(op string, cause error) *Error { return New(KindAuth, op, cause) }

// Is reports whether err (or anything it wraps) is an *Error of kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf extracts the outermost taxonomy kind, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
