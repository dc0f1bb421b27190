package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
)

// Code is the closed set of domain outcomes surfaced by the service.
// Input-shape violations never become a Code - they are rejected as
// validation payload errors before any storage call
type Code int

const (
	// CodeNotFound - target of lookup/update/delete is absent
	CodeNotFound Code = iota + 1
	// CodeConflict - uniqueness or integrity violation, not retryable as-is
	CodeConflict
	// CodeUnavailable - transient storage failure, retryable with backoff
	CodeUnavailable
	// CodeInternal - anything else, never auto-retried
	CodeInternal
)

// Error is a tagged domain outcome wrapping an optional low-level cause
type Error struct {
	code    Code
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s - %s", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Code reports the domain outcome tag
func (e *Error) Code() Code {
	return e.code
}

// Message is the caller-safe text, cause is never included
func (e *Error) Message() string {
	return e.message
}

// NotFound builds not found outcome
func NotFound(msg string) *Error {
	return &Error{code: CodeNotFound, message: msg}
}

// Conflict builds conflict outcome
func Conflict(msg string) *Error {
	return &Error{code: CodeConflict, message: msg}
}

// Unavailable builds transient failure outcome
func Unavailable(msg string, cause error) *Error {
	return &Error{code: CodeUnavailable, message: msg, cause: cause}
}

// Internal builds catch-all outcome
func Internal(msg string, cause error) *Error {
	return &Error{code: CodeInternal, message: msg, cause: cause}
}

// CodeOf extracts the outcome tag, defaulting to CodeInternal
// for errors raised outside the taxonomy
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code
	}
	return CodeInternal
}

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
	pgSerializationFail  = "40001"
	pgDeadlockDetected   = "40P01"
	pgQueryCanceled      = "57014"
)

// FromStorage translates an open-ended storage failure into the
// closed taxonomy. Integrity violations map to conflict, transient
// resource/connection classes to unavailable, the rest to internal
func FromStorage(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return Unavailable("storage operation aborted", err)
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation || pgErr.Code == pgExclusionViolation:
			return Conflict("storage integrity violation")
		case pgErr.Code == pgSerializationFail || pgErr.Code == pgDeadlockDetected || pgErr.Code == pgQueryCanceled:
			return Unavailable("storage contention", err)
		case strings.HasPrefix(pgErr.Code, "08"): // connection exceptions
			return Unavailable("storage connection failure", err)
		case strings.HasPrefix(pgErr.Code, "53"): // insufficient resources
			return Unavailable("storage resources exhausted", err)
		}
	}

	return Internal("unexpected storage failure", err)
}
