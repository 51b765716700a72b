package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind classifies an error by who is at fault and how callers should react.
type Kind int

const (
	Internal Kind = iota
	InvalidArgument
	Unauthorized
	Forbidden
	NotFound
	Conflict
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code a Kind is reported with.
func (k Kind) Status() int {
	switch k {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error type returned by services. Message is safe to show to API clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	ErrUnauthorized    = &Error{Kind: Unauthorized}
	ErrForbidden       = &Error{Kind: Forbidden}
	ErrNotFound        = &Error{Kind: NotFound}
	ErrConflict        = &Error{Kind: Conflict}
	ErrInternal        = &Error{Kind: Internal}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidArgumentf(format string, args ...any) *Error {
	return New(InvalidArgument, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

// KindOf reports the Kind of err. Errors that are not *Error are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the client-facing message for err. Internal errors get a generic message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

const uniqueViolation = "23505"

// FromDB translates storage errors. notFound is the message used when the record is missing.
func FromDB(err error, notFound string) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Wrap(NotFound, notFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return Wrap(Conflict, "Resource already exists", err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Wrap(Conflict, "Resource already exists", err)
	}

	return Wrap(Internal, "Database error", err)
}
