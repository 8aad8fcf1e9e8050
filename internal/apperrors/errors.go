package apperrors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies an error into the closed set of outcomes the API surfaces.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidArgument
	KindQuotaExceeded
	KindConflict
	KindUnavailable
)

// Error carries a Kind plus a client-safe message. Wrapped causes stay
// server-side and are only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) error        { return &Error{Kind: KindNotFound, Message: msg} }
func InvalidArgument(msg string) error { return &Error{Kind: KindInvalidArgument, Message: msg} }
func QuotaExceeded(msg string) error   { return &Error{Kind: KindQuotaExceeded, Message: msg} }
func Conflict(msg string) error        { return &Error{Kind: KindConflict, Message: msg} }

func Unavailable(msg string, cause error) error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: cause}
}

// KindOf extracts the Kind from any error in the chain. Plain errors are
// internal; common infra errors are translated on the way out.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindUnavailable
	}
	return KindInternal
}

// Code returns the stable machine-readable code for an error.
func Code(err error) string {
	switch KindOf(err) {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error to its response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message, hiding internals for plain errors.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "record not found"
	}
	return "internal error"
}
