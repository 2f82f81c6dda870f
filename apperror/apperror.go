// Package apperror defines the failures that handlers and services return to
// the HTTP layer. Each error carries a translation key rather than a message,
// so the error handler can render it in the caller's language.
package apperror

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
	KindMethodNotAllowed
	KindUnavailable
	KindInternal
)

func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message is a translatable key with named arguments.
type Message struct {
	Key  string
	Args map[string]any
}

type Error struct {
	Kind     Kind
	Key      string
	Args     map[string]any
	Messages []Message
	// Label overrides the "error" field of the response body.
	Label string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Key, e.cause)
	}
	return e.Key
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Cause() error {
	return e.cause
}

func (e *Error) Status() int {
	return e.Kind.Status()
}

// ErrorLabel is the status text unless a label was set.
func (e *Error) ErrorLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return http.StatusText(e.Status())
}

func (e *Error) WithArgs(args map[string]any) *Error {
	e.Args = args
	return e
}

func (e *Error) WithCause(err error) *Error {
	if err != nil {
		e.cause = errors.WithStack(err)
	}
	return e
}

func newError(kind Kind, key string) *Error {
	return &Error{Kind: kind, Key: key}
}

func BadRequest(key string) *Error       { return newError(KindBadRequest, key) }
func Unauthorized(key string) *Error     { return newError(KindUnauthorized, key) }
func Forbidden(key string) *Error        { return newError(KindForbidden, key) }
func NotFound(key string) *Error         { return newError(KindNotFound, key) }
func Conflict(key string) *Error         { return newError(KindConflict, key) }
func TooManyRequests(key string) *Error  { return newError(KindTooManyRequests, key) }
func MethodNotAllowed(key string) *Error { return newError(KindMethodNotAllowed, key) }
func Unavailable(key string) *Error      { return newError(KindUnavailable, key) }

// Internal wraps an unexpected failure. Its cause is logged, never rendered.
func Internal(err error) *Error {
	return newError(KindInternal, "error.internal").WithCause(err)
}

// Validation is a 400 whose body message is the list of translated messages.
func Validation(messages []Message) *Error {
	e := newError(KindBadRequest, "error.validation")
	e.Messages = messages
	return e
}

// Database is a 400 for storage constraint violations.
func Database(key string, cause error) *Error {
	e := newError(KindBadRequest, key).WithCause(cause)
	e.Label = "Database Error"
	return e
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err is an *Error of the given kind and key.
func Is(err error, kind Kind, key string) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind && appErr.Key == key
}

// StackTrace returns the formatted stack of the wrapped cause, when present.
func StackTrace(err error) string {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}

	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return ""
}
