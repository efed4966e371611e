// Package apperr is the typed error every service returns. The HTTP layer
// picks the status code from the Kind without knowing which module failed.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: a lead, user, referral or handoff request is missing.
	KindNotFound
	// KindValidation: malformed input.
	KindValidation
	// KindConflict: state-machine violation or duplicate pending request.
	KindConflict
	// KindForbidden: ownership or role check failed.
	KindForbidden
	KindUnauthorized
	// KindBadRequest: missing field or business-rule rejection.
	KindBadRequest
	// KindInternal: storage or transaction failure. Never shown to clients.
	KindInternal
)

var statusByKind = map[Kind]int{
	KindNotFound:     http.StatusNotFound,
	KindValidation:   http.StatusBadRequest,
	KindConflict:     http.StatusConflict,
	KindForbidden:    http.StatusForbidden,
	KindUnauthorized: http.StatusUnauthorized,
	KindBadRequest:   http.StatusBadRequest,
	KindInternal:     http.StatusInternalServerError,
}

// Error carries a Kind, a client-facing Message and optional context.
type Error struct {
	Kind    Kind
	Message string
	// Op names the failing operation, e.g. "referrals.repository.create".
	Op      string
	Err     error
	Details any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the Kind to a response code. Unknown kinds are 400.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusBadRequest
}

func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap keeps err reachable through errors.Is and errors.As.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func BadRequest(message string) *Error   { return New(KindBadRequest, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// GetKind reports KindUnknown when err carries no *Error.
func GetKind(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool { return GetKind(err) == kind }
