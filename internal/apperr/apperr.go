// Package apperr defines the error taxonomy shared by all endpoints and the
// process-wide mapping from error kind to HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for HTTP mapping and logging.
type Kind int

const (
	// KindInternal covers anything uncategorized. Clients see a generic message.
	KindInternal Kind = iota
	// KindAuthentication covers bad credentials and invalid, expired or missing tokens.
	KindAuthentication
	// KindValidation covers malformed or missing input fields.
	KindValidation
	// KindNotFound covers a missing entity.
	KindNotFound
	// KindAccessDenied covers an entity that exists but belongs to another user.
	KindAccessDenied
	// KindConflict covers uniqueness violations such as a duplicate email.
	KindConflict
	// KindConstraint covers database constraint violations surfaced by writes.
	KindConstraint
	// KindStorage covers infrastructure-level persistence failures.
	KindStorage
)

// statusByKind is the single mapping table consulted by every handler.
var statusByKind = map[Kind]int{
	KindInternal:       http.StatusInternalServerError,
	KindAuthentication: http.StatusUnauthorized,
	KindValidation:     http.StatusBadRequest,
	KindNotFound:       http.StatusNotFound,
	KindAccessDenied:   http.StatusForbidden,
	KindConflict:       http.StatusBadRequest,
	KindConstraint:     http.StatusBadRequest,
	KindStorage:        http.StatusInternalServerError,
}

// Error carries an error kind plus the message returned to clients.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// New creates an Error with the given kind and client-visible message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error. The underlying
// error is kept for logs and never serialized to clients.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

// KindOf returns the kind of err, or KindInternal if err carries no *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Status returns the HTTP status code for err per the mapping table.
func Status(err error) int {
	return statusByKind[KindOf(err)]
}

// ClientMessage returns the message safe to serialize to clients. Internal
// and storage failures collapse to a generic message so details never leak.
func ClientMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case KindInternal, KindStorage:
			return "internal server error"
		default:
			return ae.Message
		}
	}
	return "internal server error"
}
