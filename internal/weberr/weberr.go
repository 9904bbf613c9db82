// Package weberr defines the single error category returned by remotely
// invokable operations. Every error carries a machine-readable Kind that
// the HTTP layer maps to a status code.
package weberr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// SessionInvalid indicates a missing, unknown or expired session.
	SessionInvalid Kind = "session_invalid"
	// NodeNotFound indicates a node that does not resolve in the session's catalog.
	NodeNotFound Kind = "node_not_found"
	// BadRequest indicates malformed parameters or option values.
	BadRequest Kind = "bad_request"
	// UnknownAction indicates an action name missing from the action table.
	UnknownAction Kind = "unknown_action"
	// ConnectionFailed indicates the database could not be reached.
	ConnectionFailed Kind = "connection_failed"
	// DDLGenerationFailed indicates a catalog or rendering failure.
	DDLGenerationFailed Kind = "ddl_generation_failed"
	// Internal is used for errors that carry no kind.
	Internal Kind = "internal"
)

// Error wraps an error with kind and human-friendly message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *Error { return &Error{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *Error             { return &Error{Kind: kind, Message: msg} }

// Newf is New with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return Internal
}

// Status maps a kind to an HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case SessionInvalid:
		return http.StatusUnauthorized
	case NodeNotFound:
		return http.StatusNotFound
	case BadRequest, UnknownAction:
		return http.StatusBadRequest
	case ConnectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
