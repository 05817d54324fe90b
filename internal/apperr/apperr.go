// Package apperr defines the error kinds callers branch on.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of its message
type Kind int

const (
	Unknown Kind = iota
	NotFound
	Conflict
	Expired
	Unauthorized
	Transport
	Invalid
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Expired:
		return "expired"
	case Unauthorized:
		return "unauthorized"
	case Transport:
		return "transport"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error carries a Kind, the failing operation and an optional cause
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of kind with a message and no cause
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap attaches a kind to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns a user-facing message for err
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	switch KindOf(err) {
	case NotFound:
		return "not found"
	case Conflict:
		return "already exists"
	case Expired:
		return "this collage has expired"
	case Unauthorized:
		return "you do not have permission to do that"
	case Transport:
		return "service unavailable, try again"
	case Invalid:
		return "invalid request"
	}
	return "internal error"
}
