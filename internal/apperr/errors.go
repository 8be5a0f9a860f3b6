// Package apperr holds the error taxonomy shared by the sync layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindNetwork           Kind = "network_error"
	KindRemoteRejected    Kind = "remote_rejected"
	KindInvalidTransition Kind = "invalid_transition"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated, Message: "not authenticated"}
	ErrNetwork           = &Error{Kind: KindNetwork, Message: "network error"}
	ErrRemoteRejected    = &Error{Kind: KindRemoteRejected, Message: "rejected by remote"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
)

// Error is a classified failure. Status is the HTTP status returned by the
// remote, zero when no response was received.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Status == 0 && t.Err == nil
}

func Unauthenticated(op string) error {
	return &Error{Kind: KindUnauthenticated, Op: op, Message: "no session token"}
}

func Network(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Message: "request failed", Err: err}
}

func Rejected(op string, status int, message string) error {
	if message == "" {
		message = "request rejected"
	}
	return &Error{Kind: KindRemoteRejected, Op: op, Status: status, Message: message}
}

func InvalidTransition(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
