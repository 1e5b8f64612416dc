// Package common defines shared constants and sentinel errors used across
// blogcore components. Callers should use errors.Is to match the sentinel
// values and errors.As for the typed errors.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
)

// ConnKind classifies a connection failure against a backing store.
type ConnKind string

const (
	ConnUnreachable  ConnKind = "unreachable"
	ConnAuthRejected ConnKind = "auth-rejected"
	ConnTimeout      ConnKind = "timeout"
)

// ConnectionError reports a failure to reach or authenticate against a
// backing store (relational or cache). The DSN and credentials are never
// included in the message.
type ConnectionError struct {
	Store string
	Kind  ConnKind
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection failed (%s): %v", e.Store, e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
