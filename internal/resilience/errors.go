// Package resilience holds the call-classification taxonomy, the retry
// policy and the per-dependency circuit breaker shared by every external
// platform call.
package resilience

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies the outcome of an external call. Every failed call maps
// to exactly one kind; the kind drives retry and breaker behavior.
type Kind int

const (
	// Transient covers HTTP 429, 5xx and network-level failures. Only
	// transient errors are ever retried.
	Transient Kind = iota
	// Permanent covers 4xx responses other than 401 and 429.
	Permanent
	// Auth covers 401. Permanent as far as the retry policy is concerned,
	// but it additionally signals the auth manager to refresh.
	Auth
	// SchemaChange means a response body was missing a field or shape the
	// caller depends on. The remote contract changed; never retried.
	SchemaChange
	// CircuitOpen is synthetic: raised by the breaker itself when it
	// rejects a call, never by a remote response.
	CircuitOpen
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	case Auth:
		return "auth"
	case SchemaChange:
		return "schema_change"
	case CircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Error is the tagged variant carried through the call stack in place of
// exception-style control flow: kind plus enough detail to log.
type Error struct {
	Kind       Kind
	Dependency string
	Status     int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Dependency, e.Kind, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status=%d)", e.Dependency, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Dependency, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps an HTTP status code, or a transport error, to a kind.
// Pure: no side effects, no inspection beyond status and err.
func Classify(dependency string, status int, err error) *Error {
	if err != nil {
		return &Error{Kind: Transient, Dependency: dependency, Err: err}
	}
	switch {
	case status == http.StatusUnauthorized:
		return &Error{Kind: Auth, Dependency: dependency, Status: status}
	case status == http.StatusTooManyRequests || status >= 500:
		return &Error{Kind: Transient, Dependency: dependency, Status: status}
	case status >= 400:
		return &Error{Kind: Permanent, Dependency: dependency, Status: status}
	}
	return nil
}

// SchemaChanged builds a SchemaChange error for a response missing a
// required field or shape.
func SchemaChanged(dependency, detail string) *Error {
	return &Error{Kind: SchemaChange, Dependency: dependency, Err: errors.New(detail)}
}

// KindOf extracts the kind from an error chain. Errors that did not come
// out of classification report Permanent: an unknown failure must never
// be retried.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Permanent
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
