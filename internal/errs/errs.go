// errs defines the error categories shared by the AWS adapters, the remote
// runner and the bootstrap sequencer.
//
// Every error returned from those packages wraps exactly one of these values,
// so callers classify failures with 'errors.Is(...)'.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a local file or a remote resource is missing.
	ErrNotFound = fmt.Errorf("not found")
	// ErrAlreadyExists means a globally-unique name is taken.
	ErrAlreadyExists = fmt.Errorf("already exists")
	// ErrProvider is a generic AWS API failure.
	ErrProvider = fmt.Errorf("provider error")
	// ErrTransport is an SSH connection or execution failure.
	ErrTransport = fmt.Errorf("transport error")
	// ErrExhausted means the bootstrap retry budget was spent.
	ErrExhausted = fmt.Errorf("retry budget exhausted")
)

// Category returns a short label for the category 'err' belongs to, for use
// as a structured log attribute.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	default:
		return "unknown"
	}
}
