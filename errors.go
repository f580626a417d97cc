// Package oomph surfaces a small, explicit error taxonomy for transport
// failures, argument validation, and buffer-ownership misuse (spec.md §4.8).
package oomph

import (
	"errors"
	"fmt"
)

// TransportError wraps a non-success result returned by the underlying
// Transport. It carries the transport's own numeric code (e.g. an MPI error
// class) and a short description.
type TransportError struct {
	// Op names the Transport method that failed (e.g. "PostSend", "WindowAttach").
	Op string
	// Code is the transport's own numeric result code.
	Code int
	// Message is a short description, usually derived from the transport.
	Message string
	// Cause is the underlying error, if any, beyond the transport's code.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("oomph: transport error in %s (code %d)", e.Op, e.Code)
	}
	return fmt.Sprintf("oomph: transport error in %s (code %d): %s", e.Op, e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any, for use with [errors.Is] and
// [errors.As].
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// InvalidArgument is returned for out-of-range ranks, empty destination
// lists, or zero-size buffers where one is forbidden by an operation.
type InvalidArgument struct {
	Message string
}

// Error implements the error interface.
func (e *InvalidArgument) Error() string {
	if e.Message == "" {
		return "oomph: invalid argument"
	}
	return "oomph: invalid argument: " + e.Message
}

// UseAfterMove is the panic value raised when a [MessageBuffer]'s elements
// are accessed after its ownership was transferred into a submission. Detected only where cheap
// (spec.md §4.8 permits "undefined otherwise"); a buffer that was never
// moved never reports this.
type UseAfterMove struct {
	// Buffer, if non-empty, names the buffer that was accessed.
	Buffer string
}

// Error implements the error interface.
func (e *UseAfterMove) Error() string {
	if e.Buffer == "" {
		return "oomph: buffer accessed after ownership was transferred"
	}
	return "oomph: buffer " + e.Buffer + " accessed after ownership was transferred"
}

// WrapError wraps an error with a message, preserving errors.Is/errors.As
// compatibility with cause via %w.
//
// The result satisfies errors.Is(result, cause) == true.
func WrapError(message string, cause error) error {
	if cause == nil {
		return errors.New(message)
	}
	return fmt.Errorf("%s: %w", message, cause)
}

// cancelledError marks a request's terminal error when it was resolved by a
// successful Cancel. Request.Cancel itself reports success as a bool, per
// spec.md §4.4 ("CancelFailed ... returned only as the false value of
// cancel(), not as a raised error"); this sentinel exists only so a racing
// goroutine inspecting Request.Err after the fact observes a non-nil,
// identifiable cause rather than a silent zero value.
type cancelledError struct{}

func (*cancelledError) Error() string { return "oomph: request cancelled" }

var errCancelled error = &cancelledError{}

// IsCancelled reports whether err is the terminal error of a request that
// was resolved by cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, errCancelled)
}
