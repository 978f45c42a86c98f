package asyncexec

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrTimedOut is returned by Port.Wait when the timeout elapses before
	// a packet arrives. It is the only recoverable wait failure; the
	// executor treats every other wait error as fatal.
	ErrTimedOut = errors.New("asyncexec: wait timed out")

	// ErrExecutorDone is returned when an operation requires a live
	// executor but the executor has been closed.
	ErrExecutorDone = errors.New("asyncexec: executor is done")

	// ErrAlreadyResolved is returned by Oneshot.Resolve when the value was
	// already supplied.
	ErrAlreadyResolved = errors.New("asyncexec: oneshot already resolved")

	// ErrReceiverClosed is returned when queueing through a receiver
	// registration that has been closed.
	ErrReceiverClosed = errors.New("asyncexec: packet receiver is closed")
)

// PortError describes a failed wait-primitive operation. A port that can
// neither accept nor deliver packets leaves the executor unable to make
// progress, so these are raised as panics carrying a *PortError value
// rather than returned.
type PortError struct {
	Cause error
	Op    string
}

// Error implements the error interface.
func (e *PortError) Error() string {
	return fmt.Sprintf("asyncexec: port %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and
// [errors.As].
func (e *PortError) Unwrap() error {
	return e.Cause
}
