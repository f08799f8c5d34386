package dispatch

import (
	"fmt"

	"foldsync/internal/fold"
)

// RemoteCommandError reports a remote rejection or transport failure with
// the context of what was being installed. Command carries the exact text
// sent (1-based bounds); Range is nil for the clear entry and for
// whole-batch delegate failures; Index is the atomic batch index of the
// failing entry, or -1 when the failure was not index-addressable.
type RemoteCommandError struct {
	Command string
	Index   int
	Range   *fold.Range
	Err     error
}

// Error implements the error interface
func (e *RemoteCommandError) Error() string {
	switch {
	case e.Range != nil && e.Index >= 0:
		return fmt.Sprintf("remote command %q (batch entry %d, fold lines %d-%d) failed: %v",
			e.Command, e.Index, e.Range.Start+1, e.Range.End+1, e.Err)
	case e.Range != nil:
		return fmt.Sprintf("remote command %q (fold lines %d-%d) failed: %v",
			e.Command, e.Range.Start+1, e.Range.End+1, e.Err)
	case e.Index >= 0:
		return fmt.Sprintf("remote command %q (batch entry %d) failed: %v", e.Command, e.Index, e.Err)
	default:
		return fmt.Sprintf("remote command %q failed: %v", e.Command, e.Err)
	}
}

// Unwrap returns the wrapped cause
func (e *RemoteCommandError) Unwrap() error {
	return e.Err
}

// newCommandError wraps a failure for a single command
func newCommandError(command string, r *fold.Range, err error) *RemoteCommandError {
	return &RemoteCommandError{Command: command, Index: -1, Range: r, Err: err}
}

// newBatchEntryError wraps a failure for one entry of an atomic batch
func newBatchEntryError(command string, index int, r *fold.Range, err error) *RemoteCommandError {
	return &RemoteCommandError{Command: command, Index: index, Range: r, Err: err}
}
