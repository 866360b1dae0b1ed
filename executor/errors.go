package executor

import "fmt"

// ExecutionError reports a failed tool invocation: the tool returned an
// error, panicked, or exceeded the configured timeout.
type ExecutionError struct {
	// InvocationID identifies the failed invocation.
	InvocationID string
	// Tool is the name of the tool that failed.
	Tool string
	// Err is the underlying cause.
	Err error
	// Stack holds the captured stack when the failure was a panic.
	Stack []byte

	timeout bool
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.timeout {
		return fmt.Sprintf("execution of tool %q timed out: %v", e.Tool, e.Err)
	}

	return fmt.Sprintf("execution of tool %q failed: %v", e.Tool, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As.
func (e *ExecutionError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was caused by the configured timeout.
func (e *ExecutionError) Timeout() bool { return e.timeout }
