package core

import "context"

// TaskState describes the completion state of an asynchronously executing
// tool invocation.
type TaskState int

const (
	// TaskPending means the invocation has not finished yet.
	TaskPending TaskState = iota
	// TaskCompleted means the invocation finished with a value.
	TaskCompleted
	// TaskFailed means the invocation finished with an error.
	TaskFailed
)

// String returns the string representation of the task state.
func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TaskHandle tracks an asynchronously executing tool invocation. Handles are
// idempotent once complete: repeated Poll/Await calls return the same
// response.
type TaskHandle interface {
	// ID returns the unique task identifier.
	ID() string

	// State reports the current completion state.
	State() TaskState

	// Poll returns the response and true when the task has finished, or the
	// zero response and false while it is still pending. Never blocks.
	Poll() (ToolResponse, bool)

	// Await blocks until the task completes or ctx is done. A failed task
	// returns the error-carrying response together with the execution error.
	Await(ctx context.Context) (ToolResponse, error)
}

// ToolExecutor dispatches tool invocations according to an execution policy.
//
// Implementations resolve the named tool through a registry, consult their
// policy before dispatch, and surface failures to the immediate caller. No
// retry is built in.
type ToolExecutor interface {
	// Execute runs the invocation to completion and returns the response.
	// The returned error is non-nil for resolution and execution failures;
	// the response mirrors the error in its Err field for uniform routing.
	Execute(ctx context.Context, inv ToolInvocation) (ToolResponse, error)

	// Submit schedules the invocation for asynchronous execution and returns
	// a pending handle immediately.
	Submit(ctx context.Context, inv ToolInvocation) (TaskHandle, error)
}
