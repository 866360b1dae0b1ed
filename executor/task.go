package executor

import (
	"context"
	"sync"

	"github.com/hupe1980/agentgym/core"
)

// Task tracks one submitted invocation. It starts in TaskPending and settles
// exactly once into TaskCompleted or TaskFailed; the settled response and
// error never change afterwards.
type Task struct {
	id   string
	inv  core.ToolInvocation
	done chan struct{}

	mu    sync.RWMutex
	state core.TaskState
	resp  core.ToolResponse
	err   error
}

func newTask(inv core.ToolInvocation) *Task {
	return &Task{
		id:    inv.ID,
		inv:   inv,
		done:  make(chan struct{}),
		state: core.TaskPending,
	}
}

// ID returns the invocation id this task tracks.
func (t *Task) ID() string { return t.id }

// State reports the current lifecycle state.
func (t *Task) State() core.TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.state
}

// Poll returns the settled response without blocking. The second return is
// false while the task is still pending.
func (t *Task) Poll() (core.ToolResponse, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.state == core.TaskPending {
		return core.ToolResponse{}, false
	}

	return t.resp, true
}

// Await blocks until the task settles or ctx is cancelled. Calling Await on
// a settled task returns the same response again.
func (t *Task) Await(ctx context.Context) (core.ToolResponse, error) {
	select {
	case <-t.done:
		t.mu.RLock()
		defer t.mu.RUnlock()

		return t.resp, t.err
	case <-ctx.Done():
		return core.ToolResponse{ID: t.id, Tool: t.inv.Tool, Err: ctx.Err().Error()}, ctx.Err()
	}
}

// complete settles the task. Only the first call has an effect.
func (t *Task) complete(resp core.ToolResponse, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != core.TaskPending {
		return
	}

	t.resp = resp
	t.err = err

	if err != nil {
		t.state = core.TaskFailed
	} else {
		t.state = core.TaskCompleted
	}

	close(t.done)
}
