package network

import (
	"context"

	"github.com/hupe1980/agentgym/core"
)

// CallbackType identifies the lifecycle points of a network run where
// callbacks can be executed.
//
// Callbacks hook into the step loop without modifying orchestration logic.
// They run synchronously on the stepping goroutine and can halt the step by
// returning an error (except OnError, whose return value is ignored).
type CallbackType string

const (
	// CallbackBeforeStep fires before a network step begins. Use for setup,
	// validation or instrumentation. An error aborts the step.
	CallbackBeforeStep CallbackType = "before_step"

	// CallbackAfterStep fires after a step record has been built and
	// recorded. The record is available in the callback context.
	CallbackAfterStep CallbackType = "after_step"

	// CallbackBeforeAgent fires before each agent's turn within a step.
	// The observation about to be delivered is available in the context.
	CallbackBeforeAgent CallbackType = "before_agent"

	// CallbackAfterAgent fires after an agent's turn completed. The agent's
	// step output is available in the context.
	CallbackAfterAgent CallbackType = "after_agent"

	// CallbackOnError fires when an agent's turn fails. Use for alerting or
	// cleanup; errors returned by the callback itself are ignored.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries the execution state available to a callback.
// Fields are populated depending on the callback type; unrelated fields are
// zero.
type CallbackContext struct {
	// EpisodeID identifies the episode under construction.
	EpisodeID string

	// Step is the number of the step being executed (1-based).
	Step int

	// AgentID identifies the agent for per-agent callback types.
	AgentID string

	// Observation is the observation about to be delivered (BeforeAgent).
	Observation *core.Observation

	// Output is the agent's produced turn (AfterAgent).
	Output *core.StepOutput

	// Record is the completed step record (AfterStep).
	Record *core.StepRecord

	// Err is the agent error that triggered the callback (OnError).
	Err error

	// CallbackType indicates which lifecycle point triggered this execution.
	CallbackType CallbackType

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback is an execution lifecycle hook.
//
// Implementations should be fast (they run synchronously on the stepping
// goroutine), safe against panics, and stateless between invocations.
// Returning an error terminates the associated step.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a plain function as a Callback, for simple stateless
// hook logic.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a callback that runs fn whenever the given
// callback type fires.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager routes callbacks to their registered handlers.
//
// Callbacks registered for the same type run sequentially in registration
// order; the first error stops execution and is returned. Registration is not
// synchronized: register all callbacks before the network starts stepping.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback for its declared type. Multiple callbacks
// per type execute in registration order.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks runs every callback registered for the given type and
// returns the first error, or nil when all succeed.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	callbacks, exists := cm.callbacks[callbackType]
	if !exists {
		return nil
	}

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}
