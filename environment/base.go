package environment

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/logging"
)

// BaseOptions configures a BaseEnvironment.
type BaseOptions struct {
	// Executor runs batched tool invocations for offline-mode stepping.
	// Nil disables RunToolBatch.
	Executor core.ToolExecutor
	// ValidateAgents rejects step actions from unregistered agent ids.
	ValidateAgents bool
	// Logger receives step and batch events. Defaults to a no-op logger.
	Logger logging.Logger
}

// BaseEnvironment bundles the roster, state and tool-batch plumbing shared by
// concrete environments. Embed it and implement Reset and Step to satisfy
// core.Environment. All exported methods are goroutine-safe.
type BaseEnvironment struct {
	executor       core.ToolExecutor
	validateAgents bool
	logger         logging.Logger

	mu       sync.Mutex
	agentIDs []string
	state    map[string]any
}

// NewBaseEnvironment constructs a BaseEnvironment with an empty roster.
func NewBaseEnvironment(optFns ...func(o *BaseOptions)) BaseEnvironment {
	opts := BaseOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return BaseEnvironment{
		executor:       opts.Executor,
		validateAgents: opts.ValidateAgents,
		logger:         core.EnsureLogger(opts.Logger),
		state:          make(map[string]any),
	}
}

// RegisterAgents announces the agent ids the environment produces
// observations for, replacing any previous roster. Empty and duplicate ids
// are rejected and leave the roster untouched.
func (e *BaseEnvironment) RegisterAgents(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("agent id must not be empty")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate agent id %q", id)
		}
		seen[id] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.agentIDs = append([]string(nil), ids...)

	return nil
}

// AgentIDs returns a copy of the registered agent ids in registration order.
func (e *BaseEnvironment) AgentIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]string(nil), e.agentIDs...)
}

// Executor returns the attached tool executor, or nil.
func (e *BaseEnvironment) Executor() core.ToolExecutor { return e.executor }

// Logger returns the environment's logger for use by embedding
// implementations.
func (e *BaseEnvironment) Logger() logging.Logger { return e.logger }

// ValidateActions checks the step input against the roster when agent
// validation is enabled. Concrete Step implementations call it on entry.
func (e *BaseEnvironment) ValidateActions(input core.StepInput) error {
	if !e.validateAgents {
		return nil
	}

	e.mu.Lock()
	registered := make(map[string]struct{}, len(e.agentIDs))
	for _, id := range e.agentIDs {
		registered[id] = struct{}{}
	}
	e.mu.Unlock()

	for id := range input.Actions {
		if _, ok := registered[id]; !ok {
			return fmt.Errorf("action from unregistered agent %q", id)
		}
	}

	return nil
}

// SetState stores a key in the environment's state bag.
func (e *BaseEnvironment) SetState(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state[key] = value
}

// GetState returns a key from the environment's state bag.
func (e *BaseEnvironment) GetState(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.state[key]

	return v, ok
}

// ClearState empties the environment's state bag. Concrete Reset
// implementations call it to drop per-episode state.
func (e *BaseEnvironment) ClearState() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = make(map[string]any)
}

// RunToolBatch submits every invocation through the attached executor and
// awaits the results in invocation order. Failures become error-carrying
// responses rather than aborting the batch, so one bad invocation cannot
// starve the others. Without an executor every response carries an error.
func (e *BaseEnvironment) RunToolBatch(ctx context.Context, invs []core.ToolInvocation) []core.ToolResponse {
	if len(invs) == 0 {
		return nil
	}

	responses := make([]core.ToolResponse, len(invs))

	if e.executor == nil {
		for i, inv := range invs {
			responses[i] = core.ToolResponse{ID: inv.ID, Tool: inv.Tool, Err: "no tool executor attached"}
		}
		return responses
	}

	handles := make([]core.TaskHandle, len(invs))
	for i, inv := range invs {
		handle, err := e.executor.Submit(ctx, inv)
		if err != nil {
			responses[i] = core.ToolResponse{ID: inv.ID, Tool: inv.Tool, Err: err.Error()}
			continue
		}
		handles[i] = handle
	}

	for i, handle := range handles {
		if handle == nil {
			continue
		}
		resp, err := handle.Await(ctx)
		if err != nil {
			e.logger.Warn("environment.tool_batch.failed",
				"tool", resp.Tool,
				"invocation_id", resp.ID,
				"error", resp.Err,
			)
		}
		responses[i] = resp
	}

	return responses
}
