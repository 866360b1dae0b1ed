package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/logging"
)

// ErrTerminated is returned when Act is called on a terminated agent. Reset
// clears the condition.
var ErrTerminated = errors.New("agent is terminated")

// BaseOptions configures a BaseAgent.
type BaseOptions struct {
	// Logger receives lifecycle events. Defaults to a no-op logger.
	Logger logging.Logger
}

// BaseAgent bundles the identity, status machine and inbox bookkeeping shared
// by every agent. Embed it in concrete agent implementations and supply an
// Act method to satisfy the core.Agent interface. All exported methods are
// goroutine-safe.
//
// The status cycle is Idle -> Acting -> Waiting -> Idle: BeginAct enters
// Acting, EndAct settles on Waiting while tool results are outstanding
// (Idle otherwise), and OnToolResult drops back to Idle once the last
// pending result arrives. Terminate is sticky until Reset.
type BaseAgent struct {
	id     string
	logger logging.Logger

	mu           sync.Mutex
	status       core.AgentStatus
	state        map[string]any
	observations []core.Observation
	messages     []core.Message
	toolResults  []core.ToolResponse
	pendingTools int
}

// NewBaseAgent constructs a BaseAgent in the Idle state.
func NewBaseAgent(id string, optFns ...func(o *BaseOptions)) BaseAgent {
	opts := BaseOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return BaseAgent{
		id:     id,
		logger: core.EnsureLogger(opts.Logger),
		state:  make(map[string]any),
	}
}

// ID returns the unique identifier of the agent within a network.
func (b *BaseAgent) ID() string { return b.id }

// Logger returns the agent's logger for use by embedding implementations.
func (b *BaseAgent) Logger() logging.Logger { return b.logger }

// Status reports the current lifecycle state.
func (b *BaseAgent) Status() core.AgentStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.status
}

// Act on the bare base is a no-op turn: it runs the status cycle and returns
// an empty output. Concrete agents embed BaseAgent and replace Act with their
// own behavior, typically bracketed by BeginAct and EndAct.
func (b *BaseAgent) Act(_ context.Context, _ core.Observation) (core.StepOutput, error) {
	if err := b.BeginAct(); err != nil {
		return core.StepOutput{}, err
	}
	b.EndAct(0)

	return core.StepOutput{}, nil
}

// Observe queues an observation for the next turn.
func (b *BaseAgent) Observe(_ context.Context, obs core.Observation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.observations = append(b.observations, obs)
}

// OnMessage queues a message from another agent for the next turn.
func (b *BaseAgent) OnMessage(_ context.Context, msg core.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages = append(b.messages, msg)
}

// OnToolResult queues the outcome of a previously emitted tool invocation and
// clears the Waiting status once no results remain outstanding.
func (b *BaseAgent) OnToolResult(_ context.Context, res core.ToolResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.toolResults = append(b.toolResults, res)

	if b.pendingTools > 0 {
		b.pendingTools--
	}
	if b.status == core.StatusWaiting && b.pendingTools == 0 {
		b.status = core.StatusIdle
	}
}

// Terminate marks the agent as finished for this episode. Idempotent; the
// agent refuses further Act calls until Reset.
func (b *BaseAgent) Terminate() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == core.StatusTerminated {
		return
	}

	b.status = core.StatusTerminated
	b.logger.Debug("agent.terminated", "agent_id", b.id)
}

// Reset returns the agent to Idle and clears the inbox and scratch state.
func (b *BaseAgent) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status = core.StatusIdle
	b.state = make(map[string]any)
	b.observations = nil
	b.messages = nil
	b.toolResults = nil
	b.pendingTools = 0
}

// SetState stores a key in the agent's scratch state. The state map is
// available to instruction templates and dynamic instruction providers.
func (b *BaseAgent) SetState(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state[key] = value
}

// State returns a copy of the agent's scratch state.
func (b *BaseAgent) State() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]any, len(b.state))
	for k, v := range b.state {
		out[k] = v
	}

	return out
}

// BeginAct transitions the agent into Acting. Concrete Act implementations
// call it on entry; it fails on a terminated agent and otherwise accepts any
// status so a turn can start even while results are outstanding.
func (b *BaseAgent) BeginAct() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == core.StatusTerminated {
		return fmt.Errorf("agent %q: %w", b.id, ErrTerminated)
	}

	b.status = core.StatusActing

	return nil
}

// EndAct settles the post-turn status: Waiting when the turn emitted tool
// invocations whose results are still outstanding, Idle otherwise. A
// terminated agent stays terminated.
func (b *BaseAgent) EndAct(emittedInvocations int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == core.StatusTerminated {
		return
	}

	b.pendingTools += emittedInvocations
	if b.pendingTools > 0 {
		b.status = core.StatusWaiting
	} else {
		b.status = core.StatusIdle
	}
}

// DrainObservations removes and returns all queued observations in arrival
// order.
func (b *BaseAgent) DrainObservations() []core.Observation {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.observations
	b.observations = nil

	return out
}

// DrainMessages removes and returns all queued messages in arrival order.
func (b *BaseAgent) DrainMessages() []core.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.messages
	b.messages = nil

	return out
}

// DrainToolResults removes and returns all queued tool results in arrival
// order.
func (b *BaseAgent) DrainToolResults() []core.ToolResponse {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.toolResults
	b.toolResults = nil

	return out
}
