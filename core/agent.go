package core

import "context"

// AgentStatus tracks the per-step lifecycle of an agent.
//
// The cycle is Idle -> Acting -> Waiting -> Idle, repeating once per network
// step, with Idle -> Terminated when the network or environment signals
// episode end (or the agent terminates itself).
type AgentStatus int

const (
	// StatusIdle means the agent is between turns.
	StatusIdle AgentStatus = iota
	// StatusActing means the agent is inside an Act call.
	StatusActing
	// StatusWaiting means the agent emitted tool invocations and is waiting
	// for their results.
	StatusWaiting
	// StatusTerminated means the agent takes no further turns this episode.
	StatusTerminated
)

// String returns the string representation of the agent status.
func (s AgentStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusActing:
		return "acting"
	case StatusWaiting:
		return "waiting"
	case StatusTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Agent is the unit of autonomous behavior driven by the network. A concrete
// agent owns its internal state exclusively; the network touches an agent
// from at most one goroutine at a time.
//
// Implementations SHOULD:
//   - Treat Act as a function of the observation plus internal state
//   - Mutate internal state only in Observe/OnToolResult/OnMessage/Act
//   - Refuse to act after Terminate until Reset is called
type Agent interface {
	// ID returns the unique identifier of the agent within a network.
	ID() string

	// Act produces the agent's turn for the current step given the latest
	// observation. It may call the agent's own LLM client and tool registry.
	// Acting on a terminated agent returns an error.
	Act(ctx context.Context, obs Observation) (StepOutput, error)

	// Observe delivers an observation that should influence the next Act.
	// Side effect is internal-state mutation only.
	Observe(ctx context.Context, obs Observation)

	// OnToolResult delivers the outcome of a previously emitted tool
	// invocation. In streaming mode this fires once per completed
	// invocation before the environment step; in offline mode once per
	// environment-served response after it.
	OnToolResult(ctx context.Context, res ToolResponse)

	// OnMessage delivers a direct or broadcast message from another agent.
	OnMessage(ctx context.Context, msg Message)

	// Status reports the current lifecycle state.
	Status() AgentStatus

	// Terminate marks the agent as finished for this episode. Idempotent.
	Terminate()

	// Reset returns the agent to idle and clears per-episode state.
	Reset()
}
