package core

import "time"

// StepOutput is everything an agent produced in one turn: free-form responses,
// tool invocations to dispatch, messages for other agents, actions directed at
// the environment, and an optional self-termination signal.
type StepOutput struct {
	Responses          []any            `json:"responses,omitempty"`
	ToolInvocations    []ToolInvocation `json:"tool_invocations,omitempty"`
	Messages           []Message        `json:"messages,omitempty"`
	EnvironmentActions map[string]any   `json:"environment_actions,omitempty"`
	Terminated         bool             `json:"terminated,omitempty"`
}

// Empty reports whether the turn produced nothing at all.
func (o StepOutput) Empty() bool {
	return len(o.Responses) == 0 && len(o.ToolInvocations) == 0 &&
		len(o.Messages) == 0 && len(o.EnvironmentActions) == 0 && !o.Terminated
}

// StepInput carries one network step into the environment. Actions maps agent
// id to that agent's environment-directed action payload. ToolInvocations is
// only populated in offline execution mode, where the environment executes
// the batch itself.
type StepInput struct {
	Actions         map[string]map[string]any `json:"actions,omitempty"`
	ToolInvocations []ToolInvocation          `json:"tool_invocations,omitempty"`
}

// StepResult is what the environment returns from one step: per-agent
// observations, a global termination flag, optional per-agent rewards,
// free-form diagnostic info, and (offline mode) the responses for the batched
// tool invocations it served.
type StepResult struct {
	Observations  map[string]Observation `json:"observations,omitempty"`
	Done          bool                   `json:"done"`
	Rewards       map[string]float64     `json:"rewards,omitempty"`
	Info          map[string]any         `json:"info,omitempty"`
	ToolResponses []ToolResponse         `json:"tool_responses,omitempty"`
}

// StepRecord is one entry of recorded episode history: the step number
// (1-based, strictly increasing within an episode), every agent's output, and
// the environment result.
type StepRecord struct {
	Step      int                   `json:"step"`
	Outputs   map[string]StepOutput `json:"outputs,omitempty"`
	Result    StepResult            `json:"result"`
	Timestamp time.Time             `json:"timestamp"`
}
