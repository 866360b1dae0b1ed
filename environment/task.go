package environment

import (
	"context"
	"sync"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/logging"
)

// TaskOptions configures a TaskEnvironment.
type TaskOptions struct {
	// MaxSteps is the number of steps before the episode is done.
	MaxSteps int
	// InitialObservation is the payload every agent observes after Reset and
	// before it has sent a message.
	InitialObservation string
	// Executor runs batched tool invocations for offline-mode stepping.
	Executor core.ToolExecutor
	// ValidateAgents rejects step actions from unregistered agent ids.
	ValidateAgents bool
	// Logger receives step events. Defaults to a no-op logger.
	Logger logging.Logger
}

// TaskEnvironment is a ready-made fixed-horizon environment: every step it
// echoes each agent's "message" action back as that agent's next observation
// and finishes after MaxSteps steps. Agents that acted in a step earn a
// reward of 1, idle agents 0.
//
// Paired with an EchoAgent this closes the smallest possible loop: each
// observation equals the agent's own prior message.
type TaskEnvironment struct {
	BaseEnvironment
	maxSteps int
	initial  string

	mu           sync.Mutex
	step         int
	lastMessages map[string]string
}

// NewTaskEnvironment creates a TaskEnvironment with a 3-step horizon and a
// "welcome" initial observation.
func NewTaskEnvironment(optFns ...func(o *TaskOptions)) *TaskEnvironment {
	opts := TaskOptions{
		MaxSteps:           3,
		InitialObservation: "welcome",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxSteps < 1 {
		opts.MaxSteps = 1
	}

	return &TaskEnvironment{
		BaseEnvironment: NewBaseEnvironment(func(o *BaseOptions) {
			o.Executor = opts.Executor
			o.ValidateAgents = opts.ValidateAgents
			o.Logger = opts.Logger
		}),
		maxSteps:     opts.MaxSteps,
		initial:      opts.InitialObservation,
		lastMessages: make(map[string]string),
	}
}

// MaxSteps returns the episode horizon.
func (e *TaskEnvironment) MaxSteps() int { return e.maxSteps }

// Reset implements core.Environment. It rewinds the step counter, forgets
// all prior messages and hands every registered agent the initial
// observation.
func (e *TaskEnvironment) Reset(_ context.Context) (map[string]core.Observation, error) {
	e.mu.Lock()
	e.step = 0
	e.lastMessages = make(map[string]string)
	e.mu.Unlock()

	e.ClearState()

	observations := make(map[string]core.Observation)
	for _, id := range e.AgentIDs() {
		observations[id] = core.NewObservation(core.SourceEnvironment, e.initial)
	}

	return observations, nil
}

// Step implements core.Environment. It records each agent's message action,
// serves batched tool invocations through the executor, and reflects every
// agent's latest message back as its next observation. Done turns true once
// the step counter reaches MaxSteps.
func (e *TaskEnvironment) Step(ctx context.Context, input core.StepInput) (core.StepResult, error) {
	if err := e.ValidateActions(input); err != nil {
		return core.StepResult{}, err
	}

	toolResponses := e.RunToolBatch(ctx, input.ToolInvocations)

	ids := e.AgentIDs()

	e.mu.Lock()
	e.step++
	step := e.step

	acted := make(map[string]bool, len(input.Actions))
	for id, action := range input.Actions {
		acted[id] = true
		if msg, ok := action["message"].(string); ok {
			e.lastMessages[id] = msg
		}
	}

	observations := make(map[string]core.Observation, len(ids))
	rewards := make(map[string]float64, len(ids))
	for _, id := range ids {
		payload := e.initial
		if msg, ok := e.lastMessages[id]; ok {
			payload = msg
		}
		observations[id] = core.NewObservation(core.SourceEnvironment, payload)
		if acted[id] {
			rewards[id] = 1.0
		} else {
			rewards[id] = 0
		}
	}
	e.mu.Unlock()

	done := step >= e.maxSteps

	e.Logger().Debug("environment.step",
		"step", step,
		"done", done,
		"actions", len(input.Actions),
		"tool_invocations", len(input.ToolInvocations),
	)

	return core.StepResult{
		Observations:  observations,
		Done:          done,
		Rewards:       rewards,
		Info:          map[string]any{"step": step},
		ToolResponses: toolResponses,
	}, nil
}
