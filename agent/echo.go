package agent

import (
	"context"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/llm"
	"github.com/hupe1980/agentgym/logging"
)

// EchoOptions configures an EchoAgent.
type EchoOptions struct {
	// Client optionally routes the echoed text through a language model
	// before replying. Nil echoes verbatim.
	Client llm.Client
	// Logger receives lifecycle events. Defaults to a no-op logger.
	Logger logging.Logger
}

// EchoAgent replies to every turn by sending the latest payload back to the
// environment as a message action. It exists to exercise the full
// agent/environment loop without a model behind it and is the quickest way to
// smoke-test a network wiring: paired with an echoing environment, each step
// observes the agent's own prior message.
type EchoAgent struct {
	BaseAgent
	client llm.Client
}

// NewEchoAgent creates an EchoAgent with the given id.
func NewEchoAgent(id string, optFns ...func(o *EchoOptions)) *EchoAgent {
	opts := EchoOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &EchoAgent{
		BaseAgent: NewBaseAgent(id, func(o *BaseOptions) { o.Logger = opts.Logger }),
		client:    opts.Client,
	}
}

// Act echoes the latest text payload. Queued messages win over queued
// observations, which win over the step observation, so peer mail is
// reflected back too.
func (a *EchoAgent) Act(ctx context.Context, obs core.Observation) (core.StepOutput, error) {
	if err := a.BeginAct(); err != nil {
		return core.StepOutput{}, err
	}

	text := obs.Text()

	if queued := a.DrainObservations(); len(queued) > 0 {
		if s := queued[len(queued)-1].Text(); s != "" {
			text = s
		}
	}
	if msgs := a.DrainMessages(); len(msgs) > 0 {
		if s, ok := msgs[len(msgs)-1].Content.(string); ok && s != "" {
			text = s
		}
	}
	a.DrainToolResults()

	if a.client != nil {
		res, err := a.client.Complete(ctx, text)
		if err != nil {
			a.EndAct(0)
			return core.StepOutput{}, err
		}
		text = res.Text
	}

	a.EndAct(0)

	return core.StepOutput{
		Responses:          []any{text},
		EnvironmentActions: map[string]any{"message": text},
	}, nil
}
