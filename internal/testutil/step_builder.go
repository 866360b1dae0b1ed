package testutil

import (
	"time"

	"github.com/hupe1980/agentgym/core"
)

// StepRecordBuilder provides a fluent helper for constructing step records in
// tests. Example:
//
//	rec := NewStepRecordBuilder(1).Response("writer", "draft").Reward("writer", 1).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type StepRecordBuilder struct {
	step      int
	outputs   map[string]core.StepOutput
	result    core.StepResult
	timestamp time.Time
}

// NewStepRecordBuilder creates a builder for a record with the given step
// number.
func NewStepRecordBuilder(step int) *StepRecordBuilder {
	return &StepRecordBuilder{
		step:    step,
		outputs: map[string]core.StepOutput{},
		result: core.StepResult{
			Observations: map[string]core.Observation{},
			Rewards:      map[string]float64{},
		},
	}
}

// Output sets the full step output for an agent (chainable).
func (b *StepRecordBuilder) Output(agentID string, out core.StepOutput) *StepRecordBuilder {
	b.outputs[agentID] = out
	return b
}

// Response appends a free-form response to an agent's output (chainable).
func (b *StepRecordBuilder) Response(agentID string, response any) *StepRecordBuilder {
	out := b.outputs[agentID]
	out.Responses = append(out.Responses, response)
	b.outputs[agentID] = out
	return b
}

// ToolInvocation appends a tool invocation to an agent's output (chainable).
func (b *StepRecordBuilder) ToolInvocation(agentID string, inv core.ToolInvocation) *StepRecordBuilder {
	out := b.outputs[agentID]
	out.ToolInvocations = append(out.ToolInvocations, inv)
	b.outputs[agentID] = out
	return b
}

// Observation sets the environment observation delivered to an agent (chainable).
func (b *StepRecordBuilder) Observation(agentID string, payload any) *StepRecordBuilder {
	b.result.Observations[agentID] = core.NewObservation(core.SourceEnvironment, payload)
	return b
}

// Reward sets the reward earned by an agent (chainable).
func (b *StepRecordBuilder) Reward(agentID string, reward float64) *StepRecordBuilder {
	b.result.Rewards[agentID] = reward
	return b
}

// Done marks the step as terminating the episode (chainable).
func (b *StepRecordBuilder) Done() *StepRecordBuilder {
	b.result.Done = true
	return b
}

// Info sets a diagnostic info key on the step result (chainable).
func (b *StepRecordBuilder) Info(key string, value any) *StepRecordBuilder {
	if b.result.Info == nil {
		b.result.Info = map[string]any{}
	}
	b.result.Info[key] = value
	return b
}

// Timestamp overrides the record timestamp (chainable). Use mainly in tests
// where determinism matters.
func (b *StepRecordBuilder) Timestamp(ts time.Time) *StepRecordBuilder {
	b.timestamp = ts
	return b
}

// Build constructs the core.StepRecord value.
func (b *StepRecordBuilder) Build() core.StepRecord {
	ts := b.timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	rec := core.StepRecord{Step: b.step, Result: b.result, Timestamp: ts}
	if len(b.outputs) > 0 {
		rec.Outputs = b.outputs
	}

	return rec
}
