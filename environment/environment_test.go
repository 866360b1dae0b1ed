package environment

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/executor"
	"github.com/hupe1980/agentgym/tool"
)

// Interface compliance (compile-time assertion)
var _ core.Environment = (*TaskEnvironment)(nil)

func newToolExecutor(t *testing.T) *executor.Executor {
	t.Helper()

	registry := tool.NewRegistry()
	if err := registry.Register(tool.NewEchoTool()); err != nil {
		t.Fatalf("register echo tool: %v", err)
	}

	return executor.New(registry)
}

func TestBaseEnvironment_RegisterAgents(t *testing.T) {
	env := NewBaseEnvironment()

	if err := env.RegisterAgents([]string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := env.AgentIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("expected [a b], got %v", ids)
	}

	// The returned slice is a copy.
	ids[0] = "mutated"
	if env.AgentIDs()[0] != "a" {
		t.Fatalf("roster mutated through returned slice")
	}

	if err := env.RegisterAgents([]string{"a", ""}); err == nil {
		t.Fatalf("expected error for empty agent id")
	}
	if err := env.RegisterAgents([]string{"a", "a"}); err == nil {
		t.Fatalf("expected error for duplicate agent id")
	}

	// Failed registration leaves the roster untouched.
	if got := env.AgentIDs(); len(got) != 2 || got[0] != "a" {
		t.Fatalf("expected roster [a b] after failed register, got %v", got)
	}
}

func TestBaseEnvironment_StateBag(t *testing.T) {
	env := NewBaseEnvironment()

	env.SetState("round", 7)
	if v, ok := env.GetState("round"); !ok || v != 7 {
		t.Fatalf("expected round=7, got %v (ok=%v)", v, ok)
	}

	env.ClearState()
	if _, ok := env.GetState("round"); ok {
		t.Fatalf("expected state bag to be empty after clear")
	}
}

func TestBaseEnvironment_RunToolBatchWithoutExecutor(t *testing.T) {
	env := NewBaseEnvironment()

	responses := env.RunToolBatch(context.Background(), []core.ToolInvocation{
		{ID: "inv-1", Tool: "echo", Arguments: map[string]any{"text": "hi"}},
	})
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if !responses[0].Failed() || !strings.Contains(responses[0].Err, "no tool executor") {
		t.Fatalf("expected missing-executor error, got %+v", responses[0])
	}
}

func TestBaseEnvironment_RunToolBatch(t *testing.T) {
	env := NewBaseEnvironment(func(o *BaseOptions) { o.Executor = newToolExecutor(t) })

	responses := env.RunToolBatch(context.Background(), []core.ToolInvocation{
		{ID: "inv-1", Tool: "echo", Arguments: map[string]any{"text": "hi"}},
		{ID: "inv-2", Tool: "missing", Arguments: map[string]any{}},
	})
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}

	if responses[0].Failed() {
		t.Fatalf("expected first invocation to succeed, got %+v", responses[0])
	}
	if responses[0].Output["text"] != "hi" {
		t.Fatalf("expected echoed output, got %+v", responses[0].Output)
	}

	// Order is preserved and one failure never aborts the batch.
	if responses[1].ID != "inv-2" || !responses[1].Failed() {
		t.Fatalf("expected second invocation to fail in place, got %+v", responses[1])
	}
}

func TestTaskEnvironment_EchoLoop(t *testing.T) {
	ctx := context.Background()

	env := NewTaskEnvironment()
	if err := env.RegisterAgents([]string{"echo-1"}); err != nil {
		t.Fatalf("register agents: %v", err)
	}

	observations, err := env.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if observations["echo-1"].Text() != "welcome" {
		t.Fatalf("expected initial observation 'welcome', got %q", observations["echo-1"].Text())
	}

	messages := []string{"first", "second", "third"}
	for i, msg := range messages {
		result, err := env.Step(ctx, core.StepInput{
			Actions: map[string]map[string]any{"echo-1": {"message": msg}},
		})
		if err != nil {
			t.Fatalf("step %d: %v", i+1, err)
		}
		if result.Observations["echo-1"].Text() != msg {
			t.Fatalf("step %d: expected observation %q, got %q", i+1, msg, result.Observations["echo-1"].Text())
		}
		if result.Rewards["echo-1"] != 1.0 {
			t.Fatalf("step %d: expected reward 1.0, got %v", i+1, result.Rewards["echo-1"])
		}
		wantDone := i == len(messages)-1
		if result.Done != wantDone {
			t.Fatalf("step %d: expected done=%v, got %v", i+1, wantDone, result.Done)
		}
	}
}

func TestTaskEnvironment_IdleAgent(t *testing.T) {
	ctx := context.Background()

	env := NewTaskEnvironment(func(o *TaskOptions) { o.MaxSteps = 5 })
	if err := env.RegisterAgents([]string{"a", "b"}); err != nil {
		t.Fatalf("register agents: %v", err)
	}
	if _, err := env.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	result, err := env.Step(ctx, core.StepInput{
		Actions: map[string]map[string]any{"a": {"message": "ping"}},
	})
	if err != nil {
		t.Fatalf("step: %v", err)
	}

	if result.Rewards["a"] != 1.0 || result.Rewards["b"] != 0 {
		t.Fatalf("expected rewards a=1 b=0, got %v", result.Rewards)
	}
	if result.Observations["a"].Text() != "ping" {
		t.Fatalf("expected a to observe its message, got %q", result.Observations["a"].Text())
	}
	if result.Observations["b"].Text() != "welcome" {
		t.Fatalf("expected idle b to observe the initial payload, got %q", result.Observations["b"].Text())
	}

	// The idle agent keeps its last observation on later steps too.
	result, err = env.Step(ctx, core.StepInput{
		Actions: map[string]map[string]any{"b": {"message": "pong"}},
	})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if result.Observations["a"].Text() != "ping" || result.Observations["b"].Text() != "pong" {
		t.Fatalf("expected observations ping/pong, got %q/%q",
			result.Observations["a"].Text(), result.Observations["b"].Text())
	}
}

func TestTaskEnvironment_ValidateAgents(t *testing.T) {
	ctx := context.Background()

	env := NewTaskEnvironment(func(o *TaskOptions) { o.ValidateAgents = true })
	if err := env.RegisterAgents([]string{"a"}); err != nil {
		t.Fatalf("register agents: %v", err)
	}
	if _, err := env.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	_, err := env.Step(ctx, core.StepInput{
		Actions: map[string]map[string]any{"intruder": {"message": "hi"}},
	})
	if err == nil || !strings.Contains(err.Error(), "unregistered agent") {
		t.Fatalf("expected unregistered-agent error, got %v", err)
	}
}

func TestTaskEnvironment_ToolBatch(t *testing.T) {
	ctx := context.Background()

	env := NewTaskEnvironment(func(o *TaskOptions) { o.Executor = newToolExecutor(t) })
	if err := env.RegisterAgents([]string{"a"}); err != nil {
		t.Fatalf("register agents: %v", err)
	}
	if _, err := env.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	result, err := env.Step(ctx, core.StepInput{
		Actions:         map[string]map[string]any{"a": {"message": "hi"}},
		ToolInvocations: []core.ToolInvocation{{ID: "inv-1", Tool: "echo", Arguments: map[string]any{"text": "hi"}, Caller: "a"}},
	})
	if err != nil {
		t.Fatalf("step: %v", err)
	}

	if len(result.ToolResponses) != 1 {
		t.Fatalf("expected 1 tool response, got %d", len(result.ToolResponses))
	}
	if result.ToolResponses[0].Failed() {
		t.Fatalf("expected tool response to succeed, got %+v", result.ToolResponses[0])
	}
}

func TestTaskEnvironment_ResetRewinds(t *testing.T) {
	ctx := context.Background()

	env := NewTaskEnvironment()
	if err := env.RegisterAgents([]string{"a"}); err != nil {
		t.Fatalf("register agents: %v", err)
	}
	if _, err := env.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := env.Step(ctx, core.StepInput{
			Actions: map[string]map[string]any{"a": {"message": "x"}},
		}); err != nil {
			t.Fatalf("step: %v", err)
		}
	}

	observations, err := env.Reset(ctx)
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if observations["a"].Text() != "welcome" {
		t.Fatalf("expected fresh initial observation, got %q", observations["a"].Text())
	}

	result, err := env.Step(ctx, core.StepInput{
		Actions: map[string]map[string]any{"a": {"message": "again"}},
	})
	if err != nil {
		t.Fatalf("step after reset: %v", err)
	}
	if result.Done {
		t.Fatalf("expected fresh episode to not be done on step 1")
	}
	if result.Info["step"] != 1 {
		t.Fatalf("expected step counter rewound to 1, got %v", result.Info["step"])
	}
}
