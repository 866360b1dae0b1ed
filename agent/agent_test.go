package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/llm"
	"github.com/hupe1980/agentgym/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface compliance checks
var (
	_ core.Agent = (*BaseAgent)(nil)
	_ core.Agent = (*EchoAgent)(nil)
	_ core.Agent = (*LLMAgent)(nil)
)

func testAdderTool() tool.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	return tool.NewFunctionTool("adder", "Adds two numbers", schema, nil, func(_ context.Context, req map[string]any) (map[string]any, error) {
		a, _ := req["a"].(float64)
		b, _ := req["b"].(float64)
		return map[string]any{"sum": a + b}, nil
	})
}

// -------------------- BaseAgent Tests --------------------

func TestBaseAgent_StatusCycle(t *testing.T) {
	ctx := context.Background()
	base := NewBaseAgent("worker")

	assert.Equal(t, "worker", base.ID())
	assert.Equal(t, core.StatusIdle, base.Status())

	require.NoError(t, base.BeginAct())
	assert.Equal(t, core.StatusActing, base.Status())

	base.EndAct(2)
	assert.Equal(t, core.StatusWaiting, base.Status())

	base.OnToolResult(ctx, core.ToolResponse{ID: "inv-1", Tool: "echo"})
	assert.Equal(t, core.StatusWaiting, base.Status())

	base.OnToolResult(ctx, core.ToolResponse{ID: "inv-2", Tool: "echo"})
	assert.Equal(t, core.StatusIdle, base.Status())
}

func TestBaseAgent_NoOpAct(t *testing.T) {
	ctx := context.Background()
	base := NewBaseAgent("worker")

	out, err := base.Act(ctx, core.NewObservation(core.SourceEnvironment, "hello"))
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, core.StatusIdle, base.Status())
}

func TestBaseAgent_TerminateAndReset(t *testing.T) {
	ctx := context.Background()
	base := NewBaseAgent("worker")

	base.Terminate()
	base.Terminate()
	assert.Equal(t, core.StatusTerminated, base.Status())

	_, err := base.Act(ctx, core.NewObservation(core.SourceEnvironment, "hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTerminated)

	base.Reset()
	assert.Equal(t, core.StatusIdle, base.Status())

	out, err := base.Act(ctx, core.NewObservation(core.SourceEnvironment, "hello"))
	require.NoError(t, err)
	assert.True(t, out.Empty())
}

func TestBaseAgent_InboxDrains(t *testing.T) {
	ctx := context.Background()
	base := NewBaseAgent("worker")

	base.Observe(ctx, core.NewObservation(core.SourceEnvironment, "one"))
	base.OnMessage(ctx, core.Message{Sender: "peer", Content: "two"})
	base.OnToolResult(ctx, core.ToolResponse{ID: "inv-1", Tool: "echo", Output: map[string]any{"text": "three"}})

	obs := base.DrainObservations()
	require.Len(t, obs, 1)
	assert.Equal(t, "one", obs[0].Text())
	assert.Empty(t, base.DrainObservations())

	msgs := base.DrainMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "peer", msgs[0].Sender)
	assert.Empty(t, base.DrainMessages())

	results := base.DrainToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "echo", results[0].Tool)
	assert.Empty(t, base.DrainToolResults())
}

func TestBaseAgent_StateCopies(t *testing.T) {
	base := NewBaseAgent("worker")

	base.SetState("task", "demo")

	state := base.State()
	assert.Equal(t, "demo", state["task"])

	state["task"] = "mutated"
	assert.Equal(t, "demo", base.State()["task"])

	base.Reset()
	assert.Empty(t, base.State())
}

// -------------------- EchoAgent Tests --------------------

func TestEchoAgent_EchoesObservation(t *testing.T) {
	ctx := context.Background()
	a := NewEchoAgent("echo-1")

	out, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, "hello"))
	require.NoError(t, err)

	assert.Equal(t, "hello", out.EnvironmentActions["message"])
	require.Len(t, out.Responses, 1)
	assert.Equal(t, "hello", out.Responses[0])
	assert.Equal(t, core.StatusIdle, a.Status())
}

func TestEchoAgent_PrefersQueuedMessage(t *testing.T) {
	ctx := context.Background()
	a := NewEchoAgent("echo-1")

	a.OnMessage(ctx, core.Message{Sender: "peer", Content: "from peer"})

	out, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, "from env"))
	require.NoError(t, err)
	assert.Equal(t, "from peer", out.EnvironmentActions["message"])
}

func TestEchoAgent_ThroughClient(t *testing.T) {
	ctx := context.Background()

	client := llm.NewMockClient("mock", "mock-model")
	client.AddResponse("ping", "pong")

	a := NewEchoAgent("echo-1", func(o *EchoOptions) { o.Client = client })

	out, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, "ping"))
	require.NoError(t, err)
	assert.Equal(t, "pong", out.EnvironmentActions["message"])
}

// -------------------- LLMAgent Tests --------------------

func TestLLMAgent_EmitsText(t *testing.T) {
	ctx := context.Background()

	client := llm.NewMockClient("mock", "mock-model")
	a := NewLLMAgent("poet", client)

	out, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, "write a haiku"))
	require.NoError(t, err)

	require.Len(t, out.Responses, 1)
	assert.Equal(t, "Mock response to: write a haiku", out.Responses[0])
	assert.Equal(t, "Mock response to: write a haiku", out.EnvironmentActions["message"])
	assert.Empty(t, out.ToolInvocations)
	assert.Equal(t, core.StatusIdle, a.Status())

	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
}

func TestLLMAgent_ToolCalls(t *testing.T) {
	ctx := context.Background()

	client := llm.NewMockClient("mock", "mock-model")
	client.AddToolCalls("use the echo tool", llm.ToolCall{Name: "echo", Arguments: `{"text":"hi"}`})

	a := NewLLMAgent("worker", client)
	require.NoError(t, a.RegisterTool(tool.NewEchoTool()))

	out, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, "use the echo tool"))
	require.NoError(t, err)

	require.Len(t, out.ToolInvocations, 1)
	inv := out.ToolInvocations[0]
	assert.Equal(t, "echo", inv.Tool)
	assert.Equal(t, map[string]any{"text": "hi"}, inv.Arguments)
	assert.Equal(t, "worker", inv.Caller)
	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, core.StatusWaiting, a.Status())

	a.OnToolResult(ctx, core.ToolResponse{ID: inv.ID, Tool: inv.Tool, Output: map[string]any{"text": "hi", "length": 2}})
	assert.Equal(t, core.StatusIdle, a.Status())
}

func TestLLMAgent_ToolChoice(t *testing.T) {
	ctx := context.Background()

	newAgent := func(choice string) (*LLMAgent, *llm.MockClient) {
		client := llm.NewMockClient("mock", "mock-model")
		a := NewLLMAgent("worker", client, func(o *LLMOptions) { o.ToolChoice = choice })
		require.NoError(t, a.RegisterTools(tool.NewEchoTool(), testAdderTool()))
		return a, client
	}

	a, client := newAgent(ToolChoiceAuto)
	_, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, "go"))
	require.NoError(t, err)
	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Tools, 2)

	a, client = newAgent(ToolChoiceNone)
	_, err = a.Act(ctx, core.NewObservation(core.SourceEnvironment, "go"))
	require.NoError(t, err)
	calls = client.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Tools)

	a, client = newAgent("echo")
	_, err = a.Act(ctx, core.NewObservation(core.SourceEnvironment, "go"))
	require.NoError(t, err)
	calls = client.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Tools, 1)
	assert.Equal(t, "echo", calls[0].Tools[0].Name)
}

func TestLLMAgent_InstructionTemplate(t *testing.T) {
	ctx := context.Background()

	client := llm.NewMockClient("mock", "mock-model")
	a := NewLLMAgent("critic", client, func(o *LLMOptions) {
		o.Instruction = NewInstructionFromText("You are {{.agent_id}} working on {{.task}}.")
	})
	a.SetState("task", "review")

	_, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, "go"))
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "You are critic working on review.", calls[0].System)
}

func TestLLMAgent_StopMarker(t *testing.T) {
	ctx := context.Background()

	client := llm.NewMockClient("mock", "mock-model")
	client.AddResponse("wrap up", "all finished. DONE")

	a := NewLLMAgent("worker", client, func(o *LLMOptions) { o.StopMarker = "DONE" })

	out, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, "wrap up"))
	require.NoError(t, err)
	assert.True(t, out.Terminated)
	assert.Equal(t, core.StatusTerminated, a.Status())

	_, err = a.Act(ctx, core.NewObservation(core.SourceEnvironment, "again"))
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestLLMAgent_HistoryBounded(t *testing.T) {
	ctx := context.Background()

	client := llm.NewMockClient("mock", "mock-model")
	a := NewLLMAgent("worker", client, func(o *LLMOptions) { o.MaxHistory = 4 })

	for i := 0; i < 5; i++ {
		_, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, fmt.Sprintf("turn %d", i)))
		require.NoError(t, err)
	}

	history := a.History()
	require.Len(t, history, 4)
	assert.Equal(t, "turn 3", history[0].Content)
	assert.Equal(t, "Mock response to: turn 4", history[3].Content)

	a.Reset()
	assert.Empty(t, a.History())
	assert.Equal(t, core.StatusIdle, a.Status())
}

func TestLLMAgent_ClientError(t *testing.T) {
	ctx := context.Background()

	client := llm.NewMockClient("mock", "mock-model")
	client.FailWith(errors.New("backend down"))

	a := NewLLMAgent("worker", client)

	_, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, "hello"))
	require.Error(t, err)

	var reqErr *llm.RequestError
	assert.ErrorAs(t, err, &reqErr)

	// The turn failed but the agent stays usable.
	assert.Equal(t, core.StatusIdle, a.Status())
}

func TestLLMAgent_DeliveriesEnterConversation(t *testing.T) {
	ctx := context.Background()

	client := llm.NewMockClient("mock", "mock-model")
	a := NewLLMAgent("worker", client)

	a.OnToolResult(ctx, core.ToolResponse{ID: "inv-1", Tool: "echo", Output: map[string]any{"text": "hi"}})
	a.OnMessage(ctx, core.Message{Sender: "peer", Content: "fyi"})

	_, err := a.Act(ctx, core.NewObservation(core.SourceEnvironment, "continue"))
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 1)

	msgs := calls[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.RoleTool, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, `"tool":"echo"`)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Message from peer: fyi")
	assert.Equal(t, "continue", msgs[2].Content)
}
