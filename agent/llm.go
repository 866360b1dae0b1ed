package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/internal/util"
	"github.com/hupe1980/agentgym/llm"
	"github.com/hupe1980/agentgym/logging"
	"github.com/hupe1980/agentgym/tool"
)

const (
	// ToolChoiceAuto advertises every registered tool to the model.
	ToolChoiceAuto = "auto"
	// ToolChoiceNone withholds tool specs from the model entirely.
	ToolChoiceNone = "none"
)

// LLMOptions configures an LLMAgent.
// Use functional options with NewLLMAgent to override defaults.
type LLMOptions struct {
	// Instruction is the system prompt, resolved and template-rendered
	// against the agent's scratch state each turn.
	Instruction Instruction
	// Registry holds the tools advertised to the model. A fresh empty
	// registry is created when nil.
	Registry *tool.Registry
	// MaxHistory bounds the retained conversation messages. Oldest messages
	// are dropped first. Zero or negative keeps everything.
	MaxHistory int
	// ToolChoice selects which registered tools the model sees: "auto"
	// (default) advertises all of them, "none" advertises none, and any
	// other value advertises only the tool with that name.
	ToolChoice string
	// Temperature overrides the client default when non-nil.
	Temperature *float64
	// MaxTokens caps the completion length when > 0.
	MaxTokens int
	// StopMarker terminates the agent when it appears in the model's text.
	// Empty disables self-termination.
	StopMarker string
	// Logger receives per-turn events. Defaults to a no-op logger.
	Logger logging.Logger
}

// LLMAgent drives a language model. Each turn it renders its instruction,
// replays bounded conversation history plus queued deliveries, advertises its
// registry's tools, and converts the model's tool calls into invocations for
// the executor.
//
// The agent supports:
//   - Natural language conversation through a per-turn system prompt
//   - Function calling against a private tool registry
//   - Template-based prompt customization from scratch state
//   - Self-termination on a configurable stop marker
type LLMAgent struct {
	BaseAgent
	client      llm.Client
	instruction Instruction
	registry    *tool.Registry
	maxHistory  int
	toolChoice  string
	temperature *float64
	maxTokens   int
	stopMarker  string

	histMu  sync.Mutex
	history []llm.Message
}

// NewLLMAgent creates a model-backed agent with sensible defaults.
//
// The agent is initialized with:
//   - A generic helpful-assistant instruction mentioning the agent id
//   - An empty private tool registry
//   - A 20-message conversation history limit
//   - Tool choice "auto"
//
// Parameters:
//   - id: unique agent identifier, also used in the default instruction
//   - client: language model implementation for text generation
//
// Returns a fully configured LLMAgent ready for network registration.
func NewLLMAgent(id string, client llm.Client, optFns ...func(o *LLMOptions)) *LLMAgent {
	opts := LLMOptions{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful assistant.", id)),
		MaxHistory:  20,
		ToolChoice:  ToolChoiceAuto,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry := opts.Registry
	if registry == nil {
		registry = tool.NewRegistry()
	}

	return &LLMAgent{
		BaseAgent:   NewBaseAgent(id, func(o *BaseOptions) { o.Logger = opts.Logger }),
		client:      client,
		instruction: opts.Instruction,
		registry:    registry,
		maxHistory:  opts.MaxHistory,
		toolChoice:  opts.ToolChoice,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		stopMarker:  opts.StopMarker,
	}
}

// RegisterTool adds a tool to the agent's private registry, making it
// available for the model to call.
//
// Example:
//
//	weatherTool := tool.NewFunctionTool("get_weather", "Get weather for a location", reqSchema, respSchema, weatherFunc)
//	if err := agent.RegisterTool(weatherTool); err != nil { ... }
func (a *LLMAgent) RegisterTool(t tool.Tool) error { return a.registry.Register(t) }

// RegisterTools adds several tools, stopping at the first failure.
func (a *LLMAgent) RegisterTools(tools ...tool.Tool) error {
	for _, t := range tools {
		if err := a.registry.Register(t); err != nil {
			return err
		}
	}

	return nil
}

// Tools returns the agent's private tool registry.
func (a *LLMAgent) Tools() *tool.Registry { return a.registry }

// History returns a copy of the retained conversation messages.
func (a *LLMAgent) History() []llm.Message {
	a.histMu.Lock()
	defer a.histMu.Unlock()

	out := make([]llm.Message, len(a.history))
	copy(out, a.history)

	return out
}

// Reset clears lifecycle state, the inbox and the conversation history.
func (a *LLMAgent) Reset() {
	a.BaseAgent.Reset()

	a.histMu.Lock()
	a.history = nil
	a.histMu.Unlock()
}

// Act runs one model turn. It builds the message list from history, queued
// tool results, queued peer messages and the current observation, calls Chat
// with the registry's tool specs, and emits the model's text as a response
// and message action plus its tool calls as invocations.
func (a *LLMAgent) Act(ctx context.Context, obs core.Observation) (core.StepOutput, error) {
	if err := a.BeginAct(); err != nil {
		return core.StepOutput{}, err
	}

	system, err := a.systemPrompt(ctx)
	if err != nil {
		a.EndAct(0)
		return core.StepOutput{}, err
	}

	turn := a.collectTurn(obs)

	a.histMu.Lock()
	messages := make([]llm.Message, 0, len(a.history)+len(turn))
	messages = append(messages, a.history...)
	messages = append(messages, turn...)
	a.histMu.Unlock()

	res, err := a.client.Chat(ctx, messages, func(o *llm.RequestOptions) {
		o.System = system
		o.Tools = a.toolSpecs()
		o.Temperature = a.temperature
		o.MaxTokens = a.maxTokens
	})
	if err != nil {
		a.EndAct(0)
		return core.StepOutput{}, err
	}

	out := core.StepOutput{}

	if res.Text != "" {
		out.Responses = append(out.Responses, res.Text)
		out.EnvironmentActions = map[string]any{"message": res.Text}
	}

	for _, call := range res.ToolCalls {
		inv, err := a.toInvocation(call)
		if err != nil {
			a.EndAct(0)
			return core.StepOutput{}, err
		}
		out.ToolInvocations = append(out.ToolInvocations, inv)
	}

	a.remember(turn, res)

	a.Logger().Debug("agent.llm.acted",
		"agent_id", a.ID(),
		"tool_calls", len(out.ToolInvocations),
		"tokens", res.Usage.TotalTokens,
	)

	if a.stopMarker != "" && strings.Contains(res.Text, a.stopMarker) {
		a.Terminate()
		out.Terminated = true
	}

	a.EndAct(len(out.ToolInvocations))

	return out, nil
}

// systemPrompt resolves the instruction and renders it against the scratch
// state plus the agent id.
func (a *LLMAgent) systemPrompt(ctx context.Context) (string, error) {
	state := a.State()
	state["agent_id"] = a.ID()

	text, err := a.instruction.Resolve(ctx, state)
	if err != nil {
		return "", fmt.Errorf("resolve instruction: %w", err)
	}

	rendered, err := util.RenderTemplate(text, state)
	if err != nil {
		return "", fmt.Errorf("render instruction: %w", err)
	}

	return rendered, nil
}

// collectTurn drains the inbox into conversation messages and appends the
// current observation as the closing user message.
func (a *LLMAgent) collectTurn(obs core.Observation) []llm.Message {
	var turn []llm.Message

	for _, res := range a.DrainToolResults() {
		turn = append(turn, llm.ToolMessage(formatToolResult(res)))
	}
	for _, msg := range a.DrainMessages() {
		turn = append(turn, llm.UserMessage(fmt.Sprintf("Message from %s: %s", msg.Sender, formatContent(msg.Content))))
	}
	for _, queued := range a.DrainObservations() {
		turn = append(turn, llm.UserMessage(fmt.Sprintf("Observation from %s: %s", queued.Source, formatContent(queued.Payload))))
	}

	if obs.Payload != nil {
		turn = append(turn, llm.UserMessage(formatContent(obs.Payload)))
	}

	return turn
}

// toolSpecs selects the registry metadata advertised to the model according
// to the agent's tool choice.
func (a *LLMAgent) toolSpecs() []llm.ToolSpec {
	if a.toolChoice == ToolChoiceNone {
		return nil
	}

	var specs []llm.ToolSpec
	for _, meta := range a.registry.Metadata() {
		if a.toolChoice != "" && a.toolChoice != ToolChoiceAuto && meta.Name != a.toolChoice {
			continue
		}
		specs = append(specs, llm.ToolSpec{
			Name:        meta.Name,
			Description: meta.Description,
			Schema:      meta.RequestSchema,
		})
	}

	return specs
}

// toInvocation converts a model tool call into an executor invocation,
// assigning an id when the model did not provide one.
func (a *LLMAgent) toInvocation(call llm.ToolCall) (core.ToolInvocation, error) {
	inv := core.ToolInvocation{
		ID:        call.ID,
		Tool:      call.Name,
		Arguments: map[string]any{},
		Caller:    a.ID(),
	}
	if inv.ID == "" {
		inv.ID = core.NewID()
	}

	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &inv.Arguments); err != nil {
			return core.ToolInvocation{}, fmt.Errorf("decode arguments for tool %q: %w", call.Name, err)
		}
	}

	return inv, nil
}

// remember appends the turn and the model's reply to the bounded history.
// Turns that produced only tool calls are summarized so the next turn's
// context stays coherent.
func (a *LLMAgent) remember(turn []llm.Message, res *llm.Result) {
	a.histMu.Lock()
	defer a.histMu.Unlock()

	a.history = append(a.history, turn...)

	switch {
	case res.Text != "":
		a.history = append(a.history, llm.AssistantMessage(res.Text))
	case len(res.ToolCalls) > 0:
		names := make([]string, len(res.ToolCalls))
		for i, call := range res.ToolCalls {
			names[i] = call.Name
		}
		a.history = append(a.history, llm.AssistantMessage("Calling tools: "+strings.Join(names, ", ")))
	}

	if a.maxHistory > 0 && len(a.history) > a.maxHistory {
		a.history = a.history[len(a.history)-a.maxHistory:]
	}
}

func formatToolResult(res core.ToolResponse) string {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Sprintf("tool %s result unavailable: %v", res.Tool, err)
	}

	return string(raw)
}

func formatContent(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return string(raw)
}
