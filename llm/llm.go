package llm

import (
	"context"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage constructs a system role message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage constructs a user role message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage constructs an assistant role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage constructs a tool role message carrying a tool result.
func ToolMessage(content string) Message { return Message{Role: RoleTool, Content: content} }

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider
// branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolSpec declaratively exposes a callable tool to the model. Schema is a
// JSON Schema object (draft agnostic, minimal subset expected).
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// Usage captures token usage statistics for a response.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Result is the final outcome of a completion or chat request.
type Result struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Raw       any        `json:"-"` // Provider response for callers that need vendor detail
	Usage     Usage      `json:"usage"`
}

// StreamChunk is one incremental piece of a streamed generation.
type StreamChunk struct {
	TextDelta string `json:"text_delta"`
	Raw       any    `json:"-"`
}

// Info contains metadata about a client implementation.
type Info struct {
	Provider string `json:"provider"` // "openai", "anthropic", "ollama", "gemini", "mock"
	Model    string `json:"model"`
}

// RequestOptions tune a single request. Zero values defer to the client's
// configured defaults.
type RequestOptions struct {
	// Model overrides the client's default model id.
	Model string
	// System sets or replaces the system instruction.
	System string
	// MaxTokens caps the generated output length.
	MaxTokens int
	// Temperature overrides sampling temperature when non-nil.
	Temperature *float64
	// Tools declares tools the model may call.
	Tools []ToolSpec
}

// Request captures a normalized model input as consumed by provider adapters.
type Request struct {
	Messages    []Message  `json:"messages"`
	System      string     `json:"system,omitempty"`
	Model       string     `json:"model,omitempty"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"`
	Tools       []ToolSpec `json:"tools,omitempty"`
}

// NewRequest folds functional options into a normalized Request.
func NewRequest(messages []Message, optFns ...func(o *RequestOptions)) Request {
	var opts RequestOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	return Request{
		Messages:    messages,
		System:      opts.System,
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Tools:       opts.Tools,
	}
}

// Client is the minimal interface agents use to drive generation.
//
// Contract:
//   - Complete wraps a single prompt as one user message.
//   - Chat sends a full conversation and returns the final result.
//   - Stream emits chunks in generation order; both channels are closed on
//     completion; the error channel is buffered size 1 and carries at most
//     one terminal error; a finished stream is not restartable.
//   - Implementations map vendor failures to *RequestError and deadline
//     expiry to *TimeoutError.
type Client interface {
	Complete(ctx context.Context, prompt string, optFns ...func(o *RequestOptions)) (*Result, error)

	Chat(ctx context.Context, messages []Message, optFns ...func(o *RequestOptions)) (*Result, error)

	Stream(ctx context.Context, messages []Message, optFns ...func(o *RequestOptions)) (<-chan StreamChunk, <-chan error)

	// Info returns information about the client implementation.
	Info() Info
}

// LastUserText returns the content of the last user message, falling back to
// the last message of any role. Adapters and mocks use it as the lookup key
// for prompt-addressed behavior.
func LastUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}

	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}

	return ""
}
