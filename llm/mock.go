package llm

import (
	"context"
	"sync"
)

// MockClient is a lightweight in-memory Client useful for tests and
// examples. Replies are addressed by the last user message: canned responses
// and canned tool calls win, otherwise the client echoes the input behind a
// configurable prefix. All requests are recorded for inspection.
type MockClient struct {
	info      Info
	prefix    string
	responses map[string]string
	toolCalls map[string][]ToolCall
	failure   error

	mu    sync.Mutex
	calls []Request
}

// NewMockClient constructs a MockClient identified by provider and model.
func NewMockClient(provider, model string) *MockClient {
	return &MockClient{
		info:      Info{Provider: provider, Model: model},
		prefix:    "Mock response to: ",
		responses: make(map[string]string),
		toolCalls: make(map[string][]ToolCall),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockClient) AddResponse(prompt, response string) { m.responses[prompt] = response }

// AddToolCalls registers canned tool calls emitted when the prompt matches.
func (m *MockClient) AddToolCalls(prompt string, calls ...ToolCall) {
	m.toolCalls[prompt] = calls
}

// SetPrefix changes the fallback echo prefix.
func (m *MockClient) SetPrefix(prefix string) { m.prefix = prefix }

// FailWith forces every subsequent request to fail with err. Passing nil
// restores normal behavior.
func (m *MockClient) FailWith(err error) { m.failure = err }

// Calls returns a copy of all recorded requests in arrival order.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]Request, len(m.calls))
	copy(calls, m.calls)

	return calls
}

func (m *MockClient) record(req Request) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
}

func (m *MockClient) reply(input string) (string, []ToolCall) {
	if calls, ok := m.toolCalls[input]; ok {
		return m.responses[input], calls
	}

	if text, ok := m.responses[input]; ok {
		return text, nil
	}

	return m.prefix + input, nil
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, prompt string, optFns ...func(o *RequestOptions)) (*Result, error) {
	return m.Chat(ctx, []Message{UserMessage(prompt)}, optFns...)
}

// Chat implements Client.
func (m *MockClient) Chat(ctx context.Context, messages []Message, optFns ...func(o *RequestOptions)) (*Result, error) {
	req := NewRequest(messages, optFns...)
	m.record(req)

	if m.failure != nil {
		return nil, ConvertError(m.info.Provider, m.info.Model, 0, m.failure)
	}

	if err := ctx.Err(); err != nil {
		return nil, ConvertError(m.info.Provider, m.info.Model, 0, err)
	}

	input := LastUserText(messages)
	text, calls := m.reply(input)

	return &Result{
		Text:      text,
		ToolCalls: calls,
		// Rough character counts, deterministic for tests
		Usage: Usage{
			InputTokens:  len(input),
			OutputTokens: len(text),
			TotalTokens:  len(input) + len(text),
		},
	}, nil
}

// Stream implements Client; emits the reply rune by rune.
func (m *MockClient) Stream(ctx context.Context, messages []Message, optFns ...func(o *RequestOptions)) (<-chan StreamChunk, <-chan error) {
	out := make(chan StreamChunk, 16)
	errCh := make(chan error, 1)

	req := NewRequest(messages, optFns...)
	m.record(req)

	go func() {
		defer close(out)
		defer close(errCh)

		if m.failure != nil {
			errCh <- ConvertError(m.info.Provider, m.info.Model, 0, m.failure)
			return
		}

		input := LastUserText(messages)
		text, _ := m.reply(input)

		for _, r := range text {
			select {
			case <-ctx.Done():
				errCh <- ConvertError(m.info.Provider, m.info.Model, 0, ctx.Err())
				return
			case out <- StreamChunk{TextDelta: string(r)}:
			}
		}
	}()

	return out, errCh
}

// Info implements Client.
func (m *MockClient) Info() Info { return m.info }
