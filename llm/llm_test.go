package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var _ Client = (*MockClient)(nil)

// -------------------- MockClient Tests --------------------

func TestMockClient_Complete(t *testing.T) {
	client := NewMockClient("mock", "test-model")
	client.AddResponse("ping", "pong")

	res, err := client.Complete(context.Background(), "ping")
	assert.NoError(t, err)
	assert.Equal(t, "pong", res.Text)
	assert.Empty(t, res.ToolCalls)
	assert.Equal(t, len("ping"), res.Usage.InputTokens)
	assert.Equal(t, len("pong"), res.Usage.OutputTokens)
}

func TestMockClient_FallbackEcho(t *testing.T) {
	client := NewMockClient("mock", "test-model")

	res, err := client.Complete(context.Background(), "hello")
	assert.NoError(t, err)
	assert.Equal(t, "Mock response to: hello", res.Text)

	client.SetPrefix("echo: ")
	res, err = client.Complete(context.Background(), "hello")
	assert.NoError(t, err)
	assert.Equal(t, "echo: hello", res.Text)
}

func TestMockClient_ChatUsesLastUserMessage(t *testing.T) {
	client := NewMockClient("mock", "test-model")
	client.AddResponse("second", "matched")

	res, err := client.Chat(context.Background(), []Message{
		UserMessage("first"),
		AssistantMessage("reply to first"),
		UserMessage("second"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "matched", res.Text)
}

func TestMockClient_ToolCalls(t *testing.T) {
	client := NewMockClient("mock", "test-model")
	client.AddToolCalls("use the tool", ToolCall{
		ID:        "call-1",
		Name:      "echo",
		Arguments: `{"text":"hi"}`,
	})

	res, err := client.Complete(context.Background(), "use the tool")
	assert.NoError(t, err)
	assert.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "echo", res.ToolCalls[0].Name)
}

func TestMockClient_RecordsCalls(t *testing.T) {
	client := NewMockClient("mock", "test-model")

	_, err := client.Complete(context.Background(), "one", func(o *RequestOptions) {
		o.System = "be brief"
		o.MaxTokens = 10
	})
	assert.NoError(t, err)
	_, err = client.Complete(context.Background(), "two")
	assert.NoError(t, err)

	calls := client.Calls()
	assert.Len(t, calls, 2)
	assert.Equal(t, "be brief", calls[0].System)
	assert.Equal(t, 10, calls[0].MaxTokens)
	assert.Equal(t, "one", calls[0].Messages[0].Content)
	assert.Equal(t, "two", calls[1].Messages[0].Content)
}

func TestMockClient_FailWith(t *testing.T) {
	client := NewMockClient("mock", "test-model")
	client.FailWith(errors.New("quota"))

	_, err := client.Complete(context.Background(), "ping")
	assert.Error(t, err)

	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "mock", reqErr.Provider)
}

// -------------------- Stream Contract Tests --------------------

func TestMockClient_StreamContract(t *testing.T) {
	client := NewMockClient("mock", "test-model")
	client.AddResponse("stream me", "chunked reply")

	chunks, errCh := client.Stream(context.Background(), []Message{UserMessage("stream me")})

	var sb strings.Builder
	for ck := range chunks {
		sb.WriteString(ck.TextDelta)
	}
	// Chunks concatenate to the full text
	assert.Equal(t, "chunked reply", sb.String())

	// Error channel closed without a terminal error
	err, open := <-errCh
	assert.NoError(t, err)
	assert.False(t, open)
}

func TestMockClient_StreamCancellation(t *testing.T) {
	client := NewMockClient("mock", "test-model")
	client.AddResponse("long", strings.Repeat("x", 4096))

	ctx, cancel := context.WithCancel(context.Background())
	chunks, errCh := client.Stream(ctx, []Message{UserMessage("long")})

	// Read a little, then abandon the stream
	<-chunks
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case err, open := <-errCh:
			if !open {
				t.Fatal("error channel closed without reporting cancellation")
			}
			assert.Error(t, err)
			return
		case <-chunks:
			// Drain whatever was buffered before cancellation won the race
		case <-deadline:
			t.Fatal("stream did not terminate after cancellation")
		}
	}
}

// -------------------- Error Taxonomy Tests --------------------

func TestConvertError(t *testing.T) {
	// Deadline expiry maps to TimeoutError
	err := ConvertError("openai", "gpt-4o-mini", 30*time.Second, context.DeadlineExceeded)
	var toErr *TimeoutError
	assert.ErrorAs(t, err, &toErr)
	assert.True(t, toErr.Timeout())
	assert.Equal(t, 30*time.Second, toErr.Elapsed)

	// Other failures map to RequestError and keep the cause
	cause := errors.New("connection refused")
	err = ConvertError("ollama", "llama3", 0, cause)
	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)
	assert.ErrorIs(t, err, cause)

	// Already-typed errors pass through unchanged
	typed := &RequestError{Provider: "openai", Model: "gpt-4o-mini", StatusCode: 429, Err: errors.New("rate limited")}
	assert.Same(t, typed, ConvertError("openai", "gpt-4o-mini", 0, typed))

	// Nil stays nil
	assert.NoError(t, ConvertError("mock", "m", 0, nil))
}

func TestRequestErrorFormatting(t *testing.T) {
	err := &RequestError{Provider: "anthropic", Model: "claude", StatusCode: 500, Err: errors.New("overloaded")}
	assert.Contains(t, err.Error(), "anthropic")
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "overloaded")

	bare := &RequestError{Provider: "gemini", Model: "flash", Err: errors.New("bad response")}
	assert.NotContains(t, bare.Error(), "status")
}
