package tool

import (
	"context"
	"fmt"
)

// EchoTool is the built-in demo tool. It returns the text it receives,
// together with its length, and is handy for wiring checks and tests that
// need a tool with a known round trip.
type EchoTool struct{}

// NewEchoTool returns a ready-to-register EchoTool.
func NewEchoTool() *EchoTool { return &EchoTool{} }

// Name returns the unique tool name used in declarations and routing.
func (t *EchoTool) Name() string { return "echo" }

// Description returns the short natural language description exposed to models.
func (t *EchoTool) Description() string {
	return "Echo the provided text back to the caller"
}

// RequestSchema returns the JSON schema describing expected requests.
func (t *EchoTool) RequestSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Text to echo back",
			},
		},
		"required": []string{"text"},
	}
}

// ResponseSchema returns the JSON schema describing produced responses.
func (t *EchoTool) ResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "The echoed text",
			},
			"length": map[string]any{
				"type":        "integer",
				"description": "Number of bytes in the echoed text",
			},
		},
		"required": []string{"text", "length"},
	}
}

// Invoke echoes the request text. The response text is always identical to
// the request text.
func (t *EchoTool) Invoke(_ context.Context, request map[string]any) (map[string]any, error) {
	text, ok := request["text"].(string)
	if !ok {
		return nil, &ToolError{
			Tool:    t.Name(),
			Message: fmt.Sprintf("expected string text, got %T", request["text"]),
			Code:    "INVALID_ARGUMENT",
		}
	}

	return map[string]any{
		"text":   text,
		"length": len(text),
	}, nil
}
