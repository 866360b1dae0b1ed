// Package tool implements the capability subsystem that lets agents invoke
// structured tools (APIs, computations, side effects) with schema validated
// requests and responses, consistent error handling and rich metadata for LLM
// guidance.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentgym/internal/util"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools can be registered with agents or environments to enable function
// calling, allowing agents to perform actions beyond text generation such as
// API calls, calculations, database queries, or any other programmatic
// operations.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define structural JSON schemas for both request and response
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
//   - Follow consistent naming conventions
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should be descriptive and follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// RequestSchema returns a JSON schema describing the expected request shape.
	// The registry validates every request against it before invocation.
	RequestSchema() map[string]any

	// ResponseSchema returns a JSON schema describing the produced response shape.
	// The registry validates every response against it after invocation.
	ResponseSchema() map[string]any

	// Invoke executes the tool with an already schema-validated request and
	// returns the response payload. The context carries cancellation and
	// deadlines from the executor.
	Invoke(ctx context.Context, request map[string]any) (map[string]any, error)
}

// ValidationError represents schema validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur inside tool execution.
type ToolError struct {
	Tool    string      `json:"tool"`              // Name of the tool that failed
	Message string      `json:"message"`           // Error message
	Code    string      `json:"code"`              // Error code for categorization
	Details interface{} `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
