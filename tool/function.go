package tool

import (
	"context"

	"github.com/hupe1980/agentgym/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// tool.
//
// Responsibilities:
//   - Holds lightweight JSON-Schema-like request and response specifications
//   - Invokes the wrapped function with the already validated request (the
//     registry performs validation on both directions)
//   - Normalizes error handling so callers receive *ToolError with consistent
//     codes:
//     EXECUTION_ERROR -> underlying function returned an error (non-ToolError)
//     (custom codes preserved if the function returns *ToolError directly)
//
// Concurrency:
//
//	A FunctionTool has no internal mutable state after construction and is
//	safe for concurrent use by multiple goroutines.
//
// Schema Expectations:
//
//	The schema maps follow the minimal JSON Schema shape used elsewhere in
//	the project. Only the subset actually checked by util.ValidateParameters
//	needs to be supplied (type, properties, required).
type FunctionTool struct {
	// Tool identifier (snake_case recommended)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted requests
	requestSchema map[string]any
	// JSON schema describing produced responses
	responseSchema map[string]any
	// User supplied implementation
	fn func(ctx context.Context, request map[string]any) (map[string]any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schemas and function.
//
// Arguments:
//
//	name           - unique tool name (avoid collisions; snake_case suggested)
//	description    - concise, imperative description ("Calculate the ...")
//	requestSchema  - minimal JSON-Schema-like map describing accepted requests
//	responseSchema - minimal JSON-Schema-like map describing produced responses
//	fn             - implementation receiving the validated request
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "sum": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"sum"},
//	  },
//	  func(_ context.Context, req map[string]any) (map[string]any, error) {
//	    a := req["a"].(float64)
//	    b := req["b"].(float64)
//	    return map[string]any{"sum": a + b}, nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	requestSchema, responseSchema map[string]any,
	fn func(ctx context.Context, request map[string]any) (map[string]any, error),
) *FunctionTool {
	return &FunctionTool{
		name:           name,
		description:    description,
		requestSchema:  requestSchema,
		responseSchema: responseSchema,
		fn:             fn,
	}
}

// NewFunctionToolFromStructs derives both schemas from Go structs. It is a
// convenience for simple payload containers and produces schemas equivalent
// to util.CreateSchema(requestType) / util.CreateSchema(responseType).
//
// Example:
//
//	type SumRequest struct {
//	  A float64 `json:"a" jsonschema:"description=First addend"`
//	  B float64 `json:"b" jsonschema:"description=Second addend"`
//	}
//
//	type SumResponse struct {
//	  Sum float64 `json:"sum"`
//	}
//
//	sumTool := NewFunctionToolFromStructs(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  SumRequest{},
//	  SumResponse{},
//	  func(_ context.Context, req map[string]any) (map[string]any, error) {
//	    return map[string]any{"sum": req["a"].(float64) + req["b"].(float64)}, nil
//	  },
//	)
func NewFunctionToolFromStructs(
	name, description string,
	requestType, responseType any,
	fn func(ctx context.Context, request map[string]any) (map[string]any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(requestType), util.CreateSchema(responseType), fn)
}

// Name returns the unique tool name used in declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// RequestSchema returns the JSON schema describing expected requests.
func (t *FunctionTool) RequestSchema() map[string]any { return t.requestSchema }

// ResponseSchema returns the JSON schema describing produced responses.
func (t *FunctionTool) ResponseSchema() map[string]any { return t.responseSchema }

// Invoke runs the underlying function. Failures are wrapped (or passed
// through) as *ToolError for uniform downstream handling.
//
// Error Semantics:
//
//	*ToolError (returned directly) -> forwarded unchanged
//	other error                    -> *ToolError{Code: "EXECUTION_ERROR"}
func (t *FunctionTool) Invoke(ctx context.Context, request map[string]any) (map[string]any, error) {
	result, err := t.fn(ctx, request)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok { // Already a ToolError -> forward
			return nil, toolErr
		}

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	return result, nil
}
