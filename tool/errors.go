package tool

import "fmt"

// DuplicateToolError is returned when registering a tool whose name is
// already taken within the registry. The existing registration is left
// untouched.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// ToolNotFoundError is returned when resolving a tool name with no
// registration.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// SchemaValidationError is returned when a request or response payload does
// not match the tool's declared schema. Direction is "request" or
// "response"; the underlying field-level cause is available via Unwrap.
type SchemaValidationError struct {
	Tool      string
	Direction string
	Err       error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("invalid %s for tool %q: %v", e.Direction, e.Tool, e.Err)
}

// Unwrap returns the underlying validation error.
func (e *SchemaValidationError) Unwrap() error { return e.Err }
