package core

// ToolInvocation is a request to execute a named tool. Caller identifies the
// requesting agent. ID correlates the eventual ToolResponse; the executor
// assigns one when empty.
type ToolInvocation struct {
	ID        string         `json:"id,omitempty"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Caller    string         `json:"caller,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ToolResponse is the outcome of a tool invocation. Err carries the failure
// message when execution did not produce an output; Output is nil in that
// case.
type ToolResponse struct {
	ID       string         `json:"id,omitempty"`
	Tool     string         `json:"tool"`
	Output   map[string]any `json:"output,omitempty"`
	Err      string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Failed reports whether the invocation ended in an error.
func (r ToolResponse) Failed() bool { return r.Err != "" }

// ToolMetadata describes a registered tool: its identity plus the structural
// request and response schemas validated on invocation.
type ToolMetadata struct {
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	RequestSchema  map[string]any `json:"request_schema,omitempty"`
	ResponseSchema map[string]any `json:"response_schema,omitempty"`
}
