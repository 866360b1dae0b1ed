package network

import "fmt"

// DuplicateAgentError is returned when registering an agent whose id is
// already taken within the network. The existing registration is left
// untouched.
type DuplicateAgentError struct {
	ID string
}

func (e *DuplicateAgentError) Error() string {
	return fmt.Sprintf("agent %q already registered", e.ID)
}

// AgentNotFoundError is returned when resolving an agent id with no
// registration.
type AgentNotFoundError struct {
	ID string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent %q not found", e.ID)
}
