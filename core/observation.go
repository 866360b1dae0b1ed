package core

// Well-known observation sources. Agent-produced observations use the agent
// id as their source.
const (
	// SourceEnvironment marks observations emitted by the environment.
	SourceEnvironment = "environment"
	// SourceNetwork marks observations injected by the network itself.
	SourceNetwork = "network"
)

// Observation is a single unit of perception delivered to an agent. Source
// identifies the producer (an agent id, SourceEnvironment or SourceNetwork);
// Payload is opaque to the framework.
type Observation struct {
	Source   string         `json:"source"`
	Payload  any            `json:"payload"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewObservation creates an observation from source carrying payload.
func NewObservation(source string, payload any) Observation {
	return Observation{Source: source, Payload: payload}
}

// Text returns the payload as a string when it is one, otherwise the empty
// string. Convenience for the common text-payload case.
func (o Observation) Text() string {
	if s, ok := o.Payload.(string); ok {
		return s
	}
	return ""
}

// Message is directed mail between agents. An empty Recipient broadcasts the
// message to every other registered agent; the sender never receives its own
// broadcast.
type Message struct {
	Sender    string         `json:"sender"`
	Recipient string         `json:"recipient,omitempty"`
	Content   any            `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// IsBroadcast reports whether the message has no explicit recipient.
func (m Message) IsBroadcast() bool { return m.Recipient == "" }

// AsObservation converts the message into an observation for delivery to the
// receiving agent.
func (m Message) AsObservation() Observation {
	return Observation{Source: m.Sender, Payload: m.Content, Metadata: m.Metadata}
}
