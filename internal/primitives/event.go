package primitives

// Event is the immutable input of a transition: an event name and the page payload
// submitted with it.
//
// Events are value types. Once created, Events should not be mutated; guards and
// actions receive them by value.
//
// Example:
//
//	event := NewEvent("ANSWER", map[string]any{"name": map[string]any{"value": "Ada"}})
type Event struct {
	Type string `json:"type" yaml:"type" mapstructure:"event"`
	Data any    `json:"payload,omitempty" yaml:"payload,omitempty" mapstructure:"payload"`
}

// NewEvent creates and returns a new immutable Event.
func NewEvent(eventType string, data any) Event {
	return Event{
		Type: eventType,
		Data: data,
	}
}
