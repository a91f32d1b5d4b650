package chat

import "github.com/mirageworld/mirage/backend/internal/model/persona"

// PrivateConversation holds the one-to-one history with a single persona,
// keyed by that persona's nickname. Same bounded-log semantics as channels.
type PrivateConversation struct {
	User     persona.Persona `json:"user"`
	Messages []Message       `json:"messages"`
}

// NewPrivateConversation starts an empty conversation with the given persona.
func NewPrivateConversation(p persona.Persona) *PrivateConversation {
	return &PrivateConversation{
		User:     p,
		Messages: make([]Message, 0, 16),
	}
}

// Append adds a message enforcing the sliding cap.
func (c *PrivateConversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	if len(c.Messages) > MaxLogEntries {
		c.Messages = c.Messages[len(c.Messages)-MaxLogEntries:]
	}
}
