package chat

import (
	"time"

	"github.com/mirageworld/mirage/backend/internal/model/persona"
)

// MaxLogEntries caps every message log. Appends beyond the cap evict the
// oldest entries first (sliding window).
const MaxLogEntries = 1000

// Channel is a simulated IRC channel. Membership is tracked by persona value
// with nicknames acting as the identity key; Operators is a plain nickname
// set.
type Channel struct {
	Name             string              `json:"name"`
	Topic            string              `json:"topic"`
	Users            []persona.Persona   `json:"users"`
	Messages         []Message           `json:"messages"`
	Operators        map[string]struct{} `json:"-"`
	DominantLanguage string              `json:"dominantLanguage,omitempty"`

	// LastReset records when the working history was last trimmed for
	// conversational freshness. Zero means never.
	LastReset time.Time `json:"-"`
}

// NewChannel creates an empty channel. Names are expected to carry the
// leading '#'.
func NewChannel(name, topic string) *Channel {
	return &Channel{
		Name:      name,
		Topic:     topic,
		Users:     make([]persona.Persona, 0, 8),
		Messages:  make([]Message, 0, 64),
		Operators: make(map[string]struct{}),
	}
}

// HasUser reports whether a nickname is currently a member.
func (c *Channel) HasUser(nickname string) bool {
	for _, u := range c.Users {
		if u.Nickname == nickname {
			return true
		}
	}
	return false
}

// IsOperator reports whether the nickname holds operator status.
func (c *Channel) IsOperator(nickname string) bool {
	_, ok := c.Operators[nickname]
	return ok
}

// Append adds a message to the log enforcing the sliding cap. Callers go
// through the integration pipeline; nothing else appends.
func (c *Channel) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	if len(c.Messages) > MaxLogEntries {
		c.Messages = c.Messages[len(c.Messages)-MaxLogEntries:]
	}
}

// Trim keeps only the most recent keep entries.
func (c *Channel) Trim(keep int) {
	if keep > 0 && len(c.Messages) > keep {
		c.Messages = c.Messages[len(c.Messages)-keep:]
	}
}
