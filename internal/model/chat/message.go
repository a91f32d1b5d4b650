package chat

import "time"

// MessageType distinguishes how a log entry was produced and how the
// frontend should render it.
type MessageType string

const (
	TypeSystem MessageType = "system"
	TypeUser   MessageType = "user"
	TypeAI     MessageType = "ai"
	TypePM     MessageType = "pm"
	TypeAction MessageType = "action"
	TypeNotice MessageType = "notice"
	TypeTopic  MessageType = "topic"
	TypeKick   MessageType = "kick"
	TypeBan    MessageType = "ban"
	TypeJoin   MessageType = "join"
	TypePart   MessageType = "part"
	TypeQuit   MessageType = "quit"
	TypeBot    MessageType = "bot"
)

// Message is a single log entry. Once appended to a channel or private
// conversation it is never mutated in place; it disappears only when the
// bounded log evicts it oldest-first.
type Message struct {
	ID        int64       `json:"id"`
	Nickname  string      `json:"nickname"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`

	Command     string   `json:"command,omitempty"`
	Target      string   `json:"target,omitempty"`
	Links       []string `json:"links,omitempty"`
	Images      []string `json:"images,omitempty"`
	BotCommand  string   `json:"botCommand,omitempty"`
	BotResponse string   `json:"botResponse,omitempty"`
}

// IsAction reports whether the entry is a "/me" style action line.
func (m Message) IsAction() bool {
	return m.Type == TypeAction
}
