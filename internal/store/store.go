package store

import (
	"time"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
)

// LogStore is the message-log persistence boundary: a simple append-log
// keyed by channel. Implementations must tolerate being hammered by the
// pipeline's fan-out without ever blocking an append upstream.
type LogStore interface {
	SaveMessage(channel string, msg chat.Message) error
	GetMessages(channel string, limit, offset int) ([]chat.Message, error)
	GetAllChannels() ([]string, error)
	ClearChannel(channel string) error
	ClearAll() error
	ExportLogs() ([]byte, error)

	SaveSnapshot(s Snapshot) error
	LoadSnapshot() (*Snapshot, error)

	Close() error
}

// Snapshot is the persisted simulation configuration: enough to restore the
// user's world settings across restarts.
type Snapshot struct {
	Speed         string    `json:"speed"`
	HumanNickname string    `json:"humanNickname"`
	TypingEnabled bool      `json:"typingEnabled"`
	SavedAt       time.Time `json:"savedAt"`
}
