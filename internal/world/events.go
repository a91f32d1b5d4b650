package world

import (
	"sync"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
)

// EventKind classifies world events pushed to observers (the SSE stream).
type EventKind string

const (
	EventMessage    EventKind = "message"
	EventTyping     EventKind = "typing"
	EventMembership EventKind = "membership"
	EventTopic      EventKind = "topic"
	EventRename     EventKind = "rename"
)

// Event is a change notification. Observers treat it as read-only.
type Event struct {
	Kind     EventKind     `json:"kind"`
	Context  chat.Context  `json:"context"`
	Nickname string        `json:"nickname,omitempty"`
	Typing   bool          `json:"typing,omitempty"`
	Message  *chat.Message `json:"message,omitempty"`
}

// broadcaster fans events out to subscribers. Slow subscribers drop events
// rather than block mutation paths.
type broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 64)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}
