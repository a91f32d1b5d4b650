package store

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
)

// MemoryStore is the in-memory LogStore used for tests and ephemeral runs.
type MemoryStore struct {
	mu       sync.RWMutex
	logs     map[string][]chat.Message
	snapshot *Snapshot
}

// NewMemoryStore creates an empty in-memory log store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]chat.Message)}
}

func (s *MemoryStore) SaveMessage(channel string, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[channel] = append(s.logs[channel], msg)
	return nil
}

func (s *MemoryStore) GetMessages(channel string, limit, offset int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.logs[channel]
	if offset >= len(msgs) {
		return nil, nil
	}
	msgs = msgs[offset:]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return append([]chat.Message(nil), msgs...), nil
}

func (s *MemoryStore) GetAllChannels() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.logs))
	for name := range s.logs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) ClearChannel(channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, channel)
	return nil
}

func (s *MemoryStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = make(map[string][]chat.Message)
	return nil
}

func (s *MemoryStore) ExportLogs() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.MarshalIndent(s.logs, "", "  ")
}

func (s *MemoryStore) SaveSnapshot(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &snap
	return nil
}

func (s *MemoryStore) LoadSnapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, nil
	}
	copied := *s.snapshot
	return &copied, nil
}

func (s *MemoryStore) Close() error { return nil }
