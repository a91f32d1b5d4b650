package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
)

const (
	msgKeyPrefix = "msg/"
	seqKeyPrefix = "seq/"
	snapshotKey  = "snapshot/config"
)

// BadgerStore persists channel logs in BadgerDB. Messages live under
// "msg/<channel>/<seq>" with a zero-padded big-endian sequence so prefix
// iteration yields chronological order.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the log database at dirPath.
func NewBadgerStore(dirPath string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dirPath).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open log database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveMessage appends one message to the channel's log.
func (s *BadgerStore) SaveMessage(channel string, msg chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		seq, err := nextSeq(txn, channel)
		if err != nil {
			return err
		}
		return txn.Set(msgKey(channel, seq), data)
	})
}

// GetMessages reads messages in append order, skipping offset entries and
// returning at most limit (limit <= 0 means all).
func (s *BadgerStore) GetMessages(channel string, limit, offset int) ([]chat.Message, error) {
	var out []chat.Message

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(msgKeyPrefix + channel + "/")
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		skipped := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(out) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var msg chat.Message
				if err := json.Unmarshal(val, &msg); err != nil {
					return err
				}
				out = append(out, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// GetAllChannels lists channels that have persisted messages.
func (s *BadgerStore) GetAllChannels() ([]string, error) {
	seen := make(map[string]struct{})

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(seqKeyPrefix)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			name := strings.TrimPrefix(string(it.Item().Key()), seqKeyPrefix)
			seen[name] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// ClearChannel deletes a channel's persisted log.
func (s *BadgerStore) ClearChannel(channel string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(msgKeyPrefix + channel + "/")
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return txn.Delete([]byte(seqKeyPrefix + channel))
	})
}

// ClearAll wipes every persisted log.
func (s *BadgerStore) ClearAll() error {
	return s.db.DropAll()
}

// ExportLogs serializes every channel's log as one JSON document.
func (s *BadgerStore) ExportLogs() ([]byte, error) {
	channels, err := s.GetAllChannels()
	if err != nil {
		return nil, err
	}

	export := make(map[string][]chat.Message, len(channels))
	for _, name := range channels {
		msgs, err := s.GetMessages(name, 0, 0)
		if err != nil {
			return nil, err
		}
		export[name] = msgs
	}
	return json.MarshalIndent(export, "", "  ")
}

// SaveSnapshot stores the simulation configuration.
func (s *BadgerStore) SaveSnapshot(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), data)
	})
}

// LoadSnapshot returns the stored configuration, or nil when none exists.
func (s *BadgerStore) LoadSnapshot() (*Snapshot, error) {
	var snap *Snapshot

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded Snapshot
			if err := json.Unmarshal(val, &decoded); err != nil {
				return err
			}
			snap = &decoded
			return nil
		})
	})
	return snap, err
}

func msgKey(channel string, seq uint64) []byte {
	key := make([]byte, 0, len(msgKeyPrefix)+len(channel)+1+8)
	key = append(key, msgKeyPrefix...)
	key = append(key, channel...)
	key = append(key, '/')
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(key, buf[:]...)
}

func nextSeq(txn *badger.Txn, channel string) (uint64, error) {
	key := []byte(seqKeyPrefix + channel)

	var seq uint64
	item, err := txn.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		seq = 0
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) == 8 {
				seq = binary.BigEndian.Uint64(val)
			}
			return nil
		}); err != nil {
			return 0, err
		}
	}

	seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := txn.Set(key, buf[:]); err != nil {
		return 0, err
	}
	return seq, nil
}
