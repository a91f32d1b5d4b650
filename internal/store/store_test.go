package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
)

// The memory and badger stores must behave identically behind LogStore.
func stores(t *testing.T) map[string]LogStore {
	t.Helper()
	badgerStore, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { badgerStore.Close() })
	return map[string]LogStore{
		"memory": NewMemoryStore(),
		"badger": badgerStore,
	}
}

func msg(id int64, content string) chat.Message {
	return chat.Message{
		ID:        id,
		Nickname:  "vex",
		Content:   content,
		Timestamp: time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC),
		Type:      chat.TypeAI,
	}
}

func TestSaveAndGetMessages(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := int64(1); i <= 5; i++ {
				require.NoError(t, s.SaveMessage("#lobby", msg(i, "line")))
			}

			got, err := s.GetMessages("#lobby", 0, 0)
			require.NoError(t, err)
			require.Len(t, got, 5)
			require.Equal(t, int64(1), got[0].ID)
			require.Equal(t, int64(5), got[4].ID)

			// Limit and offset paginate in insertion order.
			page, err := s.GetMessages("#lobby", 2, 1)
			require.NoError(t, err)
			require.Len(t, page, 2)
			require.Equal(t, int64(2), page[0].ID)
			require.Equal(t, int64(3), page[1].ID)
		})
	}
}

func TestGetMessagesUnknownChannel(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.GetMessages("#nothere", 0, 0)
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}

func TestGetAllChannels(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveMessage("#b", msg(1, "x")))
			require.NoError(t, s.SaveMessage("#a", msg(2, "y")))

			channels, err := s.GetAllChannels()
			require.NoError(t, err)
			require.ElementsMatch(t, []string{"#a", "#b"}, channels)
		})
	}
}

func TestClearChannel(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveMessage("#keep", msg(1, "x")))
			require.NoError(t, s.SaveMessage("#drop", msg(2, "y")))

			require.NoError(t, s.ClearChannel("#drop"))

			dropped, err := s.GetMessages("#drop", 0, 0)
			require.NoError(t, err)
			require.Empty(t, dropped)

			kept, err := s.GetMessages("#keep", 0, 0)
			require.NoError(t, err)
			require.Len(t, kept, 1)
		})
	}
}

func TestClearAll(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveMessage("#lobby", msg(1, "x")))
			require.NoError(t, s.ClearAll())

			channels, err := s.GetAllChannels()
			require.NoError(t, err)
			require.Empty(t, channels)
		})
	}
}

func TestExportLogsIsValidJSON(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveMessage("#lobby", msg(1, "exported line")))

			data, err := s.ExportLogs()
			require.NoError(t, err)

			var decoded map[string][]chat.Message
			require.NoError(t, json.Unmarshal(data, &decoded))
			require.Len(t, decoded["#lobby"], 1)
			require.Equal(t, "exported line", decoded["#lobby"][0].Content)
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			missing, err := s.LoadSnapshot()
			require.NoError(t, err)
			require.Nil(t, missing)

			saved := Snapshot{
				Speed:         "fast",
				HumanNickname: "neo",
				TypingEnabled: true,
				SavedAt:       time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC),
			}
			require.NoError(t, s.SaveSnapshot(saved))

			loaded, err := s.LoadSnapshot()
			require.NoError(t, err)
			require.NotNil(t, loaded)
			require.Equal(t, saved.Speed, loaded.Speed)
			require.Equal(t, saved.HumanNickname, loaded.HumanNickname)
			require.True(t, loaded.TypingEnabled)
		})
	}
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveMessage("#lobby", msg(1, "durable")))
	require.NoError(t, s.Close())

	reopened, err := NewBadgerStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetMessages("#lobby", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "durable", got[0].Content)

	// Sequence numbers continue after reopen, so order is preserved.
	require.NoError(t, reopened.SaveMessage("#lobby", msg(2, "after reopen")))
	got, err = reopened.GetMessages("#lobby", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "after reopen", got[1].Content)
}
