package world

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
	"github.com/mirageworld/mirage/backend/internal/model/persona"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore("you")
	require.NoError(t, s.AddPersona(persona.Persona{Nickname: "vex"}))
	require.NoError(t, s.AddPersona(persona.Persona{Nickname: "marisol"}))
	require.NoError(t, s.AddChannel("#lobby", "welcome"))
	return s
}

func TestAddPersonaRejectsDuplicates(t *testing.T) {
	s := newTestStore(t)
	require.ErrorIs(t, s.AddPersona(persona.Persona{Nickname: "vex"}), ErrNicknameTaken)
	require.ErrorIs(t, s.AddPersona(persona.Persona{Nickname: "you"}), ErrNicknameTaken)
	require.ErrorIs(t, s.AddPersona(persona.Persona{}), ErrNicknameTaken)
}

func TestAddChannelContainsHuman(t *testing.T) {
	s := newTestStore(t)
	snap, ok := s.ChannelSnapshot("#lobby")
	require.True(t, ok)
	require.True(t, snap.HasUser("you"))
	require.ErrorIs(t, s.AddChannel("#lobby", ""), ErrChannelExists)
}

func TestMembershipTracksAssignment(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddToChannel("#lobby", "vex"))
	require.NoError(t, s.AddToChannel("#lobby", "vex")) // no-op

	p, ok := s.Persona("vex")
	require.True(t, ok)
	require.Equal(t, []string{"#lobby"}, p.AssignedChannels)

	unassigned := s.UnassignedPersonas()
	require.Len(t, unassigned, 1)
	require.Equal(t, "marisol", unassigned[0].Nickname)

	require.NoError(t, s.RemoveFromChannel("#lobby", "vex"))
	p, _ = s.Persona("vex")
	require.Empty(t, p.AssignedChannels)
}

func TestOperatorGrantIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddToChannel("#lobby", "vex"))

	require.NoError(t, s.GrantOperator("#lobby", "vex"))
	require.NoError(t, s.GrantOperator("#lobby", "vex"))

	snap, _ := s.ChannelSnapshot("#lobby")
	require.True(t, snap.IsOperator("vex"))
	require.Len(t, snap.Operators, 1)

	require.NoError(t, s.RevokeOperator("#lobby", "vex"))
	require.NoError(t, s.RevokeOperator("#lobby", "vex"))
	snap, _ = s.ChannelSnapshot("#lobby")
	require.False(t, snap.IsOperator("vex"))
}

func TestGrantOperatorRequiresMembership(t *testing.T) {
	s := newTestStore(t)
	require.ErrorIs(t, s.GrantOperator("#lobby", "marisol"), ErrPersonaNotFound)
}

func TestChannelLogStaysBounded(t *testing.T) {
	s := newTestStore(t)
	total := chat.MaxLogEntries + 250
	for i := 1; i <= total; i++ {
		require.NoError(t, s.AppendToChannel("#lobby", chat.Message{
			ID:      int64(i),
			Content: fmt.Sprintf("line %d", i),
			Type:    chat.TypeUser,
		}))
	}

	snap, _ := s.ChannelSnapshot("#lobby")
	require.Len(t, snap.Messages, chat.MaxLogEntries)
	// The survivors are exactly the most recent suffix, in order.
	require.Equal(t, int64(total-chat.MaxLogEntries+1), snap.Messages[0].ID)
	require.Equal(t, int64(total), snap.Messages[len(snap.Messages)-1].ID)
	for i := 1; i < len(snap.Messages); i++ {
		require.Equal(t, snap.Messages[i-1].ID+1, snap.Messages[i].ID)
	}
}

func TestResetChannelHistoryTrims(t *testing.T) {
	s := newTestStore(t)
	for i := 1; i <= 50; i++ {
		require.NoError(t, s.AppendToChannel("#lobby", chat.Message{ID: int64(i)}))
	}
	at := time.Now()
	require.NoError(t, s.ResetChannelHistory("#lobby", 10, at))

	snap, _ := s.ChannelSnapshot("#lobby")
	require.Len(t, snap.Messages, 10)
	require.Equal(t, int64(41), snap.Messages[0].ID)
	require.Equal(t, at, snap.LastReset)
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendToChannel("#lobby", chat.Message{ID: 1, Content: "original"}))

	snap, _ := s.ChannelSnapshot("#lobby")
	snap.Messages[0].Content = "mutated"
	snap.Topic = "mutated"

	fresh, _ := s.ChannelSnapshot("#lobby")
	require.Equal(t, "original", fresh.Messages[0].Content)
	require.Equal(t, "welcome", fresh.Topic)
}

func TestAppendToPrivateCreatesConversationLazily(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendToPrivate("vex", chat.Message{ID: 1, Nickname: "you", Content: "psst"}))

	conv, ok := s.PrivateSnapshot("vex")
	require.True(t, ok)
	require.Equal(t, "vex", conv.User.Nickname)
	require.Len(t, conv.Messages, 1)
	require.Equal(t, []string{"vex"}, s.PrivateNicknames())
}

func TestRenamePersonaCascades(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddToChannel("#lobby", "vex"))
	require.NoError(t, s.GrantOperator("#lobby", "vex"))
	require.NoError(t, s.AppendToPrivate("vex", chat.Message{ID: 1}))
	s.SetActive(chat.PrivateContext("vex"))

	require.NoError(t, s.Rename("vex", "hex"))

	_, ok := s.Persona("vex")
	require.False(t, ok)
	p, ok := s.Persona("hex")
	require.True(t, ok)
	require.Equal(t, "hex", p.Nickname)

	snap, _ := s.ChannelSnapshot("#lobby")
	require.False(t, snap.HasUser("vex"))
	require.True(t, snap.HasUser("hex"))
	require.False(t, snap.IsOperator("vex"))
	require.True(t, snap.IsOperator("hex"))

	_, ok = s.PrivateSnapshot("vex")
	require.False(t, ok)
	conv, ok := s.PrivateSnapshot("hex")
	require.True(t, ok)
	require.Equal(t, "hex", conv.User.Nickname)

	require.Equal(t, chat.PrivateContext("hex"), s.Active())
}

func TestRenameHuman(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Rename("you", "neo"))
	require.Equal(t, "neo", s.HumanNickname())

	snap, _ := s.ChannelSnapshot("#lobby")
	require.True(t, snap.HasUser("neo"))
	require.False(t, snap.HasUser("you"))

	require.ErrorIs(t, s.AddPersona(persona.Persona{Nickname: "neo"}), ErrNicknameTaken)
}

func TestRenameRejectsCollisions(t *testing.T) {
	s := newTestStore(t)
	require.ErrorIs(t, s.Rename("vex", "marisol"), ErrNicknameTaken)
	require.ErrorIs(t, s.Rename("vex", "you"), ErrNicknameTaken)
	require.ErrorIs(t, s.Rename("vex", ""), ErrNicknameTaken)
	require.ErrorIs(t, s.Rename("ghost", "anything"), ErrPersonaNotFound)
}

func TestRemoveChannelClearsActiveContext(t *testing.T) {
	s := newTestStore(t)
	s.SetActive(chat.ChannelContext("#lobby"))
	require.NoError(t, s.RemoveChannel("#lobby"))
	require.True(t, s.Active().IsNone())
	require.ErrorIs(t, s.RemoveChannel("#lobby"), ErrChannelNotFound)
}

func TestSubscribeReceivesMessageEvents(t *testing.T) {
	s := newTestStore(t)
	events, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.AppendToChannel("#lobby", chat.Message{ID: 7, Nickname: "vex", Content: "hi"}))

	select {
	case ev := <-events:
		require.Equal(t, EventMessage, ev.Kind)
		require.Equal(t, chat.ChannelContext("#lobby"), ev.Context)
		require.NotNil(t, ev.Message)
		require.Equal(t, int64(7), ev.Message.ID)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}
