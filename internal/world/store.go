package world

import (
	"errors"
	"sync"
	"time"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
	"github.com/mirageworld/mirage/backend/internal/model/persona"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrPersonaNotFound = errors.New("persona not found")
	ErrNicknameTaken   = errors.New("nickname already taken")
	ErrChannelExists   = errors.New("channel already exists")
)

// Store owns the canonical world state: personas, channels, private
// conversations, and the active-context pointer. Every mutation goes through
// its entry points under one lock; asynchronous chains (scheduler ticks,
// typing deliveries, human sends) re-validate state here after every
// suspension point instead of trusting what they saw before.
type Store struct {
	mu        sync.RWMutex
	humanNick string

	personas     map[string]persona.Persona
	personaOrder []string

	channels []*chat.Channel
	private  map[string]*chat.PrivateConversation

	active    chat.Context
	lastHuman time.Time

	events *broadcaster
}

// NewStore creates an empty world owned by the given human nickname.
func NewStore(humanNick string) *Store {
	return &Store{
		humanNick: humanNick,
		personas:  make(map[string]persona.Persona),
		private:   make(map[string]*chat.PrivateConversation),
		events:    newBroadcaster(),
	}
}

// Subscribe registers a world-event observer. The returned cancel must be
// called when the observer goes away.
func (s *Store) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

// HumanNickname returns the human participant's current nickname.
func (s *Store) HumanNickname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.humanNick
}

// --- personas ---

// AddPersona registers a persona. Nicknames are unique across personas and
// the human.
func (s *Store) AddPersona(p persona.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Nickname == "" || p.Nickname == s.humanNick {
		return ErrNicknameTaken
	}
	if _, ok := s.personas[p.Nickname]; ok {
		return ErrNicknameTaken
	}
	if len(p.LanguageSkills) == 0 {
		p.LanguageSkills = persona.DefaultSkills()
	}
	s.personas[p.Nickname] = p
	s.personaOrder = append(s.personaOrder, p.Nickname)
	return nil
}

// RemovePersona deletes a persona and removes it from every channel.
func (s *Store) RemovePersona(nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.personas[nickname]; !ok {
		return ErrPersonaNotFound
	}
	delete(s.personas, nickname)
	for i, n := range s.personaOrder {
		if n == nickname {
			s.personaOrder = append(s.personaOrder[:i], s.personaOrder[i+1:]...)
			break
		}
	}
	for _, ch := range s.channels {
		removeMember(ch, nickname)
	}
	delete(s.private, nickname)
	return nil
}

// Persona looks up a persona by nickname.
func (s *Store) Persona(nickname string) (persona.Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personas[nickname]
	return p, ok
}

// Personas returns all personas in registration order.
func (s *Store) Personas() []persona.Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]persona.Persona, 0, len(s.personaOrder))
	for _, nick := range s.personaOrder {
		out = append(out, s.personas[nick])
	}
	return out
}

// UnassignedPersonas returns personas not currently assigned to any channel.
func (s *Store) UnassignedPersonas() []persona.Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []persona.Persona
	for _, nick := range s.personaOrder {
		p := s.personas[nick]
		if len(p.AssignedChannels) == 0 {
			out = append(out, p)
		}
	}
	return out
}

// --- channels ---

// AddChannel creates a channel containing the human persona.
func (s *Store) AddChannel(name, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findChannel(name) != nil {
		return ErrChannelExists
	}
	ch := chat.NewChannel(name, topic)
	ch.Users = append(ch.Users, persona.Persona{Nickname: s.humanNick, Status: persona.StatusOnline})
	s.channels = append(s.channels, ch)
	s.events.publish(Event{Kind: EventMembership, Context: chat.ChannelContext(name), Nickname: s.humanNick})
	return nil
}

// RemoveChannel deletes a channel; a dangling active context is cleared.
func (s *Store) RemoveChannel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, ch := range s.channels {
		if ch.Name == name {
			s.channels = append(s.channels[:i], s.channels[i+1:]...)
			for nick, p := range s.personas {
				s.personas[nick] = unassign(p, name)
			}
			if s.active.Kind == chat.ContextChannel && s.active.Name == name {
				s.active = chat.Context{}
			}
			return nil
		}
	}
	return ErrChannelNotFound
}

// ChannelNames lists channels in creation order.
func (s *Store) ChannelNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.channels))
	for i, ch := range s.channels {
		out[i] = ch.Name
	}
	return out
}

// ChannelSnapshot returns a copy of the channel safe to read without the
// store lock. Mutating the copy has no effect on the world.
func (s *Store) ChannelSnapshot(name string) (chat.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch := s.findChannel(name)
	if ch == nil {
		return chat.Channel{}, false
	}
	return snapshotChannel(ch), true
}

// ChannelSnapshots returns copies of every channel.
func (s *Store) ChannelSnapshots() []chat.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, snapshotChannel(ch))
	}
	return out
}

// SetTopic updates a channel topic.
func (s *Store) SetTopic(name, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.findChannel(name)
	if ch == nil {
		return ErrChannelNotFound
	}
	ch.Topic = topic
	s.events.publish(Event{Kind: EventTopic, Context: chat.ChannelContext(name)})
	return nil
}

// --- membership ---

// AddToChannel puts a persona into a channel. Adding an already-present
// member is a no-op.
func (s *Store) AddToChannel(channel, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.findChannel(channel)
	if ch == nil {
		return ErrChannelNotFound
	}
	if ch.HasUser(nickname) {
		return nil
	}

	if nickname == s.humanNick {
		ch.Users = append(ch.Users, persona.Persona{Nickname: s.humanNick, Status: persona.StatusOnline})
	} else {
		p, ok := s.personas[nickname]
		if !ok {
			return ErrPersonaNotFound
		}
		if !p.AssignedTo(channel) {
			p.AssignedChannels = append(p.AssignedChannels, channel)
			s.personas[nickname] = p
		}
		ch.Users = append(ch.Users, p)
	}
	s.events.publish(Event{Kind: EventMembership, Context: chat.ChannelContext(channel), Nickname: nickname})
	return nil
}

// RemoveFromChannel takes a member out of a channel. Operator status in that
// channel is dropped with the membership.
func (s *Store) RemoveFromChannel(channel, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.findChannel(channel)
	if ch == nil {
		return ErrChannelNotFound
	}
	removeMember(ch, nickname)
	if p, ok := s.personas[nickname]; ok {
		s.personas[nickname] = unassign(p, channel)
	}
	s.events.publish(Event{Kind: EventMembership, Context: chat.ChannelContext(channel), Nickname: nickname})
	return nil
}

// --- operators ---

// GrantOperator adds a nickname to the channel's operator set. Idempotent.
func (s *Store) GrantOperator(channel, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.findChannel(channel)
	if ch == nil {
		return ErrChannelNotFound
	}
	if !ch.HasUser(nickname) {
		return ErrPersonaNotFound
	}
	ch.Operators[nickname] = struct{}{}
	return nil
}

// RevokeOperator removes operator status. Idempotent.
func (s *Store) RevokeOperator(channel, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.findChannel(channel)
	if ch == nil {
		return ErrChannelNotFound
	}
	delete(ch.Operators, nickname)
	return nil
}

// --- rename ---

// Rename changes a nickname everywhere in one state transition: the persona
// registry, every channel's member list and operator set, any private
// conversation key, the active context, and the human's own identity. No
// dangling references to the old nickname survive.
func (s *Store) Rename(oldNick, newNick string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if newNick == "" {
		return ErrNicknameTaken
	}
	if _, taken := s.personas[newNick]; taken || newNick == s.humanNick {
		return ErrNicknameTaken
	}

	isHuman := oldNick == s.humanNick
	if !isHuman {
		p, ok := s.personas[oldNick]
		if !ok {
			return ErrPersonaNotFound
		}
		delete(s.personas, oldNick)
		p.Nickname = newNick
		s.personas[newNick] = p
		for i, n := range s.personaOrder {
			if n == oldNick {
				s.personaOrder[i] = newNick
			}
		}
	} else {
		s.humanNick = newNick
	}

	for _, ch := range s.channels {
		for i := range ch.Users {
			if ch.Users[i].Nickname == oldNick {
				ch.Users[i].Nickname = newNick
			}
		}
		if _, ok := ch.Operators[oldNick]; ok {
			delete(ch.Operators, oldNick)
			ch.Operators[newNick] = struct{}{}
		}
	}

	if conv, ok := s.private[oldNick]; ok {
		delete(s.private, oldNick)
		conv.User.Nickname = newNick
		s.private[newNick] = conv
	}

	if s.active.Kind == chat.ContextPrivate && s.active.Name == oldNick {
		s.active.Name = newNick
	}

	s.events.publish(Event{Kind: EventRename, Nickname: newNick})
	return nil
}

// --- active context ---

// SetActive moves the human's viewing pointer.
func (s *Store) SetActive(ctx chat.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ctx
}

// Active returns the current viewing pointer.
func (s *Store) Active() chat.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// MarkHumanActivity records when the human last sent a message; the
// scheduler reads it to decide burst mode.
func (s *Store) MarkHumanActivity(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHuman = t
}

// LastHumanActivity returns the most recent human message time.
func (s *Store) LastHumanActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastHuman
}

// --- append and trim (integration pipeline only) ---

// AppendToChannel appends through the bounded log. Only the integration
// pipeline calls this.
func (s *Store) AppendToChannel(channel string, msg chat.Message) error {
	s.mu.Lock()
	ch := s.findChannel(channel)
	if ch == nil {
		s.mu.Unlock()
		return ErrChannelNotFound
	}
	ch.Append(msg)
	s.mu.Unlock()

	s.events.publish(Event{Kind: EventMessage, Context: chat.ChannelContext(channel), Nickname: msg.Nickname, Message: &msg})
	return nil
}

// AppendToPrivate appends to the private conversation with the given
// nickname, creating it lazily. Only the integration pipeline calls this.
func (s *Store) AppendToPrivate(nickname string, msg chat.Message) error {
	s.mu.Lock()
	conv, ok := s.private[nickname]
	if !ok {
		p, known := s.personas[nickname]
		if !known {
			p = persona.Persona{Nickname: nickname, Status: persona.StatusOnline, LanguageSkills: persona.DefaultSkills()}
		}
		conv = chat.NewPrivateConversation(p)
		s.private[nickname] = conv
	}
	conv.Append(msg)
	s.mu.Unlock()

	s.events.publish(Event{Kind: EventMessage, Context: chat.PrivateContext(nickname), Nickname: msg.Nickname, Message: &msg})
	return nil
}

// PrivateSnapshot returns a copy of a private conversation.
func (s *Store) PrivateSnapshot(nickname string) (chat.PrivateConversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.private[nickname]
	if !ok {
		return chat.PrivateConversation{}, false
	}
	out := chat.PrivateConversation{User: conv.User}
	out.Messages = append([]chat.Message(nil), conv.Messages...)
	return out, true
}

// PrivateNicknames lists open private conversations.
func (s *Store) PrivateNicknames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.private))
	for nick := range s.private {
		out = append(out, nick)
	}
	return out
}

// ResetChannelHistory trims the channel log to the most recent keep entries
// and stamps the reset time. Used by the scheduler's staleness mitigation.
func (s *Store) ResetChannelHistory(channel string, keep int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.findChannel(channel)
	if ch == nil {
		return ErrChannelNotFound
	}
	ch.Trim(keep)
	ch.LastReset = at
	return nil
}

// PublishTyping pushes a typing-indicator change to observers.
func (s *Store) PublishTyping(nickname string, typing bool) {
	s.events.publish(Event{Kind: EventTyping, Nickname: nickname, Typing: typing})
}

// --- helpers, s.mu held ---

func (s *Store) findChannel(name string) *chat.Channel {
	for _, ch := range s.channels {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

func snapshotChannel(ch *chat.Channel) chat.Channel {
	out := chat.Channel{
		Name:             ch.Name,
		Topic:            ch.Topic,
		DominantLanguage: ch.DominantLanguage,
		LastReset:        ch.LastReset,
		Operators:        make(map[string]struct{}, len(ch.Operators)),
	}
	out.Users = append([]persona.Persona(nil), ch.Users...)
	out.Messages = append([]chat.Message(nil), ch.Messages...)
	for nick := range ch.Operators {
		out.Operators[nick] = struct{}{}
	}
	return out
}

func removeMember(ch *chat.Channel, nickname string) {
	for i, u := range ch.Users {
		if u.Nickname == nickname {
			ch.Users = append(ch.Users[:i], ch.Users[i+1:]...)
			break
		}
	}
	delete(ch.Operators, nickname)
}

func unassign(p persona.Persona, channel string) persona.Persona {
	for i, c := range p.AssignedChannels {
		if c == channel {
			p.AssignedChannels = append(p.AssignedChannels[:i], p.AssignedChannels[i+1:]...)
			break
		}
	}
	return p
}
