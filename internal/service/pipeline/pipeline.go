package pipeline

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
	"github.com/mirageworld/mirage/backend/internal/world"
)

// LogSink receives channel messages for durable storage. Failures are
// logged, never propagated.
type LogSink interface {
	SaveMessage(channel string, msg chat.Message) error
}

// Relay exports messages to the optional IRC bridge, fire-and-forget.
type Relay interface {
	IsConnected() bool
	SendMessage(content, nickname string) error
}

// Pipeline is the sole legal path for appending a message to any channel or
// private conversation. Every producer (scheduler ticks, reactions, human
// sends, slash commands, greetings, bot responses) funnels through Append.
type Pipeline struct {
	world  *world.Store
	logs   LogSink
	relay  Relay
	logger *zap.Logger

	nextID atomic.Int64
	now    func() time.Time
}

// New wires the pipeline. logs and relay may be nil.
func New(w *world.Store, logs LogSink, relay Relay, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		world:  w,
		logs:   logs,
		relay:  relay,
		logger: logger,
		now:    time.Now,
	}
}

// Append finalizes a message and integrates it into the target context. A
// none context drops the message silently: that is intentional, not an
// error. The store append is the point of truth; link extraction before it
// and side effects after it can never invalidate it.
func (p *Pipeline) Append(msg chat.Message, target chat.Context) (chat.Message, error) {
	if target.IsNone() {
		return msg, nil
	}

	if links, images := extractLinks(msg.Content); len(links) > 0 || len(images) > 0 {
		msg.Links = links
		msg.Images = images
	}

	if msg.ID == 0 {
		msg.ID = p.nextID.Add(1)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = p.now()
	}

	var err error
	switch target.Kind {
	case chat.ContextChannel:
		err = p.world.AppendToChannel(target.Name, msg)
	case chat.ContextPrivate:
		err = p.world.AppendToPrivate(target.Name, msg)
	}
	if err != nil {
		return chat.Message{}, err
	}

	p.fanOut(msg, target)
	return msg, nil
}

// fanOut runs best-effort side effects after a successful append.
func (p *Pipeline) fanOut(msg chat.Message, target chat.Context) {
	if p.logs != nil && target.Kind == chat.ContextChannel {
		if err := p.logs.SaveMessage(target.Name, msg); err != nil {
			p.logger.Warn("message log persist failed",
				zap.String("channel", target.Name),
				zap.Int64("id", msg.ID),
				zap.Error(err))
		}
	}

	if p.relay != nil && p.relay.IsConnected() && relayExportable(msg.Type) && target.Kind == chat.ContextChannel {
		go func() {
			if err := p.relay.SendMessage(msg.Content, msg.Nickname); err != nil {
				p.logger.Warn("relay send failed", zap.Int64("id", msg.ID), zap.Error(err))
			}
		}()
	}
}

func relayExportable(t chat.MessageType) bool {
	switch t {
	case chat.TypeUser, chat.TypeAI, chat.TypeAction, chat.TypeBot:
		return true
	default:
		return false
	}
}
