package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mirageworld/mirage/backend/internal/config"
)

var ErrNotConnected = errors.New("relay not connected")

// frame is the wire format spoken with the IRC proxy.
type frame struct {
	ClientID string `json:"clientId,omitempty"`
	Nickname string `json:"nickname"`
	Content  string `json:"content"`
}

// Bridge relays simulated messages to a real IRC network through a websocket
// proxy. It is strictly optional: the pipeline treats sends as
// fire-and-forget and never depends on the bridge being up.
type Bridge struct {
	cfg      config.RelayConfig
	logger   *zap.Logger
	clientID string

	mu      sync.Mutex
	conn    *websocket.Conn
	handler func(nickname, content string)
	done    chan struct{}
}

// New creates a disconnected bridge.
func New(cfg config.RelayConfig, logger *zap.Logger) *Bridge {
	return &Bridge{
		cfg:      cfg,
		logger:   logger,
		clientID: uuid.NewString(),
	}
}

// Connect dials the proxy and starts the read pump.
func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		return err
	}

	hello := frame{ClientID: b.clientID, Nickname: b.cfg.Nick, Content: "hello"}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return err
	}

	b.conn = conn
	b.done = make(chan struct{})
	go b.readLoop(conn, b.done)

	b.logger.Info("relay connected", zap.String("url", b.cfg.URL))
	return nil
}

// Disconnect closes the proxy connection and waits for the read pump to
// drain.
func (b *Bridge) Disconnect() error {
	b.mu.Lock()
	conn := b.conn
	done := b.done
	b.conn = nil
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	if done != nil {
		<-done
	}
	return err
}

// IsConnected reports whether the proxy socket is up.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// SendMessage exports one message to the bridged IRC channel.
func (b *Bridge) SendMessage(content, nickname string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return ErrNotConnected
	}
	return b.conn.WriteJSON(frame{ClientID: b.clientID, Nickname: nickname, Content: content})
}

// OnMessage registers a handler for inbound IRC traffic.
func (b *Bridge) OnMessage(handler func(nickname, content string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

func (b *Bridge) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			b.mu.Lock()
			if b.conn == conn {
				b.conn = nil
			}
			b.mu.Unlock()
			b.logger.Info("relay disconnected", zap.Error(err))
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			b.logger.Warn("relay frame decode failed", zap.Error(err))
			continue
		}

		b.mu.Lock()
		handler := b.handler
		b.mu.Unlock()
		if handler != nil && f.Content != "" {
			handler(f.Nickname, f.Content)
		}
	}
}
