package channel

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
	"github.com/mirageworld/mirage/backend/internal/service/bot"
	"github.com/mirageworld/mirage/backend/internal/service/commands"
	"github.com/mirageworld/mirage/backend/internal/service/pipeline"
	"github.com/mirageworld/mirage/backend/internal/world"
)

type fakeSim struct {
	mu    sync.Mutex
	calls []chat.Context
}

func (f *fakeSim) OnHumanMessage(target chat.Context, msg chat.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, target)
}

func (f *fakeSim) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func setupRouter(t *testing.T) (*chi.Mux, *world.Store, *fakeSim) {
	t.Helper()
	w := world.NewStore("you")
	if err := w.AddChannel("#lobby", "hello"); err != nil {
		t.Fatal(err)
	}
	pipe := pipeline.New(w, nil, nil, zap.NewNop())
	sim := &fakeSim{}
	handler := New(w, pipe, commands.New(w, pipe, zap.NewNop()), bot.New(), sim)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, w, sim
}

// request builds an HTTP request for a literal path; channel names carry a
// '#' that must not be read as a URL fragment.
func request(t *testing.T, method, path string, body []byte) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, "/", reader)
	path, query, _ := strings.Cut(path, "?")
	req.URL.Path = path
	req.URL.RawQuery = query
	req.Header.Set("Content-Type", "application/json")
	return req
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, request(t, http.MethodPost, path, payload))
	return resp
}

func getPath(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, request(t, http.MethodGet, path, nil))
	return resp
}

func TestListChannels(t *testing.T) {
	r, _, _ := setupRouter(t)
	resp := getPath(t, r, "/channels")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0]["name"] != "#lobby" {
		t.Fatalf("unexpected channel list: %v", out)
	}
}

func TestCreateChannel(t *testing.T) {
	r, w, _ := setupRouter(t)
	resp := postJSON(t, r, "/channels", map[string]string{"name": "#random", "topic": "whatever"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if _, ok := w.ChannelSnapshot("#random"); !ok {
		t.Fatal("channel not created")
	}

	if resp := postJSON(t, r, "/channels", map[string]string{"name": "#random"}); resp.Code != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409, got %d", resp.Code)
	}
	if resp := postJSON(t, r, "/channels", map[string]string{"name": "random"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing '#': expected 400, got %d", resp.Code)
	}
}

func TestSendPlainMessageNotifiesSimulation(t *testing.T) {
	r, w, sim := setupRouter(t)
	resp := postJSON(t, r, "/channels/#lobby/messages", map[string]string{"content": "hello everyone"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	snap, _ := w.ChannelSnapshot("#lobby")
	if len(snap.Messages) != 1 || snap.Messages[0].Type != chat.TypeUser {
		t.Fatalf("message not appended: %+v", snap.Messages)
	}
	if sim.count() != 1 {
		t.Fatal("simulation not notified of human message")
	}
}

func TestSendSlashCommandSkipsSimulation(t *testing.T) {
	r, w, sim := setupRouter(t)
	resp := postJSON(t, r, "/channels/#lobby/messages", map[string]string{"content": "/topic new topic"})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}

	snap, _ := w.ChannelSnapshot("#lobby")
	if snap.Topic != "new topic" {
		t.Fatalf("topic not changed: %q", snap.Topic)
	}
	if sim.count() != 0 {
		t.Fatal("slash commands must not trigger ai reactions")
	}
}

func TestSendBotCommandAnswersInline(t *testing.T) {
	r, w, sim := setupRouter(t)
	resp := postJSON(t, r, "/channels/#lobby/messages", map[string]string{"content": "!coin"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	snap, _ := w.ChannelSnapshot("#lobby")
	if len(snap.Messages) != 2 {
		t.Fatalf("expected user message plus bot reply, got %d", len(snap.Messages))
	}
	if snap.Messages[1].Type != chat.TypeBot || snap.Messages[1].Nickname != "mirabot" {
		t.Fatalf("unexpected bot reply: %+v", snap.Messages[1])
	}
	if sim.count() != 0 {
		t.Fatal("bot commands must not trigger ai reactions")
	}
}

func TestSendValidation(t *testing.T) {
	r, _, _ := setupRouter(t)
	if resp := postJSON(t, r, "/channels/#lobby/messages", map[string]string{"content": "   "}); resp.Code != http.StatusBadRequest {
		t.Fatalf("blank content: expected 400, got %d", resp.Code)
	}
	if resp := postJSON(t, r, "/channels/#nope/messages", map[string]string{"content": "hi"}); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown channel: expected 404, got %d", resp.Code)
	}
}

func TestChannelMessagesWithLimit(t *testing.T) {
	r, w, _ := setupRouter(t)
	for i := 0; i < 5; i++ {
		if err := w.AppendToChannel("#lobby", chat.Message{ID: int64(i + 1)}); err != nil {
			t.Fatal(err)
		}
	}

	resp := getPath(t, r, "/channels/#lobby/messages?limit=2")

	var msgs []chat.Message
	if err := json.Unmarshal(resp.Body.Bytes(), &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].ID != 4 {
		t.Fatalf("limit should keep the newest suffix, got %+v", msgs)
	}
}

func TestPrivateConversationFlow(t *testing.T) {
	r, w, sim := setupRouter(t)

	// No conversation yet: empty list, not an error.
	resp := getPath(t, r, "/private/vex/messages")
	if resp.Code != http.StatusOK || resp.Body.String() == "" {
		t.Fatalf("expected empty 200, got %d", resp.Code)
	}

	if resp := postJSON(t, r, "/private/vex/messages", map[string]string{"content": "hey vex"}); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	conv, ok := w.PrivateSnapshot("vex")
	if !ok || len(conv.Messages) != 1 || conv.Messages[0].Type != chat.TypePM {
		t.Fatalf("private message not stored: %+v", conv)
	}
	if sim.count() != 1 {
		t.Fatal("private messages should trigger a reply")
	}
}

func TestSetActive(t *testing.T) {
	r, w, _ := setupRouter(t)

	if resp := postJSON(t, r, "/active", map[string]string{"kind": "channel", "name": "#lobby"}); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if w.Active() != chat.ChannelContext("#lobby") {
		t.Fatalf("active context not set: %+v", w.Active())
	}

	if resp := postJSON(t, r, "/active", map[string]string{"kind": "none"}); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !w.Active().IsNone() {
		t.Fatal("active context not cleared")
	}

	if resp := postJSON(t, r, "/active", map[string]string{"kind": "bogus"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
