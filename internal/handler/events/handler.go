package events

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mirageworld/mirage/backend/internal/world"
	"github.com/mirageworld/mirage/backend/pkg/utils"
)

// Handler streams world events to the browser over Server-Sent Events. The
// UI observes store changes exclusively through this stream.
type Handler struct {
	world *world.Store
}

// New creates the events handler.
func New(w *world.Store) *Handler {
	return &Handler{world: w}
}

// RegisterRoutes registers the event stream route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	events, cancel := h.world.Subscribe()
	defer cancel()

	ctx := r.Context()
	heartbeat := time.NewTicker(8 * time.Second)
	defer heartbeat.Stop()

	utils.SendSSEEvent(w, flusher, "status", map[string]string{"message": "stream established"})

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing event stream")
			return
		case ev, open := <-events:
			if !open {
				return
			}
			utils.SendSSEEvent(w, flusher, string(ev.Kind), ev)
		case t := <-heartbeat.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": t.UTC().Format(time.RFC3339),
			})
		}
	}
}
