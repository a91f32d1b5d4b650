package sim

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mirageworld/mirage/backend/internal/service/scheduler"
	"github.com/mirageworld/mirage/backend/internal/service/typing"
	"github.com/mirageworld/mirage/backend/internal/store"
	"github.com/mirageworld/mirage/backend/pkg/utils"
)

// Handler controls the simulation lifecycle: speed, tab visibility, and the
// settings-modal suspension, plus log export.
type Handler struct {
	sched  *scheduler.Scheduler
	typist *typing.Simulator
	logs   store.LogStore
}

// New wires the simulation-control handler. logs may be nil.
func New(sched *scheduler.Scheduler, typist *typing.Simulator, logs store.LogStore) *Handler {
	return &Handler{sched: sched, typist: typist, logs: logs}
}

// RegisterRoutes registers simulation-control routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sim/status", h.handleStatus)
	r.Put("/sim/speed", h.handleSpeed)
	r.Put("/sim/visibility", h.handleVisibility)
	r.Put("/sim/settings", h.handleSettings)
	r.Get("/logs/export", h.handleExport)
	r.Delete("/logs", h.handleClear)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, speed, visible, settingsOpen := h.sched.Status()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"state":        state.String(),
		"speed":        string(speed),
		"visible":      visible,
		"settingsOpen": settingsOpen,
		"typing":       h.typist.Typing(),
	})
}

func (h *Handler) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Speed string `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	speed, ok := scheduler.ParseSpeed(payload.Speed)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "speed must be off, slow, normal, or fast")
		return
	}
	h.sched.SetSpeed(speed)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"speed": payload.Speed})
}

func (h *Handler) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Visible bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.sched.SetVisible(payload.Visible)
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"visible": payload.Visible})
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Open bool `json:"open"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.sched.SetSettingsOpen(payload.Open)
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"settingsOpen": payload.Open})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "log store unavailable")
		return
	}
	data, err := h.logs.ExportLogs()
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="mirage-logs.json"`)
	w.Write(data)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "log store unavailable")
		return
	}
	if err := h.logs.ClearAll(); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
