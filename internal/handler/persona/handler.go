package persona

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	personaModel "github.com/mirageworld/mirage/backend/internal/model/persona"
	"github.com/mirageworld/mirage/backend/internal/world"
	"github.com/mirageworld/mirage/backend/pkg/utils"
)

// Handler serves the persona roster.
type Handler struct {
	world *world.Store
}

// New creates the persona handler.
func New(w *world.Store) *Handler {
	return &Handler{world: w}
}

// RegisterRoutes registers persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleList)
	r.Post("/personas", h.handleCreate)
	r.Post("/personas/{nick}/rename", h.handleRename)
	r.Delete("/personas/{nick}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.world.Personas())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var p personaModel.Persona
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Nickname == "" {
		utils.RespondError(w, http.StatusBadRequest, "nickname is required")
		return
	}
	if p.Status == "" {
		p.Status = personaModel.StatusOnline
	}

	if err := h.world.AddPersona(p); err != nil {
		if errors.Is(err, world.ErrNicknameTaken) {
			utils.RespondError(w, http.StatusConflict, "nickname already taken")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	nick := chi.URLParam(r, "nick")

	var payload struct {
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.world.Rename(nick, payload.Nickname); err != nil {
		switch {
		case errors.Is(err, world.ErrPersonaNotFound):
			utils.RespondError(w, http.StatusNotFound, "persona not found")
		case errors.Is(err, world.ErrNicknameTaken):
			utils.RespondError(w, http.StatusConflict, "nickname already taken")
		default:
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"nickname": payload.Nickname})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	nick := chi.URLParam(r, "nick")
	if err := h.world.RemovePersona(nick); err != nil {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
