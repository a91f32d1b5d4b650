package channel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
	"github.com/mirageworld/mirage/backend/internal/service/bot"
	"github.com/mirageworld/mirage/backend/internal/service/commands"
	"github.com/mirageworld/mirage/backend/internal/service/pipeline"
	"github.com/mirageworld/mirage/backend/internal/world"
	"github.com/mirageworld/mirage/backend/pkg/utils"
)

// Simulation is the scheduler surface the handler pokes when the human
// speaks.
type Simulation interface {
	OnHumanMessage(target chat.Context, msg chat.Message)
}

// Handler serves channel and private-conversation traffic. Human sends are
// parsed here (slash commands, bot commands, plain messages) but every
// resulting message goes through the integration pipeline.
type Handler struct {
	world    *world.Store
	pipe     *pipeline.Pipeline
	commands *commands.Dispatcher
	bots     *bot.Dispatcher
	sim      Simulation
}

// New wires the channel handler.
func New(w *world.Store, pipe *pipeline.Pipeline, cmds *commands.Dispatcher, bots *bot.Dispatcher, sim Simulation) *Handler {
	return &Handler{world: w, pipe: pipe, commands: cmds, bots: bots, sim: sim}
}

// RegisterRoutes registers channel routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/channels", h.handleListChannels)
	r.Post("/channels", h.handleCreateChannel)
	r.Get("/channels/{name}/messages", h.handleChannelMessages)
	r.Post("/channels/{name}/messages", h.handleChannelSend)
	r.Get("/private/{nick}/messages", h.handlePrivateMessages)
	r.Post("/private/{nick}/messages", h.handlePrivateSend)
	r.Post("/active", h.handleSetActive)
}

type channelSummary struct {
	Name      string   `json:"name"`
	Topic     string   `json:"topic"`
	Users     []string `json:"users"`
	Operators []string `json:"operators"`
	Messages  int      `json:"messages"`
}

func (h *Handler) handleListChannels(w http.ResponseWriter, r *http.Request) {
	snapshots := h.world.ChannelSnapshots()
	out := make([]channelSummary, 0, len(snapshots))
	for _, ch := range snapshots {
		summary := channelSummary{
			Name:     ch.Name,
			Topic:    ch.Topic,
			Messages: len(ch.Messages),
		}
		for _, u := range ch.Users {
			summary.Users = append(summary.Users, u.Nickname)
		}
		for nick := range ch.Operators {
			summary.Operators = append(summary.Operators, nick)
		}
		out = append(out, summary)
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name  string `json:"name"`
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !strings.HasPrefix(payload.Name, "#") {
		utils.RespondError(w, http.StatusBadRequest, "channel names start with '#'")
		return
	}

	if err := h.world.AddChannel(payload.Name, payload.Topic); err != nil {
		if errors.Is(err, world.ErrChannelExists) {
			utils.RespondError(w, http.StatusConflict, "channel already exists")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"name": payload.Name})
}

func (h *Handler) handleChannelMessages(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snapshot, ok := h.world.ChannelSnapshot(name)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "channel not found")
		return
	}

	msgs := snapshot.Messages
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && limit < len(msgs) {
			msgs = msgs[len(msgs)-limit:]
		}
	}
	utils.RespondJSON(w, http.StatusOK, msgs)
}

func (h *Handler) handleChannelSend(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	target := chat.ChannelContext(name)

	if _, ok := h.world.ChannelSnapshot(name); !ok {
		utils.RespondError(w, http.StatusNotFound, "channel not found")
		return
	}
	h.handleSend(w, r, target)
}

func (h *Handler) handlePrivateMessages(w http.ResponseWriter, r *http.Request) {
	nick := chi.URLParam(r, "nick")
	conv, ok := h.world.PrivateSnapshot(nick)
	if !ok {
		utils.RespondJSON(w, http.StatusOK, []chat.Message{})
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv.Messages)
}

func (h *Handler) handlePrivateSend(w http.ResponseWriter, r *http.Request) {
	nick := chi.URLParam(r, "nick")
	h.handleSend(w, r, chat.PrivateContext(nick))
}

// handleSend routes one line of human input: slash commands and bot
// commands get dispatched, anything else is a plain message.
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request, target chat.Context) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content := strings.TrimSpace(payload.Content)
	if content == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	human := h.world.HumanNickname()

	if strings.HasPrefix(content, "/") {
		if err := h.commands.Execute(content, target); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "command executed"})
		return
	}

	msgType := chat.TypeUser
	if target.Kind == chat.ContextPrivate {
		msgType = chat.TypePM
	}
	msg, err := h.pipe.Append(chat.Message{
		Nickname: human,
		Content:  content,
		Type:     msgType,
	}, target)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	if command, response, ok := h.bots.Handle(content, human, target.Name); ok {
		if _, err := h.pipe.Append(chat.Message{
			Nickname:    h.bots.Nick(),
			Content:     response,
			Type:        chat.TypeBot,
			BotCommand:  command,
			BotResponse: response,
		}, target); err == nil {
			utils.RespondJSON(w, http.StatusCreated, msg)
			return
		}
	}

	h.sim.OnHumanMessage(target, msg)
	utils.RespondJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch payload.Kind {
	case "channel":
		h.world.SetActive(chat.ChannelContext(payload.Name))
	case "private":
		h.world.SetActive(chat.PrivateContext(payload.Name))
	case "none", "":
		h.world.SetActive(chat.Context{})
	default:
		utils.RespondError(w, http.StatusBadRequest, "kind must be channel, private, or none")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
