package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	channelHandler "github.com/mirageworld/mirage/backend/internal/handler/channel"
	eventsHandler "github.com/mirageworld/mirage/backend/internal/handler/events"
	personaHandler "github.com/mirageworld/mirage/backend/internal/handler/persona"
	simHandler "github.com/mirageworld/mirage/backend/internal/handler/sim"
	"github.com/mirageworld/mirage/backend/internal/middleware"
	"github.com/mirageworld/mirage/backend/internal/service/bot"
	"github.com/mirageworld/mirage/backend/internal/service/commands"
	"github.com/mirageworld/mirage/backend/internal/service/pipeline"
	"github.com/mirageworld/mirage/backend/internal/service/scheduler"
	"github.com/mirageworld/mirage/backend/internal/service/typing"
	"github.com/mirageworld/mirage/backend/internal/store"
	"github.com/mirageworld/mirage/backend/internal/world"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(
	w *world.Store,
	pipe *pipeline.Pipeline,
	sched *scheduler.Scheduler,
	typist *typing.Simulator,
	cmds *commands.Dispatcher,
	bots *bot.Dispatcher,
	logs store.LogStore,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Route("/api", func(api chi.Router) {
		channelHandler.New(w, pipe, cmds, bots, sched).RegisterRoutes(api)
		personaHandler.New(w).RegisterRoutes(api)
		simHandler.New(sched, typist, logs).RegisterRoutes(api)
		eventsHandler.New(w).RegisterRoutes(api)
	})

	return r
}
