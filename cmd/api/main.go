package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mirageworld/mirage/backend/internal/config"
	"github.com/mirageworld/mirage/backend/internal/handler"
	"github.com/mirageworld/mirage/backend/internal/model/chat"
	"github.com/mirageworld/mirage/backend/internal/model/persona"
	"github.com/mirageworld/mirage/backend/internal/relay"
	"github.com/mirageworld/mirage/backend/internal/service/ai"
	"github.com/mirageworld/mirage/backend/internal/service/bot"
	"github.com/mirageworld/mirage/backend/internal/service/commands"
	"github.com/mirageworld/mirage/backend/internal/service/pipeline"
	"github.com/mirageworld/mirage/backend/internal/service/scheduler"
	"github.com/mirageworld/mirage/backend/internal/service/typing"
	"github.com/mirageworld/mirage/backend/internal/store"
	"github.com/mirageworld/mirage/backend/internal/world"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logs := openLogStore(cfg.Store, logger)
	defer logs.Close()

	humanNick := cfg.Human.Nickname
	if snap, err := logs.LoadSnapshot(); err != nil {
		logger.Warn("failed to load config snapshot", zap.Error(err))
	} else if snap != nil {
		if snap.HumanNickname != "" {
			humanNick = snap.HumanNickname
		}
		if snap.Speed != "" {
			cfg.Scheduler.Speed = snap.Speed
		}
	}

	w := world.NewStore(humanNick)
	seedWorld(w, logger)
	hydrateLogs(w, logs, logger)

	var bridge *relay.Bridge
	var pipeRelay pipeline.Relay
	if cfg.Relay.Enabled {
		bridge = relay.New(cfg.Relay, logger)
		if err := bridge.Connect(ctx); err != nil {
			logger.Warn("irc relay connect failed, continuing without bridge", zap.Error(err))
		} else {
			defer bridge.Disconnect()
			pipeRelay = bridge
		}
	}

	pipe := pipeline.New(w, logs, pipeRelay, logger)

	typist := typing.NewSimulator(cfg.Typing, w.PublishTyping)

	var gen scheduler.Generator
	if cfg.AI.Enabled() {
		gateway, err := ai.NewService(ctx, cfg.AI, humanNick, logger)
		if err != nil {
			logger.Warn("failed to initialize generation gateway, personas will stay silent", zap.Error(err))
			gen = silentGenerator{}
		} else {
			logger.Info("generation gateway initialized")
			gen = gateway
		}
	} else {
		logger.Info("generation credentials not configured, personas will stay silent")
		gen = silentGenerator{}
	}

	sched := scheduler.New(cfg.Scheduler, w, gen, pipe, typist, logger)
	sched.Start()
	defer sched.Stop()

	if bridge != nil {
		bridge.OnMessage(func(nickname, content string) {
			if _, err := pipe.Append(chat.Message{
				Nickname: nickname,
				Content:  content,
				Type:     chat.TypeNotice,
			}, w.Active()); err != nil {
				logger.Warn("relay inbound append failed", zap.Error(err))
			}
		})
	}

	cmds := commands.New(w, pipe, logger)
	bots := bot.New()

	router := handler.NewRouter(w, pipe, sched, typist, cmds, bots, logs)

	defer func() {
		_, speed, _, _ := sched.Status()
		snap := store.Snapshot{
			Speed:         string(speed),
			HumanNickname: w.HumanNickname(),
			TypingEnabled: cfg.Typing.Enabled,
			SavedAt:       time.Now(),
		}
		if err := logs.SaveSnapshot(snap); err != nil {
			logger.Warn("failed to save config snapshot", zap.Error(err))
		}
	}()

	startServer(ctx, cfg.Server, router, logger)
}

// silentGenerator keeps the scheduler harmless when no credentials are
// configured: every request yields "no eligible output".
type silentGenerator struct{}

func (silentGenerator) RequestChannelUtterance(context.Context, chat.Channel, string, string) (string, error) {
	return "", nil
}

func (silentGenerator) RequestReaction(context.Context, chat.Channel, chat.Message, string, string) (string, error) {
	return "", nil
}

func (silentGenerator) RequestPrivateReply(context.Context, chat.PrivateConversation, chat.Message) (string, error) {
	return "", nil
}

func (silentGenerator) RequestGreetings(context.Context, chat.Channel, []persona.Persona) (string, error) {
	return "", nil
}

func openLogStore(cfg config.StoreConfig, logger *zap.Logger) store.LogStore {
	if cfg.UseInMemory {
		logger.Info("using in-memory log store")
		return store.NewMemoryStore()
	}
	badgerStore, err := store.NewBadgerStore(cfg.Path)
	if err != nil {
		logger.Warn("failed to open badger log store, falling back to memory", zap.Error(err))
		return store.NewMemoryStore()
	}
	logger.Info("using badger log store", zap.String("path", cfg.Path))
	return badgerStore
}

func seedWorld(w *world.Store, logger *zap.Logger) {
	for _, p := range persona.Seed() {
		if err := w.AddPersona(p); err != nil {
			logger.Warn("seed persona skipped", zap.String("nickname", p.Nickname), zap.Error(err))
		}
	}
	if err := w.AddChannel("#lobby", "welcome to mirage"); err != nil {
		logger.Warn("seed channel skipped", zap.Error(err))
	}
	w.SetActive(chat.ChannelContext("#lobby"))
}

// hydrateLogs replays the tail of each persisted channel log into the world
// before the simulation starts; nothing observes the store yet, so the
// replay bypasses the pipeline without re-persisting anything.
func hydrateLogs(w *world.Store, logs store.LogStore, logger *zap.Logger) {
	channels, err := logs.GetAllChannels()
	if err != nil {
		logger.Warn("failed to list persisted channels", zap.Error(err))
		return
	}

	for _, name := range channels {
		msgs, err := logs.GetMessages(name, 0, 0)
		if err != nil {
			logger.Warn("failed to read persisted log", zap.String("channel", name), zap.Error(err))
			continue
		}
		if len(msgs) > 100 {
			msgs = msgs[len(msgs)-100:]
		}
		if err := w.AddChannel(name, ""); err != nil && !errors.Is(err, world.ErrChannelExists) {
			continue
		}
		for _, msg := range msgs {
			if err := w.AppendToChannel(name, msg); err != nil {
				break
			}
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("mirage backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
