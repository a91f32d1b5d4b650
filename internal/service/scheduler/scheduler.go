package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mirageworld/mirage/backend/internal/analysis/patterns"
	"github.com/mirageworld/mirage/backend/internal/config"
	"github.com/mirageworld/mirage/backend/internal/model/chat"
	"github.com/mirageworld/mirage/backend/internal/model/persona"
	"github.com/mirageworld/mirage/backend/internal/service/ai"
	"github.com/mirageworld/mirage/backend/internal/world"
)

// State is the scheduler's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateFiring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	default:
		return "unknown"
	}
}

// Generator is the generation gateway surface the scheduler consumes.
type Generator interface {
	RequestChannelUtterance(ctx context.Context, ch chat.Channel, exclude, hint string) (string, error)
	RequestReaction(ctx context.Context, ch chat.Channel, trigger chat.Message, exclude, hint string) (string, error)
	RequestPrivateReply(ctx context.Context, conv chat.PrivateConversation, trigger chat.Message) (string, error)
	RequestGreetings(ctx context.Context, ch chat.Channel, joined []persona.Persona) (string, error)
}

// Appender is the integration pipeline surface the scheduler produces into.
type Appender interface {
	Append(msg chat.Message, target chat.Context) (chat.Message, error)
}

// Deliverer paces a delivery behind a typing indicator.
type Deliverer interface {
	Deliver(ctx context.Context, nickname, content string, deliver func())
}

// Scheduler drives autonomous conversation: a single timer, re-armed after
// every tick, decides when personas speak, where, and how quickly. At most
// one timer is live at any instant; cancelling (speed off, tab hidden,
// settings open) stops it synchronously. In-flight generation calls and
// typing waits are not cancelled by a disarm; their late appends are
// accepted, matching a human who never retracts a message someone was
// already typing.
type Scheduler struct {
	cfg      config.SchedulerConfig
	world    *world.Store
	gen      Generator
	pipe     Appender
	typist   Deliverer
	patterns *patterns.Tracker
	logger   *zap.Logger

	mu           sync.Mutex
	state        State
	speed        Speed
	visible      bool
	settingsOpen bool
	timer        *time.Timer
	lastNotice   map[string]time.Time
	nextReset    map[string]time.Time
	rng          *rand.Rand
	now          func() time.Time

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a stopped scheduler. Call Start to begin simulation.
func New(cfg config.SchedulerConfig, w *world.Store, gen Generator, pipe Appender, typist Deliverer, logger *zap.Logger) *Scheduler {
	speed, ok := ParseSpeed(cfg.Speed)
	if !ok {
		speed = SpeedNormal
	}
	return &Scheduler{
		cfg:        cfg,
		world:      w,
		gen:        gen,
		pipe:       pipe,
		typist:     typist,
		patterns:   patterns.NewTracker(),
		logger:     logger,
		speed:      speed,
		visible:    true,
		lastNotice: make(map[string]time.Time),
		nextReset:  make(map[string]time.Time),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}
}

// Start initializes the run context and arms the first timer.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx != nil {
		return
	}
	s.runCtx, s.cancel = context.WithCancel(context.Background())

	events, cancelSub := s.world.Subscribe()
	s.wg.Add(1)
	go s.watchTopics(s.runCtx, events, cancelSub)

	s.armLocked()
}

// watchTopics feeds channel topic changes into the pattern tracker so the
// staleness nudge follows real topic activity instead of process uptime.
func (s *Scheduler) watchTopics(ctx context.Context, events <-chan world.Event, cancel func()) {
	defer s.wg.Done()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != world.EventTopic || ev.Context.Kind != chat.ContextChannel {
				continue
			}
			if ch, ok := s.world.ChannelSnapshot(ev.Context.Name); ok {
				s.patterns.RecordTopic(ch.Topic, s.now())
			}
		}
	}
}

// Stop disarms the timer and cancels the run context, which also tears down
// pending burst follow-ups and typing waits. Blocks until spawned work
// returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.disarmLocked()
	cancel := s.cancel
	s.runCtx, s.cancel = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// SetSpeed changes pace. Setting off cancels any pending timer
// synchronously.
func (s *Scheduler) SetSpeed(speed Speed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = speed
	s.disarmLocked()
	s.armLocked()
}

// SetVisible reflects tab visibility. Hiding cancels the pending timer
// before the suspension, never after.
func (s *Scheduler) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
	s.disarmLocked()
	s.armLocked()
}

// SetSettingsOpen suspends the simulation while configuration UI is open.
func (s *Scheduler) SetSettingsOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsOpen = open
	s.disarmLocked()
	s.armLocked()
}

// Status reports the observable scheduler state.
func (s *Scheduler) Status() (state State, speed Speed, visible, settingsOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.speed, s.visible, s.settingsOpen
}

// canRunLocked is the arm condition and doubles as the top-of-tick guard.
func (s *Scheduler) canRunLocked() bool {
	return s.runCtx != nil && s.speed != SpeedOff && s.visible && !s.settingsOpen
}

// armLocked schedules the next tick. Any prior timer is already stopped:
// one live timer at any instant is an invariant, not an optimization.
func (s *Scheduler) armLocked() {
	if s.state != StateIdle || !s.canRunLocked() {
		return
	}
	interval := Interval(s.cfg, s.speed, s.now())
	if interval <= 0 {
		return
	}
	s.state = StateArmed
	s.timer = time.AfterFunc(interval, s.fire)
}

func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.state == StateArmed {
		s.state = StateIdle
	}
}

// fire transitions Armed -> Firing, runs one tick, and re-arms with a fresh
// interval whether the tick succeeded or not.
func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.state != StateArmed {
		// Disarmed between expiry and execution; the cancel wins.
		s.mu.Unlock()
		return
	}
	s.state = StateFiring
	s.timer = nil
	ctx := s.runCtx
	s.mu.Unlock()

	if ctx != nil {
		s.tick(ctx)
	}

	s.mu.Lock()
	s.state = StateIdle
	s.armLocked()
	s.mu.Unlock()
}

// tick is one pass of the simulation loop.
func (s *Scheduler) tick(ctx context.Context) {
	// Re-check the suspension conditions: the timer may have fired in the
	// window between "hidden" and "cancel".
	s.mu.Lock()
	runnable := s.canRunLocked()
	s.mu.Unlock()
	if !runnable {
		return
	}

	channels := s.world.ChannelSnapshots()
	if len(channels) == 0 {
		return
	}

	s.autoJoinIdleChannels(ctx, channels)

	now := s.now()
	burst := !s.world.LastHumanActivity().IsZero() && now.Sub(s.world.LastHumanActivity()) < s.cfg.BurstWindow

	target, ok := s.pickTarget(channels)
	if !ok {
		return
	}

	s.maybeResetHistory(target, now)

	s.speakInChannel(ctx, target, burst)
}

// pickTarget prefers the channel the human is viewing, else a uniformly
// random one.
func (s *Scheduler) pickTarget(channels []chat.Channel) (string, bool) {
	active := s.world.Active()
	if active.Kind == chat.ContextChannel {
		for _, ch := range channels {
			if ch.Name == active.Name {
				return ch.Name, true
			}
		}
	}
	if len(channels) == 0 {
		return "", false
	}
	s.mu.Lock()
	idx := s.rng.Intn(len(channels))
	s.mu.Unlock()
	return channels[idx].Name, true
}

// autoJoinIdleChannels populates channels where the human sits alone with
// 2-4 unassigned personas, each announced with a join message and greeted in
// character.
func (s *Scheduler) autoJoinIdleChannels(ctx context.Context, channels []chat.Channel) {
	human := s.world.HumanNickname()

	for _, ch := range channels {
		if len(ch.Users) != 1 || ch.Users[0].Nickname != human {
			continue
		}

		candidates := s.world.UnassignedPersonas()
		if len(candidates) == 0 {
			continue
		}

		s.mu.Lock()
		s.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		count := 2 + s.rng.Intn(3)
		s.mu.Unlock()
		if count > len(candidates) {
			count = len(candidates)
		}

		joined := make([]persona.Persona, 0, count)
		for _, p := range candidates[:count] {
			if err := s.world.AddToChannel(ch.Name, p.Nickname); err != nil {
				continue
			}
			joined = append(joined, p)
			if _, err := s.pipe.Append(chat.Message{
				Nickname: p.Nickname,
				Content:  "has joined " + ch.Name,
				Type:     chat.TypeJoin,
			}, chat.ChannelContext(ch.Name)); err != nil {
				s.logger.Warn("join message append failed", zap.String("channel", ch.Name), zap.Error(err))
			}
		}

		if len(joined) > 0 {
			s.spawnGreetings(ctx, ch.Name, joined)
		}
	}
}

// spawnGreetings asks for greeting lines and delivers them behind typing
// indicators, off the tick path.
func (s *Scheduler) spawnGreetings(ctx context.Context, channel string, joined []persona.Persona) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		snapshot, ok := s.world.ChannelSnapshot(channel)
		if !ok {
			return
		}
		raw, err := s.gen.RequestGreetings(ctx, snapshot, joined)
		if err != nil {
			s.noticeFailure(channel, err)
			return
		}
		for _, u := range ai.ParseUtterances(raw) {
			utt := u
			s.typist.Deliver(ctx, utt.Nickname, utt.Content, func() {
				s.appendAI(utt, chat.ChannelContext(channel))
			})
		}
	}()
}

// speakInChannel requests one utterance for the target, delivers it behind a
// typing delay, and in burst mode occasionally schedules a follow-up.
func (s *Scheduler) speakInChannel(ctx context.Context, channel string, burst bool) {
	snapshot, ok := s.world.ChannelSnapshot(channel)
	if !ok {
		return
	}

	hint := s.patterns.Hint(s.now())
	raw, err := s.gen.RequestChannelUtterance(ctx, snapshot, "", hint)
	if err != nil {
		s.noticeFailure(channel, err)
		return
	}

	utt, ok := ai.ParseSingle(raw)
	if !ok {
		// Malformed output is "no activity this tick", not an error.
		return
	}

	s.typist.Deliver(ctx, utt.Nickname, utt.Content, func() {
		s.appendAI(utt, chat.ChannelContext(channel))
	})

	if burst && s.roll() < s.cfg.BurstProbability {
		s.spawnBurstFollowUp(ctx, channel, utt.Nickname)
	}
}

// spawnBurstFollowUp schedules a rapid second message 2-7s later. The run
// context cancels it on Stop; a mere disarm does not.
func (s *Scheduler) spawnBurstFollowUp(ctx context.Context, channel, lastSpeaker string) {
	delay := s.randDuration(s.cfg.BurstDelayMin, s.cfg.BurstDelayMax)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// The world may have moved while we slept; re-validate.
		snapshot, ok := s.world.ChannelSnapshot(channel)
		if !ok {
			return
		}

		raw, err := s.gen.RequestChannelUtterance(ctx, snapshot, lastSpeaker, "")
		if err != nil {
			s.noticeFailure(channel, err)
			return
		}
		utt, ok := ai.ParseSingle(raw)
		if !ok {
			return
		}
		s.typist.Deliver(ctx, utt.Nickname, utt.Content, func() {
			s.appendAI(utt, chat.ChannelContext(channel))
		})
	}()
}

// OnHumanMessage records human activity and spawns an in-character response:
// a channel reaction or a private reply.
func (s *Scheduler) OnHumanMessage(target chat.Context, msg chat.Message) {
	s.world.MarkHumanActivity(s.now())

	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		switch target.Kind {
		case chat.ContextChannel:
			snapshot, ok := s.world.ChannelSnapshot(target.Name)
			if !ok {
				return
			}
			raw, err := s.gen.RequestReaction(ctx, snapshot, msg, msg.Nickname, "")
			if err != nil {
				s.noticeFailure(target.Name, err)
				return
			}
			for _, u := range ai.ParseUtterances(raw) {
				utt := u
				s.typist.Deliver(ctx, utt.Nickname, utt.Content, func() {
					s.appendAI(utt, target)
				})
			}
		case chat.ContextPrivate:
			conv, ok := s.world.PrivateSnapshot(target.Name)
			if !ok {
				return
			}
			raw, err := s.gen.RequestPrivateReply(ctx, conv, msg)
			if err != nil {
				s.noticeFailure("pm:"+target.Name, err)
				return
			}
			utt, ok := ai.ParseSingle(raw)
			if !ok {
				return
			}
			s.typist.Deliver(ctx, utt.Nickname, utt.Content, func() {
				if _, err := s.pipe.Append(chat.Message{
					Nickname: utt.Nickname,
					Content:  utt.Content,
					Type:     chat.TypePM,
				}, target); err != nil {
					s.logger.Warn("private reply append failed", zap.String("with", target.Name), zap.Error(err))
				}
			})
		}
	}()
}

// maybeResetHistory applies the randomized 2-3h conversational freshness
// trim. Reset moments are randomized per channel so channels never reset in
// lockstep.
func (s *Scheduler) maybeResetHistory(channel string, now time.Time) {
	s.mu.Lock()
	next, ok := s.nextReset[channel]
	if !ok {
		s.nextReset[channel] = now.Add(s.randDurationLocked(s.cfg.StalenessMin, s.cfg.StalenessMax))
		s.mu.Unlock()
		return
	}
	due := now.After(next)
	if due {
		s.nextReset[channel] = now.Add(s.randDurationLocked(s.cfg.StalenessMin, s.cfg.StalenessMax))
	}
	s.mu.Unlock()

	if !due {
		return
	}
	if err := s.world.ResetChannelHistory(channel, s.cfg.TrimLimit, now); err != nil {
		s.logger.Warn("history reset failed", zap.String("channel", channel), zap.Error(err))
	}
}

func (s *Scheduler) appendAI(utt ai.Utterance, target chat.Context) {
	s.patterns.RecordPhrase(utt.Content)
	if _, err := s.pipe.Append(chat.Message{
		Nickname: utt.Nickname,
		Content:  utt.Content,
		Type:     chat.TypeAI,
	}, target); err != nil {
		s.logger.Warn("ai message append failed", zap.String("target", target.Name), zap.Error(err))
	}
}

// noticeFailure surfaces a generation failure as a single system message,
// throttled to one notice per target per NoticeInterval.
func (s *Scheduler) noticeFailure(target string, err error) {
	now := s.now()

	s.mu.Lock()
	if last, ok := s.lastNotice[target]; ok && now.Sub(last) < s.cfg.NoticeInterval {
		s.mu.Unlock()
		return
	}
	s.lastNotice[target] = now
	s.mu.Unlock()

	s.logger.Warn("generation failure", zap.String("target", target), zap.Error(err))

	content := noticeText(ai.KindOf(err))
	ctx := chat.ChannelContext(target)
	if len(target) > 3 && target[:3] == "pm:" {
		ctx = chat.PrivateContext(target[3:])
	}
	if _, appendErr := s.pipe.Append(chat.Message{
		Nickname: "system",
		Content:  content,
		Type:     chat.TypeSystem,
	}, ctx); appendErr != nil {
		s.logger.Warn("failure notice append failed", zap.String("target", target), zap.Error(appendErr))
	}
}

func noticeText(kind ai.FailureKind) string {
	switch kind {
	case ai.KindRateLimited:
		return "The simulation is being rate limited; conversation will resume shortly."
	case ai.KindPermissionDenied:
		return "The generation backend rejected the configured credentials."
	case ai.KindNetworkError:
		return "Network trouble reaching the generation backend; retrying on the next tick."
	case ai.KindInvalidArgument:
		return "The generation backend rejected the request."
	case ai.KindServiceUnavailable:
		return "The generation backend is temporarily unavailable."
	default:
		return "The simulation hit an unexpected generation error."
	}
}

func (s *Scheduler) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Scheduler) randDuration(min, max time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.randDurationLocked(min, max)
}

func (s *Scheduler) randDurationLocked(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}
