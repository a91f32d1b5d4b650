package typing

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/mirageworld/mirage/backend/internal/config"
)

// minDelay is the floor for any enabled typing delay.
const minDelay = 200 * time.Millisecond

// ComputeDelay produces a human-feeling typing delay for a message of the
// given length. Disabled configuration short-circuits to zero.
func ComputeDelay(messageLength int, cfg config.TypingConfig, rng *rand.Rand) time.Duration {
	if !cfg.Enabled {
		return 0
	}

	lengthFactor := math.Min(float64(messageLength)/100, 3)
	randomFactor := 0.5 + rng.Float64()*1.5

	raw := cfg.BaseDelay + time.Duration(lengthFactor*500*randomFactor*float64(time.Millisecond))
	if raw > cfg.MaxDelay {
		raw = cfg.MaxDelay
	}

	jitter := time.Duration((rng.Float64()*2 - 1) * 250 * float64(time.Millisecond))
	raw += jitter

	if raw < minDelay {
		raw = minDelay
	}
	return raw
}

// Simulator owns the process-wide "who is typing" set and paces message
// delivery. The set/clear pair around a delivery is guaranteed: the clear
// runs even when the delivery is abandoned.
type Simulator struct {
	cfg    config.TypingConfig
	notify func(nickname string, typing bool)

	mu     sync.Mutex
	rng    *rand.Rand
	active map[string]int
}

// NewSimulator creates a simulator. notify may be nil; when set it is called
// on every typing-indicator transition.
func NewSimulator(cfg config.TypingConfig, notify func(nickname string, typing bool)) *Simulator {
	return &Simulator{
		cfg:    cfg,
		notify: notify,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		active: make(map[string]int),
	}
}

// Typing returns the nicknames currently shown as typing, sorted.
func (s *Simulator) Typing() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.active))
	for nick := range s.active {
		out = append(out, nick)
	}
	sort.Strings(out)
	return out
}

// Deliver marks the speaker as typing, waits the computed delay, clears the
// mark, and then runs deliver. That ordering is an observable contract. If
// ctx is cancelled during the wait the delivery is abandoned but the typing
// mark is still cleared.
func (s *Simulator) Deliver(ctx context.Context, nickname, content string, deliver func()) {
	clear := s.begin(nickname)
	defer clear()

	delay := s.delayFor(len(content))
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}

	clear()
	deliver()
}

func (s *Simulator) delayFor(length int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeDelay(length, s.cfg, s.rng)
}

// begin adds a typing mark and returns an idempotent clear. Marks are
// counted so overlapping deliveries by one speaker keep the indicator up
// until the last one clears.
func (s *Simulator) begin(nickname string) func() {
	s.mu.Lock()
	s.active[nickname]++
	first := s.active[nickname] == 1
	s.mu.Unlock()

	if first && s.notify != nil {
		s.notify(nickname, true)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.active[nickname]--
			last := s.active[nickname] <= 0
			if last {
				delete(s.active, nickname)
			}
			s.mu.Unlock()

			if last && s.notify != nil {
				s.notify(nickname, false)
			}
		})
	}
}
