package typing

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/mirageworld/mirage/backend/internal/config"
)

func testConfig() config.TypingConfig {
	return config.TypingConfig{
		Enabled:   true,
		BaseDelay: 800 * time.Millisecond,
		MaxDelay:  6 * time.Second,
	}
}

func TestComputeDelayDisabledIsZero(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	rng := rand.New(rand.NewSource(1))
	if d := ComputeDelay(500, cfg, rng); d != 0 {
		t.Fatalf("disabled config should yield zero delay, got %v", d)
	}
}

func TestComputeDelayBounds(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(42))

	for _, length := range []int{0, 10, 100, 500, 5000} {
		for i := 0; i < 200; i++ {
			d := ComputeDelay(length, cfg, rng)
			if d < 200*time.Millisecond {
				t.Fatalf("delay below floor for length %d: %v", length, d)
			}
			if d > cfg.MaxDelay+250*time.Millisecond {
				t.Fatalf("delay above clamp+jitter for length %d: %v", length, d)
			}
		}
	}
}

func TestComputeDelayLongerMessagesTrendSlower(t *testing.T) {
	cfg := testConfig()

	avg := func(length int) time.Duration {
		rng := rand.New(rand.NewSource(7))
		var total time.Duration
		const trials = 500
		for i := 0; i < trials; i++ {
			total += ComputeDelay(length, cfg, rng)
		}
		return total / trials
	}

	short := avg(5)
	long := avg(290)
	if long <= short {
		t.Fatalf("expected longer messages to average slower: short=%v long=%v", short, long)
	}
}

func TestDeliverOrderingAndTypingSet(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond

	var mu sync.Mutex
	var transitions []bool
	sim := NewSimulator(cfg, func(nick string, typing bool) {
		mu.Lock()
		transitions = append(transitions, typing)
		mu.Unlock()
	})

	delivered := false
	sim.Deliver(context.Background(), "vex", "hello there", func() {
		delivered = true
		if got := sim.Typing(); len(got) != 0 {
			t.Errorf("typing set should be clear before delivery, got %v", got)
		}
	})

	if !delivered {
		t.Fatal("delivery did not run")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 2 || !transitions[0] || transitions[1] {
		t.Fatalf("expected set-then-clear transitions, got %v", transitions)
	}
}

func TestDeliverAbandonedStillClears(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = time.Hour
	cfg.MaxDelay = 2 * time.Hour
	sim := NewSimulator(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		sim.Deliver(ctx, "marisol", "long message that will never land", func() {
			t.Error("delivery should have been abandoned")
		})
	}()

	<-started
	waitFor(t, func() bool { return len(sim.Typing()) == 1 })
	cancel()
	<-done

	if got := sim.Typing(); len(got) != 0 {
		t.Fatalf("typing set not cleared after abandonment: %v", got)
	}
}

func TestOverlappingDeliveriesKeepIndicatorUp(t *testing.T) {
	sim := NewSimulator(config.TypingConfig{}, nil)

	clear1 := sim.begin("vex")
	clear2 := sim.begin("vex")
	if got := sim.Typing(); len(got) != 1 || got[0] != "vex" {
		t.Fatalf("expected vex typing, got %v", got)
	}

	clear1()
	if got := sim.Typing(); len(got) != 1 {
		t.Fatalf("indicator dropped while a delivery was still pending: %v", got)
	}

	clear2()
	clear2() // idempotent
	if got := sim.Typing(); len(got) != 0 {
		t.Fatalf("expected empty typing set, got %v", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
