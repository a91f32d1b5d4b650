package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "HUMAN_NICK", "SIM_SPEED", "TYPING_ENABLED", "RELAY_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("default addr = %q", cfg.Server.Addr)
	}
	if cfg.Human.Nickname != "you" {
		t.Fatalf("default human nick = %q", cfg.Human.Nickname)
	}
	if cfg.Scheduler.Speed != "normal" || cfg.Scheduler.NormalInterval != 20*time.Second {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.BurstProbability != 0.15 || cfg.Scheduler.TrimLimit != 1000 {
		t.Fatalf("unexpected burst/trim defaults: %+v", cfg.Scheduler)
	}
	if !cfg.Typing.Enabled || cfg.Typing.BaseDelay != 800*time.Millisecond {
		t.Fatalf("unexpected typing defaults: %+v", cfg.Typing)
	}
	if cfg.Relay.Enabled {
		t.Fatal("relay should be disabled without RELAY_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HUMAN_NICK", "neo")
	t.Setenv("SIM_SPEED", "fast")
	t.Setenv("SIM_NORMAL_INTERVAL", "10s")
	t.Setenv("SIM_BURST_PROBABILITY", "0.5")
	t.Setenv("TYPING_ENABLED", "false")
	t.Setenv("RELAY_URL", "ws://localhost:9000/bridge")
	t.Setenv("STORE_IN_MEMORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Human.Nickname != "neo" {
		t.Fatalf("human nick = %q", cfg.Human.Nickname)
	}
	if cfg.Scheduler.Speed != "fast" || cfg.Scheduler.NormalInterval != 10*time.Second {
		t.Fatalf("scheduler overrides not applied: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.BurstProbability != 0.5 {
		t.Fatalf("burst probability = %f", cfg.Scheduler.BurstProbability)
	}
	if cfg.Typing.Enabled {
		t.Fatal("typing override not applied")
	}
	if !cfg.Relay.Enabled || cfg.Relay.URL != "ws://localhost:9000/bridge" {
		t.Fatalf("relay override not applied: %+v", cfg.Relay)
	}
	if !cfg.Store.UseInMemory {
		t.Fatal("store override not applied")
	}
}

func TestLoadHostPortAddr(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:3000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:3000" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SIM_NORMAL_INTERVAL", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestAIConfigEnabled(t *testing.T) {
	cases := []struct {
		cfg  AIConfig
		want bool
	}{
		{AIConfig{Model: "m", APIKey: "k"}, true},
		{AIConfig{Model: "m", AccessKey: "a", SecretKey: "s"}, true},
		{AIConfig{Model: "m", AccessKey: "a"}, false},
		{AIConfig{APIKey: "k"}, false},
		{AIConfig{}, false},
	}
	for i, tc := range cases {
		if got := tc.cfg.Enabled(); got != tc.want {
			t.Errorf("case %d: Enabled() = %v, want %v", i, got, tc.want)
		}
	}
}
