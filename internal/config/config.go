package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every tunable of the service.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Scheduler SchedulerConfig
	Typing    TypingConfig
	Relay     RelayConfig
	Store     StoreConfig
	Human     HumanConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	scheduler, err := loadSchedulerConfig()
	if err != nil {
		return nil, err
	}

	typing, err := loadTypingConfig()
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Scheduler: scheduler,
		Typing:    typing,
		Relay:     relay,
		Store:     store,
		Human:     HumanConfig{Nickname: getEnvOrDefault("HUMAN_NICK", "you")},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// HumanConfig identifies the human participant.
type HumanConfig struct {
	Nickname string
}

// AIConfig describes the generation backend.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a chat model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("generation credentials missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SchedulerConfig tunes the autonomous simulation loop. Burst probability,
// burst delay window, and the staleness reset interval are deliberately
// configuration rather than constants.
type SchedulerConfig struct {
	Speed            string
	FastInterval     time.Duration
	NormalInterval   time.Duration
	SlowInterval     time.Duration
	BurstWindow      time.Duration
	BurstProbability float64
	BurstDelayMin    time.Duration
	BurstDelayMax    time.Duration
	StalenessMin     time.Duration
	StalenessMax     time.Duration
	TrimLimit        int
	NoticeInterval   time.Duration
}

func loadSchedulerConfig() (SchedulerConfig, error) {
	cfg := SchedulerConfig{
		Speed:            getEnvOrDefault("SIM_SPEED", "normal"),
		FastInterval:     8 * time.Second,
		NormalInterval:   20 * time.Second,
		SlowInterval:     45 * time.Second,
		BurstWindow:      30 * time.Second,
		BurstProbability: 0.15,
		BurstDelayMin:    2 * time.Second,
		BurstDelayMax:    7 * time.Second,
		StalenessMin:     2 * time.Hour,
		StalenessMax:     3 * time.Hour,
		TrimLimit:        1000,
		NoticeInterval:   5 * time.Minute,
	}

	if v, err := parseOptionalDurationEnv("SIM_FAST_INTERVAL"); err != nil {
		return SchedulerConfig{}, err
	} else if v != nil {
		cfg.FastInterval = *v
	}
	if v, err := parseOptionalDurationEnv("SIM_NORMAL_INTERVAL"); err != nil {
		return SchedulerConfig{}, err
	} else if v != nil {
		cfg.NormalInterval = *v
	}
	if v, err := parseOptionalDurationEnv("SIM_SLOW_INTERVAL"); err != nil {
		return SchedulerConfig{}, err
	} else if v != nil {
		cfg.SlowInterval = *v
	}
	if v, err := parseOptionalFloatEnv("SIM_BURST_PROBABILITY"); err != nil {
		return SchedulerConfig{}, err
	} else if v != nil {
		cfg.BurstProbability = *v
	}
	if v, err := parseOptionalIntEnv("SIM_TRIM_LIMIT"); err != nil {
		return SchedulerConfig{}, err
	} else if v != nil && *v > 0 {
		cfg.TrimLimit = *v
	}

	return cfg, nil
}

// TypingConfig tunes the typing-pace simulator.
type TypingConfig struct {
	Enabled   bool
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func loadTypingConfig() (TypingConfig, error) {
	enabled, err := parseBoolEnv("TYPING_ENABLED", true)
	if err != nil {
		return TypingConfig{}, err
	}

	cfg := TypingConfig{
		Enabled:   enabled,
		BaseDelay: 800 * time.Millisecond,
		MaxDelay:  6 * time.Second,
	}

	if v, err := parseOptionalDurationEnv("TYPING_BASE_DELAY"); err != nil {
		return TypingConfig{}, err
	} else if v != nil {
		cfg.BaseDelay = *v
	}
	if v, err := parseOptionalDurationEnv("TYPING_MAX_DELAY"); err != nil {
		return TypingConfig{}, err
	} else if v != nil {
		cfg.MaxDelay = *v
	}

	return cfg, nil
}

// RelayConfig describes the optional IRC bridge proxy.
type RelayConfig struct {
	Enabled bool
	URL     string
	Nick    string
}

func loadRelayConfig() (RelayConfig, error) {
	url := strings.TrimSpace(os.Getenv("RELAY_URL"))
	return RelayConfig{
		Enabled: url != "",
		URL:     url,
		Nick:    getEnvOrDefault("RELAY_NICK", "mirage-bridge"),
	}, nil
}

// StoreConfig describes message-log persistence.
type StoreConfig struct {
	Path        string
	UseInMemory bool
}

func loadStoreConfig() (StoreConfig, error) {
	inMemory, err := parseBoolEnv("STORE_IN_MEMORY", false)
	if err != nil {
		return StoreConfig{}, err
	}
	return StoreConfig{
		Path:        getEnvOrDefault("STORE_PATH", "./data/logs"),
		UseInMemory: inMemory,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
