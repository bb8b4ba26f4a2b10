package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	DatabaseURL string

	AIProvider           string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIChatModel      string
	OpenAIEmbeddingModel string
	Temperature          float64

	EmbeddingDim   int
	ShortTermLimit int
	MemoryTopK     int

	EmbedMaxAttempts int
	EmbedTimeout     time.Duration
	EmbedBackoff     time.Duration

	GenerateMaxAttempts int
	GenerateTimeout     time.Duration
	GenerateBackoff     time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "aurora"),
		AllowAnyOrigin:   false,
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		AIProvider:       envOrDefault("AI_PROVIDER", "auto"),
		OpenAIAPIKey:     trimmedEnv("OPENAI_API_KEY"),
		OpenAIBaseURL:    trimmedEnv("OPENAI_BASE_URL"),
		OpenAIChatModel:  envOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		// A small embedding model keeps the memory index cheap; the dimension
		// below must match whatever the vector store was initialized with.
		OpenAIEmbeddingModel:     envOrDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		Temperature:              0.7,
		EmbeddingDim:             768,
		ShortTermLimit:           20,
		MemoryTopK:               3,
		EmbedMaxAttempts:         3,
		EmbedTimeout:             20 * time.Second,
		EmbedBackoff:             1 * time.Second,
		GenerateMaxAttempts:      3,
		GenerateTimeout:          20 * time.Second,
		GenerateBackoff:          1500 * time.Millisecond,
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.Temperature, err = floatFromEnv("AI_TEMPERATURE", cfg.Temperature)
	if err != nil {
		return Config{}, err
	}
	cfg.EmbeddingDim, err = intFromEnv("MEMORY_EMBEDDING_DIM", cfg.EmbeddingDim)
	if err != nil {
		return Config{}, err
	}
	cfg.ShortTermLimit, err = intFromEnv("CHAT_SHORT_TERM_LIMIT", cfg.ShortTermLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryTopK, err = intFromEnv("MEMORY_TOP_K", cfg.MemoryTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.EmbedMaxAttempts, err = intFromEnv("EMBED_MAX_ATTEMPTS", cfg.EmbedMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.EmbedTimeout, err = durationFromEnv("EMBED_TIMEOUT", cfg.EmbedTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.EmbedBackoff, err = durationFromEnv("EMBED_BACKOFF", cfg.EmbedBackoff)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerateMaxAttempts, err = intFromEnv("GENERATE_MAX_ATTEMPTS", cfg.GenerateMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerateTimeout, err = durationFromEnv("GENERATE_TIMEOUT", cfg.GenerateTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerateBackoff, err = durationFromEnv("GENERATE_BACKOFF", cfg.GenerateBackoff)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.EmbeddingDim <= 0 {
		return Config{}, fmt.Errorf("MEMORY_EMBEDDING_DIM must be positive")
	}
	if cfg.ShortTermLimit <= 0 {
		return Config{}, fmt.Errorf("CHAT_SHORT_TERM_LIMIT must be positive")
	}
	if cfg.MemoryTopK <= 0 {
		return Config{}, fmt.Errorf("MEMORY_TOP_K must be positive")
	}
	if cfg.EmbedMaxAttempts <= 0 || cfg.GenerateMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("retry attempts must be positive")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return Config{}, fmt.Errorf("AI_TEMPERATURE must be within [0, 2]")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
