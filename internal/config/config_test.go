package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.AIProvider != "auto" {
		t.Fatalf("AIProvider = %q, want %q", cfg.AIProvider, "auto")
	}
	if cfg.ShortTermLimit != 20 {
		t.Fatalf("ShortTermLimit = %d, want 20", cfg.ShortTermLimit)
	}
	if cfg.MemoryTopK != 3 {
		t.Fatalf("MemoryTopK = %d, want 3", cfg.MemoryTopK)
	}
	if cfg.EmbedBackoff != time.Second {
		t.Fatalf("EmbedBackoff = %v, want 1s", cfg.EmbedBackoff)
	}
	if cfg.GenerateBackoff != 1500*time.Millisecond {
		t.Fatalf("GenerateBackoff = %v, want 1.5s", cfg.GenerateBackoff)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty default", cfg.DatabaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("MEMORY_TOP_K", "5")
	t.Setenv("GENERATE_TIMEOUT", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9191")
	}
	if cfg.MemoryTopK != 5 {
		t.Fatalf("MemoryTopK = %d, want 5", cfg.MemoryTopK)
	}
	if cfg.GenerateTimeout != 10*time.Second {
		t.Fatalf("GenerateTimeout = %v, want 10s", cfg.GenerateTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("CHAT_SHORT_TERM_LIMIT", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for zero short term limit")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"DATABASE_URL",
		"AI_PROVIDER",
		"AI_TEMPERATURE",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_CHAT_MODEL",
		"OPENAI_EMBEDDING_MODEL",
		"MEMORY_EMBEDDING_DIM",
		"MEMORY_TOP_K",
		"CHAT_SHORT_TERM_LIMIT",
		"EMBED_MAX_ATTEMPTS",
		"EMBED_TIMEOUT",
		"EMBED_BACKOFF",
		"GENERATE_MAX_ATTEMPTS",
		"GENERATE_TIMEOUT",
		"GENERATE_BACKOFF",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
