package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the companion service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	// Conversation memory.
	MemoryTTL           time.Duration
	MemorySweepInterval time.Duration
	MaxStoredTurns      int
	RecentWindow        int

	// Snippet selection.
	CatalogPath          string
	MaxSnippets          int
	MinQualityScore      int
	MinPreferenceRating  int
	RepetitionResetRatio float64

	// Prompt assembly.
	AssistantName string
	TokenBudget   int

	// Generation backend.
	GeneratorMode     string
	GeneratorHTTPURL  string
	GenerationTimeout time.Duration

	// Turn archive.
	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "lune"),
		AllowAnyOrigin:   false,
		ShutdownTimeout:  15 * time.Second,

		MemoryTTL:           4 * time.Hour,
		MemorySweepInterval: 30 * time.Minute,
		MaxStoredTurns:      12,
		RecentWindow:        4,

		CatalogPath:          stringsTrimSpace("CATALOG_PATH"),
		MaxSnippets:          3,
		MinQualityScore:      4,
		MinPreferenceRating:  4,
		RepetitionResetRatio: 0.8,

		AssistantName: envOrDefault("APP_ASSISTANT_NAME", "Luna"),
		TokenBudget:   1500,

		GeneratorMode:     envOrDefault("GENERATOR_MODE", "auto"),
		GeneratorHTTPURL:  stringsTrimSpace("GENERATOR_HTTP_URL"),
		GenerationTimeout: 20 * time.Second,

		DatabaseURL: stringsTrimSpace("DATABASE_URL"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryTTL, err = durationFromEnv("MEMORY_TTL", cfg.MemoryTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.MemorySweepInterval, err = durationFromEnv("MEMORY_SWEEP_INTERVAL", cfg.MemorySweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerationTimeout, err = durationFromEnv("GENERATION_TIMEOUT", cfg.GenerationTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxStoredTurns, err = intFromEnv("MEMORY_MAX_TURNS", cfg.MaxStoredTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.RecentWindow, err = intFromEnv("MEMORY_RECENT_WINDOW", cfg.RecentWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxSnippets, err = intFromEnv("SELECTOR_MAX_SNIPPETS", cfg.MaxSnippets)
	if err != nil {
		return Config{}, err
	}
	cfg.MinQualityScore, err = intFromEnv("SELECTOR_MIN_QUALITY", cfg.MinQualityScore)
	if err != nil {
		return Config{}, err
	}
	cfg.MinPreferenceRating, err = intFromEnv("SELECTOR_MIN_PREFERENCE_RATING", cfg.MinPreferenceRating)
	if err != nil {
		return Config{}, err
	}
	cfg.RepetitionResetRatio, err = floatFromEnv("SELECTOR_REPETITION_RESET_RATIO", cfg.RepetitionResetRatio)
	if err != nil {
		return Config{}, err
	}
	cfg.TokenBudget, err = intFromEnv("PROMPT_TOKEN_BUDGET", cfg.TokenBudget)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.MemoryTTL < time.Minute {
		return Config{}, fmt.Errorf("MEMORY_TTL must be at least 1m")
	}
	if cfg.MemorySweepInterval < time.Second {
		return Config{}, fmt.Errorf("MEMORY_SWEEP_INTERVAL must be at least 1s")
	}
	if cfg.MaxStoredTurns <= 0 {
		return Config{}, fmt.Errorf("MEMORY_MAX_TURNS must be positive")
	}
	if cfg.RecentWindow <= 0 || cfg.RecentWindow > cfg.MaxStoredTurns {
		return Config{}, fmt.Errorf("MEMORY_RECENT_WINDOW must be in 1..MEMORY_MAX_TURNS")
	}
	if cfg.MaxSnippets <= 0 {
		return Config{}, fmt.Errorf("SELECTOR_MAX_SNIPPETS must be positive")
	}
	if cfg.RepetitionResetRatio <= 0 || cfg.RepetitionResetRatio > 1 {
		return Config{}, fmt.Errorf("SELECTOR_REPETITION_RESET_RATIO must be in (0, 1]")
	}
	if cfg.TokenBudget <= 0 {
		return Config{}, fmt.Errorf("PROMPT_TOKEN_BUDGET must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
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
	v := stringsTrimSpace(key)
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
	v := stringsTrimSpace(key)
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
	v := strings.ToLower(stringsTrimSpace(key))
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
