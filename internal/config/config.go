package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	APIKeyEnv = "GOOGLE_GEMINI_API_KEY"

	defaultModel   = "gemini-2.5-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 30 * time.Second
	defaultPort    = "8080"
)

// Config is read once at startup. The API key is deliberately absent: it is
// resolved per request so a missing key surfaces as a request failure.
type Config struct {
	// SSM prefix; empty disables Parameter Store lookups.
	ParamPrefix string

	GeminiModel   string
	GeminiBaseURL string
	GeminiTimeout time.Duration

	PersonaFile string

	Port     string
	LogLevel slog.Level
}

// Load reads .env when present, then the process environment. Values
// already set in the environment win over .env entries.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (Config, error) {
	timeout, err := envDuration("GEMINI_TIMEOUT", defaultTimeout)
	if err != nil {
		return Config{}, err
	}
	level, err := envLevel("LOG_LEVEL", slog.LevelInfo)
	if err != nil {
		return Config{}, err
	}

	return Config{
		ParamPrefix:   strings.TrimRight(envOr("PARAM_PREFIX", ""), "/"),
		GeminiModel:   envOr("GEMINI_MODEL", defaultModel),
		GeminiBaseURL: envOr("GEMINI_BASE_URL", defaultBaseURL),
		GeminiTimeout: timeout,
		PersonaFile:   envOr("PERSONA_FILE", ""),
		Port:          envOr("PORT", defaultPort),
		LogLevel:      level,
	}, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := envOr(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return d, nil
}

func envLevel(key string, def slog.Level) (slog.Level, error) {
	v := envOr(key, "")
	if v == "" {
		return def, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return level, nil
}
