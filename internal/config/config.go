package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MaxContextLength caps the conversation window sent with each query.
const MaxContextLength = 50

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`

	LogFile         string `env:"LOG_FILE"`
	LogMaxSizeMB    int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups   int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays   int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
	LogFileCompress bool   `env:"LOG_FILE_COMPRESS" envDefault:"false"`

	RedisURL  string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	WorldFile string `env:"WORLD_FILE"`

	LLMProvider     string  `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey    string  `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string  `env:"ANTHROPIC_API_KEY"`
	ModelName       string  `env:"MODEL_NAME" envDefault:"gpt-3.5-turbo"`
	Temperature     float64 `env:"TEMPERATURE" envDefault:"0.1"`

	// WorldSystem is the data layout of actor sheets (pf1, dnd5e, ...).
	WorldSystem string `env:"WORLD_SYSTEM" envDefault:"pf1"`
	// GameSystem selects the prompt preamble. Empty means derive it from WorldSystem.
	GameSystem    string `env:"GAME_SYSTEM"`
	GamePrompt    string `env:"GAME_PROMPT"`
	ContextLength int    `env:"CONTEXT_LENGTH" envDefault:"0"`

	RetryMaxAttempts uint          `env:"RETRY_MAX_ATTEMPTS" envDefault:"5"`
	RetryBackoff     time.Duration `env:"RETRY_BACKOFF" envDefault:"5s"`
	RecentItemTTL    time.Duration `env:"RECENT_ITEM_TTL" envDefault:"5m"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and provider credentials.
func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	if c.ContextLength < 0 || c.ContextLength > MaxContextLength {
		return fmt.Errorf("CONTEXT_LENGTH must be between 0 and %d, got %d", MaxContextLength, c.ContextLength)
	}
	switch strings.ToLower(c.LLMProvider) {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when using openai provider")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when using anthropic provider")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.RetryMaxAttempts == 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// LogLevel returns the parsed LOG_LEVEL.
func (c *Config) LogLevel() slog.Level {
	return parseLogLevel(c.LogLevelRaw)
}

// PromptSystem is the game system used to pick the prompt preamble.
func (c *Config) PromptSystem() string {
	if c.GameSystem != "" {
		return c.GameSystem
	}
	return c.WorldSystem
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
