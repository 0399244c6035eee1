package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Vote policies: "single" replaces a voter's earlier vote on the same
// question, "multi" lets every submission count as a fresh vote.
const (
	VotePolicySingle = "single"
	VotePolicyMulti  = "multi"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" default:"1h"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	VotePolicy        string `env:"VOTE_POLICY" default:"single"`
	MaxClientsPerRoom int    `env:"MAX_CLIENTS_PER_ROOM" default:"50"`

	// Vote rate limiting (only enforced when REDIS_URL is set).
	VoteRateCapacity  int `env:"VOTE_RATE_CAPACITY" default:"10"`
	VoteRatePerMinute int `env:"VOTE_RATE_PER_MINUTE" default:"60"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}

	if cfg.VotePolicy != VotePolicySingle && cfg.VotePolicy != VotePolicyMulti {
		return fmt.Errorf("VOTE_POLICY must be %q or %q, got %q", VotePolicySingle, VotePolicyMulti, cfg.VotePolicy)
	}

	if cfg.MaxClientsPerRoom < 1 {
		return fmt.Errorf("MAX_CLIENTS_PER_ROOM must be positive")
	}
	if cfg.VoteRateCapacity < 1 || cfg.VoteRatePerMinute < 1 {
		return fmt.Errorf("vote rate limit settings must be positive")
	}

	return nil
}
