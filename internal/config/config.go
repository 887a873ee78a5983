package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process configuration loaded from the environment.
type Config struct {
	Addr        string        `env:"OPSBOARD_ADDR" envDefault:":8080"`
	DatabaseDSN string        `env:"OPSBOARD_PG_DSN"`
	AuthSecret  string        `env:"OPSBOARD_AUTH_SECRET"`
	TokenTTL    time.Duration `env:"OPSBOARD_TOKEN_TTL" envDefault:"48h"`
	SeedDemo    bool          `env:"OPSBOARD_SEED_DEMO" envDefault:"false"`
}

// Load parses configuration from environment variables.
//
// The auth secret is mandatory: a missing or blank value is a startup
// failure, never a silent insecure default.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	if cfg.AuthSecret == "" {
		return Config{}, errors.New("OPSBOARD_AUTH_SECRET is required")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, errors.New("OPSBOARD_TOKEN_TTL must be greater than zero")
	}
	return cfg, nil
}
