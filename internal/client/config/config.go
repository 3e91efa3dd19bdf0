// Package config holds the authctl client settings: defaults, then an
// optional JSON file, then GOPHAUTH_* environment variables. Command-line
// flags are applied last by the cobra commands.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings for authctl.
type Config struct {
	ServerURL string        `env:"GOPHAUTH_SERVER_URL"`
	Timeout   time.Duration `env:"GOPHAUTH_CLIENT_TIMEOUT"`
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Timeout = 10 * time.Second
}

// LoadConfig applies defaults, the JSON file at path (skipped when empty)
// and the environment, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
