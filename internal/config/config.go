// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server binary needs.
type Config struct {
	// Port is the HTTP listen port.
	Port int `env:"PORT" envDefault:"8080"`

	// DBPath is the SQLite database file path.
	DBPath string `env:"DB_PATH" envDefault:"./data/pools.db"`

	// TokenSecret signs API tokens. Required outside development.
	TokenSecret string `env:"TOKEN_SECRET" envDefault:""`

	// TokenTTL is how long issued API tokens stay valid.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// OperatorSecretHash is the bcrypt hash of the operator secret the
	// token endpoint verifies against. OperatorSecret is the plaintext
	// alternative for development; it is hashed at startup.
	OperatorSecretHash string `env:"OPERATOR_SECRET_HASH" envDefault:""`
	OperatorSecret     string `env:"OPERATOR_SECRET" envDefault:""`

	// LockWait bounds how long a mutation waits for a pool's slot
	// before returning a conflict.
	LockWait time.Duration `env:"LOCK_WAIT" envDefault:"2s"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
