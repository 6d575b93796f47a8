// Package config loads the server configuration from the environment.
//
// A .env file in the working directory is read first (if there is one), so
// local development can keep JWT_SECRET and the legacy admin credentials out
// of the shell profile. Real environment variables always win over .env values.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinSecretLength is the shortest JWT signing secret the server accepts.
const MinSecretLength = 16

// Config contains server configuration parameters.
type Config struct {
	Port     int    `env:"PORT" envDefault:"3012"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
	DBPath   string `env:"DB_PATH" envDefault:"data/notes.db"`

	Session Session
	Admin   Admin

	// UserCacheTTL controls the in-process cache in front of user lookups.
	// Zero disables it.
	UserCacheTTL time.Duration `env:"USER_CACHE_TTL" envDefault:"5m"`
}

// Session contains the signing secret and lifetime of session tokens.
type Session struct {
	Secret string        `env:"JWT_SECRET,required,notEmpty"`
	TTL    time.Duration `env:"SESSION_TTL" envDefault:"4320h"` // 180 days
}

// Admin holds the legacy single-user credentials. Both fields must be set
// for the admin login to be enabled.
type Admin struct {
	Username     string `env:"AUTH_USERNAME"`
	PasswordHash string `env:"AUTH_PASSWORD_HASH"`
}

// Enabled reports whether the legacy admin login is configured.
func (a Admin) Enabled() bool {
	return a.Username != "" && a.PasswordHash != ""
}

// IsDevelopment reports whether the server runs on a developer machine.
// Session cookies are only marked Secure outside development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads .env (optional) and parses the environment into a Config.
func Load() (*Config, error) {
	// A missing .env is normal in production; only the environment matters then.
	_ = godotenv.Load()

	return parse()
}

func parse() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Session.Secret) < MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinSecretLength)
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	if c.UserCacheTTL < 0 {
		return errors.New("USER_CACHE_TTL must not be negative")
	}
	return nil
}
