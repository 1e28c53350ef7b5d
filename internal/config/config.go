// Package config loads portal and CLI configuration from the environment.
//
// The only value the backend contract needs is BACKEND_API_URL; the rest are
// knobs for the portal itself. Values come from (highest wins):
//
//  1. real environment variables
//  2. .env.local, then .env in the working directory (both optional)
//  3. the envDefault tags below
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting for cmd/portal and cmd/xeenuxctl.
type Config struct {
	BackendURL     string        `env:"BACKEND_API_URL"`
	Port           int           `env:"PORT" envDefault:"8080"`
	SessionDBPath  string        `env:"SESSION_DB_PATH" envDefault:"data/portal.db"`
	PortalSecret   string        `env:"PORTAL_SECRET"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"0s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`

	// SecureCookies marks the session cookie Secure; set it behind TLS.
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"false"`
	SessionIdle   time.Duration `env:"SESSION_IDLE" envDefault:"168h"`

	LoginRateLimitRPS int `env:"LOGIN_RATE_LIMIT_RPS" envDefault:"5"`
	TreeConcurrency   int `env:"TREE_CONCURRENCY" envDefault:"4"`
}

// Load reads the optional dotenv files and parses the environment.
// Missing dotenv files are not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env.local", ".env"}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}

// loadEnvFiles loads the files that exist. godotenv.Load never overrides a
// variable that is already set, so earlier files win over later ones.
func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: checking %s: %w", f, err)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: loading %v: %w", existing, err)
	}
	return nil
}

// ValidateBackend checks the base URL, the one setting both binaries need.
func (c Config) ValidateBackend() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return errors.New("config: BACKEND_API_URL is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: BACKEND_API_URL %q is not an absolute URL", c.BackendURL)
	}
	return nil
}

// ValidatePortal checks the settings only the portal server uses.
func (c Config) ValidatePortal() error {
	if err := c.ValidateBackend(); err != nil {
		return err
	}
	if len(c.PortalSecret) < 16 {
		return errors.New("config: PORTAL_SECRET must be at least 16 characters")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("config: SESSION_IDLE must be positive, got %s", c.SessionIdle)
	}
	if c.LoginRateLimitRPS < 0 {
		return fmt.Errorf("config: LOGIN_RATE_LIMIT_RPS must be non-negative, got %d", c.LoginRateLimitRPS)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to Info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
