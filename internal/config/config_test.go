package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND_API_URL", "https://api.example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BackendURL)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/portal.db", cfg.SessionDBPath)
	assert.Equal(t, time.Duration(0), cfg.RequestTimeout)
	assert.Equal(t, 5, cfg.LoginRateLimitRPS)
	assert.Equal(t, 4, cfg.TreeConcurrency)
	assert.Equal(t, 168*time.Hour, cfg.SessionIdle)
	assert.False(t, cfg.SecureCookies)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=9090\nTREE_CONCURRENCY=2\n"), 0o600))

	t.Setenv("PORT", "7070")
	// registered so the file-loaded value is cleaned up after the test
	t.Setenv("TREE_CONCURRENCY", "")
	os.Unsetenv("TREE_CONCURRENCY")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 2, cfg.TreeConcurrency)
}

func TestValidateBackend(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"absolute URL", "https://api.example.com/v1", false},
		{"empty", "", true},
		{"relative", "/api", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Config{BackendURL: tt.url}.ValidateBackend()
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestValidatePortal(t *testing.T) {
	base := Config{BackendURL: "http://localhost:5000", PortalSecret: "0123456789abcdef", Port: 8080, SessionIdle: time.Hour}
	assert.NoError(t, base.ValidatePortal())

	short := base
	short.PortalSecret = "short"
	assert.Error(t, short.ValidatePortal())

	badPort := base
	badPort.Port = 70000
	assert.Error(t, badPort.ValidatePortal())

	noIdle := base
	noIdle.SessionIdle = 0
	assert.Error(t, noIdle.ValidatePortal())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "warning"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "nonsense"}.SlogLevel())
}
