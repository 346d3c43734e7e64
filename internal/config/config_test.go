package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := NewLoader(WithEnvFile("")).Load()
	require.NoError(t, err)

	d := DefaultConfig()
	assert.Equal(t, d.Server.Port, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, d.Database.Path, cfg.Database.Path)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, d.Ingest.Queries, cfg.Ingest.Queries)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
[server]
port = 9090
shutdown_timeout = "3s"

[database]
path = "catalog.db"

[log]
level = "debug"
`)
	t.Setenv("VTUNE_SERVER_PORT", "9191")
	t.Setenv("VTUNE_AUTH_JWT_SECRET", "s3cret")

	l := NewLoader(WithConfigFile(path), WithEnvFile(""))
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "catalog.db", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, path, l.ConfigFileUsed())
	assert.Same(t, cfg, l.Current())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, "test.env", "VTUNE_YOUTUBE_API_KEY=from-dotenv\n")
	t.Setenv("VTUNE_YOUTUBE_API_KEY", "")
	os.Unsetenv("VTUNE_YOUTUBE_API_KEY")
	t.Chdir(dir)

	cfg, err := NewLoader(WithEnvFile(envFile)).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.YouTube.APIKey)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }},
		{"bad provider", func(c *Config) { c.Ingest.Provider = "vimeo" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "chatty" }},
	}

	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
