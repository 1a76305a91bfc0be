package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "memory", c.Storage.Driver)
	require.Equal(t, 5, c.Flood.Threshold)
	require.Equal(t, 5*time.Minute, c.Flood.Window)
	require.Equal(t, c.JWT.Issuer, c.App.BaseURL)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
jwt:
  issuer: https://auth.example.org
  legacy_sub_clients: [legacy-a]
flood:
  window: 10m
oauth:
  access_ttl: 30m
`), 0o600))

	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("JWT_LEGACY_SUB_CLIENTS", "a, b ,")
	t.Setenv("FLOOD_THRESHOLD", "3")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", c.Server.Addr)
	require.Equal(t, "https://auth.example.org", c.JWT.Issuer)
	require.Equal(t, []string{"a", "b"}, c.JWT.LegacySubClients)
	require.Equal(t, 10*time.Minute, c.Flood.Window)
	require.Equal(t, 3, c.Flood.Threshold)
	require.Equal(t, 30*time.Minute, c.OAuth.AccessTTL)
	// sin tocar: default
	require.Equal(t, 10*time.Minute, c.OAuth.CodeTTL)
}

func TestValidate(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	c.Storage.Driver = "postgres"
	require.ErrorContains(t, c.Validate(), "storage.dsn")

	c = Default()
	c.Flood.Store = "redis"
	require.ErrorContains(t, c.Validate(), "cache.redis.addr")

	c = Default()
	c.App.Env = "prod"
	err := c.Validate()
	require.ErrorContains(t, err, "SESSION_SECRET")
	require.ErrorContains(t, err, "JWT_CURRENT_KEY_PATH")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}
