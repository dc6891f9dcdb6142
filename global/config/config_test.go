package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caiflower/webserver/global/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigPath(t *testing.T, dir string) {
	old := env.ConfigPath
	env.SetDefaultConfigPath(dir)
	t.Cleanup(func() { env.SetDefaultConfigPath(old) })
}

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	withConfigPath(t, dir)
	t.Setenv(env.ConfigPathEnv, "")
	t.Setenv(EnvWwwRoot, "")
	t.Setenv(EnvAddr, "")

	content := `
server:
  name: static
  wwwRoot: /srv/www
  cacheCapacity: 16
  readTimeout: 5s
  confineToRoot: false
logger:
  level: DEBUG
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0o644))

	defaultConfig := DefaultConfig{}
	require.NoError(t, LoadDefaultConfig(&defaultConfig))

	cfg := defaultConfig.ServerConfig
	assert.Equal(t, "static", cfg.Name)
	assert.Equal(t, "/srv/www", cfg.WwwRoot)
	assert.Equal(t, "127.0.0.1:7878", cfg.Addr)
	assert.Equal(t, 16, cfg.CacheSize())
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.False(t, cfg.Confined())
	assert.Equal(t, "DEBUG", defaultConfig.LoggerConfig.Level)
	assert.Equal(t, 2, defaultConfig.LoggerConfig.AppenderNum)
}

func TestLoadDefaultConfigMissingFile(t *testing.T) {
	withConfigPath(t, t.TempDir())
	t.Setenv(env.ConfigPathEnv, "")
	t.Setenv(EnvWwwRoot, "")
	t.Setenv(EnvAddr, "")

	defaultConfig := DefaultConfig{}
	require.NoError(t, LoadDefaultConfig(&defaultConfig))
	assert.Equal(t, "files/html", defaultConfig.ServerConfig.WwwRoot)
	assert.Equal(t, "INFO", defaultConfig.LoggerConfig.Level)
}

func TestLoadDefaultConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	withConfigPath(t, "unused")
	t.Setenv(env.ConfigPathEnv, dir)
	t.Setenv(EnvWwwRoot, "/var/www")
	t.Setenv(EnvAddr, "0.0.0.0:8080")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("server:\n  wwwRoot: /srv/www\n"), 0o644))

	defaultConfig := DefaultConfig{}
	require.NoError(t, LoadDefaultConfig(&defaultConfig))
	assert.Equal(t, dir, env.ConfigPath)
	assert.Equal(t, "/var/www", defaultConfig.ServerConfig.WwwRoot)
	assert.Equal(t, "0.0.0.0:8080", defaultConfig.ServerConfig.Addr)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(name, []byte("WEBSERVER_TEST_KEY=from-dotenv\n"), 0o644))
	t.Setenv("WEBSERVER_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("WEBSERVER_TEST_KEY"))

	require.NoError(t, loadEnvFile(name))
	assert.Equal(t, "from-dotenv", os.Getenv("WEBSERVER_TEST_KEY"))
	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
}
