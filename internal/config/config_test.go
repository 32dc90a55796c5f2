package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanSnow/skill-manager/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultCacheDir(), cfg.CacheDir)
	assert.Equal(t, DefaultClaudeDir(), cfg.ClaudeDir)
	assert.Equal(t, "auto", cfg.Locale)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache_dir = "/tmp/sm-cache"
locale = "ko-KR"

[log]
level = "debug"
`), 0644))

	t.Setenv("SKILL_MANAGER_CLAUDE_DIR", "/tmp/claude-home")
	t.Setenv("SKILL_MANAGER_LOG_FORMAT", "json")

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sm-cache", cfg.CacheDir)
	assert.Equal(t, "/tmp/claude-home", cfg.ClaudeDir)
	assert.Equal(t, "ko-KR", cfg.Locale)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, path, cfg.ConfigFile)

	assert.Equal(t, "/tmp/claude-home/plugins/installed_plugins.json", cfg.InstalledPluginsPath())
	assert.Equal(t, "/tmp/claude-home/plugins/known_marketplaces.json", cfg.KnownMarketplacesPath())
	assert.Equal(t, "/tmp/claude-home/settings.json", cfg.SettingsPath())
	assert.Equal(t, "/tmp/sm-cache/marketplaces", cfg.MarketplacesDir())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.toml")})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfig)
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_CACHE_HOME", "relative/ignored")

	assert.Equal(t, "/xdg/config/skill-manager", ConfigDir())
	assert.Equal(t, filepath.Join(homeDir, ".cache", "skill-manager"), DefaultCacheDir())
}
