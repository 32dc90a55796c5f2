package config

import (
	"os"
	"path/filepath"
)

const appName = "skill-manager"

var (
	homeDir string
)

func init() {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		homeDir = "~"
	}
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" && filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(homeDir, fallback)
}

// ConfigDir returns the skill-manager config directory path
// $XDG_CONFIG_HOME/skill-manager/ (~/.config/skill-manager/)
func ConfigDir() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName)
}

// ConfigFilePath returns the optional tool settings file path
// ~/.config/skill-manager/config.toml
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultCacheDir returns the default cache directory path
// $XDG_CACHE_HOME/skill-manager/ (~/.cache/skill-manager/)
func DefaultCacheDir() string {
	return filepath.Join(xdgDir("XDG_CACHE_HOME", ".cache"), appName)
}

// DefaultClaudeDir returns the .claude directory path (for Claude settings)
func DefaultClaudeDir() string {
	return filepath.Join(homeDir, ".claude")
}

// MarketplacesDir returns where marketplace repositories are cloned
// <cache>/marketplaces/
func (c *Config) MarketplacesDir() string {
	return filepath.Join(c.CacheDir, "marketplaces")
}

// PluginReposDir returns where external plugin repositories are cloned
// <cache>/plugin-repos/
func (c *Config) PluginReposDir() string {
	return filepath.Join(c.CacheDir, "plugin-repos")
}

// PluginsDir returns where plugin content is extracted per commit
// <cache>/plugins/
func (c *Config) PluginsDir() string {
	return filepath.Join(c.CacheDir, "plugins")
}

// ClaudePluginsDir returns ~/.claude/plugins/
func (c *Config) ClaudePluginsDir() string {
	return filepath.Join(c.ClaudeDir, "plugins")
}

// InstalledPluginsPath returns the install registry file path
// ~/.claude/plugins/installed_plugins.json
func (c *Config) InstalledPluginsPath() string {
	return filepath.Join(c.ClaudePluginsDir(), "installed_plugins.json")
}

// KnownMarketplacesPath returns the marketplace registry file path
// ~/.claude/plugins/known_marketplaces.json
func (c *Config) KnownMarketplacesPath() string {
	return filepath.Join(c.ClaudePluginsDir(), "known_marketplaces.json")
}

// SettingsPath returns the global Claude settings.json file path
func (c *Config) SettingsPath() string {
	return filepath.Join(c.ClaudeDir, "settings.json")
}
