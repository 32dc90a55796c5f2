// Package config loads skill-manager's own settings (not the plugin
// manifests) from defaults, an optional config file, .env files and
// SKILL_MANAGER_* environment variables.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/DanSnow/skill-manager/internal/errors"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SKILL_MANAGER"

// Config represents the effective tool configuration
type Config struct {
	CacheDir  string    `mapstructure:"cache_dir" json:"cacheDir" yaml:"cacheDir"`
	ClaudeDir string    `mapstructure:"claude_dir" json:"claudeDir" yaml:"claudeDir"`
	Locale    string    `mapstructure:"locale" json:"locale" yaml:"locale"` // "auto" or ISO format (e.g., "ko-KR", "en-US")
	Log       LogConfig `mapstructure:"log" json:"log" yaml:"log"`

	// ConfigFile is the file the values were read from, empty when none.
	ConfigFile string `mapstructure:"-" json:"configFile,omitempty" yaml:"configFile,omitempty"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// Options controls where Load looks for values.
type Options struct {
	// ConfigFile overrides the default config file location.
	ConfigFile string
	// EnvFiles are loaded into the process environment before binding.
	EnvFiles []string
}

// DefaultOptions reads ~/.config/skill-manager/config.toml and .env files
// from the working directory.
func DefaultOptions() Options {
	return Options{EnvFiles: []string{".env", ".env.local"}}
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		CacheDir:  DefaultCacheDir(),
		ClaudeDir: DefaultClaudeDir(),
		Locale:    "auto", // default: auto-detect system locale
		Log: LogConfig{
			Level:  "warn",
			Format: "auto",
		},
	}
}

// Load resolves the configuration. A missing config file is not an error; a
// malformed one is.
func Load(opts Options) (*Config, error) {
	for _, f := range opts.EnvFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	defaults := NewConfig()
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("claude_dir", defaults.ClaudeDir)
	v.SetDefault("locale", defaults.Locale)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path := opts.ConfigFile
	explicit := path != ""
	if !explicit {
		path = ConfigFilePath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if explicit || !isNotExist(err) {
			return nil, errors.WrapConfig(path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapConfig(path, err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigFile); err != nil {
		cfg.ConfigFile = ""
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = defaults.CacheDir
	}
	if cfg.ClaudeDir == "" {
		cfg.ClaudeDir = defaults.ClaudeDir
	}
	if cfg.Locale == "" {
		cfg.Locale = "auto"
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return os.IsNotExist(err) || errors.Is(err, os.ErrNotExist)
}
