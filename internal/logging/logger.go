// Package logging provides structured logging for skill-manager using zerolog.
// Console output is used on terminals, JSON otherwise or when LOG_FORMAT=json.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	defaultLogger zerolog.Logger

	// Nop logger for discarding output.
	Nop = zerolog.Nop()
)

func init() {
	defaultLogger = NewLoggerFromConfig(ConfigFromEnv())
}

// Config holds logger configuration options
type Config struct {
	// Level is the minimum log level to output
	Level string

	// Format is the output format (auto, json, console)
	Format string

	// NoColor disables color output in console mode
	NoColor bool

	// Output defaults to os.Stderr
	Output io.Writer
}

// ConfigFromEnv reads LOG_LEVEL, LOG_FORMAT and NO_COLOR.
func ConfigFromEnv() *Config {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
		if os.Getenv("DEBUG") != "" {
			level = "debug"
		}
	}
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "auto"
	}
	return &Config{
		Level:   level,
		Format:  format,
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

// NewLoggerFromConfig creates a new logger from configuration
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = ConfigFromEnv()
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer = out
	switch strings.ToLower(cfg.Format) {
	case "json":
	case "console", "pretty":
		writer = consoleWriter(out, cfg.NoColor)
	default:
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			writer = consoleWriter(out, cfg.NoColor)
		}
	}

	level := parseLevel(cfg.Level)
	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}
}

func parseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.WarnLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.WarnLevel
	}
	return level
}

// Configure replaces the default logger.
func Configure(cfg *Config) {
	defaultLogger = NewLoggerFromConfig(cfg)
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// Warn starts a new warning level log event.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}
