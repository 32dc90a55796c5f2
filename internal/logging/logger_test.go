package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerFromConfigJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerFromConfig(&Config{Level: "info", Format: "json", Output: &buf})

	logger.Debug().Msg("hidden")
	logger.Info().Str("marketplace", "official").Msg("resolved")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"marketplace":"official"`)
	assert.Contains(t, out, `"message":"resolved"`)
}

func TestParseLevelFallsBackToWarn(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, parseLevel(""))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("loud"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerFromConfig(&Config{Level: "debug", Format: "json", Output: &buf})

	ctx := WithLogger(context.Background(), &logger)
	ctx = WithPlugin(WithMarketplace(ctx, "official"), "superpowers")
	FromContext(ctx).Info().Msg("installing")

	assert.Contains(t, buf.String(), `"marketplace":"official"`)
	assert.Contains(t, buf.String(), `"plugin":"superpowers"`)
}

func TestFromContextWithoutLogger(t *testing.T) {
	assert.Same(t, Default(), FromContext(context.Background()))
}
