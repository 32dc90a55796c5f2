package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanSnow/skill-manager/internal/errors"
)

func TestEnablePluginKeepsOtherSettings(t *testing.T) {
	doc := "{\n  \"model\": \"opus\",\n  \"enabledPlugins\": {\n    \"old@m\": false\n  },\n  \"hooks\": {\"x\": [1]}\n}\n"

	out, changed, err := EnablePlugin([]byte(doc), "p@m")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t,
		"{\n  \"model\": \"opus\",\n  \"enabledPlugins\": {\n    \"old@m\": false,\n    \"p@m\": true\n  },\n  \"hooks\": {\"x\": [1]}\n}\n",
		string(out))
	assert.Equal(t, []string{"p@m"}, EnabledPlugins(out))
}

func TestEnablePluginIdempotent(t *testing.T) {
	first, changed, err := EnablePlugin(nil, "p@m")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, IsEnabled(first, "p@m"))

	second, changed, err := EnablePlugin(first, "p@m")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, second)
}

func TestEnablePluginFlipsDisabled(t *testing.T) {
	out, changed, err := EnablePlugin([]byte(`{"enabledPlugins":{"p@m":false}}`), "p@m")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, `{"enabledPlugins":{"p@m":true}}`, string(out))
}

func TestEnablePluginInvalid(t *testing.T) {
	_, _, err := EnablePlugin([]byte(`not json`), "p@m")
	assert.ErrorIs(t, err, errors.ErrFormat)

	_, _, err = EnablePlugin([]byte(`{"enabledPlugins": ["p@m"]}`), "p@m")
	assert.ErrorIs(t, err, errors.ErrFormat)
}
