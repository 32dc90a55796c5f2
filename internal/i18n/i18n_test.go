package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en-us.json": {Data: []byte(`{
  "Greeting": "hello {{.Name}}",
  "PluginCount": {"one": "{{.Count}} plugin", "other": "{{.Count}} plugins"}
}`)},
		"locales/ko-kr.json": {Data: []byte(`{"Greeting": "안녕 {{.Name}}"}`)},
	}
	require.NoError(t, Init(fsys, "en-US"))

	assert.Equal(t, "hello dev", T("Greeting", map[string]any{"Name": "dev"}))
	assert.Equal(t, "1 plugin", T("PluginCount", map[string]any{"Count": 1}, 1))
	assert.Equal(t, "3 plugins", T("PluginCount", map[string]any{"Count": 3}, 3))
	assert.Equal(t, "Missing", T("Missing", nil))

	SetLocale("ko-KR")
	assert.Equal(t, "안녕 dev", T("Greeting", map[string]any{"Name": "dev"}))
	// falls back to the default language
	assert.Equal(t, "2 plugins", T("PluginCount", map[string]any{"Count": 2}, 2))
	assert.Equal(t, "Missing", T("Missing", nil))

	SetLocale("fr-FR")
	assert.Equal(t, "hello dev", T("Greeting", map[string]any{"Name": "dev"}))
}

func TestResolveLocaleExplicit(t *testing.T) {
	assert.Equal(t, "ko-KR", ResolveLocale("ko-KR"))
}
