package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commented = `# team plugins
[marketplaces]
official = "anthropics/repo" # upstream

[plugins]
# pinned for the demo
superpowers = { marketplace = "official", tag = "v4.0.0" } # bump after review
other = { marketplace = "official" }

[extra]
note = "kept"
`

func TestSetPluginReplacesOnlyItsLine(t *testing.T) {
	out, err := SetPlugin([]byte(commented), "superpowers", PluginEntry{Marketplace: "official", Tag: "v4.1.1"})
	require.NoError(t, err)

	want := strings.Replace(commented,
		`superpowers = { marketplace = "official", tag = "v4.0.0" } # bump after review`,
		`superpowers = { marketplace = "official", tag = "v4.1.1" } # bump after review`, 1)
	assert.Equal(t, want, string(out))

	m, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "v4.1.1", m.Plugins["superpowers"].Tag)
}

func TestSetPluginAppendsNewDeclaration(t *testing.T) {
	out, err := SetPlugin([]byte(commented), "new-one", PluginEntry{Marketplace: "official", Commit: "abc123"})
	require.NoError(t, err)

	assert.Contains(t, string(out), "other = { marketplace = \"official\" }\nnew-one = { marketplace = \"official\", commit = \"abc123\" }\n\n[extra]")
	assert.Contains(t, string(out), "# pinned for the demo")

	m, err := Parse(out)
	require.NoError(t, err)
	assert.Len(t, m.Plugins, 3)
}

func TestSetPluginCreatesSection(t *testing.T) {
	out, err := SetPlugin([]byte("[marketplaces]\nofficial = \"a/b\""), "x.y", PluginEntry{Marketplace: "official"})
	require.NoError(t, err)

	assert.Equal(t, "[marketplaces]\nofficial = \"a/b\"\n\n[plugins]\n\"x.y\" = { marketplace = \"official\" }\n", string(out))
}

func TestSetPluginReplacesSubTable(t *testing.T) {
	src := "[plugins]\n\n[plugins.foo]\nmarketplace = \"official\"\ntag = \"v1\"\n"
	out, err := SetPlugin([]byte(src), "foo", PluginEntry{Marketplace: "official", Tag: "v2"})
	require.NoError(t, err)

	m, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, PluginEntry{Marketplace: "official", Tag: "v2"}, m.Plugins["foo"])
	assert.NotContains(t, string(out), "[plugins.foo]")
}

func TestRemovePlugin(t *testing.T) {
	out, removed, err := RemovePlugin([]byte(commented), "other")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, strings.Replace(commented, "other = { marketplace = \"official\" }\n", "", 1), string(out))

	same, removed, err := RemovePlugin(out, "missing")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, out, same)
}

func TestTemplateParses(t *testing.T) {
	m, err := Parse([]byte(Template))
	require.NoError(t, err)
	assert.Empty(t, m.Plugins)
}
