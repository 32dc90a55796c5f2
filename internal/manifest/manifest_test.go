package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanSnow/skill-manager/internal/errors"
)

const sample = `
[marketplaces]
official = "anthropics/claude-plugins-official"
company = { url = "git@github.com:mycompany/plugins.git", tag = "v1.0.0" }

[plugins]
superpowers = { marketplace = "official" }
internal-tools = { marketplace = "company", commit = "abc123" }
`

func TestExpandURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"anthropics/claude-plugins-official", "https://github.com/anthropics/claude-plugins-official.git"},
		{"git@github.com:mycompany/plugins.git", "git@github.com:mycompany/plugins.git"},
		{"https://git.example.com/plugins.git", "https://git.example.com/plugins.git"},
		{"http://git.example.com/plugins.git", "http://git.example.com/plugins.git"},
		{"/srv/git/plugins", "/srv/git/plugins"},
		{"plugins", "plugins"},
		{"../local/plugins", "../local/plugins"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandURL(tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, MarketplaceEntry{URL: "https://github.com/anthropics/claude-plugins-official.git"}, m.Marketplaces["official"])
	assert.Equal(t, MarketplaceEntry{URL: "git@github.com:mycompany/plugins.git", Tag: "v1.0.0"}, m.Marketplaces["company"])
	assert.Equal(t, PluginEntry{Marketplace: "official"}, m.Plugins["superpowers"])
	assert.Equal(t, PluginEntry{Marketplace: "company", Commit: "abc123"}, m.Plugins["internal-tools"])
	assert.NoError(t, m.Validate())
}

func TestParseEmptySections(t *testing.T) {
	m, err := Parse([]byte("[marketplaces]\n\n[plugins]\n"))
	require.NoError(t, err)
	assert.Empty(t, m.Marketplaces)
	assert.Empty(t, m.Plugins)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid toml", "[marketplaces\n"},
		{"marketplace wrong type", "[marketplaces]\nofficial = 3\n"},
		{"marketplace missing url", "[marketplaces]\nofficial = { tag = \"v1\" }\n"},
		{"marketplace unknown key", "[marketplaces]\nofficial = { url = \"a/b\", branch = \"main\" }\n"},
		{"plugin missing marketplace", "[plugins]\nfoo = { tag = \"v1\" }\n"},
		{"plugin tag and commit", "[plugins]\nfoo = { marketplace = \"m\", tag = \"v1\", commit = \"abc\" }\n"},
		{"plugin as string", "[plugins]\nfoo = \"official\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrConfig)
		})
	}
}

func TestValidateUndeclaredMarketplace(t *testing.T) {
	m, err := Parse([]byte("[plugins]\nfoo = { marketplace = \"missing\" }\n"))
	require.NoError(t, err)

	err = m.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfig)
	assert.Contains(t, err.Error(), "missing")
	assert.Contains(t, err.Error(), "foo")
}

func TestLoadSetsPath(t *testing.T) {
	dir := t.TempDir()
	path := ProjectPath(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path)
	assert.Equal(t, filepath.Join(dir, ".claude", "plugins.lock"), LockPath(path))

	missing, err := LoadIfExists(filepath.Join(dir, "nope.toml"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}
