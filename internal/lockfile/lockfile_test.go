package lockfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanSnow/skill-manager/internal/errors"
)

func sampleLock() *LockFile {
	return &LockFile{
		ConfigHash: "0123456789abcdef",
		Marketplaces: []Marketplace{
			{Name: "official", URL: "https://github.com/anthropics/claude-plugins-official.git", Commit: "bbb"},
			{Name: "company", URL: "git@github.com:acme/plugins.git", Commit: "aaa"},
		},
		Plugins: []Plugin{
			{Name: "superpowers", Marketplace: "official", SourceType: SourceExternal, MarketplaceCommit: "bbb", PluginCommit: "ccc", ResolvedVersion: "4.1.1"},
			{Name: "formatter", Marketplace: "company", SourceType: SourceLocal, MarketplaceCommit: "aaa", PluginCommit: "aaa", ResolvedVersion: "aaa0000"},
		},
	}
}

func TestShouldReuse(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		computed string
		force    bool
		want     bool
	}{
		{"equal", "abc", "abc", false, true},
		{"different", "abc", "def", false, false},
		{"absent", "", "abc", false, false},
		{"forced", "abc", "abc", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldReuse(tt.stored, tt.computed, tt.force))
		})
	}
}

func TestEncodeIsSortedAndParses(t *testing.T) {
	data, err := Encode(sampleLock())
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, header))
	assert.Contains(t, text, `config_hash = "0123456789abcdef"`)
	assert.Contains(t, text, "[[marketplaces]]")
	assert.Contains(t, text, `source_type = "local"`)
	assert.Less(t, strings.Index(text, `name = "company"`), strings.Index(text, `name = "official"`))
	assert.NotContains(t, text, "At")

	l, err := Parse(data, "plugins.lock")
	require.NoError(t, err)
	assert.Equal(t, "company", l.Marketplaces[0].Name)
	assert.Equal(t, "formatter", l.Plugins[0].Name)

	p, ok := l.Plugin("superpowers")
	require.True(t, ok)
	assert.Equal(t, "superpowers@official", p.Key())
	assert.Equal(t, "ccc", p.PluginCommit)

	again, err := Encode(l)
	require.NoError(t, err)
	assert.Equal(t, text, string(again))
}

func TestLoadAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins.lock")

	l, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, l)

	require.NoError(t, Save(path, sampleLock()))
	l, err = Load(path)
	require.NoError(t, err)
	assert.True(t, Equal(sampleLock(), l))

	require.NoError(t, os.WriteFile(path, []byte("config_hash = ["), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, errors.ErrFormat)
}

func TestLegacyLockWithoutHashIsNotReused(t *testing.T) {
	l, err := Parse([]byte("[[marketplaces]]\nname = \"m\"\nurl = \"u\"\ncommit = \"c\"\n"), "plugins.lock")
	require.NoError(t, err)
	assert.Empty(t, l.ConfigHash)

	called := false
	out, reused, err := Reconcile(context.Background(), l, "", false, func(context.Context) ([]Marketplace, []Plugin, error) {
		called = true
		return nil, nil, nil
	})
	require.NoError(t, err)
	assert.False(t, reused)
	assert.True(t, called)
	assert.Empty(t, out.Marketplaces)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	prior := sampleLock()
	calls := 0
	resolve := func(context.Context) ([]Marketplace, []Plugin, error) {
		calls++
		return []Marketplace{{Name: "z"}, {Name: "a"}}, nil, nil
	}

	out, reused, err := Reconcile(ctx, prior, prior.ConfigHash, false, resolve)
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Same(t, prior, out)
	assert.Equal(t, 0, calls)

	out, reused, err = Reconcile(ctx, prior, "ffffffffffffffff", false, resolve)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, "ffffffffffffffff", out.ConfigHash)
	assert.Equal(t, "a", out.Marketplaces[0].Name)

	_, reused, err = Reconcile(ctx, prior, prior.ConfigHash, true, resolve)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, 2, calls)

	out, reused, err = Reconcile(ctx, nil, "abc", false, resolve)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, "abc", out.ConfigHash)
}

func TestReconcilePropagatesResolveError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := Reconcile(context.Background(), nil, "abc", false, func(context.Context) ([]Marketplace, []Plugin, error) {
		return nil, nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
