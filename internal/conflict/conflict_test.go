package conflict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/plugin"
)

func manifests() (*manifest.Manifest, *manifest.Manifest) {
	base := manifest.New()
	base.Path = "/home/u/.config/skill-manager/plugins.toml"
	base.Marketplaces["official"] = manifest.MarketplaceEntry{URL: "anthropics/claude-plugins-official"}
	base.Plugins["superpowers"] = manifest.PluginEntry{Marketplace: "official", Tag: "v4.0.0"}
	base.Plugins["same"] = manifest.PluginEntry{Marketplace: "official", Tag: "v1.0.0"}
	base.Plugins["global-only"] = manifest.PluginEntry{Marketplace: "official"}

	other := manifest.New()
	other.Path = "/proj/.claude/plugins.toml"
	other.Marketplaces["official"] = manifest.MarketplaceEntry{URL: "https://github.com/anthropics/claude-plugins-official.git"}
	other.Plugins["superpowers"] = manifest.PluginEntry{Marketplace: "official", Tag: "v4.1.1"}
	other.Plugins["same"] = manifest.PluginEntry{Marketplace: "official", Tag: "v1.0.0"}
	other.Plugins["project-only"] = manifest.PluginEntry{Marketplace: "official"}
	return base, other
}

func layers() (Layer, Layer, *manifest.Manifest, *manifest.Manifest) {
	base, other := manifests()
	return NewLayer("global", plugin.UserScope(), base), NewLayer("project", plugin.ProjectScope("/proj"), other), base, other
}

func TestDetect(t *testing.T) {
	a := Declaration{Plugin: "x", Marketplace: "m", Pin: Pin{Tag: "v4.0.0"}}
	b := Declaration{Plugin: "x", Marketplace: "m", Pin: Pin{Tag: "v4.1.1"}}

	c, ok := Detect(a, b)
	require.True(t, ok)
	assert.Equal(t, "x@m", c.Key)

	_, ok = Detect(a, a)
	assert.False(t, ok)

	_, ok = Detect(a, Declaration{Plugin: "x", Marketplace: "other", Pin: Pin{Tag: "v4.1.1"}})
	assert.False(t, ok, "different marketplaces are different plugins")

	_, ok = Detect(a, Declaration{Plugin: "x", Marketplace: "m", Pin: Pin{Commit: "abc"}})
	assert.True(t, ok)
}

func TestDetectAll(t *testing.T) {
	base, other, _, _ := layers()
	conflicts := DetectAll(base, other)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "superpowers@official", conflicts[0].Key)
	assert.Equal(t, "v4.0.0", conflicts[0].Base.Pin.Tag)
	assert.Equal(t, "v4.1.1", conflicts[0].Other.Pin.Tag)
	assert.Equal(t, "global", conflicts[0].BaseLayer)
	assert.Equal(t, "project", conflicts[0].OtherLayer)
}

func TestAdoptedScenario(t *testing.T) {
	baseLayer, otherLayer, base, other := layers()
	plan, err := Resolve(context.Background(), DetectAll(baseLayer, otherLayer), PolicyDecider{Policy: PreferOther})
	require.NoError(t, err)

	effBase, effOther := plan.Apply(base, other)
	assert.Equal(t, "v4.1.1", effBase.Plugins["superpowers"].Tag)
	assert.Contains(t, effOther.Plugins, "superpowers")
	assert.Equal(t, "v4.0.0", base.Plugins["superpowers"].Tag, "input is not modified")
	assert.Len(t, plan.Adopted(), 1)
	assert.False(t, plan.Skipped("superpowers@official"))
}

func TestSkippedScenario(t *testing.T) {
	baseLayer, otherLayer, base, other := layers()
	plan, err := Resolve(context.Background(), DetectAll(baseLayer, otherLayer), PolicyDecider{Policy: PreferBase})
	require.NoError(t, err)

	effBase, effOther := plan.Apply(base, other)
	assert.Equal(t, "v4.0.0", effBase.Plugins["superpowers"].Tag)
	assert.NotContains(t, effOther.Plugins, "superpowers")
	assert.Contains(t, effOther.Plugins, "project-only")
	assert.Contains(t, other.Plugins, "superpowers", "input is not modified")
	assert.True(t, plan.Skipped("superpowers@official"))
	assert.Empty(t, plan.Adopted())
}

func TestAbortedScenario(t *testing.T) {
	baseLayer, otherLayer, _, _ := layers()
	conflicts := append(DetectAll(baseLayer, otherLayer), Conflict{Key: "later@m"})

	var decided []string
	decider := DeciderFunc(func(_ context.Context, c Conflict) (Decision, error) {
		decided = append(decided, c.Key)
		return Aborted, nil
	})

	plan, err := Resolve(context.Background(), conflicts, decider)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConflictAbort)
	assert.True(t, errors.IsConflictAbort(err))
	assert.Empty(t, plan.Resolutions)
	assert.Equal(t, []string{"superpowers@official"}, decided, "abort stops further decisions")
}

func TestInteractivePolicyNeedsDecider(t *testing.T) {
	baseLayer, otherLayer, _, _ := layers()
	_, err := Resolve(context.Background(), DetectAll(baseLayer, otherLayer), PolicyDecider{Policy: Interactive})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfig)
	assert.Contains(t, err.Error(), "--prefer-global")
}

func TestResolveWithoutConflicts(t *testing.T) {
	plan, err := Resolve(context.Background(), nil, PolicyDecider{Policy: Interactive})
	require.NoError(t, err)
	assert.Empty(t, plan.Resolutions)
}

func TestCheckMarketplaces(t *testing.T) {
	base, other := manifests()
	assert.NoError(t, CheckMarketplaces(base, other), "shorthand and expanded url are equal")

	other.Marketplaces["official"] = manifest.MarketplaceEntry{URL: "git@github.com:fork/plugins.git"}
	err := CheckMarketplaces(base, other)
	assert.ErrorIs(t, err, errors.ErrConfig)
	assert.Contains(t, err.Error(), "official")

	assert.NoError(t, CheckMarketplaces(base, nil))
}

func TestCheckMarketplacesPins(t *testing.T) {
	base, other := manifests()
	entry := base.Marketplaces["official"]
	entry.Tag = "v1.0.0"
	base.Marketplaces["official"] = entry

	err := CheckMarketplaces(base, other)
	assert.ErrorIs(t, err, errors.ErrConfig)
	assert.Contains(t, err.Error(), "pinned to v1.0.0 globally and latest in the project")

	other.Marketplaces["official"] = manifest.MarketplaceEntry{URL: other.Marketplaces["official"].URL, Tag: "v1.0.0"}
	assert.NoError(t, CheckMarketplaces(base, other))
}

func TestPinString(t *testing.T) {
	assert.Equal(t, "v1", Pin{Tag: "v1"}.String())
	assert.Equal(t, "commit abc", Pin{Commit: "abc"}.String())
	assert.Equal(t, "latest", Pin{}.String())
	assert.Equal(t, "adopted", Adopted.String())
}
