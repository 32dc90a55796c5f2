package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanSnow/skill-manager/internal/marketplace"
)

func listings() map[string]*marketplace.Listing {
	return map[string]*marketplace.Listing{
		"company": {
			Name: "company",
			Plugins: []marketplace.PluginEntry{
				{Name: "linter", Description: "lints code"},
				{Name: "formatter", Keywords: []string{"style"}},
			},
		},
		"official": {
			Name: "official",
			Plugins: []marketplace.PluginEntry{
				{Name: "linter"},
				{Name: "commit-helper", Category: "git"},
			},
		},
		"empty": nil,
	}
}

func TestExact(t *testing.T) {
	results := Exact(listings(), "linter")
	require.Len(t, results, 2)
	assert.Equal(t, "linter@company", results[0].Key())
	assert.Equal(t, "linter@official", results[1].Key())

	assert.Empty(t, Exact(listings(), "lint"))
}

func TestFuzzy(t *testing.T) {
	results := Fuzzy(listings(), "lntr")
	require.NotEmpty(t, results)
	assert.Equal(t, "linter", results[0].Plugin.Name)

	results = Fuzzy(listings(), "style")
	require.Len(t, results, 1)
	assert.Equal(t, "formatter@company", results[0].Key())

	assert.Empty(t, Fuzzy(listings(), "zzzz"))
}

func TestKeys(t *testing.T) {
	results := Exact(listings(), "linter")
	assert.Equal(t, []string{"linter@company"}, Keys(results, 1))
	assert.Equal(t, []string{"linter@company", "linter@official"}, Keys(results, 0))
}
