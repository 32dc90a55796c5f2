// Package search finds plugins by name across marketplace listings.
package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/DanSnow/skill-manager/internal/marketplace"
)

// Result represents a search result
type Result struct {
	Plugin      marketplace.PluginEntry
	Marketplace string
	Score       int // Higher is better
}

// Key returns <plugin>@<marketplace>
func (r Result) Key() string {
	return r.Plugin.Name + "@" + r.Marketplace
}

// pluginSource wraps a listing for fuzzy searching
type pluginSource struct {
	plugins []marketplace.PluginEntry
}

// String returns the searchable string for a plugin
func (p pluginSource) String(i int) string {
	plugin := p.plugins[i]
	parts := []string{plugin.Name}
	if plugin.Description != "" {
		parts = append(parts, plugin.Description)
	}
	parts = append(parts, plugin.Tags...)
	parts = append(parts, plugin.Keywords...)
	if plugin.Category != "" {
		parts = append(parts, plugin.Category)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Len returns the number of plugins
func (p pluginSource) Len() int {
	return len(p.plugins)
}

// Exact returns the plugins named exactly name, sorted by marketplace
func Exact(listings map[string]*marketplace.Listing, name string) []Result {
	var results []Result
	for mpName, listing := range listings {
		if listing == nil {
			continue
		}
		for _, plugin := range listing.Plugins {
			if plugin.Name == name {
				results = append(results, Result{Plugin: plugin, Marketplace: mpName, Score: 100})
			}
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Marketplace < results[j].Marketplace
	})
	return results
}

// Fuzzy performs a fuzzy search across all listings, best match first
func Fuzzy(listings map[string]*marketplace.Listing, query string) []Result {
	var results []Result
	query = strings.ToLower(query)

	for mpName, listing := range listings {
		if listing == nil || len(listing.Plugins) == 0 {
			continue
		}

		matches := fuzzy.FindFrom(query, pluginSource{plugins: listing.Plugins})
		for _, match := range matches {
			results = append(results, Result{
				Plugin:      listing.Plugins[match.Index],
				Marketplace: mpName,
				Score:       match.Score,
			})
		}
	}

	// Sort by score (descending)
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Key() < results[j].Key()
	})

	return results
}

// Keys returns the keys of up to limit results
func Keys(results []Result, limit int) []string {
	var keys []string
	for i, r := range results {
		if limit > 0 && i >= limit {
			break
		}
		keys = append(keys, r.Key())
	}
	return keys
}
