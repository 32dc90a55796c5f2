package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DanSnow/skill-manager/internal/i18n"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search for plugins in the declared marketplaces",
	Long: `Search for plugins using fuzzy matching across the marketplaces declared in
the global and project manifests.

The search looks through plugin names, descriptions, tags, and keywords.

Example:
  skill-manager search formatter
  skill-manager search code-review`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	keyword := args[0]

	layers, err := loadLayers()
	if err != nil {
		return err
	}
	merged := manifest.New()
	for _, l := range layers {
		for name, e := range l.Manifest.Marketplaces {
			merged.Marketplaces[name] = e
		}
	}
	if len(merged.Marketplaces) == 0 {
		fmt.Println(i18n.T("NoMarketplaces", nil))
		return nil
	}

	results := search.Fuzzy(loadListings(cmd.Context(), merged), keyword)
	if len(results) == 0 {
		fmt.Println(i18n.T("NoResults", map[string]any{"Keyword": keyword}))
		return nil
	}

	fmt.Println(i18n.T("SearchResults", map[string]any{"Count": len(results)}, len(results)))
	fmt.Println()

	for _, r := range results {
		if r.Plugin.Version != "" {
			fmt.Printf("  %s (v%s)\n", r.Key(), r.Plugin.Version)
		} else {
			fmt.Printf("  %s\n", r.Key())
		}
		if r.Plugin.Description != "" {
			fmt.Printf("    %s\n", r.Plugin.Description)
		}
		if len(r.Plugin.Tags) > 0 {
			fmt.Printf("    Tags: %s\n", strings.Join(r.Plugin.Tags, ", "))
		}
		if r.Plugin.Category != "" {
			fmt.Printf("    Category: %s\n", r.Plugin.Category)
		}
		fmt.Println()
	}
	return nil
}
