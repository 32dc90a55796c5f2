package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/DanSnow/skill-manager/internal/i18n"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/output"
	"github.com/DanSnow/skill-manager/internal/resolver"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List declared plugins and their locked versions",
	Long: `List the plugins of the global and project manifests with the versions
recorded in their locks.

Example:
  skill-manager list
  skill-manager list -o json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listFormat, "output", "o", "text", "output format (text, json, yaml)")
}

type listedMarketplace struct {
	Name   string `json:"name" yaml:"name"`
	URL    string `json:"url" yaml:"url"`
	Pin    string `json:"pin" yaml:"pin"`
	Commit string `json:"commit,omitempty" yaml:"commit,omitempty"`
}

type listedPlugin struct {
	Name        string `json:"name" yaml:"name"`
	Marketplace string `json:"marketplace" yaml:"marketplace"`
	Pin         string `json:"pin" yaml:"pin"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Commit      string `json:"commit,omitempty" yaml:"commit,omitempty"`
}

type listedLayer struct {
	Name     string `json:"name" yaml:"name"`
	Manifest string `json:"manifest" yaml:"manifest"`
	// Locked is false when there is no lock or its hash is stale.
	Locked       bool                `json:"locked" yaml:"locked"`
	Marketplaces []listedMarketplace `json:"marketplaces" yaml:"marketplaces"`
	Plugins      []listedPlugin      `json:"plugins" yaml:"plugins"`
}

func pinString(tag, commit string) string {
	switch {
	case commit != "":
		return "commit " + resolver.ShortCommit(commit)
	case tag != "":
		return tag
	default:
		return "latest"
	}
}

func buildListing(layers []layerFiles) []listedLayer {
	out := make([]listedLayer, 0, len(layers))
	for _, l := range layers {
		ll := listedLayer{
			Name:         l.Name,
			Manifest:     l.Path,
			Locked:       l.Lock != nil && l.Lock.ConfigHash == manifest.HashManifest(l.Manifest),
			Marketplaces: []listedMarketplace{},
			Plugins:      []listedPlugin{},
		}
		for _, name := range l.Manifest.MarketplaceNames() {
			e := l.Manifest.Marketplaces[name]
			lm := listedMarketplace{Name: name, URL: e.URL, Pin: pinString(e.Tag, e.Commit)}
			if l.Lock != nil {
				if locked, ok := l.Lock.Marketplace(name); ok {
					lm.Commit = locked.Commit
				}
			}
			ll.Marketplaces = append(ll.Marketplaces, lm)
		}
		for _, name := range l.Manifest.PluginNames() {
			e := l.Manifest.Plugins[name]
			lp := listedPlugin{Name: name, Marketplace: e.Marketplace, Pin: pinString(e.Tag, e.Commit)}
			if l.Lock != nil {
				if locked, ok := l.Lock.Plugin(name); ok {
					lp.Source = string(locked.SourceType)
					lp.Version = locked.ResolvedVersion
					lp.Commit = locked.PluginCommit
				}
			}
			ll.Plugins = append(ll.Plugins, lp)
		}
		out = append(out, ll)
	}
	return out
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listFormat)
	if err != nil {
		return err
	}
	layers, err := loadLayers()
	if err != nil {
		return err
	}
	listing := buildListing(layers)

	return output.Write(os.Stdout, format, listing, func(w io.Writer) error {
		return writeListText(w, listing)
	})
}

func writeListText(w io.Writer, layers []listedLayer) error {
	if len(layers) == 0 {
		fmt.Fprintln(w, i18n.T("NoManifests", nil))
		return nil
	}
	for i, l := range layers {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, i18n.T("ListLayerHeader", map[string]any{"Layer": l.Name, "Path": l.Manifest}))
		if !l.Locked {
			fmt.Fprintln(w, i18n.T("LockStale", nil))
		}

		if len(l.Plugins) == 0 {
			fmt.Fprintln(w, i18n.T("NoPluginsDeclared", nil))
			continue
		}
		table := output.Table{Headers: []string{"Plugin", "Marketplace", "Pin", "Version", "Commit"}}
		for _, p := range l.Plugins {
			table.Append(p.Name, p.Marketplace, p.Pin, p.Version, resolver.ShortCommit(p.Commit))
		}
		if err := table.Render(w); err != nil {
			return err
		}
	}
	return nil
}
