package marketplace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/DanSnow/skill-manager/internal/errors"
)

const (
	// ManifestDir is the directory containing marketplace.json
	ManifestDir = ".claude-plugin"
	// ManifestFile is the marketplace manifest filename
	ManifestFile = "marketplace.json"
	// PluginFile is the per-plugin metadata filename
	PluginFile = "plugin.json"

	maxSuggestions = 3
)

// ListingPath is the slash separated location of marketplace.json in a repository.
var ListingPath = ManifestDir + "/" + ManifestFile

// PluginMetadataPath returns the slash separated location of plugin.json
// beneath a plugin root.
func PluginMetadataPath(root string) string {
	if root == "" || root == "." {
		return ManifestDir + "/" + PluginFile
	}
	return strings.TrimSuffix(root, "/") + "/" + ManifestDir + "/" + PluginFile
}

// ParseListing decodes marketplace.json content for the named marketplace.
// Besides the array form, the older object form keyed by plugin name with
// path/url values is accepted.
func ParseListing(name string, data []byte) (*Listing, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.NewInvalidSource(name, "marketplace.json is not valid JSON", nil)
	}

	plugins := gjson.GetBytes(data, "plugins")
	if !plugins.Exists() {
		return nil, errors.NewInvalidSource(name, "marketplace.json has no plugins", nil)
	}

	if plugins.IsObject() {
		return parseKeyedListing(name, data, plugins)
	}

	var listing Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, errors.NewInvalidSource(name, "malformed marketplace.json", err)
	}
	for i, p := range listing.Plugins {
		if p.Name == "" {
			return nil, errors.NewInvalidSource(name, fmt.Sprintf("plugin entry %d has no name", i), nil)
		}
	}
	return &listing, nil
}

func parseKeyedListing(name string, data []byte, plugins gjson.Result) (*Listing, error) {
	rest, err := sjson.DeleteBytes(data, "plugins")
	if err != nil {
		return nil, errors.NewInvalidSource(name, "malformed marketplace.json", err)
	}
	var listing Listing
	if err := json.Unmarshal(rest, &listing); err != nil {
		return nil, errors.NewInvalidSource(name, "malformed marketplace.json", err)
	}

	var parseErr error
	plugins.ForEach(func(key, value gjson.Result) bool {
		entry := PluginEntry{
			Name:        key.String(),
			Description: value.Get("description").String(),
			Version:     value.Get("version").String(),
		}
		switch {
		case value.Get("path").Exists():
			entry.Source = PluginSource{Kind: SourceLocal, Path: value.Get("path").String()}
		case value.Get("url").Exists():
			entry.Source = PluginSource{Kind: SourceGit, URL: value.Get("url").String()}
		case value.Get("source").Exists():
			if err := json.Unmarshal([]byte(value.Get("source").Raw), &entry.Source); err != nil {
				parseErr = errors.NewInvalidSource(name, fmt.Sprintf("plugin '%s' has an invalid source", entry.Name), err)
				return false
			}
		default:
			parseErr = errors.NewInvalidSource(name, fmt.Sprintf("plugin '%s' has neither path nor url", entry.Name), nil)
			return false
		}
		listing.Plugins = append(listing.Plugins, entry)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	sort.Slice(listing.Plugins, func(i, j int) bool {
		return listing.Plugins[i].Name < listing.Plugins[j].Name
	})
	return &listing, nil
}

// LoadListing loads a marketplace listing from a checked out directory
func LoadListing(name, marketplacePath string) (*Listing, error) {
	manifestPath := filepath.Join(marketplacePath, ManifestDir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInvalidSource(name, "marketplace.json not found", err)
		}
		return nil, errors.WrapIO("read", manifestPath, err)
	}
	return ParseListing(name, data)
}

// FindPlugin finds a plugin by name. A miss is an InvalidSourceDescriptor
// error carrying the closest names.
func (l *Listing) FindPlugin(marketplaceName, name string) (*PluginEntry, error) {
	for i := range l.Plugins {
		if l.Plugins[i].Name == name {
			return &l.Plugins[i], nil
		}
	}

	msg := fmt.Sprintf("plugin '%s' not found", name)
	if s := l.Suggest(name); len(s) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(s, ", "))
	}
	return nil, errors.NewInvalidSource(marketplaceName, msg, nil)
}

// Names returns the plugin names in listing order.
func (l *Listing) Names() []string {
	names := make([]string, len(l.Plugins))
	for i, p := range l.Plugins {
		names[i] = p.Name
	}
	return names
}

// Suggest returns up to three plugin names that fuzzily match name.
func (l *Listing) Suggest(name string) []string {
	names := l.Names()
	matches := fuzzy.Find(strings.ToLower(name), lower(names))
	var out []string
	for _, m := range matches {
		out = append(out, names[m.Index])
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
