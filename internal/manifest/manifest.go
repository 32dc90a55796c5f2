// Package manifest reads, validates, edits and fingerprints plugins.toml
// manifests.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/DanSnow/skill-manager/internal/config"
	"github.com/DanSnow/skill-manager/internal/errors"
)

var shorthand = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]*/[A-Za-z0-9_.-]+$`)

const (
	// FileName is the manifest file name in both layers.
	FileName = "plugins.toml"
	// LockFileName is written next to the manifest it was resolved from.
	LockFileName = "plugins.lock"
)

// MarketplaceEntry is a marketplace source with an optional pin.
type MarketplaceEntry struct {
	URL    string
	Tag    string
	Commit string
}

// PluginEntry names the owning marketplace and an optional pin.
type PluginEntry struct {
	Marketplace string
	Tag         string
	Commit      string
}

// Pinned reports whether the entry carries a tag or commit.
func (e PluginEntry) Pinned() bool {
	return e.Tag != "" || e.Commit != ""
}

// Manifest is a parsed plugins.toml.
type Manifest struct {
	Marketplaces map[string]MarketplaceEntry
	Plugins      map[string]PluginEntry
	// Path is the file the manifest was loaded from, empty when parsed from memory.
	Path string
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{
		Marketplaces: make(map[string]MarketplaceEntry),
		Plugins:      make(map[string]PluginEntry),
	}
}

// Clone returns a deep copy.
func (m *Manifest) Clone() *Manifest {
	c := New()
	c.Path = m.Path
	for k, v := range m.Marketplaces {
		c.Marketplaces[k] = v
	}
	for k, v := range m.Plugins {
		c.Plugins[k] = v
	}
	return c
}

// PluginNames returns the declared plugin names in sorted order.
func (m *Manifest) PluginNames() []string {
	names := make([]string, 0, len(m.Plugins))
	for name := range m.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarketplaceNames returns the declared marketplace names in sorted order.
func (m *Manifest) MarketplaceNames() []string {
	names := make([]string, 0, len(m.Marketplaces))
	for name := range m.Marketplaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type rawManifest struct {
	Marketplaces map[string]toml.Primitive `toml:"marketplaces"`
	Plugins      map[string]toml.Primitive `toml:"plugins"`
}

type rawMarketplace struct {
	URL    string `toml:"url"`
	Tag    string `toml:"tag"`
	Commit string `toml:"commit"`
}

type rawPlugin struct {
	Marketplace string `toml:"marketplace"`
	Tag         string `toml:"tag"`
	Commit      string `toml:"commit"`
}

// Parse decodes manifest content. A marketplace value is either a URL string
// or a {url, tag, commit} table; the string form is tried first.
func Parse(data []byte) (*Manifest, error) {
	return parse(data, "")
}

func parse(data []byte, path string) (*Manifest, error) {
	var raw rawManifest
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, errors.NewConfigError(path, "invalid TOML", err)
	}

	m := New()
	m.Path = path

	for _, name := range sortedKeys(raw.Marketplaces) {
		prim := raw.Marketplaces[name]

		var url string
		if err := md.PrimitiveDecode(prim, &url); err == nil {
			m.Marketplaces[name] = MarketplaceEntry{URL: ExpandURL(url)}
			continue
		}

		var detailed rawMarketplace
		if err := md.PrimitiveDecode(prim, &detailed); err != nil {
			return nil, errors.NewConfigError(path,
				fmt.Sprintf("marketplace '%s' must be a URL string or a table with url/tag/commit", name), err)
		}
		if detailed.URL == "" {
			return nil, errors.NewConfigError(path, fmt.Sprintf("marketplace '%s' is missing url", name), nil)
		}
		if detailed.Tag != "" && detailed.Commit != "" {
			return nil, errors.NewConfigError(path, fmt.Sprintf("marketplace '%s' pins both tag and commit", name), nil)
		}
		m.Marketplaces[name] = MarketplaceEntry{
			URL:    ExpandURL(detailed.URL),
			Tag:    detailed.Tag,
			Commit: detailed.Commit,
		}
	}

	for _, name := range sortedKeys(raw.Plugins) {
		var p rawPlugin
		if err := md.PrimitiveDecode(raw.Plugins[name], &p); err != nil {
			return nil, errors.NewConfigError(path, fmt.Sprintf("plugin '%s' must be a table", name), err)
		}
		if p.Marketplace == "" {
			return nil, errors.NewConfigError(path, fmt.Sprintf("plugin '%s' is missing marketplace", name), nil)
		}
		if p.Tag != "" && p.Commit != "" {
			return nil, errors.NewConfigError(path, fmt.Sprintf("plugin '%s' pins both tag and commit", name), nil)
		}
		m.Plugins[name] = PluginEntry{Marketplace: p.Marketplace, Tag: p.Tag, Commit: p.Commit}
	}

	for _, key := range md.Undecoded() {
		if len(key) == 3 && (key[0] == "marketplaces" || key[0] == "plugins") {
			return nil, errors.NewConfigError(path,
				fmt.Sprintf("unknown key '%s' in %s '%s'", key[2], strings.TrimSuffix(key[0], "s"), key[1]), nil)
		}
	}

	return m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return parse(data, path)
}

// LoadIfExists is Load, returning nil without error when path does not exist.
func LoadIfExists(path string) (*Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return Load(path)
}

// Validate checks that every plugin references a declared marketplace.
func (m *Manifest) Validate() error {
	for _, name := range m.PluginNames() {
		p := m.Plugins[name]
		if _, ok := m.Marketplaces[p.Marketplace]; !ok {
			return errors.NewConfigError(m.Path,
				fmt.Sprintf("plugin '%s' references undeclared marketplace '%s'", name, p.Marketplace), nil)
		}
	}
	return nil
}

// ExpandURL expands GitHub owner/repo shorthand to an HTTPS clone URL.
// SSH, HTTP(S) and filesystem URLs are returned unchanged.
func ExpandURL(url string) string {
	if shorthand.MatchString(url) {
		return "https://github.com/" + url + ".git"
	}
	return url
}

// GlobalPath returns ~/.config/skill-manager/plugins.toml
func GlobalPath() string {
	return filepath.Join(config.ConfigDir(), FileName)
}

// ProjectPath returns <dir>/.claude/plugins.toml
func ProjectPath(dir string) string {
	return filepath.Join(dir, ".claude", FileName)
}

// LockPath returns the lock file path for a manifest path.
func LockPath(manifestPath string) string {
	return filepath.Join(filepath.Dir(manifestPath), LockFileName)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
