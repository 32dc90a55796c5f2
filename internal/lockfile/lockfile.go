// Package lockfile reads and writes plugins.lock, the content addressed
// cache of resolution results for one manifest.
package lockfile

import (
	"bytes"
	"context"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/fsutil"
)

const header = "# Generated by skill-manager. Do not edit.\n\n"

// SourceType classifies where a locked plugin's content lives.
type SourceType string

const (
	// SourceLocal plugins live inside their marketplace repository.
	SourceLocal SourceType = "local"
	// SourceExternal plugins live in a repository of their own.
	SourceExternal SourceType = "external"
)

// Marketplace is a resolved marketplace.
type Marketplace struct {
	Name   string `toml:"name"`
	URL    string `toml:"url"`
	Commit string `toml:"commit"`
}

// Plugin is a resolved plugin. PluginCommit equals MarketplaceCommit for
// local plugins.
type Plugin struct {
	Name              string     `toml:"name"`
	Marketplace       string     `toml:"marketplace"`
	SourceType        SourceType `toml:"source_type"`
	MarketplaceCommit string     `toml:"marketplace_commit"`
	PluginCommit      string     `toml:"plugin_commit"`
	ResolvedVersion   string     `toml:"resolved_version"`
}

// Key returns the installed registry key of the plugin.
func (p Plugin) Key() string {
	return p.Name + "@" + p.Marketplace
}

// LockFile is the resolution result of one manifest.
//
// Invariants:
//   - ConfigHash is the only input deciding reuse; an empty hash never matches
//   - records carry no timestamps
type LockFile struct {
	ConfigHash   string        `toml:"config_hash"`
	Marketplaces []Marketplace `toml:"marketplaces"`
	Plugins      []Plugin      `toml:"plugins"`
}

// New returns an empty lock for hash.
func New(hash string) *LockFile {
	return &LockFile{ConfigHash: hash}
}

// Sort orders records by name.
func (l *LockFile) Sort() {
	sort.Slice(l.Marketplaces, func(i, j int) bool {
		return l.Marketplaces[i].Name < l.Marketplaces[j].Name
	})
	sort.Slice(l.Plugins, func(i, j int) bool {
		return l.Plugins[i].Name < l.Plugins[j].Name
	})
}

// Marketplace returns the record for name.
func (l *LockFile) Marketplace(name string) (Marketplace, bool) {
	for _, m := range l.Marketplaces {
		if m.Name == name {
			return m, true
		}
	}
	return Marketplace{}, false
}

// Plugin returns the record for name.
func (l *LockFile) Plugin(name string) (Plugin, bool) {
	for _, p := range l.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// Parse decodes lock content. path is only used in errors.
func Parse(data []byte, path string) (*LockFile, error) {
	var l LockFile
	if _, err := toml.Decode(string(data), &l); err != nil {
		return nil, errors.WrapFormat(path, err)
	}
	return &l, nil
}

// Load reads the lock at path. A missing file returns nil, nil.
func Load(path string) (*LockFile, error) {
	data, err := fsutil.ReadFileIfExists(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	if data == nil {
		return nil, nil
	}
	return Parse(data, path)
}

// Encode renders the lock with records sorted by name.
func Encode(l *LockFile) ([]byte, error) {
	sorted := *l
	sorted.Marketplaces = append([]Marketplace(nil), l.Marketplaces...)
	sorted.Plugins = append([]Plugin(nil), l.Plugins...)
	sorted.Sort()

	var buf bytes.Buffer
	buf.WriteString(header)
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(sorted); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the lock atomically.
func Save(path string, l *LockFile) error {
	data, err := Encode(l)
	if err != nil {
		return errors.WrapFormat(path, err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Equal reports whether two locks hold the same records.
func Equal(a, b *LockFile) bool {
	if a == nil || b == nil {
		return a == b
	}
	ea, errA := Encode(a)
	eb, errB := Encode(b)
	return errA == nil && errB == nil && bytes.Equal(ea, eb)
}

// ShouldReuse reports whether a stored lock may stand in for resolution.
// An absent stored hash is never reused.
func ShouldReuse(stored, computed string, force bool) bool {
	return !force && stored != "" && stored == computed
}

// ResolveFunc resolves every declared marketplace and plugin.
type ResolveFunc func(ctx context.Context) ([]Marketplace, []Plugin, error)

// Reconcile returns prior when its hash matches computed, and otherwise a
// fresh lock built by resolve. reused reports which happened.
func Reconcile(ctx context.Context, prior *LockFile, computed string, force bool, resolve ResolveFunc) (*LockFile, bool, error) {
	stored := ""
	if prior != nil {
		stored = prior.ConfigHash
	}
	if ShouldReuse(stored, computed, force) {
		return prior, true, nil
	}

	marketplaces, plugins, err := resolve(ctx)
	if err != nil {
		return nil, false, err
	}
	l := &LockFile{ConfigHash: computed, Marketplaces: marketplaces, Plugins: plugins}
	l.Sort()
	return l, false, nil
}
