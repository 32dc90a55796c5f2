package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// NormalizedMarketplace is a marketplace with its canonical URL.
type NormalizedMarketplace struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Tag    string `json:"tag,omitempty"`
	Commit string `json:"commit,omitempty"`
}

// NormalizedPlugin is a plugin declaration in canonical form.
type NormalizedPlugin struct {
	Name        string `json:"name"`
	Marketplace string `json:"marketplace"`
	Tag         string `json:"tag,omitempty"`
	Commit      string `json:"commit,omitempty"`
}

// Normalized is the order-independent form of a manifest and the only value
// that is ever hashed.
type Normalized struct {
	Marketplaces []NormalizedMarketplace `json:"marketplaces"`
	Plugins      []NormalizedPlugin      `json:"plugins"`
}

// Normalize sorts every mapping by key and expands marketplace URLs.
// Empty pins are dropped, so an absent and an empty tag are the same.
func Normalize(m *Manifest) Normalized {
	n := Normalized{
		Marketplaces: make([]NormalizedMarketplace, 0, len(m.Marketplaces)),
		Plugins:      make([]NormalizedPlugin, 0, len(m.Plugins)),
	}
	for _, name := range m.MarketplaceNames() {
		e := m.Marketplaces[name]
		n.Marketplaces = append(n.Marketplaces, NormalizedMarketplace{
			Name:   name,
			URL:    ExpandURL(e.URL),
			Tag:    e.Tag,
			Commit: e.Commit,
		})
	}
	for _, name := range m.PluginNames() {
		e := m.Plugins[name]
		n.Plugins = append(n.Plugins, NormalizedPlugin{
			Name:        name,
			Marketplace: e.Marketplace,
			Tag:         e.Tag,
			Commit:      e.Commit,
		})
	}
	return n
}

// Hash returns the 16 character lowercase hex xxhash64 of the canonical
// JSON encoding.
func (n Normalized) Hash() string {
	// Struct fields encode in declaration order and slices are pre-sorted.
	data, err := json.Marshal(n)
	if err != nil {
		panic(fmt.Sprintf("manifest: encoding normalized manifest: %v", err))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// HashManifest is Normalize followed by Hash.
func HashManifest(m *Manifest) string {
	return Normalize(m).Hash()
}
