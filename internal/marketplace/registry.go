package marketplace

import (
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/jsondoc"
)

// KnownMarketplace represents an entry in known_marketplaces.json
type KnownMarketplace struct {
	Source          MarketplaceSource `json:"source"`
	InstallLocation string            `json:"installLocation"`
	LastUpdated     string            `json:"lastUpdated"`
}

// MarketplaceSource describes the source of a marketplace
type MarketplaceSource struct {
	Source string `json:"source"` // "git", "github", "directory"
	URL    string `json:"url,omitempty"`
	Repo   string `json:"repo,omitempty"`
	Path   string `json:"path,omitempty"`
}

// DirectoryEntry builds the entry written for a marketplace checked out at dir.
func DirectoryEntry(dir, lastUpdated string) KnownMarketplace {
	return KnownMarketplace{
		Source:          MarketplaceSource{Source: "directory", Path: dir},
		InstallLocation: dir,
		LastUpdated:     lastUpdated,
	}
}

// Outcome reports what MergeMarketplace did with an entry.
type Outcome int

const (
	// OutcomeInserted means no entry existed under the name.
	OutcomeInserted Outcome = iota
	// OutcomeReplaced means an entry this tool owns was rewritten.
	OutcomeReplaced
	// OutcomeUnchanged means the owned entry already matched.
	OutcomeUnchanged
	// OutcomeForeign means the name belongs to an entry this tool did not
	// create; it was left untouched.
	OutcomeForeign
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeReplaced:
		return "replaced"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "foreign"
	}
}

// MergeMarketplace upserts entry under name in a known_marketplaces.json
// document. Only entries whose source is a directory inside cacheRoot are
// considered owned and may be replaced. Every other byte of doc is kept.
func MergeMarketplace(doc []byte, name, cacheRoot string, entry KnownMarketplace) ([]byte, Outcome, error) {
	if jsondoc.Empty(doc) {
		doc = []byte("{}\n")
	}
	if err := jsondoc.Check("known_marketplaces.json", doc); err != nil {
		return nil, 0, err
	}

	existing := jsondoc.Get(doc, "", name)
	outcome := OutcomeInserted
	if existing.Exists() {
		if !Owned(existing, cacheRoot) {
			return doc, OutcomeForeign, nil
		}
		if sameLocation(existing, entry) {
			return doc, OutcomeUnchanged, nil
		}
		outcome = OutcomeReplaced
	}

	value, err := jsondoc.Encode(doc, entry, 1)
	if err != nil {
		return nil, 0, errors.WrapFormat("known_marketplaces.json", err)
	}
	out, err := jsondoc.SetMember(doc, "", name, value, 1)
	if err != nil {
		return nil, 0, errors.WrapFormat("known_marketplaces.json", err)
	}
	return out, outcome, nil
}

// Owned reports whether a registry entry was written by this tool: a
// directory source pointing inside cacheRoot.
func Owned(entry gjson.Result, cacheRoot string) bool {
	if !entry.IsObject() || entry.Get("source.source").String() != "directory" {
		return false
	}
	p := entry.Get("source.path").String()
	if p == "" || cacheRoot == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(cacheRoot), filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func sameLocation(existing gjson.Result, entry KnownMarketplace) bool {
	return existing.Get("source.path").String() == entry.Source.Path &&
		existing.Get("installLocation").String() == entry.InstallLocation &&
		existing.Get("source.url").String() == entry.Source.URL &&
		existing.Get("source.repo").String() == entry.Source.Repo
}
