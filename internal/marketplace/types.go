package marketplace

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Listing represents the .claude-plugin/marketplace.json structure
type Listing struct {
	Name     string           `json:"name"`
	Owner    Owner            `json:"owner"`
	Metadata *ListingMetadata `json:"metadata,omitempty"`
	Plugins  []PluginEntry    `json:"plugins"`
}

// Owner represents the marketplace owner information
type Owner struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ListingMetadata contains optional metadata for the marketplace
type ListingMetadata struct {
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	PluginRoot  string `json:"pluginRoot,omitempty"`
}

// PluginEntry represents a plugin entry in the marketplace
type PluginEntry struct {
	Name        string       `json:"name"`
	Source      PluginSource `json:"source"`
	Version     string       `json:"version,omitempty"`
	Description string       `json:"description,omitempty"`
	Author      *Owner       `json:"author,omitempty"`
	Homepage    string       `json:"homepage,omitempty"`
	Repository  string       `json:"repository,omitempty"`
	License     string       `json:"license,omitempty"`
	Keywords    []string     `json:"keywords,omitempty"`
	Category    string       `json:"category,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Strict      bool         `json:"strict,omitempty"`
}

// SourceKind classifies where a plugin's content lives.
type SourceKind int

const (
	// SourceLocal is a directory inside the marketplace repository.
	SourceLocal SourceKind = iota
	// SourceGitHub is a separate GitHub repository given as owner/repo.
	SourceGitHub
	// SourceGit is a separate repository given by clone URL.
	SourceGit
)

func (k SourceKind) String() string {
	switch k {
	case SourceLocal:
		return "local"
	case SourceGitHub:
		return "github"
	default:
		return "git"
	}
}

// PluginSource is either a path string (local) or an object naming an
// external repository.
type PluginSource struct {
	Kind SourceKind
	// Path is relative to the marketplace root for local sources.
	Path string
	// Repo is owner/repo for GitHub sources.
	Repo string
	// URL is the clone URL for git sources.
	URL string
	// Ref and SHA are default pins suggested by the listing.
	Ref string
	SHA string
}

type rawSource struct {
	Source string `json:"source"`
	Path   string `json:"path"`
	Repo   string `json:"repo"`
	URL    string `json:"url"`
	Ref    string `json:"ref"`
	SHA    string `json:"sha"`
}

// UnmarshalJSON decodes the string form before the object form.
func (s *PluginSource) UnmarshalJSON(data []byte) error {
	var p string
	if err := json.Unmarshal(data, &p); err == nil {
		*s = PluginSource{Kind: SourceLocal, Path: p}
		return nil
	}

	var raw rawSource
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("source must be a path string or an object: %w", err)
	}

	switch raw.Source {
	case "", "local", "directory":
		if raw.Path == "" {
			return fmt.Errorf("local source requires path")
		}
		*s = PluginSource{Kind: SourceLocal, Path: raw.Path}
	case "github":
		if raw.Repo == "" {
			return fmt.Errorf("github source requires repo")
		}
		*s = PluginSource{Kind: SourceGitHub, Repo: raw.Repo, Ref: raw.Ref, SHA: raw.SHA}
	case "url", "git":
		if raw.URL == "" {
			return fmt.Errorf("%s source requires url", raw.Source)
		}
		*s = PluginSource{Kind: SourceGit, URL: raw.URL, Ref: raw.Ref, SHA: raw.SHA}
	default:
		return fmt.Errorf("unsupported source type %q", raw.Source)
	}
	return nil
}

// MarshalJSON writes the shape UnmarshalJSON accepts.
func (s PluginSource) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SourceLocal:
		return json.Marshal(s.Path)
	case SourceGitHub:
		return json.Marshal(rawSourceOut{Source: "github", Repo: s.Repo, Ref: s.Ref, SHA: s.SHA})
	default:
		return json.Marshal(rawSourceOut{Source: "url", URL: s.URL, Ref: s.Ref, SHA: s.SHA})
	}
}

type rawSourceOut struct {
	Source string `json:"source"`
	Repo   string `json:"repo,omitempty"`
	URL    string `json:"url,omitempty"`
	Ref    string `json:"ref,omitempty"`
	SHA    string `json:"sha,omitempty"`
}

// IsExternal reports whether the plugin lives in its own repository.
func (s PluginSource) IsExternal() bool {
	return s.Kind != SourceLocal
}

// CloneURL returns the URL to clone an external source from.
func (s PluginSource) CloneURL() string {
	switch s.Kind {
	case SourceGitHub:
		return "https://github.com/" + strings.TrimSuffix(s.Repo, ".git") + ".git"
	case SourceGit:
		return s.URL
	default:
		return ""
	}
}

// LocalPath returns the cleaned slash separated path of a local source,
// prefixed with pluginRoot when the listing sets one. ok is false when the
// path escapes the repository.
func (l *Listing) LocalPath(s PluginSource) (string, bool) {
	p := s.Path
	if l.Metadata != nil && l.Metadata.PluginRoot != "" && !strings.HasPrefix(p, "/") {
		p = path.Join(l.Metadata.PluginRoot, p)
	}
	if strings.HasPrefix(p, "/") {
		return "", false
	}
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}
