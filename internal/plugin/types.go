package plugin

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metadata represents the .claude-plugin/plugin.json structure
type Metadata struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Author      *Author  `json:"author,omitempty"`
	Homepage    string   `json:"homepage,omitempty"`
	Repository  string   `json:"repository,omitempty"`
	License     string   `json:"license,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Author represents the plugin author information
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// ScopeKind is the installation layer of an entry.
type ScopeKind string

const (
	// ScopeUser is the single user-wide slot.
	ScopeUser ScopeKind = "user"
	// ScopeProject is one slot per canonical project directory.
	ScopeProject ScopeKind = "project"
)

// Scope identifies the slot an install entry occupies under its key.
type Scope struct {
	Kind ScopeKind
	// ProjectPath is the canonical project directory for project scope.
	ProjectPath string
}

// UserScope returns the user scope.
func UserScope() Scope {
	return Scope{Kind: ScopeUser}
}

// ProjectScope returns the scope for the canonical project directory dir.
func ProjectScope(dir string) Scope {
	return Scope{Kind: ScopeProject, ProjectPath: dir}
}

// Matches reports whether two scopes name the same slot.
func (s Scope) Matches(other Scope) bool {
	if s.Kind != other.Kind {
		return false
	}
	return s.Kind != ScopeProject || s.ProjectPath == other.ProjectPath
}

func (s Scope) String() string {
	if s.Kind == ScopeProject {
		return fmt.Sprintf("project(%s)", s.ProjectPath)
	}
	return string(s.Kind)
}

// InstallEntry is one element of an installed_plugins.json key.
type InstallEntry struct {
	Scope        Scope
	InstallPath  string
	Version      string
	InstalledAt  string
	LastUpdated  string
	GitCommitSha string
}

type installRecord struct {
	Scope        ScopeKind `json:"scope"`
	ProjectPath  string    `json:"projectPath,omitempty"`
	InstallPath  string    `json:"installPath"`
	Version      string    `json:"version"`
	InstalledAt  string    `json:"installedAt"`
	LastUpdated  string    `json:"lastUpdated"`
	GitCommitSha string    `json:"gitCommitSha"`
}

// MarshalJSON writes the registry element shape.
func (e InstallEntry) MarshalJSON() ([]byte, error) {
	rec := installRecord{
		Scope:        e.Scope.Kind,
		InstallPath:  e.InstallPath,
		Version:      e.Version,
		InstalledAt:  e.InstalledAt,
		LastUpdated:  e.LastUpdated,
		GitCommitSha: e.GitCommitSha,
	}
	if e.Scope.Kind == ScopeProject {
		rec.ProjectPath = e.Scope.ProjectPath
	}
	return json.Marshal(rec)
}

// UnmarshalJSON reads a registry element.
func (e *InstallEntry) UnmarshalJSON(data []byte) error {
	var rec installRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*e = InstallEntry{
		Scope:        Scope{Kind: rec.Scope, ProjectPath: rec.ProjectPath},
		InstallPath:  rec.InstallPath,
		Version:      rec.Version,
		InstalledAt:  rec.InstalledAt,
		LastUpdated:  rec.LastUpdated,
		GitCommitSha: rec.GitCommitSha,
	}
	return nil
}

// Key returns the installed_plugins.json key for a plugin.
func Key(pluginName, marketplaceName string) string {
	return pluginName + "@" + marketplaceName
}

// Timestamp formats t the way installed_plugins.json records times.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
