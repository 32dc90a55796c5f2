package resolver

import (
	"encoding/json"
	"io/fs"
	"strings"

	"github.com/DanSnow/skill-manager/internal/marketplace"
	"github.com/DanSnow/skill-manager/internal/plugin"
)

// ShortCommitLength is the length of the commit prefix used as a fallback
// version.
const ShortCommitLength = 7

// ShortCommit returns the fallback version for commit.
func ShortCommit(commit string) string {
	if len(commit) > ShortCommitLength {
		return commit[:ShortCommitLength]
	}
	return commit
}

// ReadVersion reads the version of .claude-plugin/plugin.json in fsys. A
// missing or unreadable document, or an empty version, yields the short
// form of fallbackCommit.
func ReadVersion(fsys fs.FS, fallbackCommit string) string {
	data, err := fs.ReadFile(fsys, marketplace.PluginMetadataPath("."))
	if err != nil {
		return ShortCommit(fallbackCommit)
	}
	return VersionOf(data, fallbackCommit)
}

// VersionOf extracts the version from plugin.json content.
func VersionOf(data []byte, fallbackCommit string) string {
	var meta plugin.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return ShortCommit(fallbackCommit)
	}
	if v := strings.TrimSpace(meta.Version); v != "" {
		return v
	}
	return ShortCommit(fallbackCommit)
}
