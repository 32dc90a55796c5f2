package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/jsondoc"
)

const (
	// RegistryVersion is the format version of installed_plugins.json.
	RegistryVersion = 2

	registryName = "installed_plugins.json"

	emptyRegistry = "{\n  \"version\": 2,\n  \"plugins\": {}\n}\n"
)

// MergeInstall writes entry into the slot of key matching its scope. At most
// one existing element with the same scope identity is replaced, keeping its
// installedAt. Elements of other scopes and other keys keep their bytes.
func MergeInstall(doc []byte, key string, entry InstallEntry) ([]byte, error) {
	if jsondoc.Empty(doc) {
		doc = []byte(emptyRegistry)
	}
	if err := jsondoc.Check(registryName, doc); err != nil {
		return nil, err
	}
	if plugins := gjson.GetBytes(doc, "plugins"); plugins.Exists() && !plugins.IsObject() {
		return nil, errors.WrapFormat(registryName, errors.New("plugins is not an object"))
	}

	var elements [][]byte
	replaced := false
	for _, el := range Elements(doc, key) {
		if !replaced && elementScope(el).Matches(entry.Scope) {
			if at := el.Get("installedAt").String(); at != "" {
				entry.InstalledAt = at
			}
			encoded, err := jsondoc.Encode(doc, entry, 3)
			if err != nil {
				return nil, errors.WrapFormat(registryName, err)
			}
			elements = append(elements, encoded)
			replaced = true
			continue
		}
		elements = append(elements, []byte(el.Raw))
	}
	if !replaced {
		encoded, err := jsondoc.Encode(doc, entry, 3)
		if err != nil {
			return nil, errors.WrapFormat(registryName, err)
		}
		elements = append(elements, encoded)
	}

	out, err := jsondoc.SetMember(doc, "plugins", key, jsondoc.Array(doc, elements, 2), 2)
	if err != nil {
		return nil, errors.WrapFormat(registryName, err)
	}
	return out, nil
}

// Elements returns the install entries stored under key. A legacy single
// object value is returned as a one element list.
func Elements(doc []byte, key string) []gjson.Result {
	value := jsondoc.Get(doc, "plugins", key)
	switch {
	case value.IsArray():
		return value.Array()
	case value.IsObject():
		return []gjson.Result{value}
	default:
		return nil
	}
}

// Entries decodes the install entries stored under key.
func Entries(doc []byte, key string) ([]InstallEntry, error) {
	var out []InstallEntry
	for _, el := range Elements(doc, key) {
		var e InstallEntry
		if err := json.Unmarshal([]byte(el.Raw), &e); err != nil {
			return nil, errors.WrapFormat(registryName, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func elementScope(el gjson.Result) Scope {
	kind := ScopeKind(el.Get("scope").String())
	if kind == ScopeProject {
		p := el.Get("projectPath").String()
		if p != "" {
			p = filepath.Clean(p)
		}
		return ProjectScope(p)
	}
	return Scope{Kind: kind}
}

// CanonicalProjectPath returns dir as an absolute, cleaned path with
// symlinks resolved. A directory that cannot be resolved is returned cleaned.
func CanonicalProjectPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.WrapIO("resolve", dir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", errors.WrapIO("resolve", abs, err)
	}
	return filepath.Clean(resolved), nil
}
