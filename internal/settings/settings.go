// Package settings edits Claude's settings.json. Only the enabledPlugins
// slot of a plugin key is ever written.
package settings

import (
	"github.com/tidwall/gjson"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/jsondoc"
)

const (
	fileName = "settings.json"

	// EnabledPluginsKey is the settings member listing enabled plugins.
	EnabledPluginsKey = "enabledPlugins"
)

// EnablePlugin sets enabledPlugins.<key> to true. changed is false when the
// plugin was already enabled, in which case doc is returned as is.
func EnablePlugin(doc []byte, key string) ([]byte, bool, error) {
	if jsondoc.Empty(doc) {
		doc = []byte("{}\n")
	}
	if err := jsondoc.Check(fileName, doc); err != nil {
		return nil, false, err
	}
	if enabled := gjson.GetBytes(doc, EnabledPluginsKey); enabled.Exists() && !enabled.IsObject() {
		return nil, false, errors.WrapFormat(fileName, errors.New("enabledPlugins is not an object"))
	}
	if IsEnabled(doc, key) {
		return doc, false, nil
	}

	out, err := jsondoc.SetMember(doc, EnabledPluginsKey, key, []byte("true"), 2)
	if err != nil {
		return nil, false, errors.WrapFormat(fileName, err)
	}
	return out, true, nil
}

// IsEnabled reports whether enabledPlugins.<key> is true.
func IsEnabled(doc []byte, key string) bool {
	v := jsondoc.Get(doc, EnabledPluginsKey, key)
	return v.Type == gjson.True
}

// EnabledPlugins returns the keys set to true in enabledPlugins.
func EnabledPlugins(doc []byte) []string {
	var keys []string
	gjson.GetBytes(doc, EnabledPluginsKey).ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.True {
			keys = append(keys, k.String())
		}
		return true
	})
	return keys
}
