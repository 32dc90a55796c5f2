// Package conflict finds plugins declared with different pins in the global
// and project manifests and turns per-conflict decisions into a plan. Every
// decision is taken before anything is written.
package conflict

import (
	"context"
	"fmt"
	"sort"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/plugin"
)

// Pin is the effective version selector of a declaration.
type Pin struct {
	Tag    string
	Commit string
}

func (p Pin) String() string {
	switch {
	case p.Commit != "":
		return "commit " + p.Commit
	case p.Tag != "":
		return p.Tag
	default:
		return "latest"
	}
}

// Declaration is one plugin as declared by a layer.
type Declaration struct {
	Plugin      string
	Marketplace string
	Pin         Pin
}

// Key returns the <plugin>@<marketplace> identity.
func (d Declaration) Key() string {
	return plugin.Key(d.Plugin, d.Marketplace)
}

// Layer is the set of declarations of one manifest.
type Layer struct {
	// Name labels the layer in prompts, e.g. "global" or "project".
	Name    string
	Scope   plugin.Scope
	Plugins map[string]Declaration
}

// NewLayer indexes the plugins of m by key.
func NewLayer(name string, scope plugin.Scope, m *manifest.Manifest) Layer {
	l := Layer{Name: name, Scope: scope, Plugins: make(map[string]Declaration)}
	if m == nil {
		return l
	}
	for pluginName, e := range m.Plugins {
		d := Declaration{
			Plugin:      pluginName,
			Marketplace: e.Marketplace,
			Pin:         Pin{Tag: e.Tag, Commit: e.Commit},
		}
		l.Plugins[d.Key()] = d
	}
	return l
}

// Conflict is a plugin declared in both layers with different pins.
type Conflict struct {
	Key   string
	Base  Declaration
	Other Declaration
	// BaseLayer and OtherLayer name the layers for display.
	BaseLayer  string
	OtherLayer string
}

// Detect reports a conflict when base and other name the same plugin with
// different pins.
func Detect(base, other Declaration) (*Conflict, bool) {
	if base.Key() != other.Key() || base.Pin == other.Pin {
		return nil, false
	}
	return &Conflict{Key: base.Key(), Base: base, Other: other}, true
}

// DetectAll returns every conflict between two layers, sorted by key.
func DetectAll(base, other Layer) []Conflict {
	var out []Conflict
	for key, b := range base.Plugins {
		o, ok := other.Plugins[key]
		if !ok {
			continue
		}
		if c, found := Detect(b, o); found {
			c.BaseLayer = base.Name
			c.OtherLayer = other.Name
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// CheckMarketplaces rejects a marketplace declared in both manifests with
// different URLs; both would share one clone.
func CheckMarketplaces(base, other *manifest.Manifest) error {
	if base == nil || other == nil {
		return nil
	}
	for _, name := range base.MarketplaceNames() {
		o, ok := other.Marketplaces[name]
		if !ok {
			continue
		}
		b := base.Marketplaces[name]
		if manifest.ExpandURL(b.URL) != manifest.ExpandURL(o.URL) {
			return errors.NewConfigError(other.Path, fmt.Sprintf(
				"marketplace '%s' is declared with url '%s' globally and '%s' in the project", name, b.URL, o.URL), nil)
		}
		// Both layers share one checkout of the marketplace.
		basePin, otherPin := Pin{Tag: b.Tag, Commit: b.Commit}, Pin{Tag: o.Tag, Commit: o.Commit}
		if basePin != otherPin {
			return errors.NewConfigError(other.Path, fmt.Sprintf(
				"marketplace '%s' is pinned to %s globally and %s in the project", name, basePin, otherPin), nil)
		}
	}
	return nil
}

// Policy selects how conflicts are decided.
type Policy int

const (
	// Interactive asks the user for every conflict.
	Interactive Policy = iota
	// PreferBase keeps the global pin and skips the project declaration.
	PreferBase
	// PreferOther adopts the project pin into the global manifest.
	PreferOther
)

// Decision is the terminal state of a detected conflict.
type Decision int

const (
	// Adopted writes the other layer's pin into the base layer.
	Adopted Decision = iota + 1
	// Skipped keeps the base pin; the other declaration is not installed.
	Skipped
	// Aborted ends the run without side effects.
	Aborted
)

func (d Decision) String() string {
	switch d {
	case Adopted:
		return "adopted"
	case Skipped:
		return "skipped"
	case Aborted:
		return "aborted"
	default:
		return "detected"
	}
}

// Decider decides a single conflict.
type Decider interface {
	Decide(ctx context.Context, c Conflict) (Decision, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, c Conflict) (Decision, error)

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, c Conflict) (Decision, error) {
	return f(ctx, c)
}

// PolicyDecider answers every conflict the same way.
type PolicyDecider struct {
	Policy Policy
}

// Decide implements Decider.
func (d PolicyDecider) Decide(_ context.Context, c Conflict) (Decision, error) {
	switch d.Policy {
	case PreferBase:
		return Skipped, nil
	case PreferOther:
		return Adopted, nil
	default:
		return 0, errors.NewConfigError("", fmt.Sprintf(
			"%s is pinned to %s globally and %s in the project; use --prefer-global or --prefer-project",
			c.Key, c.Base.Pin, c.Other.Pin), nil)
	}
}

// Resolution is a decided conflict.
type Resolution struct {
	Conflict
	Decision Decision
}

// Plan holds the decisions of a run.
type Plan struct {
	Resolutions []Resolution
}

// Resolve decides every conflict in order. The first Aborted decision ends
// resolution with a ConflictAbortError and no plan.
func Resolve(ctx context.Context, conflicts []Conflict, decider Decider) (Plan, error) {
	var plan Plan
	for _, c := range conflicts {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		d, err := decider.Decide(ctx, c)
		if err != nil {
			return Plan{}, err
		}
		if d == Aborted {
			return Plan{}, &errors.ConflictAbortError{Key: c.Key}
		}
		if d != Adopted && d != Skipped {
			return Plan{}, fmt.Errorf("conflict %s: invalid decision %d", c.Key, d)
		}
		plan.Resolutions = append(plan.Resolutions, Resolution{Conflict: c, Decision: d})
	}
	return plan, nil
}

// Adopted returns the resolutions that change the base manifest.
func (p Plan) Adopted() []Resolution {
	var out []Resolution
	for _, r := range p.Resolutions {
		if r.Decision == Adopted {
			out = append(out, r)
		}
	}
	return out
}

// Skipped reports whether the other layer's declaration of key is skipped.
func (p Plan) Skipped(key string) bool {
	for _, r := range p.Resolutions {
		if r.Key == key && r.Decision == Skipped {
			return true
		}
	}
	return false
}

// Apply returns the effective manifests: adopted pins replace the base
// pins, and skipped declarations are dropped from other. The inputs are not
// modified.
func (p Plan) Apply(base, other *manifest.Manifest) (*manifest.Manifest, *manifest.Manifest) {
	if base != nil {
		base = base.Clone()
	}
	if other != nil {
		other = other.Clone()
	}
	for _, r := range p.Resolutions {
		switch r.Decision {
		case Adopted:
			if base != nil {
				base.Plugins[r.Base.Plugin] = manifest.PluginEntry{
					Marketplace: r.Other.Marketplace,
					Tag:         r.Other.Pin.Tag,
					Commit:      r.Other.Pin.Commit,
				}
			}
		case Skipped:
			if other != nil {
				delete(other.Plugins, r.Other.Plugin)
			}
		}
	}
	return base, other
}
