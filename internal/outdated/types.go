package outdated

// ItemType represents the type of checked item
type ItemType string

const (
	ItemMarketplace ItemType = "marketplace"
	ItemPlugin      ItemType = "plugin"
)

// Info describes the state of one unpinned item
type Info struct {
	Type    ItemType `json:"type" yaml:"type"`
	Name    string   `json:"name" yaml:"name"`
	Layer   string   `json:"layer" yaml:"layer"`
	Current string   `json:"current" yaml:"current"` // locked commit
	Remote  string   `json:"remote" yaml:"remote"`   // remote tip
	// HasUpdate is set when Remote differs from Current.
	HasUpdate bool `json:"hasUpdate" yaml:"hasUpdate"`
}

// Result contains the outcome of a check
type Result struct {
	Marketplaces []Info
	Plugins      []Info
	Errors       []error // per item; the check continues past them
}

// TotalUpdates returns the number of items with a newer remote tip
func (r *Result) TotalUpdates() int {
	count := 0
	for _, m := range r.Marketplaces {
		if m.HasUpdate {
			count++
		}
	}
	for _, p := range r.Plugins {
		if p.HasUpdate {
			count++
		}
	}
	return count
}

// Outdated returns the items with updates, marketplaces first
func (r *Result) Outdated() []Info {
	var out []Info
	for _, m := range r.Marketplaces {
		if m.HasUpdate {
			out = append(out, m)
		}
	}
	for _, p := range r.Plugins {
		if p.HasUpdate {
			out = append(out, p)
		}
	}
	return out
}

func (r *Result) merge(other *Result) {
	r.Marketplaces = append(r.Marketplaces, other.Marketplaces...)
	r.Plugins = append(r.Plugins, other.Plugins...)
	r.Errors = append(r.Errors, other.Errors...)
}
