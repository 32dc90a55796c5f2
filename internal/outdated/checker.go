// Package outdated compares locked commits of unpinned marketplaces and
// plugins with the current tips of their remotes.
package outdated

import (
	"context"
	"fmt"

	"github.com/DanSnow/skill-manager/internal/git"
	"github.com/DanSnow/skill-manager/internal/lockfile"
	"github.com/DanSnow/skill-manager/internal/logging"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/resolver"
)

// Layer is one manifest with its lock
type Layer struct {
	Name     string
	Manifest *manifest.Manifest
	Lock     *lockfile.LockFile
}

// Checker handles update checking logic
type Checker struct {
	git      git.Client
	resolver *resolver.Resolver
}

// NewChecker creates a new update checker. The resolver reads listings of
// locked marketplace commits to find external plugin repositories.
func NewChecker(client git.Client, r *resolver.Resolver) *Checker {
	return &Checker{git: client, resolver: r}
}

// CheckAll checks every layer that has a lock
func (c *Checker) CheckAll(ctx context.Context, layers ...Layer) *Result {
	result := &Result{}
	for _, l := range layers {
		if l.Manifest == nil || l.Lock == nil {
			continue
		}
		result.merge(c.Check(ctx, l))
	}
	return result
}

// Check inspects one layer. Pinned items are never outdated and are not
// reported.
func (c *Checker) Check(ctx context.Context, l Layer) *Result {
	result := &Result{}
	heads := make(map[string]string)

	for _, m := range l.Lock.Marketplaces {
		entry, ok := l.Manifest.Marketplaces[m.Name]
		if !ok || entry.Tag != "" || entry.Commit != "" {
			continue
		}
		remote, err := c.remoteHead(ctx, heads, manifest.ExpandURL(m.URL))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("marketplace %s: %w", m.Name, err))
			continue
		}
		result.Marketplaces = append(result.Marketplaces, info(ItemMarketplace, m.Name, l.Name, m.Commit, remote))
	}

	for _, p := range l.Lock.Plugins {
		entry, ok := l.Manifest.Plugins[p.Name]
		if !ok || entry.Pinned() {
			continue
		}
		mkt, ok := l.Lock.Marketplace(p.Marketplace)
		if !ok {
			continue
		}

		pctx := logging.WithPlugin(logging.WithMarketplace(ctx, mkt.Name), p.Name)
		url, err := c.pluginURL(pctx, l.Manifest, mkt, p)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("plugin %s: %w", p.Key(), err))
			continue
		}
		if url == "" {
			continue
		}
		remote, err := c.remoteHead(pctx, heads, url)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("plugin %s: %w", p.Key(), err))
			continue
		}
		result.Plugins = append(result.Plugins, info(ItemPlugin, p.Key(), l.Name, p.PluginCommit, remote))
	}

	return result
}

// pluginURL returns the repository whose default tip an unpinned plugin
// follows. Local plugins follow their marketplace. Plugins whose
// marketplace or listing pins them return "".
func (c *Checker) pluginURL(ctx context.Context, m *manifest.Manifest, mkt lockfile.Marketplace, p lockfile.Plugin) (string, error) {
	if p.SourceType == lockfile.SourceLocal {
		if entry := m.Marketplaces[mkt.Name]; entry.Tag != "" || entry.Commit != "" {
			return "", nil
		}
		return manifest.ExpandURL(mkt.URL), nil
	}

	if err := c.resolver.EnsureCommit(ctx, c.resolver.MarketplaceRepo(mkt.Name, mkt.URL), p.MarketplaceCommit); err != nil {
		return "", err
	}
	listing, err := c.resolver.Listing(ctx, mkt, p.MarketplaceCommit)
	if err != nil {
		return "", err
	}
	pe, err := listing.FindPlugin(mkt.Name, p.Name)
	if err != nil {
		return "", err
	}
	if pe.Source.SHA != "" || pe.Source.Ref != "" {
		return "", nil
	}
	return pe.Source.CloneURL(), nil
}

func (c *Checker) remoteHead(ctx context.Context, heads map[string]string, url string) (string, error) {
	if h, ok := heads[url]; ok {
		return h, nil
	}
	logging.FromContext(ctx).Debug().Str("url", url).Msg("checking remote head")
	h, err := c.git.RemoteHead(ctx, url)
	if err != nil {
		return "", err
	}
	heads[url] = h
	return h, nil
}

func info(t ItemType, name, layer, current, remote string) Info {
	return Info{
		Type:      t,
		Name:      name,
		Layer:     layer,
		Current:   resolver.ShortCommit(current),
		Remote:    resolver.ShortCommit(remote),
		HasUpdate: current != remote,
	}
}
