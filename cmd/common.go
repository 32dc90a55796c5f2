package cmd

import (
	"context"
	"os"

	"github.com/DanSnow/skill-manager/internal/cache"
	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/git"
	"github.com/DanSnow/skill-manager/internal/i18n"
	"github.com/DanSnow/skill-manager/internal/lockfile"
	"github.com/DanSnow/skill-manager/internal/logging"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/marketplace"
	"github.com/DanSnow/skill-manager/internal/resolver"
)

// manifestPath returns the global manifest or the one of the working directory
func manifestPath(global bool) (string, error) {
	if global {
		return manifest.GlobalPath(), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapIO("getwd", ".", err)
	}
	return manifest.ProjectPath(cwd), nil
}

// loadManifest reads the manifest at path, pointing at init when it is missing
func loadManifest(path string) (*manifest.Manifest, error) {
	m, err := manifest.LoadIfExists(path)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NewConfigError(path, i18n.T("ManifestMissing", map[string]any{"Path": path}), nil)
	}
	return m, nil
}

type layerFiles struct {
	Name     string
	Path     string
	Manifest *manifest.Manifest
	Lock     *lockfile.LockFile
}

// loadLayers reads the global and project manifests with their locks.
// Missing manifests are skipped.
func loadLayers() ([]layerFiles, error) {
	project, err := manifestPath(false)
	if err != nil {
		return nil, err
	}

	var layers []layerFiles
	for _, l := range []struct{ name, path string }{{"global", manifest.GlobalPath()}, {"project", project}} {
		m, err := manifest.LoadIfExists(l.path)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		lock, err := lockfile.Load(manifest.LockPath(l.path))
		if err != nil {
			return nil, err
		}
		layers = append(layers, layerFiles{Name: l.name, Path: l.path, Manifest: m, Lock: lock})
	}
	return layers, nil
}

func newResolver() (*resolver.Resolver, git.Client) {
	client := git.NewClient()
	c := cache.New(appConfig.CacheDir, client)
	return resolver.New(client, c.MarketplacesDir(), c.PluginReposDir()), client
}

// loadListings resolves every marketplace of m and reads its listing.
// Marketplaces that fail are logged and left out.
func loadListings(ctx context.Context, m *manifest.Manifest) map[string]*marketplace.Listing {
	r, _ := newResolver()
	listings := make(map[string]*marketplace.Listing)

	for _, name := range m.MarketplaceNames() {
		mctx := logging.WithMarketplace(ctx, name)
		mkt, err := r.ResolveMarketplace(mctx, name, m.Marketplaces[name])
		if err != nil {
			logging.FromContext(mctx).Warn().Err(err).Msg("skipping marketplace")
			continue
		}
		listing, err := r.Listing(mctx, mkt, mkt.Commit)
		if err != nil {
			logging.FromContext(mctx).Warn().Err(err).Msg("skipping marketplace")
			continue
		}
		listings[name] = listing
	}
	return listings
}
