// Package installer runs an install: it loads the global and project
// manifests, settles conflicts between them, reconciles each lock, and then
// materializes plugins into the cache and Claude Code's documents. Every
// decision and resolution happens before the first write.
package installer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/DanSnow/skill-manager/internal/cache"
	"github.com/DanSnow/skill-manager/internal/config"
	"github.com/DanSnow/skill-manager/internal/conflict"
	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/fsutil"
	"github.com/DanSnow/skill-manager/internal/git"
	"github.com/DanSnow/skill-manager/internal/lockfile"
	"github.com/DanSnow/skill-manager/internal/logging"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/marketplace"
	"github.com/DanSnow/skill-manager/internal/plugin"
	"github.com/DanSnow/skill-manager/internal/resolver"
	"github.com/DanSnow/skill-manager/internal/settings"
)

const (
	// GlobalLayer names the user-wide manifest.
	GlobalLayer = "global"
	// ProjectLayer names the manifest of the working directory.
	ProjectLayer = "project"
)

// Options controls a run.
type Options struct {
	// GlobalManifest is the path of the global plugins.toml.
	GlobalManifest string
	// ProjectDir is the project root; its manifest is <dir>/.claude/plugins.toml.
	ProjectDir string
	// Update re-resolves even when the lock hash matches.
	Update bool
	// Decider settles conflicts between the layers.
	Decider conflict.Decider
}

// Installer wires the resolver, cache and document writers.
type Installer struct {
	cfg      *config.Config
	cache    *cache.Cache
	resolver *resolver.Resolver
	now      func() time.Time
}

// New creates an installer using cfg's cache and Claude directories.
func New(cfg *config.Config, client git.Client) *Installer {
	c := cache.New(cfg.CacheDir, client)
	return &Installer{
		cfg:      cfg,
		cache:    c,
		resolver: resolver.New(client, c.MarketplacesDir(), c.PluginReposDir()),
		now:      time.Now,
	}
}

// Installed describes a plugin written to the install registry.
type Installed struct {
	Key         string
	Version     string
	Commit      string
	Scope       plugin.Scope
	InstallPath string
}

// LayerReport summarizes one layer of a run.
type LayerReport struct {
	Name     string
	Manifest string
	Lock     string
	// Reused is true when the stored lock matched the manifest hash.
	Reused    bool
	Installed []Installed
}

// Report summarizes a run.
type Report struct {
	Layers       []LayerReport
	Plan         conflict.Plan
	Marketplaces map[string]marketplace.Outcome
}

type layer struct {
	name     string
	scope    plugin.Scope
	path     string
	file     *manifest.Manifest
	effect   *manifest.Manifest
	lock     *lockfile.LockFile
	reused   bool
	lockPath string
}

// Run performs an install.
func (in *Installer) Run(ctx context.Context, opts Options) (*Report, error) {
	log := logging.FromContext(ctx)

	layers, err := in.load(opts)
	if err != nil {
		return nil, err
	}

	plan, err := in.plan(ctx, layers, opts.Decider)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, l := range layers {
		if err := in.reconcile(ctx, l, opts.Update); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	docs, err := in.readDocuments()
	if err != nil {
		return nil, err
	}

	report := &Report{Plan: plan, Marketplaces: make(map[string]marketplace.Outcome)}
	for _, l := range layers {
		lr, err := in.materialize(ctx, l, plan, docs, report)
		if err != nil {
			return nil, err
		}
		report.Layers = append(report.Layers, lr)
	}

	if err := in.writeManifest(layers, plan); err != nil {
		return nil, err
	}
	for _, l := range layers {
		if l.reused {
			continue
		}
		log.Info().Str("layer", l.name).Str("path", l.lockPath).Msg("writing lock")
		if err := lockfile.Save(l.lockPath, l.lock); err != nil {
			return nil, err
		}
	}
	if err := docs.write(); err != nil {
		return nil, err
	}
	return report, nil
}

// load reads and validates the manifests. At least one must exist.
func (in *Installer) load(opts Options) ([]*layer, error) {
	var layers []*layer

	global, err := manifest.LoadIfExists(opts.GlobalManifest)
	if err != nil {
		return nil, err
	}
	if global != nil {
		layers = append(layers, &layer{name: GlobalLayer, scope: plugin.UserScope(), path: opts.GlobalManifest, file: global})
	}

	if opts.ProjectDir != "" {
		path := manifest.ProjectPath(opts.ProjectDir)
		project, err := manifest.LoadIfExists(path)
		if err != nil {
			return nil, err
		}
		if project != nil {
			dir, err := plugin.CanonicalProjectPath(opts.ProjectDir)
			if err != nil {
				return nil, errors.WrapIO("resolve", opts.ProjectDir, err)
			}
			layers = append(layers, &layer{name: ProjectLayer, scope: plugin.ProjectScope(dir), path: path, file: project})
		}
	}

	if len(layers) == 0 {
		return nil, errors.NewConfigError(opts.GlobalManifest, "no plugins.toml found; run 'skill-manager init' first", nil)
	}
	for _, l := range layers {
		if err := l.file.Validate(); err != nil {
			return nil, err
		}
		l.effect = l.file
		l.lockPath = manifest.LockPath(l.path)
	}
	if len(layers) == 2 {
		if err := conflict.CheckMarketplaces(layers[0].file, layers[1].file); err != nil {
			return nil, err
		}
	}
	return layers, nil
}

// plan decides every conflict. Adopted pins become part of the global
// layer's effective manifest; the project layer keeps its file as is and
// skipped keys are filtered when materializing.
func (in *Installer) plan(ctx context.Context, layers []*layer, decider conflict.Decider) (conflict.Plan, error) {
	if len(layers) < 2 {
		return conflict.Plan{}, nil
	}
	base, other := layers[0], layers[1]
	conflicts := conflict.DetectAll(
		conflict.NewLayer(base.name, base.scope, base.file),
		conflict.NewLayer(other.name, other.scope, other.file),
	)
	if len(conflicts) == 0 {
		return conflict.Plan{}, nil
	}
	if decider == nil {
		decider = conflict.PolicyDecider{Policy: conflict.Interactive}
	}

	plan, err := conflict.Resolve(ctx, conflicts, decider)
	if err != nil {
		return conflict.Plan{}, err
	}
	for _, r := range plan.Resolutions {
		logging.FromContext(ctx).Info().Str("plugin", r.Key).Str("decision", r.Decision.String()).Msg("conflict decided")
	}
	base.effect, _ = plan.Apply(base.file, nil)
	return plan, nil
}

// reconcile reuses or recomputes the lock of l. Resolution continues past
// failures so every problem is reported; plugins of a failed marketplace are
// not attempted.
func (in *Installer) reconcile(ctx context.Context, l *layer, update bool) error {
	log := logging.FromContext(ctx).With().Str("layer", l.name).Logger()
	ctx = logging.WithLogger(ctx, &log)

	prior, err := lockfile.Load(l.lockPath)
	if err != nil {
		return err
	}
	hash := manifest.HashManifest(l.effect)

	lock, reused, err := lockfile.Reconcile(ctx, prior, hash, update, func(ctx context.Context) ([]lockfile.Marketplace, []lockfile.Plugin, error) {
		return in.resolveAll(ctx, l.effect)
	})
	if err != nil {
		return err
	}
	if reused {
		log.Info().Str("lock", l.lockPath).Msg("using locked versions")
	}
	l.lock = lock
	l.reused = reused
	return nil
}

func (in *Installer) resolveAll(ctx context.Context, m *manifest.Manifest) ([]lockfile.Marketplace, []lockfile.Plugin, error) {
	var (
		errs         []error
		marketplaces []lockfile.Marketplace
		plugins      []lockfile.Plugin
	)
	resolved := make(map[string]lockfile.Marketplace)
	failed := make(map[string]bool)

	for _, name := range m.MarketplaceNames() {
		mkt, err := in.resolver.ResolveMarketplace(ctx, name, m.Marketplaces[name])
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			errs = append(errs, err)
			failed[name] = true
			continue
		}
		resolved[name] = mkt
		marketplaces = append(marketplaces, mkt)
	}

	for _, name := range m.PluginNames() {
		entry := m.Plugins[name]
		if failed[entry.Marketplace] {
			logging.FromContext(ctx).Debug().Str("plugin", name).Msg("skipping plugin of failed marketplace")
			continue
		}
		p, err := in.resolver.ResolvePlugin(ctx, resolved[entry.Marketplace], name, entry)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		plugins = append(plugins, p)
	}

	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return marketplaces, plugins, nil
}

// materialize checks out marketplaces, extracts plugin content into the
// cache and stages the document edits of one layer.
func (in *Installer) materialize(ctx context.Context, l *layer, plan conflict.Plan, docs *documents, report *Report) (LayerReport, error) {
	ts := plugin.Timestamp(in.now())
	lr := LayerReport{Name: l.name, Manifest: l.path, Lock: l.lockPath, Reused: l.reused}

	if err := in.cache.Init(); err != nil {
		return lr, err
	}

	for _, mkt := range l.lock.Marketplaces {
		mctx := logging.WithMarketplace(ctx, mkt.Name)
		repo := in.resolver.MarketplaceRepo(mkt.Name, mkt.URL)
		if err := in.resolver.EnsureCommit(mctx, repo, mkt.Commit); err != nil {
			return lr, err
		}
		if err := in.resolver.Checkout(mctx, mkt); err != nil {
			return lr, err
		}

		out, outcome, err := marketplace.MergeMarketplace(docs.known, mkt.Name, in.cache.Root, marketplace.DirectoryEntry(repo.Path, ts))
		if err != nil {
			return lr, err
		}
		if outcome == marketplace.OutcomeForeign {
			logging.FromContext(mctx).Warn().Msg("marketplace name is registered by another source; leaving it unchanged")
		}
		docs.known = out
		report.Marketplaces[mkt.Name] = outcome
	}

	for _, p := range l.lock.Plugins {
		key := p.Key()
		if l.name == ProjectLayer && plan.Skipped(key) {
			logging.FromContext(ctx).Info().Str("plugin", key).Msg("skipped by conflict decision")
			continue
		}
		mkt, ok := l.lock.Marketplace(p.Marketplace)
		if !ok {
			return lr, errors.NewConfigError(l.lockPath, fmt.Sprintf("plugin '%s' references unlocked marketplace '%s'", p.Name, p.Marketplace), nil)
		}

		pctx := logging.WithPlugin(logging.WithMarketplace(ctx, mkt.Name), p.Name)
		src, err := in.resolver.Locate(pctx, mkt, p)
		if err != nil {
			return lr, err
		}
		dest := in.cache.PluginPath(mkt.Name, p.Name, p.PluginCommit)
		if err := in.cache.Extract(pctx, src.Repository.Path, p.PluginCommit, src.Path, dest); err != nil {
			return lr, err
		}

		entry := plugin.InstallEntry{
			Scope:        l.scope,
			InstallPath:  dest,
			Version:      p.ResolvedVersion,
			InstalledAt:  ts,
			LastUpdated:  ts,
			GitCommitSha: p.PluginCommit,
		}
		if docs.installed, err = plugin.MergeInstall(docs.installed, key, entry); err != nil {
			return lr, err
		}
		if docs.settings, _, err = settings.EnablePlugin(docs.settings, key); err != nil {
			return lr, err
		}

		logging.FromContext(pctx).Info().Str("version", p.ResolvedVersion).Str("scope", l.scope.String()).Msg("installed")
		lr.Installed = append(lr.Installed, Installed{
			Key:         key,
			Version:     p.ResolvedVersion,
			Commit:      p.PluginCommit,
			Scope:       l.scope,
			InstallPath: dest,
		})
	}
	return lr, nil
}

// writeManifest rewrites adopted pins into the global manifest file.
func (in *Installer) writeManifest(layers []*layer, plan conflict.Plan) error {
	adopted := plan.Adopted()
	if len(adopted) == 0 || layers[0].name != GlobalLayer {
		return nil
	}
	path := layers[0].path
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapIO("read", path, err)
	}
	for _, r := range adopted {
		entry := layers[0].effect.Plugins[r.Base.Plugin]
		if src, err = manifest.SetPlugin(src, r.Base.Plugin, entry); err != nil {
			return errors.WrapConfig(path, err)
		}
	}
	return fsutil.WriteFileAtomic(path, src, 0o644)
}

// documents holds Claude Code's files between reading and writing.
type documents struct {
	installedPath, knownPath, settingsPath string

	installed, known, settings []byte
	orig                       [3][]byte
}

func (in *Installer) readDocuments() (*documents, error) {
	d := &documents{
		installedPath: in.cfg.InstalledPluginsPath(),
		knownPath:     in.cfg.KnownMarketplacesPath(),
		settingsPath:  in.cfg.SettingsPath(),
	}
	var err error
	if d.installed, err = fsutil.ReadFileIfExists(d.installedPath); err != nil {
		return nil, err
	}
	if d.known, err = fsutil.ReadFileIfExists(d.knownPath); err != nil {
		return nil, err
	}
	if d.settings, err = fsutil.ReadFileIfExists(d.settingsPath); err != nil {
		return nil, err
	}
	d.orig = [3][]byte{d.installed, d.known, d.settings}
	return d, nil
}

// write replaces the documents that changed.
func (d *documents) write() error {
	files := []struct {
		path string
		data []byte
		orig []byte
	}{
		{d.knownPath, d.known, d.orig[1]},
		{d.installedPath, d.installed, d.orig[0]},
		{d.settingsPath, d.settings, d.orig[2]},
	}
	for _, f := range files {
		if f.data == nil || bytes.Equal(f.data, f.orig) {
			continue
		}
		if err := fsutil.WriteFileAtomic(f.path, f.data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
