// Package resolver turns manifest pins into commits. Marketplace and external
// plugin repositories are cloned into the cache, refreshed at most once per
// run, and queried with git.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/fsutil"
	"github.com/DanSnow/skill-manager/internal/git"
	"github.com/DanSnow/skill-manager/internal/lockfile"
	"github.com/DanSnow/skill-manager/internal/logging"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/marketplace"
)

const maxKnownTags = 10

// Ref is a pin. Commit wins over Tag; neither means the default branch tip.
type Ref struct {
	Tag    string
	Commit string
}

// Repository is a clone in the cache.
type Repository struct {
	// Name is the marketplace or plugin the repository belongs to.
	Name string
	URL  string
	Path string
}

// Resolver resolves marketplaces and plugins against cached clones.
type Resolver struct {
	git             git.Client
	marketplacesDir string
	pluginReposDir  string

	refreshed map[string]bool
	listings  map[string]*marketplace.Listing
}

// New creates a resolver cloning marketplaces under marketplacesDir and
// external plugin repositories under pluginReposDir.
func New(client git.Client, marketplacesDir, pluginReposDir string) *Resolver {
	return &Resolver{
		git:             client,
		marketplacesDir: marketplacesDir,
		pluginReposDir:  pluginReposDir,
		refreshed:       make(map[string]bool),
		listings:        make(map[string]*marketplace.Listing),
	}
}

// MarketplaceRepo returns the cache repository of a marketplace.
func (r *Resolver) MarketplaceRepo(name, url string) Repository {
	return Repository{Name: name, URL: url, Path: filepath.Join(r.marketplacesDir, name)}
}

// PluginRepo returns the cache repository of an external plugin.
func (r *Resolver) PluginRepo(marketplaceName, pluginName, url string) Repository {
	return Repository{Name: pluginName, URL: url, Path: filepath.Join(r.pluginReposDir, marketplaceName, pluginName)}
}

// Ensure makes sure repo is cloned from its URL. A directory that is not a
// usable repository, or one cloned from another URL, is replaced.
func (r *Resolver) Ensure(ctx context.Context, repo Repository) error {
	log := logging.FromContext(ctx)

	if _, err := os.Stat(repo.Path); err == nil {
		if r.git.IsGitRepository(ctx, repo.Path) {
			origin, err := r.git.RemoteURL(ctx, repo.Path)
			if err == nil && origin == repo.URL {
				return nil
			}
			log.Info().Str("repository", repo.Name).Str("origin", origin).Str("url", repo.URL).Msg("origin changed, cloning again")
		} else {
			log.Warn().Str("repository", repo.Name).Str("path", repo.Path).Msg("removing incomplete clone")
		}
		if err := os.RemoveAll(repo.Path); err != nil {
			return errors.WrapIO("remove", repo.Path, err)
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	staging, err := fsutil.StagingDir(repo.Path)
	if err != nil {
		return err
	}
	log.Info().Str("repository", repo.Name).Str("url", repo.URL).Msg("cloning")
	if err := r.git.Clone(ctx, repo.URL, staging); err != nil {
		os.RemoveAll(staging)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &errors.RepositoryError{Kind: errors.CloneFailed, Name: repo.Name, URL: repo.URL, Err: err}
	}
	if err := fsutil.Publish(staging, repo.Path); err != nil {
		return err
	}
	r.refreshed[repo.Path] = true
	return nil
}

// Refresh fetches repo unless it was cloned or fetched earlier in this run.
func (r *Resolver) Refresh(ctx context.Context, repo Repository) error {
	if r.refreshed[repo.Path] {
		return nil
	}
	logging.FromContext(ctx).Debug().Str("repository", repo.Name).Msg("fetching")
	if err := r.git.Fetch(ctx, repo.Path); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &errors.RepositoryError{Kind: errors.FetchFailed, Name: repo.Name, URL: repo.URL, Err: err}
	}
	r.refreshed[repo.Path] = true
	return nil
}

// ResolveRef resolves ref to a full commit in repo, which must already be
// cloned. Missing commits and tags trigger one refresh before failing.
func (r *Resolver) ResolveRef(ctx context.Context, repo Repository, ref Ref) (string, error) {
	switch {
	case ref.Commit != "":
		sha, err := r.lookup(ctx, repo, func() (string, error) {
			return r.git.VerifyCommit(ctx, repo.Path, ref.Commit)
		})
		if errors.Is(err, git.ErrNotFound) {
			return "", errors.NewCommitNotFound(repo.Name, ref.Commit)
		}
		return sha, err

	case ref.Tag != "":
		sha, err := r.lookup(ctx, repo, func() (string, error) {
			return r.git.ResolveTag(ctx, repo.Path, ref.Tag)
		})
		if errors.Is(err, git.ErrNotFound) {
			return "", errors.NewTagNotFound(repo.Name, ref.Tag, r.knownTags(ctx, repo))
		}
		return sha, err

	default:
		if err := r.Refresh(ctx, repo); err != nil {
			return "", err
		}
		sha, err := r.git.DefaultTip(ctx, repo.Path)
		if err != nil {
			return "", &errors.RepositoryError{Kind: errors.FetchFailed, Name: repo.Name, URL: repo.URL,
				Message: "cannot determine the default branch", Err: err}
		}
		return sha, nil
	}
}

// lookup runs find, refreshing repo and retrying once when the object is
// not present locally.
func (r *Resolver) lookup(ctx context.Context, repo Repository, find func() (string, error)) (string, error) {
	sha, err := find()
	if err == nil || !errors.Is(err, git.ErrNotFound) || r.refreshed[repo.Path] {
		return sha, err
	}
	if err := r.Refresh(ctx, repo); err != nil {
		return "", err
	}
	return find()
}

func (r *Resolver) knownTags(ctx context.Context, repo Repository) []string {
	tags, err := r.git.ListTags(ctx, repo.Path)
	if err != nil {
		return nil
	}
	if len(tags) > maxKnownTags {
		tags = tags[:maxKnownTags]
	}
	return tags
}

// ResolveMarketplace clones or reuses the marketplace repository and
// resolves its pin.
func (r *Resolver) ResolveMarketplace(ctx context.Context, name string, entry manifest.MarketplaceEntry) (lockfile.Marketplace, error) {
	ctx = logging.WithMarketplace(ctx, name)
	repo := r.MarketplaceRepo(name, manifest.ExpandURL(entry.URL))
	if err := r.Ensure(ctx, repo); err != nil {
		return lockfile.Marketplace{}, err
	}
	commit, err := r.ResolveRef(ctx, repo, Ref{Tag: entry.Tag, Commit: entry.Commit})
	if err != nil {
		return lockfile.Marketplace{}, err
	}
	logging.FromContext(ctx).Debug().Str("commit", commit).Msg("resolved marketplace")
	return lockfile.Marketplace{Name: name, URL: repo.URL, Commit: commit}, nil
}

// Listing returns the marketplace listing at commit.
func (r *Resolver) Listing(ctx context.Context, mkt lockfile.Marketplace, commit string) (*marketplace.Listing, error) {
	repo := r.MarketplaceRepo(mkt.Name, mkt.URL)
	key := repo.Path + "@" + commit
	if l, ok := r.listings[key]; ok {
		return l, nil
	}

	data, err := r.git.Show(ctx, repo.Path, commit, marketplace.ListingPath)
	if err != nil {
		if errors.Is(err, git.ErrNotFound) {
			return nil, errors.NewInvalidSource(mkt.Name,
				fmt.Sprintf("%s not found at %s", marketplace.ListingPath, ShortCommit(commit)), nil)
		}
		return nil, err
	}
	l, err := marketplace.ParseListing(mkt.Name, data)
	if err != nil {
		return nil, err
	}
	r.listings[key] = l
	return l, nil
}

// Source describes where a resolved plugin's content lives.
type Source struct {
	// Repository holds the plugin content.
	Repository Repository
	// Path is the slash separated plugin root inside Repository.
	Path string
}

// ResolvePlugin resolves a plugin declared against a resolved marketplace.
func (r *Resolver) ResolvePlugin(ctx context.Context, mkt lockfile.Marketplace, name string, entry manifest.PluginEntry) (lockfile.Plugin, error) {
	return r.resolvePlugin(logging.WithPlugin(ctx, name), mkt, name, entry)
}

func (r *Resolver) resolvePlugin(ctx context.Context, mkt lockfile.Marketplace, name string, entry manifest.PluginEntry) (lockfile.Plugin, error) {
	listing, err := r.Listing(ctx, mkt, mkt.Commit)
	if err != nil {
		return lockfile.Plugin{}, err
	}
	pe, err := listing.FindPlugin(mkt.Name, name)
	if err != nil {
		return lockfile.Plugin{}, err
	}

	if pe.Source.IsExternal() {
		return r.resolveExternal(ctx, mkt, name, entry, pe.Source)
	}
	return r.resolveLocal(ctx, mkt, name, entry, listing)
}

// resolveLocal resolves a plugin inside the marketplace tree. A plugin pin is
// resolved in the marketplace repository and becomes the commit the record
// is read at, so the record's two commits always agree.
func (r *Resolver) resolveLocal(ctx context.Context, mkt lockfile.Marketplace, name string, entry manifest.PluginEntry, listing *marketplace.Listing) (lockfile.Plugin, error) {
	repo := r.MarketplaceRepo(mkt.Name, mkt.URL)
	commit := mkt.Commit
	if entry.Pinned() {
		sha, err := r.ResolveRef(ctx, Repository{Name: name, URL: repo.URL, Path: repo.Path}, Ref{Tag: entry.Tag, Commit: entry.Commit})
		if err != nil {
			return lockfile.Plugin{}, err
		}
		if sha != commit {
			if listing, err = r.Listing(ctx, mkt, sha); err != nil {
				return lockfile.Plugin{}, err
			}
			commit = sha
		}
	}

	pe, err := listing.FindPlugin(mkt.Name, name)
	if err != nil {
		return lockfile.Plugin{}, err
	}
	if pe.Source.IsExternal() {
		return lockfile.Plugin{}, errors.NewInvalidSource(name,
			fmt.Sprintf("plugin is external at %s; pin the plugin repository instead", ShortCommit(commit)), nil)
	}
	path, ok := listing.LocalPath(pe.Source)
	if !ok {
		return lockfile.Plugin{}, errors.NewInvalidSource(name,
			fmt.Sprintf("source path '%s' leaves the marketplace repository", pe.Source.Path), nil)
	}

	version, err := r.version(ctx, repo.Path, commit, path)
	if err != nil {
		return lockfile.Plugin{}, err
	}
	return lockfile.Plugin{
		Name:              name,
		Marketplace:       mkt.Name,
		SourceType:        lockfile.SourceLocal,
		MarketplaceCommit: commit,
		PluginCommit:      commit,
		ResolvedVersion:   version,
	}, nil
}

// resolveExternal resolves a plugin living in its own repository. Pins are
// taken from the manifest commit, the manifest tag, the listing sha, the
// listing ref and finally the default branch, in that order.
func (r *Resolver) resolveExternal(ctx context.Context, mkt lockfile.Marketplace, name string, entry manifest.PluginEntry, src marketplace.PluginSource) (lockfile.Plugin, error) {
	url := src.CloneURL()
	if url == "" {
		return lockfile.Plugin{}, errors.NewInvalidSource(name, "external source has no repository", nil)
	}
	repo := r.PluginRepo(mkt.Name, name, url)
	if err := r.Ensure(ctx, repo); err != nil {
		return lockfile.Plugin{}, err
	}

	var (
		commit string
		err    error
	)
	switch {
	case entry.Pinned():
		commit, err = r.ResolveRef(ctx, repo, Ref{Tag: entry.Tag, Commit: entry.Commit})
	case src.SHA != "":
		commit, err = r.ResolveRef(ctx, repo, Ref{Commit: src.SHA})
	case src.Ref != "":
		commit, err = r.resolveListingRef(ctx, repo, src.Ref)
	default:
		commit, err = r.ResolveRef(ctx, repo, Ref{})
	}
	if err != nil {
		return lockfile.Plugin{}, err
	}

	version, err := r.version(ctx, repo.Path, commit, ".")
	if err != nil {
		return lockfile.Plugin{}, err
	}
	return lockfile.Plugin{
		Name:              name,
		Marketplace:       mkt.Name,
		SourceType:        lockfile.SourceExternal,
		MarketplaceCommit: mkt.Commit,
		PluginCommit:      commit,
		ResolvedVersion:   version,
	}, nil
}

// resolveListingRef accepts a tag or a branch name.
func (r *Resolver) resolveListingRef(ctx context.Context, repo Repository, ref string) (string, error) {
	sha, err := r.ResolveRef(ctx, repo, Ref{Tag: ref})
	if err == nil || !errors.Is(err, errors.ErrTagNotFound) {
		return sha, err
	}
	if branch, berr := r.git.VerifyCommit(ctx, repo.Path, "refs/remotes/origin/"+ref); berr == nil {
		return branch, nil
	}
	return "", err
}

func (r *Resolver) version(ctx context.Context, repoPath, commit, root string) (string, error) {
	data, err := r.git.Show(ctx, repoPath, commit, marketplace.PluginMetadataPath(root))
	if err != nil {
		if errors.Is(err, git.ErrNotFound) {
			return ShortCommit(commit), nil
		}
		return "", err
	}
	return VersionOf(data, commit), nil
}

// Locate returns where the content of a locked plugin lives, cloning the
// repository when the cache lacks it. The locked commit must exist.
func (r *Resolver) Locate(ctx context.Context, mkt lockfile.Marketplace, p lockfile.Plugin) (Source, error) {
	ctx = logging.WithPlugin(ctx, p.Name)

	mrepo := r.MarketplaceRepo(mkt.Name, mkt.URL)
	if err := r.EnsureCommit(ctx, mrepo, p.MarketplaceCommit); err != nil {
		return Source{}, err
	}
	listing, err := r.Listing(ctx, mkt, p.MarketplaceCommit)
	if err != nil {
		return Source{}, err
	}
	pe, err := listing.FindPlugin(mkt.Name, p.Name)
	if err != nil {
		return Source{}, err
	}

	if p.SourceType == lockfile.SourceLocal {
		path, ok := listing.LocalPath(pe.Source)
		if !ok || pe.Source.IsExternal() {
			return Source{}, errors.NewInvalidSource(p.Name, "locked local source no longer resolves", nil)
		}
		return Source{Repository: mrepo, Path: path}, nil
	}

	url := pe.Source.CloneURL()
	if url == "" {
		return Source{}, errors.NewInvalidSource(p.Name, "locked external source no longer resolves", nil)
	}
	repo := r.PluginRepo(mkt.Name, p.Name, url)
	if err := r.EnsureCommit(ctx, repo, p.PluginCommit); err != nil {
		return Source{}, err
	}
	return Source{Repository: repo, Path: "."}, nil
}

// EnsureCommit clones repo if needed and checks that commit is present,
// fetching once when it is not.
func (r *Resolver) EnsureCommit(ctx context.Context, repo Repository, commit string) error {
	if err := r.Ensure(ctx, repo); err != nil {
		return err
	}
	_, err := r.ResolveRef(ctx, repo, Ref{Commit: commit})
	return err
}

// Checkout detaches the marketplace clone at its resolved commit so the
// directory reflects the lock.
func (r *Resolver) Checkout(ctx context.Context, mkt lockfile.Marketplace) error {
	repo := r.MarketplaceRepo(mkt.Name, mkt.URL)
	if err := r.git.Checkout(ctx, repo.Path, mkt.Commit); err != nil {
		return &errors.RepositoryError{Kind: errors.FetchFailed, Name: mkt.Name, URL: mkt.URL,
			Message: "checkout of " + ShortCommit(mkt.Commit) + " failed", Err: err}
	}
	return nil
}
