// Package cache manages the on-disk cache of plugin content. Every plugin is
// extracted once per commit into its own directory; a directory that exists
// is complete.
package cache

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/fsutil"
	"github.com/DanSnow/skill-manager/internal/git"
	"github.com/DanSnow/skill-manager/internal/logging"
)

const (
	// TagFile marks the directory as a cache for backup tools.
	TagFile = "CACHEDIR.TAG"

	tagContent = "Signature: 8a477f597d28d172789f06886806bc55\n" +
		"# This file is a cache directory tag created by skill-manager.\n" +
		"# For information about cache directory tags, see:\n" +
		"#\thttps://bford.info/cachedir/\n"
)

// Cache is the plugin content cache rooted at Root.
type Cache struct {
	Root string
	git  git.Client
}

// New returns a cache rooted at root.
func New(root string, client git.Client) *Cache {
	return &Cache{Root: root, git: client}
}

// Init creates the cache layout and its CACHEDIR.TAG.
func (c *Cache) Init() error {
	for _, dir := range []string{c.Root, c.MarketplacesDir(), c.PluginReposDir(), c.PluginsDir()} {
		if err := fsutil.EnsureDir(dir); err != nil {
			return err
		}
	}
	tag := filepath.Join(c.Root, TagFile)
	if _, err := os.Stat(tag); err == nil {
		return nil
	}
	return fsutil.WriteFileAtomic(tag, []byte(tagContent), 0o644)
}

// MarketplacesDir holds marketplace clones.
func (c *Cache) MarketplacesDir() string {
	return filepath.Join(c.Root, "marketplaces")
}

// PluginReposDir holds external plugin clones.
func (c *Cache) PluginReposDir() string {
	return filepath.Join(c.Root, "plugin-repos")
}

// PluginsDir holds extracted plugin content.
func (c *Cache) PluginsDir() string {
	return filepath.Join(c.Root, "plugins")
}

// PluginPath returns <root>/plugins/<marketplace>/<plugin>/<commit>.
func (c *Cache) PluginPath(marketplaceName, pluginName, commit string) string {
	return filepath.Join(c.PluginsDir(), marketplaceName, pluginName, commit)
}

// Extract writes the tree at subdir of commit in repoPath to dest. Content is
// built in a staging directory and renamed into place, so an interrupted
// extraction leaves no dest behind. An existing dest is left as is.
func (c *Cache) Extract(ctx context.Context, repoPath, commit, subdir, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	staging, err := fsutil.StagingDir(dest)
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	archived := make(chan error, 1)
	go func() {
		err := c.git.Archive(ctx, repoPath, commit, subdir, pw)
		pw.CloseWithError(err)
		archived <- err
	}()

	untarErr := untar(pr, staging)
	if untarErr == nil {
		// git archive pads its output past the end-of-archive blocks.
		_, untarErr = io.Copy(io.Discard, pr)
	}
	pr.CloseWithError(untarErr)
	archiveErr := <-archived

	if err := errors.Join(archiveErr, untarErr); err != nil {
		os.RemoveAll(staging)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("extract %s at %s: %w", subdir, commit, err)
	}

	logging.FromContext(ctx).Debug().Str("dest", dest).Msg("extracted plugin")
	return fsutil.Publish(staging, dest)
}

func untar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		if name == "" || hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("archive entry %q escapes the destination", hdr.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) || !filepath.IsLocal(filepath.Join(filepath.Dir(filepath.FromSlash(name)), filepath.FromSlash(hdr.Linkname))) {
				return fmt.Errorf("symlink %q points outside the plugin", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}

func writeFile(path string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
