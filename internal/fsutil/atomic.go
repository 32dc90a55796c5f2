// Package fsutil holds the filesystem primitives shared by the document and
// cache writers: whole-file atomic replacement and staged directory publish.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/DanSnow/skill-manager/internal/errors"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return errors.WrapIO("mkdir", path, os.MkdirAll(path, 0755))
}

// ReadFileIfExists returns the file content, or nil when the file is absent.
func ReadFileIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapIO("read", path, err)
	}
	return data, nil
}

// WriteFileAtomic replaces path with data. Readers observe either the old or
// the new content, never a partial write. A symlinked path is written through
// to its target, and an existing file keeps its mode; perm applies to new
// files only.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	path, err := resolveLink(path)
	if err != nil {
		return err
	}
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.WrapIO("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.WrapIO("sync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return errors.WrapIO("chmod", tmpName, err)
	}
	return errors.WrapIO("rename", path, os.Rename(tmpName, path))
}

// resolveLink follows symlinks at path, including a dangling final link, so
// the rename replaces the target rather than the link.
func resolveLink(path string) (string, error) {
	for range 40 {
		info, err := os.Lstat(path)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			return path, nil
		}
		target, err := os.Readlink(path)
		if err != nil {
			return "", errors.WrapIO("readlink", path, err)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		path = target
	}
	return "", errors.WrapIO("readlink", path, fmt.Errorf("too many levels of symbolic links"))
}

// StagingDir creates an empty sibling directory of final for building content
// that is later published with Publish.
func StagingDir(final string) (string, error) {
	parent := filepath.Dir(final)
	if err := EnsureDir(parent); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp(parent, "."+filepath.Base(final)+".staging-*")
	if err != nil {
		return "", errors.WrapIO("mkdir", final, err)
	}
	return dir, nil
}

// Publish renames a fully built staging directory to final. If final
// already exists the staging directory is discarded.
func Publish(staging, final string) error {
	if _, err := os.Stat(final); err == nil {
		return errors.WrapIO("remove", staging, os.RemoveAll(staging))
	}
	if err := os.Rename(staging, final); err != nil {
		os.RemoveAll(staging)
		return errors.WrapIO("rename", final, err)
	}
	return nil
}
