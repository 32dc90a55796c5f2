package git

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/testutil/gitrepo"
)

func setupClone(t *testing.T) (*gitrepo.Repo, string, *DefaultClient) {
	t.Helper()
	upstream := gitrepo.New(t, "")
	upstream.WriteFile("README.md", "hello\n")
	upstream.WriteFile("plugins/foo/.claude-plugin/plugin.json", `{"version":"1.0.0"}`)
	upstream.Commit("initial")
	upstream.Tag("v1.0.0")

	client := NewClient()
	dest := filepath.Join(t.TempDir(), "clone")
	require.NoError(t, client.Clone(context.Background(), upstream.Dir, dest))
	return upstream, dest, client
}

func TestCloneAndResolve(t *testing.T) {
	upstream, dest, client := setupClone(t)
	ctx := context.Background()
	first := upstream.Head()

	assert.True(t, client.IsGitRepository(ctx, dest))
	assert.False(t, client.IsGitRepository(ctx, t.TempDir()))

	tip, err := client.DefaultTip(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, first, tip)

	sha, err := client.ResolveTag(ctx, dest, "v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, first, sha)

	full, err := client.VerifyCommit(ctx, dest, first[:10])
	require.NoError(t, err)
	assert.Equal(t, first, full)

	_, err = client.VerifyCommit(ctx, dest, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.ResolveTag(ctx, dest, "v9.9.9")
	assert.ErrorIs(t, err, ErrNotFound)

	origin, err := client.RemoteURL(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, upstream.Dir, origin)
}

func TestFetchPicksUpNewCommitsAndTags(t *testing.T) {
	upstream, dest, client := setupClone(t)
	ctx := context.Background()

	upstream.WriteFile("README.md", "changed\n")
	second := upstream.Commit("second")
	upstream.AnnotatedTag("v1.1.0")

	require.NoError(t, client.Fetch(ctx, dest))

	tip, err := client.DefaultTip(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, second, tip)

	sha, err := client.ResolveTag(ctx, dest, "v1.1.0")
	require.NoError(t, err)
	assert.Equal(t, second, sha, "annotated tags peel to their commit")

	tags, err := client.ListTags(ctx, dest)
	require.NoError(t, err)
	sort.Strings(tags)
	assert.Equal(t, []string{"v1.0.0", "v1.1.0"}, tags)

	head, err := client.RemoteHead(ctx, upstream.Dir)
	require.NoError(t, err)
	assert.Equal(t, second, head)
}

func TestShowAndArchive(t *testing.T) {
	upstream, dest, client := setupClone(t)
	ctx := context.Background()
	commit := upstream.Head()

	data, err := client.Show(ctx, dest, commit, "plugins/foo/.claude-plugin/plugin.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.0"}`, string(data))

	_, err = client.Show(ctx, dest, commit, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	var buf bytes.Buffer
	require.NoError(t, client.Archive(ctx, dest, commit, "plugins/foo", &buf))

	var names []string
	tr := tar.NewReader(&buf)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if hdr.Typeflag == tar.TypeReg {
			names = append(names, hdr.Name)
		}
	}
	assert.Equal(t, []string{".claude-plugin/plugin.json"}, names)
}

func TestCheckout(t *testing.T) {
	upstream, dest, client := setupClone(t)
	ctx := context.Background()
	first := upstream.Head()

	upstream.WriteFile("README.md", "v2\n")
	upstream.Commit("second")
	require.NoError(t, client.Fetch(ctx, dest))

	tip, err := client.DefaultTip(ctx, dest)
	require.NoError(t, err)
	require.NoError(t, client.Checkout(ctx, dest, tip))
	require.NoError(t, client.Checkout(ctx, dest, first))

	head, err := client.VerifyCommit(ctx, dest, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, first, head)
}

func TestCloneFailure(t *testing.T) {
	if !gitrepo.Available() {
		t.Skip("git not installed")
	}
	client := NewClient()
	err := client.Clone(context.Background(), filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "dest"))
	require.Error(t, err)

	var cmdErr *CommandError
	assert.True(t, errors.As(err, &cmdErr))
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, isAuthError("fatal: Authentication failed for 'https://example.com'"))
	assert.True(t, isAuthError("git@github.com: Permission denied (publickey)."))
	assert.False(t, isAuthError("fatal: couldn't find remote ref main"))
}

func TestFetchAuthErrorNamesOrigin(t *testing.T) {
	upstream, dest, client := setupClone(t)
	ctx := context.Background()

	err := client.originAuthError(ctx, dest, "fatal: Authentication failed")
	assert.Equal(t, upstream.Dir, err.URL)
	assert.Contains(t, err.Error(), upstream.Dir)

	notRepo := t.TempDir()
	assert.Equal(t, notRepo, client.originAuthError(ctx, notRepo, "denied").URL)
}
