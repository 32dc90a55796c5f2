package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/logging"
)

// ErrNotFound reports that a revision, tag or path does not exist in a repository.
var ErrNotFound = errors.New("not found in repository")

// Client is the interface for git operations
type Client interface {
	Clone(ctx context.Context, url, destPath string) error
	Fetch(ctx context.Context, repoPath string) error
	Checkout(ctx context.Context, repoPath, commit string) error
	VerifyCommit(ctx context.Context, repoPath, rev string) (string, error)
	ResolveTag(ctx context.Context, repoPath, tag string) (string, error)
	ListTags(ctx context.Context, repoPath string) ([]string, error)
	DefaultTip(ctx context.Context, repoPath string) (string, error)
	Show(ctx context.Context, repoPath, commit, path string) ([]byte, error)
	Archive(ctx context.Context, repoPath, commit, path string, w io.Writer) error
	RemoteHead(ctx context.Context, url string) (string, error)
	RemoteURL(ctx context.Context, repoPath string) (string, error)
	IsGitRepository(ctx context.Context, path string) bool
}

// DefaultClient is the default git client implementation
type DefaultClient struct {
	Timeout time.Duration
}

// NewClient creates a new git client
func NewClient() *DefaultClient {
	return &DefaultClient{
		Timeout: 5 * time.Minute,
	}
}

// CommandError is a failed git invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s: %s", e.Args[0], e.Stderr)
	}
	return fmt.Sprintf("git %s: %v", e.Args[0], e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (c *DefaultClient) command(ctx context.Context, dir string, args ...string) (*exec.Cmd, context.CancelFunc) {
	cancel := func() {}
	if c.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
	}
	full := args
	if dir != "" {
		full = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	return cmd, cancel
}

// run executes git and returns stdout.
func (c *DefaultClient) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd, cancel := c.command(ctx, dir, args...)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.FromContext(ctx).Debug().Str("dir", dir).Strs("args", args).Msg("git")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

func (c *DefaultClient) revParse(ctx context.Context, repoPath, rev string) (string, error) {
	out, err := c.run(ctx, repoPath, "rev-parse", "--verify", "--quiet", rev)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", ErrNotFound
	}
	return strings.TrimSpace(string(out)), nil
}

// Clone clones a git repository to the specified path
func (c *DefaultClient) Clone(ctx context.Context, url, destPath string) error {
	_, err := c.run(ctx, "", "clone", "--quiet", "--", url, destPath)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && isAuthError(cmdErr.Stderr) {
			return &AuthError{URL: url, Message: cmdErr.Stderr}
		}
		return err
	}
	return nil
}

// Fetch fetches branches and tags from origin without merging
func (c *DefaultClient) Fetch(ctx context.Context, repoPath string) error {
	_, err := c.run(ctx, repoPath, "fetch", "--quiet", "--tags", "--force", "--prune", "origin")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && isAuthError(cmdErr.Stderr) {
			return c.originAuthError(ctx, repoPath, cmdErr.Stderr)
		}
		return err
	}
	return nil
}

// Checkout detaches the working tree at commit
func (c *DefaultClient) Checkout(ctx context.Context, repoPath, commit string) error {
	_, err := c.run(ctx, repoPath, "-c", "advice.detachedHead=false", "checkout", "--quiet", "--force", "--detach", commit)
	return err
}

// VerifyCommit resolves rev (possibly abbreviated) to a full commit SHA
func (c *DefaultClient) VerifyCommit(ctx context.Context, repoPath, rev string) (string, error) {
	return c.revParse(ctx, repoPath, rev+"^{commit}")
}

// ResolveTag peels a lightweight or annotated tag to its commit
func (c *DefaultClient) ResolveTag(ctx context.Context, repoPath, tag string) (string, error) {
	return c.revParse(ctx, repoPath, "refs/tags/"+tag+"^{commit}")
}

// ListTags returns tag names, newest first
func (c *DefaultClient) ListTags(ctx context.Context, repoPath string) ([]string, error) {
	out, err := c.run(ctx, repoPath, "tag", "--list", "--sort=-creatordate")
	if err != nil {
		return nil, err
	}
	return splitNonEmpty(string(out)), nil
}

// DefaultTip returns the commit of the remote default branch, falling back
// to HEAD for repositories without a remote
func (c *DefaultClient) DefaultTip(ctx context.Context, repoPath string) (string, error) {
	if sha, err := c.revParse(ctx, repoPath, "refs/remotes/origin/HEAD^{commit}"); err == nil {
		return sha, nil
	}
	return c.revParse(ctx, repoPath, "HEAD^{commit}")
}

// Show returns the content of path at commit
func (c *DefaultClient) Show(ctx context.Context, repoPath, commit, path string) ([]byte, error) {
	object := commit + ":" + filepath.ToSlash(path)
	if _, err := c.run(ctx, repoPath, "cat-file", "-e", object); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return c.run(ctx, repoPath, "cat-file", "blob", object)
}

// Archive writes a tar of path (the whole tree when empty) at commit to w.
// Entry names are relative to path.
func (c *DefaultClient) Archive(ctx context.Context, repoPath, commit, path string, w io.Writer) error {
	treeish := commit
	if p := strings.Trim(filepath.ToSlash(path), "/"); p != "" && p != "." {
		treeish = commit + ":" + p
	}

	cmd, cancel := c.command(ctx, repoPath, "archive", "--format=tar", treeish)
	defer cancel()

	var stderr bytes.Buffer
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &CommandError{Args: []string{"archive", treeish}, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}

// RemoteHead returns the commit the remote's HEAD points to without cloning
func (c *DefaultClient) RemoteHead(ctx context.Context, url string) (string, error) {
	out, err := c.run(ctx, "", "ls-remote", url, "HEAD")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && isAuthError(cmdErr.Stderr) {
			return "", &AuthError{URL: url, Message: cmdErr.Stderr}
		}
		return "", err
	}
	for _, line := range splitNonEmpty(string(out)) {
		if fields := strings.Fields(line); len(fields) == 2 && fields[1] == "HEAD" {
			return fields[0], nil
		}
	}
	return "", ErrNotFound
}

// RemoteURL returns the configured URL of origin
func (c *DefaultClient) RemoteURL(ctx context.Context, repoPath string) (string, error) {
	out, err := c.run(ctx, repoPath, "config", "--get", "remote.origin.url")
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", ErrNotFound
	}
	return strings.TrimSpace(string(out)), nil
}

// IsGitRepository checks that path is the root of a repository with at
// least one commit
func (c *DefaultClient) IsGitRepository(ctx context.Context, path string) bool {
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return false
	}
	_, err := c.revParse(ctx, path, "HEAD^{commit}")
	return err == nil
}

func splitNonEmpty(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// AuthError represents a git authentication error
type AuthError struct {
	URL     string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for '%s': %s", e.URL, e.Message)
}

// originAuthError reports an authentication failure against the origin of
// the clone at repoPath.
func (c *DefaultClient) originAuthError(ctx context.Context, repoPath, stderr string) *AuthError {
	url, err := c.RemoteURL(ctx, repoPath)
	if err != nil {
		url = repoPath
	}
	return &AuthError{URL: url, Message: stderr}
}

// isAuthError checks if the error message indicates an authentication failure
func isAuthError(msg string) bool {
	authPatterns := []string{
		"Authentication failed",
		"Permission denied",
		"could not read Username",
		"403",
		"401",
	}

	for _, pattern := range authPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
