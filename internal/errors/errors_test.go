package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("/p/plugins.toml", "marketplace 'x' not declared", nil)
	assert.Equal(t, "configuration error in /p/plugins.toml: marketplace 'x' not declared", err.Error())
	assert.True(t, Is(err, ErrConfig))
	assert.False(t, Is(err, ErrFormat))

	wrapped := WrapConfig("", fmt.Errorf("bad toml"))
	assert.Equal(t, "configuration error: bad toml", wrapped.Error())
	assert.Nil(t, WrapConfig("x", nil))
}

func TestRepositoryErrorSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      *RepositoryError
		sentinel error
		message  string
	}{
		{
			name:     "clone",
			err:      &RepositoryError{Kind: CloneFailed, Name: "company", URL: "https://x/y.git", Err: fmt.Errorf("exit status 128")},
			sentinel: ErrCloneFailed,
			message:  "failed to clone 'company' from https://x/y.git: exit status 128",
		},
		{
			name:     "fetch",
			err:      &RepositoryError{Kind: FetchFailed, Name: "company", URL: "https://x/y.git"},
			sentinel: ErrFetchFailed,
			message:  "failed to fetch 'company' from https://x/y.git",
		},
		{
			name:     "commit",
			err:      NewCommitNotFound("tool", "deadbee"),
			sentinel: ErrCommitNotFound,
			message:  "commit 'deadbee' not found in 'tool'",
		},
		{
			name:     "tag",
			err:      NewTagNotFound("tool", "v9", []string{"v1.0.0", "v2.0.0"}),
			sentinel: ErrTagNotFound,
			message:  "tag 'v9' not found in 'tool' (known tags: v1.0.0, v2.0.0)",
		},
		{
			name:     "source",
			err:      NewInvalidSource("tool", "plugin not found in marketplace 'company'", nil),
			sentinel: ErrInvalidSource,
			message:  "invalid source descriptor for 'tool': plugin not found in marketplace 'company'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			assert.True(t, Is(tt.err, tt.sentinel))
			assert.False(t, Is(tt.err, ErrConfig))
		})
	}
}

func TestRepositoryErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("network down")
	err := fmt.Errorf("marketplace: %w", &RepositoryError{Kind: FetchFailed, Name: "m", Err: cause})

	var repoErr *RepositoryError
	require.True(t, As(err, &repoErr))
	assert.Equal(t, "m", repoErr.Name)
	assert.True(t, Is(err, cause))
}

func TestConflictAbort(t *testing.T) {
	err := Join(fmt.Errorf("other"), &ConflictAbortError{Key: "tool@company"})
	assert.True(t, IsConflictAbort(err))
	assert.Contains(t, err.Error(), "tool@company")
	assert.False(t, IsConflictAbort(fmt.Errorf("other")))
}

func TestWrapIOAndFormat(t *testing.T) {
	assert.Nil(t, WrapIO("read", "/x", nil))
	assert.Nil(t, WrapFormat("/x", nil))

	ioErr := WrapIO("rename", "/a/b", fmt.Errorf("permission denied"))
	assert.Equal(t, "failed to rename /a/b: permission denied", ioErr.Error())
	assert.True(t, Is(ioErr, ErrIO))

	formatErr := WrapFormat("settings.json", fmt.Errorf("invalid JSON"))
	assert.Equal(t, "settings.json is not a valid document: invalid JSON", formatErr.Error())
	assert.True(t, Is(formatErr, ErrFormat))
}
