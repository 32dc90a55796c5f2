// Package errors provides the error taxonomy for skill-manager.
// Every error surfaced by the resolution pipeline is one of the typed errors
// below, so callers can branch with errors.Is against the sentinels.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New is an alias for the standard library errors.New.
var New = errors.New

// Join is an alias for the standard library errors.Join.
var Join = errors.Join

// Sentinel errors
var (
	// ErrConfig indicates a malformed or unnormalizable manifest
	ErrConfig = errors.New("configuration error")

	// ErrCloneFailed indicates a repository could not be cloned
	ErrCloneFailed = errors.New("clone failed")

	// ErrFetchFailed indicates a repository could not be refreshed
	ErrFetchFailed = errors.New("fetch failed")

	// ErrCommitNotFound indicates a pinned commit does not exist
	ErrCommitNotFound = errors.New("commit not found")

	// ErrTagNotFound indicates a pinned tag does not exist
	ErrTagNotFound = errors.New("tag not found")

	// ErrInvalidSource indicates a marketplace listing or plugin source is malformed or missing
	ErrInvalidSource = errors.New("invalid source descriptor")

	// ErrConflictAbort indicates the run was aborted by a conflict decision
	ErrConflictAbort = errors.New("aborted by conflict decision")

	// ErrFormat indicates an externally-owned document is not valid JSON
	ErrFormat = errors.New("invalid document format")

	// ErrIO indicates a filesystem failure
	ErrIO = errors.New("io error")
)

// ConfigError reports a problem with a manifest or the tool configuration.
type ConfigError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Path, msg)
	}
	return fmt.Sprintf("configuration error: %s", msg)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError creates a new ConfigError
func NewConfigError(path, message string, err error) *ConfigError {
	return &ConfigError{Path: path, Message: message, Err: err}
}

// RepositoryKind classifies a RepositoryError.
type RepositoryKind int

const (
	CloneFailed RepositoryKind = iota
	FetchFailed
	CommitNotFound
	TagNotFound
	InvalidSourceDescriptor
)

func (k RepositoryKind) sentinel() error {
	switch k {
	case CloneFailed:
		return ErrCloneFailed
	case FetchFailed:
		return ErrFetchFailed
	case CommitNotFound:
		return ErrCommitNotFound
	case TagNotFound:
		return ErrTagNotFound
	default:
		return ErrInvalidSource
	}
}

// RepositoryError is a failure attributed to a specific marketplace or plugin.
type RepositoryError struct {
	Kind RepositoryKind
	// Name is the marketplace or plugin the failure belongs to.
	Name string
	URL  string
	// Ref is the requested tag or commit, when relevant.
	Ref string
	// Known holds a sample of existing refs (tags) for diagnosis.
	Known   []string
	Message string
	Err     error
}

// Error implements the error interface
func (e *RepositoryError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case CloneFailed:
		fmt.Fprintf(&b, "failed to clone '%s' from %s", e.Name, e.URL)
	case FetchFailed:
		fmt.Fprintf(&b, "failed to fetch '%s' from %s", e.Name, e.URL)
	case CommitNotFound:
		fmt.Fprintf(&b, "commit '%s' not found in '%s'", e.Ref, e.Name)
	case TagNotFound:
		fmt.Fprintf(&b, "tag '%s' not found in '%s'", e.Ref, e.Name)
		if len(e.Known) > 0 {
			fmt.Fprintf(&b, " (known tags: %s)", strings.Join(e.Known, ", "))
		}
	case InvalidSourceDescriptor:
		fmt.Fprintf(&b, "invalid source descriptor for '%s'", e.Name)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil && (e.Kind == CloneFailed || e.Kind == FetchFailed) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap implements errors.Unwrap
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RepositoryError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewCommitNotFound creates a CommitNotFound RepositoryError
func NewCommitNotFound(name, commit string) *RepositoryError {
	return &RepositoryError{Kind: CommitNotFound, Name: name, Ref: commit}
}

// NewTagNotFound creates a TagNotFound RepositoryError
func NewTagNotFound(name, tag string, known []string) *RepositoryError {
	return &RepositoryError{Kind: TagNotFound, Name: name, Ref: tag, Known: known}
}

// NewInvalidSource creates an InvalidSourceDescriptor RepositoryError
func NewInvalidSource(name, message string, err error) *RepositoryError {
	return &RepositoryError{Kind: InvalidSourceDescriptor, Name: name, Message: message, Err: err}
}

// ConflictAbortError reports that a conflict decision terminated the run.
// It is a decision, not a fault.
type ConflictAbortError struct {
	Key string
}

// Error implements the error interface
func (e *ConflictAbortError) Error() string {
	return fmt.Sprintf("install aborted while resolving conflict for %s", e.Key)
}

// Is implements errors.Is support
func (e *ConflictAbortError) Is(target error) bool {
	return target == ErrConflictAbort
}

// FormatError reports a structurally invalid externally-owned document.
type FormatError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s is not a valid document: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s is not a valid document", e.Path)
}

// Unwrap implements errors.Unwrap
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// IOError represents an error during filesystem operations
type IOError struct {
	Op   string // "read", "write", "rename", "mkdir", "remove"
	Path string
	Err  error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// WrapIO wraps an error as an IOError
func WrapIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// WrapFormat wraps an error as a FormatError
func WrapFormat(path string, err error) error {
	if err == nil {
		return nil
	}
	return &FormatError{Path: path, Err: err}
}

// WrapConfig wraps an error as a ConfigError
func WrapConfig(path string, err error) error {
	if err == nil {
		return nil
	}
	return &ConfigError{Path: path, Err: err}
}

// IsConflictAbort reports whether err is (or wraps) a conflict abort
func IsConflictAbort(err error) bool {
	return errors.Is(err, ErrConflictAbort)
}

// Is is an alias for the standard library errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is an alias for the standard library errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
