// Package faults defines the typed error taxonomy shared by the project
// lifecycle core. Every failure crossing a package boundary is one of these
// types so callers classify with errors.As instead of string parsing.
package faults

import "fmt"

// Category buckets errors for propagation decisions: local validation is
// never retried, transient faults are retried with backoff, authorization
// faults are systemic and abort a whole monitor tick.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryTransient  Category = "transient"
	CategoryAuth       Category = "auth"
	CategoryProject    Category = "project" // fatal for one project, isolated from siblings
	CategoryCorruption Category = "corruption"
)

// DuplicateProjectError reports a start against an already-known slug.
type DuplicateProjectError struct{ Slug string }

func (e *DuplicateProjectError) Error() string {
	return fmt.Sprintf("project %q already exists", e.Slug)
}

// UnknownProjectError reports an operation against a project that was never started.
type UnknownProjectError struct{ Name string }

func (e *UnknownProjectError) Error() string { return fmt.Sprintf("project %q not found", e.Name) }

// InvalidStateError reports a lifecycle operation not legal in the current state.
type InvalidStateError struct {
	Slug  string
	State string
	Op    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s project %q in state %s", e.Op, e.Slug, e.State)
}

// TransientServiceError wraps a network/5xx failure from an external service.
// It is the only retryable category.
type TransientServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *TransientServiceError) Error() string {
	return fmt.Sprintf("%s %s transient failure: %v", e.Service, e.Op, e.Err)
}
func (e *TransientServiceError) Unwrap() error { return e.Err }

// AuthorizationError reports an invalid or expired credential. It is never
// retried and is treated as systemic by the monitor because the credential
// is shared across all projects.
type AuthorizationError struct {
	Service string
	Op      string
	Err     error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s %s authorization failed: %v", e.Service, e.Op, e.Err)
}
func (e *AuthorizationError) Unwrap() error { return e.Err }

// DirtyWorkingTreeError reports uncommitted changes outside the project's own
// folder. It must surface to the caller; the tree is never force-reset.
type DirtyWorkingTreeError struct {
	Slug  string
	Paths []string
}

func (e *DirtyWorkingTreeError) Error() string {
	return fmt.Sprintf("working tree has %d uncommitted change(s) outside project %q", len(e.Paths), e.Slug)
}

// ConcurrentSyncError reports that another sync holds the project's advisory lock.
type ConcurrentSyncError struct{ Slug string }

func (e *ConcurrentSyncError) Error() string {
	return fmt.Sprintf("another sync is already running for project %q", e.Slug)
}

// ManifestCorruptionError reports a manifest that cannot be parsed or that
// violates the append-only invariant. It requires manual intervention and is
// never auto-repaired.
type ManifestCorruptionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ManifestCorruptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest %s corrupt: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("manifest %s corrupt: %s", e.Path, e.Reason)
}
func (e *ManifestCorruptionError) Unwrap() error { return e.Err }
