package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Category
	}{
		{nil, ""},
		{&DuplicateProjectError{Slug: "2026-08-30-deck"}, CategoryValidation},
		{&UnknownProjectError{Name: "deck"}, CategoryValidation},
		{&InvalidStateError{Slug: "2026-08-30-deck", State: "merged", Op: "finish"}, CategoryValidation},
		{&TransientServiceError{Service: "cloudinary", Op: "list", Err: errors.New("503")}, CategoryTransient},
		{&AuthorizationError{Service: "github", Op: "comment", Err: errors.New("401")}, CategoryAuth},
		{&ManifestCorruptionError{Path: "project.json", Reason: "invalid JSON"}, CategoryCorruption},
		{&ConcurrentSyncError{Slug: "2026-08-30-deck"}, CategoryProject},
		{&DirtyWorkingTreeError{Slug: "2026-08-30-deck", Paths: []string{"README.md"}}, CategoryProject},
		{errors.New("anything else"), CategoryProject},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), "%v", c.err)
	}
}

func TestClassifySeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("sync pass: %w", &AuthorizationError{Service: "cloudinary", Op: "list", Err: errors.New("401")})
	assert.True(t, IsAuthorization(wrapped))
	assert.Equal(t, CategoryAuth, Classify(wrapped))
}

func TestPredicatesDistinguishTypes(t *testing.T) {
	auth := &AuthorizationError{Service: "github", Op: "pr"}
	assert.True(t, IsAuthorization(auth))
	assert.False(t, IsTransient(auth))

	lock := &ConcurrentSyncError{Slug: "s"}
	assert.True(t, IsConcurrentSync(lock))
	assert.False(t, IsValidation(lock))

	dirty := &DirtyWorkingTreeError{Slug: "s", Paths: []string{"a", "b"}}
	assert.True(t, IsDirtyWorkingTree(dirty))
	assert.Contains(t, dirty.Error(), "2 uncommitted change(s)")
}
