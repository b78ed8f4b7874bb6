// Package gitops coordinates branches and commits for project sync passes on
// top of go-git. It never force-resets: a dirty working tree outside the
// project's own folder is surfaced as a fatal per-project error.
package gitops

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/jayljohnson/nordhus.site/internal/faults"
	"github.com/jayljohnson/nordhus.site/internal/logfields"
)

// Commit identity used for automated sync commits.
const (
	authorName  = "Construction Bot"
	authorEmail = "noreply@nordhus.site"
)

// Coordinator handles branch and commit operations in one site checkout.
type Coordinator struct {
	repoPath string
}

// NewCoordinator creates a coordinator for the repository at repoPath.
func NewCoordinator(repoPath string) *Coordinator { return &Coordinator{repoPath: repoPath} }

func (c *Coordinator) open() (*git.Repository, *git.Worktree, error) {
	repo, err := git.PlainOpen(c.repoPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open repository at %s: %w", c.repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	return repo, wt, nil
}

// EnsureBranch checks out the project branch, creating it from the current
// HEAD when it does not exist yet. Synced but uncommitted project files are
// kept across the switch.
func (c *Coordinator) EnsureBranch(branch string) error {
	repo, wt, err := c.open()
	if err != nil {
		return err
	}
	ref := plumbing.NewBranchReferenceName(branch)

	if head, err := repo.Head(); err == nil && head.Name() == ref {
		return nil
	}

	create := false
	if _, err := repo.Reference(ref, true); err != nil {
		if err != plumbing.ErrReferenceNotFound {
			return fmt.Errorf("failed to resolve branch %s: %w", branch, err)
		}
		create = true
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: ref, Create: create, Keep: true}); err != nil {
		return fmt.Errorf("failed to checkout branch %s: %w", branch, err)
	}
	if create {
		slog.Info("created project branch", logfields.Branch(branch))
	} else {
		slog.Debug("switched to project branch", logfields.Branch(branch))
	}
	return nil
}

// IsClean reports whether the working tree has no uncommitted changes at all.
func (c *Coordinator) IsClean() (bool, error) {
	_, wt, err := c.open()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read worktree status: %w", err)
	}
	return status.IsClean(), nil
}

// checkUnrelatedChanges fails with DirtyWorkingTreeError when uncommitted
// changes exist outside the project's own folder and outside the paths being
// committed. folder and paths are slash-separated, relative to the repo root.
func (c *Coordinator) checkUnrelatedChanges(slug, folder string, paths []string) error {
	_, wt, err := c.open()
	if err != nil {
		return err
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to read worktree status: %w", err)
	}
	staged := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		staged[p] = struct{}{}
	}
	prefix := strings.TrimSuffix(folder, "/") + "/"
	var unrelated []string
	for p, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		if p == folder || strings.HasPrefix(p, prefix) {
			continue
		}
		if _, ok := staged[p]; ok {
			continue
		}
		unrelated = append(unrelated, p)
	}
	if len(unrelated) > 0 {
		sort.Strings(unrelated)
		return &faults.DirtyWorkingTreeError{Slug: slug, Paths: unrelated}
	}
	return nil
}

// CommitFiles stages exactly the given repo-relative paths and creates one
// commit for the whole sync pass. Zero paths means zero commits. The commit
// is refused while unrelated uncommitted changes exist outside folder.
func (c *Coordinator) CommitFiles(slug, folder string, paths []string, message string) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}
	if err := c.checkUnrelatedChanges(slug, folder, paths); err != nil {
		return "", err
	}
	_, wt, err := c.open()
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return "", fmt.Errorf("failed to stage %s: %w", p, err)
		}
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: authorName, Email: authorEmail, When: time.Now()},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit sync pass: %w", err)
	}
	slog.Info("committed sync pass",
		logfields.Project(slug),
		slog.Int("files", len(paths)),
		slog.String("commit", hash.String()[:8]))
	return hash.String(), nil
}
