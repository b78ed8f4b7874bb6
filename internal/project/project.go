// Package project holds the central domain model: a tracked unit of
// documentation work with its own branch, state, and photo manifest.
package project

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

// namePattern matches the characters allowed in a human-supplied project name.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ImagesRoot is the site-relative directory under which every project folder lives.
const ImagesRoot = "assets/images"

// BranchPrefix namespaces all project branches.
const BranchPrefix = "project/"

// Project identifies one documentation project. Slug and BranchName are
// derived once at start time and immutable afterwards.
type Project struct {
	Slug       string
	Name       string
	BranchName string
	Folder     string // site-relative, slash-separated
	AlbumID    string
}

// ValidateName rejects names outside the allowed character set before any
// slug derivation happens.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("project name %q may only contain letters, numbers, hyphens, and underscores", name)
	}
	return nil
}

// Slugify derives the unique slug from a name and a creation date.
func Slugify(name string, created time.Time) string {
	return created.Format("2006-01-02") + "-" + name
}

// New derives a Project from a validated name and creation date. The branch
// name is a deterministic function of the slug and the folder is where
// synced photos and the manifest live.
func New(name string, created time.Time) (Project, error) {
	if err := ValidateName(name); err != nil {
		return Project{}, err
	}
	slug := Slugify(name, created)
	return Project{
		Slug:       slug,
		Name:       name,
		BranchName: BranchPrefix + slug,
		Folder:     path.Join(ImagesRoot, slug),
	}, nil
}

// FromSlug reconstructs the derived fields for an already-persisted slug.
func FromSlug(slug string) Project {
	name := slug
	if len(slug) > 11 { // strip YYYY-MM-DD- prefix
		name = slug[11:]
	}
	return Project{
		Slug:       slug,
		Name:       name,
		BranchName: BranchPrefix + slug,
		Folder:     path.Join(ImagesRoot, slug),
	}
}
