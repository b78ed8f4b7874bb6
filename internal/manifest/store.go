package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/jayljohnson/nordhus.site/internal/project"
)

// Store locates manifests under a site checkout. It holds no cache: the file
// on disk is canonical and is re-read before every sync decision.
type Store struct {
	siteDir string
}

// NewStore creates a store rooted at the site checkout directory.
func NewStore(siteDir string) *Store { return &Store{siteDir: siteDir} }

// SiteDir returns the checkout root the store operates in.
func (s *Store) SiteDir() string { return s.siteDir }

// FolderFor returns the absolute project folder for a slug.
func (s *Store) FolderFor(slug string) string {
	return filepath.Join(s.siteDir, filepath.FromSlash(project.FromSlug(slug).Folder))
}

// PathFor returns the absolute manifest path for a slug.
func (s *Store) PathFor(slug string) string {
	return filepath.Join(s.FolderFor(slug), FileName)
}

// Exists reports whether a manifest exists for the slug.
func (s *Store) Exists(slug string) bool {
	_, err := os.Stat(s.PathFor(slug))
	return err == nil
}

// Load reads the manifest for a slug.
func (s *Store) Load(slug string) (*Record, error) {
	return Load(s.PathFor(slug))
}

// Save atomically persists the record into its project folder, creating the
// folder if needed.
func (s *Store) Save(rec *Record) error {
	folder := s.FolderFor(rec.Slug)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return err
	}
	return Save(filepath.Join(folder, FileName), rec)
}

// All returns every project record found under the images root, sorted by
// slug. A corrupt manifest aborts the listing: silently skipping it would
// hide exactly the condition that requires manual intervention.
func (s *Store) All() ([]*Record, error) {
	root := filepath.Join(s.siteDir, filepath.FromSlash(project.ImagesRoot))
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []*Record
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rec, err := Load(filepath.Join(root, e.Name(), FileName))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue // plain image folder without a manifest
			}
			return nil, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Slug < records[j].Slug })
	return records, nil
}
