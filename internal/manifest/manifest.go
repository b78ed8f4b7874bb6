// Package manifest persists the per-project record that is the sole source
// of truth for synced photo membership. The record lives as project.json
// inside the project folder, is rewritten atomically (write-new-then-rename),
// and its asset set is append-only: scanned directories are never trusted
// over it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jayljohnson/nordhus.site/internal/faults"
	"github.com/jayljohnson/nordhus.site/internal/project"
	"github.com/jayljohnson/nordhus.site/internal/util/sets"
)

// FileName is the manifest file name inside each project folder.
const FileName = "project.json"

// Record is the persisted state of one project.
type Record struct {
	Slug        string        `json:"slug"`
	Name        string        `json:"project_name"`
	BranchName  string        `json:"branch_name"`
	State       project.State `json:"state"`
	AlbumID     string        `json:"album_id,omitempty"`
	Assets      []string      `json:"assets"` // sorted remote asset ids, append-only
	CreatedAt   time.Time     `json:"created_at"`
	LastSyncAt  *time.Time    `json:"last_sync_at,omitempty"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	IssueNumber int           `json:"issue_number,omitempty"`
	RequestID   string        `json:"integration_request_id,omitempty"`
}

// NewRecord initializes the manifest for a freshly started project: empty
// asset set, state Created.
func NewRecord(p project.Project, created time.Time) *Record {
	return &Record{
		Slug:       p.Slug,
		Name:       p.Name,
		BranchName: p.BranchName,
		State:      project.StateCreated,
		AlbumID:    p.AlbumID,
		Assets:     []string{},
		CreatedAt:  created,
	}
}

// AssetSet returns the synced asset ids as a set for delta computation.
func (r *Record) AssetSet() sets.Set[string] { return sets.New(r.Assets...) }

// AppendAssets adds ids to the asset set. Existing entries are never removed;
// duplicates are collapsed and the result stays sorted for stable diffs.
func (r *Record) AppendAssets(ids []string) {
	s := r.AssetSet()
	for _, id := range ids {
		s.Add(id)
	}
	merged := make([]string, 0, len(s))
	for id := range s {
		merged = append(merged, id)
	}
	sort.Strings(merged)
	r.Assets = merged
}

// validate rejects records that cannot belong to a well-formed manifest.
func (r *Record) validate(path string) error {
	if r.Slug == "" {
		return &faults.ManifestCorruptionError{Path: path, Reason: "missing slug"}
	}
	if !r.State.Valid() {
		return &faults.ManifestCorruptionError{Path: path, Reason: fmt.Sprintf("unknown state %q", r.State)}
	}
	seen := sets.New[string]()
	for _, id := range r.Assets {
		if id == "" {
			return &faults.ManifestCorruptionError{Path: path, Reason: "empty asset id"}
		}
		if seen.Has(id) {
			return &faults.ManifestCorruptionError{Path: path, Reason: fmt.Sprintf("duplicate asset id %q", id)}
		}
		seen.Add(id)
	}
	return nil
}

// Load reads and validates a manifest file. A missing file surfaces as an
// fs.ErrNotExist wrap so callers can distinguish "no project" from
// corruption; anything unparsable is a ManifestCorruptionError and is never
// auto-repaired.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
		return nil, &faults.ManifestCorruptionError{Path: path, Reason: "unreadable", Err: err}
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &faults.ManifestCorruptionError{Path: path, Reason: "invalid JSON", Err: err}
	}
	if rec.Assets == nil {
		rec.Assets = []string{}
	}
	if err := rec.validate(path); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save writes the record atomically: marshal, write a temp file in the same
// directory, fsync, rename over the target. When a previous manifest exists
// its asset set must be a subset of the new one; a regression means some
// other writer violated the append-only invariant and the save is refused.
func Save(path string, rec *Record) error {
	if err := rec.validate(path); err != nil {
		return err
	}
	if prev, err := Load(path); err == nil {
		next := rec.AssetSet()
		for id := range prev.AssetSet() {
			if !next.Has(id) {
				return &faults.ManifestCorruptionError{
					Path:   path,
					Reason: fmt.Sprintf("asset %q would be removed; manifest is append-only", id),
				}
			}
		}
	} else if faults.IsCorruption(err) {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}
