// Package photosync implements the idempotent delta sync between a project's
// manifest and its remote album. The manifest is read before every decision
// and advanced only for assets whose bytes were durably written; an advisory
// file lock keeps overlapping manual and scheduled syncs from interleaving.
package photosync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/jayljohnson/nordhus.site/internal/faults"
	"github.com/jayljohnson/nordhus.site/internal/logfields"
	"github.com/jayljohnson/nordhus.site/internal/manifest"
	"github.com/jayljohnson/nordhus.site/internal/photos"
	"github.com/jayljohnson/nordhus.site/internal/project"
	"github.com/jayljohnson/nordhus.site/internal/retry"
	"github.com/jayljohnson/nordhus.site/internal/util/sets"
)

// lockFileName is the per-project advisory lock, co-located with the manifest.
const lockFileName = ".sync.lock"

// Branches is the slice of the branch coordinator the engine needs.
type Branches interface {
	EnsureBranch(branch string) error
	CommitFiles(slug, folder string, paths []string, message string) (string, error)
}

// Result reports the outcome of one sync pass. Zero new assets is a valid,
// non-error result.
type Result struct {
	NewAssets    int
	TotalAssets  int
	WrittenFiles []string // repo-relative paths
	CommitHash   string
}

// Engine performs sync passes. When the photo-monitoring flag is off it
// falls back to a local pass that picks up manually placed photos without
// ever touching the network.
type Engine struct {
	enabled  bool
	client   photos.Client
	store    *manifest.Store
	branches Branches
	policy   retry.Policy
}

// New creates an engine. client may be nil when enabled is false.
func New(enabled bool, client photos.Client, store *manifest.Store, branches Branches, policy retry.Policy) *Engine {
	return &Engine{enabled: enabled, client: client, store: store, branches: branches, policy: policy}
}

// Enabled reports whether photo-service calls are allowed.
func (e *Engine) Enabled() bool { return e.enabled }

// Sync runs one pass for the project identified by slug. Ordering guarantee:
// every constituent file write happens before the single atomic manifest
// append, and the single commit stages the whole project folder, sweeping in
// files an earlier failed pass wrote but could not commit. Invoking Sync
// twice with an unchanged remote album downloads nothing, writes nothing, and
// only refreshes last_sync_at.
func (e *Engine) Sync(ctx context.Context, slug string) (Result, error) {
	folder := e.store.FolderFor(slug)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create project folder: %w", err)
	}

	lock := flock.New(filepath.Join(folder, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("failed to acquire sync lock for %s: %w", slug, err)
	}
	if !locked {
		return Result{}, &faults.ConcurrentSyncError{Slug: slug}
	}
	defer lock.Unlock()

	// The on-disk manifest is the sole source of truth; re-read it under the
	// lock rather than trusting whatever the caller had in hand.
	rec, err := e.store.Load(slug)
	if err != nil {
		return Result{}, err
	}

	if err := e.branches.EnsureBranch(rec.BranchName); err != nil {
		return Result{}, err
	}

	if !e.enabled {
		slog.Debug("photo monitoring disabled, scanning for manually placed photos",
			logfields.Project(slug))
		return e.syncLocal(folder, rec)
	}

	albumID := rec.AlbumID
	if albumID == "" {
		albumID = slug
	}

	var remote []photos.Asset
	err = retry.Do(ctx, e.policy, "list_assets", func() error {
		var lerr error
		remote, lerr = e.client.ListAssets(ctx, albumID)
		return lerr
	})
	if err != nil {
		return Result{}, err
	}

	known := rec.AssetSet()
	remoteIDs := sets.New[string]()
	byID := make(map[string]photos.Asset, len(remote))
	for _, a := range remote {
		remoteIDs.Add(a.ID)
		byID[a.ID] = a
	}
	newIDs := make([]string, 0)
	for id := range remoteIDs.Diff(known) {
		newIDs = append(newIDs, id)
	}
	sort.Strings(newIDs)

	slog.Info("computed sync delta",
		logfields.Project(slug),
		logfields.Album(albumID),
		logfields.TotalPhotos(len(remote)),
		logfields.NewPhotos(len(newIDs)))

	written, writtenPaths, fetchErr := e.download(ctx, folder, rec.Slug, newIDs, byID)

	// Single atomic append covering exactly the durably written assets. This
	// runs even when the download loop failed partway so the manifest matches
	// the files on disk; assets that never made it stay out and are re-fetched
	// by the next pass.
	now := time.Now().UTC()
	rec.AppendAssets(written)
	rec.LastSyncAt = &now
	if err := e.store.Save(rec); err != nil {
		return Result{}, err
	}
	if fetchErr != nil {
		return Result{}, fetchErr
	}

	res := Result{NewAssets: len(written), TotalAssets: len(remote), WrittenFiles: writtenPaths}
	if len(written) == 0 {
		return res, nil // zero-delta pass performs zero commits
	}

	// Stage the whole folder, not just this pass's downloads: a previous pass
	// that failed mid-loop left its durably written files in the manifest but
	// in no commit, and they would otherwise never reach the branch.
	commitPaths, err := commitPathsFor(slug, folder)
	if err != nil {
		return Result{}, err
	}
	msg := fmt.Sprintf("Sync %d new photos: %s", len(written), rec.Name)
	hash, err := e.branches.CommitFiles(slug, project.FromSlug(slug).Folder, commitPaths, msg)
	if err != nil {
		return Result{}, err
	}
	res.CommitHash = hash
	return res, nil
}

// syncLocal picks up photos placed in the project folder by hand, for setups
// running without the photo service. Filenames double as asset ids.
func (e *Engine) syncLocal(folder string, rec *manifest.Record) (Result, error) {
	names, err := photoFiles(folder)
	if err != nil {
		return Result{}, err
	}
	known := rec.AssetSet()
	var newNames []string
	for _, name := range names {
		if !known.Has(name) {
			newNames = append(newNames, name)
		}
	}
	if len(newNames) == 0 {
		return Result{TotalAssets: len(rec.Assets)}, nil
	}

	now := time.Now().UTC()
	rec.AppendAssets(newNames)
	rec.LastSyncAt = &now
	if err := e.store.Save(rec); err != nil {
		return Result{}, err
	}

	rel := project.FromSlug(rec.Slug).Folder
	commitPaths, err := commitPathsFor(rec.Slug, folder)
	if err != nil {
		return Result{}, err
	}
	msg := fmt.Sprintf("Sync %d new photos: %s", len(newNames), rec.Name)
	hash, err := e.branches.CommitFiles(rec.Slug, rel, commitPaths, msg)
	if err != nil {
		return Result{}, err
	}

	writtenPaths := make([]string, 0, len(newNames))
	for _, name := range newNames {
		writtenPaths = append(writtenPaths, path.Join(rel, name))
	}
	slog.Info("picked up manually placed photos",
		logfields.Project(rec.Slug),
		logfields.NewPhotos(len(newNames)))
	return Result{
		NewAssets:    len(newNames),
		TotalAssets:  len(rec.Assets),
		WrittenFiles: writtenPaths,
		CommitHash:   hash,
	}, nil
}

// photoFiles lists the regular photo files in folder, skipping the manifest
// and dotfiles such as the lock.
func photoFiles(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, ent := range entries {
		if ent.IsDir() || ent.Name() == manifest.FileName || strings.HasPrefix(ent.Name(), ".") {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)
	return names, nil
}

// commitPathsFor returns the repo-relative paths of every photo currently in
// the folder plus the manifest.
func commitPathsFor(slug, folder string) ([]string, error) {
	names, err := photoFiles(folder)
	if err != nil {
		return nil, err
	}
	rel := project.FromSlug(slug).Folder
	paths := make([]string, 0, len(names)+1)
	for _, name := range names {
		paths = append(paths, path.Join(rel, name))
	}
	paths = append(paths, path.Join(rel, manifest.FileName))
	return paths, nil
}

// download fetches each new asset and persists it durably (write to a temp
// file, fsync, rename). It returns the ids and repo-relative paths of assets
// fully on disk, plus the first error that stopped the loop.
func (e *Engine) download(ctx context.Context, folder, slug string, newIDs []string, byID map[string]photos.Asset) ([]string, []string, error) {
	var written []string
	var writtenPaths []string
	for _, id := range newIDs {
		asset := byID[id]
		var data []byte
		err := retry.Do(ctx, e.policy, "fetch_asset", func() error {
			var ferr error
			data, ferr = e.client.FetchAsset(ctx, asset)
			return ferr
		})
		if err != nil {
			return written, writtenPaths, err
		}
		if err := writeDurable(filepath.Join(folder, asset.Filename), data); err != nil {
			return written, writtenPaths, err
		}
		written = append(written, id)
		writtenPaths = append(writtenPaths, path.Join(project.FromSlug(slug).Folder, asset.Filename))
		slog.Debug("downloaded asset", logfields.Project(slug), logfields.Asset(id))
	}
	return written, writtenPaths, nil
}

// writeDurable writes bytes atomically: temp file in the target directory,
// sync, then rename into place.
func writeDurable(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".photo-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return nil
}
