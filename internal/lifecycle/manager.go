// Package lifecycle owns the project state machine and the start, add-photos,
// finish, and status operations built on top of the sync engine, the branch
// coordinator, and the issue tracker.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/jayljohnson/nordhus.site/internal/faults"
	"github.com/jayljohnson/nordhus.site/internal/logfields"
	"github.com/jayljohnson/nordhus.site/internal/manifest"
	"github.com/jayljohnson/nordhus.site/internal/photosync"
	"github.com/jayljohnson/nordhus.site/internal/postgen"
	"github.com/jayljohnson/nordhus.site/internal/project"
	"github.com/jayljohnson/nordhus.site/internal/tracker"
)

// Branches is the slice of the branch coordinator the manager needs.
type Branches interface {
	EnsureBranch(branch string) error
	CommitFiles(slug, folder string, paths []string, message string) (string, error)
}

// Syncer runs one photo sync pass for a project.
type Syncer interface {
	Sync(ctx context.Context, slug string) (photosync.Result, error)
	Enabled() bool
}

// Manager orchestrates the lifecycle of every project in one site checkout.
type Manager struct {
	store     *manifest.Store
	branches  Branches
	engine    Syncer
	tracker   tracker.Gateway // nil when no tracker is configured
	generator postgen.Generator
	now       func() time.Time
}

// Option tweaks a Manager; used by tests to pin the clock.
type Option func(*Manager)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// New creates a manager. trackerGW may be nil; finish then fails cleanly and
// issue updates are skipped.
func New(store *manifest.Store, branches Branches, engine Syncer, trackerGW tracker.Gateway, generator postgen.Generator, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		branches:  branches,
		engine:    engine,
		tracker:   trackerGW,
		generator: generator,
		now:       time.Now,
	}
	if m.generator == nil {
		m.generator = postgen.TemplateGenerator{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates a new project: derives slug and branch, creates the branch,
// initializes an empty manifest, commits it. With photo monitoring off no
// photo-service contact happens and the project stays usable for manual
// photo placement.
func (m *Manager) Start(ctx context.Context, name string) (*manifest.Record, error) {
	p, err := project.New(name, m.now())
	if err != nil {
		return nil, err
	}
	if m.store.Exists(p.Slug) {
		return nil, &faults.DuplicateProjectError{Slug: p.Slug}
	}
	if m.engine.Enabled() {
		// The remote album is the folder named after the slug; recording the
		// id up front keeps later syncs independent of naming conventions.
		p.AlbumID = p.Slug
	}
	if err := m.branches.EnsureBranch(p.BranchName); err != nil {
		return nil, err
	}

	rec := manifest.NewRecord(p, m.now().UTC())
	if m.engine.Enabled() && m.tracker != nil {
		num, err := m.tracker.CreateIssue(ctx, issueTitle(p.Name), startIssueBody(p))
		if err != nil {
			if faults.IsAuthorization(err) {
				return nil, err
			}
			slog.Warn("could not create tracking issue, continuing without one",
				logfields.Project(p.Slug), logfields.Error(err))
		} else {
			rec.IssueNumber = num
			slog.Info("created tracking issue", logfields.Project(p.Slug), slog.Int("issue", num))
		}
	}
	if err := m.store.Save(rec); err != nil {
		return nil, err
	}

	manifestPath := path.Join(p.Folder, manifest.FileName)
	if _, err := m.branches.CommitFiles(p.Slug, p.Folder, []string{manifestPath}, "Start project: "+p.Name); err != nil {
		return nil, err
	}
	slog.Info("project started", logfields.Project(p.Slug), logfields.Branch(p.BranchName))
	return rec, nil
}

// AddPhotos syncs new remote photos into the project. The first non-empty
// sync promotes Created to PhotosActive. With the photo flag off the engine
// commits photos placed in the project folder by hand instead of contacting
// the album; promote forces the Created -> PhotosActive edge while the
// folder is still empty.
func (m *Manager) AddPhotos(ctx context.Context, name string, promote bool) (photosync.Result, error) {
	rec, err := m.resolve(name)
	if err != nil {
		return photosync.Result{}, err
	}
	if rec.State.Terminal() {
		return photosync.Result{}, &faults.InvalidStateError{Slug: rec.Slug, State: string(rec.State), Op: "add photos to"}
	}

	res, err := m.engine.Sync(ctx, rec.Slug)
	if err != nil {
		return res, err
	}

	// Re-read: the sync pass rewrote the manifest.
	rec, loadErr := m.store.Load(rec.Slug)
	if loadErr != nil {
		return res, loadErr
	}

	promoted := false
	if rec.State == project.StateCreated && (res.NewAssets > 0 || (promote && !m.engine.Enabled())) {
		next, terr := rec.State.Transition(project.StatePhotosActive)
		if terr != nil {
			return res, terr
		}
		rec.State = next
		if err := m.store.Save(rec); err != nil {
			return res, err
		}
		promoted = true
	}

	if res.NewAssets > 0 {
		if err := m.commentSync(ctx, rec, res); err != nil {
			return res, err
		}
	}
	slog.Info("add-photos complete",
		logfields.Project(rec.Slug),
		logfields.NewPhotos(res.NewAssets),
		logfields.TotalPhotos(res.TotalAssets),
		slog.Bool("promoted", promoted))
	return res, nil
}

// Finish transitions PhotosActive -> Finishing, generates the post, and files
// the integration request. Success leaves the project Merged: the request
// for integration has been durably filed and the merge itself is external.
// Any gateway failure rolls back to PhotosActive and re-raises.
func (m *Manager) Finish(ctx context.Context, name string) (*manifest.Record, error) {
	rec, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	if rec.State != project.StatePhotosActive {
		return nil, &faults.InvalidStateError{Slug: rec.Slug, State: string(rec.State), Op: "finish"}
	}
	if m.tracker == nil {
		return nil, fmt.Errorf("no issue tracker configured; set %s", "GITHUB_TOKEN")
	}

	p := project.FromSlug(rec.Slug)
	if err := m.branches.EnsureBranch(rec.BranchName); err != nil {
		return nil, err
	}

	// Persist Finishing before touching the tracker so a crash mid-finish is
	// visible in status instead of silently losing the attempt.
	rec.State = project.StateFinishing
	if err := m.store.Save(rec); err != nil {
		return nil, err
	}

	post, postPath, err := m.writePost(ctx, rec, p)
	if err != nil {
		return nil, m.rollbackFinish(rec, err)
	}

	requestID, err := m.tracker.OpenIntegrationRequest(ctx, post.Title, post.Body, rec.BranchName)
	if err != nil {
		return nil, m.rollbackFinish(rec, err)
	}

	now := m.now().UTC()
	rec.State = project.StateMerged
	rec.RequestID = requestID
	rec.FinishedAt = &now
	if err := m.store.Save(rec); err != nil {
		return nil, err
	}

	if rec.IssueNumber > 0 {
		text := fmt.Sprintf("Integration request `#%s` filed for branch `%s`. Project complete.", requestID, rec.BranchName)
		if err := m.tracker.Comment(ctx, rec.IssueNumber, text); err != nil {
			slog.Warn("could not update tracking issue", logfields.Project(rec.Slug), logfields.Error(err))
		}
	}
	slog.Info("project finished", logfields.Project(rec.Slug), slog.String("request_id", requestID), logfields.Path(postPath))
	return rec, nil
}

// Abandon marks the project Abandoned from any non-terminal state.
func (m *Manager) Abandon(ctx context.Context, name string) (*manifest.Record, error) {
	rec, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	next, terr := rec.State.Transition(project.StateAbandoned)
	if terr != nil {
		return nil, &faults.InvalidStateError{Slug: rec.Slug, State: string(rec.State), Op: "abandon"}
	}
	rec.State = next
	if err := m.store.Save(rec); err != nil {
		return nil, err
	}
	if m.tracker != nil && rec.IssueNumber > 0 {
		if err := m.tracker.Comment(ctx, rec.IssueNumber, "Project abandoned."); err != nil {
			slog.Warn("could not update tracking issue", logfields.Project(rec.Slug), logfields.Error(err))
		}
	}
	slog.Info("project abandoned", logfields.Project(rec.Slug))
	return rec, nil
}

// Status returns the persisted record: state, manifest size, last sync time.
// Read-only.
func (m *Manager) Status(name string) (*manifest.Record, error) {
	return m.resolve(name)
}

// Active returns every project currently in PhotosActive, for the monitor.
func (m *Manager) Active() ([]*manifest.Record, error) {
	all, err := m.store.All()
	if err != nil {
		return nil, err
	}
	var active []*manifest.Record
	for _, rec := range all {
		if rec.State == project.StatePhotosActive {
			active = append(active, rec)
		}
	}
	return active, nil
}

// resolve finds a project by bare name or full slug. When several slugs share
// a name (restarted projects on different dates) the most recent wins.
func (m *Manager) resolve(name string) (*manifest.Record, error) {
	// Reject names that could address paths outside the site checkout before
	// any filesystem lookup.
	if project.ValidateName(name) != nil {
		return nil, &faults.UnknownProjectError{Name: name}
	}
	if m.store.Exists(name) {
		return m.store.Load(name)
	}
	all, err := m.store.All()
	if err != nil {
		return nil, err
	}
	var found *manifest.Record
	for _, rec := range all { // sorted by slug, so later date wins
		if rec.Name == name {
			found = rec
		}
	}
	if found == nil {
		return nil, &faults.UnknownProjectError{Name: name}
	}
	return found, nil
}

// rollbackFinish restores PhotosActive after a failed finish and re-raises
// the original error. The rollback is the only backward edge in the state
// machine; a failed rollback save compounds the report but never masks cause.
func (m *Manager) rollbackFinish(rec *manifest.Record, cause error) error {
	next, terr := rec.State.Transition(project.StatePhotosActive)
	if terr != nil {
		return fmt.Errorf("finish failed (%w); rollback also failed: %v", cause, terr)
	}
	rec.State = next
	if err := m.store.Save(rec); err != nil {
		return fmt.Errorf("finish failed (%w); rollback save also failed: %v", cause, err)
	}
	slog.Warn("finish rolled back to photos_active", logfields.Project(rec.Slug), logfields.Error(cause))
	return cause
}

// commentSync posts the per-sync status update. Authorization failures
// surface because the same credential backs the whole tick; anything else is
// a warning so a flaky comment never fails a successful sync.
func (m *Manager) commentSync(ctx context.Context, rec *manifest.Record, res photosync.Result) error {
	if m.tracker == nil || rec.IssueNumber == 0 {
		return nil
	}
	text := fmt.Sprintf("Photo sync: %d new photos committed to `%s` (%d total).",
		res.NewAssets, rec.BranchName, res.TotalAssets)
	if err := m.tracker.Comment(ctx, rec.IssueNumber, text); err != nil {
		if faults.IsAuthorization(err) {
			return err
		}
		slog.Warn("could not post sync comment", logfields.Project(rec.Slug), logfields.Error(err))
	}
	return nil
}

func issueTitle(name string) string {
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(name))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return "Construction Project: " + strings.Join(words, " ")
}

func startIssueBody(p project.Project) string {
	return fmt.Sprintf(`# Construction Project: %s

**Project Branch**: `+"`%s`"+`

Photos added to the remote album will be synced to the project branch
automatically. Finish the project to file the integration request.
`, p.Name, p.BranchName)
}
