package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayljohnson/nordhus.site/internal/faults"
	"github.com/jayljohnson/nordhus.site/internal/manifest"
	"github.com/jayljohnson/nordhus.site/internal/photosync"
	"github.com/jayljohnson/nordhus.site/internal/project"
)

type fakeBranches struct {
	commits []string // commit messages
}

func (f *fakeBranches) EnsureBranch(string) error { return nil }
func (f *fakeBranches) CommitFiles(_, _ string, _ []string, message string) (string, error) {
	f.commits = append(f.commits, message)
	return "abc12345", nil
}

// fakeSyncer simulates the engine: it appends scripted assets to the
// manifest the way a real pass would.
type fakeSyncer struct {
	store   *manifest.Store
	enabled bool
	newIDs  []string
	total   int
	err     error
	synced  int
}

func (f *fakeSyncer) Enabled() bool { return f.enabled }

func (f *fakeSyncer) Sync(_ context.Context, slug string) (photosync.Result, error) {
	f.synced++
	if !f.enabled {
		return photosync.Result{}, nil
	}
	if f.err != nil {
		return photosync.Result{}, f.err
	}
	rec, err := f.store.Load(slug)
	if err != nil {
		return photosync.Result{}, err
	}
	rec.AppendAssets(f.newIDs)
	now := time.Now().UTC()
	rec.LastSyncAt = &now
	if err := f.store.Save(rec); err != nil {
		return photosync.Result{}, err
	}
	return photosync.Result{NewAssets: len(f.newIDs), TotalAssets: f.total}, nil
}

type fakeTracker struct {
	issues     int
	comments   []string
	prErr      error
	prCount    int
	issueErr   error
	commentErr error
}

func (f *fakeTracker) CreateIssue(context.Context, string, string) (int, error) {
	if f.issueErr != nil {
		return 0, f.issueErr
	}
	f.issues++
	return 42, nil
}

func (f *fakeTracker) OpenIntegrationRequest(context.Context, string, string, string) (string, error) {
	f.prCount++
	if f.prErr != nil {
		return "", f.prErr
	}
	return "7", nil
}

func (f *fakeTracker) Comment(_ context.Context, _ int, text string) error {
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments = append(f.comments, text)
	return nil
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
}

func newManager(t *testing.T, enabled bool, newIDs []string) (*Manager, *manifest.Store, *fakeSyncer, *fakeTracker) {
	t.Helper()
	store := manifest.NewStore(t.TempDir())
	syncer := &fakeSyncer{store: store, enabled: enabled, newIDs: newIDs, total: len(newIDs)}
	trk := &fakeTracker{}
	m := New(store, &fakeBranches{}, syncer, trk, nil, WithClock(fixedClock()))
	return m, store, syncer, trk
}

func TestStartCreatesProject(t *testing.T) {
	m, store, _, trk := newManager(t, true, nil)

	rec, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-30-deck-repair", rec.Slug)
	assert.Equal(t, "project/2026-08-30-deck-repair", rec.BranchName)
	assert.Equal(t, project.StateCreated, rec.State)
	assert.Empty(t, rec.Assets)
	assert.Equal(t, 42, rec.IssueNumber)
	assert.Equal(t, 1, trk.issues)

	persisted, err := store.Load(rec.Slug)
	require.NoError(t, err)
	assert.Equal(t, project.StateCreated, persisted.State)
}

func TestStartDuplicateFails(t *testing.T) {
	m, _, _, _ := newManager(t, true, nil)
	_, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)

	_, err = m.Start(context.Background(), "deck-repair")
	var dup *faults.DuplicateProjectError
	require.ErrorAs(t, err, &dup)
}

func TestStartRejectsInvalidName(t *testing.T) {
	m, _, _, _ := newManager(t, true, nil)
	_, err := m.Start(context.Background(), "deck repair!")
	require.Error(t, err)
}

func TestStartWithFlagOffSkipsIssueCreation(t *testing.T) {
	m, _, _, trk := newManager(t, false, nil)
	rec, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)
	assert.Zero(t, trk.issues)
	assert.Zero(t, rec.IssueNumber)
}

func TestAddPhotosUnknownProject(t *testing.T) {
	m, _, _, _ := newManager(t, true, nil)
	_, err := m.AddPhotos(context.Background(), "nope", false)
	var unk *faults.UnknownProjectError
	require.ErrorAs(t, err, &unk)
}

func TestResolveRejectsPathTraversalNames(t *testing.T) {
	m, _, _, _ := newManager(t, true, nil)
	for _, name := range []string{"../../etc", "deck/../repair", "deck repair", "."} {
		_, err := m.Status(name)
		var unk *faults.UnknownProjectError
		require.ErrorAs(t, err, &unk, name)
	}
}

func TestAddPhotosPromotesOnFirstNonEmptySync(t *testing.T) {
	m, store, _, _ := newManager(t, true, []string{"a1", "a2", "a3"})
	rec, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)

	res, err := m.AddPhotos(context.Background(), "deck-repair", false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.NewAssets)

	after, err := store.Load(rec.Slug)
	require.NoError(t, err)
	assert.Equal(t, project.StatePhotosActive, after.State)
	assert.Equal(t, []string{"a1", "a2", "a3"}, after.Assets)
}

func TestAddPhotosTerminalStateFails(t *testing.T) {
	m, store, _, _ := newManager(t, true, nil)
	rec, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)
	rec.State = project.StateAbandoned
	require.NoError(t, store.Save(rec))

	_, err = m.AddPhotos(context.Background(), "deck-repair", false)
	var inv *faults.InvalidStateError
	require.ErrorAs(t, err, &inv)
}

func TestAddPhotosManualPromotionWithFlagOff(t *testing.T) {
	m, store, syncer, _ := newManager(t, false, nil)
	rec, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)

	// Without --promote the project stays Created.
	_, err = m.AddPhotos(context.Background(), "deck-repair", false)
	require.NoError(t, err)
	mid, err := store.Load(rec.Slug)
	require.NoError(t, err)
	assert.Equal(t, project.StateCreated, mid.State)

	_, err = m.AddPhotos(context.Background(), "deck-repair", true)
	require.NoError(t, err)
	after, err := store.Load(rec.Slug)
	require.NoError(t, err)
	assert.Equal(t, project.StatePhotosActive, after.State)
	assert.Equal(t, 2, syncer.synced)
}

func TestFinishFilesIntegrationRequest(t *testing.T) {
	m, store, _, trk := newManager(t, true, []string{"a1"})
	_, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)
	_, err = m.AddPhotos(context.Background(), "deck-repair", false)
	require.NoError(t, err)

	rec, err := m.Finish(context.Background(), "deck-repair")
	require.NoError(t, err)
	assert.Equal(t, project.StateMerged, rec.State)
	assert.Equal(t, "7", rec.RequestID)
	require.NotNil(t, rec.FinishedAt)
	assert.Equal(t, 1, trk.prCount)

	persisted, err := store.Load(rec.Slug)
	require.NoError(t, err)
	assert.Equal(t, project.StateMerged, persisted.State)
}

func TestFinishRollsBackOnGatewayFailure(t *testing.T) {
	m, store, _, trk := newManager(t, true, []string{"a1"})
	_, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)
	_, err = m.AddPhotos(context.Background(), "deck-repair", false)
	require.NoError(t, err)

	trk.prErr = &faults.TransientServiceError{Service: "github", Op: "open_pull_request", Err: errors.New("502")}
	_, err = m.Finish(context.Background(), "deck-repair")
	require.Error(t, err)
	assert.True(t, faults.IsTransient(err), "gateway failure is re-raised, not swallowed")

	// The only backward edge: Finishing rolled back to PhotosActive.
	persisted, err := store.Load("2026-08-30-deck-repair")
	require.NoError(t, err)
	assert.Equal(t, project.StatePhotosActive, persisted.State)
}

func TestFinishRequiresPhotosActive(t *testing.T) {
	m, _, _, _ := newManager(t, true, nil)
	_, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)

	_, err = m.Finish(context.Background(), "deck-repair")
	var inv *faults.InvalidStateError
	require.ErrorAs(t, err, &inv, "Created project cannot skip PhotosActive")
}

func TestAbandonFromAnyNonTerminalState(t *testing.T) {
	m, store, _, _ := newManager(t, true, nil)
	rec, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)

	got, err := m.Abandon(context.Background(), "deck-repair")
	require.NoError(t, err)
	assert.Equal(t, project.StateAbandoned, got.State)

	// Terminal: a second abandon is rejected.
	_, err = m.Abandon(context.Background(), "deck-repair")
	var inv *faults.InvalidStateError
	require.ErrorAs(t, err, &inv)

	persisted, err := store.Load(rec.Slug)
	require.NoError(t, err)
	assert.Equal(t, project.StateAbandoned, persisted.State)
}

func TestStatusIsReadOnly(t *testing.T) {
	m, _, syncer, _ := newManager(t, true, nil)
	_, err := m.Start(context.Background(), "deck-repair")
	require.NoError(t, err)

	rec, err := m.Status("deck-repair")
	require.NoError(t, err)
	assert.Equal(t, project.StateCreated, rec.State)
	assert.Zero(t, syncer.synced)
}
