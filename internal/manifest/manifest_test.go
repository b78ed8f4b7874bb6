package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayljohnson/nordhus.site/internal/faults"
	"github.com/jayljohnson/nordhus.site/internal/project"
)

func testRecord(t *testing.T) *Record {
	t.Helper()
	p, err := project.New("deck-repair", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return NewRecord(p, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	rec := testRecord(t)
	rec.AppendAssets([]string{"b2", "a1"})
	require.NoError(t, Save(path, rec))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rec.Slug, got.Slug)
	assert.Equal(t, project.StateCreated, got.State)
	assert.Equal(t, []string{"a1", "b2"}, got.Assets, "assets persist sorted")
}

func TestLoadMissingFileIsNotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, faults.IsCorruption(err), "absence is not corruption")
}

func TestLoadInvalidJSONIsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	var corrupt *faults.ManifestCorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, path, corrupt.Path)
}

func TestLoadRejectsUnknownState(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	body := `{"slug":"2026-08-30-x","project_name":"x","branch_name":"project/2026-08-30-x","state":"halfway","assets":[],"created_at":"2026-08-30T00:00:00Z"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := Load(path)
	require.True(t, faults.IsCorruption(err))
}

func TestLoadRejectsDuplicateAssets(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	body := `{"slug":"2026-08-30-x","project_name":"x","branch_name":"project/2026-08-30-x","state":"created","assets":["a1","a1"],"created_at":"2026-08-30T00:00:00Z"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := Load(path)
	require.True(t, faults.IsCorruption(err))
}

func TestSaveRefusesAssetRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	rec := testRecord(t)
	rec.AppendAssets([]string{"a1", "a2"})
	require.NoError(t, Save(path, rec))

	shrunk := testRecord(t)
	shrunk.AppendAssets([]string{"a1"})
	err := Save(path, shrunk)
	require.True(t, faults.IsCorruption(err), "dropping a synced asset must be refused")

	// The original file is untouched.
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, got.Assets)
}

func TestSaveAllowsGrowthAndMetadataChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	rec := testRecord(t)
	rec.AppendAssets([]string{"a1"})
	require.NoError(t, Save(path, rec))

	rec.AppendAssets([]string{"a2"})
	rec.State = project.StatePhotosActive
	now := time.Now().UTC()
	rec.LastSyncAt = &now
	require.NoError(t, Save(path, rec))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, got.Assets)
	assert.Equal(t, project.StatePhotosActive, got.State)
	require.NotNil(t, got.LastSyncAt)
}

func TestAppendAssetsDedupesAndSorts(t *testing.T) {
	rec := testRecord(t)
	rec.AppendAssets([]string{"c", "a"})
	rec.AppendAssets([]string{"b", "a", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, rec.Assets)
}
