package photosync

import (
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
)

// lockFor acquires the advisory lock at path and returns its release func.
// A separate flock handle conflicts with the engine's even in-process.
func lockFor(t *testing.T, path string) func() {
	t.Helper()
	l := flock.New(path)
	locked, err := l.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	return func() { _ = l.Unlock() }
}
