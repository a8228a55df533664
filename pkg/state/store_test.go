// pkg/state/store_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem (atomic rename)
// PURPOSE: Test state persistence, corrupt state detection, record invariants

package state_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/filesystem"
	"github.com/arthur-debert/configbridge/pkg/state"
	"github.com/arthur-debert/configbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*state.Store, string) {
	t.Helper()
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "data", "state.json")
	return state.NewStore(filesystem.NewOS(), path), path
}

func sampleState(id string) types.LinkState {
	return types.LinkState{
		ID:                id,
		ProjectPath:       "/project/claude/settings.json",
		SystemPath:        "/home/user/.claude/settings.json",
		Kind:              types.KindSettings,
		Mode:              types.ModeSymlink,
		ProjectHash:       "sha256:abc",
		SystemHash:        "sha256:abc",
		ProjectMtime:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		SystemMtime:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		LastSyncDirection: types.DirectionProjectToSystem,
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSetGetDeleteRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Set(sampleState("claude-settings")))

	got, err := store.Get("claude-settings")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.ModeSymlink, got.Mode)
	assert.Equal(t, "sha256:abc", got.ProjectHash)

	missing, err := store.Get("gemini-settings")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.Delete("claude-settings"))
	got, err = store.Get("claude-settings")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is a no-op
	require.NoError(t, store.Delete("claude-settings"))
}

func TestIDsSorted(t *testing.T) {
	store, _ := newTestStore(t)

	for _, id := range []string{"gemini-settings", "claude-settings", "claude-mcp"} {
		s := sampleState(id)
		require.NoError(t, store.Set(s))
	}

	ids, err := store.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"claude-mcp", "claude-settings", "gemini-settings"}, ids)
}

func TestLoadCorruptJSON(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := store.Load()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCorruptState))
}

func TestLoadMismatchedKey(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"claude-settings": {"id": "something-else", "mode": "symlink", "last_sync_direction": "none"}}`), 0644))

	_, err := store.Load()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCorruptState))
}

func TestLoadUnlinkedWithHashesIsCorrupt(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"x": {"id": "x", "mode": "unlinked", "project_hash": "sha256:a", "last_sync_direction": "none"}}`), 0644))

	_, err := store.Load()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCorruptState))
}
