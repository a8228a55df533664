// pkg/backup/backup_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem (backup store layout)
// PURPOSE: Test snapshot capture, restore safety, and idempotence

package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	tempDir := t.TempDir()
	m := New(filesystem.NewOS(), filepath.Join(tempDir, "backups"))
	return m, tempDir
}

func TestBackupCapturesBytesAndMode(t *testing.T) {
	m, tempDir := newTestManager(t)

	original := filepath.Join(tempDir, "settings.json")
	require.NoError(t, os.WriteFile(original, []byte(`{"theme":"dark"}`), 0600))

	record, err := m.Backup("claude-settings", original)
	require.NoError(t, err)

	assert.Equal(t, "claude-settings", record.ItemID)
	assert.Equal(t, original, record.OriginalPath)
	assert.Equal(t, uint32(0600), record.OriginalMode)

	stored, err := os.ReadFile(record.StoredPath)
	require.NoError(t, err)
	assert.Equal(t, `{"theme":"dark"}`, string(stored))

	// Sidecar metadata exists next to the snapshot
	_, err = os.Stat(record.StoredPath + ".meta.json")
	assert.NoError(t, err)
}

func TestBackupMissingPathFails(t *testing.T) {
	m, tempDir := newTestManager(t)

	_, err := m.Backup("x", filepath.Join(tempDir, "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestBackupIdenticalContentIsSkipped(t *testing.T) {
	m, tempDir := newTestManager(t)

	original := filepath.Join(tempDir, "settings.json")
	require.NoError(t, os.WriteFile(original, []byte("same"), 0644))

	first, err := m.Backup("x", original)
	require.NoError(t, err)

	second, err := m.Backup("x", original)
	require.NoError(t, err)

	assert.Equal(t, first.StoredPath, second.StoredPath)

	count, err := m.Count(original)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBackupChangedContentCreatesNewEntry(t *testing.T) {
	m, tempDir := newTestManager(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	m.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}

	original := filepath.Join(tempDir, "settings.json")
	require.NoError(t, os.WriteFile(original, []byte("v1"), 0644))
	first, err := m.Backup("x", original)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(original, []byte("v2"), 0644))
	second, err := m.Backup("x", original)
	require.NoError(t, err)

	assert.NotEqual(t, first.StoredPath, second.StoredPath)

	count, err := m.Count(original)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// List is newest first
	records, err := m.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.StoredPath, records[0].StoredPath)
}

func TestRestore(t *testing.T) {
	m, tempDir := newTestManager(t)

	original := filepath.Join(tempDir, "settings.json")
	require.NoError(t, os.WriteFile(original, []byte("precious"), 0600))
	record, err := m.Backup("x", original)
	require.NoError(t, err)

	// Simulate the engine replacing the file with a symlink
	require.NoError(t, os.Remove(original))
	target := filepath.Join(tempDir, "project.json")
	require.NoError(t, os.WriteFile(target, []byte("project side"), 0644))
	require.NoError(t, os.Symlink(target, original))

	require.NoError(t, m.Restore(record, false))

	data, err := os.ReadFile(original)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(data))

	info, err := os.Lstat(original)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestRestoreRefusesForeignContent(t *testing.T) {
	m, tempDir := newTestManager(t)

	original := filepath.Join(tempDir, "settings.json")
	require.NoError(t, os.WriteFile(original, []byte("v1"), 0644))
	record, err := m.Backup("x", original)
	require.NoError(t, err)

	// A concurrent edit the engine knows nothing about
	require.NoError(t, os.WriteFile(original, []byte("someone else's work"), 0644))

	err = m.Restore(record, false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrBackupRestore))

	// Force overrides the check
	require.NoError(t, m.Restore(record, true))
	data, err := os.ReadFile(original)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestListEmptyStore(t *testing.T) {
	m, _ := newTestManager(t)

	records, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}
