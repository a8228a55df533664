// pkg/state/lock_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem
// PURPOSE: Test advisory lock acquire/release semantics

package state_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/filesystem"
	"github.com/arthur-debert/configbridge/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireRelease(t *testing.T) {
	fs := filesystem.NewOS()
	path := filepath.Join(t.TempDir(), "data", "configbridge.lock")

	lock := state.NewLock(fs, path)
	require.NoError(t, lock.Acquire())

	// A second holder fails fast with LOCKED
	second := state.NewLock(fs, path)
	err := second.Acquire()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLocked))

	lock.Release()

	// After release the lock is available again
	require.NoError(t, second.Acquire())
	second.Release()
}

func TestLockRecordsOwnerPidAndCleansStaging(t *testing.T) {
	fs := filesystem.NewOS()
	dir := t.TempDir()
	path := filepath.Join(dir, "configbridge.lock")

	lock := state.NewLock(fs, path)
	require.NoError(t, lock.Acquire())
	defer lock.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(string(data)))

	// Only the lock file itself remains in the directory
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "configbridge.lock", entries[0].Name())
}

func TestReleaseWithoutAcquireIsNoop(t *testing.T) {
	lock := state.NewLock(filesystem.NewOS(), filepath.Join(t.TempDir(), "x.lock"))
	lock.Release()
}
