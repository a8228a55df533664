// pkg/executor/executor_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: Real filesystem (symlinks, hard links, permissions)
// PURPOSE: Test plan execution, backup-before-destroy, verify, copy semantics

package executor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/configbridge/pkg/backup"
	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/executor"
	"github.com/arthur-debert/configbridge/pkg/filesystem"
	"github.com/arthur-debert/configbridge/pkg/planner"
	"github.com/arthur-debert/configbridge/pkg/platform"
	"github.com/arthur-debert/configbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	fs      types.FS
	exec    *executor.Executor
	backups *backup.Manager
	item    types.ManagedItem
	tempDir string
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	tempDir := t.TempDir()
	fs := filesystem.NewOS()
	backups := backup.New(fs, filepath.Join(tempDir, "backups"))
	prober := platform.NewProber(fs)

	item := types.ManagedItem{
		ID:          "claude-settings",
		ProjectPath: filepath.Join(tempDir, "project", "settings.json"),
		SystemPath:  filepath.Join(tempDir, "system", "settings.json"),
		Kind:        types.KindSettings,
		Enabled:     true,
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(item.ProjectPath), 0755))
	require.NoError(t, os.WriteFile(item.ProjectPath, []byte(`{"theme":"dark"}`), 0600))

	return &testEnv{
		fs:      fs,
		exec:    executor.New(fs, backups, prober),
		backups: backups,
		item:    item,
		tempDir: tempDir,
	}
}

func allCaps() types.CapabilityReport {
	return types.CapabilityReport{
		Platform:         types.PlatformPosix,
		SupportsSymlink:  true,
		SupportsHardlink: true,
		SameFilesystem:   true,
	}
}

func TestExecuteSymlinkPlan(t *testing.T) {
	env := setup(t)

	plan, err := planner.BuildPlan(env.fs, env.item, allCaps(), "")
	require.NoError(t, err)

	result := env.exec.Execute(plan)
	require.NoError(t, result.Err)
	assert.True(t, result.Success())
	assert.Equal(t, types.ModeSymlink, result.Mode)
	assert.Len(t, result.Completed, len(plan.Steps))

	target, err := os.Readlink(env.item.SystemPath)
	require.NoError(t, err)
	assert.Equal(t, env.item.ProjectPath, target)
}

func TestExecuteBacksUpBeforeDestroy(t *testing.T) {
	env := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(env.item.SystemPath), 0755))
	require.NoError(t, os.WriteFile(env.item.SystemPath, []byte("user's local edits"), 0644))

	plan, err := planner.BuildPlan(env.fs, env.item, allCaps(), "")
	require.NoError(t, err)

	result := env.exec.Execute(plan)
	require.NoError(t, result.Err)

	require.NotNil(t, result.Backup)
	stored, err := os.ReadFile(result.Backup.StoredPath)
	require.NoError(t, err)
	assert.Equal(t, "user's local edits", string(stored))

	count, err := env.backups.Count(env.item.SystemPath)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExecuteCopyPlan(t *testing.T) {
	env := setup(t)

	plan, err := planner.BuildPlan(env.fs, env.item, allCaps(), types.ModeCopy)
	require.NoError(t, err)

	result := env.exec.Execute(plan)
	require.NoError(t, result.Err)

	data, err := os.ReadFile(env.item.SystemPath)
	require.NoError(t, err)
	assert.Equal(t, `{"theme":"dark"}`, string(data))

	// Source permission bits propagate
	info, err := os.Stat(env.item.SystemPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// It's a real file, not a link
	lstat, err := os.Lstat(env.item.SystemPath)
	require.NoError(t, err)
	assert.True(t, lstat.Mode().IsRegular())
}

func TestExecuteHardlinkPlan(t *testing.T) {
	env := setup(t)

	plan, err := planner.BuildPlan(env.fs, env.item, allCaps(), types.ModeHardlink)
	require.NoError(t, err)

	result := env.exec.Execute(plan)
	require.NoError(t, result.Err)

	srcInfo, err := os.Stat(env.item.ProjectPath)
	require.NoError(t, err)
	dstInfo, err := os.Stat(env.item.SystemPath)
	require.NoError(t, err)
	assert.True(t, os.SameFile(srcInfo, dstInfo))
}

func TestCopyDereferencesOneLinkLevel(t *testing.T) {
	env := setup(t)

	// source -> real file: copied content, not a link
	linkSource := filepath.Join(env.tempDir, "project", "alias.json")
	require.NoError(t, os.Symlink(env.item.ProjectPath, linkSource))

	item := env.item
	item.ProjectPath = linkSource

	plan, err := planner.BuildPlan(env.fs, item, allCaps(), types.ModeCopy)
	require.NoError(t, err)

	result := env.exec.Execute(plan)
	require.NoError(t, result.Err)

	data, err := os.ReadFile(item.SystemPath)
	require.NoError(t, err)
	assert.Equal(t, `{"theme":"dark"}`, string(data))
}

func TestCopyRefusesChainedLinks(t *testing.T) {
	env := setup(t)

	level1 := filepath.Join(env.tempDir, "project", "level1.json")
	level2 := filepath.Join(env.tempDir, "project", "level2.json")
	require.NoError(t, os.Symlink(env.item.ProjectPath, level1))
	require.NoError(t, os.Symlink(level1, level2))

	item := env.item
	item.ProjectPath = level2

	plan, err := planner.BuildPlan(env.fs, item, allCaps(), types.ModeCopy)
	require.NoError(t, err)

	result := env.exec.Execute(plan)
	require.Error(t, result.Err)
	assert.True(t, errors.IsErrorCode(result.Err, errors.ErrLinkFailed))
}

func TestExecuteStopsAtFirstFailureAndReportsProgress(t *testing.T) {
	env := setup(t)

	// A plan whose link step points at a vanished source fails at the
	// link (or its verify), after any earlier steps completed.
	plan := &types.Plan{
		ItemID: env.item.ID,
		Mode:   types.ModeCopy,
		Steps: []types.Step{
			{Kind: types.StepCopy, Source: filepath.Join(env.tempDir, "gone.json"), Target: env.item.SystemPath, Mode: types.ModeCopy},
			{Kind: types.StepVerify, Source: filepath.Join(env.tempDir, "gone.json"), Target: env.item.SystemPath, Mode: types.ModeCopy},
		},
	}

	result := env.exec.Execute(plan)
	require.Error(t, result.Err)
	assert.Empty(t, result.Completed)
	assert.True(t, errors.IsErrorCode(result.Err, errors.ErrNotFound))
}

// brokenLinkFS fails every link mechanism and every write, so both the
// planned mode and its fallback tier fail.
type brokenLinkFS struct {
	types.FS
}

func (f brokenLinkFS) Symlink(target, link string) error {
	return &os.LinkError{Op: "symlink", Old: target, New: link, Err: os.ErrPermission}
}

func (f brokenLinkFS) Link(oldname, newname string) error {
	return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: os.ErrPermission}
}

func (f brokenLinkFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	return &os.PathError{Op: "write", Path: path, Err: os.ErrPermission}
}

func TestLinkErrorNamesBothFailedAttempts(t *testing.T) {
	env := setup(t)

	plan, err := planner.BuildPlan(env.fs, env.item, allCaps(), "")
	require.NoError(t, err)
	require.Equal(t, types.ModeSymlink, plan.Mode)

	fs := brokenLinkFS{FS: env.fs}
	exec := executor.New(fs, backup.New(fs, filepath.Join(env.tempDir, "backups")), platform.NewProber(fs))

	result := exec.Execute(plan)
	require.Error(t, result.Err)
	assert.True(t, errors.IsErrorCode(result.Err, errors.ErrLinkFailed))

	// The surfaced cause explains the original mechanism and the tier it
	// fell back to.
	assert.Contains(t, result.Err.Error(), "symlink")
	assert.Contains(t, result.Err.Error(), "fallback also failed")
}

func TestVerifyCatchesWrongSymlink(t *testing.T) {
	env := setup(t)

	other := filepath.Join(env.tempDir, "other.json")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Dir(env.item.SystemPath), 0755))
	require.NoError(t, os.Symlink(other, env.item.SystemPath))

	plan := &types.Plan{
		ItemID: env.item.ID,
		Mode:   types.ModeSymlink,
		Steps: []types.Step{
			{Kind: types.StepVerify, Source: env.item.ProjectPath, Target: env.item.SystemPath, Mode: types.ModeSymlink},
		},
	}

	result := env.exec.Execute(plan)
	require.Error(t, result.Err)
	assert.True(t, errors.IsErrorCode(result.Err, errors.ErrLinkFailed))
}
