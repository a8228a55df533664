// Package executor applies link plans to the filesystem. It runs steps
// in order, stops at the first failure while reporting which steps
// completed, and falls back one link tier (symlink, hardlink, copy)
// after a single re-probe when the planned mechanism fails under it.
package executor

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arthur-debert/configbridge/pkg/backup"
	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/fingerprint"
	"github.com/arthur-debert/configbridge/pkg/logging"
	"github.com/arthur-debert/configbridge/pkg/platform"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// Executor applies plans.
type Executor struct {
	fs      types.FS
	backups *backup.Manager
	prober  *platform.Prober
}

// New creates an Executor.
func New(fsys types.FS, backups *backup.Manager, prober *platform.Prober) *Executor {
	return &Executor{fs: fsys, backups: backups, prober: prober}
}

// Execute runs the plan's steps in order. The returned result always
// lists the steps that completed, so the caller can decide whether to
// roll back via the backup record when Err is set.
func (e *Executor) Execute(plan *types.Plan) *types.ExecutionResult {
	logger := logging.GetLogger("executor")

	result := &types.ExecutionResult{
		ItemID: plan.ItemID,
		Mode:   plan.Mode,
	}

	for _, step := range plan.Steps {
		var err error
		switch step.Kind {
		case types.StepBackup:
			var record *types.BackupRecord
			record, err = e.backups.Backup(plan.ItemID, step.Target)
			if err == nil {
				result.Backup = record
			}
		case types.StepRemove:
			err = e.remove(step.Target)
		case types.StepLink:
			err = e.createLink(step, result)
		case types.StepCopy:
			err = e.copyFile(step.Source, step.Target)
		case types.StepVerify:
			err = e.verify(step, result.Mode)
		default:
			err = errors.Newf(errors.ErrInternal, "unknown step kind %q", step.Kind)
		}

		if err != nil {
			logger.Error().
				Str("item", plan.ItemID).
				Str("step", string(step.Kind)).
				Err(err).
				Msg("step failed")
			result.Err = err
			return result
		}
		result.Completed = append(result.Completed, step)
	}

	logger.Info().
		Str("item", plan.ItemID).
		Str("mode", string(result.Mode)).
		Bool("fellBack", result.FellBack).
		Msg("plan executed")

	return result
}

func (e *Executor) remove(target string) error {
	if err := e.fs.Remove(target); err != nil && !os.IsNotExist(err) {
		if os.IsPermission(err) {
			return errors.Wrapf(err, errors.ErrPermission, "cannot remove %s", target).WithPath(target)
		}
		return errors.Wrapf(err, errors.ErrIO, "cannot remove %s", target).WithPath(target)
	}
	return nil
}

// createLink creates the planned link, trying the next weaker tier once
// if the mechanism fails at execution time (for example a race where
// another process re-created the destination between probe and execute).
// Capability is re-probed once before falling back.
func (e *Executor) createLink(step types.Step, result *types.ExecutionResult) error {
	logger := logging.GetLogger("executor")

	if err := e.fs.MkdirAll(filepath.Dir(step.Target), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot create parent of %s", step.Target).WithPath(step.Target)
	}

	firstErr := e.attempt(step.Mode, step.Source, step.Target)
	if firstErr == nil {
		return nil
	}

	report := e.prober.Probe(step.Source, step.Target)
	if fallback, ok := fallbackTier(step.Mode, report); ok {
		logger.Warn().
			Str("from", string(step.Mode)).
			Str("to", string(fallback)).
			Err(firstErr).
			Msg("link mechanism failed, falling back one tier")

		// The failed attempt may have left a partial entry behind
		if err := e.remove(step.Target); err != nil {
			return err
		}

		fallbackErr := e.attempt(fallback, step.Source, step.Target)
		if fallbackErr == nil {
			result.Mode = fallback
			result.FellBack = true
			return nil
		}
		return errors.Wrapf(firstErr, errors.ErrLinkFailed,
			"cannot link %s to %s (%s fallback also failed: %v)",
			step.Target, step.Source, fallback, fallbackErr).WithPath(step.Target)
	}

	return errors.Wrapf(firstErr, errors.ErrLinkFailed,
		"cannot link %s to %s", step.Target, step.Source).WithPath(step.Target)
}

// fallbackTier returns the next weaker tier to try, honoring the
// re-probed capability report. Copy has nothing beneath it.
func fallbackTier(mode types.LinkMode, report types.CapabilityReport) (types.LinkMode, bool) {
	switch mode {
	case types.ModeSymlink:
		if report.SupportsHardlink && report.SameFilesystem {
			return types.ModeHardlink, true
		}
		return types.ModeCopy, true
	case types.ModeHardlink:
		return types.ModeCopy, true
	default:
		return "", false
	}
}

func (e *Executor) attempt(mode types.LinkMode, source, target string) error {
	switch mode {
	case types.ModeSymlink:
		return e.fs.Symlink(source, target)
	case types.ModeHardlink:
		return e.fs.Link(source, target)
	case types.ModeCopy:
		return e.copyFile(source, target)
	default:
		return errors.Newf(errors.ErrInternal, "cannot create link with mode %q", mode)
	}
}

// copyFile copies bytes and re-applies the source's permission bits. A
// symlink source is dereferenced exactly one level; a link to a link is
// refused rather than chased.
func (e *Executor) copyFile(source, target string) error {
	readFrom := source

	info, err := e.fs.Lstat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Newf(errors.ErrNotFound, "copy source missing: %s", source).WithPath(source)
		}
		return errors.Wrapf(err, errors.ErrIO, "cannot stat %s", source).WithPath(source)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		resolved, err := e.fs.Readlink(source)
		if err != nil {
			return errors.Wrapf(err, errors.ErrIO, "cannot read link %s", source).WithPath(source)
		}
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(filepath.Dir(source), resolved)
		}
		linkInfo, err := e.fs.Lstat(resolved)
		if err != nil {
			return errors.Newf(errors.ErrNotFound, "link target missing: %s", resolved).WithPath(resolved)
		}
		if linkInfo.Mode()&fs.ModeSymlink != 0 {
			return errors.Newf(errors.ErrLinkFailed, "refusing to copy through chained links: %s", source).WithPath(source)
		}
		readFrom = resolved
		info = linkInfo
	}

	data, err := e.fs.ReadFile(readFrom)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot read %s", readFrom).WithPath(readFrom)
	}

	if err := e.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot create parent of %s", target).WithPath(target)
	}
	if err := e.fs.WriteFile(target, data, info.Mode().Perm()); err != nil {
		if os.IsPermission(err) {
			return errors.Wrapf(err, errors.ErrPermission, "cannot write %s", target).WithPath(target)
		}
		return errors.Wrapf(err, errors.ErrIO, "cannot write %s", target).WithPath(target)
	}
	if err := e.fs.Chmod(target, info.Mode().Perm()); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot set mode on %s", target).WithPath(target)
	}

	return nil
}

// verify confirms the created relationship actually holds.
func (e *Executor) verify(step types.Step, mode types.LinkMode) error {
	switch mode {
	case types.ModeSymlink:
		target, err := e.fs.Readlink(step.Target)
		if err != nil {
			return errors.Wrapf(err, errors.ErrLinkFailed, "verify: %s is not a symlink", step.Target).WithPath(step.Target)
		}
		if target != step.Source {
			return errors.Newf(errors.ErrLinkFailed,
				"verify: %s points at %s, want %s", step.Target, target, step.Source).WithPath(step.Target)
		}
		if _, err := e.fs.Stat(step.Target); err != nil {
			return errors.Wrapf(err, errors.ErrLinkFailed, "verify: %s does not resolve", step.Target).WithPath(step.Target)
		}
		return nil

	case types.ModeHardlink:
		srcInfo, err := e.fs.Stat(step.Source)
		if err != nil {
			return errors.Wrapf(err, errors.ErrLinkFailed, "verify: source vanished").WithPath(step.Source)
		}
		dstInfo, err := e.fs.Lstat(step.Target)
		if err != nil {
			return errors.Wrapf(err, errors.ErrLinkFailed, "verify: target vanished").WithPath(step.Target)
		}
		if os.SameFile(srcInfo, dstInfo) {
			return nil
		}
		// Content comparison fallback for filesystems that cannot
		// report inode identity.
		return e.verifyHashes(step)

	case types.ModeCopy:
		return e.verifyHashes(step)

	default:
		return errors.Newf(errors.ErrInternal, "cannot verify mode %q", mode)
	}
}

func (e *Executor) verifyHashes(step types.Step) error {
	src, err := fingerprint.Compute(e.fs, step.Source)
	if err != nil {
		return err
	}
	dst, err := fingerprint.Compute(e.fs, step.Target)
	if err != nil {
		return err
	}
	if !src.Found || !dst.Found || src.Hash != dst.Hash {
		return errors.Newf(errors.ErrLinkFailed,
			"verify: content mismatch between %s and %s", step.Source, step.Target).WithPath(step.Target)
	}
	return nil
}
