// Package engine is the link/sync core of configbridge. It wires the
// capability probe, planner, executor, backup manager and state store
// into the operation surface the CLI layer calls: link, unlink, status,
// validate, repair and sync.
package engine

import (
	"os"
	"time"

	"github.com/arthur-debert/configbridge/pkg/backup"
	"github.com/arthur-debert/configbridge/pkg/drift"
	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/executor"
	"github.com/arthur-debert/configbridge/pkg/fingerprint"
	"github.com/arthur-debert/configbridge/pkg/logging"
	"github.com/arthur-debert/configbridge/pkg/paths"
	"github.com/arthur-debert/configbridge/pkg/planner"
	"github.com/arthur-debert/configbridge/pkg/platform"
	"github.com/arthur-debert/configbridge/pkg/report"
	"github.com/arthur-debert/configbridge/pkg/state"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// Engine coordinates all link/sync operations for one invocation. It is
// not safe for concurrent use; batch operations take an advisory lock
// against other processes instead.
type Engine struct {
	fs      types.FS
	paths   paths.Paths
	states  *state.Store
	backups *backup.Manager
	prober  *platform.Prober
	exec    *executor.Executor
}

// Option adjusts an Engine at construction time.
type Option func(*Engine)

// WithProber replaces the default prober, letting tests pin a platform
// kind.
func WithProber(p *platform.Prober) Option {
	return func(e *Engine) { e.prober = p }
}

// New creates an Engine against the given filesystem and path layout.
func New(fsys types.FS, p paths.Paths, opts ...Option) *Engine {
	e := &Engine{
		fs:      fsys,
		paths:   p,
		states:  state.NewStore(fsys, p.StateFilePath()),
		backups: backup.New(fsys, p.BackupsDir()),
		prober:  platform.NewProber(fsys),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.exec = executor.New(fsys, e.backups, e.prober)
	return e
}

// Backups exposes the backup manager for the CLI's restore surface.
func (e *Engine) Backups() *backup.Manager {
	return e.backups
}

// resolveItem normalizes both paths (home expansion, absolutes, symlink
// expansion of existing ancestors) and re-checks the item invariants on
// the resolved values so an aliased pair can never slip through.
func (e *Engine) resolveItem(item types.ManagedItem) (types.ManagedItem, error) {
	projectPath, err := e.paths.Resolve(item.ProjectPath)
	if err != nil {
		return item, err
	}
	systemPath, err := e.paths.Resolve(item.SystemPath)
	if err != nil {
		return item, err
	}
	item.ProjectPath = projectPath
	item.SystemPath = systemPath
	if err := item.Validate(); err != nil {
		return item, errors.Wrap(err, errors.ErrInvalidInput, "invalid managed item")
	}
	return item, nil
}

// Link establishes the item's link using the strongest supported
// mechanism, or the requested mode when one is given. On success the
// persisted state records the mode actually used (which may be a weaker
// tier than planned, after fallback) and fresh fingerprints of both
// sides.
func (e *Engine) Link(item types.ManagedItem, requested types.LinkMode) (*types.ExecutionResult, error) {
	logger := logging.GetLogger("engine")

	item, err := e.resolveItem(item)
	if err != nil {
		return nil, err
	}

	capabilities := e.prober.Probe(item.ProjectPath, item.SystemPath)
	plan, err := planner.BuildPlan(e.fs, item, capabilities, requested)
	if err != nil {
		return nil, err
	}

	result := e.exec.Execute(plan)
	if result.Err != nil {
		return result, result.Err
	}

	if err := e.recordState(item, result.Mode, types.DirectionProjectToSystem); err != nil {
		return result, err
	}

	logger.Info().Str("item", item.ID).Str("mode", string(result.Mode)).Msg("item linked")
	return result, nil
}

// Unlink removes the item's system-side entry and forgets its state.
// When the entry is a regular file (copy or hardlink mode) the content
// is backed up before removal. With restore set, the most recent backup
// taken before this operation is put back at the system location.
func (e *Engine) Unlink(item types.ManagedItem, restore bool) error {
	logger := logging.GetLogger("engine")

	item, err := e.resolveItem(item)
	if err != nil {
		return err
	}

	// The backup to restore is whatever was at the location before the
	// engine first linked it, so capture the record before adding a new
	// snapshot below.
	preExisting, err := e.backups.LatestFor(item.SystemPath)
	if err != nil {
		return err
	}

	if info, err := e.fs.Lstat(item.SystemPath); err == nil {
		if info.Mode().IsRegular() {
			if _, err := e.backups.Backup(item.ID, item.SystemPath); err != nil {
				return err
			}
		}
		if err := e.fs.Remove(item.SystemPath); err != nil {
			return errors.Wrapf(err, errors.ErrIO, "cannot remove %s", item.SystemPath).WithPath(item.SystemPath)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrIO, "cannot inspect %s", item.SystemPath).WithPath(item.SystemPath)
	}

	if restore && preExisting != nil {
		if err := e.backups.Restore(preExisting, false); err != nil {
			return err
		}
	}

	if err := e.states.Delete(item.ID); err != nil {
		return err
	}

	logger.Info().Str("item", item.ID).Bool("restored", restore && preExisting != nil).Msg("item unlinked")
	return nil
}

// Status classifies every item and returns one id-sorted row per item.
// Read-only.
func (e *Engine) Status(items []types.ManagedItem) ([]types.ItemStatus, error) {
	resolved, err := e.resolveAll(items)
	if err != nil {
		return nil, err
	}
	return report.Report(e.fs, resolved, e.states.Get)
}

// Validate returns the non-in-sync rows plus a pass/fail signal for
// scripted checks.
func (e *Engine) Validate(items []types.ManagedItem) ([]types.ItemStatus, bool, error) {
	resolved, err := e.resolveAll(items)
	if err != nil {
		return nil, false, err
	}
	return report.Validate(e.fs, resolved, e.states.Get)
}

func (e *Engine) resolveAll(items []types.ManagedItem) ([]types.ManagedItem, error) {
	resolved := make([]types.ManagedItem, 0, len(items))
	for _, item := range items {
		r, err := e.resolveItem(item)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

// Repair fixes a single broken_link or drifted item by re-running plan
// and execute, first recovering content from the side that still has
// it. Conflicts are never repaired here: they surface as CONFLICT for
// the user to resolve with an explicit sync direction.
func (e *Engine) Repair(item types.ManagedItem) (*types.ExecutionResult, error) {
	logger := logging.GetLogger("engine")

	item, err := e.resolveItem(item)
	if err != nil {
		return nil, err
	}

	linkState, err := e.states.Get(item.ID)
	if err != nil {
		return nil, err
	}

	classification, _, err := drift.Classify(e.fs, item, linkState)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("item", item.ID).Str("classification", string(classification)).Msg("repairing")

	switch classification {
	case types.StatusInSync:
		return &types.ExecutionResult{ItemID: item.ID, Mode: linkState.Mode}, nil

	case types.StatusConflict:
		return nil, errors.Newf(errors.ErrConflict,
			"%s changed on both sides; resolve with an explicit sync direction", item.ID)

	case types.StatusUnmanaged:
		return nil, errors.Newf(errors.ErrInvalidInput,
			"%s has no link state; use link instead of repair", item.ID)

	case types.StatusBrokenLink:
		if err := e.recoverProjectFromSystem(item); err != nil {
			return nil, err
		}
		return e.Link(item, "")

	case types.StatusDriftedProject:
		// Project is the fresher side; relinking pushes it out.
		return e.Link(item, "")

	case types.StatusDriftedSystem:
		// System is the fresher side; pull it back first, then relink.
		// A deleted system file has nothing to pull, so just recreate.
		if _, statErr := e.fs.Stat(item.SystemPath); statErr == nil {
			if err := e.copyBytes(item.SystemPath, item.ProjectPath, item.ID); err != nil {
				return nil, err
			}
		}
		return e.Link(item, "")

	default:
		return nil, errors.Newf(errors.ErrInternal, "unhandled classification %q", classification)
	}
}

// recoverProjectFromSystem restores a missing project file from
// system-side content where any remains.
func (e *Engine) recoverProjectFromSystem(item types.ManagedItem) error {
	if _, err := e.fs.Stat(item.ProjectPath); err == nil {
		return nil
	}

	if _, err := e.fs.Stat(item.SystemPath); err != nil {
		return errors.Newf(errors.ErrNotFound,
			"cannot repair %s: no content remains on either side", item.ID).WithPath(item.ProjectPath)
	}

	return e.copyBytes(item.SystemPath, item.ProjectPath, item.ID)
}

// copyBytes copies regular-file content from src to dst, backing up dst
// first when it holds regular content.
func (e *Engine) copyBytes(src, dst, itemID string) error {
	if info, err := e.fs.Lstat(dst); err == nil && info.Mode().IsRegular() {
		if _, err := e.backups.Backup(itemID, dst); err != nil {
			return err
		}
	}

	data, err := e.fs.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Newf(errors.ErrNotFound, "source missing: %s", src).WithPath(src)
		}
		return errors.Wrapf(err, errors.ErrIO, "cannot read %s", src).WithPath(src)
	}

	info, err := e.fs.Stat(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot stat %s", src).WithPath(src)
	}

	// Remove a symlink at dst rather than writing through it
	if dstInfo, err := e.fs.Lstat(dst); err == nil && !dstInfo.Mode().IsRegular() {
		if err := e.fs.Remove(dst); err != nil {
			return errors.Wrapf(err, errors.ErrIO, "cannot clear %s", dst).WithPath(dst)
		}
	}

	if err := e.fs.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot write %s", dst).WithPath(dst)
	}
	return nil
}

// Sync performs a one-directional whole-file copy between the two sides
// and refreshes the recorded state. With DirectionNone the direction is
// inferred from drift, and a conflict is surfaced as CONFLICT with both
// files left untouched, never resolved by picking a side.
func (e *Engine) Sync(item types.ManagedItem, direction types.SyncDirection) error {
	item, err := e.resolveItem(item)
	if err != nil {
		return err
	}

	if direction == types.DirectionNone || direction == "" {
		linkState, err := e.states.Get(item.ID)
		if err != nil {
			return err
		}
		classification, _, err := drift.Classify(e.fs, item, linkState)
		if err != nil {
			return err
		}
		switch classification {
		case types.StatusInSync:
			return nil
		case types.StatusConflict:
			return errors.Newf(errors.ErrConflict,
				"%s changed on both sides; pass an explicit direction", item.ID)
		case types.StatusDriftedProject:
			direction = types.DirectionProjectToSystem
		case types.StatusDriftedSystem:
			direction = types.DirectionSystemToProject
		default:
			return errors.Newf(errors.ErrInvalidInput,
				"cannot infer a sync direction for %s (%s)", item.ID, classification)
		}
	}

	var src, dst string
	switch direction {
	case types.DirectionProjectToSystem:
		src, dst = item.ProjectPath, item.SystemPath
	case types.DirectionSystemToProject:
		src, dst = item.SystemPath, item.ProjectPath
	default:
		return errors.Newf(errors.ErrInvalidInput, "unknown sync direction %q", direction)
	}

	if err := e.copyBytes(src, dst, item.ID); err != nil {
		return err
	}

	mode := types.ModeCopy
	if linkState, err := e.states.Get(item.ID); err == nil && linkState != nil {
		mode = linkState.Mode
	}
	return e.recordState(item, mode, direction)
}

// Adopt captures an existing system file into the project tree and
// links it. The inverse of the usual flow: used when a tool's config
// already exists at the system location but not under version control.
func (e *Engine) Adopt(item types.ManagedItem, requested types.LinkMode) (*types.ExecutionResult, error) {
	item, err := e.resolveItem(item)
	if err != nil {
		return nil, err
	}

	if _, err := e.fs.Stat(item.SystemPath); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound,
				"nothing to adopt at %s", item.SystemPath).WithPath(item.SystemPath)
		}
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot stat %s", item.SystemPath).WithPath(item.SystemPath)
	}

	if _, err := e.fs.Stat(item.ProjectPath); err == nil {
		return nil, errors.Newf(errors.ErrInvalidInput,
			"project file already exists at %s; use link or sync", item.ProjectPath).WithPath(item.ProjectPath)
	}

	if err := e.copyBytes(item.SystemPath, item.ProjectPath, item.ID); err != nil {
		return nil, err
	}

	return e.Link(item, requested)
}

// recordState captures fresh fingerprints and mtimes for both sides and
// persists them under the item's id.
func (e *Engine) recordState(item types.ManagedItem, mode types.LinkMode, direction types.SyncDirection) error {
	projectPrint, err := fingerprint.Compute(e.fs, item.ProjectPath)
	if err != nil {
		return err
	}
	systemPrint, err := fingerprint.Compute(e.fs, item.SystemPath)
	if err != nil {
		return err
	}

	record := types.LinkState{
		ID:                item.ID,
		ProjectPath:       item.ProjectPath,
		SystemPath:        item.SystemPath,
		Kind:              item.Kind,
		Mode:              mode,
		ProjectHash:       projectPrint.Hash,
		SystemHash:        systemPrint.Hash,
		LastSyncDirection: direction,
	}
	record.ProjectMtime = mtimeOf(e.fs, item.ProjectPath)
	record.SystemMtime = mtimeOf(e.fs, item.SystemPath)

	return e.states.Set(record)
}

func mtimeOf(fsys types.FS, path string) time.Time {
	if info, err := fsys.Stat(path); err == nil {
		return info.ModTime().UTC()
	}
	return time.Time{}
}
