// Package planner turns a managed item plus a capability report into an
// ordered plan of filesystem actions. Planning only reads the
// filesystem; all mutation happens in pkg/executor. That split keeps
// mode selection and the backup-first rule unit-testable without
// touching any real filesystem.
package planner

import (
	"io/fs"
	"os"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/fingerprint"
	"github.com/arthur-debert/configbridge/pkg/logging"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// SelectMode picks the link mode for a capability report: symlink when
// supported, else hardlink when supported on one filesystem, else copy.
// windows-native always copies, since unprivileged symlink creation is
// unreliable there. An explicitly requested mode is honored when the
// report allows it and rejected with UNSUPPORTED_ON_PLATFORM otherwise.
func SelectMode(report types.CapabilityReport, requested types.LinkMode) (types.LinkMode, error) {
	if requested != "" && requested != types.ModeUnlinked {
		if err := checkRequested(report, requested); err != nil {
			return "", err
		}
		return requested, nil
	}

	if report.Platform == types.PlatformWindowsNative {
		return types.ModeCopy, nil
	}
	if report.SupportsSymlink {
		return types.ModeSymlink, nil
	}
	if report.SupportsHardlink && report.SameFilesystem {
		return types.ModeHardlink, nil
	}
	return types.ModeCopy, nil
}

func checkRequested(report types.CapabilityReport, requested types.LinkMode) error {
	switch requested {
	case types.ModeCopy:
		return nil
	case types.ModeSymlink:
		if report.Platform == types.PlatformWindowsNative {
			return errors.New(errors.ErrUnsupportedPlatform, "symlink mode is forced off on windows-native")
		}
		if !report.SupportsSymlink {
			return errors.New(errors.ErrUnsupportedPlatform, "filesystem does not support symlinks here")
		}
		return nil
	case types.ModeHardlink:
		if !report.SupportsHardlink {
			return errors.New(errors.ErrUnsupportedPlatform, "filesystem does not support hard links here")
		}
		if !report.SameFilesystem {
			return errors.New(errors.ErrUnsupportedPlatform, "hard links require both paths on one filesystem")
		}
		return nil
	default:
		return errors.Newf(errors.ErrInvalidInput, "unknown link mode %q", requested)
	}
}

// BuildPlan produces the ordered steps that link item.SystemPath to
// item.ProjectPath. The first step is always a backup when the
// destination holds regular non-link content: the planner never schedules
// deletion of the only copy of anything.
//
// Requesting an empty mode lets the report decide. The source file must
// exist; a missing project file is NOT_FOUND.
func BuildPlan(fsys types.FS, item types.ManagedItem, report types.CapabilityReport, requested types.LinkMode) (*types.Plan, error) {
	logger := logging.GetLogger("planner")

	if err := item.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid managed item")
	}

	if _, err := fsys.Stat(item.ProjectPath); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "project file missing for %s", item.ID).WithPath(item.ProjectPath)
		}
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot stat %s", item.ProjectPath).WithPath(item.ProjectPath)
	}

	mode, err := SelectMode(report, requested)
	if err != nil {
		return nil, err
	}

	plan := &types.Plan{ItemID: item.ID, Mode: mode}

	dest := inspectDestination(fsys, item, mode)

	if dest.alreadyCorrect {
		// Creating a link that already points correctly is a no-op;
		// only the verify step remains.
		plan.Steps = append(plan.Steps, types.Step{
			Kind:   types.StepVerify,
			Source: item.ProjectPath,
			Target: item.SystemPath,
			Mode:   mode,
		})
		logger.Debug().Str("item", item.ID).Str("mode", string(mode)).Msg("destination already correct")
		return plan, nil
	}

	if dest.holdsRegularContent {
		plan.Steps = append(plan.Steps, types.Step{
			Kind:   types.StepBackup,
			Target: item.SystemPath,
		})
	}

	if dest.exists {
		plan.Steps = append(plan.Steps, types.Step{
			Kind:   types.StepRemove,
			Target: item.SystemPath,
		})
	}

	createKind := types.StepLink
	if mode == types.ModeCopy {
		createKind = types.StepCopy
	}
	plan.Steps = append(plan.Steps,
		types.Step{
			Kind:   createKind,
			Source: item.ProjectPath,
			Target: item.SystemPath,
			Mode:   mode,
		},
		types.Step{
			Kind:   types.StepVerify,
			Source: item.ProjectPath,
			Target: item.SystemPath,
			Mode:   mode,
		},
	)

	logger.Debug().
		Str("item", item.ID).
		Str("mode", string(mode)).
		Int("steps", len(plan.Steps)).
		Msg("plan built")

	return plan, nil
}

// destState summarizes what currently occupies the destination path.
type destState struct {
	exists              bool
	holdsRegularContent bool
	alreadyCorrect      bool
}

func inspectDestination(fsys types.FS, item types.ManagedItem, mode types.LinkMode) destState {
	info, err := fsys.Lstat(item.SystemPath)
	if err != nil {
		return destState{}
	}

	st := destState{exists: true}

	if info.Mode()&fs.ModeSymlink != 0 {
		if mode == types.ModeSymlink {
			if target, err := fsys.Readlink(item.SystemPath); err == nil && target == item.ProjectPath {
				st.alreadyCorrect = true
			}
		}
		return st
	}

	// A regular file. For hardlink mode the destination may already be
	// the same inode; for copy mode identical bytes mean nothing to do.
	st.holdsRegularContent = true

	switch mode {
	case types.ModeHardlink:
		if srcInfo, err := fsys.Stat(item.ProjectPath); err == nil && os.SameFile(srcInfo, info) {
			st.alreadyCorrect = true
			st.holdsRegularContent = false
		}
	case types.ModeCopy:
		src, err1 := fingerprint.Compute(fsys, item.ProjectPath)
		dst, err2 := fingerprint.Compute(fsys, item.SystemPath)
		if err1 == nil && err2 == nil && src.Found && dst.Found && src.Hash == dst.Hash {
			st.alreadyCorrect = true
		}
	}

	return st
}
