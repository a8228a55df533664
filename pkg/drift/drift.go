// Package drift classifies managed items by comparing current content
// fingerprints against the last recorded link state. Classification is
// pure: it reads the filesystem but never mutates anything, so status
// and validate can run arbitrarily often.
package drift

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/arthur-debert/configbridge/pkg/fingerprint"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// Classify returns exactly one classification for the item. state is the
// persisted record from the last successful sync, or nil for an item the
// engine has never linked.
func Classify(fsys types.FS, item types.ManagedItem, state *types.LinkState) (types.Classification, string, error) {
	if state == nil || state.Mode == types.ModeUnlinked {
		return types.StatusUnmanaged, "no link state recorded", nil
	}

	if state.Mode == types.ModeSymlink || state.Mode == types.ModeHardlink {
		if broken, msg := linkBroken(fsys, item, state.Mode); broken {
			return types.StatusBrokenLink, msg, nil
		}
	}

	project, err := fingerprint.Compute(fsys, item.ProjectPath)
	if err != nil {
		return "", "", err
	}
	system, err := fingerprint.Compute(fsys, item.SystemPath)
	if err != nil {
		return "", "", err
	}

	if project.Found && system.Found && project.Hash == system.Hash {
		return types.StatusInSync, "", nil
	}

	// Hashes disagree (or a side is missing). Work out which sides moved
	// since the last recorded state. A missing file counts as changed.
	projectChanged := !project.Found || project.Hash != state.ProjectHash
	systemChanged := !system.Found || system.Hash != state.SystemHash

	switch {
	case projectChanged && systemChanged:
		return types.StatusConflict,
			"both sides changed independently since the last sync", nil
	case projectChanged:
		return types.StatusDriftedProject,
			"project copy changed since the last sync", nil
	case systemChanged:
		return types.StatusDriftedSystem,
			"system copy changed since the last sync", nil
	default:
		// Neither hash moved yet they disagree: the recorded state
		// itself is inconsistent with the filesystem. Surface it as a
		// conflict rather than guessing a direction.
		return types.StatusConflict,
			"recorded state does not match filesystem content", nil
	}
}

// linkBroken reports whether a link-mode item's destination no longer
// resolves to an existing file.
func linkBroken(fsys types.FS, item types.ManagedItem, mode types.LinkMode) (bool, string) {
	info, err := fsys.Lstat(item.SystemPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, fmt.Sprintf("%s no longer exists", item.SystemPath)
		}
		return true, fmt.Sprintf("cannot inspect %s: %v", item.SystemPath, err)
	}

	if mode == types.ModeSymlink {
		if info.Mode()&fs.ModeSymlink == 0 {
			// The link was replaced by a regular file; not broken,
			// drift detection below will pick it up.
			return false, ""
		}
		if _, err := fsys.Stat(item.SystemPath); err != nil {
			return true, fmt.Sprintf("%s is a dangling link", item.SystemPath)
		}
		return false, ""
	}

	// Hardlink: the destination is a regular file sharing an inode with
	// the project copy. The pairing is broken when either side vanished.
	if _, err := fsys.Stat(item.ProjectPath); err != nil {
		if os.IsNotExist(err) {
			return true, fmt.Sprintf("%s no longer exists", item.ProjectPath)
		}
	}
	return false, ""
}
