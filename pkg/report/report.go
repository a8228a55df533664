// Package report produces deterministic, id-sorted status reports over
// managed items for the CLI layer to render. It is read-only: the
// underlying classification never mutates state.
package report

import (
	"sort"

	"github.com/arthur-debert/configbridge/pkg/drift"
	"github.com/arthur-debert/configbridge/pkg/logging"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// StateLookup resolves an item id to its persisted link state, nil when
// the engine has never linked the item.
type StateLookup func(id string) (*types.LinkState, error)

// Report classifies every item and returns one row per item, sorted by
// id for deterministic output. Disabled items are included (callers
// filter if they want); classification errors for one item do not stop
// the others, the row carries the error message instead.
func Report(fsys types.FS, items []types.ManagedItem, lookup StateLookup) ([]types.ItemStatus, error) {
	logger := logging.GetLogger("report")

	sorted := make([]types.ManagedItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	statuses := make([]types.ItemStatus, 0, len(sorted))
	for _, item := range sorted {
		state, err := lookup(item.ID)
		if err != nil {
			return nil, err
		}

		row := types.ItemStatus{
			ItemID:      item.ID,
			Kind:        item.Kind,
			Mode:        types.ModeUnlinked,
			ProjectPath: item.ProjectPath,
			SystemPath:  item.SystemPath,
		}
		if state != nil {
			row.Mode = state.Mode
		}

		classification, msg, err := drift.Classify(fsys, item, state)
		if err != nil {
			logger.Warn().Str("item", item.ID).Err(err).Msg("classification failed")
			row.Classification = types.StatusCheckFailed
			row.Message = err.Error()
		} else {
			row.Classification = classification
			row.Message = msg
		}

		statuses = append(statuses, row)
	}

	return statuses, nil
}

// Validate is Report filtered to the rows that are not in sync. The
// boolean is true when everything passed, giving scripted callers a
// single pass/fail signal.
func Validate(fsys types.FS, items []types.ManagedItem, lookup StateLookup) ([]types.ItemStatus, bool, error) {
	all, err := Report(fsys, items, lookup)
	if err != nil {
		return nil, false, err
	}

	var failing []types.ItemStatus
	for _, row := range all {
		if row.Classification != types.StatusInSync {
			failing = append(failing, row)
		}
	}

	return failing, len(failing) == 0, nil
}
