package engine

import (
	"sort"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/logging"
	"github.com/arthur-debert/configbridge/pkg/state"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// BatchResult is one item's outcome within a batch operation.
type BatchResult struct {
	ItemID string
	Result *types.ExecutionResult
	Err    error
}

// LinkAll links every enabled item in id order under the advisory lock.
// A failing item does not stop the rest, with one exception: a corrupt
// state file halts the batch immediately, since every further write
// would compound the damage.
func (e *Engine) LinkAll(items []types.ManagedItem, requested types.LinkMode) ([]BatchResult, error) {
	return e.eachLocked(items, func(item types.ManagedItem) (*types.ExecutionResult, error) {
		return e.Link(item, requested)
	})
}

// UnlinkAll unlinks every enabled item in id order under the advisory
// lock, with the same continue-past-failures semantics as LinkAll.
func (e *Engine) UnlinkAll(items []types.ManagedItem, restore bool) ([]BatchResult, error) {
	return e.eachLocked(items, func(item types.ManagedItem) (*types.ExecutionResult, error) {
		return nil, e.Unlink(item, restore)
	})
}

func (e *Engine) eachLocked(items []types.ManagedItem, op func(types.ManagedItem) (*types.ExecutionResult, error)) ([]BatchResult, error) {
	logger := logging.GetLogger("engine")

	lock := state.NewLock(e.fs, e.paths.LockFilePath())
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer lock.Release()

	ordered := make([]types.ManagedItem, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var results []BatchResult
	for _, item := range ordered {
		if !item.Enabled {
			logger.Debug().Str("item", item.ID).Msg("skipping disabled item")
			continue
		}

		result, err := op(item)
		results = append(results, BatchResult{ItemID: item.ID, Result: result, Err: err})

		if errors.IsErrorCode(err, errors.ErrCorruptState) {
			logger.Error().Str("item", item.ID).Msg("state file is corrupt, halting batch")
			return results, err
		}
		if err != nil {
			logger.Warn().Err(err).Str("item", item.ID).Msg("item failed, continuing batch")
		}
	}
	return results, nil
}
