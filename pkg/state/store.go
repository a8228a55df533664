package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/logging"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// Store reads and writes the persisted link state file. The file is a
// JSON object keyed by item id, one LinkState record per item, with
// identity fields duplicated so it stays readable on its own.
type Store struct {
	fs   types.FS
	path string
}

// NewStore creates a Store persisting to path.
func NewStore(fsys types.FS, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Load reads the whole state file. A missing file is an empty state, not
// an error. A file that exists but fails to parse is CORRUPT_STATE: the
// engine halts on it rather than guessing.
func (s *Store) Load() (map[string]types.LinkState, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]types.LinkState{}, nil
		}
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot read state file %s", s.path).WithPath(s.path)
	}

	var records map[string]types.LinkState
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCorruptState, "state file %s is not valid JSON", s.path).WithPath(s.path)
	}
	if records == nil {
		records = map[string]types.LinkState{}
	}

	for id, record := range records {
		if record.ID != id {
			return nil, errors.Newf(errors.ErrCorruptState,
				"state file %s: record keyed %q carries id %q", s.path, id, record.ID).WithPath(s.path)
		}
		if record.Mode == types.ModeUnlinked && (record.ProjectHash != "" || record.SystemHash != "") {
			return nil, errors.Newf(errors.ErrCorruptState,
				"state file %s: unlinked record %q still carries hashes", s.path, id).WithPath(s.path)
		}
	}

	return records, nil
}

// Save writes the whole state atomically: serialize to a sibling temp
// file, then rename into place.
func (s *Store) Save(records map[string]types.LinkState) error {
	logger := logging.GetLogger("state")

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot create state directory").WithPath(s.path)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot marshal state")
	}

	tmp := s.path + ".tmp"
	if err := s.fs.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot write state file").WithPath(tmp)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot replace state file").WithPath(s.path)
	}

	logger.Debug().Str("path", s.path).Int("records", len(records)).Msg("state saved")
	return nil
}

// Get returns the record for id, or (nil, nil) when none exists.
func (s *Store) Get(id string) (*types.LinkState, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	if record, ok := records[id]; ok {
		return &record, nil
	}
	return nil, nil
}

// Set upserts one record.
func (s *Store) Set(record types.LinkState) error {
	records, err := s.Load()
	if err != nil {
		return err
	}
	records[record.ID] = record
	return s.Save(records)
}

// Delete removes the record for id. Deleting a missing record is a no-op.
func (s *Store) Delete(id string) error {
	records, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := records[id]; !ok {
		return nil
	}
	delete(records, id)
	return s.Save(records)
}

// IDs returns all record ids in sorted order.
func (s *Store) IDs() ([]string, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
