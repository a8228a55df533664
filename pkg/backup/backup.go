// Package backup captures timestamped snapshots of managed files before
// any destructive mutation. The backup store directory is owned
// exclusively by this package; entries are immutable and never
// overwritten once written.
package backup

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/fingerprint"
	"github.com/arthur-debert/configbridge/pkg/logging"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// metaSuffix names the sidecar metadata file next to each stored snapshot.
const metaSuffix = ".meta.json"

// timestampLayout namespaces entries by creation time, to the second.
const timestampLayout = "20060102-150405"

// Manager is the backup store. All mutating engine operations go through
// Backup before destroying content.
type Manager struct {
	fs   types.FS
	root string

	// now is swappable for tests
	now func() time.Time
}

// New creates a Manager rooted at dir.
func New(fsys types.FS, dir string) *Manager {
	return &Manager{
		fs:   fsys,
		root: dir,
		now:  time.Now,
	}
}

// Backup snapshots the file at path. The original is copied, never
// moved, so a subsequent link step still has a source to read. Callers
// must check existence first: a missing path is a NOT_FOUND error here.
//
// Backing up content identical to the most recent snapshot of the same
// path is a no-op returning the existing record, which keeps retried
// operations from piling up duplicates.
func (m *Manager) Backup(itemID, path string) (*types.BackupRecord, error) {
	logger := logging.GetLogger("backup")

	info, err := m.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "nothing to back up at %s", path).WithPath(path)
		}
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot stat %s", path).WithPath(path)
	}

	data, err := m.fs.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot read %s", path).WithPath(path)
	}
	hash := fingerprint.Sum(data)

	if latest, err := m.LatestFor(path); err == nil && latest != nil && latest.ContentHash == hash {
		logger.Debug().Str("path", path).Str("stored", latest.StoredPath).Msg("identical backup exists, skipping")
		return latest, nil
	}

	createdAt := m.now().UTC()
	entryDir := filepath.Join(m.root, createdAt.Format(timestampLayout))
	storedPath := filepath.Join(entryDir, filepath.Base(path))

	// Same second, same basename: disambiguate rather than overwrite.
	for i := 1; ; i++ {
		if _, err := m.fs.Stat(storedPath); os.IsNotExist(err) {
			break
		}
		storedPath = filepath.Join(entryDir, filepath.Base(path)+"."+strconv.Itoa(i))
	}

	if err := m.fs.MkdirAll(entryDir, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrBackupStore, "cannot create backup directory %s", entryDir).WithPath(entryDir)
	}

	if err := m.fs.WriteFile(storedPath, data, info.Mode().Perm()); err != nil {
		return nil, errors.Wrapf(err, errors.ErrBackupStore, "cannot write backup %s", storedPath).WithPath(storedPath)
	}

	record := &types.BackupRecord{
		ItemID:       itemID,
		CreatedAt:    createdAt,
		OriginalPath: path,
		StoredPath:   storedPath,
		OriginalMode: uint32(info.Mode().Perm()),
		ContentHash:  hash,
	}

	meta, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot marshal backup metadata")
	}
	if err := m.fs.WriteFile(storedPath+metaSuffix, meta, 0644); err != nil {
		return nil, errors.Wrapf(err, errors.ErrBackupStore, "cannot write backup metadata for %s", storedPath).WithPath(storedPath)
	}

	logger.Info().Str("path", path).Str("stored", storedPath).Msg("backup created")
	return record, nil
}

// Restore puts a snapshot's bytes back at its original location. When the
// original location holds content the engine did not place there (not a
// link, bytes differing from the snapshot), Restore refuses unless force
// is set, so an unrelated concurrent edit is never clobbered silently.
func (m *Manager) Restore(record *types.BackupRecord, force bool) error {
	logger := logging.GetLogger("backup")

	data, err := m.fs.ReadFile(record.StoredPath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrBackupRestore, "cannot read backup %s", record.StoredPath).WithPath(record.StoredPath)
	}

	if info, err := m.fs.Lstat(record.OriginalPath); err == nil && !force {
		if !m.placedByEngine(record, info) {
			return errors.Newf(errors.ErrBackupRestore,
				"refusing to overwrite %s: current content was not placed by the engine (use force)",
				record.OriginalPath).WithPath(record.OriginalPath)
		}
	}

	if err := m.fs.MkdirAll(filepath.Dir(record.OriginalPath), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot create parent of %s", record.OriginalPath).WithPath(record.OriginalPath)
	}
	if err := m.fs.Remove(record.OriginalPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrIO, "cannot clear %s", record.OriginalPath).WithPath(record.OriginalPath)
	}

	mode := fs.FileMode(record.OriginalMode)
	if mode == 0 {
		mode = 0644
	}
	if err := m.fs.WriteFile(record.OriginalPath, data, mode); err != nil {
		return errors.Wrapf(err, errors.ErrBackupRestore, "cannot restore %s", record.OriginalPath).WithPath(record.OriginalPath)
	}

	logger.Info().Str("path", record.OriginalPath).Str("from", record.StoredPath).Msg("backup restored")
	return nil
}

// placedByEngine reports whether the current occupant of the original
// path looks like something the engine put there: a link of any kind, or
// a copy whose bytes match the snapshot.
func (m *Manager) placedByEngine(record *types.BackupRecord, info fs.FileInfo) bool {
	if info.Mode()&fs.ModeSymlink != 0 {
		return true
	}
	current, err := m.fs.ReadFile(record.OriginalPath)
	if err != nil {
		return false
	}
	return fingerprint.Sum(current) == record.ContentHash
}

// List returns every record in the store, newest first.
func (m *Manager) List() ([]types.BackupRecord, error) {
	entries, err := m.fs.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrBackupStore, "cannot read backup store %s", m.root).WithPath(m.root)
	}

	var records []types.BackupRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.root, entry.Name())
		files, err := m.fs.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if !strings.HasSuffix(f.Name(), metaSuffix) {
				continue
			}
			data, err := m.fs.ReadFile(filepath.Join(dir, f.Name()))
			if err != nil {
				continue
			}
			var record types.BackupRecord
			if err := json.Unmarshal(data, &record); err != nil {
				continue
			}
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// LatestFor returns the most recent record whose original path matches,
// or nil when the store holds none.
func (m *Manager) LatestFor(path string) (*types.BackupRecord, error) {
	records, err := m.List()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].OriginalPath == path {
			return &records[i], nil
		}
	}
	return nil, nil
}

// Count returns how many snapshots exist for the given original path.
func (m *Manager) Count(path string) (int, error) {
	records, err := m.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range records {
		if records[i].OriginalPath == path {
			n++
		}
	}
	return n, nil
}
