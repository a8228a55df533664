package state

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/logging"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// Lock is an advisory lock file guarding batch operations. The design
// assumes a single interactive user; the lock exists to fail fast when a
// second invocation races the first, not to arbitrate real contention.
type Lock struct {
	fs   types.FS
	path string
	held bool
}

// NewLock creates a Lock at path without acquiring it.
func NewLock(fsys types.FS, path string) *Lock {
	return &Lock{fs: fsys, path: path}
}

// Acquire takes the lock, failing with LOCKED when another process holds
// it. The lock file records the owning pid for diagnostics. The create
// is exclusive: the staged pid file is hard-linked onto the lock path,
// which fails when the lock already exists.
func (l *Lock) Acquire() error {
	logger := logging.GetLogger("state.lock")

	if err := l.fs.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot create lock directory").WithPath(l.path)
	}

	staged := l.path + ".next." + strconv.Itoa(os.Getpid())
	if err := l.fs.WriteFile(staged, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot stage lock file").WithPath(l.path)
	}
	defer func() { _ = l.fs.Remove(staged) }()

	if err := l.fs.Link(staged, l.path); err != nil {
		if os.IsExist(err) {
			owner := l.readOwner()
			return errors.Newf(errors.ErrLocked,
				"another configbridge instance (pid %s) holds the lock at %s", owner, l.path).WithPath(l.path)
		}
		return errors.Wrapf(err, errors.ErrIO, "cannot create lock file").WithPath(l.path)
	}

	l.held = true
	logger.Debug().Str("path", l.path).Msg("lock acquired")
	return nil
}

// Release drops the lock. Releasing a lock that was never acquired is a
// no-op.
func (l *Lock) Release() {
	if !l.held {
		return
	}
	_ = l.fs.Remove(l.path)
	l.held = false
}

func (l *Lock) readOwner() string {
	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(data))
}
