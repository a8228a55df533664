// Package paths provides centralized path handling for configbridge.
// It implements XDG Base Directory specification compliance and
// provides a consistent API for all path operations in the codebase.
package paths

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/configbridge/pkg/errors"
)

// Environment variable names
const (
	// EnvProjectRoot is the primary environment variable for the project location
	EnvProjectRoot = "CONFIGBRIDGE_PROJECT_ROOT"

	// EnvDataDir overrides the XDG data directory for configbridge
	EnvDataDir = "CONFIGBRIDGE_DATA_DIR"

	// EnvBackupDir overrides the backup store location
	EnvBackupDir = "CONFIGBRIDGE_BACKUP_DIR"
)

// Default directories and files
// IMPORTANT: these constants define configbridge's internal storage layout
// and are NOT user-configurable; user-facing paths belong in pkg/config.
const (
	// AppDirName is the directory name for configbridge-specific files
	AppDirName = "configbridge"

	// ProjectConfigFile is the name of the project configuration file
	ProjectConfigFile = "configbridge.toml"

	// StateFileName is the JSON file holding per-item link state
	StateFileName = "state.json"

	// BackupsDirName is the subdirectory for timestamped backups
	BackupsDirName = "backups"

	// LockFileName is the advisory lock taken during batch operations
	LockFileName = "configbridge.lock"
)

// Paths provides centralized path management for configbridge
type Paths interface {
	ProjectRoot() string
	UsedFallback() bool
	ProjectConfigPath() string
	DataDir() string
	BackupsDir() string
	StateFilePath() string
	LockFilePath() string
	HomeDir() string
	Resolve(path string) (string, error)
}

type paths struct {
	projectRoot  string
	dataDir      string
	backupsDir   string
	homeDir      string
	usedFallback bool
}

// New creates a new Paths instance with the given project root.
// If projectRoot is empty, it is determined from CONFIGBRIDGE_PROJECT_ROOT,
// the enclosing git repository, or the current directory, in that order.
func New(projectRoot string) (Paths, error) {
	p := &paths{}

	if projectRoot == "" {
		root, usedFallback, err := findProjectRoot()
		if err != nil {
			return nil, err
		}
		p.projectRoot = root
		p.usedFallback = usedFallback
	} else {
		p.projectRoot = ExpandHome(projectRoot)
	}

	absRoot, err := filepath.Abs(p.projectRoot)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "failed to get absolute path for project root")
	}
	p.projectRoot = absRoot

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "failed to resolve home directory")
	}
	p.homeDir = home

	if dataDir := os.Getenv(EnvDataDir); dataDir != "" {
		p.dataDir = ExpandHome(dataDir)
	} else {
		p.dataDir = filepath.Join(xdg.DataHome, AppDirName)
	}

	if backupDir := os.Getenv(EnvBackupDir); backupDir != "" {
		p.backupsDir = ExpandHome(backupDir)
	} else {
		p.backupsDir = filepath.Join(p.dataDir, BackupsDirName)
	}

	return p, nil
}

func (p *paths) ProjectRoot() string { return p.projectRoot }
func (p *paths) UsedFallback() bool  { return p.usedFallback }
func (p *paths) DataDir() string     { return p.dataDir }
func (p *paths) BackupsDir() string  { return p.backupsDir }
func (p *paths) HomeDir() string     { return p.homeDir }

func (p *paths) ProjectConfigPath() string {
	return filepath.Join(p.projectRoot, ProjectConfigFile)
}

func (p *paths) StateFilePath() string {
	return filepath.Join(p.dataDir, StateFileName)
}

func (p *paths) LockFilePath() string {
	return filepath.Join(p.dataDir, LockFileName)
}

// Resolve expands a leading ~, makes the path absolute and expands any
// symlinks in the ancestor directories that exist. The final component
// is never followed: a managed location that currently holds a link is
// still addressed as itself, not as the link's target. Aliasing through
// parent directories is what the pre-comparison normalization has to
// catch.
func (p *paths) Resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrInvalidInput, "empty path")
	}

	expanded := ExpandHome(path)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrIO, "failed to resolve %s", path)
	}
	abs = filepath.Clean(abs)

	// EvalSymlinks fails on directories that don't exist yet; walk up to
	// the nearest existing ancestor, resolve that, and re-attach the rest.
	dir, base := filepath.Split(abs)
	suffix := base
	for dir != "" && dir != string(filepath.Separator) {
		dir = filepath.Clean(dir)
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		next, nextBase := filepath.Split(dir)
		suffix = filepath.Join(nextBase, suffix)
		dir = next
	}

	return abs, nil
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// findProjectRoot determines the project root using the following priority:
// 1. CONFIGBRIDGE_PROJECT_ROOT environment variable (if set)
// 2. Git repository root (found via 'git rev-parse --show-toplevel')
// 3. Current working directory (fallback)
func findProjectRoot() (string, bool, error) {
	if root := os.Getenv(EnvProjectRoot); root != "" {
		return ExpandHome(root), false, nil
	}

	gitRoot, err := findGitRoot()
	if err == nil && gitRoot != "" {
		return gitRoot, false, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", false, errors.Wrapf(err, errors.ErrIO, "failed to get current directory")
	}

	return cwd, true, nil
}

// findGitRoot attempts to find the root of the current git repository
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	gitRoot := strings.TrimSpace(string(output))
	if gitRoot == "" {
		return "", errors.New(errors.ErrNotFound, "git root is empty")
	}

	return gitRoot, nil
}
