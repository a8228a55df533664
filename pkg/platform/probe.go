package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arthur-debert/configbridge/pkg/logging"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// Prober builds capability reports for pairs of locations.
type Prober struct {
	fs       types.FS
	platform types.PlatformKind
}

// NewProber creates a Prober against the given filesystem. The platform
// kind is detected once at construction.
func NewProber(fs types.FS) *Prober {
	return &Prober{
		fs:       fs,
		platform: DetectPlatform(),
	}
}

// NewProberForPlatform is like NewProber but with a fixed platform kind,
// used by tests to exercise windows-native behavior on any host.
func NewProberForPlatform(fs types.FS, kind types.PlatformKind) *Prober {
	return &Prober{fs: fs, platform: kind}
}

// Probe determines which link mechanisms are usable between projectPath
// and systemPath. Capability failures are recorded as false, never raised:
// a host where symlinks are denied is a valid answer, not an error. Probe
// artifacts are transient and removed even when a check fails midway.
func (p *Prober) Probe(projectPath, systemPath string) types.CapabilityReport {
	logger := logging.GetLogger("platform.probe")

	report := types.CapabilityReport{
		Platform: p.platform,
	}

	probeDir := nearestExistingDir(p.fs, filepath.Dir(systemPath))
	sourceDir := nearestExistingDir(p.fs, filepath.Dir(projectPath))

	report.SupportsSymlink = p.probeSymlink(probeDir)
	report.SameFilesystem = sameFilesystem(sourceDir, probeDir)
	report.SupportsHardlink = p.probeHardlink(probeDir) && report.SameFilesystem

	logger.Debug().
		Str("platform", string(report.Platform)).
		Bool("symlink", report.SupportsSymlink).
		Bool("hardlink", report.SupportsHardlink).
		Bool("sameFilesystem", report.SameFilesystem).
		Msg("capability probe complete")

	return report
}

// probeSymlink attempts to create and remove a symlink inside dir.
func (p *Prober) probeSymlink(dir string) bool {
	name := filepath.Join(dir, probeName("symlink"))
	defer func() { _ = p.fs.Remove(name) }()

	if err := p.fs.Symlink(dir, name); err != nil {
		return false
	}
	return true
}

// probeHardlink attempts to create and remove a hard link inside dir.
// A scratch regular file is needed as the link source.
func (p *Prober) probeHardlink(dir string) bool {
	src := filepath.Join(dir, probeName("hardlink-src"))
	dst := filepath.Join(dir, probeName("hardlink"))
	defer func() {
		_ = p.fs.Remove(dst)
		_ = p.fs.Remove(src)
	}()

	if err := p.fs.WriteFile(src, []byte("probe"), 0600); err != nil {
		return false
	}
	if err := p.fs.Link(src, dst); err != nil {
		return false
	}
	return true
}

// probeName returns a scoped temporary name unlikely to collide with
// user content.
func probeName(kind string) string {
	return fmt.Sprintf(".configbridge-probe-%s-%d", kind, os.Getpid())
}

// nearestExistingDir walks up from dir until it finds a directory that
// exists, so probes work even when the destination's parent has not been
// created yet.
func nearestExistingDir(fs types.FS, dir string) string {
	for dir != "" {
		if info, err := fs.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return string(filepath.Separator)
}
