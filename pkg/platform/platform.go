// Package platform detects the host platform and probes which link
// mechanisms are usable for a given pair of filesystem locations.
// Probe results are ephemeral: they are rebuilt on every invocation and
// never persisted.
package platform

import (
	"os"
	"runtime"
	"strings"

	"github.com/arthur-debert/configbridge/pkg/types"
)

// DetectPlatform classifies the host. A Linux environment running atop
// Windows (WSL) is reported separately because its home directory may sit
// on a Windows-backed filesystem, but it is POSIX-capable for linking.
func DetectPlatform() types.PlatformKind {
	if runtime.GOOS == "windows" {
		return types.PlatformWindowsNative
	}
	if isWSL() {
		return types.PlatformWSL
	}
	return types.PlatformPosix
}

// isWSL checks the usual WSL markers: the kernel version string, the
// WSL_DISTRO_NAME environment variable, and the /mnt/c drive mount.
func isWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	if data, err := os.ReadFile("/proc/version"); err == nil {
		if strings.Contains(strings.ToLower(string(data)), "microsoft") {
			return true
		}
	}

	if os.Getenv("WSL_DISTRO_NAME") != "" {
		return true
	}

	if info, err := os.Stat("/mnt/c"); err == nil && info.IsDir() {
		return true
	}

	return false
}
