//go:build windows

package platform

import (
	"path/filepath"
	"strings"
)

// sameFilesystem on Windows falls back to comparing volume names, since
// the engine forces copy mode there anyway and hard links are never
// selected.
func sameFilesystem(dirA, dirB string) bool {
	volA := strings.ToUpper(filepath.VolumeName(dirA))
	volB := strings.ToUpper(filepath.VolumeName(dirB))
	return volA != "" && volA == volB
}
