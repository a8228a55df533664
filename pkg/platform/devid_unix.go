//go:build !windows

package platform

import (
	"os"
	"syscall"
)

// sameFilesystem reports whether the two directories live on the same
// device. Hard links only work within a single filesystem.
func sameFilesystem(dirA, dirB string) bool {
	infoA, err := os.Stat(dirA)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(dirB)
	if err != nil {
		return false
	}

	statA, okA := infoA.Sys().(*syscall.Stat_t)
	statB, okB := infoB.Sys().(*syscall.Stat_t)
	if !okA || !okB {
		return false
	}

	return statA.Dev == statB.Dev
}
