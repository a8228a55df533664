package types

import (
	"fmt"
	"path/filepath"
	"time"
)

// ItemKind identifies what sort of configuration artifact a managed item is.
type ItemKind string

const (
	KindSettings      ItemKind = "settings"
	KindLocalSettings ItemKind = "local-settings"
	KindContextFile   ItemKind = "context-file"
	KindMCPConfig     ItemKind = "mcp-config"
)

// IsValid reports whether k is one of the defined item kinds.
func (k ItemKind) IsValid() bool {
	switch k {
	case KindSettings, KindLocalSettings, KindContextFile, KindMCPConfig:
		return true
	}
	return false
}

// LinkMode is the mechanism used to relate a project path and a system path.
type LinkMode string

const (
	ModeSymlink  LinkMode = "symlink"
	ModeHardlink LinkMode = "hardlink"
	ModeCopy     LinkMode = "copy"
	ModeUnlinked LinkMode = "unlinked"
)

// SyncDirection records which side was the source of truth at the last sync.
type SyncDirection string

const (
	DirectionProjectToSystem SyncDirection = "project-to-system"
	DirectionSystemToProject SyncDirection = "system-to-project"
	DirectionNone            SyncDirection = "none"
)

// PlatformKind classifies the host for link-capability purposes.
type PlatformKind string

const (
	PlatformPosix         PlatformKind = "posix"
	PlatformWSL           PlatformKind = "wsl"
	PlatformWindowsNative PlatformKind = "windows-native"
)

// ManagedItem identifies one project/system file relationship.
type ManagedItem struct {
	// ID is the stable key for the item, usually "<tool>-<kind>"
	ID string `json:"id" koanf:"id"`

	// ProjectPath is the copy inside the project tree (version controlled)
	ProjectPath string `json:"project_path" koanf:"project_path"`

	// SystemPath is the platform-specific system location
	SystemPath string `json:"system_path" koanf:"system_path"`

	// Kind is the artifact kind (settings, context file, ...)
	Kind ItemKind `json:"kind" koanf:"kind"`

	// Enabled is false for items skipped by batch operations
	Enabled bool `json:"enabled" koanf:"enabled"`
}

// Validate checks the structural invariants on a managed item: a non-empty
// id, a valid kind, and two distinct absolute paths. Symlink expansion is
// done by the caller (see paths.Resolve) since it needs filesystem access.
func (m *ManagedItem) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("managed item has empty id")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("managed item %q has invalid kind %q", m.ID, m.Kind)
	}
	if !filepath.IsAbs(m.ProjectPath) {
		return fmt.Errorf("managed item %q: project path %q is not absolute", m.ID, m.ProjectPath)
	}
	if !filepath.IsAbs(m.SystemPath) {
		return fmt.Errorf("managed item %q: system path %q is not absolute", m.ID, m.SystemPath)
	}
	if filepath.Clean(m.ProjectPath) == filepath.Clean(m.SystemPath) {
		return fmt.Errorf("managed item %q: project and system paths are identical: %s", m.ID, m.ProjectPath)
	}
	return nil
}

// LinkState is the persisted record of an item's last successful sync.
type LinkState struct {
	// Identity fields duplicated from ManagedItem so the state file is
	// readable on its own.
	ID          string   `json:"id"`
	ProjectPath string   `json:"project_path"`
	SystemPath  string   `json:"system_path"`
	Kind        ItemKind `json:"kind"`

	Mode              LinkMode      `json:"mode"`
	ProjectHash       string        `json:"project_hash,omitempty"`
	SystemHash        string        `json:"system_hash,omitempty"`
	ProjectMtime      time.Time     `json:"project_mtime,omitempty"`
	SystemMtime       time.Time     `json:"system_mtime,omitempty"`
	LastSyncDirection SyncDirection `json:"last_sync_direction"`
}

// Classification is the outcome of drift detection for one item.
type Classification string

const (
	StatusInSync         Classification = "in_sync"
	StatusDriftedProject Classification = "drifted_project"
	StatusDriftedSystem  Classification = "drifted_system"
	StatusConflict       Classification = "conflict"
	StatusBrokenLink     Classification = "broken_link"
	StatusUnmanaged      Classification = "unmanaged"

	// StatusCheckFailed is not a drift outcome: it marks a row whose
	// classification could not be computed at all (IO or permission
	// failure). The row's message carries the underlying error.
	StatusCheckFailed Classification = "check_failed"
)

// ItemStatus is one row of a status or validate report.
type ItemStatus struct {
	ItemID         string         `json:"item_id"`
	Kind           ItemKind       `json:"kind"`
	Mode           LinkMode       `json:"mode"`
	Classification Classification `json:"classification"`
	ProjectPath    string         `json:"project_path"`
	SystemPath     string         `json:"system_path"`

	// Message carries extra detail for non-in_sync classifications
	Message string `json:"message,omitempty"`
}

// CapabilityReport describes which link mechanisms are usable for a
// particular pair of locations. It is rebuilt per invocation and never
// persisted.
type CapabilityReport struct {
	Platform         PlatformKind
	SupportsSymlink  bool
	SupportsHardlink bool
	SameFilesystem   bool
}

// BackupRecord describes one immutable snapshot in the backup store.
type BackupRecord struct {
	ItemID       string    `json:"item_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	OriginalPath string    `json:"original_path"`
	StoredPath   string    `json:"stored_path"`
	OriginalMode uint32    `json:"original_mode"`
	ContentHash  string    `json:"content_hash"`
}
