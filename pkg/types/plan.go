package types

// StepKind identifies one action within a link plan.
type StepKind string

const (
	StepBackup StepKind = "backup"
	StepRemove StepKind = "remove"
	StepLink   StepKind = "link"
	StepCopy   StepKind = "copy"
	StepVerify StepKind = "verify"
)

// Step is a single planned filesystem action. Source and Target are
// absolute paths; their meaning depends on the kind (a backup step only
// uses Target, a link step points Target at Source).
type Step struct {
	Kind   StepKind `json:"kind"`
	Source string   `json:"source,omitempty"`
	Target string   `json:"target"`

	// Mode is set on link steps so the executor knows which mechanism
	// to use and where to fall back to.
	Mode LinkMode `json:"mode,omitempty"`
}

// Plan is an ordered sequence of steps that establishes one item's link.
// Plans are pure data: building one touches no filesystem state.
type Plan struct {
	ItemID string   `json:"item_id"`
	Mode   LinkMode `json:"mode"`
	Steps  []Step   `json:"steps"`
}

// ExecutionResult reports how far an executor got through a plan.
type ExecutionResult struct {
	ItemID    string   `json:"item_id"`
	Mode      LinkMode `json:"mode"`
	Completed []Step   `json:"completed"`

	// Backup is set when a backup step ran, so callers can roll back.
	Backup *BackupRecord `json:"backup,omitempty"`

	// FellBack is true when the executor had to drop one link tier
	// after the planned mechanism failed.
	FellBack bool `json:"fell_back,omitempty"`

	Err error `json:"-"`
}

// Success reports whether the whole plan ran to completion.
func (r *ExecutionResult) Success() bool {
	return r.Err == nil
}
