// Package state persists per-item link state as a single JSON file and
// guards batch operations with an advisory lock. It abstracts away the
// physical layout of the data directory, providing a clean API for the
// engine.
package state
