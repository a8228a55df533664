// Package types defines the shared data model for configbridge: managed
// items, link state, capability reports, plans and status records. It has
// no dependencies on other configbridge packages so that every layer can
// import it freely.
package types
