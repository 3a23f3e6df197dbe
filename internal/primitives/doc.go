// Package primitives provides the foundational, zero-dependency data structures
// for the questionnaire statechart engine: the definition document consumed by
// internal/core.
//
// Definitions are plain data. Guards and actions are referenced by name and bound
// to functions by the registries handed to core.NewMachine, so a definition can be
// loaded from YAML/JSON and validated before anything runs.
//
// Core invariants:
// - Sibling IDs are unique; IDs never contain the path separator
// - Compound states name an existing initial child; parallel states enter all children
// - Every transition target resolves (relative, child or absolute form)
// - Candidate order is declaration order
package primitives
