// Package repositories implements SQLite persistence for the editor client.
//
// Key Implementations:
//   - [ProjectRepository] : editor projects with JSON-encoded media and stanzas, soft deletes
//   - [SessionRepository] : the identity session, one row per storage key
//
// Sequence numbers give projects a short, stable handle (e.g. project #3) independent of UUIDs.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
