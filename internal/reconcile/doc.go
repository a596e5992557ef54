// Package reconcile keeps the projects table in sync with the knowledge
// base.
//
// Reconciliation is a full scan-then-write pass:
//
//  1. The kb scanner produces the current file inventory
//  2. Each descriptor is looked up by (organization, parent, slug)
//  3. Missing rows are created, drifted rows are updated, matching rows
//     are left alone
//  4. Every committed create or update emits one change event
//
// The pass is idempotent: running it twice against unchanged files yields
// zero creates and zero updates the second time. It is resilient: per-item
// failures (a slug collision, a failed insert) are accumulated into the
// result's error list and the run continues. Only a failure before any
// work can happen — an unreadable knowledge base, an unreachable database
// — surfaces as a hard error.
//
// Runs are serialized per reconciler. Two concurrent passes over the same
// tree could both observe "no existing row" for a new project and create
// it twice, so a second call while one is in flight fails fast with
// ErrSyncInProgress instead of racing.
//
// The reconciler never deletes: rows without a backing file may have been
// created through the API, and deletion authority stays with the direct
// mutation paths.
package reconcile
