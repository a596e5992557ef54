package reconcile

import (
	"context"
	"errors"

	"github.com/praxishq/praxis/internal/kb"
)

// ErrSyncInProgress is returned when a reconciliation is requested while
// another one is still running on the same reconciler.
var ErrSyncInProgress = errors.New("reconciliation already in progress")

// Action classifies the outcome for one scanned project.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionError     Action = "error"
)

// ItemAction records the per-project outcome of a run, keyed by a stable
// display identifier (organization/slug).
type ItemAction struct {
	Project string `json:"project"`
	Action  Action `json:"action"`
}

// SyncResult is the outcome of one reconciliation run. Constructed fresh
// per run and immutable once returned.
type SyncResult struct {
	ProjectsFound     int    `json:"projects_found"`
	ProjectsCreated   int    `json:"projects_created"`
	ProjectsUpdated   int    `json:"projects_updated"`
	ProjectsUnchanged int    `json:"projects_unchanged"`

	// Errors accumulates per-item failures. A partial failure never
	// aborts the run; it lands here instead.
	Errors []string `json:"errors"`

	// Actions lists the per-project outcomes in processing order.
	Actions []ItemAction `json:"actions,omitempty"`
}

// Reconciler compares the knowledge-base inventory against the database
// and applies the minimal set of creates and updates.
//
// Implementations are resilient: individual item failures are recorded in
// the SyncResult and the run continues with the remaining items. A
// SyncResult is always produced unless the run could not start at all.
type Reconciler interface {
	// Reconcile applies one scan result to the database.
	//
	// Scan warnings are carried into the result's error list. Returns
	// ErrSyncInProgress if another run is in flight on this reconciler.
	Reconcile(ctx context.Context, scan *kb.ScanResult) (*SyncResult, error)

	// SyncProjects scans the configured knowledge-base root and
	// reconciles it in one call. This is the entry point the CLI and
	// daemon use.
	SyncProjects(ctx context.Context) (*SyncResult, error)
}
