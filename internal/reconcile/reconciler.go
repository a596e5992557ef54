package reconcile

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/praxishq/praxis/internal/events"
	"github.com/praxishq/praxis/internal/kb"
	"github.com/praxishq/praxis/internal/status"
	"github.com/praxishq/praxis/internal/store"
)

// reconciler implements the Reconciler interface.
type reconciler struct {
	db      *store.DB
	root    string
	emitter *events.Emitter
	logger  *log.Logger

	// inFlight serializes runs; see package comment.
	inFlight atomic.Bool
}

// New creates a Reconciler.
//
// The database must be open with its schema initialized. root is the
// knowledge-base directory SyncProjects scans. If logger is nil, a default
// logger writing to stderr is used.
func New(db *store.DB, root string, emitter *events.Emitter, logger *log.Logger) Reconciler {
	if logger == nil {
		logger = log.New(os.Stderr, "[reconcile] ", log.LstdFlags)
	}
	return &reconciler{
		db:      db,
		root:    root,
		emitter: emitter,
		logger:  logger,
	}
}

// SyncProjects implements Reconciler.SyncProjects.
func (r *reconciler) SyncProjects(ctx context.Context) (*SyncResult, error) {
	scanner, err := kb.NewScanner(r.root, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}

	scan, err := scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan knowledge base: %w", err)
	}

	return r.Reconcile(ctx, scan)
}

// Reconcile implements Reconciler.Reconcile.
func (r *reconciler) Reconcile(ctx context.Context, scan *kb.ScanResult) (*SyncResult, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer r.inFlight.Store(false)

	start := time.Now()
	result := &SyncResult{
		ProjectsFound: len(scan.Projects),
		Errors:        []string{},
	}
	result.Errors = append(result.Errors, scan.Warnings...)

	r.logger.Printf("Reconciling %d projects", len(scan.Projects))

	// Organizations are ensured once per run.
	orgIDs := make(map[string]int64)

	// Parents resolve before their children because the scanner emits
	// projects in traversal pre-order; resolved maps a parent's slug to
	// its row id for the subtree currently being processed.
	resolved := make(map[string]int64)

	// seen detects duplicate slugs within one (org, parent) scope.
	seen := make(map[string]bool)

	for _, p := range scan.Projects {
		display := p.Organization + "/" + p.Slug

		orgID, ok := orgIDs[p.Organization]
		if !ok {
			var err error
			orgID, err = r.db.EnsureOrganization(ctx, p.Organization)
			if err != nil {
				r.fail(result, display, fmt.Sprintf("failed to resolve organization %q: %v", p.Organization, err))
				continue
			}
			orgIDs[p.Organization] = orgID
		}

		var parentID *int64
		if p.ParentSlug != "" {
			id, ok := resolved[p.ParentSlug]
			if !ok {
				r.fail(result, display, fmt.Sprintf("parent %q not found for %s", p.ParentSlug, display))
				continue
			}
			parentID = &id
		}

		scopeKey := fmt.Sprintf("%d/%v/%s", orgID, derefID(parentID), p.Slug)
		if seen[scopeKey] {
			r.fail(result, display, fmt.Sprintf("duplicate slug %q within the same parent scope", p.Slug))
			continue
		}
		seen[scopeKey] = true

		existing, err := r.db.GetProjectBySlug(ctx, orgID, parentID, p.Slug)
		if err != nil {
			r.fail(result, display, fmt.Sprintf("failed to look up %s: %v", display, err))
			continue
		}

		if existing == nil {
			r.create(ctx, result, display, p, orgID, parentID, resolved)
		} else {
			resolved[p.Slug] = existing.ID
			r.update(ctx, result, display, p, existing, parentID)
		}
	}

	r.logger.Printf("Reconcile complete in %v: found=%d created=%d updated=%d unchanged=%d errors=%d",
		time.Since(start).Round(time.Millisecond),
		result.ProjectsFound, result.ProjectsCreated, result.ProjectsUpdated,
		result.ProjectsUnchanged, len(result.Errors))

	return result, nil
}

// create inserts a new project row and emits its event.
func (r *reconciler) create(ctx context.Context, result *SyncResult, display string,
	p *kb.ProjectInfo, orgID int64, parentID *int64, resolved map[string]int64) {

	project := &store.Project{
		Slug:        p.Slug,
		Name:        p.Name,
		OrgID:       orgID,
		Status:      status.FileToDB(p.Status),
		Priority:    p.Priority,
		ParentID:    parentID,
		Description: p.Description,
		SubProject:  p.SubProject,
		ReviewAt:    p.ReviewAt,
	}

	id, err := r.db.CreateProject(ctx, project)
	if err != nil {
		r.fail(result, display, fmt.Sprintf("failed to create %s: %v", display, err))
		return
	}

	resolved[p.Slug] = id
	result.ProjectsCreated++
	result.Actions = append(result.Actions, ItemAction{Project: display, Action: ActionCreated})
	r.logger.Printf("Created project %s (id=%d, status=%s)", display, id, project.Status)

	// Emitted only after the insert committed; one event per create.
	r.emitter.AfterMutation("projects.create", id)
}

// update applies drifted fields to an existing row, or records unchanged.
func (r *reconciler) update(ctx context.Context, result *SyncResult, display string,
	p *kb.ProjectInfo, existing *store.Project, parentID *int64) {

	wantStatus := status.FileToDB(p.Status)
	changed := existing.Name != p.Name ||
		existing.Status != wantStatus ||
		existing.Priority != p.Priority ||
		derefID(existing.ParentID) != derefID(parentID) ||
		existing.Description != p.Description ||
		existing.SubProject != p.SubProject ||
		!sameReviewDay(existing.ReviewAt, p.ReviewAt)

	if !changed {
		result.ProjectsUnchanged++
		result.Actions = append(result.Actions, ItemAction{Project: display, Action: ActionUnchanged})
		return
	}

	existing.Name = p.Name
	existing.Status = wantStatus
	existing.Priority = p.Priority
	existing.ParentID = parentID
	existing.Description = p.Description
	existing.SubProject = p.SubProject
	// A removed review field clears the stored date.
	existing.ReviewAt = p.ReviewAt

	if err := r.db.UpdateProject(ctx, existing); err != nil {
		r.fail(result, display, fmt.Sprintf("failed to update %s: %v", display, err))
		return
	}

	result.ProjectsUpdated++
	result.Actions = append(result.Actions, ItemAction{Project: display, Action: ActionUpdated})
	r.logger.Printf("Updated project %s (id=%d, status=%s)", display, existing.ID, existing.Status)

	r.emitter.AfterMutation("projects.update", existing.ID)
}

// sameReviewDay compares review dates at calendar-day granularity.
// Natural-language review phrases re-resolve against the current clock on
// every scan, so comparing full timestamps would report drift on every
// pass even when the intended day never moved.
func sameReviewDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	// Stored dates are persisted in UTC; compare in UTC so a local-time
	// scan result matches what the store would hand back.
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// fail records a per-item failure without stopping the run.
func (r *reconciler) fail(result *SyncResult, display, msg string) {
	r.logger.Printf("Warning: %s", msg)
	result.Errors = append(result.Errors, msg)
	result.Actions = append(result.Actions, ItemAction{Project: display, Action: ActionError})
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
