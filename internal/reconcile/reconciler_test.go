package reconcile

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/praxishq/praxis/internal/events"
	"github.com/praxishq/praxis/internal/kb"
	"github.com/praxishq/praxis/internal/store"
)

type fixture struct {
	root string
	db   *store.DB
	hub  *events.Hub
	rec  Reconciler
}

func setup(t *testing.T) *fixture {
	t.Helper()

	tmp := t.TempDir()
	root := filepath.Join(tmp, "kb")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}

	db, err := store.Open(filepath.Join(tmp, "praxis.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	logger := log.New(os.Stderr, "[test] ", 0)
	hub := events.NewHub(&events.HubConfig{Capacity: 100, SubscriberBuffer: 100, Logger: logger})
	t.Cleanup(hub.Close)

	return &fixture{
		root: root,
		db:   db,
		hub:  hub,
		rec:  New(db, root, events.NewEmitter(hub, logger), logger),
	}
}

// writeProject creates root/<path>/project.md with the given frontmatter.
func (f *fixture) writeProject(t *testing.T, path, body string) {
	t.Helper()

	dir := filepath.Join(f.root, path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "---\n" + body + "\n---\n"
	if err := os.WriteFile(filepath.Join(dir, kb.MarkerFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) sync(t *testing.T) *SyncResult {
	t.Helper()
	result, err := f.rec.SyncProjects(context.Background())
	if err != nil {
		t.Fatalf("SyncProjects failed: %v", err)
	}
	return result
}

func (f *fixture) projectBySlug(t *testing.T, slug string) *store.Project {
	t.Helper()
	projects, err := f.db.ListProjects(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range projects {
		if p.Slug == slug {
			return p
		}
	}
	return nil
}

func TestReconcileCreatesNewProjects(t *testing.T) {
	f := setup(t)
	f.writeProject(t, "acme", "name: Acme\nstatus: active\npriority: 1")
	f.writeProject(t, "homelab", "status: planning")

	result := f.sync(t)

	if result.ProjectsFound != 2 {
		t.Errorf("found = %d, want 2", result.ProjectsFound)
	}
	if result.ProjectsCreated != 2 {
		t.Errorf("created = %d, want 2", result.ProjectsCreated)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	acme := f.projectBySlug(t, "acme")
	if acme == nil || acme.Status != "active" || acme.Priority != 1 {
		t.Errorf("acme row = %+v", acme)
	}
	homelab := f.projectBySlug(t, "homelab")
	if homelab == nil || homelab.Status != "pending" {
		t.Errorf("homelab row = %+v (planning should map to pending)", homelab)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	f := setup(t)
	f.writeProject(t, "acme", "status: active")
	f.writeProject(t, "acme/rollout", "status: planning")

	first := f.sync(t)
	if first.ProjectsCreated != 2 {
		t.Fatalf("first run created = %d, want 2", first.ProjectsCreated)
	}

	second := f.sync(t)
	if second.ProjectsCreated != 0 {
		t.Errorf("second run created = %d, want 0", second.ProjectsCreated)
	}
	if second.ProjectsUpdated != 0 {
		t.Errorf("second run updated = %d, want 0", second.ProjectsUpdated)
	}
	if second.ProjectsUnchanged != 2 {
		t.Errorf("second run unchanged = %d, want 2", second.ProjectsUnchanged)
	}
}

func TestReconcileMaintenanceStatusMapsToActive(t *testing.T) {
	f := setup(t)
	f.writeProject(t, "legacy", "status: maintenance")

	result := f.sync(t)
	if result.ProjectsCreated != 1 {
		t.Fatalf("created = %d, want 1", result.ProjectsCreated)
	}

	p := f.projectBySlug(t, "legacy")
	if p == nil || p.Status != "active" {
		t.Errorf("maintenance should map to active, got %+v", p)
	}
}

func TestReconcileUnmappedStatusIsDeterministic(t *testing.T) {
	f := setup(t)
	// "blocked" has no file-vocabulary mapping; it takes the default.
	f.writeProject(t, "stuck", "status: blocked")

	first := f.sync(t)
	if first.ProjectsCreated != 1 {
		t.Fatalf("created = %d, want 1", first.ProjectsCreated)
	}
	p := f.projectBySlug(t, "stuck")
	if p == nil || p.Status != "pending" {
		t.Fatalf("unmapped status should default to pending, got %+v", p)
	}

	// Repeated runs keep producing the same answer, not flapping.
	second := f.sync(t)
	if second.ProjectsUpdated != 0 || second.ProjectsCreated != 0 {
		t.Errorf("second run not stable: %+v", second)
	}
}

func TestReconcileUpdatesDriftedFields(t *testing.T) {
	f := setup(t)
	f.writeProject(t, "acme", "name: Acme\nstatus: active\npriority: 2")
	f.sync(t)

	f.writeProject(t, "acme", "name: Acme Corp\nstatus: completed\npriority: 0")
	result := f.sync(t)

	if result.ProjectsUpdated != 1 {
		t.Fatalf("updated = %d, want 1", result.ProjectsUpdated)
	}
	if result.ProjectsCreated != 0 {
		t.Errorf("created = %d, want 0 (update must not duplicate)", result.ProjectsCreated)
	}

	p := f.projectBySlug(t, "acme")
	if p.Name != "Acme Corp" || p.Status != "complete" || p.Priority != 0 {
		t.Errorf("drift not applied: %+v", p)
	}
}

func TestReconcileSubProjects(t *testing.T) {
	f := setup(t)
	f.writeProject(t, "acme", "status: active")
	f.writeProject(t, "acme/rollout", "status: planning")

	f.sync(t)

	parent := f.projectBySlug(t, "acme")
	child := f.projectBySlug(t, "rollout")
	if parent == nil || child == nil {
		t.Fatal("projects missing after sync")
	}
	if child.ParentID == nil || *child.ParentID != parent.ID {
		t.Errorf("child parent = %v, want %d", child.ParentID, parent.ID)
	}
	if !child.SubProject {
		t.Error("sub_project flag not set")
	}
}

func TestReconcileDuplicateSlugIsErrorNotDoubleCreate(t *testing.T) {
	f := setup(t)
	// Two folders pinning the same slug in the same top-level scope.
	f.writeProject(t, "one", "slug: dup\nstatus: active")
	f.writeProject(t, "two", "slug: dup\nstatus: active")

	result := f.sync(t)

	if result.ProjectsCreated != 1 {
		t.Errorf("created = %d, want 1 (collision must not create twice)", result.ProjectsCreated)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one collision error", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "dup") {
		t.Errorf("error should name the colliding slug: %q", result.Errors[0])
	}

	// The run still returns a result; a collision is never fatal.
	if result.ProjectsFound != 2 {
		t.Errorf("found = %d, want 2", result.ProjectsFound)
	}
}

func TestReconcileMalformedFileIsWarning(t *testing.T) {
	f := setup(t)
	f.writeProject(t, "good", "status: active")

	badDir := filepath.Join(f.root, "bad")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(badDir, kb.MarkerFileName),
		[]byte("---\nstatus: [broken\n---\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result := f.sync(t)

	if result.ProjectsCreated != 1 {
		t.Errorf("created = %d, want 1", result.ProjectsCreated)
	}
	if len(result.Errors) != 1 {
		t.Errorf("scan warning should surface in errors: %v", result.Errors)
	}
}

func TestReconcileEmitsOneEventPerWrite(t *testing.T) {
	f := setup(t)
	sub := f.hub.Subscribe()
	defer sub.Close()

	f.writeProject(t, "acme", "status: active")
	f.writeProject(t, "homelab", "status: planning")
	f.sync(t)

	drained := drain(sub)
	if len(drained) != 2 {
		t.Fatalf("expected 2 create events, got %d: %v", len(drained), drained)
	}
	for _, ev := range drained {
		if ev.Entity != events.EntityProjects || ev.Mutation != events.MutationCreate {
			t.Errorf("unexpected event %s", ev)
		}
		if ev.ID == nil {
			t.Error("create event missing row id")
		}
	}

	// Second run with no changes publishes nothing.
	f.sync(t)
	if drained := drain(sub); len(drained) != 0 {
		t.Errorf("idempotent run emitted %d events", len(drained))
	}

	// One drifted project publishes exactly one update event.
	f.writeProject(t, "acme", "status: paused")
	f.sync(t)
	drained = drain(sub)
	if len(drained) != 1 || drained[0].Mutation != events.MutationUpdate {
		t.Errorf("expected one update event, got %v", drained)
	}
}

// drain collects everything currently buffered on a subscription.
func drain(sub *events.Subscription) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-sub.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestReconcileReviewDateDrift(t *testing.T) {
	f := setup(t)
	f.writeProject(t, "acme", "status: active\nreview: 2026-01-01")
	f.sync(t)

	p := f.projectBySlug(t, "acme")
	if p.ReviewAt == nil || p.ReviewAt.Format("2006-01-02") != "2026-01-01" {
		t.Fatalf("initial review date = %v", p.ReviewAt)
	}

	// An edit touching only the review date is still drift.
	f.writeProject(t, "acme", "status: active\nreview: 2026-06-30")
	result := f.sync(t)
	if result.ProjectsUpdated != 1 {
		t.Fatalf("updated = %d, want 1 for review date change", result.ProjectsUpdated)
	}
	p = f.projectBySlug(t, "acme")
	if p.ReviewAt == nil || p.ReviewAt.Format("2006-01-02") != "2026-06-30" {
		t.Errorf("review date not persisted: %v", p.ReviewAt)
	}

	// Unchanged date on a rerun is not drift.
	second := f.sync(t)
	if second.ProjectsUpdated != 0 {
		t.Errorf("rerun updated = %d, want 0", second.ProjectsUpdated)
	}

	// Removing the field clears the stored date.
	f.writeProject(t, "acme", "status: active")
	result = f.sync(t)
	if result.ProjectsUpdated != 1 {
		t.Fatalf("updated = %d, want 1 for review date removal", result.ProjectsUpdated)
	}
	if p = f.projectBySlug(t, "acme"); p.ReviewAt != nil {
		t.Errorf("review date not cleared: %v", p.ReviewAt)
	}
}

// gatedWriter blocks its first write until released, holding whoever logs
// through it inside whatever critical section they log from.
type gatedWriter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (w *gatedWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.entered)
		<-w.release
	})
	return len(p), nil
}

func TestReconcileRejectsConcurrentRun(t *testing.T) {
	f := setup(t)

	w := &gatedWriter{entered: make(chan struct{}), release: make(chan struct{})}
	rec := New(f.db, f.root, events.NewEmitter(f.hub, log.New(os.Stderr, "", 0)), log.New(w, "", 0))

	// The first log line inside Reconcile happens after the in-flight
	// guard is taken, so gating it holds the run mid-flight.
	done := make(chan error, 1)
	go func() {
		_, err := rec.Reconcile(context.Background(), &kb.ScanResult{})
		done <- err
	}()

	<-w.entered
	if _, err := rec.Reconcile(context.Background(), &kb.ScanResult{}); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("concurrent call error = %v, want ErrSyncInProgress", err)
	}

	close(w.release)
	if err := <-done; err != nil {
		t.Fatalf("gated run failed: %v", err)
	}

	// The guard releases once the first run finishes.
	if _, err := rec.Reconcile(context.Background(), &kb.ScanResult{}); err != nil {
		t.Errorf("post-release call failed: %v", err)
	}
}

func TestReconcileSequentialRunsAfterGuardRelease(t *testing.T) {
	f := setup(t)
	f.writeProject(t, "acme", "status: active")

	// The in-flight guard must release between runs.
	for i := 0; i < 3; i++ {
		if _, err := f.rec.SyncProjects(context.Background()); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
	}
}

func TestReconcileEmptyKnowledgeBase(t *testing.T) {
	f := setup(t)

	result := f.sync(t)
	if result.ProjectsFound != 0 || result.ProjectsCreated != 0 {
		t.Errorf("empty kb should be a clean no-op: %+v", result)
	}
	if result.Errors == nil {
		t.Error("errors should be an empty slice, not nil, for stable JSON")
	}
}
