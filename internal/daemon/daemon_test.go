package daemon

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/praxishq/praxis/internal/events"
	"github.com/praxishq/praxis/internal/kb"
	"github.com/praxishq/praxis/internal/reconcile"
	"github.com/praxishq/praxis/internal/store"
)

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[test] ", log.LstdFlags)
}

// setupReconciler builds a real reconciler over a temp database and
// knowledge-base root.
func setupReconciler(t *testing.T) (reconcile.Reconciler, *store.DB, string) {
	t.Helper()

	tmp := t.TempDir()
	root := filepath.Join(tmp, "kb")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}

	db, err := store.Open(filepath.Join(tmp, "praxis.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}

	hub := events.NewHub(nil)
	t.Cleanup(hub.Close)

	rec := reconcile.New(db, root, events.NewEmitter(hub, testLogger()), testLogger())
	return rec, db, root
}

func writeProject(t *testing.T, root, path, body string) {
	t.Helper()

	dir := filepath.Join(root, path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "---\n" + body + "\n---\n"
	if err := os.WriteFile(filepath.Join(dir, kb.MarkerFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func projectCount(t *testing.T, db *store.DB) int {
	t.Helper()
	n, err := db.ProjectCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestNew(t *testing.T) {
	rec, _, root := setupReconciler(t)

	tests := []struct {
		name    string
		rec     reconcile.Reconciler
		root    string
		wantErr bool
	}{
		{name: "valid configuration", rec: rec, root: root},
		{name: "nil reconciler", rec: nil, root: root, wantErr: true},
		{name: "empty root", rec: rec, root: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.rec, tt.root)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if d != nil {
				_ = d.Stop()
			}
		})
	}
}

// startDaemon runs the daemon in the background with fast intervals and
// waits until the initial sync has landed.
func startDaemon(t *testing.T, rec reconcile.Reconciler, root string) *Daemon {
	t.Helper()

	config := &Config{
		DebounceInterval: 50 * time.Millisecond,
		ResyncInterval:   0,
		Logger:           testLogger(),
	}
	d, err := NewWithConfig(rec, root, config)
	if err != nil {
		t.Fatalf("Failed to create daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("Daemon did not stop in time")
		}
	})
	return d
}

func TestDaemonInitialSync(t *testing.T) {
	rec, db, root := setupReconciler(t)
	writeProject(t, root, "acme", "status: active")

	startDaemon(t, rec, root)

	waitFor(t, func() bool { return projectCount(t, db) == 1 })
}

func TestDaemonPicksUpNewProject(t *testing.T) {
	rec, db, root := setupReconciler(t)

	startDaemon(t, rec, root)
	waitFor(t, func() bool { return projectCount(t, db) == 0 })

	// A project created after startup must be discovered via the watcher.
	writeProject(t, root, "homelab", "status: planning")

	waitFor(t, func() bool { return projectCount(t, db) == 1 })
}

func TestDaemonPicksUpEdits(t *testing.T) {
	rec, db, root := setupReconciler(t)
	writeProject(t, root, "acme", "status: planning")

	startDaemon(t, rec, root)
	waitFor(t, func() bool { return projectCount(t, db) == 1 })

	writeProject(t, root, "acme", "status: completed")

	waitFor(t, func() bool {
		projects, err := db.ListProjects(context.Background())
		if err != nil || len(projects) != 1 {
			return false
		}
		return projects[0].Status == "complete"
	})
}

func TestDaemonPicksUpNestedNewDirectory(t *testing.T) {
	rec, db, root := setupReconciler(t)
	writeProject(t, root, "acme", "status: active")

	startDaemon(t, rec, root)
	waitFor(t, func() bool { return projectCount(t, db) == 1 })

	// A brand-new subdirectory created at runtime gets watched too.
	writeProject(t, root, "acme/rollout", "status: planning")

	waitFor(t, func() bool { return projectCount(t, db) == 2 })
}

func TestDaemonDebouncesBursts(t *testing.T) {
	rec, db, root := setupReconciler(t)

	d := startDaemon(t, rec, root)
	waitFor(t, func() bool { return projectCount(t, db) == 0 })

	// A burst of rapid writes collapses into the queue; once quiet, the
	// queue drains fully and the final content wins.
	for i := 0; i < 5; i++ {
		writeProject(t, root, "acme", "status: planning")
		time.Sleep(5 * time.Millisecond)
	}
	writeProject(t, root, "acme", "status: active")

	waitFor(t, func() bool {
		projects, err := db.ListProjects(context.Background())
		if err != nil || len(projects) != 1 {
			return false
		}
		return projects[0].Status == "active"
	})
	waitFor(t, func() bool { return d.QueuedChanges() == 0 })
}

func TestDaemonStop(t *testing.T) {
	rec, _, root := setupReconciler(t)

	d, err := New(rec, root)
	if err != nil {
		t.Fatalf("Failed to create daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Start(ctx)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Daemon did not shut down")
	}
}

// waitFor polls the condition until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}
