// Package daemon keeps the database continuously aligned with the
// knowledge base.
//
// The daemon:
// 1. Performs a full reconcile on startup
// 2. Watches the knowledge-base tree for marker file changes
// 3. Debounces bursts of file events into a single reconcile pass
// 4. Periodically resyncs to catch anything the watcher missed
// 5. Handles graceful shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/praxishq/praxis/internal/kb"
	"github.com/praxishq/praxis/internal/reconcile"
)

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long the change queue must be quiet before
	// a reconcile runs. Batches editor save bursts into one pass.
	DebounceInterval time.Duration

	// ResyncInterval is how often to reconcile even without file events.
	// Zero disables periodic resync.
	ResyncInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 250 * time.Millisecond,
		ResyncInterval:   5 * time.Minute,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates file watching and reconciliation.
type Daemon struct {
	rec    reconcile.Reconciler
	root   string
	config *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> timestamp
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon that keeps the database aligned with the
// knowledge base rooted at root. Use Start() to begin watching.
func New(rec reconcile.Reconciler, root string) (*Daemon, error) {
	return NewWithConfig(rec, root, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(rec reconcile.Reconciler, root string, config *Config) (*Daemon, error) {
	if rec == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}
	if root == "" {
		return nil, fmt.Errorf("root cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		rec:         rec,
		root:        root,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon performs an initial full reconcile, then watches every
// directory under the knowledge-base root and reconciles again whenever
// marker files change. Blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if _, err := d.rec.SyncProjects(ctx); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	if err := d.addWatchesRecursive(d.root); err != nil {
		return fmt.Errorf("failed to watch knowledge base: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.root)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	if d.config.ResyncInterval > 0 {
		d.wg.Add(1)
		go d.periodicResync()
	}

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// addWatchesRecursive registers the directory and everything below it.
// Projects can appear at any depth, so the whole tree is watched.
func (d *Daemon) addWatchesRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != dir && kb.IgnoredDir(entry.Name()) {
			return filepath.SkipDir
		}
		return d.watcher.Add(path)
	})
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// A new directory may hold future project markers, and may
			// already contain files written before the watch landed.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !kb.IgnoredDir(filepath.Base(event.Name)) {
						if err := d.addWatchesRecursive(event.Name); err != nil {
							d.config.Logger.Printf("Failed to watch %s: %v", event.Name, err)
						}
						d.queueChange(event.Name)
					}
					continue
				}
			}

			if filepath.Base(event.Name) != kb.MarkerFileName && filepath.Ext(event.Name) != ".toml" {
				continue
			}

			d.config.Logger.Printf("File event: %s %s", event.Op, event.Name)
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// QueuedChanges returns the number of changes waiting to be processed.
func (d *Daemon) QueuedChanges() int {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()
	return len(d.changeQueue)
}

// processChangeQueue drains the change queue once it has been quiet for
// the debounce interval, then runs one reconcile pass for the batch.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if d.drainQuietQueue() {
				d.reconcileNow("file change")
			}
		}
	}
}

// drainQuietQueue empties the queue if every entry has been quiet for
// the debounce window. Returns true when a reconcile should run.
func (d *Daemon) drainQuietQueue() bool {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	if len(d.changeQueue) == 0 {
		return false
	}

	now := time.Now()
	for _, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			// Still being written to; wait for the burst to settle.
			return false
		}
	}

	d.changeQueue = make(map[string]time.Time)
	return true
}

// periodicResync reconciles on a timer regardless of file events.
func (d *Daemon) periodicResync() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.reconcileNow("periodic resync")
		}
	}
}

// reconcileNow runs one reconcile pass. An in-flight pass is not an
// error here: the file change that triggered this call will be picked
// up by the pass already running or by the periodic resync.
func (d *Daemon) reconcileNow(reason string) {
	result, err := d.rec.SyncProjects(d.ctx)
	if err != nil {
		if errors.Is(err, reconcile.ErrSyncInProgress) {
			d.config.Logger.Printf("Skipping %s: sync already running", reason)
			return
		}
		d.config.Logger.Printf("Error during %s: %v", reason, err)
		return
	}
	if result.ProjectsCreated > 0 || result.ProjectsUpdated > 0 || len(result.Errors) > 0 {
		d.config.Logger.Printf("Reconcile (%s): created=%d updated=%d errors=%d",
			reason, result.ProjectsCreated, result.ProjectsUpdated, len(result.Errors))
	}
}
