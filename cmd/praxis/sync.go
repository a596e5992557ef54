package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/praxishq/praxis/internal/events"
	"github.com/praxishq/praxis/internal/reconcile"
	"github.com/praxishq/praxis/internal/store"
	"github.com/praxishq/praxis/internal/ui"
)

var flagSyncJSON bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the knowledge base into the database",
	Long: `Scan the knowledge base for project folders and reconcile them
into the database:

  1. Walks the tree for directories carrying a project.md marker
  2. Creates rows for new projects, updates drifted ones
  3. Leaves everything else untouched (sync never deletes)

Per-file problems are reported and skipped; the run continues.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fail("%v", err)
		}

		db, err := store.Open(cfg.Database.Path)
		if err != nil {
			fail("opening database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(); err != nil {
			fail("initializing schema: %v", err)
		}

		logger := newLogger(cfg, "[sync] ")
		hub := events.NewHub(&events.HubConfig{
			Capacity:         cfg.Events.Capacity,
			SubscriberBuffer: cfg.Events.SubscriberBuffer,
			Logger:           logger,
		})
		defer hub.Close()

		rec := reconcile.New(db, cfg.KB.Root, events.NewEmitter(hub, logger), logger)

		start := time.Now()
		result, err := rec.SyncProjects(context.Background())
		if err != nil {
			fail("sync failed: %v", err)
		}

		if flagSyncJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				fail("encoding result: %v", err)
			}
			return
		}

		renderSyncResult(result, time.Since(start), cfg.Database.Path)
	},
}

func init() {
	syncCmd.Flags().BoolVar(&flagSyncJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(syncCmd)
}

func renderSyncResult(result *reconcile.SyncResult, elapsed time.Duration, dbPath string) {
	fmt.Printf("%s Sync complete in %v\n",
		ui.RenderPass(ui.IconPass), elapsed.Round(time.Millisecond))
	fmt.Printf("   Found:     %d\n", result.ProjectsFound)
	fmt.Printf("   Created:   %d\n", result.ProjectsCreated)
	fmt.Printf("   Updated:   %d\n", result.ProjectsUpdated)
	fmt.Printf("   Unchanged: %d\n", result.ProjectsUnchanged)
	fmt.Printf("   Database:  %s\n", ui.RenderMuted(dbPath))

	if len(result.Errors) > 0 {
		fmt.Printf("\n%s %d problem(s):\n", ui.RenderWarn(ui.IconWarn), len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("   %s%s\n", ui.TreeChild, ui.RenderWarn(e))
		}
	}
}
