package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/praxishq/praxis/internal/daemon"
	"github.com/praxishq/praxis/internal/events"
	"github.com/praxishq/praxis/internal/reconcile"
	"github.com/praxishq/praxis/internal/store"
	"github.com/praxishq/praxis/internal/stream"
	"github.com/praxishq/praxis/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync daemon and event stream server",
	Long: `Run praxis in foreground server mode:

  1. Performs a full reconcile on startup
  2. Watches the knowledge base and reconciles on changes
  3. Serves change events over WebSocket (/ws) and NDJSON (/events)

Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagLogFile != "" {
			cfg.Log.File = flagLogFile
		}
		logger := newLogger(cfg, "[praxis] ")

		db, err := store.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.InitSchema(); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}

		hub := events.NewHub(&events.HubConfig{
			Capacity:         cfg.Events.Capacity,
			SubscriberBuffer: cfg.Events.SubscriberBuffer,
			Logger:           logger,
		})
		defer hub.Close()

		rec := reconcile.New(db, cfg.KB.Root, events.NewEmitter(hub, logger), logger)

		server := stream.NewServer(hub, &stream.Config{
			Addr:   cfg.Server.Addr,
			Logger: logger,
		})
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start stream server: %w", err)
		}
		defer func() {
			if err := server.Stop(); err != nil {
				logger.Printf("Error stopping server: %v", err)
			}
		}()

		d, err := daemon.NewWithConfig(rec, cfg.KB.Root, &daemon.Config{
			DebounceInterval: cfg.Daemon.Debounce,
			ResyncInterval:   cfg.Daemon.Resync,
			Logger:           logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create daemon: %w", err)
		}

		fmt.Printf("%s praxis serving\n", ui.RenderAccent("▶"))
		fmt.Printf("   Knowledge base: %s\n", cfg.KB.Root)
		fmt.Printf("   Database:       %s\n", cfg.Database.Path)
		fmt.Printf("   Stream:         ws://%s/ws\n", server.Addr())
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := d.Start(ctx); err != nil {
			return fmt.Errorf("daemon stopped with error: %w", err)
		}
		return nil
	},
}

var flagLogFile string

func init() {
	serveCmd.Flags().StringVar(&flagLogFile, "log-file", "",
		"log to a size-rotated file instead of stderr")
	rootCmd.AddCommand(serveCmd)
}
