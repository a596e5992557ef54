package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/praxishq/praxis/internal/config"
	"github.com/praxishq/praxis/internal/ui"
)

var (
	flagConfig  string
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "praxis",
	Short: "Knowledge-base to database sync and change notifications",
	Long: `praxis keeps a SQLite task database aligned with a markdown
knowledge base. Project folders carrying a project.md marker become rows
in the projects table; edits in either direction are reconciled, and
every committed change is published to connected clients in real time.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init(flagNoColor)
	},
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"config file (default: ./praxis.yaml, then ~/.praxis/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false,
		"disable colored output")
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. When a log file is configured the
// output goes through size-based rotation; otherwise it goes to stderr.
func newLogger(cfg *config.Config, prefix string) *log.Logger {
	if cfg.Log.File == "" {
		return log.New(os.Stderr, prefix, log.LstdFlags)
	}
	_ = os.MkdirAll(filepath.Dir(cfg.Log.File), 0755)
	return log.New(&lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}, prefix, log.LstdFlags)
}

// fail prints an error and exits. Used by command bodies for conditions
// that have no recovery path.
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s Error: %s\n",
		ui.RenderFail(ui.IconFail), fmt.Sprintf(format, args...))
	os.Exit(1)
}
