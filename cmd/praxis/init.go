package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/praxishq/praxis/internal/config"
	"github.com/praxishq/praxis/internal/ui"
)

var flagInitYes bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a praxis.yaml configuration interactively",
	Long: `Create a starter praxis.yaml in the current directory.

With a terminal attached this walks through an interactive form; with
--yes (or no terminal) it writes the defaults unprompted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()

		interactive := !flagInitYes && term.IsTerminal(int(os.Stdin.Fd()))
		if interactive {
			if err := runInitForm(cfg); err != nil {
				return err
			}
		}

		if err := config.WriteDefault(config.FileName, cfg); err != nil {
			return err
		}

		fmt.Printf("%s Wrote %s\n", ui.RenderPass(ui.IconPass), config.FileName)
		fmt.Printf("   Run 'praxis sync' to build the database, or\n")
		fmt.Printf("   'praxis serve' to start watching.\n")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&flagInitYes, "yes", false,
		"accept defaults without prompting")
	rootCmd.AddCommand(initCmd)
}

func runInitForm(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Knowledge base root").
				Description("Directory holding your project folders").
				Value(&cfg.KB.Root).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("root is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Default organization").
				Description("Owner for projects whose frontmatter names none").
				Value(&cfg.KB.Organization),

			huh.NewInput().
				Title("Database path").
				Value(&cfg.Database.Path),

			huh.NewInput().
				Title("Stream server address").
				Description("WebSocket and NDJSON clients connect here").
				Value(&cfg.Server.Addr),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("init cancelled: %w", err)
	}
	return nil
}
