package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/praxishq/praxis/internal/status"
	"github.com/praxishq/praxis/internal/store"
	"github.com/praxishq/praxis/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the synced project inventory",
	Long: `Display the projects currently in the database, grouped by
organization, with their status badges and priorities.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fail("%v", err)
		}

		info, err := os.Stat(cfg.Database.Path)
		if os.IsNotExist(err) {
			fmt.Printf("\n%s Database not initialized\n", ui.RenderWarn(ui.IconWarn))
			fmt.Printf("   Run 'praxis sync' to create it\n\n")
			return
		}
		if err != nil {
			fail("checking database: %v", err)
		}

		db, err := store.Open(cfg.Database.Path)
		if err != nil {
			fail("opening database: %v", err)
		}
		defer db.Close()

		ctx := context.Background()
		orgs, err := db.ListOrganizations(ctx)
		if err != nil {
			fail("listing organizations: %v", err)
		}
		projects, err := db.ListProjects(ctx)
		if err != nil {
			fail("listing projects: %v", err)
		}

		byOrg := make(map[int64][]*store.Project)
		byParent := make(map[int64][]*store.Project)
		for _, p := range projects {
			if p.ParentID != nil {
				byParent[*p.ParentID] = append(byParent[*p.ParentID], p)
				continue
			}
			byOrg[p.OrgID] = append(byOrg[p.OrgID], p)
		}

		fmt.Printf("\n%s\n\n", ui.RenderHeader("Projects"))
		for _, org := range orgs {
			tops := byOrg[org.ID]
			if len(tops) == 0 {
				continue
			}
			fmt.Printf("%s\n", ui.RenderAccent(org.Name))
			for _, p := range tops {
				printProject(p, 1)
				for _, child := range byParent[p.ID] {
					printProject(child, 2)
				}
			}
			fmt.Println()
		}

		fmt.Printf("%s  Size: %s  Modified: %s\n",
			ui.RenderMuted(fmt.Sprintf("%d project(s)", len(projects))),
			ui.RenderMuted(fmt.Sprintf("%d KB", info.Size()/1024)),
			ui.RenderMuted(info.ModTime().Format("2006-01-02 15:04:05")))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printProject(p *store.Project, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += ui.TreeIndent
	}
	prefix := ""
	if depth > 1 {
		prefix = ui.TreeChild
	}

	badge := ""
	if d, ok := status.DBToDisplay(p.Status); ok {
		badge = fmt.Sprintf("%s %s", d.Emoji, d.Label)
	}

	fmt.Printf("%s%s%s  %s %s\n",
		indent, prefix, p.Name,
		badge,
		ui.RenderMuted(fmt.Sprintf("P%d %s", p.Priority, p.Slug)))
}
