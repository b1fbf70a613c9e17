package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List all projects, newest first",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

func runProjects(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	projects, err := a.svc.ListProjects(cmd.Context())
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		fmt.Println("No projects yet. Create one with 'knowd init <project>'.")
		return nil
	}

	for _, p := range projects {
		fmt.Printf("%s %s\n", titleStyle.Render(p.Name), dimStyle.Render(fmt.Sprintf("(%d entries)", p.TotalEntries)))
	}
	return nil
}
