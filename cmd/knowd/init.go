package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <project>",
	Short: "Create a project",
	Long: `Create a project in the knowledge store. Creating a project that
already exists is harmless and reports the existing project.

Examples:
  # Create a project
  knowd init myapp`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	project := args[0]
	created, err := a.svc.CreateProject(cmd.Context(), project)
	if err != nil {
		return err
	}

	if created {
		fmt.Printf("%s Created project %q\n", successStyle.Render("✓"), project)
	} else {
		fmt.Printf("Project %q already exists\n", project)
	}
	return nil
}
