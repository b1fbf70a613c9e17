package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addTags []string

var addCmd = &cobra.Command{
	Use:   "add <project> <content>",
	Short: "Add a knowledge entry to a project",
	Long: `Add a piece of knowledge to a project. The content is embedded once
on insert and becomes searchable immediately.

Examples:
  # Add an entry
  knowd add myapp "deploys run from the release branch"

  # Add with tags
  knowd add myapp "tokens expire after 5 minutes" -t auth -t caching`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringArrayVarP(&addTags, "tag", "t", nil, "tag for the entry (repeatable)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	project, content := args[0], args[1]
	id, err := a.svc.AddKnowledge(cmd.Context(), project, content, addTags)
	if err != nil {
		return err
	}

	fmt.Printf("%s Added entry %s to %q\n", successStyle.Render("✓"), idStyle.Render(shortID(id)), project)
	fmt.Printf("  %s\n", dimStyle.Render("full id: "+id))
	return nil
}
