package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List all entries in a project, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	project := args[0]
	entries, err := a.svc.ListKnowledge(cmd.Context(), project)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Printf("Project %q is empty\n", project)
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s (%d entries)", project, len(entries))))
	for _, e := range entries {
		fmt.Print(renderEntry(e))
	}
	return nil
}
