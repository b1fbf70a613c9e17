package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <project> <id>",
	Short: "Delete an entry by ID or unique ID prefix",
	Long: `Delete a knowledge entry. The ID may be a unique prefix; the entry is
shown and confirmed before deletion unless --yes is given.

Examples:
  # Delete by prefix with confirmation
  knowd delete myapp 0f8fad5b

  # Delete without prompting
  knowd delete myapp 0f8fad5b --yes`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	project, idOrPrefix := args[0], args[1]

	// Resolve prefixes to the full ID; deletion itself is exact-match only.
	entry, err := a.svc.GetKnowledgeByID(cmd.Context(), project, idOrPrefix)
	if err != nil {
		return err
	}
	if entry == nil {
		fmt.Printf("No entry matching %q in project %q\n", idOrPrefix, project)
		return nil
	}

	if !deleteYes {
		fmt.Print(renderEntry(*entry))
		fmt.Print("Delete this entry? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading confirmation: %w", err)
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted")
			return nil
		}
	}

	deleted, err := a.svc.DeleteKnowledge(cmd.Context(), project, entry.ID)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Printf("Entry %s was already gone\n", shortID(entry.ID))
		return nil
	}

	fmt.Printf("%s Deleted entry %s from %q\n", successStyle.Render("✓"), idStyle.Render(shortID(entry.ID)), project)
	return nil
}
