package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchMaxResults int

var searchCmd = &cobra.Command{
	Use:   "search <project> <query>",
	Short: "Search a project's knowledge by semantic similarity",
	Long: `Search a project's knowledge. Results are ranked by similarity and
filtered by the configured threshold, so weak matches are dropped rather
than shown.

Examples:
  # Search with the default result limit
  knowd search myapp "how do deploys work"

  # Cap the number of results
  knowd search myapp "auth tokens" -n 3`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchMaxResults, "max-results", "n", 0, "maximum results (default from configuration)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	project, query := args[0], args[1]
	results, err := a.svc.SearchKnowledge(cmd.Context(), project, query, searchMaxResults)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Printf("No results above the similarity threshold in %q\n", project)
		return nil
	}

	for _, r := range results {
		fmt.Print(renderSearchResult(r))
	}
	return nil
}
