package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <project>",
	Short: "Show statistics for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	info, err := a.svc.GetProjectInfo(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Print(renderProjectInfo(*info))
	return nil
}
