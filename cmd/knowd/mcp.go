package main

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/fyrsmithlabs/knowd/internal/mcp"
)

var mcpProject string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Run the knowledge store as an MCP server over stdio, exposing the
memo and project tools to MCP clients.

Examples:
  # Serve all projects; tools take an explicit project argument
  knowd mcp

  # Bind to one project; it is created on startup if missing
  knowd mcp --project myapp`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpProject, "project", "", "bind the server to one project")
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	server, err := mcpserver.NewServer(&mcpserver.Config{
		Version: version,
		Project: mcpProject,
		Logger:  a.logger,
	}, a.svc)
	if err != nil {
		return err
	}

	return server.Run(cmd.Context())
}
