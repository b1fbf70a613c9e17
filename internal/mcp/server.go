// Package mcp exposes the knowledge store as MCP tools over the stdio
// transport, using github.com/modelcontextprotocol/go-sdk/mcp. Tools call
// the knowledge service directly; there is no intermediate RPC layer.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowd/internal/knowledge"
)

// Server wraps an MCP server around the knowledge service.
type Server struct {
	mcp     *mcp.Server
	svc     *knowledge.Service
	project string
	logger  *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "knowd").
	Name string

	// Version is the server version (default: "1.0.0").
	Version string

	// Project optionally binds the server to one project. Tools then use
	// it whenever the caller omits the project argument, and the project
	// is created at startup if missing.
	Project string

	// Logger for structured logging.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "knowd",
		Version: "1.0.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates an MCP server exposing the knowledge tools.
func NewServer(cfg *Config, svc *knowledge.Service) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if svc == nil {
		return nil, fmt.Errorf("knowledge service is required")
	}
	if cfg.Name == "" {
		cfg.Name = "knowd"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:     mcpServer,
		svc:     svc,
		project: cfg.Project,
		logger:  logger,
	}
	s.registerTools()

	return s, nil
}

// resolveProject picks the explicit project argument over the bound default.
func (s *Server) resolveProject(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if s.project != "" {
		return s.project, nil
	}
	return "", fmt.Errorf("project is required: pass the project argument or start the server with a bound project")
}

// Run starts the MCP server on the stdio transport and blocks until the
// client disconnects or the context is canceled. A bound project is created
// on startup so the first tool call never fails on a missing project.
func (s *Server) Run(ctx context.Context) error {
	if s.project != "" {
		created, err := s.svc.CreateProject(ctx, s.project)
		if err != nil {
			return fmt.Errorf("preparing bound project %q: %w", s.project, err)
		}
		if created {
			s.logger.Info("created bound project", zap.String("project", s.project))
		}
	}

	s.logger.Info("starting MCP server on stdio transport",
		zap.String("project", s.project),
	)
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
