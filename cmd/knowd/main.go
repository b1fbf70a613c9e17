// Package main implements the knowd CLI for the project knowledge store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowd/internal/config"
	"github.com/fyrsmithlabs/knowd/internal/embeddings"
	"github.com/fyrsmithlabs/knowd/internal/knowledge"
	"github.com/fyrsmithlabs/knowd/internal/vectorstore"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// verbose enables debug logging to stderr.
	verbose bool
	// version information, set at build time.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" "+err.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "knowd",
	Short: "Project-scoped knowledge store with semantic search",
	Long: `knowd stores short pieces of project knowledge and retrieves them by
semantic similarity. Each project keeps its own collection; entries are
embedded once on insert and searched with cosine similarity.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $KNOWD_HOME/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
}

// app bundles the wired dependencies for one command invocation. Commands
// construct it fresh each run; nothing survives between invocations.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider embeddings.Provider
	store    vectorstore.Store
	svc      *knowledge.Service
}

// newApp loads configuration and wires the provider, store, and service.
func newApp() (*app, error) {
	logger := zap.NewNop()
	if verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.EnsureBaseDir(); err != nil {
		return nil, err
	}

	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		APIKeyEnv: cfg.Embedding.APIKeyEnv,
	}, logger)
	if err != nil {
		return nil, err
	}

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       cfg.DBPath,
		VectorSize: provider.Dimension(),
	}, logger)
	if err != nil {
		return nil, err
	}

	svc, err := knowledge.NewService(cfg, store, provider, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		store:    store,
		svc:      svc,
	}, nil
}

// close releases the app's resources. Errors are ignored; commands are
// one-shot and the store persists on every write.
func (a *app) close() {
	_ = a.provider.Close()
	_ = a.store.Close()
	_ = a.logger.Sync()
}
