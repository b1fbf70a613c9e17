package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/knowd/internal/config"
)

var (
	configSetAPIKey    string
	configShowEnvPath  bool
	configShowDBPath   bool
	configShowAllPaths bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change knowd configuration",
	Long: `Show the effective configuration, print configuration paths, or store
an API key in the .env file.

Examples:
  # Show the effective configuration
  knowd config

  # Store the API key for the configured provider
  knowd config --set-api-key sk-...

  # Print where the .env file lives
  knowd config --show-env-path`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().StringVar(&configSetAPIKey, "set-api-key", "", "store an API key for the configured provider")
	configCmd.Flags().BoolVar(&configShowEnvPath, "show-env-path", false, "print the .env file path")
	configCmd.Flags().BoolVar(&configShowDBPath, "show-db-path", false, "print the database path")
	configCmd.Flags().BoolVar(&configShowAllPaths, "show-all-paths", false, "print all configuration paths")
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	switch {
	case configSetAPIKey != "":
		if err := config.SetAPIKey(cfg.Embedding.APIKeyEnv, configSetAPIKey); err != nil {
			return err
		}
		fmt.Printf("%s Stored %s in %s\n", successStyle.Render("✓"), cfg.Embedding.APIKeyEnv, config.EnvFilePath())
		return nil

	case configShowEnvPath:
		fmt.Println(config.EnvFilePath())
		return nil

	case configShowDBPath:
		fmt.Println(cfg.DBPath)
		return nil

	case configShowAllPaths:
		fmt.Printf("config: %s\n", config.DefaultConfigPath())
		fmt.Printf("env:    %s\n", config.EnvFilePath())
		fmt.Printf("db:     %s\n", cfg.DBPath)
		return nil
	}

	fmt.Println(titleStyle.Render("knowd configuration"))
	fmt.Printf("  Provider:   %s\n", cfg.Embedding.Provider)
	fmt.Printf("  Model:      %s\n", cfg.Embedding.Model)
	fmt.Printf("  Key env:    %s\n", cfg.Embedding.APIKeyEnv)
	fmt.Printf("  DB path:    %s\n", cfg.DBPath)
	fmt.Printf("  Max results: %d\n", cfg.MaxResults)
	fmt.Printf("  Threshold:  %.2f\n", cfg.SimilarityThreshold)
	return nil
}
