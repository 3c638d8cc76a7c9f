/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/ssargent/muninn/pkg/config"

	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize muninn configuration and data directories",
	Long: `Initialize muninn by writing a configuration file and creating the
data, archive and snapshot directories.

This command will:
- Generate a secure API key for the REST server
- Write the configuration file with 0600 permissions
- Create the data directories with 0700 permissions

Examples:
  muninn init
  muninn init --data ./muninn-data
  muninn init --config ./muninn.yaml --print-key`,
	// Bootstrapping must not load the config it is about to create.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data")
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if config.ConfigExists(configPath) && !force {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}

		cfg, err := config.BootstrapConfig(configPath, dataDir)
		if err != nil {
			return fmt.Errorf("failed to bootstrap config: %w", err)
		}

		dirs := []string{cfg.DataDir, cfg.ArchiveDir, cfg.SnapshotDir}
		for _, dir := range dirs {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}

		cmd.Printf("✅ Muninn initialized\n")
		cmd.Printf("Configuration: %s\n", configPath)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		if printKey {
			cmd.Printf("API key: %s\n", cfg.Security.APIKey)
		} else {
			cmd.Printf("API key: saved in the configuration file (rerun with --print-key to display)\n")
		}
		cmd.Printf("\nYou can now record runs and start the server with:\n")
		cmd.Printf("  muninn record suite/test --seed 42 --size 100\n")
		cmd.Printf("  muninn serve\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key to the console")
}
