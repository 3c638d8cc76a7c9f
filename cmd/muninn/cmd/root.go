/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ssargent/muninn/pkg/config"
	"github.com/ssargent/muninn/pkg/di"

	"github.com/spf13/cobra"
)

// container holds the wired dependencies for the running command. Tests
// inject one with SetContainer; otherwise the root command builds it
// from the resolved configuration and closes it when the command ends.
var container *di.Container

// ownedContainer is true when the root command built the container
// itself and is responsible for closing it.
var ownedContainer bool

// SetContainer injects a pre-built dependency container. The caller
// keeps ownership and must close it.
func SetContainer(c *di.Container) {
	container = c
	ownedContainer = false
}

// containerKey keys the dependency container in the command context.
type containerKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "muninn",
	Short: "Muninn - reproducible test run store",
	Long: `Muninn records the replay state a property-testing harness needs to
reproduce a failing run: the generator seed, size, shrink counter and
shrink path, keyed by "suite/test" run IDs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			c, err := di.NewContainer(cfg)
			if err != nil {
				return fmt.Errorf("failed to wire dependencies: %w", err)
			}
			container = c
			ownedContainer = true
		}
		cmd.SetContext(context.WithValue(cmd.Context(), containerKey{}, container))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// The container is closed here rather than in a post-run hook because
// post-run hooks are skipped when a command fails.
func Execute() {
	err := rootCmd.Execute()
	if ownedContainer && container != nil {
		if cerr := container.Close(); cerr != nil && err == nil {
			err = cerr
		}
		container = nil
		ownedContainer = false
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().StringP("data", "d", "", "Data directory (overrides config)")
}

// resolveConfig loads the configuration the command should run under.
// An explicit --config path must exist; the default path falls back to
// built-in defaults when no file has been written yet. --data overrides
// the configured data directory either way.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data")

	explicit := configPath != ""
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	var cfg *config.Config
	switch {
	case config.ConfigExists(configPath):
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case explicit:
		// Surface the missing-file error rather than silently
		// running on defaults the user did not ask for.
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	default:
		cfg = config.DefaultConfig()
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// runContainer returns the dependency container placed in the command
// context by the root command.
func runContainer(cmd *cobra.Command) (*di.Container, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, fmt.Errorf("dependency container not initialized")
	}
	c, ok := ctx.Value(containerKey{}).(*di.Container)
	if !ok || c == nil {
		return nil, fmt.Errorf("dependency container not initialized")
	}
	return c, nil
}
