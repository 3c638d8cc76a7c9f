package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ssargent/muninn/pkg/archive"
	"github.com/ssargent/muninn/pkg/store"

	"github.com/spf13/cobra"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Pack the live runs into an archive file",
	Long: `Pack the live runs into a compressed archive file. Only the latest
state per run is kept; forgotten runs are dropped. With --rm the run
log is removed after a successful pack, so the next recording starts
from an empty store.

Examples:
  muninn archive
  muninn archive --output ./backups/friday.mra
  muninn archive --rm`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := runContainer(cmd)
		if err != nil {
			return err
		}
		cfg := c.Config

		output, _ := cmd.Flags().GetString("output")
		removeLog, _ := cmd.Flags().GetBool("rm")

		if output == "" {
			name := fmt.Sprintf("runs-%s.mra", time.Now().Format("20060102-150405"))
			output = filepath.Join(cfg.ArchiveDir, name)
		}
		if err := os.MkdirAll(filepath.Dir(output), 0750); err != nil {
			return fmt.Errorf("failed to create archive directory: %w", err)
		}

		count, err := archive.Pack(cfg.DataDir, output)
		if err != nil {
			return fmt.Errorf("failed to pack archive: %w", err)
		}
		cmd.Printf("Archived %d runs to %s\n", count, output)

		if removeLog {
			logPath := filepath.Join(cfg.DataDir, store.LogFileName)
			if err := os.Remove(logPath); err != nil {
				return fmt.Errorf("failed to remove run log: %w", err)
			}
			cmd.Printf("Removed run log %s\n", logPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringP("output", "o", "", "Archive file path (default: timestamped file in the archive directory)")
	archiveCmd.Flags().Bool("rm", false, "Remove the run log after a successful pack")
}
