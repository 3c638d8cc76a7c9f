package cmd

import (
	"fmt"

	"github.com/ssargent/muninn/pkg/archive"

	"github.com/spf13/cobra"
)

// restoreCmd represents the restore command
var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Restore runs from an archive file",
	Long: `Restore runs from an archive file into the live store. Restored runs
replace any current state recorded under the same IDs; runs that only
exist in the live store are left alone.

Example:
  muninn restore ./archives/runs-20250821-143000.mra`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := runContainer(cmd)
		if err != nil {
			return err
		}
		rs, err := c.RunStore()
		if err != nil {
			return err
		}

		restored := 0
		err = archive.Unpack(args[0], func(id string, payload []byte) error {
			if err := rs.RestoreEntry(id, payload); err != nil {
				return fmt.Errorf("restore %q: %w", id, err)
			}
			restored++
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to restore archive: %w", err)
		}

		cmd.Printf("Restored %d records from %s\n", restored, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
