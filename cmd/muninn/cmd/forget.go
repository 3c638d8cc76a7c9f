package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// forgetCmd represents the forget command
var forgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Forget a recorded run",
	Long: `Forget a recorded run. Forgetting a run that was never recorded is
not an error.

Example:
  muninn forget checkout/overflow`,
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

		if err := rs.Forget(args[0]); err != nil {
			return fmt.Errorf("failed to forget %q: %w", args[0], err)
		}
		cmd.Printf("Forgot %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}
