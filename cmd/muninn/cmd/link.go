package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// linkCmd represents the link command
var linkCmd = &cobra.Command{
	Use:   "link <child> <parent>",
	Short: "Link a run to the run it was derived from",
	Long: `Link a run to the run it was derived from. Both runs must already be
recorded. The link can be read back from either end.

Examples:
  muninn link checkout/minimal checkout/overflow --relation shrunk-from
  muninn link checkout/minimal checkout/overflow --relation shrunk-from --delete`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := runContainer(cmd)
		if err != nil {
			return err
		}
		rs, err := c.RunStore()
		if err != nil {
			return err
		}

		childID, parentID := args[0], args[1]
		relation, _ := cmd.Flags().GetString("relation")
		remove, _ := cmd.Flags().GetBool("delete")

		if remove {
			if err := rs.Unlink(parentID, childID, relation); err != nil {
				return fmt.Errorf("failed to remove link: %w", err)
			}
			cmd.Printf("Removed link %s -[%s]-> %s\n", childID, relation, parentID)
			return nil
		}

		if err := rs.LinkDerived(parentID, childID, relation); err != nil {
			return fmt.Errorf("failed to link runs: %w", err)
		}
		cmd.Printf("Linked %s -[%s]-> %s\n", childID, relation, parentID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)

	linkCmd.Flags().String("relation", "derived", "Relation name stored on the link")
	linkCmd.Flags().Bool("delete", false, "Remove the link instead of creating it")
}
