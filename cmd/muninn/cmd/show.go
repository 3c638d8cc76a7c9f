package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/ssargent/muninn/pkg/replay"

	"github.com/spf13/cobra"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the recorded state for a run",
	Long: `Show the latest recorded state for a run.

Example:
  muninn show checkout/overflow
  muninn show checkout/overflow --raw
  muninn show checkout/overflow --reproduce`,
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

		state, err := rs.Latest(args[0])
		if err != nil {
			return err
		}

		raw, _ := cmd.Flags().GetBool("raw")
		reproduce, _ := cmd.Flags().GetBool("reproduce")
		switch {
		case raw:
			payload, err := state.MarshalBinary()
			if err != nil {
				return fmt.Errorf("failed to encode state: %w", err)
			}
			cmd.Printf("%s\n", hex.EncodeToString(payload))
		case reproduce:
			text, err := replay.Manifest{args[0]: *state}.Encode()
			if err != nil {
				return fmt.Errorf("failed to encode reproduce payload: %w", err)
			}
			cmd.Printf("%s\n", text)
		default:
			cmd.Printf("%s: %s\n", args[0], state.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("raw", false, "Print the encoded state as hex instead of decoding it")
	showCmd.Flags().Bool("reproduce", false, "Print a reproduce payload for this run")
}
