package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ssargent/muninn/pkg/replay"

	"github.com/spf13/cobra"
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record [id]",
	Short: "Record the replay state for a run",
	Long: `Record the replay state for a run, replacing any earlier state
recorded under the same ID.

The state can be given field by field, or imported from a reproduce
payload printed by a failing run (all entries, or just the named one).

Examples:
  muninn record checkout/overflow --seed 42 --size 100 --counter 7 --path 0,2,5
  muninn record --reproduce eJzT0yMA...
  muninn record checkout/overflow --reproduce eJzT0yMA...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := runContainer(cmd)
		if err != nil {
			return err
		}
		rs, err := c.RunStore()
		if err != nil {
			return err
		}

		reproduce, _ := cmd.Flags().GetString("reproduce")
		if reproduce != "" {
			manifest, err := replay.ParseManifest(reproduce)
			if err != nil {
				return fmt.Errorf("invalid reproduce payload: %w", err)
			}
			if len(args) == 1 {
				state, ok := manifest[args[0]]
				if !ok {
					return fmt.Errorf("run %q is not in the reproduce payload", args[0])
				}
				manifest = replay.Manifest{args[0]: state}
			}

			ids := make([]string, 0, len(manifest))
			for id := range manifest {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				state := manifest[id]
				if err := rs.Record(id, &state); err != nil {
					return fmt.Errorf("failed to record %q: %w", id, err)
				}
				cmd.Printf("Recorded %s: %s\n", id, state.String())
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("a run id is required unless --reproduce is given")
		}

		seed, _ := cmd.Flags().GetUint64("seed")
		size, _ := cmd.Flags().GetUint32("size")
		counter, _ := cmd.Flags().GetUint64("counter")
		pathFlag, _ := cmd.Flags().GetString("path")

		state := &replay.State{Seed: seed, Size: size, Counter: counter}
		if pathFlag != "" {
			for _, part := range strings.Split(pathFlag, ",") {
				step, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid --path element %q: %w", part, err)
				}
				state.Path = append(state.Path, step)
			}
		}

		if err := rs.Record(args[0], state); err != nil {
			return fmt.Errorf("failed to record %q: %w", args[0], err)
		}
		cmd.Printf("Recorded %s: %s\n", args[0], state.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().Uint64("seed", 0, "Generator seed for the run")
	recordCmd.Flags().Uint32("size", 0, "Generation size for the run")
	recordCmd.Flags().Uint64("counter", 0, "Number of shrink attempts performed")
	recordCmd.Flags().String("path", "", "Shrink path as comma-separated child indexes")
	recordCmd.Flags().String("reproduce", "", "Reproduce payload to import instead of field flags")
}
