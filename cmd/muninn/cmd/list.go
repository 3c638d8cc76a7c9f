package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ssargent/muninn/pkg/query"
	"github.com/ssargent/muninn/pkg/replay"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Long: `List recorded runs, optionally narrowed by an ID prefix or a state
field condition. With --reproduce the matching runs are printed as a
single reproduce payload instead of one ID per line.

Examples:
  muninn list
  muninn list --prefix checkout/
  muninn list --where "seed=42"
  muninn list --prefix checkout/ --where "size>=100" --reproduce`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := runContainer(cmd)
		if err != nil {
			return err
		}
		rs, err := c.RunStore()
		if err != nil {
			return err
		}

		prefix, _ := cmd.Flags().GetString("prefix")
		where, _ := cmd.Flags().GetString("where")
		reproduce, _ := cmd.Flags().GetBool("reproduce")

		var ids []string
		if where == "" {
			ids, err = rs.IDs(prefix)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
		} else {
			fieldQuery, err := query.ParseWhere(where)
			if err != nil {
				return fmt.Errorf("invalid --where expression: %w", err)
			}
			si, err := c.StateIndex()
			if err != nil {
				return err
			}
			it, err := query.NewEngine(si, rs).Run(cmd.Context(), fieldQuery)
			if err != nil {
				return err
			}
			defer it.Close()

			for it.Next() {
				result := it.Result()
				if prefix != "" && !strings.HasPrefix(result.ID, prefix) {
					continue
				}
				ids = append(ids, result.ID)
			}
			if err := it.Err(); err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			sort.Strings(ids)
		}

		if reproduce {
			manifest := make(replay.Manifest, len(ids))
			for _, id := range ids {
				state, err := rs.Latest(id)
				if err != nil {
					return fmt.Errorf("failed to load %q: %w", id, err)
				}
				manifest[id] = *state
			}
			text, err := manifest.Encode()
			if err != nil {
				return fmt.Errorf("failed to encode reproduce payload: %w", err)
			}
			cmd.Printf("%s\n", text)
			return nil
		}

		for _, id := range ids {
			cmd.Printf("%s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("prefix", "", "Only list runs whose ID starts with this prefix")
	listCmd.Flags().String("where", "", `State field condition, e.g. "seed=42" or "size>=100"`)
	listCmd.Flags().Bool("reproduce", false, "Print the matching runs as a reproduce payload")
}
