package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/picklr-io/datastacks/internal/catalog"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available apps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := catalog.Default()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, name := range registry.Names() {
			def, err := registry.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\n", def.Name, def.Description)
		}
		return tw.Flush()
	},
}
