package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/picklr-io/datastacks/internal/engine"
)

var (
	graphFormat     string
	graphDestroy    bool
	graphDependents string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Output the stack dependency graph",
	Long: `Synthesizes the selected apps and prints the dependency graph of their
stacks, in Graphviz DOT format by default. Pipe the output to 'dot' to
generate an image:

  datastacks graph | dot -Tpng > graph.png

With --format text, --destroy lists stacks in the order they must be
deleted. --dependents prints every stack that builds on the given one.`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphFormat, "format", "dot", "Output format (dot, text)")
	graphCmd.Flags().BoolVar(&graphDestroy, "destroy", false, "List stacks in destroy order (text format)")
	graphCmd.Flags().StringVar(&graphDependents, "dependents", "", "Print the stacks that depend on this stack")
}

func runGraph(cmd *cobra.Command, args []string) error {
	if graphFormat != "dot" && graphFormat != "text" {
		return fmt.Errorf("unknown graph format %q (want dot or text)", graphFormat)
	}

	res, _, err := synthesize()
	if err != nil {
		return err
	}
	g, err := engine.BuildStackGraph(res.Stacks)
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}

	return writeGraph(cmd.OutOrStdout(), g)
}

func writeGraph(w io.Writer, g *engine.StackGraph) error {
	if graphDependents != "" {
		dependents, err := g.Dependents(graphDependents)
		if err != nil {
			return err
		}
		for _, name := range dependents {
			fmt.Fprintln(w, name)
		}
		return nil
	}
	if graphFormat == "text" {
		return g.WriteText(w, graphDestroy)
	}
	if graphDestroy {
		return fmt.Errorf("--destroy requires --format text")
	}
	return g.WriteDOT(w)
}
