package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picklr-io/datastacks/internal/awsapi"
)

var outputsJSON bool

var outputsCmd = &cobra.Command{
	Use:   "outputs <stack>...",
	Short: "Show outputs of deployed stacks",
	Long: `Reads the outputs of deployed stacks from CloudFormation. Each output is
exported as <stack>-<output>, which is how dependent stacks import them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOutputs,
}

func init() {
	addAWSFlags(outputsCmd)
	outputsCmd.Flags().BoolVar(&outputsJSON, "json", false, "Output in JSON format")
}

func runOutputs(cmd *cobra.Command, args []string) error {
	clients, err := loadClients(cmd)
	if err != nil {
		return err
	}

	all := make(map[string][]awsapi.StackOutput, len(args))
	for _, name := range args {
		outputs, err := clients.StackOutputs(cmd.Context(), name)
		if err != nil {
			return err
		}
		all[name] = outputs
	}

	out := cmd.OutOrStdout()
	if outputsJSON {
		data, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal outputs: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	for _, name := range args {
		fmt.Fprintln(out, bold.Sprint(name))
		if len(all[name]) == 0 {
			fmt.Fprintln(out, "  No outputs defined.")
		}
		for _, o := range all[name] {
			fmt.Fprintf(out, "  %s = %s\n", o.Key, o.Value)
		}
	}
	return nil
}
