package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show the merged CDK context",
	Long: `Prints the context the apps would be built with: cdk.json, then
cdk.context.json, CDK_CONTEXT_JSON, --context-file and -c overrides.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadContext()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(ctx.Map())
		if err != nil {
			return fmt.Errorf("failed to marshal context: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
