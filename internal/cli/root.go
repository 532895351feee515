package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/picklr-io/datastacks/internal/logging"
)

var (
	logLevel  string
	logFormat string
	noColor   bool

	selectedApps      []string
	contextFiles      []string
	contextOverrides  []string
	outDir            string
	backendConfigFile string
)

var rootCmd = &cobra.Command{
	Use:   "datastacks",
	Short: "CDK stacks for AWS data and analytics pipelines",
	Long: `datastacks declares AWS data pipelines (DMS, RDS Proxy, Redshift,
SageMaker, Lambda layers, Managed Flink on MSK, Glue streaming) as CDK stacks.

It is the "app" command of cdk.json, so cdk synth and cdk deploy drive it,
and it also inspects what it synthesizes:
  • stack dependency graphs
  • template diffs against a recorded snapshot
  • policy checks over the generated templates
  • preflight checks of the resources a deployment expects to exist`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitWithFormat(logLevel, logFormat, os.Stderr)
		if noColor {
			color.NoColor = true
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.StringSliceVarP(&selectedApps, "app", "a", nil, "Apps to include (default: all)")
	flags.StringArrayVarP(&contextOverrides, "context", "c", nil, "Context override key=value (repeatable)")
	flags.StringArrayVar(&contextFiles, "context-file", nil, "YAML or JSON context file (repeatable)")
	flags.StringVarP(&outDir, "outdir", "o", "", "Cloud assembly directory (default: $CDK_OUTDIR or cdk.out)")
	flags.StringVar(&backendConfigFile, "backend-config", "", "Snapshot backend configuration file (default: local file)")

	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(preflightCmd)
	rootCmd.AddCommand(outputsCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(versionCmd)
}
