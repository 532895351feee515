package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picklr-io/datastacks/internal/engine"
)

var (
	diffJSON     bool
	diffExitCode bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare synthesized templates with the recorded snapshot",
	Long: `Synthesizes the selected apps and compares every resource of every
template with the snapshot recorded by 'synth --record'.

The diff shows:
  • Resources to be created
  • Resources to be updated (with property diff)
  • Resources to be replaced (type changed)
  • Resources to be deleted`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output the plan as JSON")
	diffCmd.Flags().BoolVar(&diffExitCode, "exit-code", false, "Return an error when there are changes")
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, templates, err := synthesize()
	if err != nil {
		return err
	}

	backend, err := openBackend(ctx)
	if err != nil {
		return err
	}
	snap, err := backend.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	plan, err := engine.Diff(priorTemplates(snap, selectedApps), templates)
	if err != nil {
		return fmt.Errorf("diff failed: %w", err)
	}
	plan.Metadata.PriorSerial = snap.Serial
	plan.Metadata.PriorLineage = snap.Lineage

	out := cmd.OutOrStdout()
	if diffJSON {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		renderPlanSummary(out, plan)
		if plan.HasChanges() {
			renderPlanChanges(out, plan)
		} else {
			fmt.Fprintln(out, "\nNo changes. Templates match the recorded snapshot.")
		}
	}

	if diffExitCode && plan.HasChanges() {
		return fmt.Errorf("templates differ from snapshot serial %d", snap.Serial)
	}
	return nil
}
