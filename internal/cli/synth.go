package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picklr-io/datastacks/internal/state"
)

var synthRecord bool

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Synthesize the cloud assembly",
	Long: `Builds the selected apps and writes their CloudFormation templates to
the cloud assembly directory. cdk.json runs this command as the CDK app.

With --record the synthesized templates are stored as the snapshot that
diff compares against.`,
	RunE: runSynth,
}

func init() {
	synthCmd.Flags().BoolVar(&synthRecord, "record", false, "Record the templates as the new snapshot")
}

func runSynth(cmd *cobra.Command, args []string) error {
	res, templates, err := synthesize()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, st := range res.Stacks {
		fmt.Fprintf(out, "%s (%s)\n", st.Name, st.App)
	}
	fmt.Fprintf(out, "Synthesized %d stack(s) to %s\n", len(res.Stacks), res.OutDir)

	if !synthRecord {
		return nil
	}
	if len(res.Missing) > 0 {
		return fmt.Errorf("cannot record snapshot: %d context lookup(s) unresolved; run cdk synth to resolve them", len(res.Missing))
	}

	ctx := cmd.Context()
	backend, err := openBackend(ctx)
	if err != nil {
		return err
	}
	return state.WithLock(ctx, backend, func() error {
		prior, err := backend.Read(ctx)
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
		next, err := state.NewSnapshot(prior, res.Stacks, templates)
		if err != nil {
			return err
		}
		carryOver(prior, next, selectedApps)
		if err := backend.Write(ctx, next); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		fmt.Fprintf(out, "Recorded snapshot serial %d\n", next.Serial)
		return nil
	})
}
