package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var snapshotJSON bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect the recorded snapshot",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the recorded stacks",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotShow,
}

var snapshotUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Release a lock left behind by an interrupted run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		if err := backend.Unlock(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Snapshot lock released.")
		return nil
	},
}

func init() {
	snapshotShowCmd.Flags().BoolVar(&snapshotJSON, "json", false, "Output in JSON format")
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotUnlockCmd)
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	backend, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	snap, err := backend.Read(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	out := cmd.OutOrStdout()
	if snapshotJSON {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(snap.Stacks) == 0 {
		fmt.Fprintln(out, "No snapshot recorded. Run 'datastacks synth --record'.")
		return nil
	}

	fmt.Fprintf(out, "Snapshot: version=%d serial=%d lineage=%s recorded=%s\n", snap.Version, snap.Serial, snap.Lineage, snap.RecordedAt)
	fmt.Fprintf(out, "Stacks: %d\n\n", len(snap.Stacks))
	for _, st := range snap.Stacks {
		fmt.Fprintf(out, "# %s\n", st.Name)
		fmt.Fprintf(out, "  app       = %s\n", st.App)
		fmt.Fprintf(out, "  hash      = %s\n", st.TemplateHash)
		if st.Template != nil {
			fmt.Fprintf(out, "  resources = %d\n", len(st.Template.Resources))
		}
		if len(st.Dependencies) > 0 {
			fmt.Fprintf(out, "  depends   = %v\n", st.Dependencies)
		}
		fmt.Fprintln(out)
	}
	return nil
}
