package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/picklr-io/datastacks/internal/awsapi"
	"github.com/picklr-io/datastacks/internal/catalog"
	"github.com/picklr-io/datastacks/internal/config"
	"github.com/picklr-io/datastacks/internal/preflight"
)

var (
	awsRegion         string
	awsProfile        string
	preflightParallel int
	preflightTimeout  time.Duration
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check that the resources an app expects exist",
	Long: `Verifies, against the live account, that the resources the selected
apps import (VPCs, security groups, buckets, secrets, MSK clusters) exist
and that the names they create (clusters, roles, databases, streams) are
still free.`,
	Args: cobra.NoArgs,
	RunE: runPreflight,
}

func init() {
	addAWSFlags(preflightCmd)
	preflightCmd.Flags().IntVar(&preflightParallel, "parallelism", preflight.DefaultParallelism, "Maximum concurrent checks")
	preflightCmd.Flags().DurationVar(&preflightTimeout, "timeout", preflight.DefaultTimeout, "Timeout of each check")
}

func addAWSFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&awsRegion, "region", "", "AWS region (default: $CDK_DEFAULT_REGION, then the SDK default)")
	cmd.Flags().StringVar(&awsProfile, "profile", "", "Shared config profile")
}

func loadClients(cmd *cobra.Command) (*awsapi.Clients, error) {
	region := awsRegion
	if region == "" {
		region = os.Getenv(config.RegionEnvVar)
	}
	return awsapi.Load(cmd.Context(), region, awsProfile)
}

func collectChecks(registry *catalog.Registry, ctx config.Context) ([]preflight.Check, error) {
	defs, err := registry.Select(selectedApps)
	if err != nil {
		return nil, err
	}
	checks := []preflight.Check{preflight.CallerIdentity()}
	for _, def := range defs {
		if def.Checks == nil {
			continue
		}
		appChecks, err := def.Checks(ctx)
		if err != nil {
			return nil, fmt.Errorf("app %s: %w", def.Name, err)
		}
		checks = append(checks, appChecks...)
	}
	return checks, nil
}

func runPreflight(cmd *cobra.Command, args []string) error {
	ctx, err := loadContext()
	if err != nil {
		return err
	}
	checks, err := collectChecks(catalog.Default(), ctx)
	if err != nil {
		return err
	}

	clients, err := loadClients(cmd)
	if err != nil {
		return err
	}

	report := preflight.Run(cmd.Context(), clients, checks, preflight.Options{
		Parallelism: preflightParallel,
		Timeout:     preflightTimeout,
	})
	renderReport(cmd.OutOrStdout(), report)
	return report.Err()
}

func renderReport(w io.Writer, report *preflight.Report) {
	for _, res := range report.Results {
		if res.Passed() {
			fmt.Fprintf(w, "%s %s\n", green.Sprint("[PASS]"), res.Name)
		} else {
			fmt.Fprintf(w, "%s %s: %v\n", red.Sprint("[FAIL]"), res.Name, res.Err)
		}
	}
	fmt.Fprintf(w, "\n%d check(s), %d failed\n", len(report.Results), len(report.Failed()))
}
