package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/picklr-io/datastacks/internal/policy"
)

var policyFile string

var policyCmd = &cobra.Command{
	Use:   "policy-check",
	Short: "Check synthesized templates against policy rules",
	Long: `Synthesizes the selected apps and evaluates every resource against the
rules of a YAML or JSON policy file.

Policy rules can enforce constraints like:
  - Redshift clusters must not be publicly accessible
  - All security groups must have a description
  - Restrict allowed resource types

Example policy file:
  rules:
    - name: no-public-redshift
      description: Redshift clusters must stay private
      resource_type: AWS::Redshift::Cluster
      condition: property_equals
      property: PubliclyAccessible
      value: "true"
      severity: error`,
	Args: cobra.NoArgs,
	RunE: runPolicyCheck,
}

func init() {
	policyCmd.Flags().StringVarP(&policyFile, "rules", "r", ".datastacks/policies.yaml", "Path to policy file")
}

func runPolicyCheck(cmd *cobra.Command, args []string) error {
	rules, err := policy.Load(policyFile)
	if err != nil {
		return err
	}

	_, templates, err := synthesize()
	if err != nil {
		return err
	}

	violations := policy.Evaluate(templates, rules.Rules)
	errs := reportViolations(cmd.OutOrStdout(), violations)
	if errs > 0 {
		return fmt.Errorf("policy check failed with %d error(s)", errs)
	}
	return nil
}

func reportViolations(w io.Writer, violations []policy.Violation) int {
	for _, v := range violations {
		if v.IsError() {
			fmt.Fprintf(w, "%s %s: %s\n", red.Sprint("[ERROR]"), v.Rule.Name, v.Message)
		} else {
			fmt.Fprintf(w, "%s %s: %s\n", yellow.Sprint("[WARN]"), v.Rule.Name, v.Message)
		}
	}
	errs, warnings := policy.Counts(violations)
	fmt.Fprintf(w, "\nPolicy check complete: %d error(s), %d warning(s)\n", errs, warnings)
	return errs
}
