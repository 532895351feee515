package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/datastacks/internal/catalog"
	"github.com/picklr-io/datastacks/internal/config"
	"github.com/picklr-io/datastacks/internal/engine"
	"github.com/picklr-io/datastacks/internal/ir"
	"github.com/picklr-io/datastacks/internal/policy"
	"github.com/picklr-io/datastacks/internal/preflight"
	"github.com/picklr-io/datastacks/internal/state"
)

func withoutColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestActionStyle(t *testing.T) {
	tests := []struct {
		action string
		symbol string
	}{
		{ir.ActionCreate, "+"},
		{ir.ActionDelete, "-"},
		{ir.ActionReplace, "-/+"},
		{ir.ActionUpdate, "~"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			symbol, _ := actionStyle(tt.action)
			assert.Equal(t, tt.symbol, symbol)
		})
	}
}

func TestColorize(t *testing.T) {
	prev := color.NoColor
	defer func() { color.NoColor = prev }()

	color.NoColor = false
	assert.Contains(t, red.Sprint("x"), "\x1b[31m")

	color.NoColor = true
	assert.Equal(t, "x", red.Sprint("x"))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", formatValue(nil))
	assert.Equal(t, `"ra3.xlplus"`, formatValue("ra3.xlplus"))
	assert.Equal(t, "5439", formatValue(float64(5439)))
	assert.Equal(t, `{"Ref":"RedshiftCluster"}`, formatValue(map[string]any{"Ref": "RedshiftCluster"}))
}

func TestRenderPlan(t *testing.T) {
	withoutColor(t)
	plan := &ir.Plan{
		Metadata: &ir.PlanMetadata{StacksAdded: []string{"LambdaLayersStack"}},
		Changes: []*ir.ResourceChange{{
			Address: "RedshiftCfnProvisionedStack/RedshiftCluster",
			Action:  ir.ActionUpdate,
			Desired: &ir.TemplateResource{Type: "AWS::Redshift::Cluster"},
			Diff: map[string]*ir.PropertyDiff{
				"Properties.Port":      {Before: float64(5439), After: float64(5440), Action: "update"},
				"Properties.Encrypted": {After: true, Action: "create"},
			},
		}},
		Summary: &ir.PlanSummary{Update: 1, NoOp: 3},
	}

	var buf bytes.Buffer
	renderPlanSummary(&buf, plan)
	renderPlanChanges(&buf, plan)
	out := buf.String()

	assert.Contains(t, out, "Update:  1")
	assert.Contains(t, out, "NoOp:    3")
	assert.Contains(t, out, "+ stack LambdaLayersStack")
	assert.Contains(t, out, "# RedshiftCfnProvisionedStack/RedshiftCluster will be UPDATE")
	assert.Contains(t, out, "~ AWS::Redshift::Cluster {")
	assert.Contains(t, out, "~ Properties.Port = 5439 -> 5440")
	assert.Contains(t, out, "+ Properties.Encrypted = true")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Encrypted")), bytes.Index(buf.Bytes(), []byte("Port =")))
}

func TestRenderPlan_SectionChanges(t *testing.T) {
	withoutColor(t)
	plan := &ir.Plan{
		Metadata: &ir.PlanMetadata{},
		SectionChanges: []*ir.SectionChange{{
			Address: "VpcStack/Outputs.VPCID",
			Section: ir.SectionOutputs,
			Name:    "VPCID",
			Action:  ir.ActionUpdate,
			Before:  &ir.TemplateOutput{Value: "vpc-1", Export: map[string]any{"Name": "VpcStack-VPCID"}},
			After:   &ir.TemplateOutput{Value: "vpc-1", Export: map[string]any{"Name": "VpcStack-VpcId"}},
		}},
		Summary: &ir.PlanSummary{NoOp: 4},
	}
	require.True(t, plan.HasChanges())

	var buf bytes.Buffer
	renderPlanSummary(&buf, plan)
	renderPlanChanges(&buf, plan)
	out := buf.String()

	assert.Contains(t, out, "Outputs, parameters or conditions changed: 1")
	assert.Contains(t, out, "# VpcStack/Outputs.VPCID will be UPDATE")
	assert.Contains(t, out, `"Name":"VpcStack-VPCID"`)
	assert.Contains(t, out, `"Name":"VpcStack-VpcId"`)
}

func TestWriteGraph(t *testing.T) {
	g, err := engine.BuildStackGraph([]*ir.StackInfo{
		{Name: "GlueStreamingSinkToDeltaLakeKdsStack"},
		{Name: "GlueStreamingJobStack", Dependencies: []string{"GlueStreamingSinkToDeltaLakeKdsStack"}},
		{Name: "GrantLFPermissionsOnGlueJobRole", Dependencies: []string{"GlueStreamingJobStack"}},
	})
	require.NoError(t, err)

	reset := func() {
		graphFormat, graphDestroy, graphDependents = "dot", false, ""
	}
	t.Cleanup(reset)

	var buf bytes.Buffer
	reset()
	graphDependents = "GlueStreamingSinkToDeltaLakeKdsStack"
	require.NoError(t, writeGraph(&buf, g))
	assert.Equal(t, "GlueStreamingJobStack\nGrantLFPermissionsOnGlueJobRole\n", buf.String())

	buf.Reset()
	reset()
	graphFormat, graphDestroy = "text", true
	require.NoError(t, writeGraph(&buf, g))
	assert.Equal(t,
		"GrantLFPermissionsOnGlueJobRole <- GlueStreamingJobStack\n"+
			"GlueStreamingJobStack <- GlueStreamingSinkToDeltaLakeKdsStack\n"+
			"GlueStreamingSinkToDeltaLakeKdsStack\n",
		buf.String())

	reset()
	graphDestroy = true
	assert.Error(t, writeGraph(&buf, g))
}

func testSnapshot() *ir.Snapshot {
	tmpl := func(typ string) *ir.Template {
		return &ir.Template{Resources: map[string]*ir.TemplateResource{"R": {Type: typ}}}
	}
	return &ir.Snapshot{Version: 1, Serial: 3, Lineage: "l", Stacks: []*ir.StackSnapshot{
		{App: catalog.RedshiftCfn, Name: "RedshiftCfnProvisionedStack", Template: tmpl("AWS::Redshift::Cluster")},
		{App: catalog.LambdaLayers, Name: "LambdaLayersStack", Template: tmpl("AWS::Lambda::Function")},
	}}
}

func TestPriorTemplates(t *testing.T) {
	snap := testSnapshot()
	assert.Len(t, priorTemplates(snap, nil), 2)

	only := priorTemplates(snap, []string{catalog.LambdaLayers})
	require.Len(t, only, 1)
	assert.Contains(t, only, "LambdaLayersStack")
}

func TestCarryOver(t *testing.T) {
	prior := testSnapshot()
	next := &ir.Snapshot{Stacks: []*ir.StackSnapshot{{App: catalog.RedshiftCfn, Name: "RedshiftCfnProvisionedStack"}}}

	carryOver(prior, next, nil)
	assert.Len(t, next.Stacks, 1)

	carryOver(prior, next, []string{catalog.RedshiftCfn})
	require.Len(t, next.Stacks, 2)
	assert.Equal(t, "LambdaLayersStack", next.Stacks[1].Name)
}

func TestReportViolations(t *testing.T) {
	withoutColor(t)
	violations := []policy.Violation{
		{Rule: policy.Rule{Name: "no-public", Severity: policy.SeverityError}, Message: "S/R (T): bad"},
		{Rule: policy.Rule{Name: "tags", Severity: policy.SeverityWarning}, Message: "S/R (T): missing"},
	}

	var buf bytes.Buffer
	errs := reportViolations(&buf, violations)
	assert.Equal(t, 1, errs)
	assert.Contains(t, buf.String(), "[ERROR] no-public: S/R (T): bad")
	assert.Contains(t, buf.String(), "[WARN] tags: S/R (T): missing")
	assert.Contains(t, buf.String(), "1 error(s), 1 warning(s)")
}

func TestRenderReport(t *testing.T) {
	withoutColor(t)
	report := &preflight.Report{Results: []preflight.Result{
		{Name: "s3 bucket a"},
		{Name: "s3 bucket b", Err: errors.New("not found")},
	}}

	var buf bytes.Buffer
	renderReport(&buf, report)
	assert.Contains(t, buf.String(), "[PASS] s3 bucket a")
	assert.Contains(t, buf.String(), "[FAIL] s3 bucket b: not found")
	assert.Contains(t, buf.String(), "2 check(s), 1 failed")
}

func TestCollectChecks(t *testing.T) {
	registry := catalog.NewRegistry()
	require.NoError(t, registry.Register(&catalog.Definition{
		Name:  "demo",
		Build: func(*catalog.BuildContext) ([]awscdk.Stack, error) { return nil, nil },
		Checks: func(ctx config.Context) ([]preflight.Check, error) {
			return []preflight.Check{preflight.BucketExists(ctx.String("bucket"))}, nil
		},
	}))

	checks, err := collectChecks(registry, config.Context{"bucket": "libs"})
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Equal(t, preflight.CallerIdentity().Name, checks[0].Name)
	assert.Equal(t, "s3 bucket libs", checks[1].Name)
}

func TestLoadBackendConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backend.yaml")
	require.NoError(t, os.WriteFile(path, []byte("type: s3\nconfig:\n  bucket: snapshots\n  dynamodb_table: locks\n"), 0o644))

	cfg, err := loadBackendConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Type)
	assert.Equal(t, "snapshots", cfg.Config["bucket"])
	assert.Equal(t, "locks", cfg.Config["dynamodb_table"])
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "datastacks version dev")
}

func TestListCommand(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	for _, name := range catalog.Default().Names() {
		assert.Contains(t, out, name)
	}
}

func TestContextCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cdk.json"), []byte(`{"app": "x", "context": {"vpc_name": "default"}}`), 0o644))
	t.Chdir(dir)
	t.Setenv(config.ContextEnvVar, "")

	out, err := execute(t, "context", "-c", "redshift_db_name=analytics")
	require.NoError(t, err)
	assert.Contains(t, out, "vpc_name: default")
	assert.Contains(t, out, "redshift_db_name: analytics")
}

func TestSnapshotShowCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(state.EncryptionKeyEnvVar, "")

	out, err := execute(t, "snapshot", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No snapshot recorded")

	require.NoError(t, state.NewManager(state.DefaultPath, nil).Write(context.Background(), testSnapshot()))
	out, err = execute(t, "snapshot", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "serial=4")
	assert.Contains(t, out, "# RedshiftCfnProvisionedStack")
	assert.Contains(t, out, "app       = "+catalog.LambdaLayers)
}
