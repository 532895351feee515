package catalog

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/datastacks/internal/config"
)

// validContexts holds the smallest context each app accepts offline.
var validContexts = map[string]config.Context{
	DMSAuroraMysqlToS3: {
		"source_database_name":           "testdb",
		"source_table_name":              "retail_trans",
		"source_database_secret_name":    "aurora-mysql-secret",
		"target_s3_bucket_name":          "dms-target",
		"target_s3_bucket_folder_name":   "aurora-mysql",
		"mysql_client_security_group_id": "sg-0123456789abcdef0",
	},
	RDSProxyAuroraMysql: {"db_cluster_name": "retail"},
	RedshiftCfn:         {},
	SageMakerHFRealtime: {},
	LambdaLayers: {
		"lambda_layer_lib_s3_bucket": "lambda-libs",
		"lambda_layer_lib_s3_key":    "var/python-lib.zip",
	},
	KDAFlinkMskReplication: {
		"kda_flink_code_bucket_name":   "flink-code",
		"kda_flink_code_file_key":      "msk-replication.zip",
		"msk_source_bootstrap_servers": "b-1.src:9092",
		"msk_target_bootstrap_servers": "b-1.dst:9092",
		"msk_source_topic":             "orders",
		"msk_target_topic":             "orders-replica",
	},
	GlueStreamingDeltaLake: {
		"kinesis_stream_name":        "deltalake-stream",
		"glue_assets_s3_bucket_name": "glue-assets",
		"glue_job_script_file_name":  "spark_deltalake_writes.py",
		"glue_job_name":              "streaming_into_deltalake",
		"glue_kinesis_table": map[string]any{
			"database_name": "deltalake_stream_db",
			"table_name":    "deltalake_stream_table",
			"columns": []any{
				map[string]any{"name": "product_id", "type": "string"},
				map[string]any{"name": "price", "type": "int"},
			},
		},
	},
}

func build(t *testing.T, name string, ctx config.Context, env config.Environment) ([]awscdk.Stack, error) {
	t.Helper()
	def, err := Default().Get(name)
	require.NoError(t, err)
	return def.Build(&BuildContext{Scope: awscdk.NewApp(nil), Context: ctx, Environment: env})
}

func stackNames(stacks []awscdk.Stack) []string {
	names := make([]string, 0, len(stacks))
	for _, s := range stacks {
		names = append(names, *s.StackName())
	}
	return names
}

func dependencyNames(s awscdk.Stack) []string {
	var names []string
	for _, dep := range *s.Dependencies() {
		names = append(names, *dep.StackName())
	}
	return names
}

func TestDefault_Names(t *testing.T) {
	assert.Equal(t, []string{
		"dms-aurora-mysql-to-s3",
		"glue-streaming-deltalake",
		"kda-flink-msk-replication",
		"lambda-layers",
		"rds-proxy-aurora-mysql",
		"redshift-cfn",
		"sagemaker-hf-realtime",
	}, Default().Names())
}

func TestDefault_StackIDsAndDependencies(t *testing.T) {
	tests := []struct {
		app  string
		want []string
		deps map[string][]string
	}{
		{DMSAuroraMysqlToS3, []string{"DMSAuroraMysqlToS3VPCStack", "DMSAuroraMysqlToS3Stack"},
			map[string][]string{"DMSAuroraMysqlToS3Stack": {"DMSAuroraMysqlToS3VPCStack"}}},
		{RDSProxyAuroraMysql, []string{"AuroraMysqlVpcStack", "RdsProxyAuroraMysqlStack"},
			map[string][]string{"RdsProxyAuroraMysqlStack": {"AuroraMysqlVpcStack"}}},
		{RedshiftCfn, []string{"RedshiftCfnProvisionedVPCStack", "RedshiftCfnProvisionedStack"},
			map[string][]string{"RedshiftCfnProvisionedStack": {"RedshiftCfnProvisionedVPCStack"}}},
		{SageMakerHFRealtime, []string{"ASRHuggingFaceRealtimeEndpointStack", "ASRRealtimeEndpointAutoScalingStack"},
			map[string][]string{"ASRRealtimeEndpointAutoScalingStack": {"ASRHuggingFaceRealtimeEndpointStack"}}},
		{LambdaLayers, []string{"LambdaLayersVpcStack", "LambdaLayersStack"},
			map[string][]string{"LambdaLayersStack": {"LambdaLayersVpcStack"}}},
		{KDAFlinkMskReplication, []string{"KDAFlinkMskReplicationStack"}, nil},
		{GlueStreamingDeltaLake, []string{
			"GlueStreamingSinkToDeltaLakeKdsStack",
			"GlueStreamingSinkToDeltaLakeS3Path",
			"GlueStreamingSinkToDeltaLakeJobRole",
			"GlueSchemaOnKinesisStream",
			"GlueStreamingSinkToDeltaLake",
			"DataLakePermissionsStack",
		}, map[string][]string{"GlueSchemaOnKinesisStream": {"GlueStreamingSinkToDeltaLakeKdsStack"}}},
	}
	for _, tt := range tests {
		t.Run(tt.app, func(t *testing.T) {
			stacks, err := build(t, tt.app, validContexts[tt.app], config.Environment{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, stackNames(stacks))

			for _, s := range stacks {
				if want, ok := tt.deps[*s.StackName()]; ok {
					assert.ElementsMatch(t, want, dependencyNames(s))
				}
			}
		})
	}
}

func TestBuild_InvalidContext(t *testing.T) {
	_, err := build(t, DMSAuroraMysqlToS3, config.Context{}, config.Environment{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dms-aurora-mysql-to-s3: invalid context")
	assert.Contains(t, err.Error(), "source_database_name")
}

func TestBuild_LookupNeedsEnvironment(t *testing.T) {
	ctx := config.Context{"vpc_name": "shared-vpc"}.Merge(validContexts[RedshiftCfn])

	_, err := build(t, RedshiftCfn, ctx, config.Environment{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CDK_DEFAULT_ACCOUNT")

	dmsCtx := validContexts[DMSAuroraMysqlToS3].Merge(config.Context{
		"mysql_client_security_group_id":   "",
		"mysql_client_security_group_name": "mysql-client-sg",
	})
	_, err = build(t, DMSAuroraMysqlToS3, dmsCtx, config.Environment{Region: "us-east-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql_client_security_group_name")
}

func TestBuildContext_StackEnv(t *testing.T) {
	bc := &BuildContext{Environment: config.Environment{Account: "123456789012"}}
	assert.Nil(t, bc.StackEnv())

	bc.Environment.Region = "us-east-1"
	env := bc.StackEnv()
	require.NotNil(t, env)
	assert.Equal(t, "123456789012", *env.Account)
	assert.Equal(t, "us-east-1", *env.Region)
}

func checkNames(t *testing.T, app string, ctx config.Context) []string {
	t.Helper()
	def, err := Default().Get(app)
	require.NoError(t, err)
	checks, err := def.Checks(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(checks))
	for _, c := range checks {
		names = append(names, c.Name)
	}
	return names
}

func TestChecks(t *testing.T) {
	assert.Equal(t, []string{
		"secret aurora-mysql-secret",
		"s3 bucket dms-target",
		"iam role DMSTargetS3AccessRole is free",
		"security group sg-0123456789abcdef0",
	}, checkNames(t, DMSAuroraMysqlToS3, validContexts[DMSAuroraMysqlToS3]))

	assert.Equal(t, []string{
		`VPC "shared"`,
		"rds cluster retail is free",
	}, checkNames(t, RDSProxyAuroraMysql, validContexts[RDSProxyAuroraMysql].Merge(config.Context{"vpc_name": "shared"})))

	assert.Empty(t, checkNames(t, RedshiftCfn, validContexts[RedshiftCfn]))
	assert.Equal(t, []string{"redshift cluster analytics is free"},
		checkNames(t, RedshiftCfn, config.Context{"redshift_cluster_identifier": "analytics"}))

	assert.Equal(t, []string{
		"s3://flink-code/msk-replication.zip",
		"msk brokers b-1.src:9092",
		"msk brokers b-1.dst:9092",
	}, checkNames(t, KDAFlinkMskReplication, validContexts[KDAFlinkMskReplication]))

	assert.Equal(t, []string{
		"s3://glue-assets/scripts/spark_deltalake_writes.py",
		"kinesis stream deltalake-stream is free",
		"glue database deltalake_stream_db is free",
	}, checkNames(t, GlueStreamingDeltaLake, validContexts[GlueStreamingDeltaLake]))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := func(*BuildContext) ([]awscdk.Stack, error) { return nil, nil }

	require.NoError(t, r.Register(&Definition{Name: "b", Build: noop}))
	require.NoError(t, r.Register(&Definition{Name: "a", Build: noop}))
	assert.EqualError(t, r.Register(&Definition{Name: "a", Build: noop}), "app already registered: a")
	assert.Error(t, r.Register(&Definition{Name: "c"}))
	assert.Error(t, r.Register(&Definition{Build: noop}))

	_, err := r.Get("zzz")
	assert.EqualError(t, err, `unknown app "zzz" (known: a, b)`)

	defs, err := r.Select(nil)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "a", defs[0].Name)

	defs, err = r.Select([]string{"b"})
	require.NoError(t, err)
	assert.Equal(t, "b", defs[0].Name)
}
