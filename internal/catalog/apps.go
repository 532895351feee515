package catalog

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"

	"github.com/picklr-io/datastacks/internal/config"
	"github.com/picklr-io/datastacks/internal/preflight"
	"github.com/picklr-io/datastacks/stacks/dms"
	"github.com/picklr-io/datastacks/stacks/gluestreaming"
	"github.com/picklr-io/datastacks/stacks/kdaflink"
	"github.com/picklr-io/datastacks/stacks/lambdalayers"
	"github.com/picklr-io/datastacks/stacks/rdsproxy"
	"github.com/picklr-io/datastacks/stacks/redshift"
	"github.com/picklr-io/datastacks/stacks/sagemaker"
	"github.com/picklr-io/datastacks/stacks/vpc"
)

// App names.
const (
	DMSAuroraMysqlToS3     = "dms-aurora-mysql-to-s3"
	RDSProxyAuroraMysql    = "rds-proxy-aurora-mysql"
	RedshiftCfn            = "redshift-cfn"
	SageMakerHFRealtime    = "sagemaker-hf-realtime"
	LambdaLayers           = "lambda-layers"
	KDAFlinkMskReplication = "kda-flink-msk-replication"
	GlueStreamingDeltaLake = "glue-streaming-deltalake"
)

// Default returns a registry holding every app.
func Default() *Registry {
	r := NewRegistry()
	for _, def := range []*Definition{
		{
			Name:        DMSAuroraMysqlToS3,
			Description: "DMS full load from Aurora MySQL to Parquet files in S3",
			Build:       buildDMS,
			Checks:      checksDMS,
		},
		{
			Name:        RDSProxyAuroraMysql,
			Description: "Aurora MySQL cluster behind an RDS Proxy with a read-only endpoint",
			Build:       buildRDSProxy,
			Checks:      checksRDSProxy,
		},
		{
			Name:        RedshiftCfn,
			Description: "provisioned Redshift cluster declared with L1 constructs",
			Build:       buildRedshift,
			Checks:      checksRedshift,
		},
		{
			Name:        SageMakerHFRealtime,
			Description: "Hugging Face ASR model on a real-time SageMaker endpoint with autoscaling",
			Build:       buildSageMaker,
			Checks:      checksSageMaker,
		},
		{
			Name:        LambdaLayers,
			Description: "Lambda function using a Python layer published from S3",
			Build:       buildLambdaLayers,
			Checks:      checksLambdaLayers,
		},
		{
			Name:        KDAFlinkMskReplication,
			Description: "Managed Flink application replicating a topic between MSK clusters",
			Build:       buildKDAFlink,
			Checks:      checksKDAFlink,
		},
		{
			Name:        GlueStreamingDeltaLake,
			Description: "Glue streaming job from Kinesis into a Delta Lake table on S3",
			Build:       buildGlueStreaming,
			Checks:      checksGlueStreaming,
		},
	} {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

type validator interface {
	Validate() error
}

// load decodes ctx over defaults and validates the result.
func load[T validator](app string, ctx config.Context, defaults T) (T, error) {
	cfg := defaults
	if err := ctx.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", app, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: invalid context: %w", app, err)
	}
	return cfg, nil
}

// vpcStack declares the shared VPC stack of an app.
func vpcStack(bc *BuildContext, app, id string) (*vpc.VpcStack, error) {
	cfg, err := load(app, bc.Context, vpc.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if cfg.Lookup() {
		if err := bc.RequireEnv(app + " VPC"); err != nil {
			return nil, err
		}
	}
	return vpc.NewVpcStack(bc.Scope, id, &vpc.VpcStackProps{
		StackProps: awscdk.StackProps{Env: bc.StackEnv()},
		Config:     cfg,
	}), nil
}

func vpcChecks(app string, ctx config.Context) ([]preflight.Check, error) {
	cfg, err := load(app, ctx, vpc.DefaultConfig())
	if err != nil {
		return nil, err
	}
	switch {
	case cfg.VpcName != "":
		return []preflight.Check{preflight.VpcByName(cfg.VpcName)}, nil
	case cfg.UseDefault:
		return []preflight.Check{preflight.VpcByName("")}, nil
	}
	return nil, nil
}

func buildDMS(bc *BuildContext) ([]awscdk.Stack, error) {
	cfg, err := load(DMSAuroraMysqlToS3, bc.Context, dms.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if cfg.LookupsSecurityGroup() {
		if err := bc.RequireEnv("mysql_client_security_group_name"); err != nil {
			return nil, err
		}
	}
	network, err := vpcStack(bc, DMSAuroraMysqlToS3, "DMSAuroraMysqlToS3VPCStack")
	if err != nil {
		return nil, err
	}
	stack := dms.NewDmsAuroraMysqlToS3Stack(bc.Scope, "DMSAuroraMysqlToS3Stack", &dms.DmsAuroraMysqlToS3StackProps{
		StackProps: awscdk.StackProps{Env: bc.StackEnv()},
		Vpc:        network.Vpc,
		Config:     cfg,
	})
	stack.AddDependency(network.Stack, nil)
	return []awscdk.Stack{network.Stack, stack.Stack}, nil
}

func checksDMS(ctx config.Context) ([]preflight.Check, error) {
	cfg, err := load(DMSAuroraMysqlToS3, ctx, dms.DefaultConfig())
	if err != nil {
		return nil, err
	}
	checks, err := vpcChecks(DMSAuroraMysqlToS3, ctx)
	if err != nil {
		return nil, err
	}
	checks = append(checks,
		preflight.SecretHasKeys(cfg.SourceDatabaseSecretName, dms.SecretKeys...),
		preflight.BucketExists(cfg.TargetBucketName),
		preflight.RoleAbsent(dms.TargetRoleName),
	)
	if cfg.ClientSecurityGroupID != "" {
		checks = append(checks, preflight.SecurityGroupByID(cfg.ClientSecurityGroupID))
	} else {
		checks = append(checks, preflight.SecurityGroupByName(cfg.ClientSecurityGroupName))
	}
	return checks, nil
}

func buildRDSProxy(bc *BuildContext) ([]awscdk.Stack, error) {
	cfg, err := load(RDSProxyAuroraMysql, bc.Context, rdsproxy.DefaultConfig())
	if err != nil {
		return nil, err
	}
	network, err := vpcStack(bc, RDSProxyAuroraMysql, "AuroraMysqlVpcStack")
	if err != nil {
		return nil, err
	}
	stack := rdsproxy.NewRdsProxyAuroraMysqlStack(bc.Scope, "RdsProxyAuroraMysqlStack", &rdsproxy.RdsProxyAuroraMysqlStackProps{
		StackProps: awscdk.StackProps{Env: bc.StackEnv()},
		Vpc:        network.Vpc,
		Config:     cfg,
	})
	stack.AddDependency(network.Stack, nil)
	return []awscdk.Stack{network.Stack, stack.Stack}, nil
}

func checksRDSProxy(ctx config.Context) ([]preflight.Check, error) {
	cfg, err := load(RDSProxyAuroraMysql, ctx, rdsproxy.DefaultConfig())
	if err != nil {
		return nil, err
	}
	checks, err := vpcChecks(RDSProxyAuroraMysql, ctx)
	if err != nil {
		return nil, err
	}
	return append(checks, preflight.RDSClusterAbsent(cfg.ClusterName)), nil
}

func buildRedshift(bc *BuildContext) ([]awscdk.Stack, error) {
	cfg, err := load(RedshiftCfn, bc.Context, redshift.DefaultConfig())
	if err != nil {
		return nil, err
	}
	network, err := vpcStack(bc, RedshiftCfn, "RedshiftCfnProvisionedVPCStack")
	if err != nil {
		return nil, err
	}
	stack := redshift.NewRedshiftCfnStack(bc.Scope, "RedshiftCfnProvisionedStack", &redshift.RedshiftCfnStackProps{
		StackProps: awscdk.StackProps{Env: bc.StackEnv()},
		Vpc:        network.Vpc,
		Config:     cfg,
	})
	stack.AddDependency(network.Stack, nil)
	return []awscdk.Stack{network.Stack, stack.Stack}, nil
}

func checksRedshift(ctx config.Context) ([]preflight.Check, error) {
	cfg, err := load(RedshiftCfn, ctx, redshift.DefaultConfig())
	if err != nil {
		return nil, err
	}
	checks, err := vpcChecks(RedshiftCfn, ctx)
	if err != nil {
		return nil, err
	}
	if cfg.ClusterIdentifier != "" {
		checks = append(checks, preflight.RedshiftClusterAbsent(cfg.ClusterIdentifier))
	}
	return checks, nil
}

func buildSageMaker(bc *BuildContext) ([]awscdk.Stack, error) {
	cfg, err := load(SageMakerHFRealtime, bc.Context, sagemaker.DefaultConfig())
	if err != nil {
		return nil, err
	}
	env := awscdk.StackProps{Env: bc.StackEnv()}
	endpoint := sagemaker.NewHuggingFaceRealtimeEndpointStack(bc.Scope, "ASRHuggingFaceRealtimeEndpointStack", &sagemaker.HuggingFaceRealtimeEndpointStackProps{
		StackProps: env,
		Config:     cfg,
	})
	scaling := sagemaker.NewEndpointAutoScalingStack(bc.Scope, "ASRRealtimeEndpointAutoScalingStack", &sagemaker.EndpointAutoScalingStackProps{
		StackProps: env,
		Endpoint:   endpoint.Endpoint,
		Config:     cfg,
	})
	scaling.AddDependency(endpoint.Stack, nil)
	return []awscdk.Stack{endpoint.Stack, scaling.Stack}, nil
}

func checksSageMaker(ctx config.Context) ([]preflight.Check, error) {
	if _, err := load(SageMakerHFRealtime, ctx, sagemaker.DefaultConfig()); err != nil {
		return nil, err
	}
	return nil, nil
}

func buildLambdaLayers(bc *BuildContext) ([]awscdk.Stack, error) {
	cfg, err := load(LambdaLayers, bc.Context, lambdalayers.DefaultConfig())
	if err != nil {
		return nil, err
	}
	network, err := vpcStack(bc, LambdaLayers, "LambdaLayersVpcStack")
	if err != nil {
		return nil, err
	}
	stack := lambdalayers.NewLambdaLayersStack(bc.Scope, "LambdaLayersStack", &lambdalayers.LambdaLayersStackProps{
		StackProps: awscdk.StackProps{Env: bc.StackEnv()},
		Vpc:        network.Vpc,
		Config:     cfg,
	})
	stack.AddDependency(network.Stack, nil)
	return []awscdk.Stack{network.Stack, stack.Stack}, nil
}

func checksLambdaLayers(ctx config.Context) ([]preflight.Check, error) {
	cfg, err := load(LambdaLayers, ctx, lambdalayers.DefaultConfig())
	if err != nil {
		return nil, err
	}
	checks, err := vpcChecks(LambdaLayers, ctx)
	if err != nil {
		return nil, err
	}
	return append(checks,
		preflight.ObjectExists(cfg.LibBucket, cfg.LibKey),
		preflight.FunctionAbsent(cfg.FunctionName),
	), nil
}

func buildKDAFlink(bc *BuildContext) ([]awscdk.Stack, error) {
	cfg, err := load(KDAFlinkMskReplication, bc.Context, kdaflink.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if cfg.Vpc.Lookup() {
		if err := bc.RequireEnv(KDAFlinkMskReplication + " VPC"); err != nil {
			return nil, err
		}
	}
	stack := kdaflink.NewKDAFlinkMskReplicationStack(bc.Scope, "KDAFlinkMskReplicationStack", &kdaflink.KDAFlinkMskReplicationStackProps{
		StackProps: awscdk.StackProps{Env: bc.StackEnv()},
		Config:     cfg,
	})
	return []awscdk.Stack{stack.Stack}, nil
}

func checksKDAFlink(ctx config.Context) ([]preflight.Check, error) {
	cfg, err := load(KDAFlinkMskReplication, ctx, kdaflink.DefaultConfig())
	if err != nil {
		return nil, err
	}
	checks, err := vpcChecks(KDAFlinkMskReplication, ctx)
	if err != nil {
		return nil, err
	}
	checks = append(checks,
		preflight.ObjectExists(cfg.CodeBucketName, cfg.CodeFileKey),
		preflight.MskBootstrapServers(cfg.SourceBootstrapServers),
		preflight.MskBootstrapServers(cfg.TargetBootstrapServers),
	)
	if cfg.ClientSecurityGroupID != "" {
		checks = append(checks, preflight.SecurityGroupByID(cfg.ClientSecurityGroupID))
	}
	return checks, nil
}

func buildGlueStreaming(bc *BuildContext) ([]awscdk.Stack, error) {
	cfg, err := load(GlueStreamingDeltaLake, bc.Context, gluestreaming.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return gluestreaming.NewPipeline(bc.Scope, bc.StackEnv(), cfg).Stacks(), nil
}

func checksGlueStreaming(ctx config.Context) ([]preflight.Check, error) {
	cfg, err := load(GlueStreamingDeltaLake, ctx, gluestreaming.DefaultConfig())
	if err != nil {
		return nil, err
	}
	checks := []preflight.Check{
		preflight.ObjectExists(cfg.AssetsBucketName, gluestreaming.ScriptKey(cfg.ScriptFileName)),
		preflight.KinesisStream(cfg.KinesisStreamName, false),
		preflight.GlueDatabaseAbsent(cfg.KinesisTable.DatabaseName),
	}
	if cfg.HasConnection() {
		checks = append(checks, preflight.GlueConnectionAbsent(cfg.ConnectionName))
	}
	if cfg.DataLakeBucketName != "" {
		checks = append(checks, preflight.BucketAbsent(cfg.DataLakeBucketName))
	}
	return checks, nil
}
