package gluestreaming

import (
	"fmt"
	"maps"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsglue"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

const (
	GlueVersion = "4.0"
	JobCommand  = "gluestreaming"
)

type GlueStreamingJobStackProps struct {
	StackProps
	Role           awsiam.IRole
	DataLakeBucket awss3.IBucket
}

type GlueStreamingJobStack struct {
	awscdk.Stack
	Job awsglue.CfnJob
}

// ScriptKey is the object key of the job script in the assets bucket.
func ScriptKey(fileName string) string {
	return "scripts/" + fileName
}

// NewGlueStreamingJobStack declares the streaming ETL job that writes to Delta Lake.
func NewGlueStreamingJobStack(scope constructs.Construct, id string, props *GlueStreamingJobStackProps) *GlueStreamingJobStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps.StackProps)
	cfg := props.Config

	jobProps := &awsglue.CfnJobProps{
		Name: jsii.String(cfg.JobName),
		Role: props.Role.RoleArn(),
		Command: &awsglue.CfnJob_JobCommandProperty{
			Name:           jsii.String(JobCommand),
			PythonVersion:  jsii.String("3"),
			ScriptLocation: jsii.String(fmt.Sprintf("s3://%s/%s", cfg.AssetsBucketName, ScriptKey(cfg.ScriptFileName))),
		},
		DefaultArguments: JobArguments(cfg, dataLakeBucketName(props.DataLakeBucket)),
		ExecutionProperty: &awsglue.CfnJob_ExecutionPropertyProperty{
			MaxConcurrentRuns: jsii.Number(1),
		},
		GlueVersion:     jsii.String(GlueVersion),
		MaxRetries:      jsii.Number(0),
		WorkerType:      jsii.String(cfg.WorkerType),
		NumberOfWorkers: stackutil.Number(cfg.NumberOfWorkers),
	}
	if cfg.HasConnection() {
		jobProps.Connections = &awsglue.CfnJob_ConnectionsListProperty{
			Connections: jsii.Strings(cfg.ConnectionName),
		}
	}
	job := awsglue.NewCfnJob(stack, jsii.String("GlueStreamingJob"), jobProps)

	stackutil.Output(stack, "GlueJobName", job.Ref())

	return &GlueStreamingJobStack{Stack: stack, Job: job}
}

// JobArguments returns the job's default arguments. Values from
// glue_job_input_arguments override the generated ones.
func JobArguments(cfg Config, dataLakeBucket string) map[string]interface{} {
	args := map[string]string{
		"--job-language":                          "python",
		"--TempDir":                               fmt.Sprintf("s3://%s/temporary/", cfg.AssetsBucketName),
		"--enable-metrics":                        "true",
		"--enable-continuous-cloudwatch-log":      "true",
		"--enable-spark-ui":                       "true",
		"--spark-event-logs-path":                 fmt.Sprintf("s3://%s/sparkHistoryLogs/", cfg.AssetsBucketName),
		"--enable-glue-datacatalog":               "true",
		"--datalake-formats":                      "delta",
		"--kinesis_database_name":                 cfg.KinesisTable.DatabaseName,
		"--kinesis_table_name":                    cfg.KinesisTable.TableName,
		"--starting_position_of_kinesis_iterator": "LATEST",
		"--window_size":                           "100 seconds",
	}
	if dataLakeBucket != "" {
		args["--delta_s3_path"] = fmt.Sprintf("s3://%s/%s", dataLakeBucket, cfg.KinesisTable.TableName)
	}
	maps.Copy(args, cfg.JobInputArguments)

	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

func dataLakeBucketName(bucket awss3.IBucket) string {
	if bucket == nil {
		return ""
	}
	return *bucket.BucketName()
}
