// Package gluestreaming declares a Glue streaming job that reads a Kinesis
// stream through the Data Catalog and writes a Delta Lake table to S3.
package gluestreaming

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
)

// Pipeline is the full set of stacks. Connection is nil unless a
// connection name is configured.
type Pipeline struct {
	Kds         *KdsStack
	Bucket      *S3BucketStack
	Connection  *DeltalakeConnectionStack
	Role        *GlueJobRoleStack
	Schema      *GlueStreamDataSchemaStack
	Job         *GlueStreamingJobStack
	Permissions *DataLakePermissionsStack
}

// NewPipeline declares every stack in scope and records their deployment
// dependencies.
func NewPipeline(scope constructs.Construct, env *awscdk.Environment, cfg Config) *Pipeline {
	base := StackProps{StackProps: awscdk.StackProps{Env: env}, Config: cfg}
	p := &Pipeline{}

	p.Kds = NewKdsStack(scope, "GlueStreamingSinkToDeltaLakeKdsStack", &base)
	p.Bucket = NewS3BucketStack(scope, "GlueStreamingSinkToDeltaLakeS3Path", &base)
	if cfg.HasConnection() {
		p.Connection = NewDeltalakeConnectionStack(scope, "GlueDeltaLakeConnection", &base)
	}
	p.Role = NewGlueJobRoleStack(scope, "GlueStreamingSinkToDeltaLakeJobRole", &GlueJobRoleStackProps{
		StackProps:     base,
		DataLakeBucket: p.Bucket.Bucket,
	})
	p.Schema = NewGlueStreamDataSchemaStack(scope, "GlueSchemaOnKinesisStream", &GlueStreamDataSchemaStackProps{
		StackProps: base,
		Stream:     p.Kds.Stream,
	})
	p.Schema.AddDependency(p.Kds.Stack, nil)

	p.Job = NewGlueStreamingJobStack(scope, "GlueStreamingSinkToDeltaLake", &GlueStreamingJobStackProps{
		StackProps:     base,
		Role:           p.Role.Role,
		DataLakeBucket: p.Bucket.Bucket,
	})
	p.Job.AddDependency(p.Role.Stack, nil)
	p.Job.AddDependency(p.Schema.Stack, nil)
	p.Job.AddDependency(p.Bucket.Stack, nil)
	if p.Connection != nil {
		p.Job.AddDependency(p.Connection.Stack, nil)
	}

	p.Permissions = NewDataLakePermissionsStack(scope, "DataLakePermissionsStack", &DataLakePermissionsStackProps{
		StackProps: base,
		Role:       p.Role.Role,
	})
	p.Permissions.AddDependency(p.Role.Stack, nil)
	p.Permissions.AddDependency(p.Schema.Stack, nil)
	p.Job.AddDependency(p.Permissions.Stack, nil)

	return p
}

// Stacks returns the declared stacks in declaration order.
func (p *Pipeline) Stacks() []awscdk.Stack {
	stacks := []awscdk.Stack{p.Kds.Stack, p.Bucket.Stack}
	if p.Connection != nil {
		stacks = append(stacks, p.Connection.Stack)
	}
	return append(stacks, p.Role.Stack, p.Schema.Stack, p.Job.Stack, p.Permissions.Stack)
}
