package gluestreaming

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

type S3BucketStack struct {
	awscdk.Stack
	Bucket awss3.Bucket
}

// NewS3BucketStack declares the bucket holding the Delta Lake table. Its
// name is generated when none is configured.
func NewS3BucketStack(scope constructs.Construct, id string, props *StackProps) *S3BucketStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps)
	cfg := props.Config

	bprops := &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_RETAIN,
	}
	if cfg.DataLakeBucketName != "" {
		bprops.BucketName = jsii.String(cfg.DataLakeBucketName)
	}
	bucket := awss3.NewBucket(stack, jsii.String("DeltaLakeBucket"), bprops)

	stackutil.Output(stack, "S3BucketName", bucket.BucketName())

	return &S3BucketStack{Stack: stack, Bucket: bucket}
}
