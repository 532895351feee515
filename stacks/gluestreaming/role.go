package gluestreaming

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

type GlueJobRoleStackProps struct {
	StackProps
	DataLakeBucket awss3.IBucket
}

type GlueJobRoleStack struct {
	awscdk.Stack
	Role awsiam.Role
}

// NewGlueJobRoleStack declares the role the streaming job runs as.
func NewGlueJobRoleStack(scope constructs.Construct, id string, props *GlueJobRoleStackProps) *GlueJobRoleStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps.StackProps)
	cfg := props.Config

	assets := awss3.Bucket_FromBucketName(stack, jsii.String("GlueAssetsBucket"), jsii.String(cfg.AssetsBucketName))

	role := awsiam.NewRole(stack, jsii.String("GlueJobRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("glue.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AWSGlueServiceRole")),
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("AmazonKinesisReadOnlyAccess")),
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("AmazonEC2ContainerRegistryReadOnly")),
		},
		InlinePolicies: &map[string]awsiam.PolicyDocument{
			"LakeFormationDataAccess": awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
				Statements: &[]awsiam.PolicyStatement{
					awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
						Effect:    awsiam.Effect_ALLOW,
						Actions:   jsii.Strings("lakeformation:GetDataAccess"),
						Resources: jsii.Strings("*"),
					}),
				},
			}),
		},
	})
	assets.GrantReadWrite(role, nil)
	if props.DataLakeBucket != nil {
		props.DataLakeBucket.GrantReadWrite(role, nil)
	}

	stackutil.Output(stack, "GlueJobRoleArn", role.RoleArn())

	return &GlueJobRoleStack{Stack: stack, Role: role}
}
