// Package lambdalayers declares a Lambda layer built from a library archive
// in S3 and a VPC function that imports it.
package lambdalayers

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

const handlerSource = `import %[1]s


def lambda_handler(event, context):
    print("%[1]s loaded from layer:", getattr(%[1]s, "__version__", "unknown"))
    return {"statusCode": 200, "body": "%[1]s"}
`

// HandlerSource is the inline function body importing module from the layer.
func HandlerSource(module string) string {
	return fmt.Sprintf(handlerSource, module)
}

type LambdaLayersStackProps struct {
	awscdk.StackProps
	Vpc    awsec2.IVpc
	Config Config
}

type LambdaLayersStack struct {
	awscdk.Stack
	Layer    awslambda.LayerVersion
	Function awslambda.Function
}

// NewLambdaLayersStack declares the layer and a function that uses it.
func NewLambdaLayersStack(scope constructs.Construct, id string, props *LambdaLayersStackProps) *LambdaLayersStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps)
	cfg := props.Config

	libBucket := awss3.Bucket_FromBucketName(stack, jsii.String("LambdaLayerLibBucket"), jsii.String(cfg.LibBucket))

	layer := awslambda.NewLayerVersion(stack, jsii.String("PythonLibLayer"), &awslambda.LayerVersionProps{
		LayerVersionName:   jsii.String(cfg.LayerName),
		Code:               awslambda.Code_FromBucket(libBucket, jsii.String(cfg.LibKey), nil),
		CompatibleRuntimes: &[]awslambda.Runtime{awslambda.Runtime_PYTHON_3_11()},
		Description:        jsii.String(fmt.Sprintf("%s Python library", cfg.LayerModule)),
	})

	fn := awslambda.NewFunction(stack, jsii.String("LambdaLayersFunction"), &awslambda.FunctionProps{
		Runtime:      awslambda.Runtime_PYTHON_3_11(),
		FunctionName: jsii.String(cfg.FunctionName),
		Handler:      jsii.String("index.lambda_handler"),
		Code:         awslambda.Code_FromInline(jsii.String(HandlerSource(cfg.LayerModule))),
		Timeout:      awscdk.Duration_Seconds(stackutil.Number(cfg.TimeoutSec)),
		Layers:       &[]awslambda.ILayerVersion{layer},
		Vpc:          props.Vpc,
		VpcSubnets: &awsec2.SubnetSelection{
			SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
		},
		LogRetention: awslogs.RetentionDays_THREE_DAYS,
	})

	stackutil.Output(stack, "LayerVersionArn", layer.LayerVersionArn())
	stackutil.Output(stack, "FunctionName", fn.FunctionName())
	stackutil.Output(stack, "FunctionArn", fn.FunctionArn())

	return &LambdaLayersStack{Stack: stack, Layer: layer, Function: fn}
}
