package lambdalayers

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/datastacks/stacks/vpc"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.LibBucket = "lambda-layer-resources"
	cfg.LibKey = "var/requests-lib.zip"
	return cfg
}

func TestNewLambdaLayersStack(t *testing.T) {
	app := awscdk.NewApp(nil)
	stack := NewLambdaLayersStack(app, "LambdaLayersStack", &LambdaLayersStackProps{
		Vpc:    vpc.NewVpcStack(app, "LambdaLayersVpcStack", nil).Vpc,
		Config: testConfig(),
	})
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.HasResourceProperties(jsii.String("AWS::Lambda::LayerVersion"), map[string]interface{}{
		"LayerName":          "python-lib-layer",
		"CompatibleRuntimes": []interface{}{"python3.11"},
		"Content": map[string]interface{}{
			"S3Bucket": "lambda-layer-resources",
			"S3Key":    "var/requests-lib.zip",
		},
	})
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]interface{}{
		"FunctionName": "LambdaLayersFunction",
		"Runtime":      "python3.11",
		"Handler":      "index.lambda_handler",
		"Timeout":      180,
		"Layers":       assertions.Match_AnyValue(),
		"VpcConfig":    assertions.Match_ObjectLike(&map[string]interface{}{}),
	})
	template.HasResourceProperties(jsii.String("Custom::LogRetention"), map[string]interface{}{
		"RetentionInDays": 3,
	})
	for _, name := range []string{"LayerVersionArn", "FunctionName", "FunctionArn"} {
		template.HasOutput(jsii.String(name), map[string]interface{}{
			"Export": map[string]interface{}{"Name": "LambdaLayersStack-" + name},
		})
	}
}

func TestHandlerSource(t *testing.T) {
	src := HandlerSource("opensearchpy")
	assert.Contains(t, src, "import opensearchpy\n")
	assert.Contains(t, src, "def lambda_handler(event, context):")
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, testConfig().Validate())

	cfg := testConfig()
	cfg.LibKey = ""
	cfg.LayerModule = "not a module"
	cfg.TimeoutSec = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lambda_layer_lib_s3_key")
	assert.Contains(t, err.Error(), "lambda_layer_module")
	assert.Contains(t, err.Error(), "lambda_timeout")
}
