package sagemaker

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(region string) awscdk.StackProps {
	return awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String("123456789012"),
			Region:  jsii.String(region),
		},
	}
}

func TestNewHuggingFaceRealtimeEndpointStack(t *testing.T) {
	app := awscdk.NewApp(nil)
	stack := NewHuggingFaceRealtimeEndpointStack(app, "ASRHuggingFaceRealtimeEndpointStack", &HuggingFaceRealtimeEndpointStackProps{
		StackProps: testEnv("us-east-1"),
		Config:     DefaultConfig(),
	})
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.ResourceCountIs(jsii.String("AWS::SageMaker::Model"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::SageMaker::Model"), map[string]interface{}{
		"PrimaryContainer": map[string]interface{}{
			"Image": "763104351884.dkr.ecr.us-east-1.amazonaws.com/huggingface-pytorch-inference:2.0.0-transformers4.28.1-gpu-py310-cu118-ubuntu20.04",
			"Environment": map[string]interface{}{
				"HF_MODEL_ID": "openai/whisper-medium",
				"HF_TASK":     "automatic-speech-recognition",
			},
		},
	})
	template.HasResourceProperties(jsii.String("AWS::SageMaker::EndpointConfig"), map[string]interface{}{
		"ProductionVariants": []interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{
				"VariantName":          "AllTraffic",
				"InitialInstanceCount": 1,
				"InstanceType":         "ml.g4dn.xlarge",
			}),
		},
	})
	template.HasResourceProperties(jsii.String("AWS::SageMaker::Endpoint"), map[string]interface{}{
		"EndpointName": "hf-asr-realtime-endpoint",
	})
	for _, name := range []string{"EndpointName", "EndpointArn", "ModelName"} {
		template.HasOutput(jsii.String(name), map[string]interface{}{
			"Export": map[string]interface{}{"Name": "ASRHuggingFaceRealtimeEndpointStack-" + name},
		})
	}
}

func TestNewEndpointAutoScalingStack(t *testing.T) {
	app := awscdk.NewApp(nil)
	cfg := DefaultConfig()
	endpoint := NewHuggingFaceRealtimeEndpointStack(app, "EndpointStack", &HuggingFaceRealtimeEndpointStackProps{
		StackProps: testEnv("us-east-1"),
		Config:     cfg,
	})
	scaling := NewEndpointAutoScalingStack(app, "AutoScalingStack", &EndpointAutoScalingStackProps{
		StackProps: testEnv("us-east-1"),
		Endpoint:   endpoint.Endpoint,
		Config:     cfg,
	})
	template := assertions.Template_FromStack(scaling.Stack, nil)

	template.HasResourceProperties(jsii.String("AWS::ApplicationAutoScaling::ScalableTarget"), map[string]interface{}{
		"ServiceNamespace":  "sagemaker",
		"ResourceId":        "endpoint/hf-asr-realtime-endpoint/variant/AllTraffic",
		"ScalableDimension": "sagemaker:variant:DesiredInstanceCount",
		"MinCapacity":       1,
		"MaxCapacity":       2,
	})
	template.HasResourceProperties(jsii.String("AWS::ApplicationAutoScaling::ScalingPolicy"), map[string]interface{}{
		"PolicyType": "TargetTrackingScaling",
		"TargetTrackingScalingPolicyConfiguration": assertions.Match_ObjectLike(&map[string]interface{}{
			"TargetValue": 70,
			"PredefinedMetricSpecification": map[string]interface{}{
				"PredefinedMetricType": "SageMakerVariantInvocationsPerInstance",
			},
		}),
	})
}

func TestImageURI(t *testing.T) {
	app := awscdk.NewApp(nil)
	cfg := DefaultConfig()

	hk := awscdk.NewStack(app, jsii.String("HK"), &awscdk.StackProps{Env: testEnv("ap-east-1").Env})
	assert.Equal(t, "871362719292.dkr.ecr.ap-east-1.amazonaws.com/huggingface-pytorch-inference:"+cfg.ImageTag, ImageURI(hk, cfg))

	bj := awscdk.NewStack(app, jsii.String("BJ"), &awscdk.StackProps{Env: testEnv("cn-north-1").Env})
	assert.Contains(t, ImageURI(bj, cfg), "727897471807.dkr.ecr.cn-north-1.amazonaws.com.cn/")

	cfg.Image = "my.registry/whisper:latest"
	assert.Equal(t, "my.registry/whisper:latest", ImageURI(hk, cfg))
}

func TestRegistryAccount(t *testing.T) {
	assert.Equal(t, DefaultRegistryAccount, RegistryAccount("us-west-2"))
	assert.Equal(t, "217643126080", RegistryAccount("me-south-1"))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MinCapacity = 3
	cfg.ImageTag = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min=3 max=2")
	assert.Contains(t, err.Error(), "hugging_face_image_tag")
}
