// Package sagemaker declares a real-time SageMaker endpoint serving a
// Hugging Face model and the autoscaling policy of its variant.
package sagemaker

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapplicationautoscaling"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssagemaker"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

const VariantName = "AllTraffic"

type HuggingFaceRealtimeEndpointStackProps struct {
	awscdk.StackProps
	Config Config
}

type HuggingFaceRealtimeEndpointStack struct {
	awscdk.Stack
	Model    awssagemaker.CfnModel
	Endpoint awssagemaker.CfnEndpoint
}

// NewHuggingFaceRealtimeEndpointStack declares the model, endpoint config and endpoint.
func NewHuggingFaceRealtimeEndpointStack(scope constructs.Construct, id string, props *HuggingFaceRealtimeEndpointStackProps) *HuggingFaceRealtimeEndpointStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps)
	cfg := props.Config

	role := awsiam.NewRole(stack, jsii.String("SageMakerExecutionRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("sagemaker.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("AmazonSageMakerFullAccess")),
		},
	})

	model := awssagemaker.NewCfnModel(stack, jsii.String("HuggingFaceModel"), &awssagemaker.CfnModelProps{
		ExecutionRoleArn: role.RoleArn(),
		PrimaryContainer: &awssagemaker.CfnModel_ContainerDefinitionProperty{
			Image: jsii.String(ImageURI(stack, cfg)),
			Environment: map[string]interface{}{
				"HF_MODEL_ID": cfg.ModelID,
				"HF_TASK":     cfg.Task,
			},
		},
	})

	endpointConfig := awssagemaker.NewCfnEndpointConfig(stack, jsii.String("HuggingFaceEndpointConfig"), &awssagemaker.CfnEndpointConfigProps{
		ProductionVariants: &[]interface{}{
			&awssagemaker.CfnEndpointConfig_ProductionVariantProperty{
				VariantName:          jsii.String(VariantName),
				ModelName:            model.AttrModelName(),
				InitialInstanceCount: stackutil.Number(cfg.InitialInstances),
				InitialVariantWeight: jsii.Number(1),
				InstanceType:         jsii.String(cfg.InstanceType),
			},
		},
	})

	endpoint := awssagemaker.NewCfnEndpoint(stack, jsii.String("HuggingFaceEndpoint"), &awssagemaker.CfnEndpointProps{
		EndpointName:       jsii.String(cfg.EndpointName),
		EndpointConfigName: endpointConfig.AttrEndpointConfigName(),
	})

	stackutil.Output(stack, "EndpointName", endpoint.AttrEndpointName())
	stackutil.Output(stack, "EndpointArn", endpoint.Ref())
	stackutil.Output(stack, "ModelName", model.AttrModelName())

	return &HuggingFaceRealtimeEndpointStack{Stack: stack, Model: model, Endpoint: endpoint}
}

type EndpointAutoScalingStackProps struct {
	awscdk.StackProps
	Endpoint awssagemaker.CfnEndpoint
	Config   Config
}

type EndpointAutoScalingStack struct {
	awscdk.Stack
	Target awsapplicationautoscaling.ScalableTarget
}

// NewEndpointAutoScalingStack tracks invocations per instance on the
// endpoint's single variant.
func NewEndpointAutoScalingStack(scope constructs.Construct, id string, props *EndpointAutoScalingStackProps) *EndpointAutoScalingStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps)
	cfg := props.Config

	target := awsapplicationautoscaling.NewScalableTarget(stack, jsii.String("ScalableTarget"), &awsapplicationautoscaling.ScalableTargetProps{
		ServiceNamespace:  awsapplicationautoscaling.ServiceNamespace_SAGEMAKER,
		MinCapacity:       stackutil.Number(cfg.MinCapacity),
		MaxCapacity:       stackutil.Number(cfg.MaxCapacity),
		ResourceId:        jsii.String(ResourceID(*props.Endpoint.EndpointName())),
		ScalableDimension: jsii.String("sagemaker:variant:DesiredInstanceCount"),
	})

	target.ScaleToTrackMetric(jsii.String("InvocationsPerInstance"), &awsapplicationautoscaling.BasicTargetTrackingScalingPolicyProps{
		TargetValue:      stackutil.Number(cfg.TargetInvocations),
		PredefinedMetric: awsapplicationautoscaling.PredefinedMetric_SAGEMAKER_VARIANT_INVOCATIONS_PER_INSTANCE,
		ScaleInCooldown:  awscdk.Duration_Seconds(stackutil.Number(cfg.ScaleInCooldownSec)),
		ScaleOutCooldown: awscdk.Duration_Seconds(stackutil.Number(cfg.ScaleOutCooldownSec)),
	})

	return &EndpointAutoScalingStack{Stack: stack, Target: target}
}

// ResourceID is the Application Auto Scaling id of the endpoint variant.
func ResourceID(endpointName string) string {
	return fmt.Sprintf("endpoint/%s/variant/%s", endpointName, VariantName)
}
