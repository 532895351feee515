// Package stackutil holds small helpers shared by the stack packages.
package stackutil

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// NewStack creates a stack from optional props.
func NewStack(scope constructs.Construct, id string, props *awscdk.StackProps) awscdk.Stack {
	var sprops awscdk.StackProps
	if props != nil {
		sprops = *props
	}
	return awscdk.NewStack(scope, jsii.String(id), &sprops)
}

// ExportName returns the export name used for an output of stack:
// "<stackName>-<name>".
func ExportName(stack awscdk.Stack, name string) string {
	return fmt.Sprintf("%s-%s", *stack.StackName(), name)
}

// Output declares a stack output exported as "<stackName>-<name>".
func Output(stack awscdk.Stack, name string, value *string) awscdk.CfnOutput {
	return awscdk.NewCfnOutput(stack, jsii.String(name), &awscdk.CfnOutputProps{
		Value:      value,
		ExportName: jsii.String(ExportName(stack, name)),
	})
}

// Tag adds a tag to a construct and everything below it.
func Tag(scope constructs.IConstruct, key, value string) {
	awscdk.Tags_Of(scope).Add(jsii.String(key), jsii.String(value), nil)
}

// Number converts an int for CDK numeric props.
func Number(n int) *float64 {
	return jsii.Number(float64(n))
}

// StringMap converts a map for CDK props that take *map[string]*string.
func StringMap(m map[string]string) *map[string]*string {
	out := make(map[string]*string, len(m))
	for k, v := range m {
		out[k] = jsii.String(v)
	}
	return &out
}

// JSON renders v as the JSON string a CloudFormation property expects.
// Callers pass plain data, so a marshal failure is a programming error.
func JSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal %T: %v", v, err))
	}
	return string(data)
}
