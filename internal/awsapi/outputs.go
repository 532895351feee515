package awsapi

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
)

// StackOutput is one output of a deployed stack.
type StackOutput struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	ExportName  string `json:"exportName,omitempty"`
	Description string `json:"description,omitempty"`
}

// ErrStackNotFound is returned by StackOutputs for an undeployed stack.
var ErrStackNotFound = fmt.Errorf("stack not found")

// StackOutputs returns the outputs of a deployed stack sorted by key.
func (c *Clients) StackOutputs(ctx context.Context, stackName string) ([]StackOutput, error) {
	out, err := c.CloudFormation.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrStackNotFound, stackName)
		}
		return nil, fmt.Errorf("failed to describe stack %s: %w", stackName, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, stackName)
	}

	outputs := make([]StackOutput, 0, len(out.Stacks[0].Outputs))
	for _, o := range out.Stacks[0].Outputs {
		outputs = append(outputs, StackOutput{
			Key:         aws.ToString(o.OutputKey),
			Value:       aws.ToString(o.OutputValue),
			ExportName:  aws.ToString(o.ExportName),
			Description: aws.ToString(o.Description),
		})
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Key < outputs[j].Key })
	return outputs, nil
}
