package gluestreaming

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskinesis"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

type KdsStack struct {
	awscdk.Stack
	Stream awskinesis.Stream
}

// NewKdsStack declares the on-demand source stream.
func NewKdsStack(scope constructs.Construct, id string, props *StackProps) *KdsStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps)
	cfg := props.Config

	stream := awskinesis.NewStream(stack, jsii.String("SourceKinesisStreams"), &awskinesis.StreamProps{
		StreamName: jsii.String(cfg.KinesisStreamName),
		StreamMode: awskinesis.StreamMode_ON_DEMAND,
		Encryption: awskinesis.StreamEncryption_MANAGED,
	})

	stackutil.Output(stack, "KinesisDataStreamName", stream.StreamName())
	stackutil.Output(stack, "KinesisDataStreamArn", stream.StreamArn())

	return &KdsStack{Stack: stack, Stream: stream}
}
