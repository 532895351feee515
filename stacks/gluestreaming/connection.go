package gluestreaming

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsglue"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

// Delta Lake connector published on the AWS Marketplace for Glue.
const (
	DeltaConnectorURL   = "https://709825985650.dkr.ecr.us-east-1.amazonaws.com/amazon-web-services/glue/delta:1.0.0-glue3.0-2"
	DeltaConnectorClass = "org.apache.spark.sql.delta.sources.DeltaDataSource"
)

type DeltalakeConnectionStack struct {
	awscdk.Stack
	Connection awsglue.CfnConnection
}

// NewDeltalakeConnectionStack declares the marketplace Delta Lake connection.
func NewDeltalakeConnectionStack(scope constructs.Construct, id string, props *StackProps) *DeltalakeConnectionStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps)
	cfg := props.Config

	connection := awsglue.NewCfnConnection(stack, jsii.String("GlueDeltaLakeConnection"), &awsglue.CfnConnectionProps{
		CatalogId: stack.Account(),
		ConnectionInput: &awsglue.CfnConnection_ConnectionInputProperty{
			Name:           jsii.String(cfg.ConnectionName),
			ConnectionType: jsii.String("MARKETPLACE"),
			Description:    jsii.String("Delta Lake connector for AWS Glue"),
			ConnectionProperties: map[string]interface{}{
				"CONNECTOR_TYPE":       "Spark",
				"CONNECTOR_URL":        DeltaConnectorURL,
				"CONNECTOR_CLASS_NAME": DeltaConnectorClass,
			},
		},
	})

	stackutil.Output(stack, "GlueConnectionName", jsii.String(cfg.ConnectionName))

	return &DeltalakeConnectionStack{Stack: stack, Connection: connection}
}
