package gluestreaming

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsglue"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskinesis"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

type GlueStreamDataSchemaStackProps struct {
	StackProps
	Stream awskinesis.IStream
}

type GlueStreamDataSchemaStack struct {
	awscdk.Stack
	Database awsglue.CfnDatabase
	Table    awsglue.CfnTable
}

// NewGlueStreamDataSchemaStack registers the stream as a JSON table in the
// Data Catalog.
func NewGlueStreamDataSchemaStack(scope constructs.Construct, id string, props *GlueStreamDataSchemaStackProps) *GlueStreamDataSchemaStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps.StackProps)
	table := props.Config.KinesisTable

	database := awsglue.NewCfnDatabase(stack, jsii.String("GlueDatabaseOnKinesis"), &awsglue.CfnDatabaseProps{
		CatalogId: stack.Account(),
		DatabaseInput: &awsglue.CfnDatabase_DatabaseInputProperty{
			Name: jsii.String(table.DatabaseName),
		},
	})

	columns := make([]interface{}, 0, len(table.Columns))
	for _, col := range table.Columns {
		columns = append(columns, &awsglue.CfnTable_ColumnProperty{
			Name: jsii.String(col.Name),
			Type: jsii.String(col.Type),
		})
	}

	cfnTable := awsglue.NewCfnTable(stack, jsii.String("GlueTableOnKinesis"), &awsglue.CfnTableProps{
		CatalogId:    stack.Account(),
		DatabaseName: jsii.String(table.DatabaseName),
		TableInput: &awsglue.CfnTable_TableInputProperty{
			Name:      jsii.String(table.TableName),
			TableType: jsii.String("EXTERNAL_TABLE"),
			Parameters: map[string]interface{}{
				"classification": "json",
			},
			StorageDescriptor: &awsglue.CfnTable_StorageDescriptorProperty{
				Columns:      &columns,
				Location:     props.Stream.StreamName(),
				InputFormat:  jsii.String("org.apache.hadoop.mapred.TextInputFormat"),
				OutputFormat: jsii.String("org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat"),
				SerdeInfo: &awsglue.CfnTable_SerdeInfoProperty{
					SerializationLibrary: jsii.String("org.openx.data.jsonserde.JsonSerDe"),
				},
				Parameters: map[string]interface{}{
					"streamARN":  props.Stream.StreamArn(),
					"typeOfData": "kinesis",
				},
			},
		},
	})
	cfnTable.AddDependency(database)

	stackutil.Output(stack, "GlueDatabaseName", jsii.String(table.DatabaseName))
	stackutil.Output(stack, "GlueTableName", jsii.String(table.TableName))

	return &GlueStreamDataSchemaStack{Stack: stack, Database: database, Table: cfnTable}
}
