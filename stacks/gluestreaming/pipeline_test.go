package gluestreaming

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.KinesisStreamName = "deltalake-stream"
	cfg.AssetsBucketName = "aws-glue-assets-123456789012-us-east-1"
	cfg.ScriptFileName = "spark_deltalake_writes_with_sql_merge_into.py"
	cfg.JobName = "streaming_data_from_kds_into_deltalake_table"
	cfg.KinesisTable = KinesisTable{
		DatabaseName: "deltalake_stream_db",
		TableName:    "retail_trans_json",
		Columns: []Column{
			{Name: "trans_id", Type: "bigint"},
			{Name: "customer_id", Type: "string"},
			{Name: "event", Type: "string"},
		},
	}
	cfg.JobInputArguments = map[string]string{
		"--window_size": "30 seconds",
	}
	return cfg
}

func testEnv() *awscdk.Environment {
	return &awscdk.Environment{
		Account: jsii.String("123456789012"),
		Region:  jsii.String("us-east-1"),
	}
}

func stackNames(stacks []awscdk.Stack) []string {
	names := make([]string, 0, len(stacks))
	for _, s := range stacks {
		names = append(names, *s.StackName())
	}
	return names
}

func TestNewPipeline_StacksAndDependencies(t *testing.T) {
	app := awscdk.NewApp(nil)
	p := NewPipeline(app, testEnv(), testConfig())

	assert.Nil(t, p.Connection)
	assert.Equal(t, []string{
		"GlueStreamingSinkToDeltaLakeKdsStack",
		"GlueStreamingSinkToDeltaLakeS3Path",
		"GlueStreamingSinkToDeltaLakeJobRole",
		"GlueSchemaOnKinesisStream",
		"GlueStreamingSinkToDeltaLake",
		"DataLakePermissionsStack",
	}, stackNames(p.Stacks()))

	assert.Subset(t, stackNames(*p.Job.Dependencies()), []string{
		"GlueStreamingSinkToDeltaLakeJobRole",
		"GlueSchemaOnKinesisStream",
		"GlueStreamingSinkToDeltaLakeS3Path",
		"DataLakePermissionsStack",
	})
	assert.Subset(t, stackNames(*p.Permissions.Dependencies()), []string{
		"GlueStreamingSinkToDeltaLakeJobRole",
		"GlueSchemaOnKinesisStream",
	})
	assert.Contains(t, stackNames(*p.Schema.Dependencies()), "GlueStreamingSinkToDeltaLakeKdsStack")
}

func TestNewPipeline_WithConnection(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectionName = "deltalake-connector-1_0_0"

	app := awscdk.NewApp(nil)
	p := NewPipeline(app, testEnv(), cfg)
	require.NotNil(t, p.Connection)
	assert.Len(t, p.Stacks(), 7)
	assert.Contains(t, stackNames(*p.Job.Dependencies()), "GlueDeltaLakeConnection")

	template := assertions.Template_FromStack(p.Connection.Stack, nil)
	template.HasResourceProperties(jsii.String("AWS::Glue::Connection"), map[string]interface{}{
		"CatalogId": "123456789012",
		"ConnectionInput": map[string]interface{}{
			"Name":           "deltalake-connector-1_0_0",
			"ConnectionType": "MARKETPLACE",
			"Description":    "Delta Lake connector for AWS Glue",
			"ConnectionProperties": map[string]interface{}{
				"CONNECTOR_TYPE":       "Spark",
				"CONNECTOR_URL":        DeltaConnectorURL,
				"CONNECTOR_CLASS_NAME": DeltaConnectorClass,
			},
		},
	})

	job := assertions.Template_FromStack(p.Job.Stack, nil)
	job.HasResourceProperties(jsii.String("AWS::Glue::Job"), map[string]interface{}{
		"Connections": map[string]interface{}{
			"Connections": []interface{}{"deltalake-connector-1_0_0"},
		},
	})
}

func TestKdsStack(t *testing.T) {
	app := awscdk.NewApp(nil)
	p := NewPipeline(app, testEnv(), testConfig())

	template := assertions.Template_FromStack(p.Kds.Stack, nil)
	template.HasResourceProperties(jsii.String("AWS::Kinesis::Stream"), map[string]interface{}{
		"Name": "deltalake-stream",
		"StreamModeDetails": map[string]interface{}{
			"StreamMode": "ON_DEMAND",
		},
	})
}

func TestGlueStreamDataSchemaStack(t *testing.T) {
	app := awscdk.NewApp(nil)
	p := NewPipeline(app, testEnv(), testConfig())

	template := assertions.Template_FromStack(p.Schema.Stack, nil)
	template.HasResourceProperties(jsii.String("AWS::Glue::Database"), map[string]interface{}{
		"DatabaseInput": map[string]interface{}{"Name": "deltalake_stream_db"},
	})
	template.HasResourceProperties(jsii.String("AWS::Glue::Table"), map[string]interface{}{
		"DatabaseName": "deltalake_stream_db",
		"TableInput": assertions.Match_ObjectLike(&map[string]interface{}{
			"Name":       "retail_trans_json",
			"TableType":  "EXTERNAL_TABLE",
			"Parameters": map[string]interface{}{"classification": "json"},
			"StorageDescriptor": assertions.Match_ObjectLike(&map[string]interface{}{
				"Columns": []interface{}{
					map[string]interface{}{"Name": "trans_id", "Type": "bigint"},
					map[string]interface{}{"Name": "customer_id", "Type": "string"},
					map[string]interface{}{"Name": "event", "Type": "string"},
				},
				"SerdeInfo": map[string]interface{}{
					"SerializationLibrary": "org.openx.data.jsonserde.JsonSerDe",
				},
			}),
		}),
	})
}

func TestGlueStreamingJobStack(t *testing.T) {
	app := awscdk.NewApp(nil)
	p := NewPipeline(app, testEnv(), testConfig())

	template := assertions.Template_FromStack(p.Job.Stack, nil)
	template.HasResourceProperties(jsii.String("AWS::Glue::Job"), map[string]interface{}{
		"Name": "streaming_data_from_kds_into_deltalake_table",
		"Command": map[string]interface{}{
			"Name":           "gluestreaming",
			"PythonVersion":  "3",
			"ScriptLocation": "s3://aws-glue-assets-123456789012-us-east-1/scripts/spark_deltalake_writes_with_sql_merge_into.py",
		},
		"GlueVersion":     "4.0",
		"WorkerType":      "G.1X",
		"NumberOfWorkers": 2,
		"Connections":     assertions.Match_Absent(),
		"DefaultArguments": assertions.Match_ObjectLike(&map[string]interface{}{
			"--datalake-formats":   "delta",
			"--window_size":        "30 seconds",
			"--kinesis_table_name": "retail_trans_json",
		}),
	})
}

func TestDataLakePermissionsStack(t *testing.T) {
	app := awscdk.NewApp(nil)
	p := NewPipeline(app, testEnv(), testConfig())

	template := assertions.Template_FromStack(p.Permissions.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::LakeFormation::PrincipalPermissions"), jsii.Number(2))
	template.HasResourceProperties(jsii.String("AWS::LakeFormation::PrincipalPermissions"), map[string]interface{}{
		"Permissions": []interface{}{"CREATE_TABLE", "DESCRIBE", "ALTER", "DROP"},
		"Resource": map[string]interface{}{
			"Database": map[string]interface{}{
				"CatalogId": "123456789012",
				"Name":      "deltalake_stream_db",
			},
		},
	})
	template.HasResourceProperties(jsii.String("AWS::LakeFormation::PrincipalPermissions"), map[string]interface{}{
		"Permissions": []interface{}{"SELECT", "INSERT", "DELETE", "DESCRIBE", "ALTER"},
		"Resource": map[string]interface{}{
			"Table": map[string]interface{}{
				"CatalogId":     "123456789012",
				"DatabaseName":  "deltalake_stream_db",
				"TableWildcard": map[string]interface{}{},
			},
		},
	})
}

func TestJobArguments(t *testing.T) {
	cfg := testConfig()
	args := JobArguments(cfg, "datalake-bucket")
	assert.Equal(t, "s3://datalake-bucket/retail_trans_json", args["--delta_s3_path"])
	assert.Equal(t, "30 seconds", args["--window_size"])
	assert.Equal(t, "s3://aws-glue-assets-123456789012-us-east-1/temporary/", args["--TempDir"])

	_, ok := JobArguments(cfg, "")["--delta_s3_path"]
	assert.False(t, ok)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, testConfig().Validate())

	cfg := DefaultConfig()
	cfg.KinesisTable.Columns = []Column{{Name: "id"}}
	cfg.NumberOfWorkers = 1
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"kinesis_stream_name",
		"glue_job_name",
		"glue_kinesis_table.database_name",
		"columns[0]",
		"glue_number_of_workers",
	} {
		assert.Contains(t, err.Error(), want)
	}
}
