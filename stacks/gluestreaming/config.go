package gluestreaming

import (
	"errors"
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"

	"github.com/picklr-io/datastacks/internal/config"
)

// StackProps is shared by every stack of the pipeline.
type StackProps struct {
	awscdk.StackProps
	Config Config
}

type Column struct {
	Name string `context:"name" json:"name"`
	Type string `context:"type" json:"type"`
}

// KinesisTable describes the Data Catalog table backed by the stream.
type KinesisTable struct {
	DatabaseName string   `context:"database_name"`
	TableName    string   `context:"table_name"`
	Columns      []Column `context:"columns"`
}

type Config struct {
	KinesisStreamName  string            `context:"kinesis_stream_name"`
	AssetsBucketName   string            `context:"glue_assets_s3_bucket_name"`
	ScriptFileName     string            `context:"glue_job_script_file_name"`
	JobName            string            `context:"glue_job_name"`
	KinesisTable       KinesisTable      `context:"glue_kinesis_table"`
	JobInputArguments  map[string]string `context:"glue_job_input_arguments"`
	ConnectionName     string            `context:"glue_connections_name"`
	DataLakeBucketName string            `context:"data_lake_s3_bucket_name"`
	WorkerType         string            `context:"glue_worker_type"`
	NumberOfWorkers    int               `context:"glue_number_of_workers"`
}

// DefaultConfig returns two G.1X workers.
func DefaultConfig() Config {
	return Config{
		WorkerType:      "G.1X",
		NumberOfWorkers: 2,
	}
}

// Validate checks the stream, bucket and database names.
func (c Config) Validate() error {
	var errs []error
	errs = append(errs,
		config.Required("kinesis_stream_name", c.KinesisStreamName),
		config.Required("glue_assets_s3_bucket_name", c.AssetsBucketName),
		config.Required("glue_job_script_file_name", c.ScriptFileName),
		config.Required("glue_job_name", c.JobName),
		config.Required("glue_kinesis_table.database_name", c.KinesisTable.DatabaseName),
		config.Required("glue_kinesis_table.table_name", c.KinesisTable.TableName),
		config.OneOf("glue_worker_type", c.WorkerType, "G.025X", "G.1X", "G.2X", "G.4X", "G.8X"),
	)
	if len(c.KinesisTable.Columns) == 0 {
		errs = append(errs, errors.New(`context key "glue_kinesis_table.columns" must list at least one column`))
	}
	for i, col := range c.KinesisTable.Columns {
		if col.Name == "" || col.Type == "" {
			errs = append(errs, fmt.Errorf(`context key "glue_kinesis_table.columns[%d]" needs both name and type`, i))
		}
	}
	if c.NumberOfWorkers < 2 {
		errs = append(errs, errors.New(`context key "glue_number_of_workers" must be at least 2`))
	}
	return errors.Join(errs...)
}

// HasConnection reports whether the job uses a marketplace Delta connector.
func (c Config) HasConnection() bool {
	return c.ConnectionName != ""
}
