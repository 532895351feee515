package dms

import (
	"errors"

	"github.com/picklr-io/datastacks/internal/config"
)

// Migration types accepted by a replication task.
const (
	MigrationFullLoad       = "full-load"
	MigrationCDC            = "cdc"
	MigrationFullLoadAndCDC = "full-load-and-cdc"
)

// Config is decoded from CDK context.
type Config struct {
	SourceDatabaseName       string `context:"source_database_name"`
	SourceTableName          string `context:"source_table_name"`
	SourceDatabaseSecretName string `context:"source_database_secret_name"`
	TargetBucketName         string `context:"target_s3_bucket_name"`
	TargetBucketFolderName   string `context:"target_s3_bucket_folder_name"`
	ClientSecurityGroupName  string `context:"mysql_client_security_group_name"`
	ClientSecurityGroupID    string `context:"mysql_client_security_group_id"`

	MigrationType            string `context:"dms_migration_type"`
	ReplicationInstanceClass string `context:"dms_replication_instance_class"`
	EngineVersion            string `context:"dms_engine_version"`
	AllocatedStorage         int    `context:"dms_allocated_storage"`
	MaxFullLoadSubTasks      int    `context:"dms_max_full_load_sub_tasks"`
}

// DefaultConfig returns full-load migration on a dms.t3.medium instance.
func DefaultConfig() Config {
	return Config{
		MigrationType:            MigrationFullLoad,
		ReplicationInstanceClass: "dms.t3.medium",
		EngineVersion:            "3.4.6",
		AllocatedStorage:         50,
		MaxFullLoadSubTasks:      8,
	}
}

// Validate reports every missing or malformed key at once.
func (c Config) Validate() error {
	var errs []error
	errs = append(errs,
		config.Required("source_database_name", c.SourceDatabaseName),
		config.Required("source_table_name", c.SourceTableName),
		config.Required("source_database_secret_name", c.SourceDatabaseSecretName),
		config.Required("target_s3_bucket_name", c.TargetBucketName),
		config.Required("target_s3_bucket_folder_name", c.TargetBucketFolderName),
		config.OneOf("dms_migration_type", c.MigrationType,
			MigrationFullLoad, MigrationCDC, MigrationFullLoadAndCDC),
	)
	if c.ClientSecurityGroupName == "" && c.ClientSecurityGroupID == "" {
		errs = append(errs, errors.New(
			`missing required context key "mysql_client_security_group_name" (or "mysql_client_security_group_id")`))
	}
	if c.AllocatedStorage < 5 {
		errs = append(errs, errors.New(`context key "dms_allocated_storage" must be at least 5 (GiB)`))
	}
	return errors.Join(errs...)
}

// LookupsSecurityGroup reports whether the client security group is found
// by name, which needs a concrete stack environment.
func (c Config) LookupsSecurityGroup() bool {
	return c.ClientSecurityGroupID == "" && c.ClientSecurityGroupName != ""
}
