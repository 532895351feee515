package kdaflink

import (
	"errors"

	"github.com/picklr-io/datastacks/internal/config"
	"github.com/picklr-io/datastacks/stacks/vpc"
)

type Config struct {
	// Vpc is decoded from the same context keys as the vpc package.
	Vpc vpc.Config `context:",squash"`

	CodeBucketName         string `context:"kda_flink_code_bucket_name"`
	CodeFileKey            string `context:"kda_flink_code_file_key"`
	SourceBootstrapServers string `context:"msk_source_bootstrap_servers"`
	TargetBootstrapServers string `context:"msk_target_bootstrap_servers"`
	SourceTopic            string `context:"msk_source_topic"`
	TargetTopic            string `context:"msk_target_topic"`
	ClientSecurityGroupID  string `context:"msk_client_security_group_id"`

	ApplicationName    string `context:"kda_application_name"`
	RuntimeEnvironment string `context:"kda_runtime_environment"`
	Parallelism        int    `context:"kda_parallelism"`
	ParallelismPerKPU  int    `context:"kda_parallelism_per_kpu"`
}

// DefaultConfig returns the replication app defaults.
func DefaultConfig() Config {
	return Config{
		Vpc:                vpc.DefaultConfig(),
		ApplicationName:    "kda-flink-msk-replication",
		RuntimeEnvironment: "FLINK-1_15",
		Parallelism:        2,
		ParallelismPerKPU:  1,
	}
}

// Validate checks the code location and broker settings.
func (c Config) Validate() error {
	var errs []error
	errs = append(errs,
		config.Required("kda_flink_code_bucket_name", c.CodeBucketName),
		config.Required("kda_flink_code_file_key", c.CodeFileKey),
		config.Required("msk_source_bootstrap_servers", c.SourceBootstrapServers),
		config.Required("msk_target_bootstrap_servers", c.TargetBootstrapServers),
		config.Required("msk_source_topic", c.SourceTopic),
		config.Required("msk_target_topic", c.TargetTopic),
		config.Required("kda_application_name", c.ApplicationName),
		config.OneOf("kda_runtime_environment", c.RuntimeEnvironment,
			"FLINK-1_13", "FLINK-1_15", "FLINK-1_18", "FLINK-1_19"),
	)
	if c.Parallelism < 1 || c.ParallelismPerKPU < 1 {
		errs = append(errs, errors.New(`context keys "kda_parallelism" and "kda_parallelism_per_kpu" must be at least 1`))
	}
	return errors.Join(errs...)
}

// PropertyMap is the runtime property group read by the Flink job.
func (c Config) PropertyMap() map[string]string {
	return map[string]string{
		"source.bootstrap.servers": c.SourceBootstrapServers,
		"source.topic":             c.SourceTopic,
		"source.group.id":          c.ApplicationName,
		"sink.bootstrap.servers":   c.TargetBootstrapServers,
		"sink.topic":               c.TargetTopic,
	}
}
