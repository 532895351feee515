package rdsproxy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/picklr-io/datastacks/internal/config"
)

type Config struct {
	ClusterName        string `context:"db_cluster_name"`
	AuroraMysqlVersion string `context:"aurora_mysql_version"`
	InstanceType       string `context:"db_instance_type"`
}

// DefaultConfig returns Aurora MySQL 3.04.0 on t3.medium.
func DefaultConfig() Config {
	return Config{
		AuroraMysqlVersion: "8.0.mysql_aurora.3.04.0",
		InstanceType:       "t3.medium",
	}
}

// Validate checks the cluster name and engine version.
func (c Config) Validate() error {
	errs := []error{config.Required("db_cluster_name", c.ClusterName)}
	if _, err := majorVersion(c.AuroraMysqlVersion); err != nil {
		errs = append(errs, err)
	}
	if c.InstanceType == "" {
		errs = append(errs, errors.New(`context key "db_instance_type" must not be empty`))
	}
	return errors.Join(errs...)
}

// majorVersion extracts "8.0" from "8.0.mysql_aurora.3.04.0".
func majorVersion(full string) (string, error) {
	major, _, ok := strings.Cut(full, ".mysql_aurora.")
	if !ok || major == "" {
		return "", fmt.Errorf(`context key "aurora_mysql_version" must look like <major>.mysql_aurora.<version>, got %q`, full)
	}
	return major, nil
}
