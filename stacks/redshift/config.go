package redshift

import (
	"errors"
	"regexp"

	"github.com/picklr-io/datastacks/internal/config"
)

type Config struct {
	// ClusterIdentifier is optional; CloudFormation generates one when empty.
	ClusterIdentifier string `context:"redshift_cluster_identifier"`
	DBName            string `context:"redshift_db_name"`
	NodeType          string `context:"redshift_node_type"`
	NumberOfNodes     int    `context:"redshift_number_of_nodes"`
}

// DefaultConfig returns a ra3.xlplus cluster with database dev.
func DefaultConfig() Config {
	return Config{
		DBName:        "dev",
		NodeType:      "ra3.xlplus",
		NumberOfNodes: 2,
	}
}

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{0,62}$`)

// Validate checks the database and node settings.
func (c Config) Validate() error {
	var errs []error
	errs = append(errs,
		config.Required("redshift_db_name", c.DBName),
		config.Required("redshift_node_type", c.NodeType),
	)
	if c.NumberOfNodes < 1 {
		errs = append(errs, errors.New(`context key "redshift_number_of_nodes" must be at least 1`))
	}
	if c.ClusterIdentifier != "" && !identifierPattern.MatchString(c.ClusterIdentifier) {
		errs = append(errs, errors.New(`context key "redshift_cluster_identifier" must be lowercase alphanumerics or hyphens starting with a letter`))
	}
	return errors.Join(errs...)
}

// ClusterType maps the node count to single-node or multi-node.
func (c Config) ClusterType() string {
	if c.NumberOfNodes > 1 {
		return "multi-node"
	}
	return "single-node"
}
