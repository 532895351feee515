package redshift

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/datastacks/stacks/vpc"
)

func synth(t *testing.T, cfg Config) assertions.Template {
	t.Helper()
	app := awscdk.NewApp(nil)
	stack := NewRedshiftCfnStack(app, "RedshiftCfnProvisionedStack", &RedshiftCfnStackProps{
		Vpc:    vpc.NewVpcStack(app, "RedshiftCfnProvisionedVPCStack", nil).Vpc,
		Config: cfg,
	})
	require.NotNil(t, stack.Cluster)
	return assertions.Template_FromStack(stack.Stack, nil)
}

func TestNewRedshiftCfnStack_MultiNode(t *testing.T) {
	template := synth(t, DefaultConfig())

	template.ResourceCountIs(jsii.String("AWS::Redshift::Cluster"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::Redshift::ClusterSubnetGroup"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::Redshift::Cluster"), map[string]interface{}{
		"ClusterType":                      "multi-node",
		"NumberOfNodes":                    2,
		"NodeType":                         "ra3.xlplus",
		"DBName":                           "dev",
		"Encrypted":                        true,
		"PubliclyAccessible":               false,
		"Port":                             5439,
		"AutomatedSnapshotRetentionPeriod": 7,
		"ClusterIdentifier":                assertions.Match_Absent(),
	})
	template.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]interface{}{
		"FromPort": 5439,
		"ToPort":   5439,
	})
	template.HasResourceProperties(jsii.String("AWS::SecretsManager::Secret"), map[string]interface{}{
		"GenerateSecretString": assertions.Match_ObjectLike(&map[string]interface{}{
			"PasswordLength":     32,
			"ExcludePunctuation": true,
		}),
	})
}

func TestNewRedshiftCfnStack_SingleNodeWithIdentifier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumberOfNodes = 1
	cfg.ClusterIdentifier = "analytics"
	template := synth(t, cfg)

	template.HasResourceProperties(jsii.String("AWS::Redshift::Cluster"), map[string]interface{}{
		"ClusterType":       "single-node",
		"NumberOfNodes":     assertions.Match_Absent(),
		"ClusterIdentifier": "analytics",
	})
}

func TestNewRedshiftCfnStack_Outputs(t *testing.T) {
	template := synth(t, DefaultConfig())
	for _, name := range []string{"ClusterIdentifier", "ClusterEndpoint", "ClusterPort", "ClientSecurityGroupId", "AdminSecretName", "IAMRoleArn"} {
		template.HasOutput(jsii.String(name), map[string]interface{}{
			"Export": map[string]interface{}{"Name": "RedshiftCfnProvisionedStack-" + name},
		})
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no nodes", func(c *Config) { c.NumberOfNodes = 0 }, "redshift_number_of_nodes"},
		{"bad identifier", func(c *Config) { c.ClusterIdentifier = "Bad_Name" }, "redshift_cluster_identifier"},
		{"no db", func(c *Config) { c.DBName = "" }, "redshift_db_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
