// Package redshift declares a provisioned Redshift cluster with L1
// constructs.
package redshift

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsredshift"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

const (
	Port              = 5439
	AdminUsername     = "admin"
	SnapshotRetention = 7
)

type RedshiftCfnStackProps struct {
	awscdk.StackProps
	Vpc    awsec2.IVpc
	Config Config
}

type RedshiftCfnStack struct {
	awscdk.Stack
	Cluster             awsredshift.CfnCluster
	ClientSecurityGroup awsec2.SecurityGroup
	AdminSecret         awssecretsmanager.Secret
	Role                awsiam.Role
}

// NewRedshiftCfnStack declares a provisioned cluster with L1 constructs.
func NewRedshiftCfnStack(scope constructs.Construct, id string, props *RedshiftCfnStackProps) *RedshiftCfnStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps)
	cfg := props.Config
	vpc := props.Vpc

	clientSG := awsec2.NewSecurityGroup(stack, jsii.String("RedshiftClientSG"), &awsec2.SecurityGroupProps{
		Vpc:              vpc,
		AllowAllOutbound: jsii.Bool(true),
		Description:      jsii.String("security group for redshift client"),
	})
	stackutil.Tag(clientSG, "Name", "redshift-client-sg")

	clusterSG := awsec2.NewSecurityGroup(stack, jsii.String("RedshiftClusterSG"), &awsec2.SecurityGroupProps{
		Vpc:              vpc,
		AllowAllOutbound: jsii.Bool(true),
		Description:      jsii.String("security group for redshift cluster"),
	})
	clusterSG.AddIngressRule(clientSG, awsec2.Port_Tcp(jsii.Number(Port)), jsii.String("redshift-client-sg"), nil)
	stackutil.Tag(clusterSG, "Name", "redshift-cluster-sg")

	subnetGroup := awsredshift.NewCfnClusterSubnetGroup(stack, jsii.String("RedshiftClusterSubnetGroup"), &awsredshift.CfnClusterSubnetGroupProps{
		Description: jsii.String("subnet group for redshift cluster"),
		SubnetIds: vpc.SelectSubnets(&awsec2.SubnetSelection{
			SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
		}).SubnetIds,
	})

	secret := awssecretsmanager.NewSecret(stack, jsii.String("RedshiftAdminSecret"), &awssecretsmanager.SecretProps{
		GenerateSecretString: &awssecretsmanager.SecretStringGenerator{
			SecretStringTemplate: jsii.String(stackutil.JSON(map[string]string{"username": AdminUsername})),
			GenerateStringKey:    jsii.String("password"),
			ExcludePunctuation:   jsii.Bool(true),
			PasswordLength:       jsii.Number(32),
		},
	})

	role := awsiam.NewRole(stack, jsii.String("RedshiftClusterRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("redshift.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("AmazonS3ReadOnlyAccess")),
		},
	})

	clusterProps := &awsredshift.CfnClusterProps{
		ClusterType:                      jsii.String(cfg.ClusterType()),
		DbName:                           jsii.String(cfg.DBName),
		NodeType:                         jsii.String(cfg.NodeType),
		MasterUsername:                   secret.SecretValueFromJson(jsii.String("username")).UnsafeUnwrap(),
		MasterUserPassword:               secret.SecretValueFromJson(jsii.String("password")).UnsafeUnwrap(),
		ClusterSubnetGroupName:           subnetGroup.Ref(),
		VpcSecurityGroupIds:              &[]*string{clusterSG.SecurityGroupId()},
		IamRoles:                         &[]*string{role.RoleArn()},
		Encrypted:                        jsii.Bool(true),
		PubliclyAccessible:               jsii.Bool(false),
		Port:                             jsii.Number(Port),
		AutomatedSnapshotRetentionPeriod: jsii.Number(SnapshotRetention),
	}
	if cfg.NumberOfNodes > 1 {
		clusterProps.NumberOfNodes = stackutil.Number(cfg.NumberOfNodes)
	}
	if cfg.ClusterIdentifier != "" {
		clusterProps.ClusterIdentifier = jsii.String(cfg.ClusterIdentifier)
	}
	cluster := awsredshift.NewCfnCluster(stack, jsii.String("RedshiftCluster"), clusterProps)

	stackutil.Output(stack, "ClusterIdentifier", cluster.Ref())
	stackutil.Output(stack, "ClusterEndpoint", cluster.AttrEndpointAddress())
	stackutil.Output(stack, "ClusterPort", cluster.AttrEndpointPort())
	stackutil.Output(stack, "ClientSecurityGroupId", clientSG.SecurityGroupId())
	stackutil.Output(stack, "AdminSecretName", secret.SecretName())
	stackutil.Output(stack, "IAMRoleArn", role.RoleArn())

	return &RedshiftCfnStack{
		Stack:               stack,
		Cluster:             cluster,
		ClientSecurityGroup: clientSG,
		AdminSecret:         secret,
		Role:                role,
	}
}
