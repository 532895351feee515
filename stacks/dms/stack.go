// Package dms declares a DMS replication from an Aurora MySQL table to
// parquet files in S3.
package dms

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

const (
	MySQLPort         = 3306
	TargetRoleName    = "DMSTargetS3AccessRole"
	ReplicationTaskID = "DMSMySQLToS3Task"
)

// Secret keys holding the source connection attributes.
var SecretKeys = []string{"dbClusterIdentifier", "engine", "host", "username", "password"}

type DmsAuroraMysqlToS3StackProps struct {
	awscdk.StackProps
	Vpc    awsec2.IVpc
	Config Config
}

type DmsAuroraMysqlToS3Stack struct {
	awscdk.Stack
	ReplicationInstance awsdms.CfnReplicationInstance
	SourceEndpoint      awsdms.CfnEndpoint
	TargetEndpoint      awsdms.CfnEndpoint
	ReplicationTask     awsdms.CfnReplicationTask
}

// NewDmsAuroraMysqlToS3Stack declares the replication instance, endpoints and task.
func NewDmsAuroraMysqlToS3Stack(scope constructs.Construct, id string, props *DmsAuroraMysqlToS3StackProps) *DmsAuroraMysqlToS3Stack {
	stack := stackutil.NewStack(scope, id, &props.StackProps)
	cfg := props.Config
	vpc := props.Vpc

	clientSG := clientSecurityGroup(stack, vpc, cfg)

	subnetGroup := awsdms.NewCfnReplicationSubnetGroup(stack, jsii.String("DMSReplicationSubnetGroup"), &awsdms.CfnReplicationSubnetGroupProps{
		ReplicationSubnetGroupDescription: jsii.String("DMS Replication Subnet Group"),
		SubnetIds: vpc.SelectSubnets(&awsec2.SubnetSelection{
			SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
		}).SubnetIds,
	})

	instance := awsdms.NewCfnReplicationInstance(stack, jsii.String("DMSReplicationInstance"), &awsdms.CfnReplicationInstanceProps{
		ReplicationInstanceClass:         jsii.String(cfg.ReplicationInstanceClass),
		AllocatedStorage:                 stackutil.Number(cfg.AllocatedStorage),
		AllowMajorVersionUpgrade:         jsii.Bool(false),
		AutoMinorVersionUpgrade:          jsii.Bool(false),
		EngineVersion:                    jsii.String(cfg.EngineVersion),
		MultiAz:                          jsii.Bool(false),
		PreferredMaintenanceWindow:       jsii.String("sat:03:17-sat:03:47"),
		PubliclyAccessible:               jsii.Bool(false),
		ReplicationSubnetGroupIdentifier: subnetGroup.Ref(),
		VpcSecurityGroupIds:              &[]*string{clientSG.SecurityGroupId()},
	})

	// Secret values resolve as dynamic references at deploy time.
	secret := awssecretsmanager.Secret_FromSecretNameV2(stack, jsii.String("MySQLAdminUserSecret"),
		jsii.String(cfg.SourceDatabaseSecretName))
	fromSecret := func(key string) *string {
		return secret.SecretValueFromJson(jsii.String(key)).UnsafeUnwrap()
	}

	sourceEndpointID := fromSecret("dbClusterIdentifier")
	source := awsdms.NewCfnEndpoint(stack, jsii.String("DMSSourceEndpoint"), &awsdms.CfnEndpointProps{
		EndpointIdentifier: sourceEndpointID,
		EndpointType:       jsii.String("source"),
		EngineName:         fromSecret("engine"),
		ServerName:         fromSecret("host"),
		Port:               jsii.Number(MySQLPort),
		DatabaseName:       jsii.String(cfg.SourceDatabaseName),
		Username:           fromSecret("username"),
		Password:           fromSecret("password"),
	})

	role := awsiam.NewRole(stack, jsii.String("DMSTargetS3AccessRole"), &awsiam.RoleProps{
		RoleName:  jsii.String(TargetRoleName),
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("dms.amazonaws.com"), nil),
		InlinePolicies: &map[string]awsiam.PolicyDocument{
			"S3AccessRole": awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
				Statements: &[]awsiam.PolicyStatement{
					awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
						Effect:    awsiam.Effect_ALLOW,
						Resources: jsii.Strings("*"),
						Actions: jsii.Strings(
							"s3:PutObject",
							"s3:DeleteObject",
							"s3:PutObjectTagging",
							"s3:ListBucket",
						),
					}),
				},
			}),
		},
	})

	target := awsdms.NewCfnEndpoint(stack, jsii.String("DMSTargetEndpoint"), &awsdms.CfnEndpointProps{
		EndpointIdentifier: jsii.String(fmt.Sprintf("%s-to-s3", *sourceEndpointID)),
		EndpointType:       jsii.String("target"),
		EngineName:         jsii.String("s3"),
		S3Settings: &awsdms.CfnEndpoint_S3SettingsProperty{
			BucketName:                    jsii.String(cfg.TargetBucketName),
			BucketFolder:                  jsii.String(cfg.TargetBucketFolderName),
			ServiceAccessRoleArn:          role.RoleArn(),
			DataFormat:                    jsii.String("parquet"),
			ParquetTimestampInMillisecond: jsii.Bool(true),
		},
	})

	task := awsdms.NewCfnReplicationTask(stack, jsii.String("DMSReplicationTask"), &awsdms.CfnReplicationTaskProps{
		ReplicationTaskIdentifier: jsii.String(ReplicationTaskID),
		ReplicationInstanceArn:    instance.Ref(),
		MigrationType:             jsii.String(cfg.MigrationType),
		SourceEndpointArn:         source.Ref(),
		TargetEndpointArn:         target.Ref(),
		TableMappings:             jsii.String(stackutil.JSON(SelectTable(cfg.SourceDatabaseName, cfg.SourceTableName))),
		ReplicationTaskSettings: jsii.String(stackutil.JSON(TaskSettings{
			FullLoadSettings: FullLoadSettings{MaxFullLoadSubTasks: cfg.MaxFullLoadSubTasks},
		})),
	})

	stackutil.Output(stack, "DMSReplicationTaskArn", task.Ref())
	stackutil.Output(stack, "DMSReplicationTaskId", task.ReplicationTaskIdentifier())
	stackutil.Output(stack, "DMSSourceEndpointId", source.EndpointIdentifier())
	stackutil.Output(stack, "DMSTargetEndpointId", target.EndpointIdentifier())

	return &DmsAuroraMysqlToS3Stack{
		Stack:               stack,
		ReplicationInstance: instance,
		SourceEndpoint:      source,
		TargetEndpoint:      target,
		ReplicationTask:     task,
	}
}

// clientSecurityGroup imports the MySQL client group by id when one is
// given, otherwise looks it up by name in the VPC.
func clientSecurityGroup(scope constructs.Construct, vpc awsec2.IVpc, cfg Config) awsec2.ISecurityGroup {
	if cfg.ClientSecurityGroupID != "" {
		return awsec2.SecurityGroup_FromSecurityGroupId(scope, jsii.String("MySQLClientSG"),
			jsii.String(cfg.ClientSecurityGroupID), nil)
	}
	return awsec2.SecurityGroup_FromLookupByName(scope, jsii.String("MySQLClientSG"),
		jsii.String(cfg.ClientSecurityGroupName), vpc)
}
