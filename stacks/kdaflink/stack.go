// Package kdaflink declares a Managed Service for Apache Flink application
// that replicates a topic between two MSK clusters.
package kdaflink

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskinesisanalytics"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
	"github.com/picklr-io/datastacks/stacks/vpc"
)

const (
	PropertyGroupID = "FlinkApplicationProperties"
	LogStreamName   = "kinesis-analytics-log-stream"
)

type KDAFlinkMskReplicationStackProps struct {
	awscdk.StackProps
	Config Config
}

type KDAFlinkMskReplicationStack struct {
	awscdk.Stack
	Application awskinesisanalytics.CfnApplicationV2
	LogGroup    awslogs.LogGroup
	Role        awsiam.Role
}

// NewKDAFlinkMskReplicationStack declares the Flink application and its role.
func NewKDAFlinkMskReplicationStack(scope constructs.Construct, id string, props *KDAFlinkMskReplicationStackProps) *KDAFlinkMskReplicationStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps)
	cfg := props.Config
	network := vpc.Resolve(stack, "VPC", cfg.Vpc)

	sg := securityGroup(stack, network, cfg)

	logGroupName := fmt.Sprintf("/aws/kinesis-analytics/%s", cfg.ApplicationName)
	logGroup := awslogs.NewLogGroup(stack, jsii.String("KDAFlinkLogGroup"), &awslogs.LogGroupProps{
		LogGroupName:  jsii.String(logGroupName),
		Retention:     awslogs.RetentionDays_THREE_DAYS,
		RemovalPolicy: awscdk.RemovalPolicy_DESTROY,
	})
	awslogs.NewLogStream(stack, jsii.String("KDAFlinkLogStream"), &awslogs.LogStreamProps{
		LogGroup:      logGroup,
		LogStreamName: jsii.String(LogStreamName),
		RemovalPolicy: awscdk.RemovalPolicy_DESTROY,
	})

	codeBucket := awss3.Bucket_FromBucketName(stack, jsii.String("KDAFlinkCodeBucket"), jsii.String(cfg.CodeBucketName))
	role := executionRole(stack, codeBucket, logGroup)

	subnetIDs := network.SelectSubnets(&awsec2.SubnetSelection{
		SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
	}).SubnetIds

	application := awskinesisanalytics.NewCfnApplicationV2(stack, jsii.String("KDAFlinkApplication"), &awskinesisanalytics.CfnApplicationV2Props{
		ApplicationName:      jsii.String(cfg.ApplicationName),
		RuntimeEnvironment:   jsii.String(cfg.RuntimeEnvironment),
		ServiceExecutionRole: role.RoleArn(),
		ApplicationConfiguration: &awskinesisanalytics.CfnApplicationV2_ApplicationConfigurationProperty{
			ApplicationCodeConfiguration: &awskinesisanalytics.CfnApplicationV2_ApplicationCodeConfigurationProperty{
				CodeContent: &awskinesisanalytics.CfnApplicationV2_CodeContentProperty{
					S3ContentLocation: &awskinesisanalytics.CfnApplicationV2_S3ContentLocationProperty{
						BucketArn: codeBucket.BucketArn(),
						FileKey:   jsii.String(cfg.CodeFileKey),
					},
				},
				CodeContentType: jsii.String("ZIPFILE"),
			},
			ApplicationSnapshotConfiguration: &awskinesisanalytics.CfnApplicationV2_ApplicationSnapshotConfigurationProperty{
				SnapshotsEnabled: jsii.Bool(false),
			},
			EnvironmentProperties: &awskinesisanalytics.CfnApplicationV2_EnvironmentPropertiesProperty{
				PropertyGroups: &[]interface{}{
					&awskinesisanalytics.CfnApplicationV2_PropertyGroupProperty{
						PropertyGroupId: jsii.String(PropertyGroupID),
						PropertyMap:     stackutil.StringMap(cfg.PropertyMap()),
					},
				},
			},
			FlinkApplicationConfiguration: &awskinesisanalytics.CfnApplicationV2_FlinkApplicationConfigurationProperty{
				CheckpointConfiguration: &awskinesisanalytics.CfnApplicationV2_CheckpointConfigurationProperty{
					ConfigurationType: jsii.String("DEFAULT"),
				},
				MonitoringConfiguration: &awskinesisanalytics.CfnApplicationV2_MonitoringConfigurationProperty{
					ConfigurationType: jsii.String("CUSTOM"),
					LogLevel:          jsii.String("INFO"),
					MetricsLevel:      jsii.String("APPLICATION"),
				},
				ParallelismConfiguration: &awskinesisanalytics.CfnApplicationV2_ParallelismConfigurationProperty{
					ConfigurationType:  jsii.String("CUSTOM"),
					AutoScalingEnabled: jsii.Bool(true),
					Parallelism:        stackutil.Number(cfg.Parallelism),
					ParallelismPerKpu:  stackutil.Number(cfg.ParallelismPerKPU),
				},
			},
			VpcConfigurations: &[]interface{}{
				&awskinesisanalytics.CfnApplicationV2_VpcConfigurationProperty{
					SecurityGroupIds: &[]*string{sg.SecurityGroupId()},
					SubnetIds:        subnetIDs,
				},
			},
		},
	})

	awskinesisanalytics.NewCfnApplicationCloudWatchLoggingOptionV2(stack, jsii.String("KDAFlinkLoggingOption"), &awskinesisanalytics.CfnApplicationCloudWatchLoggingOptionV2Props{
		ApplicationName: application.Ref(),
		CloudWatchLoggingOption: &awskinesisanalytics.CfnApplicationCloudWatchLoggingOptionV2_CloudWatchLoggingOptionProperty{
			LogStreamArn: stack.FormatArn(&awscdk.ArnComponents{
				Service:      jsii.String("logs"),
				Resource:     jsii.String("log-group"),
				ResourceName: jsii.String(fmt.Sprintf("%s:log-stream:%s", logGroupName, LogStreamName)),
				ArnFormat:    awscdk.ArnFormat_COLON_RESOURCE_NAME,
			}),
		},
	})

	stackutil.Output(stack, "KDAAppName", application.Ref())
	stackutil.Output(stack, "KDALogGroupName", logGroup.LogGroupName())

	return &KDAFlinkMskReplicationStack{
		Stack:       stack,
		Application: application,
		LogGroup:    logGroup,
		Role:        role,
	}
}

// securityGroup imports the MSK client group when configured; otherwise it
// creates one that can reach itself, so brokers sharing it accept traffic.
func securityGroup(scope constructs.Construct, network awsec2.IVpc, cfg Config) awsec2.ISecurityGroup {
	if cfg.ClientSecurityGroupID != "" {
		return awsec2.SecurityGroup_FromSecurityGroupId(scope, jsii.String("KDAFlinkSG"),
			jsii.String(cfg.ClientSecurityGroupID), nil)
	}
	sg := awsec2.NewSecurityGroup(scope, jsii.String("KDAFlinkSG"), &awsec2.SecurityGroupProps{
		Vpc:              network,
		AllowAllOutbound: jsii.Bool(true),
		Description:      jsii.String("security group for kda flink application"),
	})
	sg.AddIngressRule(sg, awsec2.Port_AllTcp(), jsii.String("kda-flink-sg"), nil)
	stackutil.Tag(sg, "Name", "kda-flink-sg")
	return sg
}

func executionRole(stack awscdk.Stack, codeBucket awss3.IBucket, logGroup awslogs.LogGroup) awsiam.Role {
	kafkaArn := func(resource string) *string {
		return stack.FormatArn(&awscdk.ArnComponents{
			Service:      jsii.String("kafka"),
			Resource:     jsii.String(resource),
			ResourceName: jsii.String("*/*"),
			ArnFormat:    awscdk.ArnFormat_SLASH_RESOURCE_NAME,
		})
	}

	statements := []awsiam.PolicyStatement{
		awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Sid:     jsii.String("ReadCode"),
			Effect:  awsiam.Effect_ALLOW,
			Actions: jsii.Strings("s3:GetObject", "s3:GetObjectVersion"),
			Resources: &[]*string{
				codeBucket.ArnForObjects(jsii.String("*")),
			},
		}),
		awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Sid:    jsii.String("KafkaDataPlane"),
			Effect: awsiam.Effect_ALLOW,
			Actions: jsii.Strings(
				"kafka-cluster:Connect",
				"kafka-cluster:DescribeCluster",
				"kafka-cluster:DescribeTopic",
				"kafka-cluster:CreateTopic",
				"kafka-cluster:ReadData",
				"kafka-cluster:WriteData",
				"kafka-cluster:DescribeGroup",
				"kafka-cluster:AlterGroup",
			),
			Resources: &[]*string{kafkaArn("cluster"), kafkaArn("topic"), kafkaArn("group")},
		}),
		awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Sid:    jsii.String("VPCReadOnlyPermissions"),
			Effect: awsiam.Effect_ALLOW,
			Actions: jsii.Strings(
				"ec2:DescribeVpcs",
				"ec2:DescribeSubnets",
				"ec2:DescribeSecurityGroups",
				"ec2:DescribeDhcpOptions",
			),
			Resources: jsii.Strings("*"),
		}),
		awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Sid:    jsii.String("ENIReadWritePermissions"),
			Effect: awsiam.Effect_ALLOW,
			Actions: jsii.Strings(
				"ec2:CreateNetworkInterface",
				"ec2:CreateNetworkInterfacePermission",
				"ec2:DescribeNetworkInterfaces",
				"ec2:DeleteNetworkInterface",
			),
			Resources: jsii.Strings("*"),
		}),
		awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Sid:       jsii.String("CloudWatchLogs"),
			Effect:    awsiam.Effect_ALLOW,
			Actions:   jsii.Strings("logs:DescribeLogGroups", "logs:DescribeLogStreams", "logs:PutLogEvents"),
			Resources: &[]*string{logGroup.LogGroupArn()},
		}),
	}

	return awsiam.NewRole(stack, jsii.String("KDAFlinkServiceRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("kinesisanalytics.amazonaws.com"), nil),
		InlinePolicies: &map[string]awsiam.PolicyDocument{
			"kda-flink-msk-replication": awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
				Statements: &statements,
			}),
		},
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("CloudWatchFullAccess")),
		},
	})
}
