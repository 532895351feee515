// Package rdsproxy declares an Aurora MySQL cluster fronted by an RDS Proxy
// with a read-only endpoint.
package rdsproxy

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsrds"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

const MySQLPort = 3306

// ClusterParameters are applied to the cluster parameter group.
var ClusterParameters = map[string]string{
	"slow_query_log":                 "1",
	"wait_timeout":                   "300",
	"character-set-client-handshake": "0",
	"character_set_server":           "utf8mb4",
	"collation_server":               "utf8mb4_unicode_ci",
	"init_connect":                   "SET NAMES utf8mb4 COLLATE utf8mb4_unicode_ci",
}

// InstanceParameters are applied to the parameter group of every instance.
var InstanceParameters = map[string]string{
	"slow_query_log": "1",
	"wait_timeout":   "300",
	"init_connect":   "SET NAMES utf8mb4 COLLATE utf8mb4_unicode_ci",
}

type RdsProxyAuroraMysqlStackProps struct {
	awscdk.StackProps
	Vpc    awsec2.IVpc
	Config Config
}

type RdsProxyAuroraMysqlStack struct {
	awscdk.Stack
	ClientSecurityGroup awsec2.SecurityGroup
	Cluster             awsrds.DatabaseCluster
	Proxy               awsrds.DatabaseProxy
	ReadOnlyEndpoint    awsrds.CfnDBProxyEndpoint
}

// NewRdsProxyAuroraMysqlStack declares the Aurora cluster and its proxy.
func NewRdsProxyAuroraMysqlStack(scope constructs.Construct, id string, props *RdsProxyAuroraMysqlStackProps) *RdsProxyAuroraMysqlStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps)
	cfg := props.Config
	vpc := props.Vpc
	name := cfg.ClusterName

	clientSG := newSecurityGroup(stack, vpc, "MySQLClientSG", "mysql client", "mysql-client-sg-"+name, "mysql-client-sg")

	serverSG := newSecurityGroup(stack, vpc, "MySQLServerSG", "mysql", "mysql-server-sg-"+name, "mysql-server-sg")
	serverSG.AddIngressRule(clientSG, awsec2.Port_Tcp(jsii.Number(MySQLPort)), jsii.String("mysql-client-sg"), nil)
	serverSG.AddIngressRule(serverSG, awsec2.Port_AllTcp(), jsii.String("mysql-server-sg"), nil)

	privateSubnets := &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS}
	publicSubnets := &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PUBLIC}

	subnetGroup := awsrds.NewSubnetGroup(stack, jsii.String("RdsSubnetGroup"), &awsrds.SubnetGroupProps{
		Description:     jsii.String("subnet group for mysql"),
		SubnetGroupName: jsii.String("aurora-mysql-sbunet-" + name),
		Vpc:             vpc,
		VpcSubnets:      privateSubnets,
	})

	// Validate has already checked the version format.
	major, _ := majorVersion(cfg.AuroraMysqlVersion)
	engine := awsrds.DatabaseClusterEngine_AuroraMysql(&awsrds.AuroraMysqlClusterEngineProps{
		Version: awsrds.AuroraMysqlEngineVersion_Of(jsii.String(cfg.AuroraMysqlVersion), jsii.String(major)),
	})

	clusterParams := awsrds.NewParameterGroup(stack, jsii.String("AuroraMySQLClusterParamGroup"), &awsrds.ParameterGroupProps{
		Engine:      engine,
		Description: jsii.String("Custom cluster parameter group for aurora-mysql8.x"),
		Parameters:  stackutil.StringMap(ClusterParameters),
	})
	instanceParams := awsrds.NewParameterGroup(stack, jsii.String("AuroraMySQLDBParamGroup"), &awsrds.ParameterGroupProps{
		Engine:      engine,
		Description: jsii.String("Custom parameter group for aurora-mysql8.x"),
		Parameters:  stackutil.StringMap(InstanceParameters),
	})

	// A plain secret, because the generated password excludes punctuation.
	secret := awssecretsmanager.NewSecret(stack, jsii.String("DatabaseSecret"), &awssecretsmanager.SecretProps{
		GenerateSecretString: &awssecretsmanager.SecretStringGenerator{
			SecretStringTemplate: jsii.String(stackutil.JSON(map[string]string{"username": "admin"})),
			GenerateStringKey:    jsii.String("password"),
			ExcludePunctuation:   jsii.Bool(true),
			PasswordLength:       jsii.Number(8),
		},
	})

	instance := func(id string) awsrds.IClusterInstance {
		return awsrds.ClusterInstance_Provisioned(jsii.String(id), &awsrds.ProvisionedClusterInstanceProps{
			InstanceType:            awsec2.NewInstanceType(jsii.String(cfg.InstanceType)),
			ParameterGroup:          instanceParams,
			AutoMinorVersionUpgrade: jsii.Bool(false),
		})
	}

	cluster := awsrds.NewDatabaseCluster(stack, jsii.String("Database"), &awsrds.DatabaseClusterProps{
		Engine:                  engine,
		Credentials:             awsrds.Credentials_FromSecret(secret, nil),
		Writer:                  instance("writer"),
		Readers:                 &[]awsrds.IClusterInstance{instance("reader")},
		ParameterGroup:          clusterParams,
		CloudwatchLogsRetention: awslogs.RetentionDays_THREE_DAYS,
		ClusterIdentifier:       jsii.String(name),
		SubnetGroup:             subnetGroup,
		Backup: &awsrds.BackupProps{
			Retention:       awscdk.Duration_Days(jsii.Number(3)),
			PreferredWindow: jsii.String("03:00-04:00"),
		},
		SecurityGroups: &[]awsec2.ISecurityGroup{serverSG},
		Vpc:            vpc,
		VpcSubnets:     privateSubnets,
	})

	proxySG := newSecurityGroup(stack, vpc, "MySQLPublicProxySG", "mysql public proxy", "mysql-public-proxy-sg-"+name, "mysql-public-proxy-sg")
	proxySG.AddIngressRule(awsec2.Peer_AnyIpv4(), awsec2.Port_Tcp(jsii.Number(MySQLPort)), jsii.String("mysql public proxy"), nil)

	proxyName := name + "-proxy"
	proxy := awsrds.NewDatabaseProxy(stack, jsii.String("DBProxy"), &awsrds.DatabaseProxyProps{
		ProxyTarget:               awsrds.ProxyTarget_FromCluster(cluster),
		Secrets:                   &[]awssecretsmanager.ISecret{cluster.Secret()},
		Vpc:                       vpc,
		DbProxyName:               jsii.String(proxyName),
		IdleClientTimeout:         awscdk.Duration_Minutes(jsii.Number(10)),
		MaxConnectionsPercent:     jsii.Number(90),
		MaxIdleConnectionsPercent: jsii.Number(10),
		RequireTLS:                jsii.Bool(false),
		SecurityGroups:            &[]awsec2.ISecurityGroup{clientSG, proxySG},
		VpcSubnets:                publicSubnets,
	})
	proxy.Node().AddDependency(cluster)

	readOnly := awsrds.NewCfnDBProxyEndpoint(stack, jsii.String("RDSProxyReadOnlyEndpoint"), &awsrds.CfnDBProxyEndpointProps{
		DbProxyEndpointName: jsii.String(proxyName + "-readonly"),
		DbProxyName:         jsii.String(proxyName),
		VpcSubnetIds:        vpc.SelectSubnets(publicSubnets).SubnetIds,
		TargetRole:          jsii.String("READ_ONLY"),
		VpcSecurityGroupIds: &[]*string{clientSG.SecurityGroupId(), proxySG.SecurityGroupId()},
	})
	readOnly.Node().AddDependency(proxy)

	stackutil.Output(stack, "DBProxyName", proxy.DbProxyName())
	stackutil.Output(stack, "DBProxyEndpoint", proxy.Endpoint())
	stackutil.Output(stack, "DBProxyReadOnlyEndpoint", readOnly.AttrEndpoint())
	stackutil.Output(stack, "DBClusterEndpoint", cluster.ClusterEndpoint().SocketAddress())
	stackutil.Output(stack, "DBClusterReadEndpoint", cluster.ClusterReadEndpoint().SocketAddress())
	stackutil.Output(stack, "RDSClientSecurityGroupId", clientSG.SecurityGroupId())
	stackutil.Output(stack, "DBSecretName", cluster.Secret().SecretName())

	return &RdsProxyAuroraMysqlStack{
		Stack:               stack,
		ClientSecurityGroup: clientSG,
		Cluster:             cluster,
		Proxy:               proxy,
		ReadOnlyEndpoint:    readOnly,
	}
}

func newSecurityGroup(scope constructs.Construct, vpc awsec2.IVpc, id, purpose, groupName, nameTag string) awsec2.SecurityGroup {
	sg := awsec2.NewSecurityGroup(scope, jsii.String(id), &awsec2.SecurityGroupProps{
		Vpc:               vpc,
		AllowAllOutbound:  jsii.Bool(true),
		Description:       jsii.String(fmt.Sprintf("security group for %s", purpose)),
		SecurityGroupName: jsii.String(groupName),
	})
	stackutil.Tag(sg, "Name", nameTag)
	return sg
}
