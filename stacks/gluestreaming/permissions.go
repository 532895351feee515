package gluestreaming

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslakeformation"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/stacks/stackutil"
)

var (
	DatabasePermissions = []string{"CREATE_TABLE", "DESCRIBE", "ALTER", "DROP"}
	TablePermissions    = []string{"SELECT", "INSERT", "DELETE", "DESCRIBE", "ALTER"}
)

type DataLakePermissionsStackProps struct {
	StackProps
	Role awsiam.IRole
}

type DataLakePermissionsStack struct {
	awscdk.Stack
	DatabaseGrant awslakeformation.CfnPrincipalPermissions
	TableGrant    awslakeformation.CfnPrincipalPermissions
}

// NewDataLakePermissionsStack grants the job role Lake Formation access to
// the stream database and every table in it.
func NewDataLakePermissionsStack(scope constructs.Construct, id string, props *DataLakePermissionsStackProps) *DataLakePermissionsStack {
	stack := stackutil.NewStack(scope, id, &props.StackProps.StackProps)
	database := props.Config.KinesisTable.DatabaseName
	principal := &awslakeformation.CfnPrincipalPermissions_DataLakePrincipalProperty{
		DataLakePrincipalIdentifier: props.Role.RoleArn(),
	}

	dbGrant := awslakeformation.NewCfnPrincipalPermissions(stack, jsii.String("GlueJobDatabasePermissions"), &awslakeformation.CfnPrincipalPermissionsProps{
		Principal: principal,
		Resource: &awslakeformation.CfnPrincipalPermissions_ResourceProperty{
			Database: &awslakeformation.CfnPrincipalPermissions_DatabaseResourceProperty{
				CatalogId: stack.Account(),
				Name:      jsii.String(database),
			},
		},
		Permissions:                jsii.Strings(DatabasePermissions...),
		PermissionsWithGrantOption: &[]*string{},
	})

	tableGrant := awslakeformation.NewCfnPrincipalPermissions(stack, jsii.String("GlueJobTablePermissions"), &awslakeformation.CfnPrincipalPermissionsProps{
		Principal: principal,
		Resource: &awslakeformation.CfnPrincipalPermissions_ResourceProperty{
			Table: &awslakeformation.CfnPrincipalPermissions_TableResourceProperty{
				CatalogId:     stack.Account(),
				DatabaseName:  jsii.String(database),
				TableWildcard: map[string]interface{}{},
			},
		},
		Permissions:                jsii.Strings(TablePermissions...),
		PermissionsWithGrantOption: &[]*string{},
	})
	tableGrant.AddDependency(dbGrant)

	return &DataLakePermissionsStack{Stack: stack, DatabaseGrant: dbGrant, TableGrant: tableGrant}
}
