package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kafka"
	kafkatypes "github.com/aws/aws-sdk-go-v2/service/kafka/types"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/picklr-io/datastacks/internal/awsapi"
)

// ErrNotFound marks a prerequisite that does not exist.
var ErrNotFound = errors.New("not found")

// ErrExists marks a name the app would create that is already taken.
var ErrExists = errors.New("already exists")

// CallerIdentity verifies that credentials resolve.
func CallerIdentity() Check {
	return Check{
		Name: "caller identity",
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.CallerIdentity(ctx)
			return err
		},
	}
}

// VpcByName expects exactly one VPC tagged Name=name. An empty name checks
// the default VPC.
func VpcByName(name string) Check {
	label := "default VPC"
	filter := ec2types.Filter{Name: aws.String("is-default"), Values: []string{"true"}}
	if name != "" {
		label = fmt.Sprintf("VPC %q", name)
		filter = ec2types.Filter{Name: aws.String("tag:Name"), Values: []string{name}}
	}
	return Check{
		Name: label,
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			out, err := c.EC2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{Filters: []ec2types.Filter{filter}})
			if err != nil {
				return fmt.Errorf("describe vpcs: %w", err)
			}
			switch len(out.Vpcs) {
			case 0:
				return fmt.Errorf("%s: %w", label, ErrNotFound)
			case 1:
				return nil
			default:
				return fmt.Errorf("%s is ambiguous: %d VPCs match", label, len(out.Vpcs))
			}
		},
	}
}

// SecurityGroupByName expects a security group with the given group name.
func SecurityGroupByName(name string) Check {
	return Check{
		Name: fmt.Sprintf("security group %q", name),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			out, err := c.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
				Filters: []ec2types.Filter{{Name: aws.String("group-name"), Values: []string{name}}},
			})
			if err != nil {
				return fmt.Errorf("describe security groups: %w", err)
			}
			if len(out.SecurityGroups) == 0 {
				return fmt.Errorf("security group %s: %w", name, ErrNotFound)
			}
			return nil
		},
	}
}

// SecurityGroupByID expects the security group to exist.
func SecurityGroupByID(id string) Check {
	return Check{
		Name: fmt.Sprintf("security group %s", id),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			out, err := c.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{GroupIds: []string{id}})
			if err != nil {
				if awsapi.IsNotFound(err) {
					return fmt.Errorf("security group %s: %w", id, ErrNotFound)
				}
				return fmt.Errorf("describe security groups: %w", err)
			}
			if len(out.SecurityGroups) == 0 {
				return fmt.Errorf("security group %s: %w", id, ErrNotFound)
			}
			return nil
		},
	}
}

// BucketExists expects the bucket to exist and be readable.
func BucketExists(bucket string) Check {
	return Check{
		Name: fmt.Sprintf("s3 bucket %s", bucket),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.S3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
			return classify(err, "s3 bucket "+bucket, true)
		},
	}
}

// BucketAbsent expects the bucket name to be free. Bucket names are
// global, so a 403 also means taken.
func BucketAbsent(bucket string) Check {
	return Check{
		Name: fmt.Sprintf("s3 bucket %s is free", bucket),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.S3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
			if err != nil && awsapi.ErrorCode(err) == "Forbidden" {
				return fmt.Errorf("s3 bucket %s: %w", bucket, ErrExists)
			}
			return classify(err, "s3 bucket "+bucket, false)
		},
	}
}

// ObjectExists expects the object to exist.
func ObjectExists(bucket, key string) Check {
	uri := fmt.Sprintf("s3://%s/%s", bucket, key)
	return Check{
		Name: uri,
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.S3.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
			return classify(err, uri, true)
		},
	}
}

// SecretHasKeys expects a JSON secret holding every key.
func SecretHasKeys(name string, keys ...string) Check {
	return Check{
		Name: fmt.Sprintf("secret %s", name),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			out, err := c.SecretsManager.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
			if err != nil {
				return classify(err, "secret "+name, true)
			}
			var fields map[string]any
			if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &fields); err != nil {
				return fmt.Errorf("secret %s is not a JSON object: %w", name, err)
			}
			var missing []string
			for _, k := range keys {
				if _, ok := fields[k]; !ok {
					missing = append(missing, k)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("secret %s is missing keys: %s", name, strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

// MskBootstrapServers expects every host:port of servers to be a broker of
// one MSK cluster in the account.
func MskBootstrapServers(servers string) Check {
	return Check{
		Name: fmt.Sprintf("msk brokers %s", servers),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			wanted := splitServers(servers)
			if len(wanted) == 0 {
				return fmt.Errorf("no bootstrap servers given")
			}

			p := kafka.NewListClustersV2Paginator(c.Kafka, &kafka.ListClustersV2Input{})
			clusters, err := awsapi.CollectPages(ctx, p.HasMorePages,
				func(ctx context.Context) (*kafka.ListClustersV2Output, error) { return p.NextPage(ctx) },
				func(out *kafka.ListClustersV2Output) []kafkatypes.Cluster { return out.ClusterInfoList },
			)
			if err != nil {
				return fmt.Errorf("list msk clusters: %w", err)
			}

			for _, cluster := range clusters {
				out, err := c.Kafka.GetBootstrapBrokers(ctx, &kafka.GetBootstrapBrokersInput{ClusterArn: cluster.ClusterArn})
				if err != nil {
					return fmt.Errorf("get bootstrap brokers of %s: %w", aws.ToString(cluster.ClusterName), err)
				}
				if containsAll(brokerSet(out), wanted) {
					return nil
				}
			}
			return fmt.Errorf("msk cluster with brokers %s: %w", servers, ErrNotFound)
		},
	}
}

// GlueDatabaseAbsent expects the database name to be free.
func GlueDatabaseAbsent(name string) Check {
	return Check{
		Name: fmt.Sprintf("glue database %s is free", name),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.Glue.GetDatabase(ctx, &glue.GetDatabaseInput{Name: aws.String(name)})
			return classify(err, "glue database "+name, false)
		},
	}
}

// GlueConnectionAbsent expects no Glue connection with the name.
func GlueConnectionAbsent(name string) Check {
	return Check{
		Name: fmt.Sprintf("glue connection %s is free", name),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.Glue.GetConnection(ctx, &glue.GetConnectionInput{Name: aws.String(name)})
			return classify(err, "glue connection "+name, false)
		},
	}
}

// KinesisStream checks presence (want true) or absence of a stream.
func KinesisStream(name string, want bool) Check {
	label := fmt.Sprintf("kinesis stream %s", name)
	if !want {
		label += " is free"
	}
	return Check{
		Name: label,
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.Kinesis.DescribeStreamSummary(ctx, &kinesis.DescribeStreamSummaryInput{StreamName: aws.String(name)})
			return classify(err, "kinesis stream "+name, want)
		},
	}
}

// RDSClusterAbsent expects the cluster identifier to be free.
func RDSClusterAbsent(identifier string) Check {
	return Check{
		Name: fmt.Sprintf("rds cluster %s is free", identifier),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.RDS.DescribeDBClusters(ctx, &rds.DescribeDBClustersInput{DBClusterIdentifier: aws.String(identifier)})
			return classify(err, "rds cluster "+identifier, false)
		},
	}
}

// RedshiftClusterAbsent expects the cluster identifier to be free.
func RedshiftClusterAbsent(identifier string) Check {
	return Check{
		Name: fmt.Sprintf("redshift cluster %s is free", identifier),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.Redshift.DescribeClusters(ctx, &redshift.DescribeClustersInput{ClusterIdentifier: aws.String(identifier)})
			return classify(err, "redshift cluster "+identifier, false)
		},
	}
}

// RoleAbsent expects no IAM role with the name.
func RoleAbsent(name string) Check {
	return Check{
		Name: fmt.Sprintf("iam role %s is free", name),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.IAM.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
			return classify(err, "iam role "+name, false)
		},
	}
}

// FunctionAbsent expects no Lambda function with the name.
func FunctionAbsent(name string) Check {
	return Check{
		Name: fmt.Sprintf("lambda function %s is free", name),
		Run: func(ctx context.Context, c *awsapi.Clients) error {
			_, err := c.Lambda.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(name)})
			return classify(err, "lambda function "+name, false)
		},
	}
}

// classify maps a describe call result to a check outcome, given whether
// the resource should exist.
func classify(err error, what string, wantExists bool) error {
	switch {
	case err == nil && wantExists:
		return nil
	case err == nil:
		return fmt.Errorf("%s: %w", what, ErrExists)
	case awsapi.IsNotFound(err) && wantExists:
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case awsapi.IsNotFound(err):
		return nil
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func splitServers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func brokerSet(out *kafka.GetBootstrapBrokersOutput) []string {
	var all []string
	for _, s := range []*string{
		out.BootstrapBrokerString,
		out.BootstrapBrokerStringTls,
		out.BootstrapBrokerStringSaslIam,
		out.BootstrapBrokerStringSaslScram,
	} {
		all = append(all, splitServers(aws.ToString(s))...)
	}
	return all
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}
