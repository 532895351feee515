package state

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/picklr-io/datastacks/internal/awsapi"
	"github.com/picklr-io/datastacks/internal/ir"
	"github.com/picklr-io/datastacks/internal/logging"
)

const DefaultS3Key = "datastacks/snapshot.json"

type objectStore interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type lockTable interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// s3Backend stores the snapshot in S3 with optional DynamoDB locking.
type s3Backend struct {
	bucket        string
	key           string
	dynamoDBTable string
	encrypt       bool

	cipher *Cipher
	now    func() time.Time

	objects objectStore
	locks   lockTable
}

func newS3Backend(ctx context.Context, config map[string]string, cipher *Cipher) (*s3Backend, error) {
	b, err := s3BackendFromConfig(config, cipher)
	if err != nil {
		return nil, err
	}

	region := config["region"]
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsapi.LoadConfig(ctx, region, config["profile"])
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 backend: %w", err)
	}
	b.objects = s3.NewFromConfig(cfg)
	if b.dynamoDBTable != "" {
		b.locks = dynamodb.NewFromConfig(cfg)
	}
	return b, nil
}

func s3BackendFromConfig(config map[string]string, cipher *Cipher) (*s3Backend, error) {
	bucket := config["bucket"]
	if bucket == "" {
		return nil, fmt.Errorf("s3 backend requires 'bucket' configuration")
	}
	key := config["key"]
	if key == "" {
		key = DefaultS3Key
	}
	return &s3Backend{
		bucket:        bucket,
		key:           key,
		dynamoDBTable: config["dynamodb_table"],
		encrypt:       config["encrypt"] == "true",
		cipher:        cipher,
		now:           time.Now,
	}, nil
}

func (b *s3Backend) location() string {
	return fmt.Sprintf("s3://%s/%s", b.bucket, b.key)
}

func (b *s3Backend) Read(ctx context.Context) (*ir.Snapshot, error) {
	result, err := b.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil {
		if awsapi.IsNotFound(err) {
			return emptySnapshot(), nil
		}
		return nil, fmt.Errorf("failed to read snapshot from %s: %w", b.location(), err)
	}
	defer result.Body.Close()

	raw, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	snap, err := decode(raw, b.cipher)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot from %s: %w", b.location(), err)
	}
	return snap, nil
}

func (b *s3Backend) Write(ctx context.Context, snap *ir.Snapshot) error {
	content, err := encode(snap, b.cipher, b.now)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/json"),
	}
	if b.encrypt {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}
	if _, err := b.objects.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to write snapshot to %s: %w", b.location(), err)
	}

	logging.Debug("snapshot written", "location", b.location(), "serial", snap.Serial)
	return nil
}

func (b *s3Backend) Lock(ctx context.Context) error {
	if b.locks == nil {
		return nil
	}

	_, err := b.locks.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.dynamoDBTable),
		Item: map[string]dbtypes.AttributeValue{
			"LockID":  &dbtypes.AttributeValueMemberS{Value: b.key},
			"Info":    &dbtypes.AttributeValueMemberS{Value: fmt.Sprintf("datastacks-%d-%d", os.Getpid(), b.now().UnixNano())},
			"Created": &dbtypes.AttributeValueMemberS{Value: b.now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(LockID)"),
	})
	if err != nil {
		if awsapi.ErrorCode(err) == "ConditionalCheckFailedException" {
			return fmt.Errorf("snapshot is locked by another process. If this is an error, "+
				"manually delete the lock item with LockID=%q from DynamoDB table %q", b.key, b.dynamoDBTable)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	return nil
}

func (b *s3Backend) Unlock(ctx context.Context) error {
	if b.locks == nil {
		return nil
	}

	_, err := b.locks.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(b.dynamoDBTable),
		Key: map[string]dbtypes.AttributeValue{
			"LockID": &dbtypes.AttributeValueMemberS{Value: b.key},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
