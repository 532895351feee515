package state

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	err     error
}

func (f *fakeObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

type fakeLocks struct {
	held map[string]bool
}

func (f *fakeLocks) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	id := in.Item["LockID"].(*dbtypes.AttributeValueMemberS).Value
	if f.held[id] {
		return nil, &smithy.GenericAPIError{Code: "ConditionalCheckFailedException", Message: "conditional request failed"}
	}
	f.held[id] = true
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeLocks) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.held, in.Key["LockID"].(*dbtypes.AttributeValueMemberS).Value)
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestS3BackendRequiresBucket(t *testing.T) {
	_, err := s3BackendFromConfig(map[string]string{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestS3BackendDefaults(t *testing.T) {
	b, err := s3BackendFromConfig(map[string]string{"bucket": "my-bucket"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", b.bucket)
	assert.Equal(t, DefaultS3Key, b.key)
	assert.Empty(t, b.dynamoDBTable)
	assert.False(t, b.encrypt)
}

func TestS3BackendCustomConfig(t *testing.T) {
	b, err := s3BackendFromConfig(map[string]string{
		"bucket":         "custom-bucket",
		"key":            "custom/snapshot.json",
		"dynamodb_table": "datastacks-locks",
		"encrypt":        "true",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom/snapshot.json", b.key)
	assert.Equal(t, "datastacks-locks", b.dynamoDBTable)
	assert.True(t, b.encrypt)
	assert.Equal(t, "s3://custom-bucket/custom/snapshot.json", b.location())
}

func TestS3Backend_ReadWrite(t *testing.T) {
	b, err := s3BackendFromConfig(map[string]string{"bucket": "b", "encrypt": "true"}, nil)
	require.NoError(t, err)
	objects := &fakeObjects{}
	b.objects = objects
	ctx := context.Background()

	empty, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Serial)

	require.NoError(t, b.Write(ctx, testSnapshot()))
	require.Len(t, objects.puts, 1)
	assert.Equal(t, s3types.ServerSideEncryptionAes256, objects.puts[0].ServerSideEncryption)

	got, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Serial)
	assert.NotEmpty(t, got.Lineage)
	assert.Len(t, got.Stacks, 1)
}

func TestS3Backend_ReadError(t *testing.T) {
	b, err := s3BackendFromConfig(map[string]string{"bucket": "b"}, nil)
	require.NoError(t, err)
	b.objects = &fakeObjects{err: errors.New("boom")}

	_, err = b.Read(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://b/"+DefaultS3Key)
}

func TestS3Backend_Lock(t *testing.T) {
	b, err := s3BackendFromConfig(map[string]string{"bucket": "b", "dynamodb_table": "locks"}, nil)
	require.NoError(t, err)
	b.locks = &fakeLocks{held: map[string]bool{}}
	ctx := context.Background()

	require.NoError(t, b.Lock(ctx))
	err = b.Lock(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked by another process")
	assert.Contains(t, err.Error(), `"locks"`)

	require.NoError(t, b.Unlock(ctx))
	require.NoError(t, b.Lock(ctx))
}

func TestS3Backend_NoLockTable(t *testing.T) {
	b, err := s3BackendFromConfig(map[string]string{"bucket": "b"}, nil)
	require.NoError(t, err)
	assert.NoError(t, b.Lock(context.Background()))
	assert.NoError(t, b.Unlock(context.Background()))
}

func TestNewBackendRejectsNilConfig(t *testing.T) {
	_, err := NewBackend(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

func TestNewBackendRejectsUnknownType(t *testing.T) {
	_, err := NewBackend(context.Background(), &BackendConfig{Type: "redis"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend type")
}

func TestNewBackendLocal(t *testing.T) {
	b, err := NewBackend(context.Background(), &BackendConfig{Type: "local", Config: map[string]string{"path": "x.json"}}, nil)
	require.NoError(t, err)
	mgr, ok := b.(*Manager)
	require.True(t, ok)
	assert.Equal(t, "x.json", mgr.Path())
}
