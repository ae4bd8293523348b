package s3

import (
	"context"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simvec/simvec/blobstore"
)

// fakeDynamoDB keeps versioned items per base URI and enforces the
// attribute_not_exists(version) condition like the real service.
type fakeDynamoDB struct {
	items map[string]map[uint64]string // baseURI -> version -> snapshot
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: make(map[string]map[uint64]string)}
}

func (f *fakeDynamoDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	uri := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version, _ := strconv.ParseUint(params.Item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
	snapshot := params.Item["snapshot"].(*types.AttributeValueMemberS).Value

	if f.items[uri] == nil {
		f.items[uri] = make(map[uint64]string)
	}
	if _, exists := f.items[uri][version]; exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.items[uri][version] = snapshot
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	uri := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var latest uint64
	var snapshot string
	for version, name := range f.items[uri] {
		if version >= latest {
			latest = version
			snapshot = name
		}
	}

	out := &dynamodb.QueryOutput{}
	if latest > 0 {
		out.Items = []map[string]types.AttributeValue{{
			"base_uri": &types.AttributeValueMemberS{Value: uri},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(latest, 10)},
			"snapshot": &types.AttributeValueMemberS{Value: snapshot},
		}}
	}
	return out, nil
}

func TestSnapshotPointer(t *testing.T) {
	ctx := context.Background()
	pointer := NewSnapshotPointer(newFakeDynamoDB(), "simvec-commits", "s3://bucket/db")

	_, err := pointer.Current(ctx)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, pointer.Publish(ctx, "snapshots/0001.simvec"))

	name, err := pointer.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/0001.simvec", name)

	require.NoError(t, pointer.Publish(ctx, "snapshots/0002.simvec"))

	name, err = pointer.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/0002.simvec", name)
}

func TestSnapshotPointerConflict(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamoDB()

	a := NewSnapshotPointer(fake, "simvec-commits", "s3://bucket/db")
	b := NewSnapshotPointer(fake, "simvec-commits", "s3://bucket/db")

	// Both writers observe the same latest version; the second conditional
	// put must fail.
	require.NoError(t, a.Publish(ctx, "snapshots/a.simvec"))

	fake.items["s3://bucket/db"][2] = "snapshots/raced.simvec"
	err := b.Publish(ctx, "snapshots/b.simvec")
	assert.ErrorIs(t, err, ErrConcurrentPublish)
}

func TestSnapshotPointerIsolatesBaseURIs(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamoDB()

	a := NewSnapshotPointer(fake, "simvec-commits", "s3://bucket/db-a")
	b := NewSnapshotPointer(fake, "simvec-commits", "s3://bucket/db-b")

	require.NoError(t, a.Publish(ctx, "snapshots/a.simvec"))

	_, err := b.Current(ctx)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
