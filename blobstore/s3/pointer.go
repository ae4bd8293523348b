package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/simvec/simvec/blobstore"
)

// ErrConcurrentPublish is returned when another writer published a snapshot
// pointer at the same version.
var ErrConcurrentPublish = errors.New("s3: concurrent snapshot publish detected")

// DynamoDBClient is the subset of the DynamoDB API the pointer uses.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// SnapshotPointer tracks which snapshot blob is current for a database.
//
// S3 has no compare-and-swap, so overwriting a "CURRENT" object from two
// writers can silently lose a publish. The pointer instead appends versioned
// items to a DynamoDB table with a conditional write; the item with the
// highest version wins and conflicting publishes fail with
// ErrConcurrentPublish.
//
// Table schema: partition key base_uri (S), sort key version (N).
type SnapshotPointer struct {
	client    DynamoDBClient
	tableName string
	baseURI   string
}

// NewSnapshotPointer creates a pointer for the database identified by
// baseURI, typically "s3://bucket/prefix".
func NewSnapshotPointer(client DynamoDBClient, tableName, baseURI string) *SnapshotPointer {
	return &SnapshotPointer{
		client:    client,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Current returns the blob name of the latest published snapshot. It returns
// blobstore.ErrNotFound when nothing has been published yet.
func (p *SnapshotPointer) Current(ctx context.Context) (string, error) {
	_, name, err := p.latest(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", blobstore.ErrNotFound
	}
	return name, nil
}

// Publish records name as the current snapshot. The conditional write
// guarantees that exactly one of two racing publishers succeeds.
func (p *SnapshotPointer) Publish(ctx context.Context, name string) error {
	version, _, err := p.latest(ctx)
	if err != nil {
		return err
	}

	_, err = p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: p.baseURI},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(version+1, 10)},
			"snapshot": &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentPublish
		}
		return fmt.Errorf("s3: publish snapshot pointer: %w", err)
	}

	return nil
}

func (p *SnapshotPointer) latest(ctx context.Context) (uint64, string, error) {
	resp, err := p.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(p.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: p.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query snapshot pointer: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: snapshot pointer item missing version")
	}
	nameAttr, ok := item["snapshot"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: snapshot pointer item missing snapshot name")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("s3: parse snapshot pointer version: %w", err)
	}

	return version, nameAttr.Value, nil
}
