package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the subset of the DynamoDB API used by DynamoCatalog.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

const defaultMaxAttempts = 5

// DynamoCatalog implements Catalog on a DynamoDB table.
type DynamoCatalog struct {
	client      DDBClient
	table       string
	maxAttempts int
	now         func() time.Time
}

// NewDynamoCatalog creates a catalog on table.
func NewDynamoCatalog(client DDBClient, table string) *DynamoCatalog {
	return &DynamoCatalog{
		client:      client,
		table:       table,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

// NewDynamoCatalogFromConfig loads the default AWS configuration.
func NewDynamoCatalogFromConfig(ctx context.Context, table string) (*DynamoCatalog, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: loading AWS config: %w", err)
	}
	return NewDynamoCatalog(dynamodb.NewFromConfig(cfg), table), nil
}

// Publish writes e as version latest+1. A lost race re-reads the latest
// version and retries.
func (c *DynamoCatalog) Publish(ctx context.Context, e Entry) (Entry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = c.now().UTC()
	}

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		latest, err := c.Latest(ctx, e.DBKey)
		switch {
		case errors.Is(err, ErrNotFound):
			e.Version = 1
		case err != nil:
			return Entry{}, err
		default:
			e.Version = latest.Version + 1
		}

		_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(c.table),
			Item:                marshalEntry(e),
			ConditionExpression: aws.String("attribute_not_exists(version)"),
		})
		if err == nil {
			return e, nil
		}
		var condErr *types.ConditionalCheckFailedException
		if !errors.As(err, &condErr) {
			return Entry{}, fmt.Errorf("catalog: publishing %q: %w", e.DBKey, err)
		}
	}
	return Entry{}, ErrConcurrentModification
}

// Latest queries the highest version of dbKey.
func (c *DynamoCatalog) Latest(ctx context.Context, dbKey string) (Entry, error) {
	resp, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("db_key = :key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: dbKey},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: querying %q: %w", dbKey, err)
	}
	if len(resp.Items) == 0 {
		return Entry{}, ErrNotFound
	}
	return unmarshalEntry(resp.Items[0])
}

func marshalEntry(e Entry) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"db_key":       &types.AttributeValueMemberS{Value: e.DBKey},
		"version":      &types.AttributeValueMemberN{Value: strconv.FormatUint(e.Version, 10)},
		"uri":          &types.AttributeValueMemberS{Value: e.URI},
		"record_count": &types.AttributeValueMemberN{Value: strconv.FormatInt(e.RecordCount, 10)},
		"digest":       &types.AttributeValueMemberS{Value: e.Digest},
		"created_at":   &types.AttributeValueMemberS{Value: e.CreatedAt.Format(time.RFC3339Nano)},
	}
}

func unmarshalEntry(item map[string]types.AttributeValue) (Entry, error) {
	str := func(name string) (string, error) {
		v, ok := item[name].(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("catalog: invalid %s attribute", name)
		}
		return v.Value, nil
	}
	num := func(name string) (string, error) {
		v, ok := item[name].(*types.AttributeValueMemberN)
		if !ok {
			return "", fmt.Errorf("catalog: invalid %s attribute", name)
		}
		return v.Value, nil
	}

	var (
		e   Entry
		err error
		raw string
	)
	if e.DBKey, err = str("db_key"); err != nil {
		return Entry{}, err
	}
	if e.URI, err = str("uri"); err != nil {
		return Entry{}, err
	}
	if e.Digest, err = str("digest"); err != nil {
		return Entry{}, err
	}
	if raw, err = num("version"); err != nil {
		return Entry{}, err
	}
	if e.Version, err = strconv.ParseUint(raw, 10, 64); err != nil {
		return Entry{}, fmt.Errorf("catalog: parsing version: %w", err)
	}
	if raw, err = num("record_count"); err != nil {
		return Entry{}, err
	}
	if e.RecordCount, err = strconv.ParseInt(raw, 10, 64); err != nil {
		return Entry{}, fmt.Errorf("catalog: parsing record_count: %w", err)
	}
	if raw, err = str("created_at"); err != nil {
		return Entry{}, err
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
		return Entry{}, fmt.Errorf("catalog: parsing created_at: %w", err)
	}
	return e, nil
}
