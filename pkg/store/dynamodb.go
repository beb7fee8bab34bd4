package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awsconf "github.com/boogy/jencoder/pkg/aws"
)

// dynamoDBAPI is the subset of the DynamoDB client used by the store
type dynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoDBStore implements Store with one item per key. The table has a
// string partition key named "Key"; enable native TTL on the "TTL" attribute.
type dynamoDBStore struct {
	client    dynamoDBAPI
	tableName string
	now       func() time.Time
}

// NewDynamoDBStore creates a DynamoDB backed store using the default AWS configuration
func NewDynamoDBStore(ctx context.Context, tableName string) (Store, error) {
	cfg, err := awsconf.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	return newDynamoDBStore(dynamodb.NewFromConfig(cfg), tableName), nil
}

func newDynamoDBStore(client dynamoDBAPI, tableName string) *dynamoDBStore {
	return &dynamoDBStore{client: client, tableName: tableName, now: time.Now}
}

func (c *dynamoDBStore) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"Key": &types.AttributeValueMemberS{Value: key},
	}
}

func (c *dynamoDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		slog.Error("Failed to get item from DynamoDB",
			"key", key,
			"error", err.Error(),
			"table", c.tableName)
		return nil, fmt.Errorf("failed to get item %s from %s: %w", key, c.tableName, err)
	}

	if result.Item == nil {
		slog.Debug("Store miss in DynamoDB", "key", key)
		return nil, ErrNotFound
	}

	valueAttr, ok := result.Item["Value"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("invalid item %s in %s: missing string Value attribute", key, c.tableName)
	}

	if int64(len(valueAttr.Value)) > Defaults.DynamoDBMaxItemSize {
		return nil, fmt.Errorf("%w: item %s in %s", ErrTooLarge, key, c.tableName)
	}

	// Native TTL deletion lags, so the expiration is checked on read too
	if expirationAttr, ok := result.Item["Expiration"].(*types.AttributeValueMemberS); ok {
		exp, err := time.Parse(time.RFC3339, expirationAttr.Value)
		if err == nil && expired(c.now(), exp) {
			slog.Debug("DynamoDB entry expired", "key", key)
			return nil, ErrNotFound
		}
	}

	slog.Debug("DynamoDB store hit", "key", key)
	return []byte(valueAttr.Value), nil
}

func (c *dynamoDBStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkSize(key, value, Defaults.DynamoDBMaxItemSize); err != nil {
		return err
	}

	now := c.now()
	item := map[string]types.AttributeValue{
		"Key":       &types.AttributeValueMemberS{Value: key},
		"Value":     &types.AttributeValueMemberS{Value: string(value)},
		"CreatedAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"Size":      &types.AttributeValueMemberN{Value: strconv.Itoa(len(value))},
	}
	if exp := expiration(now, ttl); !exp.IsZero() {
		item["Expiration"] = &types.AttributeValueMemberS{Value: exp.Format(time.RFC3339)}
		item["TTL"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(exp.Unix(), 10)}
	}

	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		slog.Error("Failed to set item in DynamoDB",
			"key", key,
			"error", err.Error(),
			"table", c.tableName)
		return fmt.Errorf("failed to put item %s in %s: %w", key, c.tableName, err)
	}

	slog.Debug("Stored value in DynamoDB", "key", key, "ttl", ttl, "size", len(value))
	return nil
}

func (c *dynamoDBStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       c.itemKey(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item %s from %s: %w", key, c.tableName, err)
	}
	return nil
}
