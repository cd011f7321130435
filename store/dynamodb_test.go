package store

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sicko7947/durable"
)

// inMemoryDynamoDBClient is a minimal, single-table DynamoDBClient double
// sufficient to exercise DynamoDBStore without real AWS infrastructure.
type inMemoryDynamoDBClient struct {
	items map[string]map[string]types.AttributeValue // PK|SK -> item
}

func newInMemoryDynamoDBClient() *inMemoryDynamoDBClient {
	return &inMemoryDynamoDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(pk, sk string) string { return pk + "|" + sk }

func (c *inMemoryDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	pk := params.Item[AttrPK].(*types.AttributeValueMemberS).Value
	sk := params.Item[AttrSK].(*types.AttributeValueMemberS).Value
	c.items[itemKey(pk, sk)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (c *inMemoryDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	pk := params.Key[AttrPK].(*types.AttributeValueMemberS).Value
	sk := params.Key[AttrSK].(*types.AttributeValueMemberS).Value
	item, ok := c.items[itemKey(pk, sk)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (c *inMemoryDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	pk := params.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	var prefix string
	if v, ok := params.ExpressionAttributeValues[":sk"]; ok {
		prefix = v.(*types.AttributeValueMemberS).Value
	}
	var out []map[string]types.AttributeValue
	for key, item := range c.items {
		sk := item[AttrSK].(*types.AttributeValueMemberS).Value
		itemPK := item[AttrPK].(*types.AttributeValueMemberS).Value
		_ = key
		if itemPK != pk {
			continue
		}
		if prefix != "" && len(sk) < len(prefix) || (prefix != "" && sk[:len(prefix)] != prefix) {
			continue
		}
		out = append(out, item)
	}
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func (c *inMemoryDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	pk := params.Key[AttrPK].(*types.AttributeValueMemberS).Value
	sk := params.Key[AttrSK].(*types.AttributeValueMemberS).Value
	delete(c.items, itemKey(pk, sk))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (c *inMemoryDynamoDBClient) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	for _, item := range params.TransactItems {
		if item.Put != nil {
			pk := item.Put.Item[AttrPK].(*types.AttributeValueMemberS).Value
			sk := item.Put.Item[AttrSK].(*types.AttributeValueMemberS).Value
			c.items[itemKey(pk, sk)] = item.Put.Item
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

var _ DynamoDBClient = (*inMemoryDynamoDBClient)(nil)

func TestDynamoDBStoreConformance(t *testing.T) {
	runConformanceSuite(t, func(t *testing.T) durable.Store {
		return NewDynamoDBStore(newInMemoryDynamoDBClient(), "workflows-test")
	})
}
