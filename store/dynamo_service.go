package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Item is a raw DynamoDB row.
type Item = map[string]types.AttributeValue

// Update is one UpdateItem call against a single key.
type Update struct {
	Expression string
	Condition  string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// DynamoService wraps the table level calls used by DynamoStore.
type DynamoService struct {
	Client DynamoAPI
	Table  string
}

// Key builds the primary key of a row.
func Key(pk, sk string) Item {
	return Item{
		"pk": &types.AttributeValueMemberS{Value: pk},
		"sk": &types.AttributeValueMemberS{Value: sk},
	}
}

// PutItem marshals item and writes it, optionally under a condition.
func (ds *DynamoService) PutItem(ctx context.Context, item any, condition string) error {
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(ds.Table),
		Item:      marshaled,
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
	}

	if _, err := ds.Client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put item in table '%s': %w", ds.Table, Classify(err))
	}
	return nil
}

// GetItem reads one row. A missing row returns ErrNotFound.
func (ds *DynamoService) GetItem(ctx context.Context, key Item) (Item, error) {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(ds.Table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", ds.Table, Classify(err))
	}
	if output.Item == nil {
		return nil, ErrNotFound
	}
	return output.Item, nil
}

// UpdateItem applies u to key and returns the new row.
func (ds *DynamoService) UpdateItem(ctx context.Context, key Item, u Update) (Item, error) {
	if len(key) == 0 {
		return nil, errors.New("update failed: key cannot be empty")
	}
	if u.Expression == "" {
		return nil, errors.New("update failed: updateExpression cannot be empty")
	}

	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(ds.Table),
		Key:              key,
		UpdateExpression: aws.String(u.Expression),
		ReturnValues:     types.ReturnValueAllNew,
	}
	if len(u.Names) > 0 {
		input.ExpressionAttributeNames = u.Names
	}
	if len(u.Values) > 0 {
		input.ExpressionAttributeValues = u.Values
	}
	if u.Condition != "" {
		input.ConditionExpression = aws.String(u.Condition)
	}

	output, err := ds.Client.UpdateItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to update item in table '%s': %w", ds.Table, Classify(err))
	}
	if output.Attributes == nil {
		return Item{}, nil
	}
	return output.Attributes, nil
}

// DeleteItem removes a row, optionally under a condition.
func (ds *DynamoService) DeleteItem(ctx context.Context, key Item, condition string, names map[string]string, values map[string]types.AttributeValue) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(ds.Table),
		Key:       key,
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}
	if _, err := ds.Client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete item from table '%s': %w", ds.Table, Classify(err))
	}
	return nil
}

// QueryPartition returns every row of partition pk, following pagination.
func (ds *DynamoService) QueryPartition(ctx context.Context, pk string) ([]Item, error) {
	var (
		items     []Item
		startKey  Item
		condition = "pk = :pk"
	)
	for {
		output, err := ds.Client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(ds.Table),
			KeyConditionExpression: aws.String(condition),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query table '%s': %w", ds.Table, Classify(err))
		}
		items = append(items, output.Items...)
		if len(output.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = output.LastEvaluatedKey
	}
}

// ScanWithFilter scans the whole table with an optional filter, following pagination.
func (ds *DynamoService) ScanWithFilter(
	ctx context.Context,
	filter string,
	names map[string]string,
	values map[string]types.AttributeValue,
	projection string,
) ([]Item, error) {
	var (
		items    []Item
		startKey Item
	)
	for {
		input := &dynamodb.ScanInput{
			TableName:         aws.String(ds.Table),
			ExclusiveStartKey: startKey,
		}
		if filter != "" {
			input.FilterExpression = aws.String(filter)
		}
		if projection != "" {
			input.ProjectionExpression = aws.String(projection)
		}
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
		if len(values) > 0 {
			input.ExpressionAttributeValues = values
		}

		output, err := ds.Client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table '%s': %w", ds.Table, Classify(err))
		}
		items = append(items, output.Items...)
		if len(output.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = output.LastEvaluatedKey
	}
}

const (
	maxBatchSize     = 25
	maxBatchAttempts = 5
)

// BatchWriteItems writes requests in batches of 25, resubmitting unprocessed items.
func (ds *DynamoService) BatchWriteItems(ctx context.Context, writeRequests []types.WriteRequest) error {
	for i := 0; i < len(writeRequests); i += maxBatchSize {
		end := min(i+maxBatchSize, len(writeRequests))

		pending := map[string][]types.WriteRequest{ds.Table: writeRequests[i:end]}
		for attempt := 0; len(pending[ds.Table]) > 0; attempt++ {
			if attempt == maxBatchAttempts {
				return fmt.Errorf("batch write to table '%s': %d items left unprocessed", ds.Table, len(pending[ds.Table]))
			}
			output, err := ds.Client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("failed to batch write items to table '%s': %w", ds.Table, Classify(err))
			}
			pending = output.UnprocessedItems
		}
	}
	return nil
}
