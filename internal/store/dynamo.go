package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/stock-alerts/internal/alert"
)

// DynamoAlertStore persists alerts in DynamoDB for serverless deployments.
// Partition key is recipient_id, sort key is the alert id, so ownership is
// part of the item key and cross-recipient access is structurally impossible.
type DynamoAlertStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoAlert is the DynamoDB item structure.
type dynamoAlert struct {
	RecipientID     string `dynamodbav:"recipient_id"`
	ID              string `dynamodbav:"id"`
	Classification  string `dynamodbav:"classification"`
	InventoryID     string `dynamodbav:"inventory_id"`
	ProductID       string `dynamodbav:"product_id"`
	WarehouseID     string `dynamodbav:"warehouse_id"`
	ProductName     string `dynamodbav:"product_name"`
	WarehouseName   string `dynamodbav:"warehouse_name"`
	CurrentQuantity int    `dynamodbav:"current_quantity"`
	MinStock        *int   `dynamodbav:"min_stock,omitempty"`
	MaxStock        *int   `dynamodbav:"max_stock,omitempty"`
	Message         string `dynamodbav:"message"`
	CreatedAt       string `dynamodbav:"created_at"`
	ReadAt          string `dynamodbav:"read_at,omitempty"`
}

func NewDynamoAlertStore(client *dynamodb.Client, tableName string) *DynamoAlertStore {
	return &DynamoAlertStore{client: client, tableName: tableName}
}

func (s *DynamoAlertStore) Append(ctx context.Context, record alert.Record) error {
	item := dynamoAlert{
		RecipientID:     record.RecipientID,
		ID:              record.ID,
		Classification:  string(record.Classification),
		InventoryID:     record.InventoryID,
		ProductID:       record.ProductID,
		WarehouseID:     record.WarehouseID,
		ProductName:     record.ProductName,
		WarehouseName:   record.WarehouseName,
		CurrentQuantity: record.CurrentQuantity,
		MinStock:        record.MinStock,
		MaxStock:        record.MaxStock,
		Message:         record.Message,
		CreatedAt:       record.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if record.ReadAt != nil {
		item.ReadAt = record.ReadAt.UTC().Format(time.RFC3339Nano)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put alert %s: %w", record.ID, err)
	}
	return nil
}

func (s *DynamoAlertStore) List(ctx context.Context, recipientID string, limit int) ([]alert.Record, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recipientID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}

	records := make([]alert.Record, 0, len(result.Items))
	for _, item := range result.Items {
		var da dynamoAlert
		if err := attributevalue.UnmarshalMap(item, &da); err != nil {
			continue
		}
		records = append(records, da.toRecord())
	}

	// The sort key is the alert id, so recency ordering happens here.
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})

	limit = NormalizeLimit(limit)
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *DynamoAlertStore) MarkRead(ctx context.Context, recipientID, alertID string) (bool, error) {
	readAt := time.Now().UTC().Format(time.RFC3339Nano)

	// Conditional write: only flips read_at when it is still unset, so a
	// repeated call is a no-op instead of moving the timestamp.
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 s.key(recipientID, alertID),
		UpdateExpression:    aws.String("SET read_at = :ts"),
		ConditionExpression: aws.String("attribute_exists(id) AND attribute_not_exists(read_at)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ts": &types.AttributeValueMemberS{Value: readAt},
		},
	})
	if err == nil {
		return true, nil
	}

	var conditionFailed *types.ConditionalCheckFailedException
	if !errors.As(err, &conditionFailed) {
		return false, fmt.Errorf("mark read: %w", err)
	}

	// Condition failed: distinguish already-read from missing.
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(recipientID, alertID),
	})
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	if result.Item == nil {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *DynamoAlertStore) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		FilterExpression:       aws.String("attribute_not_exists(read_at)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recipientID},
		},
		ProjectionExpression: aws.String("id"),
	})
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}

	count := 0
	for _, item := range result.Items {
		var row struct {
			ID string `dynamodbav:"id"`
		}
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			continue
		}
		updated, err := s.MarkRead(ctx, recipientID, row.ID)
		if err != nil {
			return count, err
		}
		if updated {
			count++
		}
	}
	return count, nil
}

func (s *DynamoAlertStore) Clear(ctx context.Context, recipientID string) (int, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recipientID},
		},
		ProjectionExpression: aws.String("id"),
	})
	if err != nil {
		return 0, fmt.Errorf("clear alerts: %w", err)
	}

	const batchSize = 25 // BatchWriteItem limit
	deleted := 0
	for start := 0; start < len(result.Items); start += batchSize {
		end := start + batchSize
		if end > len(result.Items) {
			end = len(result.Items)
		}

		writes := make([]types.WriteRequest, 0, end-start)
		for _, item := range result.Items[start:end] {
			var row struct {
				ID string `dynamodbav:"id"`
			}
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				continue
			}
			writes = append(writes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: s.key(recipientID, row.ID)},
			})
		}
		if len(writes) == 0 {
			continue
		}

		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tableName: writes},
		})
		if err != nil {
			return deleted, fmt.Errorf("clear alerts: %w", err)
		}
		deleted += len(writes)
	}
	return deleted, nil
}

func (s *DynamoAlertStore) key(recipientID, alertID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"recipient_id": &types.AttributeValueMemberS{Value: recipientID},
		"id":           &types.AttributeValueMemberS{Value: alertID},
	}
}

func (da dynamoAlert) toRecord() alert.Record {
	createdAt, _ := time.Parse(time.RFC3339Nano, da.CreatedAt)

	record := alert.Record{
		ID:              da.ID,
		Classification:  alert.Classification(da.Classification),
		InventoryID:     da.InventoryID,
		ProductID:       da.ProductID,
		WarehouseID:     da.WarehouseID,
		ProductName:     da.ProductName,
		WarehouseName:   da.WarehouseName,
		CurrentQuantity: da.CurrentQuantity,
		MinStock:        da.MinStock,
		MaxStock:        da.MaxStock,
		Message:         da.Message,
		RecipientID:     da.RecipientID,
		CreatedAt:       createdAt,
	}
	if da.ReadAt != "" {
		if readAt, err := time.Parse(time.RFC3339Nano, da.ReadAt); err == nil {
			record.ReadAt = &readAt
		}
	}
	return record
}
