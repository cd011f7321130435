package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sicko7947/durable"
)

// DynamoDBStore implements durable.Store over a single DynamoDB table,
// keyed by workflow id. Workflow meta rows live at (WF#id, META); step
// rows live at (WF#id, STEP#stepKey). Overwrite-on-restart (I1/I5) falls
// out of PutItem's unconditional replace semantics.
type DynamoDBStore struct {
	client    DynamoDBClient
	tableName string
}

// NewDynamoDBStore wraps client for a single table.
func NewDynamoDBStore(client DynamoDBClient, tableName string) *DynamoDBStore {
	return &DynamoDBStore{client: client, tableName: tableName}
}

type stepItem struct {
	WorkflowID  string `dynamodbav:"workflow_id"`
	StepKey     string `dynamodbav:"step_key"`
	StepName    string `dynamodbav:"step_name"`
	SequenceID  uint64 `dynamodbav:"sequence_id"`
	Status      string `dynamodbav:"status"`
	Output      string `dynamodbav:"output,omitempty"`
	Error       string `dynamodbav:"error,omitempty"`
	RetryCount  int    `dynamodbav:"retry_count"`
	NextRetryAt *int64 `dynamodbav:"next_retry_at,omitempty"`
	CreatedAt   int64  `dynamodbav:"created_at"`
	UpdatedAt   int64  `dynamodbav:"updated_at"`
}

func (i *stepItem) toRecord() *durable.StepRecord {
	r := &durable.StepRecord{
		WorkflowID:  i.WorkflowID,
		StepKey:     i.StepKey,
		StepName:    i.StepName,
		SequenceID:  i.SequenceID,
		Status:      durable.StepStatus(i.Status),
		Output:      i.Output,
		Error:       i.Error,
		RetryCount:  i.RetryCount,
		NextRetryAt: i.NextRetryAt,
		CreatedAt:   time.UnixMilli(i.CreatedAt),
		UpdatedAt:   time.UnixMilli(i.UpdatedAt),
	}
	return r
}

func (s *DynamoDBStore) putStepItem(ctx context.Context, item *stepItem) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal step item: %w", err)
	}
	av[AttrPK] = &types.AttributeValueMemberS{Value: stepPK(item.WorkflowID)}
	av[AttrSK] = &types.AttributeValueMemberS{Value: stepSK(item.StepKey)}
	av[AttrEntityType] = &types.AttributeValueMemberS{Value: EntityTypeStep}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put step item: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) Find(ctx context.Context, workflowID, stepKey string) (*durable.StepRecord, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: stepPK(workflowID)},
			AttrSK: &types.AttributeValueMemberS{Value: stepSK(stepKey)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get step: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}
	var item stepItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step: %w", err)
	}
	return item.toRecord(), nil
}

func (s *DynamoDBStore) MarkRunning(ctx context.Context, workflowID, stepKey, stepName string, sequenceID uint64) error {
	now := time.Now().UnixMilli()
	createdAt := now
	if existing, err := s.Find(ctx, workflowID, stepKey); err == nil && existing != nil {
		createdAt = existing.CreatedAt.UnixMilli()
	}
	return s.putStepItem(ctx, &stepItem{
		WorkflowID: workflowID,
		StepKey:    stepKey,
		StepName:   stepName,
		SequenceID: sequenceID,
		Status:     string(durable.StepRunning),
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	})
}

func (s *DynamoDBStore) MarkCompleted(ctx context.Context, workflowID, stepKey, output string) error {
	existing, err := s.Find(ctx, workflowID, stepKey)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	existing.Status = durable.StepCompleted
	existing.Output = output
	existing.Error = ""
	existing.UpdatedAt = time.Now()
	return s.putStepItem(ctx, recordToItem(existing))
}

func (s *DynamoDBStore) MarkFailed(ctx context.Context, workflowID, stepKey, errMsg string) error {
	existing, err := s.Find(ctx, workflowID, stepKey)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	existing.Status = durable.StepFailed
	existing.Error = errMsg
	existing.UpdatedAt = time.Now()
	return s.putStepItem(ctx, recordToItem(existing))
}

func (s *DynamoDBStore) MarkFailedWithRetry(ctx context.Context, workflowID, stepKey, errMsg string, retryCount int, nextRetryAtMs int64) error {
	existing, err := s.Find(ctx, workflowID, stepKey)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	existing.Status = durable.StepFailed
	existing.Error = errMsg
	existing.RetryCount = retryCount
	existing.NextRetryAt = durable.ToPtr(nextRetryAtMs)
	existing.UpdatedAt = time.Now()
	return s.putStepItem(ctx, recordToItem(existing))
}

func recordToItem(r *durable.StepRecord) *stepItem {
	return &stepItem{
		WorkflowID:  r.WorkflowID,
		StepKey:     r.StepKey,
		StepName:    r.StepName,
		SequenceID:  r.SequenceID,
		Status:      string(r.Status),
		Output:      r.Output,
		Error:       r.Error,
		RetryCount:  r.RetryCount,
		NextRetryAt: r.NextRetryAt,
		CreatedAt:   r.CreatedAt.UnixMilli(),
		UpdatedAt:   r.UpdatedAt.UnixMilli(),
	}
}

type workflowItem struct {
	WorkflowID string `dynamodbav:"workflow_id"`
	Status     string `dynamodbav:"status"`
	CreatedAt  int64  `dynamodbav:"created_at"`
	UpdatedAt  int64  `dynamodbav:"updated_at"`
}

func (s *DynamoDBStore) UpsertWorkflow(ctx context.Context, workflowID string, status durable.WorkflowStatus) error {
	createdAt := time.Now().UnixMilli()
	if existing, err := s.getWorkflowItem(ctx, workflowID); err == nil && existing != nil {
		createdAt = existing.CreatedAt
	}
	item := &workflowItem{
		WorkflowID: workflowID,
		Status:     string(status),
		CreatedAt:  createdAt,
		UpdatedAt:  time.Now().UnixMilli(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow item: %w", err)
	}
	av[AttrPK] = &types.AttributeValueMemberS{Value: workflowPK(workflowID)}
	av[AttrSK] = &types.AttributeValueMemberS{Value: workflowSK()}
	av[AttrEntityType] = &types.AttributeValueMemberS{Value: EntityTypeWorkflow}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert workflow: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) getWorkflowItem(ctx context.Context, workflowID string) (*workflowItem, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: workflowPK(workflowID)},
			AttrSK: &types.AttributeValueMemberS{Value: workflowSK()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}
	var item workflowItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}
	return &item, nil
}

func (s *DynamoDBStore) GetWorkflowStatus(ctx context.Context, workflowID string) (durable.WorkflowStatus, bool, error) {
	item, err := s.getWorkflowItem(ctx, workflowID)
	if err != nil {
		return "", false, err
	}
	if item == nil {
		return "", false, nil
	}
	return durable.WorkflowStatus(item.Status), true, nil
}

func (s *DynamoDBStore) IsCancelled(ctx context.Context, workflowID string) (bool, error) {
	status, ok, err := s.GetWorkflowStatus(ctx, workflowID)
	if err != nil {
		return false, err
	}
	return ok && status == durable.WorkflowCancelled, nil
}

func (s *DynamoDBStore) CancelWorkflow(ctx context.Context, workflowID string) error {
	return s.UpsertWorkflow(ctx, workflowID, durable.WorkflowCancelled)
}

func (s *DynamoDBStore) GetCompletedSteps(ctx context.Context, workflowID string) ([]*durable.StepRecord, error) {
	var records []*durable.StepRecord
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		queryInput := &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: stepPK(workflowID)},
				":sk": &types.AttributeValueMemberS{Value: stepPrefix()},
			},
		}
		if lastEvaluatedKey != nil {
			queryInput.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := s.client.Query(ctx, queryInput)
		if err != nil {
			return nil, fmt.Errorf("failed to list steps: %w", err)
		}

		for _, raw := range result.Items {
			var item stepItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal step: %w", err)
			}
			if item.Status == string(durable.StepCompleted) {
				records = append(records, item.toRecord())
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	sortStepRecordsBySequence(records)
	return records, nil
}

func sortStepRecordsBySequence(records []*durable.StepRecord) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j-1].SequenceID > records[j].SequenceID; j-- {
			records[j-1], records[j] = records[j], records[j-1]
		}
	}
}

func (s *DynamoDBStore) Close() error { return nil }
