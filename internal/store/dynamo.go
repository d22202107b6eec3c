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

	"luthier-backend/internal/record"
)

// DynamoAPI is the part of the DynamoDB client the record store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type recordItem struct {
	TenantID  string `dynamodbav:"tenant_id"`
	ID        string `dynamodbav:"id"`
	Document  string `dynamodbav:"document"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// DynamoRecordStore keeps service records in a DynamoDB table.
//
// Table requirements:
//   - PK: tenant_id (string)
//   - SK: id (string)
type DynamoRecordStore struct {
	ddb       DynamoAPI
	tableName string
}

var _ RecordStore = (*DynamoRecordStore)(nil)

// NewDynamoRecordStore creates a record store on the given table.
func NewDynamoRecordStore(ddb DynamoAPI, tableName string) *DynamoRecordStore {
	return &DynamoRecordStore{ddb: ddb, tableName: tableName}
}

func (s *DynamoRecordStore) key(tenantID, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
		"id":        &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoRecordStore) ListRecords(ctx context.Context, tenantID string) ([]record.ServiceRecord, error) {
	p := dynamodb.NewQueryPaginator(s.ddb, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#tenant = :tenant"),
		ExpressionAttributeNames: map[string]string{
			"#tenant": "tenant_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tenant": &types.AttributeValueMemberS{Value: tenantID},
		},
	})

	var items []recordItem
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query records: %w", err)
		}
		var batch []recordItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to decode records: %w", err)
		}
		items = append(items, batch...)
	}

	out := make([]record.ServiceRecord, 0, len(items))
	for _, it := range items {
		out = append(out, fromRecordItem(it))
	}
	// Sort keys are random ids; keep the creation order the SQL store uses.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.Before(*b)
	})
	return out, nil
}

func (s *DynamoRecordStore) GetRecord(ctx context.Context, tenantID, id string) (record.ServiceRecord, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(tenantID, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return record.ServiceRecord{}, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return record.ServiceRecord{}, ErrNotFound
	}
	var it recordItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return record.ServiceRecord{}, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return fromRecordItem(it), nil
}

func (s *DynamoRecordStore) CreateRecord(ctx context.Context, tenantID string, r record.ServiceRecord) (record.ServiceRecord, error) {
	r = prepareForSave(r, time.Now())
	if err := s.put(ctx, tenantID, r, "attribute_not_exists(#id)", ErrConflict); err != nil {
		return record.ServiceRecord{}, err
	}
	return r, nil
}

func (s *DynamoRecordStore) UpdateRecord(ctx context.Context, tenantID string, r record.ServiceRecord) (record.ServiceRecord, error) {
	if r.ID == "" {
		return record.ServiceRecord{}, ErrNotFound
	}
	r = prepareForSave(r, time.Now())
	if err := s.put(ctx, tenantID, r, "attribute_exists(#id)", ErrNotFound); err != nil {
		return record.ServiceRecord{}, err
	}
	return r, nil
}

func (s *DynamoRecordStore) DeleteRecord(ctx context.Context, tenantID, id string) error {
	_, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(s.tableName),
		Key:                      s.key(tenantID, id),
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	return conditional(err, ErrNotFound)
}

func (s *DynamoRecordStore) put(ctx context.Context, tenantID string, r record.ServiceRecord, condition string, failed error) error {
	doc, err := encodeDocument(r)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(recordItem{
		TenantID:  tenantID,
		ID:        r.ID,
		Document:  string(doc),
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tableName),
		Item:                     av,
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	return conditional(err, failed)
}

// conditional maps a failed existence condition to failed.
func conditional(err, failed error) error {
	if err == nil {
		return nil
	}
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return failed
	}
	return err
}

func fromRecordItem(it recordItem) record.ServiceRecord {
	created, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)
	return decodeDocument(it.ID, []byte(it.Document), created)
}
