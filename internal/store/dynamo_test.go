package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luthier-backend/internal/record"
)

// fakeDynamo keeps items in memory keyed by tenant_id/id and understands
// the attribute_exists conditions the store issues.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func attrS(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) string {
	return attrS(item, "tenant_id") + "/" + attrS(item, "id")
}

func checkCondition(expr *string, exists bool) error {
	if expr == nil {
		return nil
	}
	switch {
	case strings.Contains(*expr, "attribute_not_exists") && exists,
		strings.Contains(*expr, "attribute_exists") && !strings.Contains(*expr, "not_exists") && !exists:
		return &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	return nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := itemKey(in.Item)
	_, exists := f.items[key]
	if err := checkCondition(in.ConditionExpression, exists); err != nil {
		return nil, err
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := itemKey(in.Key)
	_, exists := f.items[key]
	if err := checkCondition(in.ConditionExpression, exists); err != nil {
		return nil, err
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Query returns one item per page to exercise pagination.
func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant := attrS(in.ExpressionAttributeValues, ":tenant")
	var keys []string
	for k, item := range f.items {
		if attrS(item, "tenant_id") == tenant {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if in.ExclusiveStartKey != nil {
		after := itemKey(in.ExclusiveStartKey)
		for i, k := range keys {
			if k == after {
				start = i + 1
			}
		}
	}
	out := &dynamodb.QueryOutput{}
	if start < len(keys) {
		item := f.items[keys[start]]
		out.Items = []map[string]types.AttributeValue{item}
		if start+1 < len(keys) {
			out.LastEvaluatedKey = map[string]types.AttributeValue{
				"tenant_id": item["tenant_id"],
				"id":        item["id"],
			}
		}
	}
	return out, nil
}

func TestDynamoRecordStore(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	s := NewDynamoRecordStore(fake, "service_records")

	first, err := s.CreateRecord(ctx, "t1", record.ServiceRecord{
		Client:   "Ana",
		Services: []record.LineItem{{Description: "Setup", UnitPrice: decimal.RequireFromString("35.50")}},
	})
	require.NoError(t, err)
	second, err := s.CreateRecord(ctx, "t1", record.ServiceRecord{Client: "Rui"})
	require.NoError(t, err)
	_, err = s.CreateRecord(ctx, "t2", record.ServiceRecord{Client: "Eva"})
	require.NoError(t, err)

	_, err = s.CreateRecord(ctx, "t1", record.ServiceRecord{ID: first.ID, Client: "Duplicado"})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetRecord(ctx, "t1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Client)
	assert.True(t, decimal.RequireFromString("35.5").Equal(got.TotalPrice))

	_, err = s.GetRecord(ctx, "t2", first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.ListRecords(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{all[0].ID, all[1].ID})

	got.Status = record.StatusDelivered
	updated, err := s.UpdateRecord(ctx, "t1", got)
	require.NoError(t, err)
	assert.Equal(t, "entregue", updated.RawStatus)

	_, err = s.UpdateRecord(ctx, "t1", record.ServiceRecord{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteRecord(ctx, "t1", first.ID))
	assert.ErrorIs(t, s.DeleteRecord(ctx, "t1", first.ID), ErrNotFound)
}

func TestWithRecords_RoutesRecordCalls(t *testing.T) {
	ctx := context.Background()
	base := newSQLiteStore(t)
	dyn := NewDynamoRecordStore(newFakeDynamo(), "service_records")
	s := WithRecords(base, dyn)

	r, err := s.CreateRecord(ctx, "t1", record.ServiceRecord{Client: "Ana"})
	require.NoError(t, err)

	fromDynamo, err := dyn.GetRecord(ctx, "t1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", fromDynamo.Client)

	_, err = base.GetRecord(ctx, "t1", r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := s.GetProfile(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, p)
}
