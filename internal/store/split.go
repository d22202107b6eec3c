package store

import (
	"context"

	"luthier-backend/internal/record"
)

// splitStore serves records from a separate backend and everything else
// from the base store.
type splitStore struct {
	Store
	records RecordStore
}

// WithRecords returns a Store whose record operations go to records.
func WithRecords(base Store, records RecordStore) Store {
	return &splitStore{Store: base, records: records}
}

func (s *splitStore) ListRecords(ctx context.Context, tenantID string) ([]record.ServiceRecord, error) {
	return s.records.ListRecords(ctx, tenantID)
}

func (s *splitStore) GetRecord(ctx context.Context, tenantID, id string) (record.ServiceRecord, error) {
	return s.records.GetRecord(ctx, tenantID, id)
}

func (s *splitStore) CreateRecord(ctx context.Context, tenantID string, r record.ServiceRecord) (record.ServiceRecord, error) {
	return s.records.CreateRecord(ctx, tenantID, r)
}

func (s *splitStore) UpdateRecord(ctx context.Context, tenantID string, r record.ServiceRecord) (record.ServiceRecord, error) {
	return s.records.UpdateRecord(ctx, tenantID, r)
}

func (s *splitStore) DeleteRecord(ctx context.Context, tenantID, id string) error {
	return s.records.DeleteRecord(ctx, tenantID, id)
}
