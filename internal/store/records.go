package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"luthier-backend/internal/model"
	"luthier-backend/internal/record"
)

// prepareForSave assigns identity and creation time to new records,
// recomputes the total and fills in the stored status phrase.
func prepareForSave(r record.ServiceRecord, now time.Time) record.ServiceRecord {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == nil {
		created := now.UTC()
		r.CreatedAt = &created
	}
	if r.Status == "" {
		r.Status = record.ParseStatus(r.RawStatus)
	}
	if r.RawStatus == "" || record.CanonicalStatus(r.RawStatus) != r.Status {
		r.SetStatus(r.Status)
	}
	r.Recompute()
	return r
}

func encodeDocument(r record.ServiceRecord) ([]byte, error) {
	doc, err := json.Marshal(r.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %s: %w", r.ID, err)
	}
	return doc, nil
}

// decodeDocument normalizes a stored document. The row id always wins
// over an id inside the document, and the row creation time stands in
// for documents that never carried one.
func decodeDocument(id string, raw []byte, created time.Time) record.ServiceRecord {
	doc := map[string]any{}
	if len(raw) > 0 {
		// A corrupt document still yields a record with defaults.
		_ = json.Unmarshal(raw, &doc)
	}
	doc["id"] = id
	if _, ok := doc["createdAt"]; !ok {
		if _, legacy := doc["criadoEm"]; !legacy && !created.IsZero() {
			doc["createdAt"] = created.UTC().Format(time.RFC3339Nano)
		}
	}
	return record.Normalize(doc)
}

func (s *gormStore) ListRecords(ctx context.Context, tenantID string) ([]record.ServiceRecord, error) {
	var rows []model.RecordDocument
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	out := make([]record.ServiceRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeDocument(row.ID, row.Document, row.CreatedAt))
	}
	return out, nil
}

func (s *gormStore) GetRecord(ctx context.Context, tenantID, id string) (record.ServiceRecord, error) {
	var row model.RecordDocument
	if err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&row).Error; err != nil {
		return record.ServiceRecord{}, notFound(err)
	}
	return decodeDocument(row.ID, row.Document, row.CreatedAt), nil
}

func (s *gormStore) CreateRecord(ctx context.Context, tenantID string, r record.ServiceRecord) (record.ServiceRecord, error) {
	r = prepareForSave(r, time.Now())
	doc, err := encodeDocument(r)
	if err != nil {
		return record.ServiceRecord{}, err
	}
	row := model.RecordDocument{
		ID:        r.ID,
		TenantID:  tenantID,
		Document:  datatypes.JSON(doc),
		CreatedAt: *r.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return record.ServiceRecord{}, fmt.Errorf("failed to create record: %w", err)
	}
	return r, nil
}

func (s *gormStore) UpdateRecord(ctx context.Context, tenantID string, r record.ServiceRecord) (record.ServiceRecord, error) {
	if r.ID == "" {
		return record.ServiceRecord{}, ErrNotFound
	}
	r = prepareForSave(r, time.Now())
	doc, err := encodeDocument(r)
	if err != nil {
		return record.ServiceRecord{}, err
	}
	res := s.db.WithContext(ctx).
		Model(&model.RecordDocument{}).
		Where("id = ? AND tenant_id = ?", r.ID, tenantID).
		Updates(map[string]any{
			"document":   datatypes.JSON(doc),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return record.ServiceRecord{}, fmt.Errorf("failed to update record %s: %w", r.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return record.ServiceRecord{}, ErrNotFound
	}
	return r, nil
}

func (s *gormStore) DeleteRecord(ctx context.Context, tenantID, id string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&model.RecordDocument{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
