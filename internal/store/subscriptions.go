package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"luthier-backend/internal/model"
)

// SaveSubscription creates or refreshes a subscription. An endpoint moves
// to the tenant that registered it last.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "p256dh", "auth"}),
	}).Create(sub).Error
}

func (s *gormStore) GetSubscription(ctx context.Context, tenantID, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("endpoint = ? AND tenant_id = ?", endpoint, tenantID).
		First(&sub).Error
	return sub, notFound(err)
}

func (s *gormStore) DeleteSubscription(ctx context.Context, tenantID, endpoint string) error {
	q := s.db.WithContext(ctx).Where("endpoint = ?", endpoint)
	if tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}
	if err := q.Delete(&model.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (s *gormStore) ListSubscriptions(ctx context.Context, tenantID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *gormStore) TenantsWithSubscriptions(ctx context.Context) ([]string, error) {
	var tenants []string
	if err := s.db.WithContext(ctx).
		Model(&model.PushSubscription{}).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscribed tenants: %w", err)
	}
	return tenants, nil
}
