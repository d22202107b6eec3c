package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"luthier-backend/internal/model"
)

func (s *gormStore) GetProfile(ctx context.Context, tenantID string) (*model.IssuerProfile, error) {
	var p model.IssuerProfile
	err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &p, nil
}

// SaveProfile replaces the tenant's profile, creating it on first use.
func (s *gormStore) SaveProfile(ctx context.Context, p *model.IssuerProfile) error {
	if p.TenantID == "" {
		return errors.New("profile has no tenant")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "address", "postal_code", "locality", "phone", "email", "tax_id",
			"logo_base64", "notification_template", "notify_enabled", "updated_at",
		}),
	}).Create(p).Error
}
