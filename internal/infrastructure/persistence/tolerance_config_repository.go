package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormToleranceConfigRepository implements ToleranceConfigRepository using GORM
type GormToleranceConfigRepository struct {
	db *gorm.DB
}

// NewGormToleranceConfigRepository creates a new GormToleranceConfigRepository
func NewGormToleranceConfigRepository(db *gorm.DB) *GormToleranceConfigRepository {
	return &GormToleranceConfigRepository{db: db}
}

// FindActiveForTenant returns the tenant's active tolerance policy.
// The most recently updated one wins if several are flagged active.
func (r *GormToleranceConfigRepository) FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) (*procurement.ToleranceConfig, error) {
	var config procurement.ToleranceConfig
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("updated_at DESC").
		First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &config, nil
}

// FindByIDForTenant finds a tolerance config by ID
func (r *GormToleranceConfigRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.ToleranceConfig, error) {
	var config procurement.ToleranceConfig
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &config, nil
}

// Save creates or updates a tolerance config
func (r *GormToleranceConfigRepository) Save(ctx context.Context, config *procurement.ToleranceConfig) error {
	return r.db.WithContext(ctx).Save(config).Error
}

// Ensure GormToleranceConfigRepository implements ToleranceConfigRepository
var _ procurement.ToleranceConfigRepository = (*GormToleranceConfigRepository)(nil)
