// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMatchingMetricsProvider implements MatchingMetricsProvider using GORM.
// It queries the matching tables directly for aggregated backlog counts.
type GormMatchingMetricsProvider struct {
	db *gorm.DB
}

// NewGormMatchingMetricsProvider creates a new GormMatchingMetricsProvider.
func NewGormMatchingMetricsProvider(db *gorm.DB) *GormMatchingMetricsProvider {
	return &GormMatchingMetricsProvider{db: db}
}

// GetPendingReviewCount returns the number of matches awaiting an approval decision for a tenant.
func (p *GormMatchingMetricsProvider) GetPendingReviewCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("three_way_matches").
		Where("tenant_id = ?", tenantID).
		Where("requires_approval = ? AND approval_status = ?", true, "PENDING").
		Count(&count).Error

	return count, err
}

// GetReceiptsAwaitingBillCount returns the number of completed receipts with no vendor bill yet for a tenant.
func (p *GormMatchingMetricsProvider) GetReceiptsAwaitingBillCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("goods_receipts").
		Where("tenant_id = ?", tenantID).
		Where("status = ? AND bill_ref IS NULL", "COMPLETED").
		Count(&count).Error

	return count, err
}

// GormTenantProvider implements TenantProvider using GORM.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns all active tenant IDs.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("tenants").
		Select("id").
		Where("deleted_at IS NULL AND status = ?", "active").
		Find(&ids).Error

	return ids, err
}
