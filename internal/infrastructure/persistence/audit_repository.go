package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAuditSink implements shared.AuditSink with an append-only table
type GormAuditSink struct {
	db *gorm.DB
}

// NewGormAuditSink creates a new GormAuditSink
func NewGormAuditSink(db *gorm.DB) *GormAuditSink {
	return &GormAuditSink{db: db}
}

// Record appends one audit event. Events are never updated or deleted.
func (s *GormAuditSink) Record(ctx context.Context, event shared.AuditEvent) error {
	return s.db.WithContext(ctx).Create(&event).Error
}

// FindByEntity returns the audit trail for an entity, newest first
func (s *GormAuditSink) FindByEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, filter shared.Filter) ([]shared.AuditEvent, error) {
	var events []shared.AuditEvent
	query := s.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("occurred_at DESC")

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// Ensure GormAuditSink implements AuditSink
var _ shared.AuditSink = (*GormAuditSink)(nil)
