package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditEvent is one append-only record of a state-changing operation
type AuditEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null"`
	Action     string    `gorm:"type:varchar(100);not null"`
	EntityType string    `gorm:"type:varchar(50);not null;index"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Before     string    `gorm:"type:text"` // JSON snapshot, empty for creations
	After      string    `gorm:"type:text"` // JSON snapshot
	OccurredAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditEvent) TableName() string {
	return "audit_events"
}

// AuditSink records audit events. Implementations are append-only; callers
// treat recording failures as non-fatal and log them.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}
