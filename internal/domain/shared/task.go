package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the state of a work task
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "OPEN"
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

// Task is a unit of follow-up work assigned to a user, for example the
// payment approval created when a goods receipt completes
type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	AssigneeID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Category    string     `gorm:"type:varchar(50);not null;index"`
	Title       string     `gorm:"type:varchar(200);not null"`
	Description string     `gorm:"type:varchar(1000)"`
	EntityType  string     `gorm:"type:varchar(50);not null"`
	EntityID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'OPEN'"`
	CreatedAt   time.Time  `gorm:"not null"`
	CompletedAt *time.Time
}

// TableName returns the table name for GORM
func (Task) TableName() string {
	return "tasks"
}

// TaskService creates and completes follow-up tasks. Both operations are
// best-effort from the caller's point of view: failures are logged, never
// propagated into the triggering workflow.
type TaskService interface {
	CreateTask(ctx context.Context, task Task) error

	// CompleteTasksFor closes all open tasks of a category attached to an
	// entity, for example when the tracked approval has happened
	CompleteTasksFor(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, category string) error
}
