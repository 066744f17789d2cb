package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTaskService implements shared.TaskService with a tasks table
type GormTaskService struct {
	db *gorm.DB
}

// NewGormTaskService creates a new GormTaskService
func NewGormTaskService(db *gorm.DB) *GormTaskService {
	return &GormTaskService{db: db}
}

// CreateTask stores a new follow-up task
func (s *GormTaskService) CreateTask(ctx context.Context, task shared.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = shared.TaskStatusOpen
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(&task).Error
}

// CompleteTasksFor closes all open tasks of a category attached to an entity
func (s *GormTaskService) CompleteTasksFor(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, category string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&shared.Task{}).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ? AND category = ? AND status = ?",
			tenantID, entityType, entityID, category, shared.TaskStatusOpen).
		Updates(map[string]interface{}{
			"status":       shared.TaskStatusCompleted,
			"completed_at": now,
		}).Error
}

// FindOpenForAssignee returns a user's open tasks, oldest first
func (s *GormTaskService) FindOpenForAssignee(ctx context.Context, tenantID, assigneeID uuid.UUID) ([]shared.Task, error) {
	var tasks []shared.Task
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND assignee_id = ? AND status = ?", tenantID, assigneeID, shared.TaskStatusOpen).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Ensure GormTaskService implements TaskService
var _ shared.TaskService = (*GormTaskService)(nil)
