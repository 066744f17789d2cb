package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TaskCategoryMatchReview tags the follow-up task created when a match run
// finishes with discrepancies that need a manual decision
const TaskCategoryMatchReview = "MATCH_REVIEW"

// MatchReviewHandler reacts to match lifecycle events, opening a review task
// for the order owner when a completed match requires approval and closing
// it again once a decision is recorded
type MatchReviewHandler struct {
	matchRepo   procurement.ThreeWayMatchRepository
	orderRepo   procurement.PurchaseOrderRepository
	taskService shared.TaskService
	logger      *zap.Logger
}

// NewMatchReviewHandler creates a new handler for match lifecycle events
func NewMatchReviewHandler(
	matchRepo procurement.ThreeWayMatchRepository,
	orderRepo procurement.PurchaseOrderRepository,
	taskService shared.TaskService,
	logger *zap.Logger,
) *MatchReviewHandler {
	return &MatchReviewHandler{
		matchRepo:   matchRepo,
		orderRepo:   orderRepo,
		taskService: taskService,
		logger:      logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *MatchReviewHandler) EventTypes() []string {
	return []string{
		procurement.EventTypeThreeWayMatchCompleted,
		procurement.EventTypeThreeWayMatchApproved,
		procurement.EventTypeThreeWayMatchRejected,
	}
}

// Handle processes a match lifecycle event
func (h *MatchReviewHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *procurement.ThreeWayMatchCompletedEvent:
		return h.handleCompleted(ctx, e)
	case *procurement.ThreeWayMatchApprovedEvent:
		return h.closeReviewTasks(ctx, e.TenantID(), e.MatchID)
	case *procurement.ThreeWayMatchRejectedEvent:
		return h.closeReviewTasks(ctx, e.TenantID(), e.MatchID)
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}

func (h *MatchReviewHandler) handleCompleted(ctx context.Context, event *procurement.ThreeWayMatchCompletedEvent) error {
	if !event.RequiresApproval {
		return nil
	}

	match, err := h.matchRepo.FindByIDForTenant(ctx, event.TenantID(), event.MatchID)
	if err != nil {
		return fmt.Errorf("failed to load match %s: %w", event.MatchID, err)
	}
	order, err := h.orderRepo.FindByIDForTenant(ctx, event.TenantID(), match.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", match.OrderID, err)
	}

	task := shared.Task{
		ID:          uuid.New(),
		TenantID:    event.TenantID(),
		AssigneeID:  order.OwnerID,
		Category:    TaskCategoryMatchReview,
		Title:       fmt.Sprintf("Review match %s", match.MatchNumber),
		Description: fmt.Sprintf("Three-way match %s finished with %d discrepancy(ies) and needs a decision", match.MatchNumber, event.DiscrepancyCount),
		EntityType:  "three_way_match",
		EntityID:    match.ID,
		Status:      shared.TaskStatusOpen,
		CreatedAt:   time.Now(),
	}
	if err := h.taskService.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to create match review task: %w", err)
	}

	h.logger.Info("match review task created",
		zap.String("match_id", match.ID.String()),
		zap.String("match_number", match.MatchNumber),
		zap.String("assignee_id", order.OwnerID.String()),
	)
	return nil
}

func (h *MatchReviewHandler) closeReviewTasks(ctx context.Context, tenantID, matchID uuid.UUID) error {
	if err := h.taskService.CompleteTasksFor(ctx, tenantID, "three_way_match", matchID, TaskCategoryMatchReview); err != nil {
		return fmt.Errorf("failed to complete match review tasks: %w", err)
	}
	return nil
}
