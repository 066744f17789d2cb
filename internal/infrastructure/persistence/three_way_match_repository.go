package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormThreeWayMatchRepository implements ThreeWayMatchRepository using GORM
type GormThreeWayMatchRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormThreeWayMatchRepository creates a new GormThreeWayMatchRepository
func NewGormThreeWayMatchRepository(db *gorm.DB) *GormThreeWayMatchRepository {
	return &GormThreeWayMatchRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormThreeWayMatchRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByIDForTenant finds a match by ID within a tenant, including its
// line items and discrepancies
func (r *GormThreeWayMatchRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.ThreeWayMatch, error) {
	var match procurement.ThreeWayMatch
	if err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_index ASC")
		}).
		Preload("Discrepancies", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_index ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &match, nil
}

// FindByBill finds matches run against a bill
func (r *GormThreeWayMatchRepository) FindByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]procurement.ThreeWayMatch, error) {
	var matches []procurement.ThreeWayMatch
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Preload("Discrepancies").
		Where("tenant_id = ? AND bill_id = ?", tenantID, billID).
		Order("created_at DESC").
		Find(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

// FindAllForTenant finds all matches for a tenant with filtering
func (r *GormThreeWayMatchRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.ThreeWayMatch, error) {
	var matches []procurement.ThreeWayMatch
	query := r.db.WithContext(ctx).Model(&procurement.ThreeWayMatch{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Preload("LineItems").Preload("Discrepancies").Find(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

// Save persists the match together with its line items and discrepancies
// as a single atomic batch
func (r *GormThreeWayMatchRepository) Save(ctx context.Context, match *procurement.ThreeWayMatch) error {
	events := match.GetDomainEvents()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveMatchInTx(tx, match); err != nil {
			return err
		}
		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err == nil {
		match.ClearDomainEvents()
	}
	return err
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormThreeWayMatchRepository) SaveWithLock(ctx context.Context, match *procurement.ThreeWayMatch) error {
	events := match.GetDomainEvents()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveMatchWithLockInTx(tx, match); err != nil {
			return err
		}
		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err == nil {
		match.ClearDomainEvents()
	}
	return err
}

// saveMatchInTx persists the match header, line items and discrepancies
// inside an open transaction. Shared with the decision store.
func saveMatchInTx(tx *gorm.DB, match *procurement.ThreeWayMatch) error {
	if err := tx.Omit("LineItems", "Discrepancies").Save(match).Error; err != nil {
		return err
	}
	for i := range match.LineItems {
		match.LineItems[i].MatchID = match.ID
		if err := tx.Save(&match.LineItems[i]).Error; err != nil {
			return err
		}
	}
	for i := range match.Discrepancies {
		match.Discrepancies[i].MatchID = match.ID
		if err := tx.Save(&match.Discrepancies[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// saveMatchWithLockInTx updates the decision fields with a version check.
// Line items and discrepancies are immutable once the match has run.
func saveMatchWithLockInTx(tx *gorm.DB, match *procurement.ThreeWayMatch) error {
	result := tx.Model(&procurement.ThreeWayMatch{}).
		Where("id = ? AND version = ?", match.ID, match.Version-1).
		Updates(map[string]interface{}{
			"status":           match.Status,
			"approval_status":  match.ApprovalStatus,
			"approved_by":      match.ApprovedBy,
			"decided_at":       match.DecidedAt,
			"rejection_reason": match.RejectionReason,
			"posted_bill_id":   match.PostedBillID,
			"version":          match.Version,
			"updated_at":       match.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The match has been modified by another user")
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormThreeWayMatchRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("match_number ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "receipt_id":
			query = query.Where("receipt_id = ?", value)
		case "bill_id":
			query = query.Where("bill_id = ?", value)
		case "vendor_id":
			query = query.Where("vendor_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "approval_status":
			query = query.Where("approval_status = ?", value)
		case "requires_approval":
			query = query.Where("requires_approval = ?", value)
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, ThreeWayMatchSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// Ensure GormThreeWayMatchRepository implements ThreeWayMatchRepository
var _ procurement.ThreeWayMatchRepository = (*GormThreeWayMatchRepository)(nil)
