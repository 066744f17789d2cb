package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormGoodsReceiptRepository implements GoodsReceiptRepository using GORM
type GormGoodsReceiptRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormGoodsReceiptRepository creates a new GormGoodsReceiptRepository
func NewGormGoodsReceiptRepository(db *gorm.DB) *GormGoodsReceiptRepository {
	return &GormGoodsReceiptRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormGoodsReceiptRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByIDForTenant finds a goods receipt by ID within a tenant
func (r *GormGoodsReceiptRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.GoodsReceipt, error) {
	var receipt procurement.GoodsReceipt
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&receipt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// FindByOrder finds all receipts against a purchase order
func (r *GormGoodsReceiptRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]procurement.GoodsReceipt, error) {
	var receipts []procurement.GoodsReceipt
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("created_at ASC").
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// FindAllForTenant finds all receipts for a tenant with filtering
func (r *GormGoodsReceiptRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.GoodsReceipt, error) {
	var receipts []procurement.GoodsReceipt
	query := r.db.WithContext(ctx).Model(&procurement.GoodsReceipt{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Preload("Items").Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// Save creates or updates a goods receipt together with its items
func (r *GormGoodsReceiptRepository) Save(ctx context.Context, receipt *procurement.GoodsReceipt) error {
	events := receipt.GetDomainEvents()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveReceiptInTx(tx, receipt); err != nil {
			return err
		}
		return r.saveEventsInTx(ctx, tx, events)
	})
	if err == nil {
		receipt.ClearDomainEvents()
	}
	return err
}

// SaveWithOrder persists the receipt and the order's updated receiving
// totals in one transaction
func (r *GormGoodsReceiptRepository) SaveWithOrder(ctx context.Context, receipt *procurement.GoodsReceipt, order *procurement.PurchaseOrder) error {
	events := receipt.GetDomainEvents()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveReceiptInTx(tx, receipt); err != nil {
			return err
		}
		if err := saveOrderWithLockInTx(tx, order); err != nil {
			return err
		}
		return r.saveEventsInTx(ctx, tx, events)
	})
	if err == nil {
		receipt.ClearDomainEvents()
	}
	return err
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormGoodsReceiptRepository) SaveWithLock(ctx context.Context, receipt *procurement.GoodsReceipt) error {
	events := receipt.GetDomainEvents()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveReceiptWithLockInTx(tx, receipt); err != nil {
			return err
		}
		return r.saveEventsInTx(ctx, tx, events)
	})
	if err == nil {
		receipt.ClearDomainEvents()
	}
	return err
}

// saveEventsInTx writes domain events to the outbox within the same transaction
func (r *GormGoodsReceiptRepository) saveEventsInTx(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

// ClaimBillCreation writes the claim sentinel into the receipt's bill
// reference. The row is locked for the duration of the transaction and the
// stored claim re-checked under the lock, so of two concurrent claimants
// exactly one sees the column unset and wins.
func (r *GormGoodsReceiptRepository) ClaimBillCreation(ctx context.Context, tenantID, receiptID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current procurement.GoodsReceipt
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND id = ?", tenantID, receiptID).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if !current.BillRef.IsUnset() {
			return shared.ErrConcurrencyConflict
		}
		if current.Status != procurement.GoodsReceiptStatusCompleted {
			return shared.NewDomainError("INVALID_STATE", "Cannot create a bill for an incomplete receipt")
		}

		result := tx.Model(&procurement.GoodsReceipt{}).
			Where("id = ?", receiptID).
			Updates(map[string]interface{}{
				"bill_ref":   procurement.ClaimedBill(),
				"version":    current.Version + 1,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// ReleaseBillClaim clears a previously written claim sentinel so a failed
// bill creation can be retried. Releasing a settled reference is refused.
func (r *GormGoodsReceiptRepository) ReleaseBillClaim(ctx context.Context, tenantID, receiptID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current procurement.GoodsReceipt
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND id = ?", tenantID, receiptID).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if !current.BillRef.IsClaimed() {
			return shared.NewDomainError("INVALID_STATE", "No bill claim to release")
		}

		result := tx.Model(&procurement.GoodsReceipt{}).
			Where("id = ?", receiptID).
			Updates(map[string]interface{}{
				"bill_ref":   procurement.UnclaimedBill(),
				"version":    current.Version + 1,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// saveReceiptInTx persists the receipt header and items inside an open
// transaction
func saveReceiptInTx(tx *gorm.DB, receipt *procurement.GoodsReceipt) error {
	if err := tx.Omit("Items").Save(receipt).Error; err != nil {
		return err
	}
	return saveReceiptItemsInTx(tx, receipt)
}

// saveReceiptWithLockInTx updates the receipt header with a version check
// and then rewrites its items
func saveReceiptWithLockInTx(tx *gorm.DB, receipt *procurement.GoodsReceipt) error {
	result := tx.Model(&procurement.GoodsReceipt{}).
		Where("id = ? AND version = ?", receipt.ID, receipt.Version-1).
		Updates(map[string]interface{}{
			"status":               receipt.Status,
			"overall_condition":    receipt.OverallCondition,
			"inspection_note":      receipt.InspectionNote,
			"approved_for_payment": receipt.ApprovedForPayment,
			"bill_ref":             receipt.BillRef,
			"completed_at":         receipt.CompletedAt,
			"payment_approved_at":  receipt.PaymentApprovedAt,
			"payment_approved_by":  receipt.PaymentApprovedBy,
			"version":              receipt.Version,
			"updated_at":           receipt.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The receipt has been modified by another user")
	}
	return saveReceiptItemsInTx(tx, receipt)
}

func saveReceiptItemsInTx(tx *gorm.DB, receipt *procurement.GoodsReceipt) error {
	for i := range receipt.Items {
		receipt.Items[i].ReceiptID = receipt.ID
		if err := tx.Save(&receipt.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormGoodsReceiptRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("receipt_number ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "vendor_id":
			query = query.Where("vendor_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "condition":
			query = query.Where("overall_condition = ?", value)
		case "approved_for_payment":
			query = query.Where("approved_for_payment = ?", value)
		case "awaiting_bill":
			if value == true {
				query = query.Where("status = ? AND bill_ref IS NULL", procurement.GoodsReceiptStatusCompleted)
			}
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, GoodsReceiptSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// Ensure GormGoodsReceiptRepository implements GoodsReceiptRepository
var _ procurement.GoodsReceiptRepository = (*GormGoodsReceiptRepository)(nil)
