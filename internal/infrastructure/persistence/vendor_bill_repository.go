package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormVendorBillRepository implements VendorBillRepository using GORM
type GormVendorBillRepository struct {
	db *gorm.DB
}

// NewGormVendorBillRepository creates a new GormVendorBillRepository
func NewGormVendorBillRepository(db *gorm.DB) *GormVendorBillRepository {
	return &GormVendorBillRepository{db: db}
}

// FindByIDForTenant finds a vendor bill by ID within a tenant
func (r *GormVendorBillRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.VendorBill, error) {
	var bill procurement.VendorBill
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&bill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &bill, nil
}

// FindByReceipt finds the bill created from a goods receipt, if any
func (r *GormVendorBillRepository) FindByReceipt(ctx context.Context, tenantID, receiptID uuid.UUID) (*procurement.VendorBill, error) {
	var bill procurement.VendorBill
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("tenant_id = ? AND source_type = ? AND source_id = ?",
			tenantID, procurement.BillSourceTypeGoodsReceipt, receiptID).
		First(&bill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &bill, nil
}

// FindAllForTenant finds all bills for a tenant with filtering
func (r *GormVendorBillRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.VendorBill, error) {
	var bills []procurement.VendorBill
	query := r.db.WithContext(ctx).Model(&procurement.VendorBill{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Preload("LineItems").Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

// Save creates or updates a vendor bill together with its line items
func (r *GormVendorBillRepository) Save(ctx context.Context, bill *procurement.VendorBill) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveBillInTx(tx, bill)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormVendorBillRepository) SaveWithLock(ctx context.Context, bill *procurement.VendorBill) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveBillWithLockInTx(tx, bill)
	})
}

// saveBillInTx persists the bill header and line items inside an open
// transaction. Shared with the posting stores.
func saveBillInTx(tx *gorm.DB, bill *procurement.VendorBill) error {
	if err := tx.Omit("LineItems").Save(bill).Error; err != nil {
		return err
	}
	for i := range bill.LineItems {
		bill.LineItems[i].BillID = bill.ID
		if err := tx.Save(&bill.LineItems[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// saveBillWithLockInTx updates the bill header with a version check.
// Line items are immutable after creation and are not rewritten here.
func saveBillWithLockInTx(tx *gorm.DB, bill *procurement.VendorBill) error {
	result := tx.Model(&procurement.VendorBill{}).
		Where("id = ? AND version = ?", bill.ID, bill.Version-1).
		Updates(map[string]interface{}{
			"paid_amount":        bill.PaidAmount,
			"outstanding_amount": bill.OutstandingAmount,
			"payment_status":     bill.PaymentStatus,
			"posted":             bill.Posted,
			"posted_at":          bill.PostedAt,
			"version":            bill.Version,
			"updated_at":         bill.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The bill has been modified by another user")
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormVendorBillRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("bill_number ILIKE ? OR vendor_name ILIKE ?",
			searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "vendor_id":
			query = query.Where("vendor_id = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "source_type":
			query = query.Where("source_type = ?", value)
		case "payment_status":
			query = query.Where("payment_status = ?", value)
		case "posted":
			query = query.Where("posted = ?", value)
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, VendorBillSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// Ensure GormVendorBillRepository implements VendorBillRepository
var _ procurement.VendorBillRepository = (*GormVendorBillRepository)(nil)
