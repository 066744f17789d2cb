package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormVendorPaymentRepository implements VendorPaymentRepository using GORM
type GormVendorPaymentRepository struct {
	db *gorm.DB
}

// NewGormVendorPaymentRepository creates a new GormVendorPaymentRepository
func NewGormVendorPaymentRepository(db *gorm.DB) *GormVendorPaymentRepository {
	return &GormVendorPaymentRepository{db: db}
}

// FindByIDForTenant finds a payment by ID within a tenant
func (r *GormVendorPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.VendorPayment, error) {
	var payment procurement.VendorPayment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// FindByBill finds payments allocated against a bill
func (r *GormVendorPaymentRepository) FindByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]procurement.VendorPayment, error) {
	var payments []procurement.VendorPayment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bill_id = ?", tenantID, billID).
		Order("payment_date DESC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// FindAllForTenant finds all payments for a tenant with filtering
func (r *GormVendorPaymentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.VendorPayment, error) {
	var payments []procurement.VendorPayment
	query := r.db.WithContext(ctx).Model(&procurement.VendorPayment{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Save creates or updates a payment
func (r *GormVendorPaymentRepository) Save(ctx context.Context, payment *procurement.VendorPayment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// applyFilter applies filter options to the query
func (r *GormVendorPaymentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("payment_number ILIKE ? OR bill_number ILIKE ? OR vendor_name ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "bill_id":
			query = query.Where("bill_id = ?", value)
		case "vendor_id":
			query = query.Where("vendor_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "payment_method":
			query = query.Where("payment_method = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("payment_date >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("payment_date <= ?", t)
			}
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, VendorPaymentSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// Ensure GormVendorPaymentRepository implements VendorPaymentRepository
var _ procurement.VendorPaymentRepository = (*GormVendorPaymentRepository)(nil)
