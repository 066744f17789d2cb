package procurement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
)

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByIDForTenant finds a purchase order by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseOrder, error)

	// FindByOrderNumber finds a purchase order by order number for a tenant
	FindByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*PurchaseOrder, error)

	// FindAllForTenant finds all purchase orders for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]PurchaseOrder, error)

	// Save creates or updates a purchase order
	Save(ctx context.Context, order *PurchaseOrder) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, order *PurchaseOrder) error
}

// GoodsReceiptRepository defines the interface for goods receipt persistence
type GoodsReceiptRepository interface {
	// FindByIDForTenant finds a goods receipt by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*GoodsReceipt, error)

	// FindByOrder finds all receipts against a purchase order
	FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]GoodsReceipt, error)

	// FindAllForTenant finds all receipts for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]GoodsReceipt, error)

	// Save creates or updates a goods receipt
	Save(ctx context.Context, receipt *GoodsReceipt) error

	// SaveWithOrder persists the receipt and the order's updated receiving
	// totals in one transaction
	SaveWithOrder(ctx context.Context, receipt *GoodsReceipt, order *PurchaseOrder) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, receipt *GoodsReceipt) error

	// ClaimBillCreation atomically claims the receipt's bill reference inside
	// a serializable transaction: it re-reads the stored claim, fails with a
	// conflict if the claim is no longer unset, and writes the sentinel
	// otherwise. Exactly one of two concurrent callers succeeds.
	ClaimBillCreation(ctx context.Context, tenantID, receiptID uuid.UUID) error

	// ReleaseBillClaim clears a previously written claim sentinel so a
	// failed bill creation can be retried
	ReleaseBillClaim(ctx context.Context, tenantID, receiptID uuid.UUID) error
}

// VendorBillRepository defines the interface for vendor bill persistence
type VendorBillRepository interface {
	// FindByIDForTenant finds a vendor bill by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*VendorBill, error)

	// FindByReceipt finds the bill created from a goods receipt, if any
	FindByReceipt(ctx context.Context, tenantID, receiptID uuid.UUID) (*VendorBill, error)

	// FindAllForTenant finds all bills for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]VendorBill, error)

	// Save creates or updates a vendor bill
	Save(ctx context.Context, bill *VendorBill) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, bill *VendorBill) error
}

// ThreeWayMatchRepository defines the interface for match persistence
type ThreeWayMatchRepository interface {
	// FindByIDForTenant finds a match by ID for a specific tenant,
	// including its line items and discrepancies
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ThreeWayMatch, error)

	// FindByBill finds matches run against a bill
	FindByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]ThreeWayMatch, error)

	// FindAllForTenant finds all matches for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]ThreeWayMatch, error)

	// Save persists the match together with its line items and
	// discrepancies as a single atomic batch
	Save(ctx context.Context, match *ThreeWayMatch) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, match *ThreeWayMatch) error
}

// ToleranceConfigRepository defines the interface for tolerance policies
type ToleranceConfigRepository interface {
	// FindActiveForTenant returns the tenant's active tolerance policy,
	// or shared.ErrNotFound when none is configured
	FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) (*ToleranceConfig, error)

	// FindByIDForTenant finds a tolerance config by ID
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ToleranceConfig, error)

	// Save creates or updates a tolerance config
	Save(ctx context.Context, config *ToleranceConfig) error
}

// VendorPaymentRepository defines the interface for payment persistence
type VendorPaymentRepository interface {
	// FindByIDForTenant finds a payment by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*VendorPayment, error)

	// FindByBill finds payments allocated against a bill
	FindByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]VendorPayment, error)

	// FindAllForTenant finds all payments for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]VendorPayment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *VendorPayment) error
}

// DocumentType identifies a numbered document for sequence generation
type DocumentType string

const (
	DocumentTypeGoodsReceipt DocumentType = "GR"
	DocumentTypeVendorBill   DocumentType = "BILL"
	DocumentTypeMatch        DocumentType = "TWM"
	DocumentTypePayment      DocumentType = "PAY"
)

// SequenceGenerator produces human-readable document numbers
// (TYPE/YYYY/MM/NNNN) scoped by document type and month. Implementations
// must increment atomically under concurrent callers.
type SequenceGenerator interface {
	Next(ctx context.Context, tenantID uuid.UUID, docType DocumentType, t time.Time) (string, error)
}
