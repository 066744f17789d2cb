package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/procureflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus represents the status of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft           PurchaseOrderStatus = "DRAFT"
	PurchaseOrderStatusConfirmed       PurchaseOrderStatus = "CONFIRMED"
	PurchaseOrderStatusPartialReceived PurchaseOrderStatus = "PARTIAL_RECEIVED"
	PurchaseOrderStatusCompleted       PurchaseOrderStatus = "COMPLETED"
	PurchaseOrderStatusCancelled       PurchaseOrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusDraft, PurchaseOrderStatusConfirmed, PurchaseOrderStatusPartialReceived,
		PurchaseOrderStatusCompleted, PurchaseOrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PurchaseOrderStatus
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// CanReceive returns true if goods can be received against this status
func (s PurchaseOrderStatus) CanReceive() bool {
	return s == PurchaseOrderStatusConfirmed || s == PurchaseOrderStatusPartialReceived
}

// PurchaseOrderItem represents an ordered line with running receiving totals.
// DeliveredQuantity/AcceptedQuantity/RejectedQuantity are mutated by goods
// receipt creation; everything else is immutable after confirmation.
type PurchaseOrderItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null"`
	Description       string          `gorm:"type:varchar(500);not null"`
	OrderedQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	GSTRate           decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"` // percent, e.g. 18
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`          // OrderedQuantity * UnitPrice
	DeliveredQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AcceptedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RejectedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// NewPurchaseOrderItem creates a new purchase order item
func NewPurchaseOrderItem(orderID, productID uuid.UUID, description string, quantity decimal.Decimal, unitPrice valueobject.Money, gstRate decimal.Decimal) (*PurchaseOrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Item description cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.Amount().IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if gstRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_GST_RATE", "GST rate cannot be negative")
	}

	now := time.Now()
	return &PurchaseOrderItem{
		ID:                uuid.New(),
		OrderID:           orderID,
		ProductID:         productID,
		Description:       description,
		OrderedQuantity:   quantity,
		UnitPrice:         unitPrice.Amount(),
		GSTRate:           gstRate,
		Amount:            quantity.Mul(unitPrice.Amount()).Round(2),
		DeliveredQuantity: decimal.Zero,
		AcceptedQuantity:  decimal.Zero,
		RejectedQuantity:  decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// RemainingQuantity returns the quantity still to be delivered
func (i *PurchaseOrderItem) RemainingQuantity() decimal.Decimal {
	remaining := i.OrderedQuantity.Sub(i.DeliveredQuantity)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsFullyDelivered returns true if all ordered quantity has been delivered
func (i *PurchaseOrderItem) IsFullyDelivered() bool {
	return i.DeliveredQuantity.GreaterThanOrEqual(i.OrderedQuantity)
}

// RecordDelivery adds a goods receipt line to the item's running totals
func (i *PurchaseOrderItem) RecordDelivery(received, accepted, rejected decimal.Decimal) error {
	if received.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Received quantity must be positive")
	}
	if accepted.IsNegative() || rejected.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Accepted and rejected quantities cannot be negative")
	}
	if !accepted.Add(rejected).Equal(received) {
		return shared.NewDomainError("INVALID_QUANTITY", "Accepted plus rejected must equal received quantity")
	}

	i.DeliveredQuantity = i.DeliveredQuantity.Add(received)
	i.AcceptedQuantity = i.AcceptedQuantity.Add(accepted)
	i.RejectedQuantity = i.RejectedQuantity.Add(rejected)
	i.UpdatedAt = time.Now()

	return nil
}

// GetUnitPriceMoney returns the unit price as Money value object
func (i *PurchaseOrderItem) GetUnitPriceMoney() valueobject.Money {
	return valueobject.NewMoneyINR(i.UnitPrice)
}

// PurchaseOrder represents the commitment to a vendor.
// The reconciliation core treats it as read-mostly: only the per-item
// receiving totals are mutated, by goods receipt creation.
type PurchaseOrder struct {
	shared.TenantAggregateRoot
	OrderNumber string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_purchase_order_tenant_number,priority:2"`
	VendorID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	VendorName  string              `gorm:"type:varchar(200);not null"`
	OwnerID     uuid.UUID           `gorm:"type:uuid;not null"` // user responsible for the order
	Items       []PurchaseOrderItem `gorm:"foreignKey:OrderID;references:ID"`
	Subtotal    decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount   decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	GrandTotal  decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Interstate  bool                `gorm:"not null;default:false"` // IGST when true, CGST/SGST split otherwise
	Status      PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	ConfirmedAt *time.Time          `gorm:"index"`
	CompletedAt *time.Time
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// NewPurchaseOrder creates a new purchase order
func NewPurchaseOrder(tenantID uuid.UUID, orderNumber string, vendorID uuid.UUID, vendorName string, ownerID uuid.UUID, interstate bool) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if vendorName == "" {
		return nil, shared.NewDomainError("INVALID_VENDOR_NAME", "Vendor name cannot be empty")
	}
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}

	return &PurchaseOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderNumber:         orderNumber,
		VendorID:            vendorID,
		VendorName:          vendorName,
		OwnerID:             ownerID,
		Items:               make([]PurchaseOrderItem, 0),
		Subtotal:            decimal.Zero,
		TaxAmount:           decimal.Zero,
		GrandTotal:          decimal.Zero,
		Interstate:          interstate,
		Status:              PurchaseOrderStatusDraft,
	}, nil
}

// AddItem adds a new item to the order, only allowed in DRAFT status
func (o *PurchaseOrder) AddItem(productID uuid.UUID, description string, quantity decimal.Decimal, unitPrice valueobject.Money, gstRate decimal.Decimal) (*PurchaseOrderItem, error) {
	if o.Status != PurchaseOrderStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a non-draft order")
	}

	item, err := NewPurchaseOrderItem(o.ID, productID, description, quantity, unitPrice, gstRate)
	if err != nil {
		return nil, err
	}

	o.Items = append(o.Items, *item)
	o.recalculateTotals()
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return item, nil
}

// Confirm confirms the order, transitioning from DRAFT to CONFIRMED
func (o *PurchaseOrder) Confirm() error {
	if o.Status != PurchaseOrderStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm order in %s status", o.Status))
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot confirm order without items")
	}

	now := time.Now()
	o.Status = PurchaseOrderStatusConfirmed
	o.ConfirmedAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()

	return nil
}

// RecordDelivery applies a goods receipt line to the matching order item
// and advances the order status when all items are fully delivered
func (o *PurchaseOrder) RecordDelivery(itemID uuid.UUID, received, accepted, rejected decimal.Decimal) error {
	if !o.Status.CanReceive() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot receive goods for order in %s status", o.Status))
	}

	item := o.GetItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Order item not found")
	}
	if err := item.RecordDelivery(received, accepted, rejected); err != nil {
		return err
	}

	if o.isAllItemsDelivered() {
		o.Status = PurchaseOrderStatusCompleted
		now := time.Now()
		o.CompletedAt = &now
	} else {
		o.Status = PurchaseOrderStatusPartialReceived
	}

	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return nil
}

// GetItem returns an item by its ID
func (o *PurchaseOrder) GetItem(itemID uuid.UUID) *PurchaseOrderItem {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx]
		}
	}
	return nil
}

// GetItemByProduct returns an item by product ID
func (o *PurchaseOrder) GetItemByProduct(productID uuid.UUID) *PurchaseOrderItem {
	for idx := range o.Items {
		if o.Items[idx].ProductID == productID {
			return &o.Items[idx]
		}
	}
	return nil
}

// recalculateTotals recalculates subtotal, tax and grand total from the items
func (o *PurchaseOrder) recalculateTotals() {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Amount)
		tax = tax.Add(item.Amount.Mul(item.GSTRate).Div(decimal.NewFromInt(100)))
	}
	o.Subtotal = subtotal
	o.TaxAmount = tax.Round(2)
	o.GrandTotal = o.Subtotal.Add(o.TaxAmount)
}

// isAllItemsDelivered checks if all items have been fully delivered
func (o *PurchaseOrder) isAllItemsDelivered() bool {
	for _, item := range o.Items {
		if !item.IsFullyDelivered() {
			return false
		}
	}
	return len(o.Items) > 0
}

// GetGrandTotalMoney returns the grand total as Money
func (o *PurchaseOrder) GetGrandTotalMoney() valueobject.Money {
	return valueobject.NewMoneyINR(o.GrandTotal)
}
