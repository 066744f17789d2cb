package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/procureflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// BillPaymentStatus represents the payment status of a vendor bill
type BillPaymentStatus string

const (
	BillPaymentStatusUnpaid        BillPaymentStatus = "UNPAID"
	BillPaymentStatusPartiallyPaid BillPaymentStatus = "PARTIALLY_PAID"
	BillPaymentStatusPaid          BillPaymentStatus = "PAID"
)

// IsValid checks if the status is a valid BillPaymentStatus
func (s BillPaymentStatus) IsValid() bool {
	switch s {
	case BillPaymentStatusUnpaid, BillPaymentStatusPartiallyPaid, BillPaymentStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of BillPaymentStatus
func (s BillPaymentStatus) String() string {
	return string(s)
}

// BillSourceType identifies where a vendor bill originated
type BillSourceType string

const (
	BillSourceTypeGoodsReceipt BillSourceType = "GOODS_RECEIPT"
	BillSourceTypeExternal     BillSourceType = "EXTERNAL"
)

// IsValid checks if the source type is valid
func (s BillSourceType) IsValid() bool {
	switch s {
	case BillSourceTypeGoodsReceipt, BillSourceTypeExternal:
		return true
	}
	return false
}

// VendorBillLineItem represents a billed line
type VendorBillLineItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	BillID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	GSTRate     decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Quantity * UnitPrice, tax exclusive
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VendorBillLineItem) TableName() string {
	return "vendor_bill_line_items"
}

// NewVendorBillLineItem creates a new bill line item
func NewVendorBillLineItem(billID uuid.UUID, description string, quantity decimal.Decimal, unitPrice valueobject.Money, gstRate decimal.Decimal) (*VendorBillLineItem, error) {
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Line description cannot be empty")
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

	return &VendorBillLineItem{
		ID:          uuid.New(),
		BillID:      billID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice.Amount(),
		GSTRate:     gstRate,
		LineTotal:   quantity.Mul(unitPrice.Amount()).Round(2),
		CreatedAt:   time.Now(),
	}, nil
}

// VendorBill represents a billing document from a vendor.
// Bills are created from a completed goods receipt or registered externally
// (a vendor invoice keyed in for matching).
type VendorBill struct {
	shared.TenantAggregateRoot
	BillNumber        string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_vendor_bill_tenant_number,priority:2"`
	VendorID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	VendorName        string               `gorm:"type:varchar(200);not null"`
	SourceType        BillSourceType       `gorm:"type:varchar(20);not null"`
	SourceID          *uuid.UUID           `gorm:"type:uuid;index"` // goods receipt id when sourced from a receipt
	OrderID           *uuid.UUID           `gorm:"type:uuid;index"`
	LineItems         []VendorBillLineItem `gorm:"foreignKey:BillID;references:ID"`
	Subtotal          decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount         decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount        decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	OutstandingAmount decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentStatus     BillPaymentStatus    `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	Posted            bool                 `gorm:"not null;default:false"` // true once ledger entries have been persisted
	DueDate           *time.Time
	PostedAt          *time.Time
}

// TableName returns the table name for GORM
func (VendorBill) TableName() string {
	return "vendor_bills"
}

// NewVendorBill creates a new vendor bill
func NewVendorBill(tenantID uuid.UUID, billNumber string, vendorID uuid.UUID, vendorName string, sourceType BillSourceType) (*VendorBill, error) {
	if billNumber == "" {
		return nil, shared.NewDomainError("INVALID_BILL_NUMBER", "Bill number cannot be empty")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if vendorName == "" {
		return nil, shared.NewDomainError("INVALID_VENDOR_NAME", "Vendor name cannot be empty")
	}
	if !sourceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Unknown bill source type")
	}

	return &VendorBill{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BillNumber:          billNumber,
		VendorID:            vendorID,
		VendorName:          vendorName,
		SourceType:          sourceType,
		LineItems:           make([]VendorBillLineItem, 0),
		Subtotal:            decimal.Zero,
		TaxAmount:           decimal.Zero,
		TotalAmount:         decimal.Zero,
		PaidAmount:          decimal.Zero,
		OutstandingAmount:   decimal.Zero,
		PaymentStatus:       BillPaymentStatusUnpaid,
	}, nil
}

// SetSource links the bill to its goods receipt and purchase order
func (b *VendorBill) SetSource(receiptID, orderID uuid.UUID) error {
	if b.SourceType != BillSourceTypeGoodsReceipt {
		return shared.NewDomainError("INVALID_SOURCE", "Only receipt-sourced bills can reference a goods receipt")
	}
	if receiptID == uuid.Nil || orderID == uuid.Nil {
		return shared.NewDomainError("INVALID_SOURCE", "Receipt and order IDs cannot be empty")
	}
	b.SourceID = &receiptID
	b.OrderID = &orderID
	b.UpdatedAt = time.Now()
	return nil
}

// AddLineItem adds a billed line, only allowed before posting
func (b *VendorBill) AddLineItem(description string, quantity decimal.Decimal, unitPrice valueobject.Money, gstRate decimal.Decimal) (*VendorBillLineItem, error) {
	if b.Posted {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot modify a posted bill")
	}

	line, err := NewVendorBillLineItem(b.ID, description, quantity, unitPrice, gstRate)
	if err != nil {
		return nil, err
	}

	b.LineItems = append(b.LineItems, *line)
	b.recalculateTotals()
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	return line, nil
}

// MarkPosted records that balanced ledger entries for this bill have been
// persisted. A bill is posted at most once.
func (b *VendorBill) MarkPosted() error {
	if b.Posted {
		return shared.NewDomainError("ALREADY_POSTED", "Bill has already been posted")
	}
	if len(b.LineItems) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot post a bill without line items")
	}

	now := time.Now()
	b.Posted = true
	b.PostedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()

	return nil
}

// ApplyPayment allocates a payment against the bill, reducing the
// outstanding balance and advancing the payment status
func (b *VendorBill) ApplyPayment(amount valueobject.Money) error {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if b.PaymentStatus == BillPaymentStatusPaid {
		return shared.NewDomainError("ALREADY_PAID", "Bill is already fully paid")
	}
	if amount.Amount().GreaterThan(b.OutstandingAmount) {
		return shared.NewDomainError("OVERPAYMENT",
			fmt.Sprintf("Payment %s exceeds outstanding %s", amount.Amount().StringFixed(2), b.OutstandingAmount.StringFixed(2)))
	}

	b.PaidAmount = b.PaidAmount.Add(amount.Amount())
	b.OutstandingAmount = b.OutstandingAmount.Sub(amount.Amount())
	if b.OutstandingAmount.IsZero() {
		b.PaymentStatus = BillPaymentStatusPaid
	} else {
		b.PaymentStatus = BillPaymentStatusPartiallyPaid
	}
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	return nil
}

// SetDueDate sets the bill due date
func (b *VendorBill) SetDueDate(due time.Time) {
	b.DueDate = &due
	b.UpdatedAt = time.Now()
}

// LineDescriptions returns the descriptions of all line items, in order
func (b *VendorBill) LineDescriptions() []string {
	descriptions := make([]string, len(b.LineItems))
	for idx, line := range b.LineItems {
		descriptions[idx] = line.Description
	}
	return descriptions
}

// GetTotalAmountMoney returns the bill total as Money
func (b *VendorBill) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(b.TotalAmount)
}

// GetOutstandingMoney returns the outstanding balance as Money
func (b *VendorBill) GetOutstandingMoney() valueobject.Money {
	return valueobject.NewMoneyINR(b.OutstandingAmount)
}

// recalculateTotals recalculates subtotal, tax and totals from the lines
func (b *VendorBill) recalculateTotals() {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range b.LineItems {
		subtotal = subtotal.Add(line.LineTotal)
		tax = tax.Add(line.LineTotal.Mul(line.GSTRate).Div(decimal.NewFromInt(100)))
	}
	b.Subtotal = subtotal
	b.TaxAmount = tax.Round(2)
	b.TotalAmount = b.Subtotal.Add(b.TaxAmount)
	b.OutstandingAmount = b.TotalAmount.Sub(b.PaidAmount)
}
