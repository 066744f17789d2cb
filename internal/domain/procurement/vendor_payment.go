package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/procureflow/backend/internal/domain/shared/valueobject"
)

// PaymentMethod represents how a vendor payment is made
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodUPI          PaymentMethod = "UPI"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCheque, PaymentMethodUPI:
		return true
	}
	return false
}

func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentStatus represents the state of a vendor payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusCancelled:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is allowed
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusCancelled
}

// VendorPayment represents an outgoing payment allocated against a vendor bill
type VendorPayment struct {
	shared.TenantAggregateRoot
	PaymentNumber   string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_tenant_number,priority:2"`
	BillID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	BillNumber      string          `gorm:"type:varchar(50);not null"` // Denormalized for display
	VendorID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	VendorName      string          `gorm:"type:varchar(200);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(30);not null"`
	BankAccountCode string          `gorm:"type:varchar(20);not null"`
	Status          PaymentStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaymentDate     time.Time       `gorm:"not null"`
	Reference       string          `gorm:"type:varchar(100)"` // Bank transaction / cheque number
	CompletedAt     *time.Time
	CompletedBy     *uuid.UUID `gorm:"type:uuid"`
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (VendorPayment) TableName() string {
	return "vendor_payments"
}

// NewVendorPayment creates a payment allocated against a single bill
func NewVendorPayment(
	tenantID uuid.UUID,
	paymentNumber string,
	billID uuid.UUID,
	billNumber string,
	vendorID uuid.UUID,
	vendorName string,
	amount valueobject.Money,
	method PaymentMethod,
	bankAccountCode string,
) (*VendorPayment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if billID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BILL", "Bill ID cannot be empty")
	}
	if billNumber == "" {
		return nil, shared.NewDomainError("INVALID_BILL_NUMBER", "Bill number is required")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if vendorName == "" {
		return nil, shared.NewDomainError("INVALID_VENDOR_NAME", "Vendor name cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if bankAccountCode == "" {
		return nil, shared.NewDomainError("INVALID_BANK_ACCOUNT", "Bank account code is required")
	}

	vp := &VendorPayment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PaymentNumber:       paymentNumber,
		BillID:              billID,
		BillNumber:          billNumber,
		VendorID:            vendorID,
		VendorName:          vendorName,
		Amount:              amount.Amount(),
		PaymentMethod:       method,
		BankAccountCode:     bankAccountCode,
		Status:              PaymentStatusPending,
		PaymentDate:         time.Now(),
	}

	vp.AddDomainEvent(NewVendorPaymentCreatedEvent(vp))

	return vp, nil
}

// Complete marks the payment as executed
func (vp *VendorPayment) Complete(completedBy uuid.UUID, reference string) error {
	if vp.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete payment in %s status", vp.Status))
	}
	if completedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Completing user ID is required")
	}
	if len(reference) > 100 {
		return shared.NewDomainError("INVALID_REFERENCE", "Payment reference cannot exceed 100 characters")
	}

	now := time.Now()
	vp.Status = PaymentStatusCompleted
	vp.Reference = reference
	vp.CompletedAt = &now
	vp.CompletedBy = &completedBy
	vp.UpdatedAt = now
	vp.IncrementVersion()

	vp.AddDomainEvent(NewVendorPaymentCompletedEvent(vp))

	return nil
}

// Cancel cancels a pending payment
func (vp *VendorPayment) Cancel(reason string) error {
	if vp.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel payment in %s status", vp.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	vp.Status = PaymentStatusCancelled
	vp.CancelledAt = &now
	vp.CancelReason = reason
	vp.UpdatedAt = now
	vp.IncrementVersion()

	return nil
}

// GetAmountMoney returns the payment amount as Money
func (vp *VendorPayment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(vp.Amount)
}
