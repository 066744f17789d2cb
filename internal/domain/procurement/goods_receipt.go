package procurement

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// GoodsReceiptStatus represents the status of a goods receipt
type GoodsReceiptStatus string

const (
	GoodsReceiptStatusInProgress GoodsReceiptStatus = "IN_PROGRESS"
	GoodsReceiptStatusCompleted  GoodsReceiptStatus = "COMPLETED"
)

// IsValid checks if the status is a valid GoodsReceiptStatus
func (s GoodsReceiptStatus) IsValid() bool {
	switch s {
	case GoodsReceiptStatusInProgress, GoodsReceiptStatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of GoodsReceiptStatus
func (s GoodsReceiptStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Receipt status only moves forward.
func (s GoodsReceiptStatus) CanTransitionTo(target GoodsReceiptStatus) bool {
	return s == GoodsReceiptStatusInProgress && target == GoodsReceiptStatusCompleted
}

// ItemCondition describes the inspected condition of a received line
type ItemCondition string

const (
	ItemConditionGood    ItemCondition = "GOOD"
	ItemConditionDamaged ItemCondition = "DAMAGED"
	ItemConditionPartial ItemCondition = "PARTIAL"
)

// IsValid checks if the condition is a valid ItemCondition
func (c ItemCondition) IsValid() bool {
	switch c {
	case ItemConditionGood, ItemConditionDamaged, ItemConditionPartial:
		return true
	}
	return false
}

// BillClaimState identifies the state of a receipt's bill reference
type BillClaimState string

const (
	BillClaimStateUnset   BillClaimState = "UNSET"   // no bill creation attempted
	BillClaimStateClaimed BillClaimState = "CLAIMED" // bill creation in flight
	BillClaimStateSet     BillClaimState = "SET"     // bill persisted, id recorded
)

// billClaimSentinel is the stored representation of an in-flight claim
const billClaimSentinel = "CLAIMED"

// BillClaim is the three-state bill reference on a goods receipt:
// unset, claimed (bill creation in flight) or set to a real bill id.
// Modelling the claim explicitly keeps the sentinel out of calling code.
type BillClaim struct {
	state  BillClaimState
	billID uuid.UUID
}

// UnclaimedBill returns a BillClaim in the unset state
func UnclaimedBill() BillClaim {
	return BillClaim{state: BillClaimStateUnset}
}

// ClaimedBill returns a BillClaim in the claimed state
func ClaimedBill() BillClaim {
	return BillClaim{state: BillClaimStateClaimed}
}

// SettledBill returns a BillClaim pointing at a persisted bill
func SettledBill(billID uuid.UUID) BillClaim {
	return BillClaim{state: BillClaimStateSet, billID: billID}
}

// State returns the claim state
func (b BillClaim) State() BillClaimState {
	return b.state
}

// IsUnset returns true if no bill creation has been attempted
func (b BillClaim) IsUnset() bool {
	return b.state == BillClaimStateUnset || b.state == ""
}

// IsClaimed returns true if a bill creation is in flight
func (b BillClaim) IsClaimed() bool {
	return b.state == BillClaimStateClaimed
}

// IsSet returns true if a bill id has been recorded
func (b BillClaim) IsSet() bool {
	return b.state == BillClaimStateSet
}

// BillID returns the bill id and true when the claim is settled
func (b BillClaim) BillID() (uuid.UUID, bool) {
	if !b.IsSet() {
		return uuid.Nil, false
	}
	return b.billID, true
}

// String returns the stored representation of the claim
func (b BillClaim) String() string {
	switch b.state {
	case BillClaimStateClaimed:
		return billClaimSentinel
	case BillClaimStateSet:
		return b.billID.String()
	}
	return ""
}

// Value implements driver.Valuer for database storage
func (b BillClaim) Value() (driver.Value, error) {
	if b.IsUnset() {
		return nil, nil
	}
	return b.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (b *BillClaim) Scan(value any) error {
	if value == nil {
		*b = UnclaimedBill()
		return nil
	}
	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	default:
		return fmt.Errorf("cannot scan %T into BillClaim", value)
	}
	if strVal == "" {
		*b = UnclaimedBill()
		return nil
	}
	if strVal == billClaimSentinel {
		*b = ClaimedBill()
		return nil
	}
	id, err := uuid.Parse(strVal)
	if err != nil {
		return fmt.Errorf("invalid bill reference %q: %w", strVal, err)
	}
	*b = SettledBill(id)
	return nil
}

// GoodsReceiptItem represents a received line, immutable once created
type GoodsReceiptItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReceiptID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderItemID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null"`
	Description   string          `gorm:"type:varchar(500);not null"`
	ReceivedQty   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AcceptedQty   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RejectedQty   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Condition     ItemCondition   `gorm:"type:varchar(20);not null"`
	RejectionNote string          `gorm:"type:varchar(500)"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (GoodsReceiptItem) TableName() string {
	return "goods_receipt_items"
}

// NewGoodsReceiptItem creates a new goods receipt item
func NewGoodsReceiptItem(receiptID, orderItemID, productID uuid.UUID, description string, received, accepted, rejected decimal.Decimal, condition ItemCondition) (*GoodsReceiptItem, error) {
	if orderItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER_ITEM", "Order item ID cannot be empty")
	}
	if received.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Received quantity must be positive")
	}
	if accepted.IsNegative() || rejected.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Accepted and rejected quantities cannot be negative")
	}
	if !accepted.Add(rejected).Equal(received) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Accepted plus rejected must equal received quantity")
	}
	if !condition.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONDITION", "Unknown item condition")
	}

	return &GoodsReceiptItem{
		ID:          uuid.New(),
		ReceiptID:   receiptID,
		OrderItemID: orderItemID,
		ProductID:   productID,
		Description: description,
		ReceivedQty: received,
		AcceptedQty: accepted,
		RejectedQty: rejected,
		Condition:   condition,
		CreatedAt:   time.Now(),
	}, nil
}

// GoodsReceipt represents a physical receipt event against a purchase order.
// Status only advances (IN_PROGRESS -> COMPLETED); ApprovedForPayment flips
// once and only from COMPLETED; BillRef is set at most once through the
// claim-then-create lock.
type GoodsReceipt struct {
	shared.TenantAggregateRoot
	ReceiptNumber      string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_goods_receipt_tenant_number,priority:2"`
	OrderID            uuid.UUID          `gorm:"type:uuid;not null;index"`
	VendorID           uuid.UUID          `gorm:"type:uuid;not null;index"`
	Items              []GoodsReceiptItem `gorm:"foreignKey:ReceiptID;references:ID"`
	Status             GoodsReceiptStatus `gorm:"type:varchar(20);not null;default:'IN_PROGRESS'"`
	OverallCondition   ItemCondition      `gorm:"type:varchar(20);not null;default:'GOOD'"`
	InspectionNote     string             `gorm:"type:varchar(1000)"`
	ApprovedForPayment bool               `gorm:"not null;default:false"`
	BillRef            BillClaim          `gorm:"type:varchar(50)"`
	ReceivedBy         uuid.UUID          `gorm:"type:uuid;not null"`
	CompletedAt        *time.Time
	PaymentApprovedAt  *time.Time
	PaymentApprovedBy  *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (GoodsReceipt) TableName() string {
	return "goods_receipts"
}

// NewGoodsReceipt creates a new goods receipt in IN_PROGRESS status
func NewGoodsReceipt(tenantID uuid.UUID, receiptNumber string, orderID, vendorID, receivedBy uuid.UUID) (*GoodsReceipt, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if receivedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RECEIVER", "Receiver ID cannot be empty")
	}

	return &GoodsReceipt{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ReceiptNumber:       receiptNumber,
		OrderID:             orderID,
		VendorID:            vendorID,
		Items:               make([]GoodsReceiptItem, 0),
		Status:              GoodsReceiptStatusInProgress,
		OverallCondition:    ItemConditionGood,
		ApprovedForPayment:  false,
		BillRef:             UnclaimedBill(),
		ReceivedBy:          receivedBy,
	}, nil
}

// AddItem adds a received line, only allowed while IN_PROGRESS
func (r *GoodsReceipt) AddItem(orderItemID, productID uuid.UUID, description string, received, accepted, rejected decimal.Decimal, condition ItemCondition) (*GoodsReceiptItem, error) {
	if r.Status != GoodsReceiptStatusInProgress {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a completed receipt")
	}
	for _, item := range r.Items {
		if item.OrderItemID == orderItemID {
			return nil, shared.NewDomainError("DUPLICATE_ITEM", "Order item already received on this receipt")
		}
	}

	item, err := NewGoodsReceiptItem(r.ID, orderItemID, productID, description, received, accepted, rejected, condition)
	if err != nil {
		return nil, err
	}

	r.Items = append(r.Items, *item)
	r.recalculateOverallCondition()
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return item, nil
}

// Complete transitions the receipt to COMPLETED
func (r *GoodsReceipt) Complete(note string) error {
	if !r.Status.CanTransitionTo(GoodsReceiptStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete receipt in %s status", r.Status))
	}
	if len(r.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot complete receipt without items")
	}

	now := time.Now()
	r.Status = GoodsReceiptStatusCompleted
	r.InspectionNote = note
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewGoodsReceiptCompletedEvent(r))

	return nil
}

// ClaimBillCreation atomically marks the receipt as having a bill creation
// in flight. Callers must persist the receipt inside a transaction that
// re-checks the stored claim, so two concurrent creators cannot both succeed.
func (r *GoodsReceipt) ClaimBillCreation() error {
	if r.Status != GoodsReceiptStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", "Cannot create a bill for an incomplete receipt")
	}
	if r.BillRef.IsClaimed() {
		return shared.NewDomainError("BILL_CREATION_IN_PROGRESS", "Bill creation already in progress for this receipt")
	}
	if r.BillRef.IsSet() {
		return shared.NewDomainError("BILL_ALREADY_EXISTS", "A bill already exists for this receipt")
	}

	r.BillRef = ClaimedBill()
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// ReleaseBillClaim clears an in-flight claim after a failed bill creation
// so a later retry can succeed
func (r *GoodsReceipt) ReleaseBillClaim() error {
	if !r.BillRef.IsClaimed() {
		return shared.NewDomainError("INVALID_STATE", "No bill claim to release")
	}

	r.BillRef = UnclaimedBill()
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// AttachBill replaces an in-flight claim with the persisted bill id
func (r *GoodsReceipt) AttachBill(billID uuid.UUID) error {
	if billID == uuid.Nil {
		return shared.NewDomainError("INVALID_BILL", "Bill ID cannot be empty")
	}
	if !r.BillRef.IsClaimed() {
		return shared.NewDomainError("INVALID_STATE", "Receipt has no bill claim to settle")
	}

	r.BillRef = SettledBill(billID)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// ApprovePayment flips the payment approval flag.
// Requires COMPLETED status, no prior approval and an attached bill; the
// bank account checks live in the application service, which can see them.
func (r *GoodsReceipt) ApprovePayment(approvedBy uuid.UUID) error {
	if r.Status != GoodsReceiptStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", "Receipt must be completed before payment approval")
	}
	if r.ApprovedForPayment {
		return shared.NewDomainError("ALREADY_APPROVED", "Receipt is already approved for payment")
	}
	if !r.BillRef.IsSet() {
		return shared.NewDomainError("NO_BILL", "A bill must exist before payment approval")
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}

	now := time.Now()
	r.ApprovedForPayment = true
	r.PaymentApprovedAt = &now
	r.PaymentApprovedBy = &approvedBy
	r.UpdatedAt = now
	r.IncrementVersion()

	return nil
}

// TotalReceivedValue returns the sum of receivedQty * order unit price
// across all receipt lines, using the supplied order for price lookup
func (r *GoodsReceipt) TotalReceivedValue(order *PurchaseOrder) decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		if orderItem := order.GetItem(item.OrderItemID); orderItem != nil {
			total = total.Add(item.ReceivedQty.Mul(orderItem.UnitPrice))
		}
	}
	return total.Round(2)
}

// ItemByOrderItem returns the receipt line for an order item, if present
func (r *GoodsReceipt) ItemByOrderItem(orderItemID uuid.UUID) *GoodsReceiptItem {
	for idx := range r.Items {
		if r.Items[idx].OrderItemID == orderItemID {
			return &r.Items[idx]
		}
	}
	return nil
}

// recalculateOverallCondition derives the receipt condition from its items
func (r *GoodsReceipt) recalculateOverallCondition() {
	condition := ItemConditionGood
	for _, item := range r.Items {
		switch item.Condition {
		case ItemConditionDamaged:
			condition = ItemConditionDamaged
		case ItemConditionPartial:
			if condition == ItemConditionGood {
				condition = ItemConditionPartial
			}
		}
	}
	r.OverallCondition = condition
}
