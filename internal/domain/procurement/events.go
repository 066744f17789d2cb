package procurement

import (
	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type names used in events
const (
	AggregateTypeGoodsReceipt  = "GoodsReceipt"
	AggregateTypeVendorBill    = "VendorBill"
	AggregateTypeThreeWayMatch = "ThreeWayMatch"
	AggregateTypeVendorPayment = "VendorPayment"
)

// Event type names
const (
	EventTypeGoodsReceiptCompleted  = "procurement.goods_receipt.completed"
	EventTypeVendorBillCreated      = "procurement.vendor_bill.created"
	EventTypeThreeWayMatchCompleted = "procurement.three_way_match.completed"
	EventTypeThreeWayMatchApproved  = "procurement.three_way_match.approved"
	EventTypeThreeWayMatchRejected  = "procurement.three_way_match.rejected"
	EventTypeVendorPaymentCreated   = "procurement.vendor_payment.created"
	EventTypeVendorPaymentCompleted = "procurement.vendor_payment.completed"
)

// GoodsReceiptCompletedEvent is raised when a goods receipt reaches COMPLETED
type GoodsReceiptCompletedEvent struct {
	shared.BaseDomainEvent
	ReceiptID        uuid.UUID     `json:"receipt_id"`
	ReceiptNumber    string        `json:"receipt_number"`
	OrderID          uuid.UUID     `json:"order_id"`
	VendorID         uuid.UUID     `json:"vendor_id"`
	OverallCondition ItemCondition `json:"overall_condition"`
	ItemCount        int           `json:"item_count"`
}

// NewGoodsReceiptCompletedEvent creates a new goods receipt completed event
func NewGoodsReceiptCompletedEvent(receipt *GoodsReceipt) *GoodsReceiptCompletedEvent {
	return &GoodsReceiptCompletedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeGoodsReceiptCompleted, AggregateTypeGoodsReceipt, receipt.ID, receipt.TenantID),
		ReceiptID:        receipt.ID,
		ReceiptNumber:    receipt.ReceiptNumber,
		OrderID:          receipt.OrderID,
		VendorID:         receipt.VendorID,
		OverallCondition: receipt.OverallCondition,
		ItemCount:        len(receipt.Items),
	}
}

// EventType returns the event type name
func (e *GoodsReceiptCompletedEvent) EventType() string {
	return EventTypeGoodsReceiptCompleted
}

// VendorBillCreatedEvent is raised when a vendor bill is persisted
type VendorBillCreatedEvent struct {
	shared.BaseDomainEvent
	BillID      uuid.UUID       `json:"bill_id"`
	BillNumber  string          `json:"bill_number"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	ReceiptID   *uuid.UUID      `json:"receipt_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewVendorBillCreatedEvent creates a new vendor bill created event.
// Schema version 2: version 1 payloads carried the total under "bill_total".
func NewVendorBillCreatedEvent(bill *VendorBill) *VendorBillCreatedEvent {
	return &VendorBillCreatedEvent{
		BaseDomainEvent: shared.NewVersionedBaseDomainEvent(EventTypeVendorBillCreated, AggregateTypeVendorBill, bill.ID, bill.TenantID, 2),
		BillID:          bill.ID,
		BillNumber:      bill.BillNumber,
		VendorID:        bill.VendorID,
		ReceiptID:       bill.SourceID,
		TotalAmount:     bill.TotalAmount,
	}
}

// EventType returns the event type name
func (e *VendorBillCreatedEvent) EventType() string {
	return EventTypeVendorBillCreated
}

// ThreeWayMatchCompletedEvent is raised when a match run finishes
type ThreeWayMatchCompletedEvent struct {
	shared.BaseDomainEvent
	MatchID          uuid.UUID       `json:"match_id"`
	MatchNumber      string          `json:"match_number"`
	Status           MatchStatus     `json:"status"`
	MatchPercentage  decimal.Decimal `json:"match_percentage"`
	DiscrepancyCount int             `json:"discrepancy_count"`
	RequiresApproval bool            `json:"requires_approval"`
}

// NewThreeWayMatchCompletedEvent creates a new match completed event
func NewThreeWayMatchCompletedEvent(match *ThreeWayMatch) *ThreeWayMatchCompletedEvent {
	return &ThreeWayMatchCompletedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeThreeWayMatchCompleted, AggregateTypeThreeWayMatch, match.ID, match.TenantID),
		MatchID:          match.ID,
		MatchNumber:      match.MatchNumber,
		Status:           match.Status,
		MatchPercentage:  match.OverallMatchPercentage,
		DiscrepancyCount: match.DiscrepancyCount,
		RequiresApproval: match.RequiresApproval,
	}
}

// EventType returns the event type name
func (e *ThreeWayMatchCompletedEvent) EventType() string {
	return EventTypeThreeWayMatchCompleted
}

// ThreeWayMatchApprovedEvent is raised when a match is approved
type ThreeWayMatchApprovedEvent struct {
	shared.BaseDomainEvent
	MatchID        uuid.UUID   `json:"match_id"`
	MatchNumber    string      `json:"match_number"`
	PreviousStatus MatchStatus `json:"previous_status"`
	ApprovedBy     uuid.UUID   `json:"approved_by"`
}

// NewThreeWayMatchApprovedEvent creates a new match approved event
func NewThreeWayMatchApprovedEvent(match *ThreeWayMatch, previous MatchStatus, approvedBy uuid.UUID) *ThreeWayMatchApprovedEvent {
	return &ThreeWayMatchApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeThreeWayMatchApproved, AggregateTypeThreeWayMatch, match.ID, match.TenantID),
		MatchID:         match.ID,
		MatchNumber:     match.MatchNumber,
		PreviousStatus:  previous,
		ApprovedBy:      approvedBy,
	}
}

// EventType returns the event type name
func (e *ThreeWayMatchApprovedEvent) EventType() string {
	return EventTypeThreeWayMatchApproved
}

// ThreeWayMatchRejectedEvent is raised when a match is rejected
type ThreeWayMatchRejectedEvent struct {
	shared.BaseDomainEvent
	MatchID        uuid.UUID   `json:"match_id"`
	MatchNumber    string      `json:"match_number"`
	PreviousStatus MatchStatus `json:"previous_status"`
	RejectedBy     uuid.UUID   `json:"rejected_by"`
	Reason         string      `json:"reason"`
}

// NewThreeWayMatchRejectedEvent creates a new match rejected event
func NewThreeWayMatchRejectedEvent(match *ThreeWayMatch, previous MatchStatus, rejectedBy uuid.UUID, reason string) *ThreeWayMatchRejectedEvent {
	return &ThreeWayMatchRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeThreeWayMatchRejected, AggregateTypeThreeWayMatch, match.ID, match.TenantID),
		MatchID:         match.ID,
		MatchNumber:     match.MatchNumber,
		PreviousStatus:  previous,
		RejectedBy:      rejectedBy,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *ThreeWayMatchRejectedEvent) EventType() string {
	return EventTypeThreeWayMatchRejected
}

// VendorPaymentCreatedEvent is raised when a payment is generated against a bill
type VendorPaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	BillID        uuid.UUID       `json:"bill_id"`
	VendorID      uuid.UUID       `json:"vendor_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewVendorPaymentCreatedEvent creates a new vendor payment created event
func NewVendorPaymentCreatedEvent(payment *VendorPayment) *VendorPaymentCreatedEvent {
	return &VendorPaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorPaymentCreated, AggregateTypeVendorPayment, payment.ID, payment.TenantID),
		PaymentID:       payment.ID,
		PaymentNumber:   payment.PaymentNumber,
		BillID:          payment.BillID,
		VendorID:        payment.VendorID,
		Amount:          payment.Amount,
	}
}

// EventType returns the event type name
func (e *VendorPaymentCreatedEvent) EventType() string {
	return EventTypeVendorPaymentCreated
}

// VendorPaymentCompletedEvent is raised when a payment is executed
type VendorPaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	BillID        uuid.UUID       `json:"bill_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
}

// NewVendorPaymentCompletedEvent creates a new vendor payment completed event
func NewVendorPaymentCompletedEvent(payment *VendorPayment) *VendorPaymentCompletedEvent {
	return &VendorPaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorPaymentCompleted, AggregateTypeVendorPayment, payment.ID, payment.TenantID),
		PaymentID:       payment.ID,
		PaymentNumber:   payment.PaymentNumber,
		BillID:          payment.BillID,
		Amount:          payment.Amount,
		Reference:       payment.Reference,
	}
}

// EventType returns the event type name
func (e *VendorPaymentCompletedEvent) EventType() string {
	return EventTypeVendorPaymentCompleted
}
