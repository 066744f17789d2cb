package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MatchStatus represents the overall status of a three-way match
type MatchStatus string

const (
	MatchStatusMatched              MatchStatus = "MATCHED"
	MatchStatusPartiallyMatched     MatchStatus = "PARTIALLY_MATCHED"
	MatchStatusNotMatched           MatchStatus = "NOT_MATCHED"
	MatchStatusPendingReview        MatchStatus = "PENDING_REVIEW"
	MatchStatusApprovedWithVariance MatchStatus = "APPROVED_WITH_VARIANCE"
	MatchStatusRejected             MatchStatus = "REJECTED"
)

// IsValid checks if the status is a valid MatchStatus
func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusMatched, MatchStatusPartiallyMatched, MatchStatusNotMatched,
		MatchStatusPendingReview, MatchStatusApprovedWithVariance, MatchStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of MatchStatus
func (s MatchStatus) String() string {
	return string(s)
}

// LineMatchStatus represents the match status of a single line
type LineMatchStatus string

const (
	LineMatchStatusMatched          LineMatchStatus = "MATCHED"
	LineMatchStatusWithinTolerance  LineMatchStatus = "VARIANCE_WITHIN_TOLERANCE"
	LineMatchStatusExceedsTolerance LineMatchStatus = "VARIANCE_EXCEEDS_TOLERANCE"
)

// IsValid checks if the status is a valid LineMatchStatus
func (s LineMatchStatus) IsValid() bool {
	switch s {
	case LineMatchStatusMatched, LineMatchStatusWithinTolerance, LineMatchStatusExceedsTolerance:
		return true
	}
	return false
}

// DiscrepancyType classifies a flagged mismatch
type DiscrepancyType string

const (
	DiscrepancyTypeQuantityVariance DiscrepancyType = "QUANTITY_VARIANCE"
	DiscrepancyTypePriceVariance    DiscrepancyType = "PRICE_VARIANCE"
	DiscrepancyTypeAmountVariance   DiscrepancyType = "AMOUNT_VARIANCE"
	DiscrepancyTypeItemNotOrdered   DiscrepancyType = "ITEM_NOT_ORDERED"
	DiscrepancyTypeItemNotReceived  DiscrepancyType = "ITEM_NOT_RECEIVED"
)

// IsValid checks if the type is a valid DiscrepancyType
func (t DiscrepancyType) IsValid() bool {
	switch t {
	case DiscrepancyTypeQuantityVariance, DiscrepancyTypePriceVariance, DiscrepancyTypeAmountVariance,
		DiscrepancyTypeItemNotOrdered, DiscrepancyTypeItemNotReceived:
		return true
	}
	return false
}

// Severity grades a discrepancy
type Severity string

const (
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ApprovalStatus represents the approval workflow state of a match
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// IsValid checks if the status is a valid ApprovalStatus
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return true
	}
	return false
}

// IsTerminal returns true once the workflow has been decided
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// MatchLineItem is the per-line result of a three-way match run
type MatchLineItem struct {
	ID                      uuid.UUID       `gorm:"type:uuid;primary_key"`
	MatchID                 uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineIndex               int             `gorm:"not null"`
	Description             string          `gorm:"type:varchar(500);not null"`
	OrderItemID             uuid.UUID       `gorm:"type:uuid;not null"`
	ReceiptItemID           uuid.UUID       `gorm:"type:uuid;not null"`
	OrderedQuantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReceivedQuantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InvoicedQuantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OrderUnitPrice          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InvoicedUnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityVariance        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityVariancePercent decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	PriceVariance           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PriceVariancePercent    decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	AmountVariance          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountVariancePercent   decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	LineStatus              LineMatchStatus `gorm:"type:varchar(30);not null"`
	CreatedAt               time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MatchLineItem) TableName() string {
	return "match_line_items"
}

// MatchDiscrepancy is a flagged anomaly found during a match run
type MatchDiscrepancy struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	MatchID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineIndex        int             `gorm:"not null"`
	Description      string          `gorm:"type:varchar(500);not null"`
	Type             DiscrepancyType `gorm:"type:varchar(30);not null"`
	Severity         Severity        `gorm:"type:varchar(10);not null"`
	Detail           string          `gorm:"type:varchar(1000)"`
	RequiresApproval bool            `gorm:"not null;default:false"`
	Resolved         bool            `gorm:"not null;default:false"`
	CreatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MatchDiscrepancy) TableName() string {
	return "match_discrepancies"
}

// IsCritical returns true for critical discrepancies
func (d MatchDiscrepancy) IsCritical() bool {
	return d.Severity == SeverityCritical
}

// ThreeWayMatch is one reconciliation run of a purchase order, a goods
// receipt and a vendor bill. It owns its line items and discrepancies;
// DiscrepancyCount always equals the discrepancy set size. Once the approval
// workflow reaches APPROVED or REJECTED the match is terminal.
type ThreeWayMatch struct {
	shared.TenantAggregateRoot
	MatchNumber            string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_three_way_match_tenant_number,priority:2"`
	OrderID                uuid.UUID          `gorm:"type:uuid;not null;index"`
	ReceiptID              uuid.UUID          `gorm:"type:uuid;not null;index"`
	BillID                 uuid.UUID          `gorm:"type:uuid;not null;index"`
	VendorID               uuid.UUID          `gorm:"type:uuid;not null"`
	ToleranceConfigID      uuid.UUID          `gorm:"type:uuid;not null"`
	Status                 MatchStatus        `gorm:"type:varchar(30);not null"`
	OverallMatchPercentage decimal.Decimal    `gorm:"type:decimal(8,4);not null"`
	InvoiceAmount          decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	GRAmount               decimal.Decimal    `gorm:"type:decimal(18,4);not null"` // received value: sum of receivedQty * order unit price
	OrderAmount            decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	Variance               decimal.Decimal    `gorm:"type:decimal(18,4);not null"` // InvoiceAmount - GRAmount
	DiscrepancyCount       int                `gorm:"not null;default:0"`
	RequiresApproval       bool               `gorm:"not null;default:false"`
	ApprovalStatus         ApprovalStatus     `gorm:"type:varchar(20);not null;default:'PENDING'"`
	LineItems              []MatchLineItem    `gorm:"foreignKey:MatchID;references:ID"`
	Discrepancies          []MatchDiscrepancy `gorm:"foreignKey:MatchID;references:ID"`
	ApprovedBy             *uuid.UUID         `gorm:"type:uuid"`
	DecidedAt              *time.Time
	RejectionReason        string     `gorm:"type:varchar(500)"`
	PostedBillID           *uuid.UUID `gorm:"type:uuid"` // bill posted on approval
}

// TableName returns the table name for GORM
func (ThreeWayMatch) TableName() string {
	return "three_way_matches"
}

// newThreeWayMatch creates an empty match record; the match runner populates
// lines, discrepancies and the aggregate result
func newThreeWayMatch(tenantID uuid.UUID, matchNumber string, orderID, receiptID, billID, vendorID, toleranceConfigID uuid.UUID) *ThreeWayMatch {
	return &ThreeWayMatch{
		TenantAggregateRoot:    shared.NewTenantAggregateRoot(tenantID),
		MatchNumber:            matchNumber,
		OrderID:                orderID,
		ReceiptID:              receiptID,
		BillID:                 billID,
		VendorID:               vendorID,
		ToleranceConfigID:      toleranceConfigID,
		Status:                 MatchStatusPendingReview,
		OverallMatchPercentage: decimal.Zero,
		InvoiceAmount:          decimal.Zero,
		GRAmount:               decimal.Zero,
		OrderAmount:            decimal.Zero,
		Variance:               decimal.Zero,
		ApprovalStatus:         ApprovalStatusPending,
		LineItems:              make([]MatchLineItem, 0),
		Discrepancies:          make([]MatchDiscrepancy, 0),
	}
}

// addLineItem appends a per-line result
func (m *ThreeWayMatch) addLineItem(item MatchLineItem) {
	item.ID = uuid.New()
	item.MatchID = m.ID
	item.CreatedAt = time.Now()
	m.LineItems = append(m.LineItems, item)
}

// addDiscrepancy appends a discrepancy and keeps the count in sync
func (m *ThreeWayMatch) addDiscrepancy(d MatchDiscrepancy) {
	d.ID = uuid.New()
	d.MatchID = m.ID
	d.CreatedAt = time.Now()
	m.Discrepancies = append(m.Discrepancies, d)
	m.DiscrepancyCount = len(m.Discrepancies)
}

// HasCriticalDiscrepancy returns true if any discrepancy is critical
func (m *ThreeWayMatch) HasCriticalDiscrepancy() bool {
	for _, d := range m.Discrepancies {
		if d.IsCritical() {
			return true
		}
	}
	return false
}

// MatchedLineCount returns the number of fully matched lines
func (m *ThreeWayMatch) MatchedLineCount() int {
	count := 0
	for _, line := range m.LineItems {
		if line.LineStatus == LineMatchStatusMatched {
			count++
		}
	}
	return count
}

// IsTerminal returns true once the approval workflow has been decided
func (m *ThreeWayMatch) IsTerminal() bool {
	return m.ApprovalStatus.IsTerminal()
}

// Approve decides the approval workflow in favour of the match.
// The match status becomes APPROVED_WITH_VARIANCE; downstream bill posting
// is the application layer's job and is recorded via RecordPostedBill.
func (m *ThreeWayMatch) Approve(approvedBy uuid.UUID) error {
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}
	if m.ApprovalStatus.IsTerminal() {
		return shared.NewDomainError("MATCH_TERMINAL",
			fmt.Sprintf("Match is already %s", m.ApprovalStatus))
	}

	now := time.Now()
	previousStatus := m.Status
	m.ApprovalStatus = ApprovalStatusApproved
	m.Status = MatchStatusApprovedWithVariance
	m.ApprovedBy = &approvedBy
	m.DecidedAt = &now
	m.UpdatedAt = now
	m.IncrementVersion()

	m.AddDomainEvent(NewThreeWayMatchApprovedEvent(m, previousStatus, approvedBy))

	return nil
}

// Reject decides the approval workflow against the match. No financial side
// effect follows a rejection.
func (m *ThreeWayMatch) Reject(rejectedBy uuid.UUID, reason string) error {
	if rejectedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}
	if m.ApprovalStatus.IsTerminal() {
		return shared.NewDomainError("MATCH_TERMINAL",
			fmt.Sprintf("Match is already %s", m.ApprovalStatus))
	}

	now := time.Now()
	previousStatus := m.Status
	m.ApprovalStatus = ApprovalStatusRejected
	m.Status = MatchStatusRejected
	m.ApprovedBy = &rejectedBy
	m.DecidedAt = &now
	m.RejectionReason = reason
	m.UpdatedAt = now
	m.IncrementVersion()

	m.AddDomainEvent(NewThreeWayMatchRejectedEvent(m, previousStatus, rejectedBy, reason))

	return nil
}

// RecordPostedBill stores the reference of the bill posted after approval
func (m *ThreeWayMatch) RecordPostedBill(billID uuid.UUID) error {
	if m.ApprovalStatus != ApprovalStatusApproved {
		return shared.NewDomainError("INVALID_STATE", "Bill reference can only be recorded on an approved match")
	}
	if billID == uuid.Nil {
		return shared.NewDomainError("INVALID_BILL", "Bill ID cannot be empty")
	}
	m.PostedBillID = &billID
	m.UpdatedAt = time.Now()
	return nil
}
