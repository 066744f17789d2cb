package procurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procureflow/backend/internal/domain/procurement"
)

// ==================== Goods Receipt DTOs ====================

// ReceiveItemInput represents one received line in a create receipt request
type ReceiveItemInput struct {
	OrderItemID uuid.UUID       `json:"order_item_id" binding:"required"`
	ReceivedQty decimal.Decimal `json:"received_qty" binding:"required"`
	AcceptedQty decimal.Decimal `json:"accepted_qty"`
	RejectedQty decimal.Decimal `json:"rejected_qty"`
	Condition   string          `json:"condition" binding:"required"`
}

// CreateReceiptRequest represents a request to record a goods receipt
type CreateReceiptRequest struct {
	OrderID        uuid.UUID          `json:"order_id" binding:"required"`
	Items          []ReceiveItemInput `json:"items" binding:"required,min=1"`
	InspectionNote string             `json:"inspection_note"`
	Complete       bool               `json:"complete"` // complete immediately after recording
	IdempotencyKey string             `json:"idempotency_key"`
}

// CompleteReceiptRequest represents a request to complete a receipt
type CompleteReceiptRequest struct {
	InspectionNote string `json:"inspection_note"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ReceiptItemResponse represents a receipt line in API responses
type ReceiptItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderItemID   uuid.UUID       `json:"order_item_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Description   string          `json:"description"`
	ReceivedQty   decimal.Decimal `json:"received_qty"`
	AcceptedQty   decimal.Decimal `json:"accepted_qty"`
	RejectedQty   decimal.Decimal `json:"rejected_qty"`
	Condition     string          `json:"condition"`
}

// ReceiptResponse represents a goods receipt in API responses
type ReceiptResponse struct {
	ID                 uuid.UUID             `json:"id"`
	ReceiptNumber      string                `json:"receipt_number"`
	OrderID            uuid.UUID             `json:"order_id"`
	VendorID           uuid.UUID             `json:"vendor_id"`
	Status             string                `json:"status"`
	OverallCondition   string                `json:"overall_condition"`
	InspectionNote     string                `json:"inspection_note,omitempty"`
	ApprovedForPayment bool                  `json:"approved_for_payment"`
	BillID             *uuid.UUID            `json:"bill_id,omitempty"`
	BillPending        bool                  `json:"bill_pending"` // bill creation in flight
	Items              []ReceiptItemResponse `json:"items"`
	CreatedAt          time.Time             `json:"created_at"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
}

// ToReceiptResponse converts a goods receipt to its response DTO
func ToReceiptResponse(receipt *procurement.GoodsReceipt) ReceiptResponse {
	items := make([]ReceiptItemResponse, len(receipt.Items))
	for idx, item := range receipt.Items {
		items[idx] = ReceiptItemResponse{
			ID:          item.ID,
			OrderItemID: item.OrderItemID,
			ProductID:   item.ProductID,
			Description: item.Description,
			ReceivedQty: item.ReceivedQty,
			AcceptedQty: item.AcceptedQty,
			RejectedQty: item.RejectedQty,
			Condition:   string(item.Condition),
		}
	}

	resp := ReceiptResponse{
		ID:                 receipt.ID,
		ReceiptNumber:      receipt.ReceiptNumber,
		OrderID:            receipt.OrderID,
		VendorID:           receipt.VendorID,
		Status:             string(receipt.Status),
		OverallCondition:   string(receipt.OverallCondition),
		InspectionNote:     receipt.InspectionNote,
		ApprovedForPayment: receipt.ApprovedForPayment,
		BillPending:        receipt.BillRef.IsClaimed(),
		Items:              items,
		CreatedAt:          receipt.CreatedAt,
		CompletedAt:        receipt.CompletedAt,
	}
	if billID, ok := receipt.BillRef.BillID(); ok {
		resp.BillID = &billID
	}
	return resp
}

// ==================== Vendor Bill DTOs ====================

// BillLineResponse represents a billed line in API responses
type BillLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	GSTRate     decimal.Decimal `json:"gst_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// BillResponse represents a vendor bill in API responses
type BillResponse struct {
	ID                uuid.UUID          `json:"id"`
	BillNumber        string             `json:"bill_number"`
	VendorID          uuid.UUID          `json:"vendor_id"`
	VendorName        string             `json:"vendor_name"`
	SourceType        string             `json:"source_type"`
	SourceID          *uuid.UUID         `json:"source_id,omitempty"`
	OrderID           *uuid.UUID         `json:"order_id,omitempty"`
	Subtotal          decimal.Decimal    `json:"subtotal"`
	TaxAmount         decimal.Decimal    `json:"tax_amount"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	PaidAmount        decimal.Decimal    `json:"paid_amount"`
	OutstandingAmount decimal.Decimal    `json:"outstanding_amount"`
	PaymentStatus     string             `json:"payment_status"`
	Posted            bool               `json:"posted"`
	LineItems         []BillLineResponse `json:"line_items"`
	CreatedAt         time.Time          `json:"created_at"`
}

// ToBillResponse converts a vendor bill to its response DTO
func ToBillResponse(bill *procurement.VendorBill) BillResponse {
	lines := make([]BillLineResponse, len(bill.LineItems))
	for idx, line := range bill.LineItems {
		lines[idx] = BillLineResponse{
			ID:          line.ID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			GSTRate:     line.GSTRate,
			LineTotal:   line.LineTotal,
		}
	}
	return BillResponse{
		ID:                bill.ID,
		BillNumber:        bill.BillNumber,
		VendorID:          bill.VendorID,
		VendorName:        bill.VendorName,
		SourceType:        string(bill.SourceType),
		SourceID:          bill.SourceID,
		OrderID:           bill.OrderID,
		Subtotal:          bill.Subtotal,
		TaxAmount:         bill.TaxAmount,
		TotalAmount:       bill.TotalAmount,
		PaidAmount:        bill.PaidAmount,
		OutstandingAmount: bill.OutstandingAmount,
		PaymentStatus:     string(bill.PaymentStatus),
		Posted:            bill.Posted,
		LineItems:         lines,
		CreatedAt:         bill.CreatedAt,
	}
}

// ==================== Match DTOs ====================

// RunMatchRequest represents a request to run a three-way match
type RunMatchRequest struct {
	OrderID        uuid.UUID `json:"order_id" binding:"required"`
	ReceiptID      uuid.UUID `json:"receipt_id" binding:"required"`
	BillID         uuid.UUID `json:"bill_id" binding:"required"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// ApproveMatchRequest represents a request to approve a match
type ApproveMatchRequest struct {
	BankAccountCode string `json:"bank_account_code" binding:"required"`
	PaymentMethod   string `json:"payment_method"`
	IdempotencyKey  string `json:"idempotency_key"`
}

// RejectMatchRequest represents a request to reject a match
type RejectMatchRequest struct {
	Reason         string `json:"reason" binding:"required,min=1,max=500"`
	IdempotencyKey string `json:"idempotency_key"`
}

// MatchLineResponse represents a matched line in API responses
type MatchLineResponse struct {
	LineIndex               int             `json:"line_index"`
	Description             string          `json:"description"`
	OrderedQuantity         decimal.Decimal `json:"ordered_quantity"`
	ReceivedQuantity        decimal.Decimal `json:"received_quantity"`
	InvoicedQuantity        decimal.Decimal `json:"invoiced_quantity"`
	OrderUnitPrice          decimal.Decimal `json:"order_unit_price"`
	InvoicedUnitPrice       decimal.Decimal `json:"invoiced_unit_price"`
	QuantityVariance        decimal.Decimal `json:"quantity_variance"`
	QuantityVariancePercent decimal.Decimal `json:"quantity_variance_percent"`
	PriceVariance           decimal.Decimal `json:"price_variance"`
	PriceVariancePercent    decimal.Decimal `json:"price_variance_percent"`
	AmountVariance          decimal.Decimal `json:"amount_variance"`
	AmountVariancePercent   decimal.Decimal `json:"amount_variance_percent"`
	LineStatus              string          `json:"line_status"`
}

// DiscrepancyResponse represents a discrepancy in API responses
type DiscrepancyResponse struct {
	ID               uuid.UUID `json:"id"`
	LineIndex        int       `json:"line_index"`
	Description      string    `json:"description"`
	Type             string    `json:"type"`
	Severity         string    `json:"severity"`
	Detail           string    `json:"detail"`
	RequiresApproval bool      `json:"requires_approval"`
	Resolved         bool      `json:"resolved"`
}

// MatchResponse represents a three-way match in API responses
type MatchResponse struct {
	ID                     uuid.UUID             `json:"id"`
	MatchNumber            string                `json:"match_number"`
	OrderID                uuid.UUID             `json:"order_id"`
	ReceiptID              uuid.UUID             `json:"receipt_id"`
	BillID                 uuid.UUID             `json:"bill_id"`
	ToleranceConfigID      uuid.UUID             `json:"tolerance_config_id"`
	Status                 string                `json:"status"`
	OverallMatchPercentage decimal.Decimal       `json:"overall_match_percentage"`
	InvoiceAmount          decimal.Decimal       `json:"invoice_amount"`
	GRAmount               decimal.Decimal       `json:"gr_amount"`
	OrderAmount            decimal.Decimal       `json:"order_amount"`
	Variance               decimal.Decimal       `json:"variance"`
	DiscrepancyCount       int                   `json:"discrepancy_count"`
	RequiresApproval       bool                  `json:"requires_approval"`
	ApprovalStatus         string                `json:"approval_status"`
	RejectionReason        string                `json:"rejection_reason,omitempty"`
	PostedBillID           *uuid.UUID            `json:"posted_bill_id,omitempty"`
	LineItems              []MatchLineResponse   `json:"line_items"`
	Discrepancies          []DiscrepancyResponse `json:"discrepancies"`
	CreatedAt              time.Time             `json:"created_at"`
	DecidedAt              *time.Time            `json:"decided_at,omitempty"`
}

// ToMatchResponse converts a three-way match to its response DTO
func ToMatchResponse(match *procurement.ThreeWayMatch) MatchResponse {
	lines := make([]MatchLineResponse, len(match.LineItems))
	for idx, line := range match.LineItems {
		lines[idx] = MatchLineResponse{
			LineIndex:               line.LineIndex,
			Description:             line.Description,
			OrderedQuantity:         line.OrderedQuantity,
			ReceivedQuantity:        line.ReceivedQuantity,
			InvoicedQuantity:        line.InvoicedQuantity,
			OrderUnitPrice:          line.OrderUnitPrice,
			InvoicedUnitPrice:       line.InvoicedUnitPrice,
			QuantityVariance:        line.QuantityVariance,
			QuantityVariancePercent: line.QuantityVariancePercent,
			PriceVariance:           line.PriceVariance,
			PriceVariancePercent:    line.PriceVariancePercent,
			AmountVariance:          line.AmountVariance,
			AmountVariancePercent:   line.AmountVariancePercent,
			LineStatus:              string(line.LineStatus),
		}
	}
	discrepancies := make([]DiscrepancyResponse, len(match.Discrepancies))
	for idx, disc := range match.Discrepancies {
		discrepancies[idx] = DiscrepancyResponse{
			ID:               disc.ID,
			LineIndex:        disc.LineIndex,
			Description:      disc.Description,
			Type:             string(disc.Type),
			Severity:         string(disc.Severity),
			Detail:           disc.Detail,
			RequiresApproval: disc.RequiresApproval,
			Resolved:         disc.Resolved,
		}
	}
	return MatchResponse{
		ID:                     match.ID,
		MatchNumber:            match.MatchNumber,
		OrderID:                match.OrderID,
		ReceiptID:              match.ReceiptID,
		BillID:                 match.BillID,
		ToleranceConfigID:      match.ToleranceConfigID,
		Status:                 string(match.Status),
		OverallMatchPercentage: match.OverallMatchPercentage,
		InvoiceAmount:          match.InvoiceAmount,
		GRAmount:               match.GRAmount,
		OrderAmount:            match.OrderAmount,
		Variance:               match.Variance,
		DiscrepancyCount:       match.DiscrepancyCount,
		RequiresApproval:       match.RequiresApproval,
		ApprovalStatus:         string(match.ApprovalStatus),
		RejectionReason:        match.RejectionReason,
		PostedBillID:           match.PostedBillID,
		LineItems:              lines,
		Discrepancies:          discrepancies,
		CreatedAt:              match.CreatedAt,
		DecidedAt:              match.DecidedAt,
	}
}

// ==================== Payment DTOs ====================

// CompletePaymentRequest marks a pending payment as executed by the bank
type CompletePaymentRequest struct {
	Reference      string `json:"reference" binding:"max=100"`
	IdempotencyKey string `json:"idempotency_key"`
}

// CancelPaymentRequest cancels a pending payment
type CancelPaymentRequest struct {
	Reason         string `json:"reason" binding:"required,min=1,max=500"`
	IdempotencyKey string `json:"idempotency_key"`
}

// PaymentResponse represents a vendor payment in API responses
type PaymentResponse struct {
	ID              uuid.UUID       `json:"id"`
	PaymentNumber   string          `json:"payment_number"`
	BillID          uuid.UUID       `json:"bill_id"`
	BillNumber      string          `json:"bill_number"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	VendorName      string          `json:"vendor_name"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	BankAccountCode string          `json:"bank_account_code"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference,omitempty"`
	PaymentDate     time.Time       `json:"payment_date"`
}

// ToPaymentResponse converts a vendor payment to its response DTO
func ToPaymentResponse(payment *procurement.VendorPayment) PaymentResponse {
	return PaymentResponse{
		ID:              payment.ID,
		PaymentNumber:   payment.PaymentNumber,
		BillID:          payment.BillID,
		BillNumber:      payment.BillNumber,
		VendorID:        payment.VendorID,
		VendorName:      payment.VendorName,
		Amount:          payment.Amount,
		PaymentMethod:   string(payment.PaymentMethod),
		BankAccountCode: payment.BankAccountCode,
		Status:          string(payment.Status),
		Reference:       payment.Reference,
		PaymentDate:     payment.PaymentDate,
	}
}

// MatchDecisionResponse is the result of an approval decision: the decided
// match plus the payment generated when the decision was an approval
type MatchDecisionResponse struct {
	Match   MatchResponse    `json:"match"`
	Payment *PaymentResponse `json:"payment,omitempty"`
}

// ==================== List Filters ====================

// ListFilter carries common pagination and search parameters
type ListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Search   string `form:"search"`
	Status   string `form:"status"`
}
