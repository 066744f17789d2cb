package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// Common allowed sort fields for entities with base fields
// These are the common fields present in most entities

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// PurchaseOrderSortFields contains allowed sort fields for purchase orders
var PurchaseOrderSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"order_number": true,
	"vendor_id":    true,
	"vendor_name":  true,
	"status":       true,
	"subtotal":     true,
	"tax_amount":   true,
	"grand_total":  true,
	"confirmed_at": true,
	"completed_at": true,
}

// GoodsReceiptSortFields contains allowed sort fields for goods receipts
var GoodsReceiptSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"receipt_number":    true,
	"order_id":          true,
	"vendor_id":         true,
	"status":            true,
	"overall_condition": true,
	"completed_at":      true,
}

// VendorBillSortFields contains allowed sort fields for vendor bills
var VendorBillSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"bill_number":    true,
	"vendor_id":      true,
	"vendor_name":    true,
	"total_amount":   true,
	"payment_status": true,
	"due_date":       true,
	"posted_at":      true,
}

// ThreeWayMatchSortFields contains allowed sort fields for three-way matches
var ThreeWayMatchSortFields = map[string]bool{
	"id":                       true,
	"created_at":               true,
	"updated_at":               true,
	"match_number":             true,
	"status":                   true,
	"approval_status":          true,
	"overall_match_percentage": true,
	"invoice_amount":           true,
	"variance":                 true,
	"discrepancy_count":        true,
	"decided_at":               true,
}

// VendorPaymentSortFields contains allowed sort fields for vendor payments
var VendorPaymentSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"payment_number": true,
	"bill_number":    true,
	"vendor_name":    true,
	"amount":         true,
	"status":         true,
	"payment_date":   true,
}

// LedgerAccountSortFields contains allowed sort fields for ledger accounts
var LedgerAccountSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"type":       true,
}

// JournalTransactionSortFields contains allowed sort fields for journal transactions
var JournalTransactionSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"transaction_number": true,
	"source_type":        true,
	"total_debit":        true,
	"total_credit":       true,
	"posted_at":          true,
}
