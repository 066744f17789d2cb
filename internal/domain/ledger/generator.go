package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BillingEvent is the financial shape of a vendor bill to be posted
type BillingEvent struct {
	BillNumber string
	VendorName string
	Subtotal   decimal.Decimal
	TaxAmount  decimal.Decimal
	Total      decimal.Decimal
	Interstate bool // IGST when true, CGST/SGST split otherwise
}

// PaymentEvent is the financial shape of a vendor payment to be posted
type PaymentEvent struct {
	PaymentNumber   string
	BillNumber      string
	VendorName      string
	Amount          decimal.Decimal
	BankAccountCode string
}

// TaxSplit is the GST allocation for a transaction. Interstate tax goes
// entirely to IGST; intrastate tax is split into two equal rounded halves
// with any rounding remainder assigned to the SGST half, so the two halves
// always sum exactly to the total tax.
type TaxSplit struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
}

// SplitTax computes the GST split for a tax amount
func SplitTax(taxAmount decimal.Decimal, interstate bool) TaxSplit {
	if interstate {
		return TaxSplit{IGST: taxAmount, CGST: decimal.Zero, SGST: decimal.Zero}
	}
	half := taxAmount.Div(decimal.NewFromInt(2)).Round(2)
	return TaxSplit{
		CGST: half,
		SGST: taxAmount.Sub(half), // carries the rounding remainder
		IGST: decimal.Zero,
	}
}

// EntryGenerator produces the debit/credit line set for billing and payment
// events. The returned EntrySet carries totals, a balance flag and any
// structural errors; callers must pass it through ValidateBalance (directly
// or via NewJournalTransaction) before persisting anything.
type EntryGenerator struct{}

// NewEntryGenerator creates an entry generator
func NewEntryGenerator() *EntryGenerator {
	return &EntryGenerator{}
}

// ForVendorBill generates the posting for a vendor bill:
// debit purchases with the tax-exclusive subtotal, debit the input tax
// credit accounts per the GST split, credit accounts payable with the total.
func (g *EntryGenerator) ForVendorBill(event BillingEvent) EntrySet {
	var errs []string
	if event.Subtotal.IsNegative() {
		errs = append(errs, "bill subtotal cannot be negative")
	}
	if event.TaxAmount.IsNegative() {
		errs = append(errs, "bill tax amount cannot be negative")
	}
	if !event.Subtotal.Add(event.TaxAmount).Equal(event.Total) {
		errs = append(errs, fmt.Sprintf("bill total %s does not equal subtotal %s plus tax %s",
			event.Total.StringFixed(2), event.Subtotal.StringFixed(2), event.TaxAmount.StringFixed(2)))
	}
	if len(errs) > 0 {
		return NewEntrySet(nil, errs...)
	}

	entries := []LedgerEntry{
		DebitEntry(AccountCodePurchases, event.Subtotal,
			fmt.Sprintf("Purchases against bill %s (%s)", event.BillNumber, event.VendorName)),
	}

	if event.TaxAmount.IsPositive() {
		split := SplitTax(event.TaxAmount, event.Interstate)
		if event.Interstate {
			entries = append(entries,
				DebitEntry(AccountCodeInputIGST, split.IGST,
					fmt.Sprintf("IGST input credit on bill %s", event.BillNumber)))
		} else {
			entries = append(entries,
				DebitEntry(AccountCodeInputCGST, split.CGST,
					fmt.Sprintf("CGST input credit on bill %s", event.BillNumber)),
				DebitEntry(AccountCodeInputSGST, split.SGST,
					fmt.Sprintf("SGST input credit on bill %s", event.BillNumber)))
		}
	}

	entries = append(entries,
		CreditEntry(AccountCodeAccountsPayable, event.Total,
			fmt.Sprintf("Payable to %s for bill %s", event.VendorName, event.BillNumber)))

	return NewEntrySet(entries)
}

// ForPayment generates the posting for a vendor payment: debit accounts
// payable, credit the bank account the payment is drawn from.
func (g *EntryGenerator) ForPayment(event PaymentEvent) EntrySet {
	var errs []string
	if event.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "payment amount must be positive")
	}
	if event.BankAccountCode == "" {
		errs = append(errs, "payment bank account is required")
	}
	if len(errs) > 0 {
		return NewEntrySet(nil, errs...)
	}

	entries := []LedgerEntry{
		DebitEntry(AccountCodeAccountsPayable, event.Amount,
			fmt.Sprintf("Payment %s against bill %s", event.PaymentNumber, event.BillNumber)),
		CreditEntry(event.BankAccountCode, event.Amount,
			fmt.Sprintf("Payment %s to %s", event.PaymentNumber, event.VendorName)),
	}

	return NewEntrySet(entries)
}
