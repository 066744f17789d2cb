package procurement

import (
	"fmt"

	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MatchRunner is the domain service that executes one three-way match:
// document validation, line matching, variance and tolerance evaluation,
// and aggregation into a ThreeWayMatch record. Policy breaches never fail
// the run; they become discrepancies on the resulting match.
type MatchRunner struct {
	matcher LineMatcher
}

// NewMatchRunner creates a match runner with the given line matching strategy
func NewMatchRunner(matcher LineMatcher) *MatchRunner {
	return &MatchRunner{matcher: matcher}
}

// MatchInput bundles the document triangle and policy for one match run
type MatchInput struct {
	MatchNumber string
	Order       *PurchaseOrder
	Receipt     *GoodsReceipt
	Bill        *VendorBill
	Config      *ToleranceConfig
}

// Run executes the match and returns the populated ThreeWayMatch.
// Input validation failures abort the run; variances and unmatched lines do
// not.
func (r *MatchRunner) Run(in MatchInput) (*ThreeWayMatch, error) {
	if err := r.validate(in); err != nil {
		return nil, err
	}

	evaluator := NewToleranceEvaluator(in.Config)
	match := newThreeWayMatch(
		in.Order.TenantID,
		in.MatchNumber,
		in.Order.ID,
		in.Receipt.ID,
		in.Bill.ID,
		in.Order.VendorID,
		in.Config.ID,
	)

	descriptions := in.Bill.LineDescriptions()
	lineMatches := r.matcher.Match(descriptions, in.Order, in.Receipt)

	for _, lm := range lineMatches {
		billLine := in.Bill.LineItems[lm.LineIndex]

		if lm.OrderItem == nil {
			match.addDiscrepancy(MatchDiscrepancy{
				LineIndex:        lm.LineIndex,
				Description:      lm.Description,
				Type:             DiscrepancyTypeItemNotOrdered,
				Severity:         SeverityCritical,
				Detail:           "Invoice line has no matching purchase order item",
				RequiresApproval: true,
			})
			continue
		}
		if lm.ReceiptItem == nil {
			match.addDiscrepancy(MatchDiscrepancy{
				LineIndex:        lm.LineIndex,
				Description:      lm.Description,
				Type:             DiscrepancyTypeItemNotReceived,
				Severity:         SeverityCritical,
				Detail:           fmt.Sprintf("Order item %s was never received", lm.OrderItem.ID),
				RequiresApproval: true,
			})
			continue
		}

		variance := CalculateLineVariance(
			billLine.Quantity,
			lm.ReceiptItem.ReceivedQty,
			billLine.UnitPrice,
			lm.OrderItem.UnitPrice,
			billLine.LineTotal,
		)
		evaluation := evaluator.Evaluate(variance)

		match.addLineItem(MatchLineItem{
			LineIndex:               lm.LineIndex,
			Description:             lm.Description,
			OrderItemID:             lm.OrderItem.ID,
			ReceiptItemID:           lm.ReceiptItem.ID,
			OrderedQuantity:         lm.OrderItem.OrderedQuantity,
			ReceivedQuantity:        lm.ReceiptItem.ReceivedQty,
			InvoicedQuantity:        billLine.Quantity,
			OrderUnitPrice:          lm.OrderItem.UnitPrice,
			InvoicedUnitPrice:       billLine.UnitPrice,
			QuantityVariance:        variance.QuantityVariance,
			QuantityVariancePercent: variance.QuantityVariancePercent.Round(4),
			PriceVariance:           variance.PriceVariance,
			PriceVariancePercent:    variance.PriceVariancePercent.Round(4),
			AmountVariance:          variance.AmountVariance,
			AmountVariancePercent:   variance.AmountVariancePercent.Round(4),
			LineStatus:              evaluation.LineStatus(),
		})

		r.emitVarianceDiscrepancies(match, lm, variance, evaluation)
	}

	r.aggregate(match, in, evaluator, len(descriptions))

	match.AddDomainEvent(NewThreeWayMatchCompletedEvent(match))

	return match, nil
}

// validate checks the document triangle for contradictory input
func (r *MatchRunner) validate(in MatchInput) error {
	if in.Order == nil || in.Receipt == nil || in.Bill == nil {
		return shared.NewDomainError("INVALID_INPUT", "Order, receipt and bill are all required")
	}
	if in.Config == nil {
		return shared.NewDomainError("INVALID_INPUT", "Tolerance config is required")
	}
	if in.MatchNumber == "" {
		return shared.NewDomainError("INVALID_MATCH_NUMBER", "Match number cannot be empty")
	}
	if err := in.Config.Validate(); err != nil {
		return err
	}
	if in.Receipt.OrderID != in.Order.ID {
		return shared.NewDomainError("RECEIPT_ORDER_MISMATCH", "Goods receipt does not belong to the purchase order")
	}
	if in.Bill.VendorID != in.Order.VendorID {
		return shared.NewDomainError("VENDOR_MISMATCH",
			fmt.Sprintf("Bill vendor %s does not match order vendor %s", in.Bill.VendorID, in.Order.VendorID))
	}
	if len(in.Bill.LineItems) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Bill has no line items to match")
	}
	return nil
}

// emitVarianceDiscrepancies adds one discrepancy per dimension that failed
// tolerance on a matched line
func (r *MatchRunner) emitVarianceDiscrepancies(match *ThreeWayMatch, lm LineMatch, v LineVariance, e ToleranceEvaluation) {
	if e.Quantity.Outside() {
		match.addDiscrepancy(MatchDiscrepancy{
			LineIndex:        lm.LineIndex,
			Description:      lm.Description,
			Type:             DiscrepancyTypeQuantityVariance,
			Severity:         e.Quantity.Severity,
			Detail:           fmt.Sprintf("Quantity variance %s (%s%%)", v.QuantityVariance.String(), v.QuantityVariancePercent.StringFixed(2)),
			RequiresApproval: true,
		})
	}
	if e.Price.Outside() {
		match.addDiscrepancy(MatchDiscrepancy{
			LineIndex:        lm.LineIndex,
			Description:      lm.Description,
			Type:             DiscrepancyTypePriceVariance,
			Severity:         e.Price.Severity,
			Detail:           fmt.Sprintf("Price variance %s (%s%%)", v.PriceVariance.StringFixed(2), v.PriceVariancePercent.StringFixed(2)),
			RequiresApproval: true,
		})
	}
	if e.Amount.Outside() {
		match.addDiscrepancy(MatchDiscrepancy{
			LineIndex:        lm.LineIndex,
			Description:      lm.Description,
			Type:             DiscrepancyTypeAmountVariance,
			Severity:         e.Amount.Severity,
			Detail:           fmt.Sprintf("Amount variance %s (%s%%)", v.AmountVariance.StringFixed(2), v.AmountVariancePercent.StringFixed(2)),
			RequiresApproval: true,
		})
	}
}

// aggregate rolls the per-line results into the overall match record
func (r *MatchRunner) aggregate(match *ThreeWayMatch, in MatchInput, evaluator *ToleranceEvaluator, totalLines int) {
	match.InvoiceAmount = in.Bill.Subtotal
	match.GRAmount = in.Receipt.TotalReceivedValue(in.Order)
	match.OrderAmount = in.Order.Subtotal
	match.Variance = match.InvoiceAmount.Sub(match.GRAmount)

	matchedLines := match.MatchedLineCount()
	if totalLines > 0 {
		match.OverallMatchPercentage = decimal.NewFromInt(int64(matchedLines)).
			Div(decimal.NewFromInt(int64(totalLines))).
			Mul(hundred).Round(2)
	}

	amountCheck := evaluator.CheckTotalAmount(match.InvoiceAmount, match.GRAmount)
	allLinesResolved := len(match.LineItems) == totalLines

	// Overall status decision, in order
	switch {
	case match.DiscrepancyCount == 0 && matchedLines == totalLines:
		match.Status = MatchStatusMatched
	case !amountCheck.Outside() && allLinesResolved:
		match.Status = MatchStatusPartiallyMatched
	case match.HasCriticalDiscrepancy():
		match.Status = MatchStatusNotMatched
	default:
		match.Status = MatchStatusPendingReview
	}

	match.RequiresApproval = amountCheck.Outside() ||
		match.DiscrepancyCount > 0 ||
		(!in.Config.AutoApprove && match.InvoiceAmount.GreaterThan(in.Config.AutoApproveCeiling))
}
