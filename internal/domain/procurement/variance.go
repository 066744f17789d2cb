package procurement

import (
	"github.com/shopspring/decimal"
)

// varianceEpsilon is the currency-equality epsilon below which a variance is
// treated as not present at all
var varianceEpsilon = decimal.NewFromFloat(0.005)

var hundred = decimal.NewFromInt(100)

// LineVariance holds the per-dimension deltas and percentages for one
// matched line
type LineVariance struct {
	QuantityVariance        decimal.Decimal
	QuantityVariancePercent decimal.Decimal
	PriceVariance           decimal.Decimal
	PriceVariancePercent    decimal.Decimal
	AmountVariance          decimal.Decimal
	AmountVariancePercent   decimal.Decimal
}

// CalculateLineVariance computes quantity, price and amount variances for a
// matched invoice line. Percentages are the variance over the respective base
// (received quantity, order unit price, received-value amount) and zero when
// the base is zero.
func CalculateLineVariance(invoicedQty, receivedQty, invoicedUnitPrice, orderUnitPrice, invoiceLineTotal decimal.Decimal) LineVariance {
	expectedAmount := receivedQty.Mul(orderUnitPrice)

	return LineVariance{
		QuantityVariance:        invoicedQty.Sub(receivedQty),
		QuantityVariancePercent: percentOf(invoicedQty.Sub(receivedQty), receivedQty),
		PriceVariance:           invoicedUnitPrice.Sub(orderUnitPrice),
		PriceVariancePercent:    percentOf(invoicedUnitPrice.Sub(orderUnitPrice), orderUnitPrice),
		AmountVariance:          invoiceLineTotal.Sub(expectedAmount),
		AmountVariancePercent:   percentOf(invoiceLineTotal.Sub(expectedAmount), expectedAmount),
	}
}

// percentOf returns variance/base*100, or zero when the base is zero
func percentOf(variance, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return variance.Div(base).Mul(hundred)
}

// HasQuantityVariance returns true if the quantity variance is present
func (v LineVariance) HasQuantityVariance() bool {
	return v.QuantityVariance.Abs().GreaterThanOrEqual(varianceEpsilon)
}

// HasPriceVariance returns true if the price variance is present
func (v LineVariance) HasPriceVariance() bool {
	return v.PriceVariance.Abs().GreaterThanOrEqual(varianceEpsilon)
}

// HasAmountVariance returns true if the amount variance is present
func (v LineVariance) HasAmountVariance() bool {
	return v.AmountVariance.Abs().GreaterThanOrEqual(varianceEpsilon)
}

// HasAnyVariance returns true if any dimension has a present variance
func (v LineVariance) HasAnyVariance() bool {
	return v.HasQuantityVariance() || v.HasPriceVariance() || v.HasAmountVariance()
}

// DimensionCheck is the tolerance verdict for one variance dimension
type DimensionCheck struct {
	Present  bool     // variance exists at all (above the currency epsilon)
	Within   bool     // variance is inside the configured policy
	Severity Severity // severity when outside policy (MEDIUM or HIGH)
}

// Outside returns true when the dimension carries a variance that the policy
// does not accept
func (c DimensionCheck) Outside() bool {
	return c.Present && !c.Within
}

// ToleranceEvaluation is the per-line verdict across all three dimensions
type ToleranceEvaluation struct {
	Quantity DimensionCheck
	Price    DimensionCheck
	Amount   DimensionCheck
}

// AllWithin returns true when every present variance is inside policy
func (e ToleranceEvaluation) AllWithin() bool {
	return !e.Quantity.Outside() && !e.Price.Outside() && !e.Amount.Outside()
}

// LineStatus derives the match status for the line: MATCHED when no variance
// is present at all, within-tolerance when variances exist but all pass, and
// exceeds-tolerance otherwise
func (e ToleranceEvaluation) LineStatus() LineMatchStatus {
	if !e.Quantity.Present && !e.Price.Present && !e.Amount.Present {
		return LineMatchStatusMatched
	}
	if e.AllWithin() {
		return LineMatchStatusWithinTolerance
	}
	return LineMatchStatusExceedsTolerance
}

// ToleranceEvaluator classifies line variances against a tolerance policy.
// Each dimension is checked independently: magnitude against the configured
// percentage and, for quantity and price, whether the variance's sign is
// permitted by the directional flags.
type ToleranceEvaluator struct {
	config *ToleranceConfig
}

// NewToleranceEvaluator creates an evaluator for the given policy
func NewToleranceEvaluator(config *ToleranceConfig) *ToleranceEvaluator {
	return &ToleranceEvaluator{config: config}
}

// Config returns the policy the evaluator applies
func (t *ToleranceEvaluator) Config() *ToleranceConfig {
	return t.config
}

// Evaluate checks all three dimensions of a line variance
func (t *ToleranceEvaluator) Evaluate(v LineVariance) ToleranceEvaluation {
	return ToleranceEvaluation{
		Quantity: t.evaluateQuantity(v),
		Price:    t.evaluatePrice(v),
		Amount:   t.evaluateAmount(v),
	}
}

// evaluateQuantity checks magnitude and direction of the quantity variance
func (t *ToleranceEvaluator) evaluateQuantity(v LineVariance) DimensionCheck {
	check := DimensionCheck{Present: v.HasQuantityVariance(), Within: true, Severity: SeverityMedium}
	if !check.Present {
		return check
	}

	// A disallowed direction rejects the variance regardless of magnitude
	if v.QuantityVariance.IsPositive() && !t.config.AllowQuantityOverage {
		check.Within = false
	}
	if v.QuantityVariance.IsNegative() && !t.config.AllowQuantityShortage {
		check.Within = false
	}

	magnitude := v.QuantityVariancePercent.Abs()
	if magnitude.GreaterThan(t.config.QuantityTolerancePercent) {
		check.Within = false
	}
	check.Severity = severityFor(magnitude, t.config.QuantityTolerancePercent)

	return check
}

// evaluatePrice checks magnitude and direction of the price variance
func (t *ToleranceEvaluator) evaluatePrice(v LineVariance) DimensionCheck {
	check := DimensionCheck{Present: v.HasPriceVariance(), Within: true, Severity: SeverityMedium}
	if !check.Present {
		return check
	}

	if v.PriceVariance.IsPositive() && !t.config.AllowPriceIncrease {
		check.Within = false
	}
	if v.PriceVariance.IsNegative() && !t.config.AllowPriceDecrease {
		check.Within = false
	}

	magnitude := v.PriceVariancePercent.Abs()
	if magnitude.GreaterThan(t.config.PriceTolerancePercent) {
		check.Within = false
	}
	check.Severity = severityFor(magnitude, t.config.PriceTolerancePercent)

	return check
}

// evaluateAmount checks the amount variance under the configured mode
func (t *ToleranceEvaluator) evaluateAmount(v LineVariance) DimensionCheck {
	check := DimensionCheck{Present: v.HasAmountVariance(), Within: true, Severity: SeverityMedium}
	if !check.Present {
		return check
	}

	absolute := v.AmountVariance.Abs()
	percent := v.AmountVariancePercent.Abs()
	absoluteOK := absolute.LessThanOrEqual(t.config.AmountToleranceAbsolute)
	percentOK := percent.LessThanOrEqual(t.config.AmountTolerancePercent)

	switch t.config.AmountMode {
	case AmountToleranceModeAbsolute:
		check.Within = absoluteOK
		check.Severity = severityFor(absolute, t.config.AmountToleranceAbsolute)
	case AmountToleranceModeWhicheverIsLower:
		check.Within = absoluteOK || percentOK
		check.Severity = severityFor(percent, t.config.AmountTolerancePercent)
	default: // percentage-only
		check.Within = percentOK
		check.Severity = severityFor(percent, t.config.AmountTolerancePercent)
	}

	return check
}

// CheckTotalAmount evaluates the invoice-level amount variance under the
// same amount mode; used by the match aggregator for the overall decision
func (t *ToleranceEvaluator) CheckTotalAmount(invoiceAmount, receivedAmount decimal.Decimal) DimensionCheck {
	variance := invoiceAmount.Sub(receivedAmount)
	v := LineVariance{
		AmountVariance:        variance,
		AmountVariancePercent: percentOf(variance, receivedAmount),
	}
	return t.evaluateAmount(v)
}

// severityFor is HIGH when the variance magnitude exceeds twice the
// configured threshold, MEDIUM otherwise
func severityFor(magnitude, threshold decimal.Decimal) Severity {
	if magnitude.GreaterThan(threshold.Mul(decimal.NewFromInt(2))) {
		return SeverityHigh
	}
	return SeverityMedium
}
