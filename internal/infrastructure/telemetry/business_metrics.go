// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks procurement activity: goods receipt throughput,
// bill posting volume, three-way match outcomes, payments, and the review
// backlog gauges refreshed by periodic collection.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	receiptCreatedTotal   *Counter
	receiptCompletedTotal *Counter
	billPostedTotal       *Counter
	billAmountTotal       *Counter
	matchRunTotal         *Counter
	discrepancyTotal      *Counter
	paymentTotal          *Counter

	matchesPendingReview *Gauge
	receiptsAwaitingBill *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	matchingProvider MatchingMetricsProvider
}

// MatchingMetricsProvider supplies matching backlog counts for periodic
// collection, keeping the telemetry layer off the procurement domain.
type MatchingMetricsProvider interface {
	// GetPendingReviewCount returns the number of matches awaiting an approval decision for a tenant
	GetPendingReviewCount(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GetReceiptsAwaitingBillCount returns the number of completed receipts with no vendor bill yet for a tenant
	GetReceiptsAwaitingBillCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter            metric.Meter
	Logger           *zap.Logger
	CollectInterval  time.Duration // Default: 5 minutes
	MatchingProvider MatchingMetricsProvider
}

// instrumentSet collects instrument creation errors so the constructor
// reads as a flat list instead of a ladder of error checks.
type instrumentSet struct {
	meter metric.Meter
	err   error
}

func (s *instrumentSet) counter(name, description, unit string) *Counter {
	if s.err != nil {
		return nil
	}
	c, err := NewCounter(s.meter, name, description, unit)
	s.err = err
	return c
}

func (s *instrumentSet) gauge(name, description, unit string) *Gauge {
	if s.err != nil {
		return nil
	}
	g, err := NewGauge(s.meter, name, description, unit)
	s.err = err
	return g
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ins := &instrumentSet{meter: cfg.Meter}
	bm := &BusinessMetrics{
		meter:            cfg.Meter,
		logger:           logger,
		stopChan:         make(chan struct{}),
		matchingProvider: cfg.MatchingProvider,

		receiptCreatedTotal:   ins.counter("procurement_receipt_created_total", "Total number of goods receipts created", "{receipts}"),
		receiptCompletedTotal: ins.counter("procurement_receipt_completed_total", "Total number of goods receipts completed", "{receipts}"),
		billPostedTotal:       ins.counter("procurement_bill_posted_total", "Total number of vendor bills posted to the ledger", "{bills}"),
		billAmountTotal:       ins.counter("procurement_bill_amount_total", "Total posted vendor bill amount in paise", "{paise}"),
		matchRunTotal:         ins.counter("procurement_match_run_total", "Total number of three-way match runs", "{matches}"),
		discrepancyTotal:      ins.counter("procurement_discrepancy_total", "Total number of discrepancies raised by matching", "{discrepancies}"),
		paymentTotal:          ins.counter("procurement_payment_total", "Total number of vendor payment transactions", "{payments}"),

		matchesPendingReview: ins.gauge("procurement_matches_pending_review", "Number of matches awaiting an approval decision", "{matches}"),
		receiptsAwaitingBill: ins.gauge("procurement_receipts_awaiting_bill", "Number of completed receipts with no vendor bill", "{receipts}"),
	}
	if ins.err != nil {
		return nil, ins.err
	}
	return bm, nil
}

// RecordReceiptCreated records a goods receipt creation event.
func (bm *BusinessMetrics) RecordReceiptCreated(ctx context.Context, tenantID uuid.UUID, condition string) {
	bm.receiptCreatedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrReceiptCondition.String(condition),
	)
}

// RecordReceiptCompleted records a goods receipt completion event.
func (bm *BusinessMetrics) RecordReceiptCompleted(ctx context.Context, tenantID uuid.UUID, condition string) {
	bm.receiptCompletedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrReceiptCondition.String(condition),
	)
}

// RecordBillPosted records a vendor bill posting. The rupee amount is
// converted to paise so the counter stays integral.
func (bm *BusinessMetrics) RecordBillPosted(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal) {
	tenant := AttrTenantID.String(tenantID.String())
	bm.billPostedTotal.Inc(ctx, tenant)
	bm.billAmountTotal.Add(ctx, amount.Mul(decimal.NewFromInt(100)).IntPart(), tenant)
}

// RecordMatchRun records a three-way match run labeled by its outcome status.
func (bm *BusinessMetrics) RecordMatchRun(ctx context.Context, tenantID uuid.UUID, status string) {
	bm.matchRunTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrMatchStatus.String(status),
	)
}

// RecordDiscrepancy records a single discrepancy raised by a match run.
func (bm *BusinessMetrics) RecordDiscrepancy(ctx context.Context, tenantID uuid.UUID, discrepancyType, severity string) {
	bm.discrepancyTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrDiscrepancyType.String(discrepancyType),
		AttrSeverity.String(severity),
	)
}

// PaymentStatus represents the outcome of a payment for metrics labeling.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// RecordPayment records a vendor payment transaction.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, paymentMethod string, status PaymentStatus) {
	bm.paymentTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPaymentMethod.String(paymentMethod),
		AttrPaymentStatus.String(string(status)),
	)
}

// RecordPendingReviewCount records the current match review backlog.
func (bm *BusinessMetrics) RecordPendingReviewCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.matchesPendingReview.Record(ctx, count, AttrTenantID.String(tenantID.String()))
}

// RecordReceiptsAwaitingBill records the count of completed receipts without a bill.
func (bm *BusinessMetrics) RecordReceiptsAwaitingBill(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.receiptsAwaitingBill.Record(ctx, count, AttrTenantID.String(tenantID.String()))
}

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection refreshes the backlog gauges on the given
// interval until Stop or context cancellation. Subsequent calls are
// no-ops.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			// one immediate pass so gauges are populated before the
			// first tick
			bm.collectBacklogMetrics(ctx, tenantProvider)
			for {
				select {
				case <-bm.stopChan:
					bm.logger.Info("Stopping periodic business metrics collection")
					return
				case <-ctx.Done():
					bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
					return
				case <-ticker.C:
					bm.collectBacklogMetrics(ctx, tenantProvider)
				}
			}
		}()
	})
}

func (bm *BusinessMetrics) collectBacklogMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.matchingProvider == nil {
		bm.logger.Debug("No matching provider configured, skipping backlog metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		if pending, err := bm.matchingProvider.GetPendingReviewCount(ctx, tenantID); err != nil {
			bm.logger.Warn("Failed to get pending review count for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else {
			bm.RecordPendingReviewCount(ctx, tenantID, pending)
		}

		if awaiting, err := bm.matchingProvider.GetReceiptsAwaitingBillCount(ctx, tenantID); err != nil {
			bm.logger.Warn("Failed to get receipts awaiting bill count for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else {
			bm.RecordReceiptsAwaitingBill(ctx, tenantID, awaiting)
		}
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// Business metrics attribute keys not already defined in metrics.go
var (
	AttrReceiptCondition = attribute.Key("receipt_condition")
	AttrDiscrepancyType  = attribute.Key("discrepancy_type")
	AttrSeverity         = attribute.Key("severity")
)
