package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/procureflow/backend/internal/infrastructure/telemetry"
)

// PaymentService handles the vendor payment lifecycle after generation:
// completion when the bank executes, cancellation while still pending, and
// the query surface.
type PaymentService struct {
	paymentRepo procurement.VendorPaymentRepository
	logger      *zap.Logger

	auditSink       shared.AuditSink
	idempotency     shared.IdempotencyStore
	businessMetrics *telemetry.BusinessMetrics
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(paymentRepo procurement.VendorPaymentRepository, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// SetAuditSink sets the audit event collaborator
func (s *PaymentService) SetAuditSink(sink shared.AuditSink) {
	s.auditSink = sink
}

// SetIdempotencyStore sets the idempotency key store
func (s *PaymentService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetBusinessMetrics sets the business metrics collector
func (s *PaymentService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// CompletePayment marks a pending payment as executed by the bank
func (s *PaymentService) CompletePayment(ctx context.Context, tenantID, actorID, paymentID uuid.UUID, req CompletePaymentRequest) (*PaymentResponse, error) {
	if err := s.claimIdempotencyKey(ctx, tenantID, "payment.complete", req.IdempotencyKey); err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.FindByIDForTenant(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}

	previousStatus := string(payment.Status)
	if err := payment.Complete(actorID, req.Reference); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, tenantID, actorID, "payment.completed", payment.ID, previousStatus, string(payment.Status))
	s.logger.Info("vendor payment completed",
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("reference", payment.Reference))

	response := ToPaymentResponse(payment)
	return &response, nil
}

// CancelPayment cancels a pending payment. Completed payments cannot be
// cancelled.
func (s *PaymentService) CancelPayment(ctx context.Context, tenantID, actorID, paymentID uuid.UUID, req CancelPaymentRequest) (*PaymentResponse, error) {
	if err := s.claimIdempotencyKey(ctx, tenantID, "payment.cancel", req.IdempotencyKey); err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.FindByIDForTenant(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}

	previousStatus := string(payment.Status)
	if err := payment.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, tenantID, actorID, "payment.cancelled", payment.ID, previousStatus, string(payment.Status))
	if s.businessMetrics != nil {
		s.businessMetrics.RecordPayment(ctx, tenantID, string(payment.PaymentMethod), telemetry.PaymentStatusFailed)
	}
	s.logger.Info("vendor payment cancelled",
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("reason", req.Reason))

	response := ToPaymentResponse(payment)
	return &response, nil
}

// GetPayment retrieves one payment
func (s *PaymentService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByIDForTenant(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	response := ToPaymentResponse(payment)
	return &response, nil
}

// ListPaymentsForBill retrieves the payments allocated against a bill
func (s *PaymentService) ListPaymentsForBill(ctx context.Context, tenantID, billID uuid.UUID) ([]PaymentResponse, error) {
	payments, err := s.paymentRepo.FindByBill(ctx, tenantID, billID)
	if err != nil {
		return nil, err
	}
	responses := make([]PaymentResponse, len(payments))
	for idx := range payments {
		responses[idx] = ToPaymentResponse(&payments[idx])
	}
	return responses, nil
}

// ListPayments retrieves payments with filtering and pagination
func (s *PaymentService) ListPayments(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]PaymentResponse, error) {
	payments, err := s.paymentRepo.FindAllForTenant(ctx, tenantID, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	responses := make([]PaymentResponse, len(payments))
	for idx := range payments {
		responses[idx] = ToPaymentResponse(&payments[idx])
	}
	return responses, nil
}

// claimIdempotencyKey deduplicates a mutating call by its idempotency key
func (s *PaymentService) claimIdempotencyKey(ctx context.Context, tenantID uuid.UUID, operation, key string) error {
	if key == "" || s.idempotency == nil {
		return nil
	}
	storeKey := fmt.Sprintf("%s:%s:%s", tenantID, operation, key)
	fresh, err := s.idempotency.MarkProcessed(ctx, storeKey, idempotencyTTL)
	if err != nil {
		s.logger.Warn("idempotency store unavailable, proceeding without dedup", zap.Error(err))
		return nil
	}
	if !fresh {
		return shared.ErrDuplicateRequest
	}
	return nil
}

// recordAudit appends an audit event; failures are logged only
func (s *PaymentService) recordAudit(ctx context.Context, tenantID, actorID uuid.UUID, action string, entityID uuid.UUID, before, after string) {
	if s.auditSink == nil {
		return
	}
	event := shared.AuditEvent{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Action:     action,
		EntityType: "vendor_payment",
		EntityID:   entityID,
		Before:     before,
		After:      after,
		OccurredAt: time.Now(),
	}
	if err := s.auditSink.Record(ctx, event); err != nil {
		s.logger.Warn("failed to record audit event",
			zap.String("action", action),
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
	}
}
