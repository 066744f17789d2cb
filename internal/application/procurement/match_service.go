package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procureflow/backend/internal/domain/ledger"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/procureflow/backend/internal/infrastructure/telemetry"
)

// MatchService runs three-way matches and drives their approval workflow.
// Approval settles the bill: a payment is generated for the outstanding
// balance, its ledger entries pass the balance gate and everything persists
// in one batch.
type MatchService struct {
	matchRepo     procurement.ThreeWayMatchRepository
	orderRepo     procurement.PurchaseOrderRepository
	receiptRepo   procurement.GoodsReceiptRepository
	billRepo      procurement.VendorBillRepository
	toleranceRepo procurement.ToleranceConfigRepository
	accountRepo   ledger.AccountRepository
	decisionStore procurement.MatchDecisionStore
	sequences     procurement.SequenceGenerator
	runner        *procurement.MatchRunner
	entryGen      *ledger.EntryGenerator
	logger        *zap.Logger

	auditSink          shared.AuditSink
	idempotency        shared.IdempotencyStore
	businessMetrics    *telemetry.BusinessMetrics
	fallbackTolerances *procurement.ToleranceConfig
}

// NewMatchService creates a new MatchService
func NewMatchService(
	matchRepo procurement.ThreeWayMatchRepository,
	orderRepo procurement.PurchaseOrderRepository,
	receiptRepo procurement.GoodsReceiptRepository,
	billRepo procurement.VendorBillRepository,
	toleranceRepo procurement.ToleranceConfigRepository,
	accountRepo ledger.AccountRepository,
	decisionStore procurement.MatchDecisionStore,
	sequences procurement.SequenceGenerator,
	logger *zap.Logger,
) *MatchService {
	return &MatchService{
		matchRepo:     matchRepo,
		orderRepo:     orderRepo,
		receiptRepo:   receiptRepo,
		billRepo:      billRepo,
		toleranceRepo: toleranceRepo,
		accountRepo:   accountRepo,
		decisionStore: decisionStore,
		sequences:     sequences,
		runner:        procurement.NewMatchRunner(procurement.NewHeuristicLineMatcher()),
		entryGen:      ledger.NewEntryGenerator(),
		logger:        logger,
	}
}

// SetAuditSink sets the audit event collaborator
func (s *MatchService) SetAuditSink(sink shared.AuditSink) {
	s.auditSink = sink
}

// SetIdempotencyStore sets the idempotency key store
func (s *MatchService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetBusinessMetrics sets the business metrics collector
func (s *MatchService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetFallbackTolerances overrides the built-in tolerance defaults applied
// when a tenant has no active configuration, typically from deployment config
func (s *MatchService) SetFallbackTolerances(template *procurement.ToleranceConfig) {
	s.fallbackTolerances = template
}

// RunMatch reconciles a purchase order, goods receipt and vendor bill under
// the tenant's active tolerance policy and persists the result. The stored
// defaults apply when no policy is configured.
func (s *MatchService) RunMatch(ctx context.Context, tenantID, actorID uuid.UUID, req RunMatchRequest) (*MatchResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "match", "run")
	defer span.End()

	if err := s.claimIdempotencyKey(ctx, tenantID, "match.run", req.IdempotencyKey); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, req.OrderID)
	if err != nil {
		return nil, err
	}
	receipt, err := s.receiptRepo.FindByIDForTenant(ctx, tenantID, req.ReceiptID)
	if err != nil {
		return nil, err
	}
	bill, err := s.billRepo.FindByIDForTenant(ctx, tenantID, req.BillID)
	if err != nil {
		return nil, err
	}

	config, err := s.toleranceRepo.FindActiveForTenant(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if s.fallbackTolerances != nil {
			config = s.fallbackTolerances.ForTenant(tenantID)
		} else {
			config = procurement.DefaultToleranceConfig(tenantID)
		}
	}

	matchNumber, err := s.sequences.Next(ctx, tenantID, procurement.DocumentTypeMatch, time.Now())
	if err != nil {
		return nil, err
	}

	match, err := s.runner.Run(procurement.MatchInput{
		MatchNumber: matchNumber,
		Order:       order,
		Receipt:     receipt,
		Bill:        bill,
		Config:      config,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.matchRepo.Save(ctx, match); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrMatchNumber, match.MatchNumber,
		telemetry.SpanAttrBillNumber, bill.BillNumber,
		telemetry.SpanAttrMatchStatus, string(match.Status),
		telemetry.SpanAttrDiscrepancyCount, match.DiscrepancyCount,
	)

	s.recordAudit(ctx, tenantID, actorID, "match.run", match.ID, "", string(match.Status))
	if s.businessMetrics != nil {
		s.businessMetrics.RecordMatchRun(ctx, tenantID, string(match.Status))
		for _, d := range match.Discrepancies {
			s.businessMetrics.RecordDiscrepancy(ctx, tenantID, string(d.Type), string(d.Severity))
		}
	}
	s.logger.Info("three-way match completed",
		zap.String("match_number", match.MatchNumber),
		zap.String("status", string(match.Status)),
		zap.Int("discrepancies", match.DiscrepancyCount))

	response := ToMatchResponse(match)
	return &response, nil
}

// ApproveMatch approves a pending match and settles its bill: a payment is
// generated for the full outstanding balance from the given bank account,
// the payment's ledger entries pass the balance gate and the match, bill and
// payment persist in one batch.
func (s *MatchService) ApproveMatch(ctx context.Context, tenantID, actorID, matchID uuid.UUID, req ApproveMatchRequest) (*MatchDecisionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "match", "approve")
	defer span.End()

	if err := s.claimIdempotencyKey(ctx, tenantID, "match.approve", req.IdempotencyKey); err != nil {
		return nil, err
	}

	match, err := s.matchRepo.FindByIDForTenant(ctx, tenantID, matchID)
	if err != nil {
		return nil, err
	}
	bill, err := s.billRepo.FindByIDForTenant(ctx, tenantID, match.BillID)
	if err != nil {
		return nil, err
	}
	if !bill.Posted {
		return nil, shared.NewDomainError("BILL_NOT_POSTED",
			fmt.Sprintf("Bill %s has no posted ledger entries", bill.BillNumber))
	}

	account, err := s.accountRepo.FindByCode(ctx, tenantID, req.BankAccountCode)
	if err != nil {
		return nil, shared.NewDomainError("NO_BANK_ACCOUNT",
			fmt.Sprintf("Bank account %s does not exist", req.BankAccountCode))
	}
	if !account.IsBankAccount {
		return nil, shared.NewDomainError("NOT_BANK_ACCOUNT",
			fmt.Sprintf("Account %s is not flagged as a bank account", req.BankAccountCode))
	}

	previousStatus := string(match.ApprovalStatus)
	if err := match.Approve(actorID); err != nil {
		return nil, err
	}

	payment, txn, err := s.buildSettlement(ctx, tenantID, bill, req)
	if err != nil {
		return nil, err
	}

	if err := bill.ApplyPayment(payment.GetAmountMoney()); err != nil {
		return nil, err
	}
	if err := match.RecordPostedBill(bill.ID); err != nil {
		return nil, err
	}

	if err := s.decisionStore.SaveApproval(ctx, match, bill, payment, txn); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrMatchNumber, match.MatchNumber,
		telemetry.SpanAttrBillNumber, bill.BillNumber,
		telemetry.SpanAttrVendorName, bill.VendorName,
	)
	telemetry.AddEvent(span, "payment_generated",
		telemetry.SpanAttrPaymentNumber, payment.PaymentNumber,
		telemetry.SpanAttrAmount, payment.Amount.StringFixed(2),
	)

	s.recordAudit(ctx, tenantID, actorID, "match.approved", match.ID, previousStatus, string(match.ApprovalStatus))
	if s.businessMetrics != nil {
		s.businessMetrics.RecordPayment(ctx, tenantID, string(payment.PaymentMethod), telemetry.PaymentStatusSuccess)
	}
	s.logger.Info("match approved and bill settled",
		zap.String("match_number", match.MatchNumber),
		zap.String("bill_number", bill.BillNumber),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("amount", payment.Amount.StringFixed(2)))

	matchResponse := ToMatchResponse(match)
	paymentResponse := ToPaymentResponse(payment)
	return &MatchDecisionResponse{Match: matchResponse, Payment: &paymentResponse}, nil
}

// buildSettlement generates the vendor payment for the bill's outstanding
// balance together with its balanced journal transaction
func (s *MatchService) buildSettlement(ctx context.Context, tenantID uuid.UUID, bill *procurement.VendorBill, req ApproveMatchRequest) (*procurement.VendorPayment, *ledger.JournalTransaction, error) {
	paymentNumber, err := s.sequences.Next(ctx, tenantID, procurement.DocumentTypePayment, time.Now())
	if err != nil {
		return nil, nil, err
	}

	method := procurement.PaymentMethod(req.PaymentMethod)
	if req.PaymentMethod == "" {
		method = procurement.PaymentMethodBankTransfer
	}

	payment, err := procurement.NewVendorPayment(tenantID, paymentNumber, bill.ID, bill.BillNumber,
		bill.VendorID, bill.VendorName, bill.GetOutstandingMoney(), method, req.BankAccountCode)
	if err != nil {
		return nil, nil, err
	}

	set := s.entryGen.ForPayment(ledger.PaymentEvent{
		PaymentNumber:   payment.PaymentNumber,
		BillNumber:      bill.BillNumber,
		VendorName:      bill.VendorName,
		Amount:          payment.Amount,
		BankAccountCode: payment.BankAccountCode,
	})
	txn, err := ledger.NewJournalTransaction(tenantID, payment.PaymentNumber, ledger.TransactionSourcePayment, payment.ID, set)
	if err != nil {
		return nil, nil, err
	}

	return payment, txn, nil
}

// RejectMatch rejects a pending match with a reason. The match becomes
// terminal; no ledger activity occurs.
func (s *MatchService) RejectMatch(ctx context.Context, tenantID, actorID, matchID uuid.UUID, req RejectMatchRequest) (*MatchResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "match", "reject")
	defer span.End()

	if err := s.claimIdempotencyKey(ctx, tenantID, "match.reject", req.IdempotencyKey); err != nil {
		return nil, err
	}

	match, err := s.matchRepo.FindByIDForTenant(ctx, tenantID, matchID)
	if err != nil {
		return nil, err
	}

	previousStatus := string(match.ApprovalStatus)
	if err := match.Reject(actorID, req.Reason); err != nil {
		return nil, err
	}
	if err := s.matchRepo.Save(ctx, match); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrMatchNumber, match.MatchNumber)

	s.recordAudit(ctx, tenantID, actorID, "match.rejected", match.ID, previousStatus, string(match.ApprovalStatus))
	s.logger.Info("match rejected",
		zap.String("match_number", match.MatchNumber),
		zap.String("reason", req.Reason))

	response := ToMatchResponse(match)
	return &response, nil
}

// GetMatch retrieves one match with its lines and discrepancies
func (s *MatchService) GetMatch(ctx context.Context, tenantID, matchID uuid.UUID) (*MatchResponse, error) {
	match, err := s.matchRepo.FindByIDForTenant(ctx, tenantID, matchID)
	if err != nil {
		return nil, err
	}
	response := ToMatchResponse(match)
	return &response, nil
}

// ListMatches retrieves matches with filtering and pagination
func (s *MatchService) ListMatches(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]MatchResponse, error) {
	matches, err := s.matchRepo.FindAllForTenant(ctx, tenantID, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	responses := make([]MatchResponse, len(matches))
	for idx := range matches {
		responses[idx] = ToMatchResponse(&matches[idx])
	}
	return responses, nil
}

// claimIdempotencyKey deduplicates a mutating call by its idempotency key
func (s *MatchService) claimIdempotencyKey(ctx context.Context, tenantID uuid.UUID, operation, key string) error {
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
func (s *MatchService) recordAudit(ctx context.Context, tenantID, actorID uuid.UUID, action string, entityID uuid.UUID, before, after string) {
	if s.auditSink == nil {
		return
	}
	event := shared.AuditEvent{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Action:     action,
		EntityType: "three_way_match",
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
