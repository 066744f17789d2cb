package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procureflow/backend/internal/domain/ledger"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/procureflow/backend/internal/infrastructure/telemetry"
)

const (
	// TaskCategoryPaymentApproval tags the follow-up task created when a
	// receipt completes
	TaskCategoryPaymentApproval = "PAYMENT_APPROVAL"

	idempotencyTTL = 24 * time.Hour
)

// ReceiptService handles the goods receipt lifecycle: recording, completion
// with its follow-up side effects, bill creation under the claim lock and
// payment approval.
type ReceiptService struct {
	receiptRepo procurement.GoodsReceiptRepository
	orderRepo   procurement.PurchaseOrderRepository
	billRepo    procurement.VendorBillRepository
	billStore   procurement.BillPostingStore
	accountRepo ledger.AccountRepository
	sequences   procurement.SequenceGenerator
	entryGen    *ledger.EntryGenerator
	logger      *zap.Logger

	taskService     shared.TaskService
	auditSink       shared.AuditSink
	idempotency     shared.IdempotencyStore
	businessMetrics *telemetry.BusinessMetrics
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(
	receiptRepo procurement.GoodsReceiptRepository,
	orderRepo procurement.PurchaseOrderRepository,
	billRepo procurement.VendorBillRepository,
	billStore procurement.BillPostingStore,
	accountRepo ledger.AccountRepository,
	sequences procurement.SequenceGenerator,
	logger *zap.Logger,
) *ReceiptService {
	return &ReceiptService{
		receiptRepo: receiptRepo,
		orderRepo:   orderRepo,
		billRepo:    billRepo,
		billStore:   billStore,
		accountRepo: accountRepo,
		sequences:   sequences,
		entryGen:    ledger.NewEntryGenerator(),
		logger:      logger,
	}
}

// SetTaskService sets the follow-up task collaborator
func (s *ReceiptService) SetTaskService(taskService shared.TaskService) {
	s.taskService = taskService
}

// SetAuditSink sets the audit event collaborator
func (s *ReceiptService) SetAuditSink(sink shared.AuditSink) {
	s.auditSink = sink
}

// SetIdempotencyStore sets the idempotency key store
func (s *ReceiptService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetBusinessMetrics sets the business metrics collector
func (s *ReceiptService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// CreateReceipt records a goods receipt against a purchase order and applies
// the received quantities to the order's running totals in one batch
func (s *ReceiptService) CreateReceipt(ctx context.Context, tenantID, actorID uuid.UUID, req CreateReceiptRequest) (*ReceiptResponse, error) {
	if err := s.claimIdempotencyKey(ctx, tenantID, "receipt.create", req.IdempotencyKey); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanReceive() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot receive goods for order in %s status", order.Status))
	}

	receiptNumber, err := s.sequences.Next(ctx, tenantID, procurement.DocumentTypeGoodsReceipt, time.Now())
	if err != nil {
		return nil, err
	}

	receipt, err := procurement.NewGoodsReceipt(tenantID, receiptNumber, order.ID, order.VendorID, actorID)
	if err != nil {
		return nil, err
	}

	for _, input := range req.Items {
		orderItem := order.GetItem(input.OrderItemID)
		if orderItem == nil {
			return nil, shared.NewDomainError("ITEM_NOT_FOUND",
				fmt.Sprintf("Order item %s not found on order %s", input.OrderItemID, order.OrderNumber))
		}

		condition := procurement.ItemCondition(input.Condition)
		if _, err := receipt.AddItem(orderItem.ID, orderItem.ProductID, orderItem.Description,
			input.ReceivedQty, input.AcceptedQty, input.RejectedQty, condition); err != nil {
			return nil, err
		}
		if err := order.RecordDelivery(orderItem.ID, input.ReceivedQty, input.AcceptedQty, input.RejectedQty); err != nil {
			return nil, err
		}
	}

	if req.Complete {
		if err := receipt.Complete(req.InspectionNote); err != nil {
			return nil, err
		}
	}

	if err := s.receiptRepo.SaveWithOrder(ctx, receipt, order); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, tenantID, actorID, "receipt.created", "goods_receipt", receipt.ID, "", receipt.ReceiptNumber)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordReceiptCreated(ctx, tenantID, string(receipt.OverallCondition))
	}
	if req.Complete {
		s.runCompletionSideEffects(ctx, receipt, order)
	}

	response := ToReceiptResponse(receipt)
	return &response, nil
}

// CompleteReceipt transitions a receipt to COMPLETED, then fires the
// best-effort follow-ups: a payment approval task for the order owner and an
// automatic bill creation attempt. Neither follow-up failure fails the call.
func (s *ReceiptService) CompleteReceipt(ctx context.Context, tenantID, actorID, receiptID uuid.UUID, req CompleteReceiptRequest) (*ReceiptResponse, error) {
	if err := s.claimIdempotencyKey(ctx, tenantID, "receipt.complete", req.IdempotencyKey); err != nil {
		return nil, err
	}

	receipt, err := s.receiptRepo.FindByIDForTenant(ctx, tenantID, receiptID)
	if err != nil {
		return nil, err
	}
	previousStatus := string(receipt.Status)

	if err := receipt.Complete(req.InspectionNote); err != nil {
		return nil, err
	}
	if err := s.receiptRepo.SaveWithLock(ctx, receipt); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, receipt.OrderID)
	if err != nil {
		// The receipt is completed; follow-ups just cannot run
		s.logger.Warn("completed receipt but could not load order for follow-ups",
			zap.String("receipt_id", receipt.ID.String()),
			zap.Error(err))
		order = nil
	}

	s.recordAudit(ctx, tenantID, actorID, "receipt.completed", "goods_receipt", receipt.ID, previousStatus, string(receipt.Status))
	if s.businessMetrics != nil {
		s.businessMetrics.RecordReceiptCompleted(ctx, tenantID, string(receipt.OverallCondition))
	}
	if order != nil {
		s.runCompletionSideEffects(ctx, receipt, order)
	}

	// Re-read so the response reflects a bill attached by the follow-up
	if refreshed, err := s.receiptRepo.FindByIDForTenant(ctx, tenantID, receiptID); err == nil {
		receipt = refreshed
	}

	response := ToReceiptResponse(receipt)
	return &response, nil
}

// runCompletionSideEffects creates the payment approval task and attempts
// automatic bill creation. Both are best-effort.
func (s *ReceiptService) runCompletionSideEffects(ctx context.Context, receipt *procurement.GoodsReceipt, order *procurement.PurchaseOrder) {
	if s.taskService != nil {
		task := shared.Task{
			ID:          uuid.New(),
			TenantID:    receipt.TenantID,
			AssigneeID:  order.OwnerID,
			Category:    TaskCategoryPaymentApproval,
			Title:       fmt.Sprintf("Approve payment for receipt %s", receipt.ReceiptNumber),
			Description: fmt.Sprintf("Goods receipt %s against order %s is complete and awaits payment approval", receipt.ReceiptNumber, order.OrderNumber),
			EntityType:  "goods_receipt",
			EntityID:    receipt.ID,
			Status:      shared.TaskStatusOpen,
			CreatedAt:   time.Now(),
		}
		if err := s.taskService.CreateTask(ctx, task); err != nil {
			s.logger.Warn("failed to create payment approval task",
				zap.String("receipt_id", receipt.ID.String()),
				zap.Error(err))
		}
	}

	if _, err := s.CreateBillFromReceipt(ctx, receipt.TenantID, receipt.ReceivedBy, receipt.ID); err != nil {
		s.logger.Warn("automatic bill creation failed, bill can be created manually",
			zap.String("receipt_id", receipt.ID.String()),
			zap.String("receipt_number", receipt.ReceiptNumber),
			zap.Error(err))
	}
}

// CreateBillFromReceipt creates the vendor bill for a completed receipt
// under the claim-then-create lock: the receipt's bill reference is claimed
// atomically first, so a concurrent second caller gets a conflict instead of
// a duplicate bill. Any failure after the claim releases it for retry.
func (s *ReceiptService) CreateBillFromReceipt(ctx context.Context, tenantID, actorID, receiptID uuid.UUID) (*BillResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "vendor_bill", "create_from_receipt")
	defer span.End()

	receipt, err := s.receiptRepo.FindByIDForTenant(ctx, tenantID, receiptID)
	if err != nil {
		return nil, err
	}
	if err := receipt.ClaimBillCreation(); err != nil {
		return nil, err
	}
	// Atomic claim in the store; exactly one concurrent caller wins
	if err := s.receiptRepo.ClaimBillCreation(ctx, tenantID, receiptID); err != nil {
		return nil, err
	}

	bill, txn, order, err := s.buildBillForReceipt(ctx, tenantID, receipt)
	if err != nil {
		s.releaseClaim(ctx, tenantID, receiptID)
		return nil, err
	}

	if err := receipt.AttachBill(bill.ID); err != nil {
		s.releaseClaim(ctx, tenantID, receiptID)
		return nil, err
	}

	if err := s.billStore.SaveBillCreation(ctx, bill, receipt, order, txn); err != nil {
		s.releaseClaim(ctx, tenantID, receiptID)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrReceiptNumber, receipt.ReceiptNumber,
		telemetry.SpanAttrBillNumber, bill.BillNumber,
		telemetry.SpanAttrVendorName, bill.VendorName,
		telemetry.SpanAttrAmount, bill.TotalAmount.StringFixed(2),
	)

	s.recordAudit(ctx, tenantID, actorID, "bill.created", "vendor_bill", bill.ID, "", bill.BillNumber)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordBillPosted(ctx, tenantID, bill.TotalAmount)
	}
	s.logger.Info("vendor bill created from receipt",
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.String("bill_number", bill.BillNumber),
		zap.String("total", bill.TotalAmount.StringFixed(2)))

	response := ToBillResponse(bill)
	return &response, nil
}

// buildBillForReceipt assembles the bill, its ledger entries and the
// balanced journal transaction. No side effects; safe to fail before the
// batch write.
func (s *ReceiptService) buildBillForReceipt(ctx context.Context, tenantID uuid.UUID, receipt *procurement.GoodsReceipt) (*procurement.VendorBill, *ledger.JournalTransaction, *procurement.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, receipt.OrderID)
	if err != nil {
		return nil, nil, nil, err
	}

	billNumber, err := s.sequences.Next(ctx, tenantID, procurement.DocumentTypeVendorBill, time.Now())
	if err != nil {
		return nil, nil, nil, err
	}

	bill, err := procurement.NewVendorBill(tenantID, billNumber, order.VendorID, order.VendorName, procurement.BillSourceTypeGoodsReceipt)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := bill.SetSource(receipt.ID, order.ID); err != nil {
		return nil, nil, nil, err
	}

	for _, item := range receipt.Items {
		orderItem := order.GetItem(item.OrderItemID)
		if orderItem == nil {
			return nil, nil, nil, shared.NewDomainError("ITEM_NOT_FOUND",
				fmt.Sprintf("Receipt line %s references an unknown order item", item.ID))
		}
		if _, err := bill.AddLineItem(orderItem.Description, item.ReceivedQty, orderItem.GetUnitPriceMoney(), orderItem.GSTRate); err != nil {
			return nil, nil, nil, err
		}
	}

	set := s.entryGen.ForVendorBill(ledger.BillingEvent{
		BillNumber: bill.BillNumber,
		VendorName: bill.VendorName,
		Subtotal:   bill.Subtotal,
		TaxAmount:  bill.TaxAmount,
		Total:      bill.TotalAmount,
		Interstate: order.Interstate,
	})
	txn, err := ledger.NewJournalTransaction(tenantID, bill.BillNumber, ledger.TransactionSourceVendorBill, bill.ID, set)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := bill.MarkPosted(); err != nil {
		return nil, nil, nil, err
	}

	return bill, txn, order, nil
}

// releaseClaim clears the stored bill claim after a failed creation so the
// operation can be retried
func (s *ReceiptService) releaseClaim(ctx context.Context, tenantID, receiptID uuid.UUID) {
	if err := s.receiptRepo.ReleaseBillClaim(ctx, tenantID, receiptID); err != nil {
		s.logger.Error("failed to release bill claim; receipt is stuck until manual release",
			zap.String("receipt_id", receiptID.String()),
			zap.Error(err))
	}
}

// ApproveForPayment flips the receipt's payment approval flag.
// Four distinct failures: receipt not completed, already approved, no bill
// attached, and the bank account missing or not flagged as a bank account.
func (s *ReceiptService) ApproveForPayment(ctx context.Context, tenantID, actorID, receiptID uuid.UUID, bankAccountCode string) (*ReceiptResponse, error) {
	receipt, err := s.receiptRepo.FindByIDForTenant(ctx, tenantID, receiptID)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindByCode(ctx, tenantID, bankAccountCode)
	if err != nil {
		return nil, shared.NewDomainError("NO_BANK_ACCOUNT",
			fmt.Sprintf("Bank account %s does not exist", bankAccountCode))
	}
	if !account.IsBankAccount {
		return nil, shared.NewDomainError("NOT_BANK_ACCOUNT",
			fmt.Sprintf("Account %s is not flagged as a bank account", bankAccountCode))
	}

	if err := receipt.ApprovePayment(actorID); err != nil {
		return nil, err
	}
	if err := s.receiptRepo.SaveWithLock(ctx, receipt); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, tenantID, actorID, "receipt.payment_approved", "goods_receipt", receipt.ID, "false", "true")
	if s.taskService != nil {
		if err := s.taskService.CompleteTasksFor(ctx, tenantID, "goods_receipt", receipt.ID, TaskCategoryPaymentApproval); err != nil {
			s.logger.Warn("failed to complete payment approval tasks",
				zap.String("receipt_id", receipt.ID.String()),
				zap.Error(err))
		}
	}

	response := ToReceiptResponse(receipt)
	return &response, nil
}

// GetReceipt retrieves one receipt
func (s *ReceiptService) GetReceipt(ctx context.Context, tenantID, receiptID uuid.UUID) (*ReceiptResponse, error) {
	receipt, err := s.receiptRepo.FindByIDForTenant(ctx, tenantID, receiptID)
	if err != nil {
		return nil, err
	}
	response := ToReceiptResponse(receipt)
	return &response, nil
}

// ListReceipts retrieves receipts with filtering and pagination
func (s *ReceiptService) ListReceipts(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]ReceiptResponse, error) {
	receipts, err := s.receiptRepo.FindAllForTenant(ctx, tenantID, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	responses := make([]ReceiptResponse, len(receipts))
	for idx := range receipts {
		responses[idx] = ToReceiptResponse(&receipts[idx])
	}
	return responses, nil
}

// claimIdempotencyKey deduplicates a mutating call by its idempotency key.
// An empty key disables the check.
func (s *ReceiptService) claimIdempotencyKey(ctx context.Context, tenantID uuid.UUID, operation, key string) error {
	if key == "" || s.idempotency == nil {
		return nil
	}
	storeKey := fmt.Sprintf("%s:%s:%s", tenantID, operation, key)
	fresh, err := s.idempotency.MarkProcessed(ctx, storeKey, idempotencyTTL)
	if err != nil {
		// The store being down must not block business operations
		s.logger.Warn("idempotency store unavailable, proceeding without dedup", zap.Error(err))
		return nil
	}
	if !fresh {
		return shared.ErrDuplicateRequest
	}
	return nil
}

// recordAudit appends an audit event; failures are logged only
func (s *ReceiptService) recordAudit(ctx context.Context, tenantID, actorID uuid.UUID, action, entityType string, entityID uuid.UUID, before, after string) {
	if s.auditSink == nil {
		return
	}
	event := shared.AuditEvent{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
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

// toDomainFilter applies defaults and converts to the repository filter
func toDomainFilter(filter ListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	return domainFilter
}
