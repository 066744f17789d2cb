package persistence

import (
	"context"
	"fmt"

	"github.com/procureflow/backend/internal/domain/ledger"
	"github.com/procureflow/backend/internal/domain/procurement"
	"github.com/procureflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormBillPostingStore implements procurement.BillPostingStore. A bill
// creation is one batch: the bill with its lines, the receipt with its
// settled bill reference, the order and the balanced journal transaction.
// A failure anywhere rolls the whole batch back, leaving the receipt's
// stored claim in place for the caller to release.
type GormBillPostingStore struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormBillPostingStore creates a new GormBillPostingStore
func NewGormBillPostingStore(db *gorm.DB) *GormBillPostingStore {
	return &GormBillPostingStore{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (s *GormBillPostingStore) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	s.outboxSaver = saver
}

// SaveBillCreation persists the outcome of a bill creation atomically
func (s *GormBillPostingStore) SaveBillCreation(ctx context.Context, bill *procurement.VendorBill, receipt *procurement.GoodsReceipt, order *procurement.PurchaseOrder, txn *ledger.JournalTransaction) error {
	events := collectEvents(bill, receipt)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveBillInTx(tx, bill); err != nil {
			return err
		}
		if err := saveReceiptWithLockInTx(tx, receipt); err != nil {
			return err
		}
		if err := saveOrderInTx(tx, order); err != nil {
			return err
		}
		if err := saveJournalTransactionInTx(tx, txn); err != nil {
			return err
		}
		if s.outboxSaver != nil && len(events) > 0 {
			if err := s.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err == nil {
		bill.ClearDomainEvents()
		receipt.ClearDomainEvents()
	}
	return err
}

// GormMatchDecisionStore implements procurement.MatchDecisionStore. A match
// approval is one batch: the decided match, the payment-allocated bill, the
// generated payment and the journal transaction for the payment leg.
type GormMatchDecisionStore struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormMatchDecisionStore creates a new GormMatchDecisionStore
func NewGormMatchDecisionStore(db *gorm.DB) *GormMatchDecisionStore {
	return &GormMatchDecisionStore{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (s *GormMatchDecisionStore) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	s.outboxSaver = saver
}

// SaveApproval persists the financial side effects of a match approval
// atomically
func (s *GormMatchDecisionStore) SaveApproval(ctx context.Context, match *procurement.ThreeWayMatch, bill *procurement.VendorBill, payment *procurement.VendorPayment, txn *ledger.JournalTransaction) error {
	events := collectEvents(match, bill, payment)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveMatchInTx(tx, match); err != nil {
			return err
		}
		if err := saveBillWithLockInTx(tx, bill); err != nil {
			return err
		}
		if err := tx.Save(payment).Error; err != nil {
			return err
		}
		if err := saveJournalTransactionInTx(tx, txn); err != nil {
			return err
		}
		if s.outboxSaver != nil && len(events) > 0 {
			if err := s.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err == nil {
		match.ClearDomainEvents()
		bill.ClearDomainEvents()
		payment.ClearDomainEvents()
	}
	return err
}

// collectEvents gathers pending domain events from the aggregates touched
// by a posting batch
func collectEvents(aggregates ...shared.AggregateRoot) []shared.DomainEvent {
	var events []shared.DomainEvent
	for _, agg := range aggregates {
		events = append(events, agg.GetDomainEvents()...)
	}
	return events
}

// Ensure the stores implement their domain interfaces
var (
	_ procurement.BillPostingStore   = (*GormBillPostingStore)(nil)
	_ procurement.MatchDecisionStore = (*GormMatchDecisionStore)(nil)
)
