package procurement

import (
	"context"

	"github.com/procureflow/backend/internal/domain/ledger"
)

// BillPostingStore persists the outcome of a bill creation as one atomic
// batch: the new bill, the receipt with its settled bill reference, the
// order's updated receiving totals and the balanced journal transaction.
// Either everything is written or nothing is.
type BillPostingStore interface {
	SaveBillCreation(ctx context.Context, bill *VendorBill, receipt *GoodsReceipt, order *PurchaseOrder, txn *ledger.JournalTransaction) error
}

// MatchDecisionStore persists the financial side effects of a match
// approval as one atomic batch: the decided match, the posted and
// payment-allocated bill, the generated payment and the journal
// transaction for the payment leg.
type MatchDecisionStore interface {
	SaveApproval(ctx context.Context, match *ThreeWayMatch, bill *VendorBill, payment *VendorPayment, txn *ledger.JournalTransaction) error
}
