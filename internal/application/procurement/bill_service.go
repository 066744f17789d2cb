package procurement

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procureflow/backend/internal/domain/ledger"
	"github.com/procureflow/backend/internal/domain/procurement"
)

// BillService is the query surface for vendor bills and their posted
// journals. Bills are created through ReceiptService; there is no direct
// create path.
type BillService struct {
	billRepo    procurement.VendorBillRepository
	journalRepo ledger.JournalTransactionRepository
	logger      *zap.Logger
}

// NewBillService creates a new BillService
func NewBillService(billRepo procurement.VendorBillRepository, journalRepo ledger.JournalTransactionRepository, logger *zap.Logger) *BillService {
	return &BillService{
		billRepo:    billRepo,
		journalRepo: journalRepo,
		logger:      logger,
	}
}

// GetBill retrieves one bill with its lines
func (s *BillService) GetBill(ctx context.Context, tenantID, billID uuid.UUID) (*BillResponse, error) {
	bill, err := s.billRepo.FindByIDForTenant(ctx, tenantID, billID)
	if err != nil {
		return nil, err
	}
	response := ToBillResponse(bill)
	return &response, nil
}

// ListBills retrieves bills with filtering and pagination
func (s *BillService) ListBills(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]BillResponse, error) {
	bills, err := s.billRepo.FindAllForTenant(ctx, tenantID, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	responses := make([]BillResponse, len(bills))
	for idx := range bills {
		responses[idx] = ToBillResponse(&bills[idx])
	}
	return responses, nil
}

// GetBillJournal retrieves the journal transaction posted for a bill
func (s *BillService) GetBillJournal(ctx context.Context, tenantID, billID uuid.UUID) (*ledger.JournalTransaction, error) {
	return s.journalRepo.FindBySource(ctx, tenantID, ledger.TransactionSourceVendorBill, billID)
}
