package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/procureflow/backend/internal/domain/shared"
)

// AccountRepository manages chart-of-accounts persistence
type AccountRepository interface {
	Save(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Account], error)
	FindBankAccounts(ctx context.Context, tenantID uuid.UUID) ([]*Account, error)
}

// JournalTransactionRepository persists balanced journal transactions.
// Save must reject any transaction whose entry set fails ValidateBalance
// and must write the transaction header and all of its entries atomically.
type JournalTransactionRepository interface {
	Save(ctx context.Context, txn *JournalTransaction) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*JournalTransaction, error)
	FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType TransactionSourceType, sourceID uuid.UUID) (*JournalTransaction, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*JournalTransaction], error)
}
