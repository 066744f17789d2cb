package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/ledger"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockJournalTransactionRepository(t *testing.T) (*GormJournalTransactionRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormJournalTransactionRepository(gormDB), mock, mockDB
}

func TestGormJournalTransactionRepository_Save(t *testing.T) {
	t.Run("refuses an unbalanced transaction before touching the database", func(t *testing.T) {
		repo, mock, mockDB := newMockJournalTransactionRepository(t)
		defer mockDB.Close()

		// Assembled by hand to sidestep the constructor gate; the
		// persistence gate must still catch it.
		txn := &ledger.JournalTransaction{
			TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.New()),
			TransactionNumber:   "BILL/2026/01/0001",
			SourceType:          ledger.TransactionSourceVendorBill,
			SourceID:            uuid.New(),
			Entries: []ledger.LedgerEntry{
				ledger.DebitEntry("5100", decimal.NewFromInt(100), "Purchases"),
				ledger.CreditEntry("2100", decimal.NewFromInt(90), "Accounts payable"),
			},
		}

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repo.Save(context.Background(), txn)

		assert.True(t, ledger.IsImbalancedLedgerError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses a transaction without entries", func(t *testing.T) {
		repo, mock, mockDB := newMockJournalTransactionRepository(t)
		defer mockDB.Close()

		txn := &ledger.JournalTransaction{
			TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.New()),
			TransactionNumber:   "BILL/2026/01/0002",
			SourceType:          ledger.TransactionSourceVendorBill,
			SourceID:            uuid.New(),
		}

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repo.Save(context.Background(), txn)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_ENTRIES", domainErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormJournalTransactionRepository_FindBySource(t *testing.T) {
	t.Run("returns not found when no transaction exists for the source", func(t *testing.T) {
		repo, mock, mockDB := newMockJournalTransactionRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		sourceID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "journal_transactions" WHERE tenant_id = \$1 AND source_type = \$2 AND source_id = \$3`).
			WithArgs(tenantID, ledger.TransactionSourceVendorBill, sourceID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		txn, err := repo.FindBySource(context.Background(), tenantID, ledger.TransactionSourceVendorBill, sourceID)

		assert.Nil(t, txn)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
