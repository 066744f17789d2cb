package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/ledger"
	"github.com/procureflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormJournalTransactionRepository implements ledger.JournalTransactionRepository
// using GORM
type GormJournalTransactionRepository struct {
	db *gorm.DB
}

// NewGormJournalTransactionRepository creates a new GormJournalTransactionRepository
func NewGormJournalTransactionRepository(db *gorm.DB) *GormJournalTransactionRepository {
	return &GormJournalTransactionRepository{db: db}
}

// Save persists a journal transaction and its entries atomically. The
// balance invariant is re-checked at this gate: an unbalanced transaction
// is refused even if it was constructed by other means.
func (r *GormJournalTransactionRepository) Save(ctx context.Context, txn *ledger.JournalTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveJournalTransactionInTx(tx, txn)
	})
}

// saveJournalTransactionInTx writes the transaction header and all entries
// inside an open transaction. Shared with the posting stores.
func saveJournalTransactionInTx(tx *gorm.DB, txn *ledger.JournalTransaction) error {
	if err := ledger.ValidateBalance(ledger.NewEntrySet(txn.Entries)); err != nil {
		return err
	}

	if err := tx.Omit("Entries").Save(txn).Error; err != nil {
		return err
	}
	for i := range txn.Entries {
		txn.Entries[i].TransactionID = txn.ID
		if err := tx.Save(&txn.Entries[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindByID finds a journal transaction by ID within a tenant
func (r *GormJournalTransactionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalTransaction, error) {
	var txn ledger.JournalTransaction
	if err := r.db.WithContext(ctx).
		Preload("Entries").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// FindBySource finds the journal transaction generated from a source document
func (r *GormJournalTransactionRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType ledger.TransactionSourceType, sourceID uuid.UUID) (*ledger.JournalTransaction, error) {
	var txn ledger.JournalTransaction
	if err := r.db.WithContext(ctx).
		Preload("Entries").
		Where("tenant_id = ? AND source_type = ? AND source_id = ?", tenantID, sourceType, sourceID).
		First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// FindAll finds journal transactions for a tenant with pagination
func (r *GormJournalTransactionRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ledger.JournalTransaction], error) {
	query := r.db.WithContext(ctx).Model(&ledger.JournalTransaction{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		query = query.Where("transaction_number ILIKE ?", "%"+filter.Search+"%")
	}
	for key, value := range filter.Filters {
		switch key {
		case "source_type":
			query = query.Where("source_type = ?", value)
		case "source_id":
			query = query.Where("source_id = ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	pageSize := filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	sortField := ValidateSortField(filter.OrderBy, JournalTransactionSortFields, "posted_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var txns []*ledger.JournalTransaction
	if err := query.
		Preload("Entries").
		Order(sortField + " " + sortOrder).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txns).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(txns, total, page, pageSize)
	return &result, nil
}

// Ensure GormJournalTransactionRepository implements JournalTransactionRepository
var _ ledger.JournalTransactionRepository = (*GormJournalTransactionRepository)(nil)
