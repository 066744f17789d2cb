package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// balanceEpsilon is the currency tolerance under which a debit/credit
// difference counts as balanced (half the smallest representable unit for
// two-decimal currencies)
var balanceEpsilon = decimal.NewFromFloat(0.01)

// LedgerEntry is one debit or credit line of a financial transaction.
// Exactly one of Debit and Credit is nonzero.
type LedgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountCode   string          `gorm:"type:varchar(20);not null;index"`
	Debit         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Credit        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Description   string          `gorm:"type:varchar(500)"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// DebitEntry creates a debit line
func DebitEntry(accountCode string, amount decimal.Decimal, description string) LedgerEntry {
	return LedgerEntry{
		ID:          uuid.New(),
		AccountCode: accountCode,
		Debit:       amount,
		Credit:      decimal.Zero,
		Description: description,
		CreatedAt:   time.Now(),
	}
}

// CreditEntry creates a credit line
func CreditEntry(accountCode string, amount decimal.Decimal, description string) LedgerEntry {
	return LedgerEntry{
		ID:          uuid.New(),
		AccountCode: accountCode,
		Debit:       decimal.Zero,
		Credit:      amount,
		Description: description,
		CreatedAt:   time.Now(),
	}
}

// EntrySet is the result of generating entries for a financial event:
// the lines plus their totals and any structural problems found while
// generating. An EntrySet is not persistable by itself; it becomes a
// JournalTransaction, which refuses unbalanced sets.
type EntrySet struct {
	Entries     []LedgerEntry
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	IsBalanced  bool
	Errors      []string
}

// NewEntrySet computes the totals and balance flag for a set of lines
func NewEntrySet(entries []LedgerEntry, errs ...string) EntrySet {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, e := range entries {
		totalDebit = totalDebit.Add(e.Debit)
		totalCredit = totalCredit.Add(e.Credit)
	}
	return EntrySet{
		Entries:     entries,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		IsBalanced:  totalDebit.Sub(totalCredit).Abs().LessThanOrEqual(balanceEpsilon),
		Errors:      errs,
	}
}

// TransactionSourceType identifies the document a journal transaction
// was generated from
type TransactionSourceType string

const (
	TransactionSourceVendorBill TransactionSourceType = "VENDOR_BILL"
	TransactionSourcePayment    TransactionSourceType = "VENDOR_PAYMENT"
)

// IsValid checks if the source type is valid
func (t TransactionSourceType) IsValid() bool {
	switch t {
	case TransactionSourceVendorBill, TransactionSourcePayment:
		return true
	}
	return false
}

// JournalTransaction is a persisted financial transaction: a balanced group
// of ledger entries tied to a source document. It cannot be constructed from
// an unbalanced entry set; the balance invariant is enforced both here and
// at the persistence gate, so no money-moving record is ever written
// unbalanced.
type JournalTransaction struct {
	shared.TenantAggregateRoot
	TransactionNumber string                `gorm:"type:varchar(50);not null"`
	SourceType        TransactionSourceType `gorm:"type:varchar(20);not null"`
	SourceID          uuid.UUID             `gorm:"type:uuid;not null;index"`
	Entries           []LedgerEntry         `gorm:"foreignKey:TransactionID;references:ID"`
	TotalDebit        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalCredit       decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	PostedAt          time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (JournalTransaction) TableName() string {
	return "journal_transactions"
}

// NewJournalTransaction validates an entry set and wraps it as a
// transaction ready for persistence. Unbalanced or structurally broken sets
// are rejected with an imbalanced-ledger error.
func NewJournalTransaction(tenantID uuid.UUID, transactionNumber string, sourceType TransactionSourceType, sourceID uuid.UUID, set EntrySet) (*JournalTransaction, error) {
	if transactionNumber == "" {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_NUMBER", "Transaction number cannot be empty")
	}
	if !sourceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Unknown transaction source type")
	}
	if sourceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Source ID cannot be empty")
	}
	if err := ValidateBalance(set); err != nil {
		return nil, err
	}

	txn := &JournalTransaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		TransactionNumber:   transactionNumber,
		SourceType:          sourceType,
		SourceID:            sourceID,
		Entries:             make([]LedgerEntry, len(set.Entries)),
		TotalDebit:          set.TotalDebit,
		TotalCredit:         set.TotalCredit,
		PostedAt:            time.Now(),
	}
	copy(txn.Entries, set.Entries)
	for idx := range txn.Entries {
		txn.Entries[idx].TransactionID = txn.ID
	}
	return txn, nil
}

// ValidateBalance is the financial invariant gate: it rejects any entry set
// whose debits and credits do not agree within the currency epsilon, or that
// carries generation errors. Persistence of a transaction is refused
// entirely on failure; there is no "unbalanced but flagged" state.
func ValidateBalance(set EntrySet) error {
	if len(set.Errors) > 0 {
		return shared.NewDomainError("INVALID_ENTRIES",
			fmt.Sprintf("Entry generation reported errors: %v", set.Errors))
	}
	if len(set.Entries) == 0 {
		return shared.NewDomainError("INVALID_ENTRIES", "Entry set cannot be empty")
	}
	if !set.IsBalanced {
		return NewImbalancedLedgerError(set.TotalDebit, set.TotalCredit)
	}
	return nil
}

// ErrCodeImbalancedLedger is the domain error code for the balance gate
const ErrCodeImbalancedLedger = "IMBALANCED_LEDGER"

// NewImbalancedLedgerError builds the fatal balance violation error
func NewImbalancedLedgerError(totalDebit, totalCredit decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(ErrCodeImbalancedLedger,
		fmt.Sprintf("Ledger entries do not balance: debit %s, credit %s",
			totalDebit.StringFixed(2), totalCredit.StringFixed(2)))
}

// IsImbalancedLedgerError reports whether err is the balance gate error
func IsImbalancedLedgerError(err error) bool {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrCodeImbalancedLedger
	}
	return false
}
