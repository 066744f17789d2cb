package ledger

import (
	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
)

// AccountType classifies a ledger account
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeEquity    AccountType = "EQUITY"
)

// IsValid checks if the type is a valid AccountType
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeExpense, AccountTypeIncome, AccountTypeEquity:
		return true
	}
	return false
}

// Well-known account codes used by the entry generator
const (
	AccountCodePurchases       = "5100" // goods received, tax exclusive
	AccountCodeInputCGST       = "1461" // central GST input credit
	AccountCodeInputSGST       = "1462" // state GST input credit
	AccountCodeInputIGST       = "1463" // integrated GST input credit
	AccountCodeAccountsPayable = "2100"
)

// Account is a ledger account. IsBankAccount gates payment approval: a
// payment can only be drawn from an account flagged as a bank account.
type Account struct {
	shared.TenantAggregateRoot
	Code          string      `gorm:"type:varchar(20);not null;uniqueIndex:idx_account_tenant_code,priority:2"`
	Name          string      `gorm:"type:varchar(200);not null"`
	Type          AccountType `gorm:"type:varchar(20);not null"`
	IsBankAccount bool        `gorm:"not null;default:false"`
	Active        bool        `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "ledger_accounts"
}

// NewAccount creates a new ledger account
func NewAccount(tenantID uuid.UUID, code, name string, accountType AccountType, isBank bool) (*Account, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Account code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_TYPE", "Unknown account type")
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                accountType,
		IsBankAccount:       isBank,
		Active:              true,
	}, nil
}
