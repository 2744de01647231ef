package domain

import (
	"fmt"
	"time"
)

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

var validAccountTypes = map[AccountType]bool{
	AccountTypeAsset:     true,
	AccountTypeLiability: true,
	AccountTypeEquity:    true,
	AccountTypeRevenue:   true,
	AccountTypeExpense:   true,
}

// IsValid reports whether t is one of the five account types.
func (t AccountType) IsValid() bool {
	return validAccountTypes[t]
}

// NormalBalance is the side on which an account naturally increases.
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "debit"
	NormalBalanceCredit NormalBalance = "credit"
)

// NormalBalance derives the natural side from the account type.
func (t AccountType) NormalBalance() NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalBalanceDebit
	default:
		return NormalBalanceCredit
	}
}

// Account is a node of the per-actor chart of accounts.
// Accounts are never deleted: historical entries keep referencing them.
type Account struct {
	ID             string
	Code           string
	Name           string
	AccountType    AccountType
	NormalBalance  NormalBalance
	ParentID       *string
	Level          int
	IsActive       bool
	CreatedBy      string
	OrganizationID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Normalize corrects derived fields before a write.
func (a *Account) Normalize() {
	a.NormalBalance = a.AccountType.NormalBalance()
	if a.ParentID == nil && a.Level <= 0 {
		a.Level = 1
	}
}

// Validate checks the account fields a write depends on.
func (a *Account) Validate() error {
	if err := ValidateAccountCode(a.Code); err != nil {
		return err
	}
	if err := ValidateAccountName(a.Name); err != nil {
		return err
	}
	if !a.AccountType.IsValid() {
		return fmt.Errorf("%w: unknown account type %q", ErrValidation, a.AccountType)
	}
	return nil
}

// OwnedBy reports whether the account is visible within scope.
func (a *Account) OwnedBy(scope Scope) bool {
	if a.CreatedBy != scope.ActorID {
		return false
	}
	return scope.OrganizationID == "" || a.OrganizationID == scope.OrganizationID
}
