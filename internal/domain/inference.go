package domain

import (
	"time"
)

// EntryPattern is a two-leg posting template for auto-created groups.
type EntryPattern string

const (
	// PatternAssetLiability debits an asset and credits a liability (goods received on credit).
	PatternAssetLiability EntryPattern = "asset-liability"
	// PatternExpenseAsset debits an expense and credits an asset (paid immediately).
	PatternExpenseAsset EntryPattern = "expense-asset"
)

// InferEntryType picks the posting pattern for a candidate account set.
// There is no default: a set matching no rule is ambiguous.
func InferEntryType(accounts []*Account) (EntryPattern, error) {
	var hasAsset, hasLiability, hasExpense, hasOther bool
	for _, a := range accounts {
		switch a.AccountType {
		case AccountTypeAsset:
			hasAsset = true
		case AccountTypeLiability:
			hasLiability = true
		case AccountTypeExpense:
			hasExpense = true
		default:
			hasOther = true
		}
	}

	switch {
	case hasAsset && hasLiability && !hasExpense:
		return PatternAssetLiability, nil
	case hasExpense && hasAsset:
		return PatternExpenseAsset, nil
	case hasAsset && hasLiability:
		return PatternAssetLiability, nil
	case hasExpense && (hasLiability || hasOther):
		return PatternExpenseAsset, nil
	}

	var present []AccountType
	if hasExpense {
		present = append(present, AccountTypeExpense)
	}
	if hasAsset {
		present = append(present, AccountTypeAsset)
	}
	if hasLiability {
		present = append(present, AccountTypeLiability)
	}
	return "", &AmbiguousEntryTypeError{Present: present}
}

// ResolveCounterAccounts selects the debit and credit account for pattern.
// The first matching account in input order wins.
func ResolveCounterAccounts(pattern EntryPattern, accounts []*Account) (debit, credit *Account, err error) {
	switch pattern {
	case PatternAssetLiability:
		debit = firstOfType(accounts, AccountTypeAsset)
		credit = firstOfType(accounts, AccountTypeLiability)
	case PatternExpenseAsset:
		debit = firstOfType(accounts, AccountTypeExpense)
		credit = firstOfType(accounts, AccountTypeAsset)
		if credit == nil {
			for _, a := range accounts {
				if a.AccountType != AccountTypeExpense {
					credit = a
					break
				}
			}
		}
	default:
		return nil, nil, &AmbiguousEntryTypeError{}
	}

	if debit == nil || credit == nil {
		return nil, nil, ErrMissingCounterAccount
	}
	return debit, credit, nil
}

func firstOfType(accounts []*Account, t AccountType) *Account {
	for _, a := range accounts {
		if a.AccountType == t {
			return a
		}
	}
	return nil
}

// ParseDocumentDate reads YYYYMMDD from the first eight digits of an
// external document identifier, falling back to now.
func ParseDocumentDate(identifier string, now time.Time) time.Time {
	digits := make([]byte, 0, 8)
	for i := 0; i < len(identifier) && len(digits) < 8; i++ {
		if c := identifier[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) < 8 {
		return now
	}
	t, err := time.ParseInLocation("20060102", string(digits), now.Location())
	if err != nil {
		return now
	}
	return t
}
