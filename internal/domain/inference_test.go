package domain

import (
	"errors"
	"testing"
	"time"
)

func acct(id string, t AccountType) *Account {
	return &Account{ID: id, AccountType: t, IsActive: true}
}

func TestInferEntryType(t *testing.T) {
	tests := []struct {
		name     string
		accounts []*Account
		want     EntryPattern
		wantErr  error
	}{
		{
			name:     "expense and asset",
			accounts: []*Account{acct("e", AccountTypeExpense), acct("a", AccountTypeAsset)},
			want:     PatternExpenseAsset,
		},
		{
			name:     "asset and liability",
			accounts: []*Account{acct("a", AccountTypeAsset), acct("l", AccountTypeLiability)},
			want:     PatternAssetLiability,
		},
		{
			name: "expense, asset and liability",
			accounts: []*Account{
				acct("l", AccountTypeLiability), acct("e", AccountTypeExpense), acct("a", AccountTypeAsset),
			},
			want: PatternExpenseAsset,
		},
		{
			name:     "expense with liability",
			accounts: []*Account{acct("e", AccountTypeExpense), acct("l", AccountTypeLiability)},
			want:     PatternExpenseAsset,
		},
		{
			name:     "two expense accounts",
			accounts: []*Account{acct("e1", AccountTypeExpense), acct("e2", AccountTypeExpense)},
			wantErr:  ErrAmbiguousEntryType,
		},
		{
			name:     "revenue and equity",
			accounts: []*Account{acct("r", AccountTypeRevenue), acct("q", AccountTypeEquity)},
			wantErr:  ErrAmbiguousEntryType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InferEntryType(tt.accounts)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInferEntryType_NamesPresentTypes(t *testing.T) {
	_, err := InferEntryType([]*Account{acct("e1", AccountTypeExpense), acct("e2", AccountTypeExpense)})

	var ambiguous *AmbiguousEntryTypeError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousEntryTypeError, got %v", err)
	}
	if len(ambiguous.Present) != 1 || ambiguous.Present[0] != AccountTypeExpense {
		t.Errorf("present = %v, want [expense]", ambiguous.Present)
	}
}

func TestResolveCounterAccounts(t *testing.T) {
	t.Run("asset-liability", func(t *testing.T) {
		accounts := []*Account{acct("l", AccountTypeLiability), acct("a", AccountTypeAsset)}
		dr, cr, err := ResolveCounterAccounts(PatternAssetLiability, accounts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dr.ID != "a" || cr.ID != "l" {
			t.Errorf("got debit=%s credit=%s", dr.ID, cr.ID)
		}
	})

	t.Run("expense-asset falls back to non-expense credit", func(t *testing.T) {
		accounts := []*Account{acct("e", AccountTypeExpense), acct("l", AccountTypeLiability)}
		dr, cr, err := ResolveCounterAccounts(PatternExpenseAsset, accounts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dr.ID != "e" || cr.ID != "l" {
			t.Errorf("got debit=%s credit=%s", dr.ID, cr.ID)
		}
	})

	t.Run("missing credit side", func(t *testing.T) {
		accounts := []*Account{acct("a", AccountTypeAsset)}
		_, _, err := ResolveCounterAccounts(PatternAssetLiability, accounts)
		if !errors.Is(err, ErrMissingCounterAccount) {
			t.Fatalf("expected ErrMissingCounterAccount, got %v", err)
		}
	})
}

func TestParseDocumentDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		identifier string
		want       time.Time
	}{
		{"20240315001", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"PO-20231231-07", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"20241345", now},
		{"20230230", now},
		{"PO-123", now},
		{"", now},
	}

	for _, tt := range tests {
		if got := ParseDocumentDate(tt.identifier, now); !got.Equal(tt.want) {
			t.Errorf("ParseDocumentDate(%q) = %s, want %s", tt.identifier, got, tt.want)
		}
	}
}
