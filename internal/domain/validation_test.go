package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAccountName(t *testing.T) {
	t.Parallel()

	t.Run("valid name", func(t *testing.T) {
		if err := ValidateAccountName("Inventory - Pharmaceuticals"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := ValidateAccountName("   ")
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxAccountNameLength+1)
		err := ValidateAccountName(tooLong)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestValidateAccountCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code    string
		wantErr bool
	}{
		{"1101", false},
		{"5100-02", false},
		{"2.1.3", false},
		{"", true},
		{"  ", true},
		{"-1101", true},
		{"11 01", true},
		{strings.Repeat("1", MaxAccountCodeLength+1), true},
	}

	for _, tt := range tests {
		err := ValidateAccountCode(tt.code)
		if tt.wantErr && !errors.Is(err, ErrValidation) {
			t.Errorf("ValidateAccountCode(%q) expected ErrValidation, got %v", tt.code, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("ValidateAccountCode(%q) unexpected error: %v", tt.code, err)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	if err := ValidateAmount(decimal.RequireFromString("400.01")); err != nil {
		t.Fatalf("expected valid amount, got %v", err)
	}

	if err := ValidateAmount(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}

	if err := ValidateAmount(decimal.NewFromInt(-5)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}

	if err := ValidateAmount(decimal.RequireFromString("1.005")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for sub-cent amount, got %v", err)
	}

	tooLarge := decimal.RequireFromString(MaxLedgerAmount).Add(decimal.NewFromInt(1))
	if err := ValidateAmount(tooLarge); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for amount above maximum, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"defaults", 0, 0, 1, 20},
		{"negative page", -3, 10, 1, 10},
		{"cap limit", 2, 1000, 2, 100},
		{"passthrough", 4, 50, 4, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := ValidatePagination(tt.page, tt.limit)
			if page != tt.wantPage || limit != tt.wantLimit {
				t.Errorf("got (%d, %d), want (%d, %d)", page, limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestRoundMoney(t *testing.T) {
	got := RoundMoney(decimal.RequireFromString("10.005"))
	if !got.Equal(decimal.RequireFromString("10.01")) {
		t.Errorf("expected 10.01, got %s", got)
	}
}
