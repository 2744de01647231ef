package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxAccountCodeLength = 32
	MaxDescriptionLength = 1000
	MaxGroupNumberLength = 64
	MaxEntriesPerGroup   = 500
	MaxLedgerAmount      = "1000000000000" // 1 trillion
	MoneyScale           = 2
)

var (
	accountCodeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-]*$`)
	maxLedgerAmount  = decimal.RequireFromString(MaxLedgerAmount)
)

// RoundMoney rounds to the ledger's fixed scale.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ValidateAccountCode validates a chart-of-accounts code such as "1101" or "5100-02".
func ValidateAccountCode(code string) error {
	code = strings.TrimSpace(code)

	if code == "" {
		return fmt.Errorf("%w: account code cannot be empty", ErrValidation)
	}

	if len(code) > MaxAccountCodeLength {
		return fmt.Errorf("%w: account code exceeds %d characters", ErrValidation, MaxAccountCodeLength)
	}

	if !accountCodeRegex.MatchString(code) {
		return fmt.Errorf("%w: account code %q contains invalid characters", ErrValidation, code)
	}

	return nil
}

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinAccountNameLength {
		return fmt.Errorf("%w: account name cannot be empty", ErrValidation)
	}

	if len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: account name exceeds %d characters", ErrValidation, MaxAccountNameLength)
	}

	return nil
}

// ValidateAmount validates a positive ledger amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !amount.Equal(RoundMoney(amount)) {
		return fmt.Errorf("%w: amount %s has more than %d decimal places", ErrValidation, amount.String(), MoneyScale)
	}

	if amount.GreaterThan(maxLedgerAmount) {
		return fmt.Errorf("%w: amount exceeds maximum of %s", ErrValidation, MaxLedgerAmount)
	}

	return nil
}

// ValidatePagination normalizes 1-based page parameters.
func ValidatePagination(page, limit int) (int, int) {
	const MaxPageSize = 100
	const DefaultPageSize = 20

	if page < 1 {
		page = 1
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return page, limit
}
