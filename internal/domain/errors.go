package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Error taxonomy. Every error returned by the ledger matches one of these
// with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation error")
	ErrInvalidState           = errors.New("invalid state")
	ErrReferentialIntegrity   = errors.New("referential integrity violation")
	ErrAmbiguousEntryType     = errors.New("ambiguous entry type")
	ErrMissingCounterAccount  = errors.New("missing counter account")
	ErrPersistence            = errors.New("persistence failure")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// Refinements
var (
	ErrAccountNotFound      = fmt.Errorf("%w: account", ErrNotFound)
	ErrGroupNotFound        = fmt.Errorf("%w: transaction group", ErrNotFound)
	ErrDuplicateAccountCode = fmt.Errorf("%w: account code already exists", ErrValidation)
	ErrDuplicateGroupNumber = fmt.Errorf("%w: group number already exists", ErrValidation)
	ErrDuplicateDocument    = fmt.Errorf("%w: external document already has a posting", ErrValidation)
	ErrAccountInactive      = fmt.Errorf("%w: account is inactive", ErrValidation)
	ErrInvalidAmount        = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrAlreadyConfirmed     = fmt.Errorf("%w: transaction group already confirmed", ErrInvalidState)
	ErrTerminal             = fmt.Errorf("%w: transaction group is cancelled", ErrInvalidState)
	ErrImmutableTarget      = fmt.Errorf("%w: confirmed transaction group cannot be modified", ErrInvalidState)
	ErrSelfReference        = fmt.Errorf("%w: transaction references itself", ErrReferentialIntegrity)
)

// EntryError reports a malformed entry by its position in the group.
type EntryError struct {
	Index  int
	Reason string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d: %s", e.Index, e.Reason)
}

func (e *EntryError) Unwrap() error { return ErrValidation }

// ImbalanceError carries the exact totals of an unbalanced group.
type ImbalanceError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("debits (%s) do not equal credits (%s), difference %s",
		e.Debit.String(), e.Credit.String(), e.Debit.Sub(e.Credit).Abs().String())
}

func (e *ImbalanceError) Unwrap() error { return ErrValidation }

// ReferencedError is returned when a group cannot be cancelled or removed
// because other live groups draw on it.
type ReferencedError struct {
	GroupID string
	Count   int
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("transaction %s is referenced by %d transaction(s)", e.GroupID, e.Count)
}

func (e *ReferencedError) Unwrap() error { return ErrReferentialIntegrity }

// InsufficientFundingError reports an allocation larger than what remains
// on its funding source.
type InsufficientFundingError struct {
	SourceID  string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundingError) Error() string {
	return fmt.Sprintf("funding source %s: requested %s exceeds available %s",
		e.SourceID, e.Requested.String(), e.Available.String())
}

func (e *InsufficientFundingError) Unwrap() error { return ErrReferentialIntegrity }

// OverpaymentError reports a payment larger than the unpaid part of a payable.
type OverpaymentError struct {
	PayableID string
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payable %s: payment %s exceeds remaining %s",
		e.PayableID, e.Requested.String(), e.Remaining.String())
}

func (e *OverpaymentError) Unwrap() error { return ErrReferentialIntegrity }

// AmbiguousEntryTypeError names the account types that were present when
// no posting pattern matched.
type AmbiguousEntryTypeError struct {
	Present []AccountType
}

func (e *AmbiguousEntryTypeError) Error() string {
	names := make([]string, 0, len(e.Present))
	for _, t := range e.Present {
		names = append(names, string(t))
	}
	if len(names) == 0 {
		names = append(names, "none")
	}
	return fmt.Sprintf("cannot infer entry pattern, present among expense/asset/liability: %s",
		strings.Join(names, ", "))
}

func (e *AmbiguousEntryTypeError) Unwrap() error { return ErrAmbiguousEntryType }

// PersistenceError wraps a store failure. It matches both ErrPersistence
// and the underlying driver error.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// NewPersistenceError wraps err unless it already belongs to the taxonomy.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrValidation, ErrInvalidState, ErrReferentialIntegrity, ErrConcurrentModification, ErrPersistence} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
