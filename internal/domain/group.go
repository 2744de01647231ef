package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GroupStatus is the lifecycle state of a transaction group.
type GroupStatus string

const (
	GroupStatusDraft     GroupStatus = "draft"
	GroupStatusConfirmed GroupStatus = "confirmed"
	GroupStatusCancelled GroupStatus = "cancelled"
)

// IsValid reports whether s is a known status.
func (s GroupStatus) IsValid() bool {
	switch s {
	case GroupStatusDraft, GroupStatusConfirmed, GroupStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s GroupStatus) CanTransitionTo(next GroupStatus) bool {
	switch s {
	case GroupStatusDraft:
		return next == GroupStatusConfirmed || next == GroupStatusCancelled
	case GroupStatusConfirmed:
		return next == GroupStatusCancelled
	default:
		return false
	}
}

// TransactionType classifies a group for the payable subledger.
type TransactionType string

const (
	TransactionTypeGeneral  TransactionType = "general"
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypePayment  TransactionType = "payment"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeGeneral, TransactionTypePurchase, TransactionTypePayment:
		return true
	}
	return false
}

// FundingType describes where a group's value comes from.
type FundingType string

const (
	FundingTypeOriginal FundingType = "original"
	FundingTypeExtended FundingType = "extended"
	FundingTypeTransfer FundingType = "transfer"
)

func (t FundingType) IsValid() bool {
	switch t {
	case FundingTypeOriginal, FundingTypeExtended, FundingTypeTransfer:
		return true
	}
	return false
}

// Entry is one leg of a transaction group. Entries are addressed by their
// index inside the group and have no identity of their own.
type Entry struct {
	Sequence            int             `json:"sequence"`
	AccountID           string          `json:"accountId"`
	DebitAmount         decimal.Decimal `json:"debitAmount"`
	CreditAmount        decimal.Decimal `json:"creditAmount"`
	Description         string          `json:"description,omitempty"`
	SourceTransactionID string          `json:"sourceTransactionId,omitempty"`
	FundingPath         []string        `json:"fundingPath,omitempty"`
}

// Amount returns the posted amount regardless of side.
func (e Entry) Amount() decimal.Decimal {
	return e.DebitAmount.Add(e.CreditAmount)
}

func (e Entry) IsDebit() bool {
	return e.DebitAmount.IsPositive()
}

// FundingSourceUsage records a precise allocation from a source group.
type FundingSourceUsage struct {
	SourceTransactionID string          `json:"sourceTransactionId"`
	UsedAmount          decimal.Decimal `json:"usedAmount"`
	Description         string          `json:"description,omitempty"`
}

// PaymentRecord is one settlement applied to a payable.
type PaymentRecord struct {
	PaymentTransactionID string          `json:"paymentTransactionId"`
	Amount               decimal.Decimal `json:"amount"`
	Date                 time.Time       `json:"date"`
}

// PayableInfo is the settlement state kept on a payable group.
type PayableInfo struct {
	PayableAmount   decimal.Decimal `json:"payableAmount"`
	TotalPaidAmount decimal.Decimal `json:"totalPaidAmount"`
	IsPaidOff       bool            `json:"isPaidOff"`
	PaymentHistory  []PaymentRecord `json:"paymentHistory,omitempty"`
}

// RemainingAmount is the unpaid part, never negative.
func (p *PayableInfo) RemainingAmount() decimal.Decimal {
	rem := p.PayableAmount.Sub(p.TotalPaidAmount)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// PayableAllocation is the amount a payment applies to one payable.
type PayableAllocation struct {
	PayableTransactionID string          `json:"payableTransactionId"`
	Amount               decimal.Decimal `json:"amount"`
}

// PaymentInfo lists the payables a payment group settles.
type PaymentInfo struct {
	PayableTransactions []PayableAllocation `json:"payableTransactions"`
}

// TransactionGroup is the aggregate root of the ledger.
type TransactionGroup struct {
	ID                   string
	GroupNumber          string
	Description          string
	TransactionDate      time.Time
	OrganizationID       string
	CreatedBy            string
	Status               GroupStatus
	TransactionType      TransactionType
	TotalAmount          decimal.Decimal
	FundingType          FundingType
	SourceTransactionID  string
	LinkedTransactionIDs []string
	FundingSourceUsages  []FundingSourceUsage
	PaymentInfo          *PaymentInfo
	PayableInfo          *PayableInfo
	Entries              []Entry
	ExternalDocumentID   string
	ExternalReference    string
	Version              int64
	ConfirmedAt          *time.Time
	CancelledAt          *time.Time
	CancelReason         string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Totals returns the debit and credit sums of the entries.
func (g *TransactionGroup) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range g.Entries {
		debit = debit.Add(e.DebitAmount)
		credit = credit.Add(e.CreditAmount)
	}
	return debit, credit
}

// RecomputeTotal sets TotalAmount to max(debits, credits).
func (g *TransactionGroup) RecomputeTotal() {
	debit, credit := g.Totals()
	g.TotalAmount = decimal.Max(debit, credit)
}

// NormalizeEntries rounds amounts, fills missing sequences after the
// highest supplied one and orders entries by sequence.
func (g *TransactionGroup) NormalizeEntries() {
	next := 0
	for _, e := range g.Entries {
		if e.Sequence > next {
			next = e.Sequence
		}
	}
	for i := range g.Entries {
		e := &g.Entries[i]
		e.DebitAmount = RoundMoney(e.DebitAmount)
		e.CreditAmount = RoundMoney(e.CreditAmount)
		e.AccountID = strings.TrimSpace(e.AccountID)
		if e.Sequence <= 0 {
			next++
			e.Sequence = next
		}
	}
	sort.SliceStable(g.Entries, func(i, j int) bool {
		return g.Entries[i].Sequence < g.Entries[j].Sequence
	})
	g.RecomputeTotal()
}

// ValidateEntries checks the per-aggregate invariants: at least two entries,
// one positive side per entry, unique sequences and balanced totals.
func (g *TransactionGroup) ValidateEntries() error {
	if len(g.Entries) < 2 {
		return fmt.Errorf("%w: a transaction needs at least 2 entries, got %d", ErrValidation, len(g.Entries))
	}
	if len(g.Entries) > MaxEntriesPerGroup {
		return fmt.Errorf("%w: a transaction may hold at most %d entries", ErrValidation, MaxEntriesPerGroup)
	}

	seen := make(map[int]bool, len(g.Entries))
	for i, e := range g.Entries {
		if e.AccountID == "" {
			return &EntryError{Index: i, Reason: "account is required"}
		}
		if e.DebitAmount.IsNegative() || e.CreditAmount.IsNegative() {
			return &EntryError{Index: i, Reason: "amounts cannot be negative"}
		}
		debit, credit := e.DebitAmount.IsPositive(), e.CreditAmount.IsPositive()
		if debit == credit {
			return &EntryError{Index: i, Reason: "exactly one of debit or credit must be positive"}
		}
		if seen[e.Sequence] {
			return &EntryError{Index: i, Reason: fmt.Sprintf("duplicate sequence %d", e.Sequence)}
		}
		seen[e.Sequence] = true
		if i > 0 && e.Sequence < g.Entries[i-1].Sequence {
			return &EntryError{Index: i, Reason: "entries are not ordered by sequence"}
		}
		if e.SourceTransactionID != "" && e.SourceTransactionID == g.ID {
			return ErrSelfReference
		}
	}

	debit, credit := g.Totals()
	if !debit.Equal(credit) {
		return &ImbalanceError{Debit: debit, Credit: credit}
	}
	return nil
}

// Validate checks header fields and entries.
func (g *TransactionGroup) Validate() error {
	if strings.TrimSpace(g.GroupNumber) == "" {
		return fmt.Errorf("%w: group number is required", ErrValidation)
	}
	if len(g.GroupNumber) > MaxGroupNumberLength {
		return fmt.Errorf("%w: group number exceeds %d characters", ErrValidation, MaxGroupNumberLength)
	}
	if len(g.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	}
	if g.TransactionDate.IsZero() {
		return fmt.Errorf("%w: transaction date is required", ErrValidation)
	}
	if !g.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, g.Status)
	}
	if !g.TransactionType.IsValid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrValidation, g.TransactionType)
	}
	if !g.FundingType.IsValid() {
		return fmt.Errorf("%w: unknown funding type %q", ErrValidation, g.FundingType)
	}
	for _, id := range g.SourceRefs() {
		if id == g.ID {
			return ErrSelfReference
		}
	}
	for _, u := range g.FundingSourceUsages {
		if !u.UsedAmount.IsPositive() {
			return fmt.Errorf("%w: funding usage of %s must be positive", ErrValidation, u.SourceTransactionID)
		}
	}
	return g.ValidateEntries()
}

// EnsureDraft fails unless the group content may still change.
func (g *TransactionGroup) EnsureDraft() error {
	switch g.Status {
	case GroupStatusDraft:
		return nil
	case GroupStatusCancelled:
		return ErrTerminal
	default:
		return ErrImmutableTarget
	}
}

// Confirm moves a draft to confirmed after re-verifying the entries.
func (g *TransactionGroup) Confirm(now time.Time) error {
	switch g.Status {
	case GroupStatusConfirmed:
		return ErrAlreadyConfirmed
	case GroupStatusCancelled:
		return ErrTerminal
	}
	if err := g.ValidateEntries(); err != nil {
		return err
	}
	g.RecomputeTotal()
	g.Status = GroupStatusConfirmed
	g.ConfirmedAt = &now
	g.UpdatedAt = now
	return nil
}

// Cancel marks the group cancelled. Reference checks are the caller's job.
func (g *TransactionGroup) Cancel(now time.Time, reason string) error {
	if !g.Status.CanTransitionTo(GroupStatusCancelled) {
		return ErrTerminal
	}
	g.Status = GroupStatusCancelled
	g.CancelledAt = &now
	g.CancelReason = reason
	g.UpdatedAt = now
	return nil
}

func (g *TransactionGroup) IsLive() bool {
	return g.Status != GroupStatusCancelled
}

// SourceRefs returns the sorted set of groups this one draws funds from.
func (g *TransactionGroup) SourceRefs() []string {
	set := make(map[string]struct{})
	for _, e := range g.Entries {
		if e.SourceTransactionID != "" {
			set[e.SourceTransactionID] = struct{}{}
		}
	}
	for _, id := range g.LinkedTransactionIDs {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	for _, u := range g.FundingSourceUsages {
		if u.SourceTransactionID != "" {
			set[u.SourceTransactionID] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// PayableRefs returns the sorted set of payables a payment group settles.
func (g *TransactionGroup) PayableRefs() []string {
	if g.PaymentInfo == nil {
		return nil
	}
	set := make(map[string]struct{})
	for _, p := range g.PaymentInfo.PayableTransactions {
		set[p.PayableTransactionID] = struct{}{}
	}
	return sortedKeys(set)
}

// PaymentTo returns the amount this payment group applies to payableID.
func (g *TransactionGroup) PaymentTo(payableID string) decimal.Decimal {
	total := decimal.Zero
	if g.PaymentInfo == nil {
		return total
	}
	for _, p := range g.PaymentInfo.PayableTransactions {
		if p.PayableTransactionID == payableID {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// ContributionTo returns how much of sourceID's value this group consumes.
// Precise usage records win, then per-entry attribution, then the legacy
// pro-rata split over linkedTransactionIds. linkedTotals maps each linked
// source id to its totalAmount and is only read in the legacy case.
func (g *TransactionGroup) ContributionTo(sourceID string, linkedTotals map[string]decimal.Decimal) decimal.Decimal {
	precise, found := decimal.Zero, false
	for _, u := range g.FundingSourceUsages {
		if u.SourceTransactionID == sourceID {
			precise = precise.Add(u.UsedAmount)
			found = true
		}
	}
	if found {
		return precise
	}

	attributed, found := decimal.Zero, false
	for _, e := range g.Entries {
		if e.SourceTransactionID == sourceID {
			attributed = attributed.Add(e.Amount())
			found = true
		}
	}
	if found {
		return attributed
	}

	linked := false
	for _, id := range g.LinkedTransactionIDs {
		if id == sourceID {
			linked = true
			break
		}
	}
	if !linked {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, id := range uniqueStrings(g.LinkedTransactionIDs) {
		sum = sum.Add(linkedTotals[id])
	}
	if !sum.IsPositive() {
		return decimal.Zero
	}
	return RoundMoney(g.TotalAmount.Mul(linkedTotals[sourceID]).Div(sum))
}

// NeedsLinkedTotals reports whether ContributionTo(sourceID) falls through
// to the pro-rata split.
func (g *TransactionGroup) NeedsLinkedTotals(sourceID string) bool {
	for _, u := range g.FundingSourceUsages {
		if u.SourceTransactionID == sourceID {
			return false
		}
	}
	for _, e := range g.Entries {
		if e.SourceTransactionID == sourceID {
			return false
		}
	}
	for _, id := range g.LinkedTransactionIDs {
		if id == sourceID {
			return true
		}
	}
	return false
}

// LiabilityCredits sums credit entries posted to the given liability accounts.
func (g *TransactionGroup) LiabilityCredits(liabilityAccounts map[string]bool) decimal.Decimal {
	total := decimal.Zero
	for _, e := range g.Entries {
		if liabilityAccounts[e.AccountID] {
			total = total.Add(e.CreditAmount)
		}
	}
	return total
}

// AccountIDs returns the distinct accounts used by the entries, sorted.
func (g *TransactionGroup) AccountIDs() []string {
	set := make(map[string]struct{}, len(g.Entries))
	for _, e := range g.Entries {
		if e.AccountID != "" {
			set[e.AccountID] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// OwnedBy reports whether the group is visible within scope.
func (g *TransactionGroup) OwnedBy(scope Scope) bool {
	if g.CreatedBy != scope.ActorID {
		return false
	}
	return scope.OrganizationID == "" || g.OrganizationID == scope.OrganizationID
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func uniqueStrings(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return sortedKeys(set)
}
