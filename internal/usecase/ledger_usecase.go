package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pharmledger/internal/domain"
)

var (
	// ErrInconsistentLedger is returned when a consistency check finds discrepancies.
	ErrInconsistentLedger = errors.New("ledger is inconsistent")
)

// LedgerUseCase handles ledger-wide read operations.
type LedgerUseCase struct {
	groupRepo GroupRepository
	usage     usageCalculator
	now       func() time.Time
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(groupRepo GroupRepository) *LedgerUseCase {
	return &LedgerUseCase{
		groupRepo: groupRepo,
		usage:     usageCalculator{groupRepo: groupRepo},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Discrepancy describes one confirmed group that breaks a ledger rule.
type Discrepancy struct {
	TransactionID string
	GroupNumber   string
	Problem       string
}

// ConsistencyReport is the outcome of CheckConsistency.
type ConsistencyReport struct {
	CheckedGroups int
	TotalDebits   decimal.Decimal
	TotalCredits  decimal.Decimal
	Discrepancies []Discrepancy
	CheckedAt     time.Time
}

// Consistent reports whether no discrepancy was found.
func (r *ConsistencyReport) Consistent() bool {
	return len(r.Discrepancies) == 0 && r.TotalDebits.Equal(r.TotalCredits)
}

// Err returns ErrInconsistentLedger with a summary when the report is not consistent.
func (r *ConsistencyReport) Err() error {
	if r.Consistent() {
		return nil
	}
	return fmt.Errorf("%w: %d discrepancies, debits=%s credits=%s",
		ErrInconsistentLedger, len(r.Discrepancies), r.TotalDebits.String(), r.TotalCredits.String())
}

// CheckConsistency verifies that every confirmed group is balanced, that no
// funding source is drawn beyond its total and that no payable is overpaid.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context, scope domain.Scope) (*ConsistencyReport, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	groups, _, err := uc.groupRepo.List(ctx, scope, GroupFilter{Status: domain.GroupStatusConfirmed})
	if err != nil {
		return nil, domain.NewPersistenceError("list confirmed groups", err)
	}

	report := &ConsistencyReport{
		CheckedGroups: len(groups),
		TotalDebits:   decimal.Zero,
		TotalCredits:  decimal.Zero,
		CheckedAt:     uc.now(),
	}

	for _, g := range groups {
		debit, credit := g.Totals()
		report.TotalDebits = report.TotalDebits.Add(debit)
		report.TotalCredits = report.TotalCredits.Add(credit)

		if err := g.ValidateEntries(); err != nil {
			report.add(g, err.Error())
		}

		usage, err := uc.usage.usage(ctx, nil, scope, g, "")
		if err != nil {
			return nil, err
		}
		if usage.RemainingAmount.IsNegative() {
			report.add(g, fmt.Sprintf("funding source over-allocated: used %s of %s", usage.UsedAmount, usage.TotalAmount))
		}

		if g.PayableInfo != nil && g.PayableInfo.TotalPaidAmount.GreaterThan(g.PayableInfo.PayableAmount) {
			report.add(g, fmt.Sprintf("payable overpaid: paid %s of %s", g.PayableInfo.TotalPaidAmount, g.PayableInfo.PayableAmount))
		}
	}

	sort.SliceStable(report.Discrepancies, func(i, j int) bool {
		return report.Discrepancies[i].GroupNumber < report.Discrepancies[j].GroupNumber
	})
	return report, nil
}

func (r *ConsistencyReport) add(g *domain.TransactionGroup, problem string) {
	r.Discrepancies = append(r.Discrepancies, Discrepancy{
		TransactionID: g.ID,
		GroupNumber:   g.GroupNumber,
		Problem:       problem,
	})
}
