package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pharmledger/internal/domain"
)

// FundingUsage is how much of a confirmed source has been consumed.
// UsedAmount + RemainingAmount always equals TotalAmount.
type FundingUsage struct {
	SourceTransactionID string
	GroupNumber         string
	Description         string
	TransactionDate     time.Time
	TotalAmount         decimal.Decimal
	UsedAmount          decimal.Decimal
	RemainingAmount     decimal.Decimal
	Usages              []UsageDetail
}

// UsageDetail is one referencing group's share of a source.
type UsageDetail struct {
	TransactionID   string
	GroupNumber     string
	Description     string
	TransactionDate time.Time
	Amount          decimal.Decimal
}

// usageCalculator is the single place consumption of a source is computed.
// Only confirmed referencing groups count.
type usageCalculator struct {
	groupRepo GroupRepository
}

func (c usageCalculator) usage(ctx context.Context, tx Transaction, scope domain.Scope, source *domain.TransactionGroup, excludeID string) (*FundingUsage, error) {
	refs, err := c.groupRepo.ListReferencing(ctx, tx, scope, source.ID, confirmedStatuses)
	if err != nil {
		return nil, domain.NewPersistenceError("list referencing groups", err)
	}

	totals := map[string]decimal.Decimal{source.ID: source.TotalAmount}
	used := decimal.Zero
	details := make([]UsageDetail, 0, len(refs))

	for _, ref := range refs {
		if ref.ID == excludeID || ref.ID == source.ID {
			continue
		}
		if ref.NeedsLinkedTotals(source.ID) {
			if err := c.loadTotals(ctx, tx, scope, ref.LinkedTransactionIDs, totals); err != nil {
				return nil, err
			}
		}
		amount := ref.ContributionTo(source.ID, totals)
		if !amount.IsPositive() {
			continue
		}
		used = used.Add(amount)
		details = append(details, UsageDetail{
			TransactionID:   ref.ID,
			GroupNumber:     ref.GroupNumber,
			Description:     ref.Description,
			TransactionDate: ref.TransactionDate,
			Amount:          amount,
		})
	}

	return &FundingUsage{
		SourceTransactionID: source.ID,
		GroupNumber:         source.GroupNumber,
		Description:         source.Description,
		TransactionDate:     source.TransactionDate,
		TotalAmount:         source.TotalAmount,
		UsedAmount:          used,
		RemainingAmount:     source.TotalAmount.Sub(used),
		Usages:              details,
	}, nil
}

func (c usageCalculator) loadTotals(ctx context.Context, tx Transaction, scope domain.Scope, ids []string, totals map[string]decimal.Decimal) error {
	for _, id := range ids {
		if _, ok := totals[id]; ok || id == "" {
			continue
		}
		g, err := c.groupRepo.GetByID(ctx, tx, scope, id)
		if errors.Is(err, domain.ErrNotFound) {
			totals[id] = decimal.Zero
			continue
		}
		if err != nil {
			return domain.NewPersistenceError("load linked source", err)
		}
		totals[id] = g.TotalAmount
	}
	return nil
}

// checkAvailability verifies that everything g draws from its sources fits
// in what the other confirmed groups left over. locked must hold every
// source of g, already row-locked.
func (c usageCalculator) checkAvailability(ctx context.Context, tx Transaction, scope domain.Scope, g *domain.TransactionGroup, locked map[string]*domain.TransactionGroup) error {
	refs := g.SourceRefs()
	if len(refs) == 0 {
		return nil
	}

	totals := make(map[string]decimal.Decimal, len(refs))
	for _, id := range refs {
		if id == g.ID {
			return domain.ErrSelfReference
		}
		src, ok := locked[id]
		if !ok {
			return fmt.Errorf("%w: funding source %s not found", domain.ErrReferentialIntegrity, id)
		}
		totals[id] = src.TotalAmount
	}

	for _, id := range refs {
		src := locked[id]
		if src.Status != domain.GroupStatusConfirmed {
			return fmt.Errorf("%w: funding source %s is %s, not confirmed", domain.ErrReferentialIntegrity, id, src.Status)
		}
		usage, err := c.usage(ctx, tx, scope, src, g.ID)
		if err != nil {
			return err
		}
		need := g.ContributionTo(id, totals)
		if need.GreaterThan(usage.RemainingAmount) {
			return &domain.InsufficientFundingError{SourceID: id, Requested: need, Available: usage.RemainingAmount}
		}
	}
	return nil
}

// checkSourcesExist is the create/update-time check: every source must
// exist in scope and not be cancelled.
func checkSourcesExist(g *domain.TransactionGroup, locked map[string]*domain.TransactionGroup) error {
	for _, id := range g.SourceRefs() {
		src, ok := locked[id]
		if !ok {
			return fmt.Errorf("%w: funding source %s not found", domain.ErrReferentialIntegrity, id)
		}
		if src.Status == domain.GroupStatusCancelled {
			return fmt.Errorf("%w: funding source %s is cancelled", domain.ErrReferentialIntegrity, id)
		}
	}
	return nil
}
