package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
)

// FundingUseCase tracks and records how confirmed groups fund other groups.
type FundingUseCase struct {
	txManager  TransactionManager
	groupRepo  GroupRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	retrier    Retrier
	usage      usageCalculator
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewFundingUseCase creates a new FundingUseCase.
func NewFundingUseCase(
	txManager TransactionManager,
	groupRepo GroupRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *FundingUseCase {
	return &FundingUseCase{
		txManager:  txManager,
		groupRepo:  groupRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		retrier:    retrier,
		usage:      usageCalculator{groupRepo: groupRepo},
		logger:     logger,
		metrics:    metrics,
	}
}

// TrackFundingUsage reports total, used and remaining value of a confirmed source.
func (uc *FundingUseCase) TrackFundingUsage(ctx context.Context, sourceID string, scope domain.Scope) (*FundingUsage, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	source, err := uc.confirmedSource(ctx, nil, scope, sourceID)
	if err != nil {
		return nil, err
	}
	return uc.usage.usage(ctx, nil, scope, source, "")
}

// GetAvailableFundingSources lists confirmed groups with value left,
// optionally only those with an entry on accountID.
func (uc *FundingUseCase) GetAvailableFundingSources(ctx context.Context, scope domain.Scope, accountID string) ([]*FundingUsage, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	groups, _, err := uc.groupRepo.List(ctx, scope, GroupFilter{Status: domain.GroupStatusConfirmed, AccountID: accountID})
	if err != nil {
		return nil, domain.NewPersistenceError("list confirmed groups", err)
	}

	available := make([]*FundingUsage, 0, len(groups))
	for _, g := range groups {
		usage, err := uc.usage.usage(ctx, nil, scope, g, "")
		if err != nil {
			uc.logger.Warn().Err(err).Str("group_id", g.ID).Msg("skipping funding source")
			continue
		}
		if usage.RemainingAmount.IsPositive() {
			available = append(available, usage)
		}
	}
	return available, nil
}

// AllocationInput draws Amount from a source onto the entry at EntryIndex.
type AllocationInput struct {
	SourceTransactionID string
	Amount              decimal.Decimal
	EntryIndex          int
}

// CreateFundingAllocation attributes entries of a draft target to funding
// sources. Each amount must fit in what is left on its source.
func (uc *FundingUseCase) CreateFundingAllocation(ctx context.Context, targetID string, allocations []AllocationInput, scope domain.Scope) (*domain.TransactionGroup, error) {
	start := time.Now()
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, fmt.Errorf("%w: at least one allocation is required", domain.ErrValidation)
	}

	allocations = append([]AllocationInput(nil), allocations...)
	sourceIDs := make([]string, 0, len(allocations))
	for i := range allocations {
		a := &allocations[i]
		a.Amount = domain.RoundMoney(a.Amount)
		if err := domain.ValidateAmount(a.Amount); err != nil {
			return nil, uc.reject(err)
		}
		if a.SourceTransactionID == "" {
			return nil, uc.reject(fmt.Errorf("%w: allocation %d has no source transaction", domain.ErrValidation, i))
		}
		if a.SourceTransactionID == targetID {
			return nil, uc.reject(domain.ErrSelfReference)
		}
		sourceIDs = append(sourceIDs, a.SourceTransactionID)
	}

	var target *domain.TransactionGroup
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		current, err := uc.groupRepo.GetByID(ctx, tx, scope, targetID)
		if err != nil {
			return err
		}
		if err := current.EnsureDraft(); err != nil {
			return err
		}

		locked, err := lockGroups(ctx, uc.groupRepo, tx, scope, append([]string{targetID}, sourceIDs...)...)
		if err != nil {
			return err
		}
		if err := checkLockedVersion(locked, current); err != nil {
			return err
		}
		g := locked[targetID]

		prior := make(map[string]decimal.Decimal, len(sourceIDs))
		for _, id := range sourceIDs {
			prior[id] = preciseUsage(g, id)
		}

		granted := make(map[string]decimal.Decimal)
		for _, a := range allocations {
			if a.EntryIndex < 0 || a.EntryIndex >= len(g.Entries) {
				return &domain.EntryError{Index: a.EntryIndex, Reason: fmt.Sprintf("no such entry, the transaction has %d", len(g.Entries))}
			}
			source, ok := locked[a.SourceTransactionID]
			if !ok || source.Status != domain.GroupStatusConfirmed {
				return fmt.Errorf("%w: confirmed funding source %s", domain.ErrGroupNotFound, a.SourceTransactionID)
			}

			usage, err := uc.usage.usage(ctx, tx, scope, source, g.ID)
			if err != nil {
				return err
			}
			available := usage.RemainingAmount.
				Sub(prior[source.ID]).
				Sub(granted[source.ID])
			if a.Amount.GreaterThan(available) {
				return &domain.InsufficientFundingError{SourceID: source.ID, Requested: a.Amount, Available: available}
			}
			granted[source.ID] = granted[source.ID].Add(a.Amount)

			entry := &g.Entries[a.EntryIndex]
			entry.SourceTransactionID = source.ID
			entry.FundingPath = appendUnique(entry.FundingPath, source.ID)
			g.FundingSourceUsages = addUsage(g.FundingSourceUsages, source.ID, a.Amount, a.EntryIndex)
		}

		now := time.Now().UTC()
		if g.FundingType == domain.FundingTypeOriginal {
			g.FundingType = domain.FundingTypeExtended
		}
		g.UpdatedAt = now
		if err := uc.groupRepo.Update(ctx, tx, g); err != nil {
			return domain.NewPersistenceError("record allocation", err)
		}

		sums := make(map[string]string, len(granted))
		for id, amount := range granted {
			sums[id] = amount.String()
		}
		event := newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeGroup, g.ID, domain.EventTypeFundingAllocated, map[string]any{
			"target_id": g.ID,
			"sources":   sums,
			"actor_id":  scope.ActorID,
		}, now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		target = g
		return nil
	})
	if err != nil {
		return nil, uc.reject(err)
	}

	if uc.metrics != nil {
		uc.metrics.AllocationsAccepted.Inc()
		for _, a := range allocations {
			uc.metrics.AllocatedAmount.Observe(a.Amount.InexactFloat64())
		}
		uc.metrics.OperationDuration.WithLabelValues("create_allocation").Observe(time.Since(start).Seconds())
	}

	return target, nil
}

// AllocationReport is the result of a diagnostic pass over a group's funding.
// Recommendations never make a report invalid.
type AllocationReport struct {
	TransactionID   string
	IsValid         bool
	Issues          []string
	Recommendations []string
}

// ValidateFundingAllocation checks a group's declared sources without changing it.
func (uc *FundingUseCase) ValidateFundingAllocation(ctx context.Context, id string, scope domain.Scope) (*AllocationReport, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	g, err := uc.groupRepo.GetByID(ctx, nil, scope, id)
	if err != nil {
		return nil, err
	}

	report := &AllocationReport{TransactionID: id}
	if len(g.Entries) == 0 {
		report.Issues = append(report.Issues, "transaction has no entries")
	}

	checked := make(map[string]bool)
	for i, e := range g.Entries {
		switch {
		case e.SourceTransactionID == "":
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("entry %d (account %s) declares no funding source", i, e.AccountID))
		case e.SourceTransactionID == g.ID:
			report.Issues = append(report.Issues,
				fmt.Sprintf("entry %d: self-reference, the entry is funded by its own transaction (circular reference)", i))
		case !checked[e.SourceTransactionID]:
			checked[e.SourceTransactionID] = true
			issue, recommendation, err := uc.checkDeclaredUsage(ctx, scope, g, i, e.SourceTransactionID)
			if err != nil {
				return nil, err
			}
			if issue != "" {
				report.Issues = append(report.Issues, issue)
			}
			if recommendation != "" {
				report.Recommendations = append(report.Recommendations, recommendation)
			}
		}
	}

	for _, u := range g.FundingSourceUsages {
		if u.SourceTransactionID == g.ID {
			report.Issues = append(report.Issues, "funding usage: self-reference to its own transaction (circular reference)")
		}
	}
	for _, linked := range g.LinkedTransactionIDs {
		if linked == g.ID {
			report.Issues = append(report.Issues, "linked transactions: self-reference to its own transaction (circular reference)")
		}
	}
	if len(g.LinkedTransactionIDs) > 0 && len(g.FundingSourceUsages) == 0 {
		report.Recommendations = append(report.Recommendations,
			"linked transactions are apportioned pro rata; record per-source usages for exact tracking")
	}

	report.IsValid = len(report.Issues) == 0
	return report, nil
}

func (uc *FundingUseCase) checkDeclaredUsage(ctx context.Context, scope domain.Scope, g *domain.TransactionGroup, index int, sourceID string) (issue, recommendation string, err error) {
	source, err := uc.groupRepo.GetByID(ctx, nil, scope, sourceID)
	if domain.IsNotFound(err) {
		return "", fmt.Sprintf("entry %d: funding source %s was not found", index, sourceID), nil
	}
	if err != nil {
		return "", "", domain.NewPersistenceError("load funding source", err)
	}
	if source.Status != domain.GroupStatusConfirmed {
		return "", fmt.Sprintf("entry %d: funding source %s is %s, confirm it before relying on it", index, sourceID, source.Status), nil
	}

	usage, err := uc.usage.usage(ctx, nil, scope, source, g.ID)
	if err != nil {
		return "", "", err
	}
	declared := g.ContributionTo(sourceID, nil)
	if declared.GreaterThan(usage.RemainingAmount) {
		return fmt.Sprintf("entry %d: declared usage %s exceeds remaining %s of source %s",
			index, declared.String(), usage.RemainingAmount.String(), sourceID), "", nil
	}
	return "", "", nil
}

// SourceUtilization is one source's line in a flow analysis.
type SourceUtilization struct {
	TransactionID   string
	GroupNumber     string
	TotalAmount     decimal.Decimal
	UsedAmount      decimal.Decimal
	AvailableAmount decimal.Decimal
	UtilizationRate decimal.Decimal
}

// FlowAnalysis aggregates funding across confirmed groups.
type FlowAnalysis struct {
	TotalFundingAmount decimal.Decimal
	TotalUsedAmount    decimal.Decimal
	TotalAvailable     decimal.Decimal
	Sources            []SourceUtilization
	Failed             []string
}

// GetFundingFlowAnalysis computes totals and per-source utilization
// (used / total * 100). A source that fails to load is listed in Failed.
func (uc *FundingUseCase) GetFundingFlowAnalysis(ctx context.Context, scope domain.Scope, from, to *time.Time) (*FlowAnalysis, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, fmt.Errorf("%w: from is after to", domain.ErrValidation)
	}

	groups, _, err := uc.groupRepo.List(ctx, scope, GroupFilter{Status: domain.GroupStatusConfirmed, DateFrom: from, DateTo: to})
	if err != nil {
		return nil, domain.NewPersistenceError("list confirmed groups", err)
	}

	analysis := &FlowAnalysis{
		TotalFundingAmount: decimal.Zero,
		TotalUsedAmount:    decimal.Zero,
		TotalAvailable:     decimal.Zero,
		Sources:            make([]SourceUtilization, 0, len(groups)),
	}
	hundred := decimal.NewFromInt(100)

	for _, g := range groups {
		usage, err := uc.usage.usage(ctx, nil, scope, g, "")
		if err != nil {
			uc.logger.Warn().Err(err).Str("group_id", g.ID).Msg("flow analysis skipped source")
			analysis.Failed = append(analysis.Failed, g.ID)
			continue
		}

		rate := decimal.Zero
		if usage.TotalAmount.IsPositive() {
			rate = domain.RoundMoney(usage.UsedAmount.Div(usage.TotalAmount).Mul(hundred))
		}

		analysis.TotalFundingAmount = analysis.TotalFundingAmount.Add(usage.TotalAmount)
		analysis.TotalUsedAmount = analysis.TotalUsedAmount.Add(usage.UsedAmount)
		analysis.TotalAvailable = analysis.TotalAvailable.Add(usage.RemainingAmount)
		analysis.Sources = append(analysis.Sources, SourceUtilization{
			TransactionID:   g.ID,
			GroupNumber:     g.GroupNumber,
			TotalAmount:     usage.TotalAmount,
			UsedAmount:      usage.UsedAmount,
			AvailableAmount: usage.RemainingAmount,
			UtilizationRate: rate,
		})
	}
	return analysis, nil
}

func (uc *FundingUseCase) confirmedSource(ctx context.Context, tx Transaction, scope domain.Scope, id string) (*domain.TransactionGroup, error) {
	g, err := uc.groupRepo.GetByID(ctx, tx, scope, id)
	if err != nil {
		return nil, err
	}
	if g.Status != domain.GroupStatusConfirmed {
		return nil, fmt.Errorf("%w: confirmed funding source %s", domain.ErrGroupNotFound, id)
	}
	return g, nil
}

func (uc *FundingUseCase) reject(err error) error {
	if uc.metrics != nil {
		uc.metrics.AllocationsRejected.WithLabelValues(errorKind(err)).Inc()
	}
	return err
}

func preciseUsage(g *domain.TransactionGroup, sourceID string) decimal.Decimal {
	total := decimal.Zero
	for _, u := range g.FundingSourceUsages {
		if u.SourceTransactionID == sourceID {
			total = total.Add(u.UsedAmount)
		}
	}
	return total
}

func addUsage(usages []domain.FundingSourceUsage, sourceID string, amount decimal.Decimal, entryIndex int) []domain.FundingSourceUsage {
	for i := range usages {
		if usages[i].SourceTransactionID == sourceID {
			usages[i].UsedAmount = usages[i].UsedAmount.Add(amount)
			return usages
		}
	}
	return append(usages, domain.FundingSourceUsage{
		SourceTransactionID: sourceID,
		UsedAmount:          amount,
		Description:         fmt.Sprintf("allocated to entry %d", entryIndex),
	})
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
