package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
)

// GroupUseCase drives the draft -> confirmed -> cancelled lifecycle.
type GroupUseCase struct {
	txManager   TransactionManager
	groupRepo   GroupRepository
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	retrier     Retrier
	numbers     groupNumberAllocator
	usage       usageCalculator
	settlement  *settlementLedger
	metrics     *metrics.Metrics
}

// NewGroupUseCase creates a new GroupUseCase.
func NewGroupUseCase(
	txManager TransactionManager,
	groupRepo GroupRepository,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	sequence SequenceGenerator,
	gateway ExternalDocumentGateway,
	idGen IDGenerator,
	retrier Retrier,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *GroupUseCase {
	return &GroupUseCase{
		txManager:   txManager,
		groupRepo:   groupRepo,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		retrier:     retrier,
		numbers:     groupNumberAllocator{sequence: sequence, groupRepo: groupRepo},
		usage:       usageCalculator{groupRepo: groupRepo},
		settlement:  newSettlementLedger(groupRepo, accountRepo, gateway, logger, metrics),
		metrics:     metrics,
	}
}

// CreateGroupInput represents input for creating a transaction group.
type CreateGroupInput struct {
	GroupNumber          string
	Description          string
	TransactionDate      *time.Time
	TransactionType      domain.TransactionType
	FundingType          domain.FundingType
	SourceTransactionID  string
	LinkedTransactionIDs []string
	FundingSourceUsages  []domain.FundingSourceUsage
	Entries              []domain.Entry
	// Status is the initial status: draft (default) or confirmed.
	Status domain.GroupStatus
}

// CreateGroup validates and stores a new group.
func (uc *GroupUseCase) CreateGroup(ctx context.Context, input CreateGroupInput, scope domain.Scope) (*domain.TransactionGroup, error) {
	start := time.Now()
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	now := start.UTC()
	g := &domain.TransactionGroup{
		ID:                   uc.idGen.Generate(),
		GroupNumber:          strings.TrimSpace(input.GroupNumber),
		Description:          strings.TrimSpace(input.Description),
		TransactionDate:      now,
		OrganizationID:       scope.OrganizationID,
		CreatedBy:            scope.ActorID,
		Status:               input.Status,
		TransactionType:      input.TransactionType,
		FundingType:          input.FundingType,
		SourceTransactionID:  input.SourceTransactionID,
		LinkedTransactionIDs: input.LinkedTransactionIDs,
		FundingSourceUsages:  roundUsages(input.FundingSourceUsages),
		Entries:              append([]domain.Entry(nil), input.Entries...),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if input.TransactionDate != nil {
		g.TransactionDate = *input.TransactionDate
	}
	applyGroupDefaults(g)

	switch g.Status {
	case domain.GroupStatusDraft:
	case domain.GroupStatusConfirmed:
		g.ConfirmedAt = &now
	default:
		return nil, uc.fail("create", fmt.Errorf("%w: a group cannot be created as %s", domain.ErrValidation, g.Status))
	}

	g.NormalizeEntries()
	accounts, err := resolveActiveAccounts(ctx, uc.accountRepo, scope, g.AccountIDs())
	if err != nil {
		return nil, uc.fail("create", err)
	}
	applyPayableInfo(g, accounts)

	if g.GroupNumber == "" {
		if g.GroupNumber, err = uc.numbers.next(ctx, scope, now); err != nil {
			return nil, uc.fail("create", err)
		}
	}

	if err := g.Validate(); err != nil {
		return nil, uc.fail("create", err)
	}

	err = runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		exists, err := uc.groupRepo.ExistsGroupNumber(ctx, tx, scope, g.GroupNumber, "")
		if err != nil {
			return domain.NewPersistenceError("check group number", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateGroupNumber, g.GroupNumber)
		}

		locked, err := lockGroups(ctx, uc.groupRepo, tx, scope, append(g.SourceRefs(), g.SourceTransactionID)...)
		if err != nil {
			return err
		}
		if err := checkReferences(g, locked); err != nil {
			return err
		}
		if g.Status == domain.GroupStatusConfirmed {
			if err := uc.usage.checkAvailability(ctx, tx, scope, g, locked); err != nil {
				return err
			}
		}

		if err := uc.groupRepo.Create(ctx, tx, g); err != nil {
			return domain.NewPersistenceError("create group", err)
		}

		event := newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeGroup, g.ID, domain.EventTypeGroupCreated, groupPayload(g, scope.ActorID), now)
		return uc.outboxRepo.Create(ctx, tx, event)
	})
	if err != nil {
		return nil, uc.fail("create", err)
	}

	if uc.metrics != nil {
		uc.metrics.GroupsCreated.WithLabelValues(string(g.TransactionType), string(g.Status)).Inc()
		uc.metrics.OperationDuration.WithLabelValues("create_group").Observe(time.Since(start).Seconds())
	}

	return g, nil
}

// UpdateGroupInput is a partial update of a draft group. Nil fields are
// kept; a nil Entries slice keeps the current entries.
type UpdateGroupInput struct {
	GroupNumber          *string
	Description          *string
	TransactionDate      *time.Time
	TransactionType      *domain.TransactionType
	FundingType          *domain.FundingType
	SourceTransactionID  *string
	LinkedTransactionIDs *[]string
	FundingSourceUsages  *[]domain.FundingSourceUsage
	Entries              []domain.Entry
}

// UpdateGroup patches a draft group.
func (uc *GroupUseCase) UpdateGroup(ctx context.Context, id string, input UpdateGroupInput, scope domain.Scope) (*domain.TransactionGroup, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.TransactionGroup
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		current, err := uc.groupRepo.GetByID(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if err := current.EnsureDraft(); err != nil {
			return err
		}

		g := current
		numberChanged := applyGroupPatch(g, input)
		g.NormalizeEntries()

		accounts, err := resolveActiveAccounts(ctx, uc.accountRepo, scope, g.AccountIDs())
		if err != nil {
			return err
		}
		applyPayableInfo(g, accounts)

		if err := g.Validate(); err != nil {
			return err
		}

		if numberChanged {
			exists, err := uc.groupRepo.ExistsGroupNumber(ctx, tx, scope, g.GroupNumber, g.ID)
			if err != nil {
				return domain.NewPersistenceError("check group number", err)
			}
			if exists {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateGroupNumber, g.GroupNumber)
			}
		}

		ids := append([]string{g.ID, g.SourceTransactionID}, g.SourceRefs()...)
		locked, err := lockGroups(ctx, uc.groupRepo, tx, scope, ids...)
		if err != nil {
			return err
		}
		if err := checkLockedVersion(locked, g); err != nil {
			return err
		}
		if err := checkReferences(g, locked); err != nil {
			return err
		}

		now := time.Now().UTC()
		g.UpdatedAt = now
		if err := uc.groupRepo.Update(ctx, tx, g); err != nil {
			return domain.NewPersistenceError("update group", err)
		}

		event := newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeGroup, g.ID, domain.EventTypeGroupUpdated, groupPayload(g, scope.ActorID), now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		updated = g
		return nil
	})
	if err != nil {
		return nil, uc.fail("update", err)
	}

	return updated, nil
}

// ConfirmGroup re-verifies the entries and funding availability, then
// freezes the group.
func (uc *GroupUseCase) ConfirmGroup(ctx context.Context, id string, scope domain.Scope) (*domain.TransactionGroup, error) {
	start := time.Now()
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var confirmed *domain.TransactionGroup
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		current, err := uc.groupRepo.GetByID(ctx, tx, scope, id)
		if err != nil {
			return err
		}

		locked, err := lockGroups(ctx, uc.groupRepo, tx, scope, append([]string{current.ID}, current.SourceRefs()...)...)
		if err != nil {
			return err
		}
		if err := checkLockedVersion(locked, current); err != nil {
			return err
		}
		g := locked[id]

		now := time.Now().UTC()
		if err := g.Confirm(now); err != nil {
			return err
		}
		if err := uc.usage.checkAvailability(ctx, tx, scope, g, locked); err != nil {
			return err
		}

		if err := uc.groupRepo.Update(ctx, tx, g); err != nil {
			return domain.NewPersistenceError("confirm group", err)
		}

		event := newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeGroup, g.ID, domain.EventTypeGroupConfirmed, groupPayload(g, scope.ActorID), now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		confirmed = g
		return nil
	})
	if err != nil {
		return nil, uc.fail("confirm", err)
	}

	if uc.metrics != nil {
		uc.metrics.GroupsConfirmed.Inc()
		uc.metrics.GroupAmount.Observe(confirmed.TotalAmount.InexactFloat64())
		uc.metrics.OperationDuration.WithLabelValues("confirm_group").Observe(time.Since(start).Seconds())
	}

	return confirmed, nil
}

// CancelGroup cancels a group nothing live still draws on. Cancelling a
// payment recomputes the payables it settled.
func (uc *GroupUseCase) CancelGroup(ctx context.Context, id string, reason string, scope domain.Scope) (*domain.TransactionGroup, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var (
		cancelled *domain.TransactionGroup
		payables  []*domain.TransactionGroup
	)
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		payables = nil

		current, err := uc.groupRepo.GetByID(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if current.Status == domain.GroupStatusCancelled {
			return domain.ErrTerminal
		}

		locked, err := lockGroups(ctx, uc.groupRepo, tx, scope, append([]string{current.ID}, current.PayableRefs()...)...)
		if err != nil {
			return err
		}
		if err := checkLockedVersion(locked, current); err != nil {
			return err
		}
		g := locked[id]

		count, err := countLiveReferences(ctx, uc.groupRepo, tx, scope, g.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return &domain.ReferencedError{GroupID: g.ID, Count: count}
		}

		now := time.Now().UTC()
		if err := g.Cancel(now, strings.TrimSpace(reason)); err != nil {
			return err
		}
		if err := uc.groupRepo.Update(ctx, tx, g); err != nil {
			return domain.NewPersistenceError("cancel group", err)
		}

		for _, payableID := range g.PayableRefs() {
			payable, ok := locked[payableID]
			if !ok {
				continue
			}
			if err := uc.settlement.recompute(ctx, tx, scope, payable, now); err != nil {
				return err
			}
			payables = append(payables, payable)
		}

		event := newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeGroup, g.ID, domain.EventTypeGroupCancelled, groupPayload(g, scope.ActorID), now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		cancelled = g
		return nil
	})
	if err != nil {
		return nil, uc.fail("cancel", err)
	}

	uc.settlement.notify(ctx, payables)

	if uc.metrics != nil {
		uc.metrics.GroupsCancelled.Inc()
	}

	return cancelled, nil
}

// GetGroup returns a group visible in scope.
func (uc *GroupUseCase) GetGroup(ctx context.Context, id string, scope domain.Scope) (*domain.TransactionGroup, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return uc.groupRepo.GetByID(ctx, nil, scope, id)
}

// GroupPage is one page of a group listing.
type GroupPage struct {
	Items []*domain.TransactionGroup
	Total int
	Page  int
	Limit int
}

// ListGroups lists groups newest first.
func (uc *GroupUseCase) ListGroups(ctx context.Context, scope domain.Scope, filter GroupFilter) (*GroupPage, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}
	if filter.TransactionType != "" && !filter.TransactionType.IsValid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", domain.ErrValidation, filter.TransactionType)
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, fmt.Errorf("%w: dateFrom is after dateTo", domain.ErrValidation)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page, filter.Limit = domain.ValidatePagination(filter.Page, filter.Limit)

	items, total, err := uc.groupRepo.List(ctx, scope, filter)
	if err != nil {
		return nil, domain.NewPersistenceError("list groups", err)
	}

	return &GroupPage{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// CalculateBalance reports how much of a confirmed group has been drawn on.
func (uc *GroupUseCase) CalculateBalance(ctx context.Context, id string, scope domain.Scope) (*FundingUsage, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	g, err := uc.groupRepo.GetByID(ctx, nil, scope, id)
	if err != nil {
		return nil, err
	}
	if g.Status != domain.GroupStatusConfirmed {
		return nil, fmt.Errorf("%w: balance requires a confirmed transaction, %s is %s", domain.ErrInvalidState, id, g.Status)
	}

	return uc.usage.usage(ctx, nil, scope, g, "")
}

// BalanceResult is one item of a batch balance query.
type BalanceResult struct {
	TransactionID string
	Success       bool
	Balance       *FundingUsage
	Error         string
}

// BatchCalculateBalance runs CalculateBalance per id. A failing id yields
// an unsuccessful result and never aborts the batch.
func (uc *GroupUseCase) BatchCalculateBalance(ctx context.Context, ids []string, scope domain.Scope) ([]BalanceResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d ids per batch", domain.ErrValidation, MaxBatchSize)
	}

	results := make([]BalanceResult, 0, len(ids))
	for _, id := range ids {
		balance, err := uc.CalculateBalance(ctx, id, scope)
		if err != nil {
			results = append(results, BalanceResult{TransactionID: id, Error: err.Error()})
			continue
		}
		results = append(results, BalanceResult{TransactionID: id, Success: true, Balance: balance})
	}
	return results, nil
}

func (uc *GroupUseCase) fail(operation string, err error) error {
	if uc.metrics != nil {
		uc.metrics.LifecycleErrors.WithLabelValues(operation, errorKind(err)).Inc()
	}
	return err
}

func applyGroupDefaults(g *domain.TransactionGroup) {
	if g.Status == "" {
		g.Status = domain.GroupStatusDraft
	}
	if g.TransactionType == "" {
		g.TransactionType = domain.TransactionTypeGeneral
	}
	if g.FundingType == "" {
		g.FundingType = domain.FundingTypeOriginal
	}
}

func applyGroupPatch(g *domain.TransactionGroup, input UpdateGroupInput) (numberChanged bool) {
	if input.GroupNumber != nil {
		number := strings.TrimSpace(*input.GroupNumber)
		numberChanged = number != g.GroupNumber
		g.GroupNumber = number
	}
	if input.Description != nil {
		g.Description = strings.TrimSpace(*input.Description)
	}
	if input.TransactionDate != nil {
		g.TransactionDate = *input.TransactionDate
	}
	if input.TransactionType != nil {
		g.TransactionType = *input.TransactionType
	}
	if input.FundingType != nil {
		g.FundingType = *input.FundingType
	}
	if input.SourceTransactionID != nil {
		g.SourceTransactionID = *input.SourceTransactionID
	}
	if input.LinkedTransactionIDs != nil {
		g.LinkedTransactionIDs = *input.LinkedTransactionIDs
	}
	if input.FundingSourceUsages != nil {
		g.FundingSourceUsages = roundUsages(*input.FundingSourceUsages)
	}
	if input.Entries != nil {
		g.Entries = append([]domain.Entry(nil), input.Entries...)
	}
	return numberChanged
}

// applyPayableInfo makes a purchase with liability credits settleable.
func applyPayableInfo(g *domain.TransactionGroup, accounts []*domain.Account) {
	if g.TransactionType != domain.TransactionTypePurchase {
		return
	}
	liabilities := make(map[string]bool)
	for _, a := range accounts {
		if a.AccountType == domain.AccountTypeLiability {
			liabilities[a.ID] = true
		}
	}
	amount := g.LiabilityCredits(liabilities)
	if !amount.IsPositive() {
		g.PayableInfo = nil
		return
	}
	g.PayableInfo = &domain.PayableInfo{PayableAmount: amount, TotalPaidAmount: decimal.Zero}
}

func roundUsages(in []domain.FundingSourceUsage) []domain.FundingSourceUsage {
	if in == nil {
		return nil
	}
	out := make([]domain.FundingSourceUsage, len(in))
	for i, u := range in {
		u.UsedAmount = domain.RoundMoney(u.UsedAmount)
		out[i] = u
	}
	return out
}

// checkReferences verifies the back-reference and funding sources of g
// exist among the locked groups.
func checkReferences(g *domain.TransactionGroup, locked map[string]*domain.TransactionGroup) error {
	if g.SourceTransactionID != "" && g.SourceTransactionID != g.ID {
		if _, ok := locked[g.SourceTransactionID]; !ok {
			return fmt.Errorf("%w: source transaction %s not found", domain.ErrReferentialIntegrity, g.SourceTransactionID)
		}
	}
	return checkSourcesExist(g, locked)
}

// checkLockedVersion fails when the locked row moved since it was read.
func checkLockedVersion(locked map[string]*domain.TransactionGroup, read *domain.TransactionGroup) error {
	g, ok := locked[read.ID]
	if !ok {
		return domain.ErrGroupNotFound
	}
	if g.Version != read.Version {
		return domain.ErrConcurrentModification
	}
	return nil
}

// countLiveReferences counts non-cancelled groups drawing funds from id or paying it.
func countLiveReferences(ctx context.Context, repo GroupRepository, tx Transaction, scope domain.Scope, id string) (int, error) {
	refs, err := repo.ListReferencing(ctx, tx, scope, id, liveStatuses)
	if err != nil {
		return 0, domain.NewPersistenceError("list referencing groups", err)
	}
	payments, err := repo.ListPaymentsForPayable(ctx, tx, scope, id, liveStatuses)
	if err != nil {
		return 0, domain.NewPersistenceError("list payments", err)
	}

	seen := make(map[string]bool, len(refs)+len(payments))
	for _, g := range append(refs, payments...) {
		if g.ID != id {
			seen[g.ID] = true
		}
	}
	return len(seen), nil
}
