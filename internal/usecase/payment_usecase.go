package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/logger"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
)

// settlementLedger keeps payableInfo in step with the payments that
// reference a payable.
type settlementLedger struct {
	groupRepo   GroupRepository
	accountRepo AccountRepository
	gateway     ExternalDocumentGateway
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

func newSettlementLedger(groupRepo GroupRepository, accountRepo AccountRepository, gateway ExternalDocumentGateway, logger zerolog.Logger, m *metrics.Metrics) *settlementLedger {
	return &settlementLedger{
		groupRepo:   groupRepo,
		accountRepo: accountRepo,
		gateway:     gateway,
		logger:      logger,
		metrics:     m,
	}
}

// payableAmount is the sum of credits the payable posts to liability accounts.
func (s *settlementLedger) payableAmount(ctx context.Context, scope domain.Scope, payable *domain.TransactionGroup) (decimal.Decimal, error) {
	accounts, err := s.accountRepo.GetByIDs(ctx, scope, payable.AccountIDs())
	if err != nil {
		return decimal.Zero, domain.NewPersistenceError("load payable accounts", err)
	}
	liabilities := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		if a.AccountType == domain.AccountTypeLiability {
			liabilities[a.ID] = true
		}
	}
	return payable.LiabilityCredits(liabilities), nil
}

// payments returns the live payments to payableID with their total and history.
func (s *settlementLedger) payments(ctx context.Context, tx Transaction, scope domain.Scope, payableID string) (decimal.Decimal, []domain.PaymentRecord, error) {
	groups, err := s.groupRepo.ListPaymentsForPayable(ctx, tx, scope, payableID, liveStatuses)
	if err != nil {
		return decimal.Zero, nil, domain.NewPersistenceError("list payments", err)
	}

	paid := decimal.Zero
	history := make([]domain.PaymentRecord, 0, len(groups))
	for _, p := range groups {
		amount := p.PaymentTo(payableID)
		if !amount.IsPositive() {
			continue
		}
		paid = paid.Add(amount)
		history = append(history, domain.PaymentRecord{
			PaymentTransactionID: p.ID,
			Amount:               amount,
			Date:                 p.TransactionDate,
		})
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})
	return paid, history, nil
}

// recompute rewrites payable.PayableInfo from the payments now stored.
func (s *settlementLedger) recompute(ctx context.Context, tx Transaction, scope domain.Scope, payable *domain.TransactionGroup, now time.Time) error {
	amount, err := s.payableAmount(ctx, scope, payable)
	if err != nil {
		return err
	}
	paid, history, err := s.payments(ctx, tx, scope, payable.ID)
	if err != nil {
		return err
	}

	wasPaidOff := payable.PayableInfo != nil && payable.PayableInfo.IsPaidOff
	payable.PayableInfo = &domain.PayableInfo{
		PayableAmount:   amount,
		TotalPaidAmount: paid,
		IsPaidOff:       amount.IsPositive() && paid.GreaterThanOrEqual(amount),
		PaymentHistory:  history,
	}
	payable.UpdatedAt = now

	if err := s.groupRepo.Update(ctx, tx, payable); err != nil {
		return domain.NewPersistenceError("update payable", err)
	}
	if s.metrics != nil && !wasPaidOff && payable.PayableInfo.IsPaidOff {
		s.metrics.PayablesPaidOff.Inc()
	}
	return nil
}

// notify pushes payable state to linked documents. Failures are logged only.
func (s *settlementLedger) notify(ctx context.Context, payables []*domain.TransactionGroup) {
	if s.gateway == nil {
		return
	}
	for _, p := range payables {
		if p.ExternalDocumentID == "" || p.PayableInfo == nil {
			continue
		}
		update := PayableStatusUpdate{
			DocumentID:      p.ExternalDocumentID,
			TransactionID:   p.ID,
			PayableAmount:   p.PayableInfo.PayableAmount.String(),
			TotalPaidAmount: p.PayableInfo.TotalPaidAmount.String(),
			IsPaidOff:       p.PayableInfo.IsPaidOff,
		}
		if err := s.gateway.NotifyPayableStatus(ctx, update); err != nil {
			l := logger.FromContext(ctx, s.logger)
			l.Warn().
				Err(err).
				Str("document_id", p.ExternalDocumentID).
				Str("transaction_id", p.ID).
				Msg("failed to propagate payable status")
			if s.metrics != nil {
				s.metrics.NotificationsFailed.WithLabelValues("payable_status").Inc()
			}
		}
	}
}

// PaymentUseCase handles the payable/payment subledger.
type PaymentUseCase struct {
	txManager   TransactionManager
	groupRepo   GroupRepository
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	retrier     Retrier
	numbers     groupNumberAllocator
	settlement  *settlementLedger
	metrics     *metrics.Metrics
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(
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
) *PaymentUseCase {
	return &PaymentUseCase{
		txManager:   txManager,
		groupRepo:   groupRepo,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		retrier:     retrier,
		numbers:     groupNumberAllocator{sequence: sequence, groupRepo: groupRepo},
		settlement:  newSettlementLedger(groupRepo, accountRepo, gateway, logger, metrics),
		metrics:     metrics,
	}
}

// CreatePaymentInput represents input for a payment transaction.
type CreatePaymentInput struct {
	GroupNumber     string
	Description     string
	TransactionDate *time.Time
	Entries         []domain.Entry
	Payables        []domain.PayableAllocation
	// Status is the initial status: draft (default) or confirmed.
	Status domain.GroupStatus
}

// CreatePaymentTransaction records a payment against one or more payables.
// Each amount may not exceed what is still unpaid on its payable.
func (uc *PaymentUseCase) CreatePaymentTransaction(ctx context.Context, input CreatePaymentInput, scope domain.Scope) (*domain.TransactionGroup, error) {
	start := time.Now()
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	allocations, err := mergeAllocations(input.Payables)
	if err != nil {
		return nil, err
	}

	now := start.UTC()
	g := &domain.TransactionGroup{
		ID:              uc.idGen.Generate(),
		GroupNumber:     strings.TrimSpace(input.GroupNumber),
		Description:     strings.TrimSpace(input.Description),
		TransactionDate: now,
		OrganizationID:  scope.OrganizationID,
		CreatedBy:       scope.ActorID,
		Status:          input.Status,
		TransactionType: domain.TransactionTypePayment,
		FundingType:     domain.FundingTypeOriginal,
		PaymentInfo:     &domain.PaymentInfo{PayableTransactions: allocations},
		Entries:         append([]domain.Entry(nil), input.Entries...),
		CreatedAt:       now,
		UpdatedAt:       now,
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
		return nil, fmt.Errorf("%w: a payment cannot be created as %s", domain.ErrValidation, g.Status)
	}

	g.NormalizeEntries()
	if _, err := resolveActiveAccounts(ctx, uc.accountRepo, scope, g.AccountIDs()); err != nil {
		return nil, err
	}
	if g.GroupNumber == "" {
		if g.GroupNumber, err = uc.numbers.next(ctx, scope, now); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	var payables []*domain.TransactionGroup
	err = runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		payables = nil

		exists, err := uc.groupRepo.ExistsGroupNumber(ctx, tx, scope, g.GroupNumber, "")
		if err != nil {
			return domain.NewPersistenceError("check group number", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateGroupNumber, g.GroupNumber)
		}

		locked, err := lockGroups(ctx, uc.groupRepo, tx, scope, g.PayableRefs()...)
		if err != nil {
			return err
		}

		for _, alloc := range allocations {
			payable, ok := locked[alloc.PayableTransactionID]
			if !ok {
				return fmt.Errorf("%w: payable transaction %s", domain.ErrGroupNotFound, alloc.PayableTransactionID)
			}
			if err := uc.checkPayable(ctx, tx, scope, payable, alloc.Amount); err != nil {
				return err
			}
		}

		if err := uc.groupRepo.Create(ctx, tx, g); err != nil {
			return domain.NewPersistenceError("create payment", err)
		}

		for _, alloc := range allocations {
			payable := locked[alloc.PayableTransactionID]
			if err := uc.settlement.recompute(ctx, tx, scope, payable, now); err != nil {
				return err
			}
			payables = append(payables, payable)
		}

		sums := make(map[string]string, len(allocations))
		for _, alloc := range allocations {
			sums[alloc.PayableTransactionID] = alloc.Amount.String()
		}
		event := newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeGroup, g.ID, domain.EventTypePaymentCreated, map[string]any{
			"payment_id": g.ID,
			"payables":   sums,
			"actor_id":   scope.ActorID,
		}, now)
		return uc.outboxRepo.Create(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	// Post-commit, best-effort.
	uc.settlement.notify(ctx, payables)

	if uc.metrics != nil {
		uc.metrics.PaymentsCreated.Inc()
		for _, alloc := range allocations {
			uc.metrics.PaymentAmount.Observe(alloc.Amount.InexactFloat64())
		}
		uc.metrics.OperationDuration.WithLabelValues("create_payment").Observe(time.Since(start).Seconds())
	}

	return g, nil
}

func (uc *PaymentUseCase) checkPayable(ctx context.Context, tx Transaction, scope domain.Scope, payable *domain.TransactionGroup, amount decimal.Decimal) error {
	if payable.Status != domain.GroupStatusConfirmed {
		return fmt.Errorf("%w: payable %s is %s, not confirmed", domain.ErrInvalidState, payable.ID, payable.Status)
	}
	if payable.TransactionType == domain.TransactionTypePayment {
		return fmt.Errorf("%w: %s is a payment, not a payable", domain.ErrValidation, payable.ID)
	}

	payableAmount, err := uc.settlement.payableAmount(ctx, scope, payable)
	if err != nil {
		return err
	}
	if !payableAmount.IsPositive() {
		return fmt.Errorf("%w: transaction %s has no liability credits to settle", domain.ErrValidation, payable.ID)
	}

	paid, _, err := uc.settlement.payments(ctx, tx, scope, payable.ID)
	if err != nil {
		return err
	}
	remaining := payableAmount.Sub(paid)
	if amount.GreaterThan(remaining) {
		return &domain.OverpaymentError{PayableID: payable.ID, Requested: amount, Remaining: remaining}
	}
	return nil
}

// PayableStatus is the settlement state of the payable linked to a document.
type PayableStatus struct {
	DocumentID      string
	TransactionID   string
	PayableAmount   decimal.Decimal
	TotalPaidAmount decimal.Decimal
	RemainingAmount decimal.Decimal
	IsPaidOff       bool
	Payments        []domain.PaymentRecord
}

// CheckPayableStatus reports the settlement of the payable created for documentID.
func (uc *PaymentUseCase) CheckPayableStatus(ctx context.Context, documentID string, scope domain.Scope) (*PayableStatus, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	payable, err := uc.groupRepo.GetByExternalDocument(ctx, nil, scope, documentID)
	if err != nil {
		return nil, err
	}

	amount, err := uc.settlement.payableAmount(ctx, scope, payable)
	if err != nil {
		return nil, err
	}
	paid, history, err := uc.settlement.payments(ctx, nil, scope, payable.ID)
	if err != nil {
		return nil, err
	}

	info := domain.PayableInfo{PayableAmount: amount, TotalPaidAmount: paid}
	return &PayableStatus{
		DocumentID:      documentID,
		TransactionID:   payable.ID,
		PayableAmount:   amount,
		TotalPaidAmount: paid,
		RemainingAmount: info.RemainingAmount(),
		IsPaidOff:       amount.IsPositive() && paid.GreaterThanOrEqual(amount),
		Payments:        history,
	}, nil
}

// BatchCheckPayableStatus reports, per document, whether anything has been
// paid. Any failure to resolve a document yields false.
func (uc *PaymentUseCase) BatchCheckPayableStatus(ctx context.Context, documentIDs []string, scope domain.Scope) (map[string]bool, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if len(documentIDs) > MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d document ids per batch", domain.ErrValidation, MaxBatchSize)
	}

	result := make(map[string]bool, len(documentIDs))
	for _, docID := range documentIDs {
		result[docID] = uc.hasPayment(ctx, docID, scope)
	}
	return result, nil
}

func (uc *PaymentUseCase) hasPayment(ctx context.Context, documentID string, scope domain.Scope) bool {
	payable, err := uc.groupRepo.GetByExternalDocument(ctx, nil, scope, documentID)
	if err != nil {
		return false
	}
	paid, _, err := uc.settlement.payments(ctx, nil, scope, payable.ID)
	if err != nil {
		return false
	}
	return paid.IsPositive()
}

func mergeAllocations(in []domain.PayableAllocation) ([]domain.PayableAllocation, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: a payment must settle at least one payable", domain.ErrValidation)
	}

	index := make(map[string]int, len(in))
	out := make([]domain.PayableAllocation, 0, len(in))
	for _, a := range in {
		if a.PayableTransactionID == "" {
			return nil, fmt.Errorf("%w: payable transaction id is required", domain.ErrValidation)
		}
		amount := domain.RoundMoney(a.Amount)
		if err := domain.ValidateAmount(amount); err != nil {
			return nil, err
		}
		if i, ok := index[a.PayableTransactionID]; ok {
			out[i].Amount = out[i].Amount.Add(amount)
			continue
		}
		index[a.PayableTransactionID] = len(out)
		out = append(out, domain.PayableAllocation{PayableTransactionID: a.PayableTransactionID, Amount: amount})
	}
	return out, nil
}
