package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
	"github.com/iho/pharmledger/internal/usecase"
	"github.com/iho/pharmledger/internal/usecase/mocks"
)

const (
	cashID      = "acc-cash"
	inventoryID = "acc-inventory"
	payableID   = "acc-payable"
	expenseID   = "acc-expense"
	revenueID   = "acc-revenue"
)

var testScope = domain.Scope{ActorID: "user-1", OrganizationID: "org-1"}

type fixture struct {
	accounts  *mocks.MockAccountRepository
	groups    *mocks.MockGroupRepository
	outbox    *mocks.MockOutboxRepository
	txManager *mocks.MockTransactionManager
	idGen     *mocks.MockIDGenerator
	sequence  *mocks.MockSequenceGenerator
	gateway   *mocks.MockExternalDocumentGateway
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		accounts:  mocks.NewMockAccountRepository(),
		groups:    mocks.NewMockGroupRepository(),
		outbox:    mocks.NewMockOutboxRepository(),
		txManager: mocks.NewMockTransactionManager(),
		idGen:     mocks.NewMockIDGenerator(),
		sequence:  mocks.NewMockSequenceGenerator(ctrl),
		gateway:   mocks.NewMockExternalDocumentGateway(ctrl),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}

	var (
		mu  sync.Mutex
		seq int64
	)
	f.sequence.EXPECT().
		Next(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.Scope, time.Time) (int64, error) {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return seq, nil
		}).
		AnyTimes()

	f.accounts.Put(
		testAccount(cashID, "1101", domain.AccountTypeAsset),
		testAccount(inventoryID, "1301", domain.AccountTypeAsset),
		testAccount(payableID, "2101", domain.AccountTypeLiability),
		testAccount(expenseID, "5101", domain.AccountTypeExpense),
		testAccount(revenueID, "4101", domain.AccountTypeRevenue),
	)
	return f
}

func (f *fixture) groupUseCase() *usecase.GroupUseCase {
	return usecase.NewGroupUseCase(f.txManager, f.groups, f.accounts, f.outbox, f.sequence, f.gateway, f.idGen, nil, zerolog.Nop(), f.metrics)
}

func (f *fixture) fundingUseCase() *usecase.FundingUseCase {
	return usecase.NewFundingUseCase(f.txManager, f.groups, f.outbox, f.idGen, nil, zerolog.Nop(), f.metrics)
}

func (f *fixture) paymentUseCase() *usecase.PaymentUseCase {
	return usecase.NewPaymentUseCase(f.txManager, f.groups, f.accounts, f.outbox, f.sequence, f.gateway, f.idGen, nil, zerolog.Nop(), f.metrics)
}

func (f *fixture) autoEntryUseCase() *usecase.AutoEntryUseCase {
	return usecase.NewAutoEntryUseCase(f.txManager, f.groups, f.accounts, f.outbox, f.sequence, f.gateway, f.idGen, nil, zerolog.Nop(), f.metrics)
}

// seed stores a group as-is, bypassing the usecases.
func (f *fixture) seed(g *domain.TransactionGroup) *domain.TransactionGroup {
	if g.CreatedBy == "" {
		g.CreatedBy = testScope.ActorID
		g.OrganizationID = testScope.OrganizationID
	}
	if g.GroupNumber == "" {
		g.GroupNumber = "SEED-" + g.ID
	}
	if g.TransactionDate.IsZero() {
		g.TransactionDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	}
	if g.TransactionType == "" {
		g.TransactionType = domain.TransactionTypeGeneral
	}
	if g.FundingType == "" {
		g.FundingType = domain.FundingTypeOriginal
	}
	if g.Version == 0 {
		g.Version = 1
	}
	g.RecomputeTotal()
	f.groups.Put(g)
	return g
}

func testAccount(id, code string, t domain.AccountType) *domain.Account {
	return &domain.Account{
		ID:             id,
		Code:           code,
		Name:           "account " + code,
		AccountType:    t,
		NormalBalance:  t.NormalBalance(),
		Level:          1,
		IsActive:       true,
		CreatedBy:      testScope.ActorID,
		OrganizationID: testScope.OrganizationID,
	}
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func debitEntry(account, amount string) domain.Entry {
	return domain.Entry{AccountID: account, DebitAmount: amt(amount), CreditAmount: decimal.Zero}
}

func creditEntry(account, amount string) domain.Entry {
	return domain.Entry{AccountID: account, DebitAmount: decimal.Zero, CreditAmount: amt(amount)}
}

// pair is a balanced two-entry posting.
func pair(debitAccount, creditAccount, amount string) []domain.Entry {
	return []domain.Entry{debitEntry(debitAccount, amount), creditEntry(creditAccount, amount)}
}

func confirmedSource(id, amount string) *domain.TransactionGroup {
	return &domain.TransactionGroup{
		ID:      id,
		Status:  domain.GroupStatusConfirmed,
		Entries: withSequences(pair(inventoryID, cashID, amount)),
	}
}

func withSequences(entries []domain.Entry) []domain.Entry {
	for i := range entries {
		entries[i].Sequence = i + 1
	}
	return entries
}
