package usecase_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

func TestGroupUseCase_FundingScenario(t *testing.T) {
	f := newFixture(t)
	uc := f.groupUseCase()
	ctx := context.Background()

	a, err := uc.CreateGroup(ctx, usecase.CreateGroupInput{
		Description: "Stock purchase",
		Entries:     pair(inventoryID, cashID, "1000"),
	}, testScope)
	require.NoError(t, err)
	assert.Equal(t, domain.GroupStatusDraft, a.Status)

	a, err = uc.ConfirmGroup(ctx, a.ID, testScope)
	require.NoError(t, err)
	assert.Equal(t, domain.GroupStatusConfirmed, a.Status)
	assert.True(t, a.TotalAmount.Equal(amt("1000")))
	assert.NotNil(t, a.ConfirmedAt)

	funded := debitEntry(expenseID, "300")
	funded.SourceTransactionID = a.ID
	b, err := uc.CreateGroup(ctx, usecase.CreateGroupInput{
		Description: "Dispensed stock",
		Entries:     []domain.Entry{funded, creditEntry(cashID, "300")},
	}, testScope)
	require.NoError(t, err)

	_, err = uc.ConfirmGroup(ctx, b.ID, testScope)
	require.NoError(t, err)

	balance, err := uc.CalculateBalance(ctx, a.ID, testScope)
	require.NoError(t, err)
	assert.True(t, balance.TotalAmount.Equal(amt("1000")))
	assert.True(t, balance.UsedAmount.Equal(amt("300")))
	assert.True(t, balance.RemainingAmount.Equal(amt("700")))
	require.Len(t, balance.Usages, 1)
	assert.Equal(t, b.ID, balance.Usages[0].TransactionID)

	// A is still drawn on by B.
	_, err = uc.CancelGroup(ctx, a.ID, "duplicate", testScope)
	var referenced *domain.ReferencedError
	require.ErrorAs(t, err, &referenced)
	assert.Equal(t, 1, referenced.Count)
	assert.ErrorIs(t, err, domain.ErrReferentialIntegrity)
	assert.Equal(t, domain.GroupStatusConfirmed, f.groups.Get(a.ID).Status)

	_, err = uc.CancelGroup(ctx, b.ID, "reversed", testScope)
	require.NoError(t, err)

	cancelled, err := uc.CancelGroup(ctx, a.ID, "duplicate", testScope)
	require.NoError(t, err)
	assert.Equal(t, domain.GroupStatusCancelled, cancelled.Status)
	assert.Equal(t, "duplicate", cancelled.CancelReason)

	_, err = uc.CancelGroup(ctx, a.ID, "", testScope)
	assert.ErrorIs(t, err, domain.ErrTerminal)

	assert.Equal(t, []string{
		domain.EventTypeGroupCreated,
		domain.EventTypeGroupConfirmed,
		domain.EventTypeGroupCreated,
		domain.EventTypeGroupConfirmed,
		domain.EventTypeGroupCancelled,
		domain.EventTypeGroupCancelled,
	}, f.outbox.EventTypes())
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.GroupsConfirmed))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.GroupsCancelled))
}

func TestGroupUseCase_ConfirmRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []domain.Entry
		check   func(t *testing.T, err error)
	}{
		{
			name:    "no entries",
			entries: nil,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrValidation)
			},
		},
		{
			name:    "single entry",
			entries: withSequences([]domain.Entry{debitEntry(cashID, "100")}),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.Contains(t, err.Error(), "got 1")
			},
		},
		{
			name:    "unbalanced",
			entries: withSequences([]domain.Entry{debitEntry(cashID, "1000"), creditEntry(payableID, "500")}),
			check: func(t *testing.T, err error) {
				var imbalance *domain.ImbalanceError
				require.ErrorAs(t, err, &imbalance)
				assert.Contains(t, err.Error(), "1000")
				assert.Contains(t, err.Error(), "500")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			g := f.seed(&domain.TransactionGroup{ID: "draft-1", Status: domain.GroupStatusDraft, Entries: tt.entries})

			_, err := f.groupUseCase().ConfirmGroup(context.Background(), g.ID, testScope)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, domain.GroupStatusDraft, f.groups.Get(g.ID).Status)
			assert.Empty(t, f.outbox.Events())
		})
	}
}

func TestGroupUseCase_ConfirmTwice(t *testing.T) {
	f := newFixture(t)
	g := f.seed(confirmedSource("src-1", "100"))

	_, err := f.groupUseCase().ConfirmGroup(context.Background(), g.ID, testScope)
	assert.ErrorIs(t, err, domain.ErrAlreadyConfirmed)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestGroupUseCase_CreateGroup(t *testing.T) {
	tests := []struct {
		name    string
		input   usecase.CreateGroupInput
		setup   func(f *fixture)
		wantErr error
	}{
		{
			name:  "generated number",
			input: usecase.CreateGroupInput{Entries: pair(expenseID, cashID, "12.50")},
		},
		{
			name:    "unknown account",
			input:   usecase.CreateGroupInput{Entries: pair("acc-missing", cashID, "10")},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unbalanced",
			input:   usecase.CreateGroupInput{Entries: []domain.Entry{debitEntry(cashID, "10"), creditEntry(revenueID, "9")}},
			wantErr: domain.ErrValidation,
		},
		{
			name: "cancelled initial status",
			input: usecase.CreateGroupInput{
				Entries: pair(expenseID, cashID, "10"),
				Status:  domain.GroupStatusCancelled,
			},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "duplicate number",
			input:   usecase.CreateGroupInput{GroupNumber: "SEED-existing", Entries: pair(expenseID, cashID, "10")},
			setup:   func(f *fixture) { f.seed(confirmedSource("existing", "10")) },
			wantErr: domain.ErrDuplicateGroupNumber,
		},
		{
			name: "missing funding source",
			input: usecase.CreateGroupInput{
				Entries:              pair(expenseID, cashID, "10"),
				LinkedTransactionIDs: []string{"ghost"},
			},
			wantErr: domain.ErrReferentialIntegrity,
		},
		{
			name: "cancelled funding source",
			input: usecase.CreateGroupInput{
				Entries:              pair(expenseID, cashID, "10"),
				LinkedTransactionIDs: []string{"gone"},
			},
			setup: func(f *fixture) {
				src := confirmedSource("gone", "10")
				src.Status = domain.GroupStatusCancelled
				f.seed(src)
			},
			wantErr: domain.ErrReferentialIntegrity,
		},
	}

	numberPattern := regexp.MustCompile(`^TXN-\d{8}-\d{3}$`)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			g, err := f.groupUseCase().CreateGroup(context.Background(), tt.input, testScope)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, g)
				return
			}

			require.NoError(t, err)
			assert.Regexp(t, numberPattern, g.GroupNumber)
			assert.Equal(t, domain.TransactionTypeGeneral, g.TransactionType)
			assert.Equal(t, domain.FundingTypeOriginal, g.FundingType)
			assert.Equal(t, []int{1, 2}, []int{g.Entries[0].Sequence, g.Entries[1].Sequence})
			assert.NotNil(t, f.groups.Get(g.ID))
		})
	}
}

func TestGroupUseCase_CreatePurchaseCarriesPayable(t *testing.T) {
	f := newFixture(t)

	g, err := f.groupUseCase().CreateGroup(context.Background(), usecase.CreateGroupInput{
		TransactionType: domain.TransactionTypePurchase,
		Entries:         pair(inventoryID, payableID, "850"),
		Status:          domain.GroupStatusConfirmed,
	}, testScope)
	require.NoError(t, err)

	require.NotNil(t, g.PayableInfo)
	assert.True(t, g.PayableInfo.PayableAmount.Equal(amt("850")))
	assert.False(t, g.PayableInfo.IsPaidOff)
	assert.NotNil(t, g.ConfirmedAt)
}

func TestGroupUseCase_ConfirmRejectsOverAllocation(t *testing.T) {
	f := newFixture(t)
	src := f.seed(confirmedSource("src-1", "1000"))
	f.seed(&domain.TransactionGroup{
		ID:                  "consumer-1",
		Status:              domain.GroupStatusConfirmed,
		Entries:             withSequences(pair(expenseID, cashID, "800")),
		FundingSourceUsages: []domain.FundingSourceUsage{{SourceTransactionID: src.ID, UsedAmount: amt("800")}},
	})

	uc := f.groupUseCase()
	draft, err := uc.CreateGroup(context.Background(), usecase.CreateGroupInput{
		Entries:             pair(expenseID, cashID, "300"),
		FundingSourceUsages: []domain.FundingSourceUsage{{SourceTransactionID: src.ID, UsedAmount: amt("300")}},
	}, testScope)
	require.NoError(t, err)

	_, err = uc.ConfirmGroup(context.Background(), draft.ID, testScope)
	var insufficient *domain.InsufficientFundingError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Requested.Equal(amt("300")))
	assert.True(t, insufficient.Available.Equal(amt("200")))
	assert.Equal(t, domain.GroupStatusDraft, f.groups.Get(draft.ID).Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LifecycleErrors.WithLabelValues("confirm", "referential_integrity")))
}

func TestGroupUseCase_UpdateGroup(t *testing.T) {
	f := newFixture(t)
	uc := f.groupUseCase()
	ctx := context.Background()

	draft := f.seed(&domain.TransactionGroup{
		ID:      "draft-1",
		Status:  domain.GroupStatusDraft,
		Entries: withSequences(pair(expenseID, cashID, "40")),
	})

	description := "Corrected"
	updated, err := uc.UpdateGroup(ctx, draft.ID, usecase.UpdateGroupInput{
		Description: &description,
		Entries:     pair(expenseID, cashID, "45"),
	}, testScope)
	require.NoError(t, err)
	assert.Equal(t, "Corrected", updated.Description)
	assert.True(t, updated.TotalAmount.Equal(amt("45")))
	assert.Equal(t, int64(2), f.groups.Get(draft.ID).Version)

	confirmed := f.seed(confirmedSource("src-1", "10"))
	_, err = uc.UpdateGroup(ctx, confirmed.ID, usecase.UpdateGroupInput{Description: &description}, testScope)
	assert.ErrorIs(t, err, domain.ErrImmutableTarget)

	self := draft.ID
	_, err = uc.UpdateGroup(ctx, draft.ID, usecase.UpdateGroupInput{
		LinkedTransactionIDs: &[]string{self},
	}, testScope)
	assert.ErrorIs(t, err, domain.ErrSelfReference)
}

func TestGroupUseCase_UpdateDetectsConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	draft := f.seed(&domain.TransactionGroup{
		ID:      "draft-1",
		Status:  domain.GroupStatusDraft,
		Entries: withSequences(pair(expenseID, cashID, "40")),
	})

	stale := f.groups.Get(draft.ID)
	f.groups.GetByIDFunc = func(ctx context.Context, tx usecase.Transaction, scope domain.Scope, id string) (*domain.TransactionGroup, error) {
		return stale, nil
	}
	moved := f.groups.Get(draft.ID)
	moved.Version = 5
	f.groups.Put(moved)

	description := "late"
	_, err := f.groupUseCase().UpdateGroup(context.Background(), draft.ID, usecase.UpdateGroupInput{Description: &description}, testScope)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestGroupUseCase_ProRataUsage(t *testing.T) {
	f := newFixture(t)
	f.seed(confirmedSource("src-1", "600"))
	f.seed(confirmedSource("src-2", "300"))
	f.seed(&domain.TransactionGroup{
		ID:                   "legacy-1",
		Status:               domain.GroupStatusConfirmed,
		Entries:              withSequences(pair(expenseID, cashID, "450")),
		LinkedTransactionIDs: []string{"src-1", "src-2"},
	})

	uc := f.groupUseCase()
	first, err := uc.CalculateBalance(context.Background(), "src-1", testScope)
	require.NoError(t, err)
	second, err := uc.CalculateBalance(context.Background(), "src-2", testScope)
	require.NoError(t, err)

	assert.True(t, first.UsedAmount.Equal(amt("300")), "got %s", first.UsedAmount)
	assert.True(t, second.UsedAmount.Equal(amt("150")), "got %s", second.UsedAmount)
	for _, u := range []*usecase.FundingUsage{first, second} {
		assert.True(t, u.UsedAmount.Add(u.RemainingAmount).Equal(u.TotalAmount))
	}
}

func TestGroupUseCase_BatchCalculateBalance(t *testing.T) {
	f := newFixture(t)
	f.seed(confirmedSource("src-1", "100"))
	f.seed(&domain.TransactionGroup{ID: "draft-1", Status: domain.GroupStatusDraft, Entries: withSequences(pair(expenseID, cashID, "5"))})

	results, err := f.groupUseCase().BatchCalculateBalance(context.Background(), []string{"src-1", "missing", "draft-1"}, testScope)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.True(t, results[0].Balance.RemainingAmount.Equal(amt("100")))
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	assert.False(t, results[2].Success)
	assert.Contains(t, results[2].Error, "confirmed")
}

func TestGroupUseCase_ListGroups(t *testing.T) {
	f := newFixture(t)
	uc := f.groupUseCase()
	ctx := context.Background()

	for _, desc := range []string{"Vaccine restock", "Rent", "Vaccine fridge"} {
		_, err := uc.CreateGroup(ctx, usecase.CreateGroupInput{Description: desc, Entries: pair(expenseID, cashID, "10")}, testScope)
		require.NoError(t, err)
	}

	page, err := uc.ListGroups(ctx, testScope, usecase.GroupFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.Page)

	page, err = uc.ListGroups(ctx, testScope, usecase.GroupFilter{Search: "vaccine"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 20, page.Limit)

	other := domain.Scope{ActorID: "someone-else"}
	page, err = uc.ListGroups(ctx, other, usecase.GroupFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = uc.ListGroups(ctx, testScope, usecase.GroupFilter{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGroupUseCase_RequiresActor(t *testing.T) {
	f := newFixture(t)
	_, err := f.groupUseCase().GetGroup(context.Background(), "any", domain.Scope{})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}
