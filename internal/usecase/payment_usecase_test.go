package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

// seedPayable stores a confirmed 1000 purchase on credit with 600 already paid.
func seedPayable(f *fixture) *domain.TransactionGroup {
	payable := f.seed(&domain.TransactionGroup{
		ID:                 "payable-1",
		Status:             domain.GroupStatusConfirmed,
		TransactionType:    domain.TransactionTypePurchase,
		ExternalDocumentID: "po-1",
		Entries:            withSequences(pair(inventoryID, payableID, "1000")),
		PayableInfo: &domain.PayableInfo{
			PayableAmount:   amt("1000"),
			TotalPaidAmount: amt("600"),
		},
	})
	f.seed(&domain.TransactionGroup{
		ID:              "payment-0",
		Status:          domain.GroupStatusConfirmed,
		TransactionType: domain.TransactionTypePayment,
		TransactionDate: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Entries:         withSequences(pair(payableID, cashID, "600")),
		PaymentInfo: &domain.PaymentInfo{PayableTransactions: []domain.PayableAllocation{
			{PayableTransactionID: payable.ID, Amount: amt("600")},
		}},
	})
	return payable
}

func paymentInput(amount string) usecase.CreatePaymentInput {
	return usecase.CreatePaymentInput{
		Description: "Supplier settlement",
		Entries:     pair(payableID, cashID, amount),
		Payables:    []domain.PayableAllocation{{PayableTransactionID: "payable-1", Amount: amt(amount)}},
		Status:      domain.GroupStatusConfirmed,
	}
}

func TestPaymentUseCase_PaysExactlyTheRemainder(t *testing.T) {
	f := newFixture(t)
	seedPayable(f)
	uc := f.paymentUseCase()
	ctx := context.Background()

	var updates []usecase.PayableStatusUpdate
	f.gateway.EXPECT().
		NotifyPayableStatus(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u usecase.PayableStatusUpdate) error {
			updates = append(updates, u)
			return errors.New("documents service unavailable")
		}).
		Times(2)

	_, err := uc.CreatePaymentTransaction(ctx, paymentInput("400.01"), testScope)
	var overpayment *domain.OverpaymentError
	require.ErrorAs(t, err, &overpayment)
	assert.ErrorIs(t, err, domain.ErrReferentialIntegrity)
	assert.True(t, overpayment.Remaining.Equal(amt("400")))
	assert.True(t, overpayment.Requested.Equal(amt("400.01")))

	payment, err := uc.CreatePaymentTransaction(ctx, paymentInput("400"), testScope)
	require.NoError(t, err, "a failing notification never fails the payment")
	assert.Equal(t, domain.TransactionTypePayment, payment.TransactionType)
	assert.Equal(t, []string{"payable-1"}, payment.PayableRefs())

	payable := f.groups.Get("payable-1")
	require.NotNil(t, payable.PayableInfo)
	assert.True(t, payable.PayableInfo.TotalPaidAmount.Equal(amt("1000")))
	assert.True(t, payable.PayableInfo.IsPaidOff)
	assert.Len(t, payable.PayableInfo.PaymentHistory, 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.PayablesPaidOff))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.NotificationsFailed.WithLabelValues("payable_status")))

	// Cancelling the payment reopens the payable.
	_, err = f.groupUseCase().CancelGroup(ctx, payment.ID, "bounced", testScope)
	require.NoError(t, err)

	payable = f.groups.Get("payable-1")
	assert.True(t, payable.PayableInfo.TotalPaidAmount.Equal(amt("600")))
	assert.False(t, payable.PayableInfo.IsPaidOff)

	require.Len(t, updates, 2)
	assert.Equal(t, "po-1", updates[0].DocumentID)
	assert.True(t, updates[0].IsPaidOff)
	assert.Equal(t, "1000", updates[0].TotalPaidAmount)
	assert.False(t, updates[1].IsPaidOff)
	assert.Equal(t, "600", updates[1].TotalPaidAmount)
}

func TestPaymentUseCase_RejectsInvalidPayables(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		input   usecase.CreatePaymentInput
		wantErr error
	}{
		{
			name:    "no payables",
			input:   usecase.CreatePaymentInput{Entries: pair(payableID, cashID, "10")},
			wantErr: domain.ErrValidation,
		},
		{
			name: "unknown payable",
			input: usecase.CreatePaymentInput{
				Entries:  pair(payableID, cashID, "10"),
				Payables: []domain.PayableAllocation{{PayableTransactionID: "ghost", Amount: amt("10")}},
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "draft payable",
			setup: func(f *fixture) {
				f.seed(&domain.TransactionGroup{
					ID:              "draft-payable",
					Status:          domain.GroupStatusDraft,
					TransactionType: domain.TransactionTypePurchase,
					Entries:         withSequences(pair(inventoryID, payableID, "100")),
				})
			},
			input: usecase.CreatePaymentInput{
				Entries:  pair(payableID, cashID, "10"),
				Payables: []domain.PayableAllocation{{PayableTransactionID: "draft-payable", Amount: amt("10")}},
			},
			wantErr: domain.ErrInvalidState,
		},
		{
			name: "paying a payment",
			setup: func(f *fixture) {
				seedPayable(f)
			},
			input: usecase.CreatePaymentInput{
				Entries:  pair(payableID, cashID, "10"),
				Payables: []domain.PayableAllocation{{PayableTransactionID: "payment-0", Amount: amt("10")}},
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "nothing owed",
			setup: func(f *fixture) {
				f.seed(confirmedSource("cash-purchase", "100"))
			},
			input: usecase.CreatePaymentInput{
				Entries:  pair(payableID, cashID, "10"),
				Payables: []domain.PayableAllocation{{PayableTransactionID: "cash-purchase", Amount: amt("10")}},
			},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			before := f.groups.Len()

			_, err := f.paymentUseCase().CreatePaymentTransaction(context.Background(), tt.input, testScope)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.groups.Len())
		})
	}
}

func TestPaymentUseCase_DuplicateAllocationsAreMerged(t *testing.T) {
	f := newFixture(t)
	seedPayable(f)
	f.gateway.EXPECT().NotifyPayableStatus(gomock.Any(), gomock.Any()).Return(nil)

	input := paymentInput("300")
	input.Payables = []domain.PayableAllocation{
		{PayableTransactionID: "payable-1", Amount: amt("150")},
		{PayableTransactionID: "payable-1", Amount: amt("150")},
	}

	payment, err := f.paymentUseCase().CreatePaymentTransaction(context.Background(), input, testScope)
	require.NoError(t, err)
	require.Len(t, payment.PaymentInfo.PayableTransactions, 1)
	assert.True(t, payment.PaymentTo("payable-1").Equal(amt("300")))
	assert.Equal(t, []string{domain.EventTypePaymentCreated}, f.outbox.EventTypes())
}

func TestPaymentUseCase_CheckPayableStatus(t *testing.T) {
	f := newFixture(t)
	seedPayable(f)
	uc := f.paymentUseCase()

	status, err := uc.CheckPayableStatus(context.Background(), "po-1", testScope)
	require.NoError(t, err)
	assert.Equal(t, "payable-1", status.TransactionID)
	assert.True(t, status.PayableAmount.Equal(amt("1000")))
	assert.True(t, status.TotalPaidAmount.Equal(amt("600")))
	assert.True(t, status.RemainingAmount.Equal(amt("400")))
	assert.False(t, status.IsPaidOff)
	require.Len(t, status.Payments, 1)
	assert.Equal(t, "payment-0", status.Payments[0].PaymentTransactionID)

	_, err = uc.CheckPayableStatus(context.Background(), "po-unknown", testScope)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentUseCase_BatchCheckPayableStatus(t *testing.T) {
	f := newFixture(t)
	seedPayable(f)
	f.seed(&domain.TransactionGroup{
		ID:                 "payable-2",
		Status:             domain.GroupStatusConfirmed,
		TransactionType:    domain.TransactionTypePurchase,
		ExternalDocumentID: "po-2",
		Entries:            withSequences(pair(inventoryID, payableID, "50")),
	})

	result, err := f.paymentUseCase().BatchCheckPayableStatus(context.Background(), []string{"po-1", "po-2", "po-missing"}, testScope)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"po-1": true, "po-2": false, "po-missing": false}, result)
}
