package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/pharmledger/internal/adapter/http/dto"
	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

type fundingServiceStub struct {
	usageFn     func(ctx context.Context, sourceID string, scope domain.Scope) (*usecase.FundingUsage, error)
	availableFn func(ctx context.Context, scope domain.Scope, accountID string) ([]*usecase.FundingUsage, error)
	allocateFn  func(ctx context.Context, targetID string, allocations []usecase.AllocationInput, scope domain.Scope) (*domain.TransactionGroup, error)
	validateFn  func(ctx context.Context, id string, scope domain.Scope) (*usecase.AllocationReport, error)
	flowFn      func(ctx context.Context, scope domain.Scope, from, to *time.Time) (*usecase.FlowAnalysis, error)
}

func (s *fundingServiceStub) TrackFundingUsage(ctx context.Context, sourceID string, scope domain.Scope) (*usecase.FundingUsage, error) {
	return s.usageFn(ctx, sourceID, scope)
}

func (s *fundingServiceStub) GetAvailableFundingSources(ctx context.Context, scope domain.Scope, accountID string) ([]*usecase.FundingUsage, error) {
	return s.availableFn(ctx, scope, accountID)
}

func (s *fundingServiceStub) CreateFundingAllocation(ctx context.Context, targetID string, allocations []usecase.AllocationInput, scope domain.Scope) (*domain.TransactionGroup, error) {
	return s.allocateFn(ctx, targetID, allocations, scope)
}

func (s *fundingServiceStub) ValidateFundingAllocation(ctx context.Context, id string, scope domain.Scope) (*usecase.AllocationReport, error) {
	return s.validateFn(ctx, id, scope)
}

func (s *fundingServiceStub) GetFundingFlowAnalysis(ctx context.Context, scope domain.Scope, from, to *time.Time) (*usecase.FlowAnalysis, error) {
	return s.flowFn(ctx, scope, from, to)
}

func TestFundingHandler_Usage_NotFound(t *testing.T) {
	h := NewFundingHandler(&fundingServiceStub{
		usageFn: func(ctx context.Context, sourceID string, scope domain.Scope) (*usecase.FundingUsage, error) {
			return nil, domain.ErrGroupNotFound
		},
	})

	req := setChiURLParam(withScope(httptest.NewRequest(http.MethodGet, "/funding/sources/x/usage", nil)), "id", "x")
	rec := httptest.NewRecorder()

	h.Usage(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFundingHandler_Available(t *testing.T) {
	var gotAccount string
	h := NewFundingHandler(&fundingServiceStub{
		availableFn: func(ctx context.Context, scope domain.Scope, accountID string) ([]*usecase.FundingUsage, error) {
			gotAccount = accountID
			return []*usecase.FundingUsage{{SourceTransactionID: "src-1", RemainingAmount: decimal.NewFromInt(40)}}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Available(rec, withScope(httptest.NewRequest(http.MethodGet, "/funding/sources?accountId=acc-cash", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-cash", gotAccount)

	var resp struct {
		Sources []dto.FundingUsageResponse `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "src-1", resp.Sources[0].SourceTransactionID)
}

func TestFundingHandler_Allocate_Insufficient(t *testing.T) {
	var got []usecase.AllocationInput
	h := NewFundingHandler(&fundingServiceStub{
		allocateFn: func(ctx context.Context, targetID string, allocations []usecase.AllocationInput, scope domain.Scope) (*domain.TransactionGroup, error) {
			got = allocations
			return nil, &domain.InsufficientFundingError{
				SourceID:  "src-1",
				Requested: decimal.NewFromInt(80),
				Available: decimal.NewFromInt(40),
			}
		},
	})

	body := `{"allocations":[{"sourceTransactionId":"src-1","amount":"80","entryIndex":0}]}`
	req := setChiURLParam(withScope(httptest.NewRequest(http.MethodPost, "/groups/grp-1/allocations", bytes.NewBufferString(body))), "id", "grp-1")
	rec := httptest.NewRecorder()

	h.Allocate(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(80)))

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "40", resp.Details["availableAmount"])
}

func TestFundingHandler_Validate(t *testing.T) {
	h := NewFundingHandler(&fundingServiceStub{
		validateFn: func(ctx context.Context, id string, scope domain.Scope) (*usecase.AllocationReport, error) {
			return &usecase.AllocationReport{TransactionID: id, IsValid: true}, nil
		},
	})

	req := setChiURLParam(withScope(httptest.NewRequest(http.MethodGet, "/groups/grp-1/funding/validate", nil)), "id", "grp-1")
	rec := httptest.NewRecorder()

	h.Validate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"transactionId":"grp-1","isValid":true,"issues":[],"recommendations":[]}`, rec.Body.String())
}

func TestFundingHandler_Flow(t *testing.T) {
	var gotFrom, gotTo *time.Time
	h := NewFundingHandler(&fundingServiceStub{
		flowFn: func(ctx context.Context, scope domain.Scope, from, to *time.Time) (*usecase.FlowAnalysis, error) {
			gotFrom, gotTo = from, to
			return &usecase.FlowAnalysis{
				TotalFundingAmount: decimal.NewFromInt(100),
				TotalUsedAmount:    decimal.NewFromInt(25),
				TotalAvailable:     decimal.NewFromInt(75),
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Flow(rec, withScope(httptest.NewRequest(http.MethodGet, "/funding/flow?dateFrom=2024-01-01&dateTo=2024-01-31", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotFrom)
	require.NotNil(t, gotTo)
	assert.Equal(t, time.January, gotTo.Month())
	assert.Equal(t, 31, gotTo.Day())
	assert.True(t, gotTo.After(time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)), "dateTo covers the whole day, got %v", gotTo)

	var resp dto.FlowAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.TotalAvailable.Equal(decimal.NewFromInt(75)))
	assert.NotNil(t, resp.Sources)
}
