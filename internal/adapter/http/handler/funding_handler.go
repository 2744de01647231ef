package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pharmledger/internal/adapter/http/dto"
	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

// FundingService defines the behavior needed by FundingHandler.
type FundingService interface {
	TrackFundingUsage(ctx context.Context, sourceID string, scope domain.Scope) (*usecase.FundingUsage, error)
	GetAvailableFundingSources(ctx context.Context, scope domain.Scope, accountID string) ([]*usecase.FundingUsage, error)
	CreateFundingAllocation(ctx context.Context, targetID string, allocations []usecase.AllocationInput, scope domain.Scope) (*domain.TransactionGroup, error)
	ValidateFundingAllocation(ctx context.Context, id string, scope domain.Scope) (*usecase.AllocationReport, error)
	GetFundingFlowAnalysis(ctx context.Context, scope domain.Scope, from, to *time.Time) (*usecase.FlowAnalysis, error)
}

// FundingHandler handles funding-source HTTP requests.
type FundingHandler struct {
	fundingUC FundingService
}

// NewFundingHandler creates a new FundingHandler.
func NewFundingHandler(fundingUC FundingService) *FundingHandler {
	return &FundingHandler{fundingUC: fundingUC}
}

// Usage reports consumption of one funding source.
func (h *FundingHandler) Usage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.fundingUC.TrackFundingUsage(r.Context(), chi.URLParam(r, "id"), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FundingUsageFromUseCase(usage))
}

// Available lists confirmed sources with remaining funds.
func (h *FundingHandler) Available(w http.ResponseWriter, r *http.Request) {
	sources, err := h.fundingUC.GetAvailableFundingSources(r.Context(), scopeFrom(r), r.URL.Query().Get("accountId"))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sources": dto.FundingUsagesFromUseCase(sources)})
}

// Allocate records funding draws on a draft group.
func (h *FundingHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAllocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.fundingUC.CreateFundingAllocation(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput(), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(group))
}

// Validate runs a diagnostic pass over a group's funding without changing it.
func (h *FundingHandler) Validate(w http.ResponseWriter, r *http.Request) {
	report, err := h.fundingUC.ValidateFundingAllocation(r.Context(), chi.URLParam(r, "id"), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AllocationReportFromUseCase(report))
}

// Flow aggregates funding utilization, optionally within a date range.
func (h *FundingHandler) Flow(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateQuery(r, "dateFrom")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}
	to, err := parseDateEndQuery(r, "dateTo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}

	analysis, err := h.fundingUC.GetFundingFlowAnalysis(r.Context(), scopeFrom(r), from, to)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FlowAnalysisFromUseCase(analysis))
}
