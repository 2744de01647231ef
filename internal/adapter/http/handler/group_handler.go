package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pharmledger/internal/adapter/http/dto"
	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

// GroupService defines the behavior needed by GroupHandler.
type GroupService interface {
	CreateGroup(ctx context.Context, input usecase.CreateGroupInput, scope domain.Scope) (*domain.TransactionGroup, error)
	UpdateGroup(ctx context.Context, id string, input usecase.UpdateGroupInput, scope domain.Scope) (*domain.TransactionGroup, error)
	ConfirmGroup(ctx context.Context, id string, scope domain.Scope) (*domain.TransactionGroup, error)
	CancelGroup(ctx context.Context, id string, reason string, scope domain.Scope) (*domain.TransactionGroup, error)
	GetGroup(ctx context.Context, id string, scope domain.Scope) (*domain.TransactionGroup, error)
	ListGroups(ctx context.Context, scope domain.Scope, filter usecase.GroupFilter) (*usecase.GroupPage, error)
	CalculateBalance(ctx context.Context, id string, scope domain.Scope) (*usecase.FundingUsage, error)
	BatchCalculateBalance(ctx context.Context, ids []string, scope domain.Scope) ([]usecase.BalanceResult, error)
}

// GroupHandler handles transaction group HTTP requests.
type GroupHandler struct {
	groupUC GroupService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupUC GroupService) *GroupHandler {
	return &GroupHandler{groupUC: groupUC}
}

// Create stores a new draft (or directly confirmed) group.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupUC.CreateGroup(r.Context(), req.ToUseCaseInput(), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.GroupFromDomain(group))
}

// Get retrieves a group by ID.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.groupUC.GetGroup(r.Context(), chi.URLParam(r, "id"), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(group))
}

// List lists groups newest first.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
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

	q := r.URL.Query()
	page, err := h.groupUC.ListGroups(r.Context(), scopeFrom(r), usecase.GroupFilter{
		Status:          domain.GroupStatus(q.Get("status")),
		TransactionType: domain.TransactionType(q.Get("transactionType")),
		AccountID:       q.Get("accountId"),
		DateFrom:        from,
		DateTo:          to,
		Search:          q.Get("search"),
		Page:            parseIntQuery(r, "page", 1),
		Limit:           parseIntQuery(r, "limit", 20),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupPageFromUseCase(page))
}

// Update patches a draft group.
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupUC.UpdateGroup(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput(), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(group))
}

// Confirm moves a draft group to confirmed.
func (h *GroupHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	group, err := h.groupUC.ConfirmGroup(r.Context(), chi.URLParam(r, "id"), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(group))
}

// Cancel cancels a group. The body is optional.
func (h *GroupHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelGroupRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupUC.CancelGroup(r.Context(), chi.URLParam(r, "id"), req.Reason, scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(group))
}

// Balance reports how much of a confirmed group has been drawn on.
func (h *GroupHandler) Balance(w http.ResponseWriter, r *http.Request) {
	usage, err := h.groupUC.CalculateBalance(r.Context(), chi.URLParam(r, "id"), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FundingUsageFromUseCase(usage))
}

// BatchBalance reports balances for several groups; failures are per item.
func (h *GroupHandler) BatchBalance(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchBalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	results, err := h.groupUC.BatchCalculateBalance(r.Context(), req.TransactionIDs, scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": dto.BalanceResultsFromUseCase(results)})
}
