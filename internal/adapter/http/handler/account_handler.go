package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pharmledger/internal/adapter/http/dto"
	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput, scope domain.Scope) (*domain.Account, error)
	GetAccount(ctx context.Context, id string, scope domain.Scope) (*domain.Account, error)
	ListAccounts(ctx context.Context, scope domain.Scope, filter usecase.AccountFilter) ([]*domain.Account, error)
	UpdateAccount(ctx context.Context, id string, input usecase.UpdateAccountInput, scope domain.Scope) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, id string, scope domain.Scope) (*domain.Account, error)
}

// AccountHandler handles chart-of-accounts HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), req.ToUseCaseInput(), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), id, scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts ordered by code, optionally by type and activity.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := usecase.AccountFilter{
		AccountType: domain.AccountType(r.URL.Query().Get("accountType")),
		ActiveOnly:  parseBoolQuery(r, "activeOnly"),
	}

	accounts, err := h.accountUC.ListAccounts(r.Context(), scopeFrom(r), filter)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    len(accounts),
	})
}

// Update applies a partial update to an account.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountUC.UpdateAccount(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput(), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Deactivate marks an account inactive.
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountUC.DeactivateAccount(r.Context(), chi.URLParam(r, "id"), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}
