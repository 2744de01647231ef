package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pharmledger/internal/adapter/http/dto"
	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

// PaymentService defines the behavior needed by PaymentHandler.
type PaymentService interface {
	CreatePaymentTransaction(ctx context.Context, input usecase.CreatePaymentInput, scope domain.Scope) (*domain.TransactionGroup, error)
	CheckPayableStatus(ctx context.Context, documentID string, scope domain.Scope) (*usecase.PayableStatus, error)
	BatchCheckPayableStatus(ctx context.Context, documentIDs []string, scope domain.Scope) (map[string]bool, error)
}

// PaymentHandler handles payment and payable-status HTTP requests.
type PaymentHandler struct {
	paymentUC PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentUC PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentUC: paymentUC}
}

// Create records a payment settling one or more payables.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.paymentUC.CreatePaymentTransaction(r.Context(), req.ToUseCaseInput(), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.GroupFromDomain(group))
}

// PayableStatus reports the settlement of the payable created for a document.
func (h *PaymentHandler) PayableStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.paymentUC.CheckPayableStatus(r.Context(), chi.URLParam(r, "documentId"), scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PayableStatusFromUseCase(status))
}

// BatchStatus reports, per document, whether any payment has been recorded.
func (h *PaymentHandler) BatchStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchPayableStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	statuses, err := h.paymentUC.BatchCheckPayableStatus(r.Context(), req.DocumentIDs, scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses})
}
