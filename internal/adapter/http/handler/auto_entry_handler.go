package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pharmledger/internal/adapter/http/dto"
	"github.com/iho/pharmledger/internal/domain"
)

// AutoEntryService defines the behavior needed by AutoEntryHandler.
type AutoEntryService interface {
	HandleExternalDocumentCompletion(ctx context.Context, doc *domain.ExternalDocument, scope domain.Scope) (string, error)
	ReverseExternalDocument(ctx context.Context, documentID string, scope domain.Scope) (bool, error)
}

// AutoEntryHandler turns external document lifecycle events into ledger entries.
type AutoEntryHandler struct {
	autoEntryUC AutoEntryService
}

// NewAutoEntryHandler creates a new AutoEntryHandler.
func NewAutoEntryHandler(autoEntryUC AutoEntryService) *AutoEntryHandler {
	return &AutoEntryHandler{autoEntryUC: autoEntryUC}
}

// Complete books a completed document. An empty transaction ID means the
// document was skipped.
func (h *AutoEntryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req dto.ExternalDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ID = id
	}

	scope := scopeFrom(r)
	txID, err := h.autoEntryUC.HandleExternalDocumentCompletion(r.Context(), req.ToDomain(scope.OrganizationID), scope)
	if err != nil {
		respondError(w, err)
		return
	}

	status := http.StatusOK
	if txID != "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.AutoEntryResponse{DocumentID: req.ID, TransactionID: txID, Created: txID != ""})
}

// Reverse removes the draft group created for a document.
func (h *AutoEntryHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := h.autoEntryUC.ReverseExternalDocument(r.Context(), id, scopeFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"documentId": id, "reversed": removed})
}
