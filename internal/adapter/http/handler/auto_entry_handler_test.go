package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/pharmledger/internal/domain"
)

type autoEntryServiceStub struct {
	completeFn func(ctx context.Context, doc *domain.ExternalDocument, scope domain.Scope) (string, error)
	reverseFn  func(ctx context.Context, documentID string, scope domain.Scope) (bool, error)
}

func (s *autoEntryServiceStub) HandleExternalDocumentCompletion(ctx context.Context, doc *domain.ExternalDocument, scope domain.Scope) (string, error) {
	return s.completeFn(ctx, doc, scope)
}

func (s *autoEntryServiceStub) ReverseExternalDocument(ctx context.Context, documentID string, scope domain.Scope) (bool, error) {
	return s.reverseFn(ctx, documentID, scope)
}

const completedDocument = `{"status":"completed","totalAmount":"240.00","invoiceNumber":"INV-9","candidateAccountIds":["acc-inv","acc-ap"]}`

func TestAutoEntryHandler_Complete_Created(t *testing.T) {
	var got *domain.ExternalDocument
	h := NewAutoEntryHandler(&autoEntryServiceStub{
		completeFn: func(ctx context.Context, doc *domain.ExternalDocument, scope domain.Scope) (string, error) {
			got = doc
			return "grp-9", nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/external-documents/po-9/complete", bytes.NewBufferString(completedDocument))
	req = setChiURLParam(withScope(req), "id", "po-9")
	rec := httptest.NewRecorder()

	h.Complete(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, "po-9", got.ID)
	assert.Equal(t, "org-1", got.OrganizationID)
	assert.Equal(t, domain.ExternalDocumentCompleted, got.Status)
	assert.JSONEq(t, `{"documentId":"po-9","transactionId":"grp-9","created":true}`, rec.Body.String())
}

func TestAutoEntryHandler_Complete_Skipped(t *testing.T) {
	h := NewAutoEntryHandler(&autoEntryServiceStub{
		completeFn: func(ctx context.Context, doc *domain.ExternalDocument, scope domain.Scope) (string, error) {
			return "", nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/external-documents/po-9/complete", bytes.NewBufferString(completedDocument))
	req = setChiURLParam(withScope(req), "id", "po-9")
	rec := httptest.NewRecorder()

	h.Complete(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"documentId":"po-9","created":false}`, rec.Body.String())
}

func TestAutoEntryHandler_Complete_Ambiguous(t *testing.T) {
	h := NewAutoEntryHandler(&autoEntryServiceStub{
		completeFn: func(ctx context.Context, doc *domain.ExternalDocument, scope domain.Scope) (string, error) {
			return "", &domain.AmbiguousEntryTypeError{Present: []domain.AccountType{domain.AccountTypeAsset}}
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/external-documents/po-9/complete", bytes.NewBufferString(completedDocument))
	req = setChiURLParam(withScope(req), "id", "po-9")
	rec := httptest.NewRecorder()

	h.Complete(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"presentTypes":["asset"]`)
}

func TestAutoEntryHandler_Reverse(t *testing.T) {
	h := NewAutoEntryHandler(&autoEntryServiceStub{
		reverseFn: func(ctx context.Context, documentID string, scope domain.Scope) (bool, error) {
			return documentID == "po-9", nil
		},
	})

	req := setChiURLParam(withScope(httptest.NewRequest(http.MethodPost, "/external-documents/po-9/reverse", nil)), "id", "po-9")
	rec := httptest.NewRecorder()

	h.Reverse(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"documentId":"po-9","reversed":true}`, rec.Body.String())
}
