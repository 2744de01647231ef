package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/iho/pharmledger/internal/adapter/http/dto"
	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

// exposeInternalErrors switches on persistence error detail in responses.
var exposeInternalErrors atomic.Bool

// SetDevelopmentMode controls whether internal error detail reaches clients.
func SetDevelopmentMode(enabled bool) {
	exposeInternalErrors.Store(enabled)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// respondError maps err through the ledger taxonomy and writes it.
func respondError(w http.ResponseWriter, err error) {
	status := mapDomainError(err)
	resp := dto.ErrorResponse{
		Error:   errorCode(err),
		Message: err.Error(),
		Details: errorDetails(err),
	}
	if status == http.StatusInternalServerError && !exposeInternalErrors.Load() {
		resp.Message = "internal error"
		resp.Details = nil
	}
	writeJSON(w, status, resp)
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrReferentialIntegrity),
		errors.Is(err, usecase.ErrInconsistentLedger):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAmbiguousEntryType),
		errors.Is(err, domain.ErrMissingCounterAccount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return "unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence_failure"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrReferentialIntegrity):
		return "referential_integrity"
	case errors.Is(err, usecase.ErrInconsistentLedger):
		return "inconsistent_ledger"
	case errors.Is(err, domain.ErrAmbiguousEntryType):
		return "ambiguous_entry_type"
	case errors.Is(err, domain.ErrMissingCounterAccount):
		return "missing_counter_account"
	case errors.Is(err, domain.ErrValidation):
		return "validation_error"
	default:
		return "internal_error"
	}
}

// errorDetails extracts the quantities carried by typed ledger errors.
func errorDetails(err error) map[string]any {
	var (
		imbalance    *domain.ImbalanceError
		insufficient *domain.InsufficientFundingError
		referenced   *domain.ReferencedError
		overpayment  *domain.OverpaymentError
		ambiguous    *domain.AmbiguousEntryTypeError
		entry        *domain.EntryError
	)
	switch {
	case errors.As(err, &imbalance):
		return map[string]any{
			"debitTotal":  imbalance.Debit.String(),
			"creditTotal": imbalance.Credit.String(),
			"difference":  imbalance.Debit.Sub(imbalance.Credit).Abs().String(),
		}
	case errors.As(err, &insufficient):
		return map[string]any{
			"sourceTransactionId": insufficient.SourceID,
			"requestedAmount":     insufficient.Requested.String(),
			"availableAmount":     insufficient.Available.String(),
		}
	case errors.As(err, &referenced):
		return map[string]any{
			"transactionId":   referenced.GroupID,
			"referencedCount": referenced.Count,
		}
	case errors.As(err, &overpayment):
		return map[string]any{
			"payableTransactionId": overpayment.PayableID,
			"requestedAmount":      overpayment.Requested.String(),
			"remainingAmount":      overpayment.Remaining.String(),
		}
	case errors.As(err, &ambiguous):
		present := make([]string, len(ambiguous.Present))
		for i, t := range ambiguous.Present {
			present[i] = string(t)
		}
		return map[string]any{"presentTypes": present}
	case errors.As(err, &entry):
		return map[string]any{"entryIndex": entry.Index, "reason": entry.Reason}
	}
	return nil
}

// decodeJSON decodes the request body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

// scopeFrom returns the scope placed by the auth middleware. A missing
// scope is empty and rejected by the use case as unauthorized.
func scopeFrom(r *http.Request) domain.Scope {
	scope, _ := domain.ScopeFromContext(r.Context())
	return scope
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseDateQuery accepts YYYY-MM-DD or RFC 3339. A bare date is the start of
// that day.
func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	return parseDate(r, key, false)
}

// parseDateEndQuery is parseDateQuery for inclusive upper bounds: a bare date
// covers the whole day.
func parseDateEndQuery(r *http.Request, key string) (*time.Time, error) {
	return parseDate(r, key, true)
}

func parseDate(r *http.Request, key string, endOfDay bool) (*time.Time, error) {
	val := strings.TrimSpace(r.URL.Query().Get(key))
	if val == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", val); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, errors.New(key + " must be YYYY-MM-DD or RFC 3339")
	}
	return &t, nil
}

func parseBoolQuery(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}
