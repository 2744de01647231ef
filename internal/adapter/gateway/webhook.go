package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

// WebhookGateway implements usecase.ExternalDocumentGateway against the
// document service's HTTP API.
type WebhookGateway struct {
	baseURL    string
	client     *http.Client
	logger     zerolog.Logger
	maxRetries uint64
	interval   time.Duration
}

// WebhookConfig configures a WebhookGateway.
type WebhookConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint64
	Logger     zerolog.Logger
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// NewWebhookGateway creates a new WebhookGateway.
func NewWebhookGateway(cfg WebhookConfig) *WebhookGateway {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &WebhookGateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     client,
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		interval:   100 * time.Millisecond,
	}
}

type linkRequest struct {
	TransactionID string `json:"transactionId"`
}

type payableStatusRequest struct {
	TransactionID   string `json:"transactionId"`
	PayableAmount   string `json:"payableAmount"`
	TotalPaidAmount string `json:"totalPaidAmount"`
	IsPaidOff       bool   `json:"isPaidOff"`
}

// LinkTransaction records transactionID on the document.
func (g *WebhookGateway) LinkTransaction(ctx context.Context, documentID, transactionID string) error {
	path := fmt.Sprintf("/documents/%s/transactions", url.PathEscape(documentID))
	return g.send(ctx, http.MethodPost, path, linkRequest{TransactionID: transactionID})
}

// UnlinkTransaction removes transactionID from the document.
func (g *WebhookGateway) UnlinkTransaction(ctx context.Context, documentID, transactionID string) error {
	path := fmt.Sprintf("/documents/%s/transactions/%s", url.PathEscape(documentID), url.PathEscape(transactionID))
	return g.send(ctx, http.MethodDelete, path, nil)
}

// NotifyPayableStatus pushes the settlement state of a payable.
func (g *WebhookGateway) NotifyPayableStatus(ctx context.Context, update usecase.PayableStatusUpdate) error {
	path := fmt.Sprintf("/documents/%s/payable-status", url.PathEscape(update.DocumentID))
	return g.send(ctx, http.MethodPut, path, payableStatusRequest{
		TransactionID:   update.TransactionID,
		PayableAmount:   update.PayableAmount,
		TotalPaidAmount: update.TotalPaidAmount,
		IsPaidOff:       update.IsPaidOff,
	})
}

// send retries network failures and 5xx responses. 4xx responses are final.
func (g *WebhookGateway) send(ctx context.Context, method, path string, body any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.interval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, g.maxRetries), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := g.do(ctx, method, path, payload)
		if err == nil {
			return nil
		}
		if se, ok := err.(*StatusError); ok && se.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		g.logger.Debug().Err(err).
			Int("attempt", attempt).
			Str("path", path).
			Msg("document service call failed")
		return err
	}, policy)
}

func (g *WebhookGateway) do(ctx context.Context, method, path string, payload []byte) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if scope, ok := domain.ScopeFromContext(ctx); ok {
		req.Header.Set("X-Actor-ID", scope.ActorID)
		if scope.OrganizationID != "" {
			req.Header.Set("X-Organization-ID", scope.OrganizationID)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(msg)),
	}
}
