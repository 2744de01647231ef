package gateway

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/pharmledger/internal/usecase"
)

// NoopGateway is used when no document service is configured. It only logs.
type NoopGateway struct {
	logger zerolog.Logger
}

// NewNoopGateway creates a new NoopGateway.
func NewNoopGateway(logger zerolog.Logger) *NoopGateway {
	return &NoopGateway{logger: logger}
}

func (g *NoopGateway) LinkTransaction(ctx context.Context, documentID, transactionID string) error {
	g.logger.Debug().Str("document_id", documentID).Str("transaction_id", transactionID).Msg("link skipped")
	return nil
}

func (g *NoopGateway) UnlinkTransaction(ctx context.Context, documentID, transactionID string) error {
	g.logger.Debug().Str("document_id", documentID).Str("transaction_id", transactionID).Msg("unlink skipped")
	return nil
}

func (g *NoopGateway) NotifyPayableStatus(ctx context.Context, update usecase.PayableStatusUpdate) error {
	g.logger.Debug().
		Str("document_id", update.DocumentID).
		Bool("is_paid_off", update.IsPaidOff).
		Msg("payable status skipped")
	return nil
}

var (
	_ usecase.ExternalDocumentGateway = (*NoopGateway)(nil)
	_ usecase.ExternalDocumentGateway = (*WebhookGateway)(nil)
)
