package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/postgres/generated"
)

func TestOutboxRepositoryCreateInTransaction(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO outbox_events").
		WithArgs("evt-1", "grp-1", domain.AggregateTypeGroup, domain.EventTypeGroupConfirmed,
			[]byte(`{"group_id":"grp-1"}`), pgxmock.AnyArg(), false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectRollback()

	ctx := context.Background()
	tx, err := newTxManagerWithPool(mockPool).Begin(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = NewOutboxRepository(mockPool).Create(ctx, tx, &domain.OutboxEvent{
		ID:            "evt-1",
		AggregateID:   "grp-1",
		AggregateType: domain.AggregateTypeGroup,
		EventType:     domain.EventTypeGroupConfirmed,
		Payload:       map[string]any{"group_id": "grp-1"},
		CreatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestRowToOutboxEvent(t *testing.T) {
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	event := rowToOutboxEvent(generated.OutboxEvent{
		ID:          "evt-1",
		EventType:   domain.EventTypePaymentCreated,
		Payload:     []byte(`{"payment_id":"pay-1"}`),
		PublishedAt: timeToPgTimestamptz(published),
		Published:   true,
	})

	if event.Payload["payment_id"] != "pay-1" {
		t.Fatalf("unexpected payload: %v", event.Payload)
	}
	if event.PublishedAt == nil || !event.PublishedAt.Equal(published) {
		t.Fatalf("expected published at %v, got %v", published, event.PublishedAt)
	}
}
