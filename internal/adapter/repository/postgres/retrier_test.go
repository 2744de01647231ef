package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
)

func fastRetrier(m *metrics.Metrics) *Retrier {
	r := NewRetrier(zerolog.Nop(), m)
	r.maxRetries = 2
	r.initialInterval = 1 * time.Millisecond
	r.maxInterval = 2 * time.Millisecond
	r.maxElapsedTime = 50 * time.Millisecond
	return r
}

func TestRetrierRetriesOnRetryableError(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := fastRetrier(m)

	attempts := 0
	err := r.Retry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return &pgconn.PgError{Code: pgErrDeadlock}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if got := testutil.ToFloat64(m.DBRetries.WithLabelValues("deadlock")); got != 1 {
		t.Fatalf("expected 1 deadlock retry, got %v", got)
	}
}

func TestRetrierRetriesVersionConflicts(t *testing.T) {
	r := fastRetrier(nil)

	attempts := 0
	err := r.Retry(context.Background(), func() error {
		attempts++
		return fmt.Errorf("%w: group g-1 at version 3", domain.ErrConcurrentModification)
	})

	if !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("expected concurrent modification error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r := NewRetrier(zerolog.Nop(), nil)
	attempts := 0
	permanentErr := domain.ErrImmutableTarget

	err := r.Retry(context.Background(), func() error {
		attempts++
		return permanentErr
	})

	if !errors.Is(err, permanentErr) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadlock", &pgconn.PgError{Code: pgErrDeadlock}, true},
		{"serialization", &pgconn.PgError{Code: pgErrSerializationFailure}, true},
		{"wrapped conflict", fmt.Errorf("confirm: %w", domain.ErrConcurrentModification), true},
		{"unique violation", &pgconn.PgError{Code: pgErrUniqueViolation}, false},
		{"other", errors.New("other"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
