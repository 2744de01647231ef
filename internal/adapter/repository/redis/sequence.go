package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
)

// sequenceTTL keeps a day's counter around past midnight in every time zone.
const sequenceTTL = 48 * time.Hour

// SequenceGenerator implements usecase.SequenceGenerator with one INCR
// counter per actor, organization and calendar day.
type SequenceGenerator struct {
	client  redis.Cmdable
	prefix  string
	metrics *metrics.Metrics
}

// NewSequenceGenerator creates a new SequenceGenerator. m may be nil.
func NewSequenceGenerator(client redis.Cmdable, m *metrics.Metrics) *SequenceGenerator {
	return &SequenceGenerator{
		client:  client,
		prefix:  "pharmledger:groupseq:",
		metrics: m,
	}
}

// Next returns the next counter value for the day, starting at 1.
func (g *SequenceGenerator) Next(ctx context.Context, scope domain.Scope, day time.Time) (int64, error) {
	key := g.key(scope, day)

	var incr *redis.IntCmd
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, sequenceTTL)
		return nil
	})
	if err != nil {
		recordRedisError(g.metrics, "sequence_next")
		return 0, fmt.Errorf("group number sequence: %w", err)
	}

	return incr.Val(), nil
}

func (g *SequenceGenerator) key(scope domain.Scope, day time.Time) string {
	org := scope.OrganizationID
	if org == "" {
		org = "-"
	}
	return fmt.Sprintf("%s%s:%s:%s", g.prefix, scope.ActorID, org, day.Format("20060102"))
}

func recordRedisError(m *metrics.Metrics, operation string) {
	if m != nil {
		m.RedisErrors.WithLabelValues(operation).Inc()
	}
}
