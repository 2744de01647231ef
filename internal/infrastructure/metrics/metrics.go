package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Lifecycle metrics
	GroupsCreated   *prometheus.CounterVec
	GroupsConfirmed prometheus.Counter
	GroupsCancelled prometheus.Counter
	GroupsDeleted   prometheus.Counter
	GroupAmount     prometheus.Histogram
	LifecycleErrors *prometheus.CounterVec

	// Funding metrics
	AllocationsAccepted prometheus.Counter
	AllocationsRejected *prometheus.CounterVec
	AllocatedAmount     prometheus.Histogram

	// Subledger metrics
	PaymentsCreated       prometheus.Counter
	PaymentAmount         prometheus.Histogram
	PayablesPaidOff       prometheus.Counter
	NotificationsFailed   *prometheus.CounterVec
	AutoEntriesCreated    *prometheus.CounterVec
	AutoEntriesSkipped    *prometheus.CounterVec
	AutoEntriesReversed   prometheus.Counter
	OperationDuration     *prometheus.HistogramVec
	AccountsCreated       prometheus.Counter
	OutboxEventsPublished prometheus.Counter

	// Storage metrics
	DBRetries     *prometheus.CounterVec
	RedisErrors   *prometheus.CounterVec
	RateLimitHits *prometheus.CounterVec
	AuthFailures  *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		GroupsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmledger_groups_created_total",
				Help: "Total number of transaction groups created",
			},
			[]string{"transaction_type", "status"},
		),
		GroupsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_groups_confirmed_total",
			Help: "Total number of transaction groups confirmed",
		}),
		GroupsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_groups_cancelled_total",
			Help: "Total number of transaction groups cancelled",
		}),
		GroupsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_groups_deleted_total",
			Help: "Total number of auto-created groups removed by document reversal",
		}),
		GroupAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pharmledger_group_amount",
			Help:    "Total amount of confirmed groups",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		LifecycleErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmledger_lifecycle_errors_total",
				Help: "Total number of rejected lifecycle operations by operation and kind",
			},
			[]string{"operation", "kind"},
		),

		AllocationsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_allocations_accepted_total",
			Help: "Total number of funding allocations recorded",
		}),
		AllocationsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmledger_allocations_rejected_total",
				Help: "Total number of funding allocations rejected by kind",
			},
			[]string{"kind"},
		),
		AllocatedAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pharmledger_allocated_amount",
			Help:    "Amounts allocated from funding sources",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		PaymentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_payments_created_total",
			Help: "Total number of payment transactions created",
		}),
		PaymentAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pharmledger_payment_amount",
			Help:    "Amounts applied to payables",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		PayablesPaidOff: factory.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_payables_paid_off_total",
			Help: "Total number of payables that became fully paid",
		}),
		NotificationsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmledger_document_notifications_failed_total",
				Help: "Best-effort external document updates that failed",
			},
			[]string{"operation"},
		),
		AutoEntriesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmledger_auto_entries_created_total",
				Help: "Total number of groups derived from external documents by pattern",
			},
			[]string{"pattern"},
		),
		AutoEntriesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmledger_auto_entries_skipped_total",
				Help: "External documents that produced no group by reason",
			},
			[]string{"reason"},
		),
		AutoEntriesReversed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_auto_entries_reversed_total",
			Help: "Total number of auto-created groups reversed",
		}),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pharmledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		OutboxEventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_outbox_events_published_total",
			Help: "Total number of outbox events published",
		}),

		DBRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmledger_db_retries_total",
				Help: "Total retried database operations by reason",
			},
			[]string{"reason"},
		),
		RedisErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"client"},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmledger_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),
	}
}

