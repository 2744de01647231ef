package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// GroupNumberPrefix precedes the YYYYMMDD-NNN part of generated group numbers.
	GroupNumberPrefix = "TXN"

	// maxGroupNumberAttempts bounds the skips over numbers already taken.
	maxGroupNumberAttempts = 20

	// MaxBatchSize caps batch balance and payable lookups.
	MaxBatchSize = 200
)
