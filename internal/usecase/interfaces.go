package usecase

import (
	"context"
	"time"

	"github.com/iho/pharmledger/internal/domain"
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	AccountType domain.AccountType
	ActiveOnly  bool
}

// AccountRepository defines data access for the chart of accounts.
// Reads are always scoped; writes run inside the caller's transaction.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	Update(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, scope domain.Scope, id string) (*domain.Account, error)
	GetByIDs(ctx context.Context, scope domain.Scope, ids []string) ([]*domain.Account, error)
	ExistsCode(ctx context.Context, scope domain.Scope, code string) (bool, error)
	List(ctx context.Context, scope domain.Scope, filter AccountFilter) ([]*domain.Account, error)
}

// GroupFilter narrows group listings. A zero Limit returns every match.
type GroupFilter struct {
	Status          domain.GroupStatus
	TransactionType domain.TransactionType
	AccountID       string
	DateFrom        *time.Time
	DateTo          *time.Time
	Search          string
	Page            int
	Limit           int
}

// GroupRepository persists TransactionGroup aggregates. A nil tx reads
// outside any transaction.
type GroupRepository interface {
	Create(ctx context.Context, tx Transaction, group *domain.TransactionGroup) error
	// Update replaces the aggregate if its stored version still equals
	// group.Version and bumps the version, else ErrConcurrentModification.
	Update(ctx context.Context, tx Transaction, group *domain.TransactionGroup) error
	Delete(ctx context.Context, tx Transaction, group *domain.TransactionGroup) error
	GetByID(ctx context.Context, tx Transaction, scope domain.Scope, id string) (*domain.TransactionGroup, error)
	// GetByIDsForUpdate row-locks the groups in ascending id order and returns those found.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, scope domain.Scope, ids []string) ([]*domain.TransactionGroup, error)
	GetByExternalDocument(ctx context.Context, tx Transaction, scope domain.Scope, documentID string) (*domain.TransactionGroup, error)
	ExistsGroupNumber(ctx context.Context, tx Transaction, scope domain.Scope, groupNumber, excludeID string) (bool, error)
	List(ctx context.Context, scope domain.Scope, filter GroupFilter) ([]*domain.TransactionGroup, int, error)
	// ListReferencing returns groups drawing funds from sourceID through
	// entries, linkedTransactionIds or fundingSourceUsages.
	ListReferencing(ctx context.Context, tx Transaction, scope domain.Scope, sourceID string, statuses []domain.GroupStatus) ([]*domain.TransactionGroup, error)
	ListPaymentsForPayable(ctx context.Context, tx Transaction, scope domain.Scope, payableID string, statuses []domain.GroupStatus) ([]*domain.TransactionGroup, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient store conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// SequenceGenerator hands out the per-day counter behind group numbers.
type SequenceGenerator interface {
	Next(ctx context.Context, scope domain.Scope, day time.Time) (int64, error)
}

// PayableStatusUpdate is pushed to the document that produced a payable.
type PayableStatusUpdate struct {
	DocumentID      string
	TransactionID   string
	PayableAmount   string
	TotalPaidAmount string
	IsPaidOff       bool
}

// ExternalDocumentGateway reaches the business documents (purchase orders)
// that sit outside the ledger. Calls are best-effort from the ledger's side.
type ExternalDocumentGateway interface {
	LinkTransaction(ctx context.Context, documentID, transactionID string) error
	UnlinkTransaction(ctx context.Context, documentID, transactionID string) error
	NotifyPayableStatus(ctx context.Context, update PayableStatusUpdate) error
}

// IdempotencyPending is the stored value while the first request under a key is in flight.
const IdempotencyPending = "processing"

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not succeed so it can be retried.
	Release(ctx context.Context, key string) error
}
