package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iho/pharmledger/internal/domain"
)

// runInTx runs fn inside one database transaction. When a retrier is set
// the whole attempt, reads included, is replayed on transient conflicts.
func runInTx(ctx context.Context, txManager TransactionManager, retrier Retrier, fn func(ctx context.Context, tx Transaction) error) error {
	attempt := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := txManager.Begin(txCtx)
		if err != nil {
			return domain.NewPersistenceError("begin transaction", err)
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return domain.NewPersistenceError("commit transaction", err)
		}
		return nil
	}

	if retrier == nil {
		return attempt()
	}
	return retrier.Retry(ctx, attempt)
}

// lockGroups row-locks the given groups in ascending id order and indexes them.
func lockGroups(ctx context.Context, repo GroupRepository, tx Transaction, scope domain.Scope, ids ...string) (map[string]*domain.TransactionGroup, error) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(set))
	for id := range set {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	if len(sorted) == 0 {
		return map[string]*domain.TransactionGroup{}, nil
	}

	groups, err := repo.GetByIDsForUpdate(ctx, tx, scope, sorted)
	if err != nil {
		return nil, domain.NewPersistenceError("lock groups", err)
	}
	byID := make(map[string]*domain.TransactionGroup, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}
	return byID, nil
}

// resolveActiveAccounts loads ids in input order, failing with every id
// that is missing, out of scope or inactive.
func resolveActiveAccounts(ctx context.Context, repo AccountRepository, scope domain.Scope, ids []string) ([]*domain.Account, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	accounts, err := repo.GetByIDs(ctx, scope, unique)
	if err != nil {
		return nil, domain.NewPersistenceError("load accounts", err)
	}
	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	var bad []string
	out := make([]*domain.Account, 0, len(unique))
	for _, id := range unique {
		a, ok := byID[id]
		if !ok || !a.IsActive || !a.OwnedBy(scope) {
			bad = append(bad, id)
			continue
		}
		out = append(out, a)
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("%w: accounts not found or inactive: %s", domain.ErrValidation, strings.Join(bad, ", "))
	}
	return out, nil
}

// groupNumberAllocator produces TXN-YYYYMMDD-NNN numbers, skipping ones in use.
type groupNumberAllocator struct {
	sequence  SequenceGenerator
	groupRepo GroupRepository
}

func (a groupNumberAllocator) next(ctx context.Context, scope domain.Scope, day time.Time) (string, error) {
	for attempt := 0; attempt < maxGroupNumberAttempts; attempt++ {
		seq, err := a.sequence.Next(ctx, scope, day)
		if err != nil {
			return "", domain.NewPersistenceError("next group sequence", err)
		}
		number := fmt.Sprintf("%s-%s-%03d", GroupNumberPrefix, day.Format("20060102"), seq)

		exists, err := a.groupRepo.ExistsGroupNumber(ctx, nil, scope, number, "")
		if err != nil {
			return "", domain.NewPersistenceError("check group number", err)
		}
		if !exists {
			return number, nil
		}
	}
	return "", domain.NewPersistenceError("allocate group number",
		fmt.Errorf("no free number for %s after %d attempts", day.Format("2006-01-02"), maxGroupNumberAttempts))
}

func newOutboxEvent(id, aggregateType, aggregateID, eventType string, payload map[string]any, now time.Time) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            id,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
	}
}

func groupPayload(g *domain.TransactionGroup, actorID string) map[string]any {
	payload := map[string]any{
		"group_id":         g.ID,
		"group_number":     g.GroupNumber,
		"status":           string(g.Status),
		"transaction_type": string(g.TransactionType),
		"total_amount":     g.TotalAmount.String(),
		"actor_id":         actorID,
	}
	if g.CancelReason != "" {
		payload["reason"] = g.CancelReason
	}
	return payload
}

// errorKind reduces an error to a metric label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrReferentialIntegrity):
		return "referential_integrity"
	case errors.Is(err, domain.ErrAmbiguousEntryType):
		return "ambiguous_entry_type"
	case errors.Is(err, domain.ErrMissingCounterAccount):
		return "missing_counter_account"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "concurrent_modification"
	default:
		return "persistence"
	}
}

var (
	liveStatuses      = []domain.GroupStatus{domain.GroupStatusDraft, domain.GroupStatusConfirmed}
	confirmedStatuses = []domain.GroupStatus{domain.GroupStatusConfirmed}
)
