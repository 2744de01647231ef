package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

// MockAccountRepository is an in-memory AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc   func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	UpdateFunc   func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDFunc  func(ctx context.Context, scope domain.Scope, id string) (*domain.Account, error)
	GetByIDsFunc func(ctx context.Context, scope domain.Scope, ids []string) ([]*domain.Account, error)
	ListFunc     func(ctx context.Context, scope domain.Scope, filter usecase.AccountFilter) ([]*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Put seeds an account.
func (m *MockAccountRepository) Put(accounts ...*domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range accounts {
		cp := *a
		m.accounts[a.ID] = &cp
	}
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; ok {
		return fmt.Errorf("account %s already exists", account.ID)
	}
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *MockAccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, scope domain.Scope, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, scope, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok && acc.OwnedBy(scope) {
		cp := *acc
		return &cp, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, scope domain.Scope, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, scope, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if acc, ok := m.accounts[id]; ok && acc.OwnedBy(scope) {
			cp := *acc
			accounts = append(accounts, &cp)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) ExistsCode(ctx context.Context, scope domain.Scope, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acc := range m.accounts {
		if acc.OwnedBy(scope) && acc.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockAccountRepository) List(ctx context.Context, scope domain.Scope, filter usecase.AccountFilter) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, scope, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		if !acc.OwnedBy(scope) {
			continue
		}
		if filter.AccountType != "" && acc.AccountType != filter.AccountType {
			continue
		}
		if filter.ActiveOnly && !acc.IsActive {
			continue
		}
		cp := *acc
		accounts = append(accounts, &cp)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

// MockGroupRepository is an in-memory GroupRepository. Stored aggregates
// are deep-copied in and out, and Update enforces the version check.
type MockGroupRepository struct {
	mu     sync.RWMutex
	groups map[string]*domain.TransactionGroup

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, group *domain.TransactionGroup) error
	UpdateFunc            func(ctx context.Context, tx usecase.Transaction, group *domain.TransactionGroup) error
	GetByIDFunc           func(ctx context.Context, tx usecase.Transaction, scope domain.Scope, id string) (*domain.TransactionGroup, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, scope domain.Scope, ids []string) ([]*domain.TransactionGroup, error)
	ListFunc              func(ctx context.Context, scope domain.Scope, filter usecase.GroupFilter) ([]*domain.TransactionGroup, int, error)
	ListReferencingFunc   func(ctx context.Context, tx usecase.Transaction, scope domain.Scope, sourceID string, statuses []domain.GroupStatus) ([]*domain.TransactionGroup, error)
}

func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{
		groups: make(map[string]*domain.TransactionGroup),
	}
}

// Put seeds groups as stored, keeping their version.
func (m *MockGroupRepository) Put(groups ...*domain.TransactionGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range groups {
		m.groups[g.ID] = CloneGroup(g)
	}
}

// Get returns a copy of the stored group, or nil.
func (m *MockGroupRepository) Get(id string) *domain.TransactionGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.groups[id]; ok {
		return CloneGroup(g)
	}
	return nil
}

// Len returns the number of stored groups.
func (m *MockGroupRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups)
}

func (m *MockGroupRepository) Create(ctx context.Context, tx usecase.Transaction, group *domain.TransactionGroup) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, group)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[group.ID]; ok {
		return fmt.Errorf("group %s already exists", group.ID)
	}
	group.Version = 1
	m.groups[group.ID] = CloneGroup(group)
	return nil
}

func (m *MockGroupRepository) Update(ctx context.Context, tx usecase.Transaction, group *domain.TransactionGroup) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, group)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.groups[group.ID]
	if !ok {
		return domain.ErrGroupNotFound
	}
	if stored.Version != group.Version {
		return domain.ErrConcurrentModification
	}
	group.Version++
	m.groups[group.ID] = CloneGroup(group)
	return nil
}

func (m *MockGroupRepository) Delete(ctx context.Context, tx usecase.Transaction, group *domain.TransactionGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.groups[group.ID]
	if !ok {
		return domain.ErrGroupNotFound
	}
	if stored.Version != group.Version {
		return domain.ErrConcurrentModification
	}
	delete(m.groups, group.ID)
	return nil
}

func (m *MockGroupRepository) GetByID(ctx context.Context, tx usecase.Transaction, scope domain.Scope, id string) (*domain.TransactionGroup, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, tx, scope, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.groups[id]; ok && g.OwnedBy(scope) {
		return CloneGroup(g), nil
	}
	return nil, domain.ErrGroupNotFound
}

func (m *MockGroupRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, scope domain.Scope, ids []string) ([]*domain.TransactionGroup, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, scope, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	var out []*domain.TransactionGroup
	for _, id := range sorted {
		if g, ok := m.groups[id]; ok && g.OwnedBy(scope) {
			out = append(out, CloneGroup(g))
		}
	}
	return out, nil
}

func (m *MockGroupRepository) GetByExternalDocument(ctx context.Context, tx usecase.Transaction, scope domain.Scope, documentID string) (*domain.TransactionGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.groups {
		if g.OwnedBy(scope) && g.ExternalDocumentID == documentID {
			return CloneGroup(g), nil
		}
	}
	return nil, domain.ErrGroupNotFound
}

func (m *MockGroupRepository) ExistsGroupNumber(ctx context.Context, tx usecase.Transaction, scope domain.Scope, groupNumber, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.groups {
		if g.OwnedBy(scope) && g.GroupNumber == groupNumber && g.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockGroupRepository) List(ctx context.Context, scope domain.Scope, filter usecase.GroupFilter) ([]*domain.TransactionGroup, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, scope, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []*domain.TransactionGroup
	for _, g := range m.groups {
		if !g.OwnedBy(scope) {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		if filter.TransactionType != "" && g.TransactionType != filter.TransactionType {
			continue
		}
		if filter.AccountID != "" && !contains(g.AccountIDs(), filter.AccountID) {
			continue
		}
		if filter.DateFrom != nil && g.TransactionDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && g.TransactionDate.After(*filter.DateTo) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(g.GroupNumber), search) &&
			!strings.Contains(strings.ToLower(g.Description), search) {
			continue
		}
		matched = append(matched, CloneGroup(g))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].TransactionDate.Equal(matched[j].TransactionDate) {
			return matched[i].TransactionDate.After(matched[j].TransactionDate)
		}
		return matched[i].GroupNumber > matched[j].GroupNumber
	})

	total := len(matched)
	if filter.Limit > 0 {
		start := (filter.Page - 1) * filter.Limit
		if start < 0 {
			start = 0
		}
		if start > total {
			start = total
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (m *MockGroupRepository) ListReferencing(ctx context.Context, tx usecase.Transaction, scope domain.Scope, sourceID string, statuses []domain.GroupStatus) ([]*domain.TransactionGroup, error) {
	if m.ListReferencingFunc != nil {
		return m.ListReferencingFunc(ctx, tx, scope, sourceID, statuses)
	}
	return m.filter(scope, statuses, func(g *domain.TransactionGroup) bool {
		return contains(g.SourceRefs(), sourceID)
	}), nil
}

func (m *MockGroupRepository) ListPaymentsForPayable(ctx context.Context, tx usecase.Transaction, scope domain.Scope, payableID string, statuses []domain.GroupStatus) ([]*domain.TransactionGroup, error) {
	return m.filter(scope, statuses, func(g *domain.TransactionGroup) bool {
		return contains(g.PayableRefs(), payableID)
	}), nil
}

func (m *MockGroupRepository) filter(scope domain.Scope, statuses []domain.GroupStatus, match func(*domain.TransactionGroup) bool) []*domain.TransactionGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TransactionGroup
	for _, g := range m.groups {
		if !g.OwnedBy(scope) || !hasStatus(statuses, g.Status) || !match(g) {
			continue
		}
		out = append(out, CloneGroup(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CloneGroup deep-copies a group so callers never share slices with the store.
func CloneGroup(g *domain.TransactionGroup) *domain.TransactionGroup {
	if g == nil {
		return nil
	}
	cp := *g
	cp.LinkedTransactionIDs = append([]string(nil), g.LinkedTransactionIDs...)
	cp.FundingSourceUsages = append([]domain.FundingSourceUsage(nil), g.FundingSourceUsages...)
	cp.Entries = make([]domain.Entry, len(g.Entries))
	for i, e := range g.Entries {
		e.FundingPath = append([]string(nil), e.FundingPath...)
		cp.Entries[i] = e
	}
	if g.PaymentInfo != nil {
		info := *g.PaymentInfo
		info.PayableTransactions = append([]domain.PayableAllocation(nil), g.PaymentInfo.PayableTransactions...)
		cp.PaymentInfo = &info
	}
	if g.PayableInfo != nil {
		info := *g.PayableInfo
		info.PaymentHistory = append([]domain.PaymentRecord(nil), g.PayableInfo.PaymentHistory...)
		cp.PayableInfo = &info
	}
	if g.ConfirmedAt != nil {
		t := *g.ConfirmedAt
		cp.ConfirmedAt = &t
	}
	if g.CancelledAt != nil {
		t := *g.CancelledAt
		cp.CancelledAt = &t
	}
	return &cp
}

func contains(items []string, want string) bool {
	for _, s := range items {
		if s == want {
			return true
		}
	}
	return false
}

func hasStatus(statuses []domain.GroupStatus, s domain.GroupStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

// MockOutboxRepository records outbox events in memory.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Events returns the recorded events in creation order.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

// EventTypes returns the recorded event types in creation order.
func (m *MockOutboxRepository) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.EventType)
	}
	return types
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if e.PublishedAt == nil {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			t := publishedAt
			e.PublishedAt = &t
			e.Published = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockOutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	mu        sync.Mutex
	begun     int
	committed int
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	m.begun++
	m.mu.Unlock()
	return &MockTransaction{CommitFunc: func(context.Context) error {
		m.mu.Lock()
		m.committed++
		m.mu.Unlock()
		return nil
	}}, nil
}

// Committed returns how many transactions begun by the manager were committed.
func (m *MockTransactionManager) Committed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	Prefix       string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{Prefix: "mock-id"}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("%s-%03d", m.Prefix, m.counter)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	ReleaseFunc     func(ctx context.Context, key string) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte(usecase.IdempotencyPending)
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Get returns the stored value for key.
func (m *MockIdempotencyStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}
