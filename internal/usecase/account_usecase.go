package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
)

// maxAccountDepth bounds the parent walk used for cycle detection.
const maxAccountDepth = 32

// AccountUseCase handles the chart of accounts.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// CreateAccountInput represents input for creating an account.
// NormalBalance is ignored: it always follows AccountType.
type CreateAccountInput struct {
	Code          string
	Name          string
	AccountType   domain.AccountType
	NormalBalance domain.NormalBalance
	ParentID      *string
	IsActive      *bool
}

// CreateAccount creates a new account.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput, scope domain.Scope) (*domain.Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:             uc.idGen.Generate(),
		Code:           strings.TrimSpace(input.Code),
		Name:           strings.TrimSpace(input.Name),
		AccountType:    input.AccountType,
		IsActive:       true,
		CreatedBy:      scope.ActorID,
		OrganizationID: scope.OrganizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	exists, err := uc.accountRepo.ExistsCode(ctx, scope, account.Code)
	if err != nil {
		return nil, domain.NewPersistenceError("check account code", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateAccountCode, account.Code)
	}

	if input.ParentID != nil && *input.ParentID != "" {
		parent, err := uc.parent(ctx, scope, *input.ParentID)
		if err != nil {
			return nil, err
		}
		account.ParentID = &parent.ID
		account.Level = parent.Level + 1
	}
	account.Normalize()

	err = runInTx(ctx, uc.txManager, nil, func(ctx context.Context, tx Transaction) error {
		if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
			return domain.NewPersistenceError("create account", err)
		}
		event := newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountCreated, map[string]any{
			"account_id":   account.ID,
			"code":         account.Code,
			"name":         account.Name,
			"account_type": string(account.AccountType),
		}, now)
		return uc.outboxRepo.Create(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsCreated.Inc()
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string, scope domain.Scope) (*domain.Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return uc.accountRepo.GetByID(ctx, scope, id)
}

// ListAccounts lists the accounts visible in scope.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, scope domain.Scope, filter AccountFilter) ([]*domain.Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if filter.AccountType != "" && !filter.AccountType.IsValid() {
		return nil, fmt.Errorf("%w: unknown account type %q", domain.ErrValidation, filter.AccountType)
	}
	return uc.accountRepo.List(ctx, scope, filter)
}

// UpdateAccountInput is a partial account update. Nil fields are kept.
type UpdateAccountInput struct {
	Name        *string
	AccountType *domain.AccountType
	ParentID    *string
	IsActive    *bool
}

// UpdateAccount applies a patch. Changing the type re-derives the normal balance.
func (uc *AccountUseCase) UpdateAccount(ctx context.Context, id string, input UpdateAccountInput, scope domain.Scope) (*domain.Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		account.Name = strings.TrimSpace(*input.Name)
	}
	if input.AccountType != nil {
		account.AccountType = *input.AccountType
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
	if input.ParentID != nil {
		if *input.ParentID == "" {
			account.ParentID = nil
			account.Level = 1
		} else {
			parent, err := uc.parent(ctx, scope, *input.ParentID)
			if err != nil {
				return nil, err
			}
			if err := uc.checkNoCycle(ctx, scope, account.ID, parent); err != nil {
				return nil, err
			}
			account.ParentID = &parent.ID
			account.Level = parent.Level + 1
		}
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	account.Normalize()
	account.UpdatedAt = time.Now().UTC()

	err = runInTx(ctx, uc.txManager, nil, func(ctx context.Context, tx Transaction) error {
		return domain.NewPersistenceError("update account", uc.accountRepo.Update(ctx, tx, account))
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// DeactivateAccount hides an account from new postings. Accounts are never deleted.
func (uc *AccountUseCase) DeactivateAccount(ctx context.Context, id string, scope domain.Scope) (*domain.Account, error) {
	inactive := false
	return uc.UpdateAccount(ctx, id, UpdateAccountInput{IsActive: &inactive}, scope)
}

// ResolveActiveAccounts returns the accounts in input order or a
// validation error naming every unusable id.
func (uc *AccountUseCase) ResolveActiveAccounts(ctx context.Context, scope domain.Scope, ids []string) ([]*domain.Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return resolveActiveAccounts(ctx, uc.accountRepo, scope, ids)
}

func (uc *AccountUseCase) parent(ctx context.Context, scope domain.Scope, id string) (*domain.Account, error) {
	parent, err := uc.accountRepo.GetByID(ctx, scope, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, fmt.Errorf("%w: parent account %s not found", domain.ErrValidation, id)
		}
		return nil, err
	}
	return parent, nil
}

func (uc *AccountUseCase) checkNoCycle(ctx context.Context, scope domain.Scope, id string, parent *domain.Account) error {
	current := parent
	for depth := 0; current != nil && depth < maxAccountDepth; depth++ {
		if current.ID == id {
			return fmt.Errorf("%w: account %s cannot be its own ancestor", domain.ErrValidation, id)
		}
		if current.ParentID == nil {
			return nil
		}
		next, err := uc.accountRepo.GetByID(ctx, scope, *current.ParentID)
		if err != nil {
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		}
		current = next
	}
	return nil
}
