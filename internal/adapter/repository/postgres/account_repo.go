package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/postgres/generated"
	"github.com/iho/pharmledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository. db is usually a *pgxpool.Pool.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{
		queries: generated.New(db),
	}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	err := queriesFor(r.queries, tx).CreateAccount(ctx, generated.CreateAccountParams{
		ID:             account.ID,
		Code:           account.Code,
		Name:           account.Name,
		AccountType:    string(account.AccountType),
		NormalBalance:  string(account.NormalBalance),
		ParentID:       optionalText(account.ParentID),
		Level:          int32(account.Level),
		IsActive:       account.IsActive,
		CreatedBy:      account.CreatedBy,
		OrganizationID: account.OrganizationID,
		CreatedAt:      timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:      timeToPgTimestamptz(account.UpdatedAt),
	})
	if isUniqueViolation(err) {
		return domain.ErrDuplicateAccountCode
	}

	return err
}

// Update replaces the mutable fields of an account.
func (r *AccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	rows, err := queriesFor(r.queries, tx).UpdateAccount(ctx, generated.UpdateAccountParams{
		ID:            account.ID,
		Name:          account.Name,
		AccountType:   string(account.AccountType),
		NormalBalance: string(account.NormalBalance),
		ParentID:      optionalText(account.ParentID),
		Level:         int32(account.Level),
		IsActive:      account.IsActive,
		UpdatedAt:     timeToPgTimestamptz(account.UpdatedAt),
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// GetByID retrieves an account by ID within scope.
func (r *AccountRepository) GetByID(ctx context.Context, scope domain.Scope, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, generated.GetAccountByIDParams{
		ID:             id,
		CreatedBy:      scope.ActorID,
		OrganizationID: scope.OrganizationID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByIDs returns the accounts found among ids. Missing ids are omitted.
func (r *AccountRepository) GetByIDs(ctx context.Context, scope domain.Scope, ids []string) ([]*domain.Account, error) {
	rows, err := r.queries.GetAccountsByIDs(ctx, generated.GetAccountsByIDsParams{
		Ids:            ids,
		CreatedBy:      scope.ActorID,
		OrganizationID: scope.OrganizationID,
	})
	if err != nil {
		return nil, err
	}

	return rowsToAccounts(rows), nil
}

// ExistsCode reports whether code is taken within scope.
func (r *AccountRepository) ExistsCode(ctx context.Context, scope domain.Scope, code string) (bool, error) {
	return r.queries.AccountCodeExists(ctx, generated.AccountCodeExistsParams{
		Code:           code,
		CreatedBy:      scope.ActorID,
		OrganizationID: scope.OrganizationID,
	})
}

// List lists accounts ordered by code.
func (r *AccountRepository) List(ctx context.Context, scope domain.Scope, filter usecase.AccountFilter) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, generated.ListAccountsParams{
		CreatedBy:      scope.ActorID,
		OrganizationID: scope.OrganizationID,
		AccountType:    string(filter.AccountType),
		ActiveOnly:     filter.ActiveOnly,
	})
	if err != nil {
		return nil, err
	}

	return rowsToAccounts(rows), nil
}

func rowsToAccounts(rows []generated.Account) []*domain.Account {
	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}
	return accounts
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:             row.ID,
		Code:           row.Code,
		Name:           row.Name,
		AccountType:    domain.AccountType(row.AccountType),
		NormalBalance:  domain.NormalBalance(row.NormalBalance),
		ParentID:       textPtr(row.ParentID),
		Level:          int(row.Level),
		IsActive:       row.IsActive,
		CreatedBy:      row.CreatedBy,
		OrganizationID: row.OrganizationID,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}
