package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/logger"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
)

// AutoEntryUseCase turns completed external documents into confirmed
// two-entry groups and removes them again when a document is reversed.
type AutoEntryUseCase struct {
	txManager   TransactionManager
	groupRepo   GroupRepository
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	gateway     ExternalDocumentGateway
	idGen       IDGenerator
	retrier     Retrier
	numbers     groupNumberAllocator
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewAutoEntryUseCase creates a new AutoEntryUseCase.
func NewAutoEntryUseCase(
	txManager TransactionManager,
	groupRepo GroupRepository,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	sequence SequenceGenerator,
	gateway ExternalDocumentGateway,
	idGen IDGenerator,
	retrier Retrier,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *AutoEntryUseCase {
	return &AutoEntryUseCase{
		txManager:   txManager,
		groupRepo:   groupRepo,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		gateway:     gateway,
		idGen:       idGen,
		retrier:     retrier,
		numbers:     groupNumberAllocator{sequence: sequence, groupRepo: groupRepo},
		logger:      logger,
		metrics:     metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HandleExternalDocumentCompletion creates the confirmed posting for a
// completed document and returns its id. It returns "" when the document
// produces no posting, and the existing id when one was already created.
func (uc *AutoEntryUseCase) HandleExternalDocumentCompletion(ctx context.Context, doc *domain.ExternalDocument, scope domain.Scope) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}
	if doc == nil || doc.ID == "" {
		return "", fmt.Errorf("%w: external document id is required", domain.ErrValidation)
	}
	if doc.Status != domain.ExternalDocumentCompleted {
		uc.skipped("not_completed")
		return "", nil
	}
	if len(doc.CandidateAccountIDs) == 0 {
		uc.skipped("no_accounts")
		return "", nil
	}
	if scope.OrganizationID == "" {
		scope.OrganizationID = doc.OrganizationID
	}

	existing, err := uc.groupRepo.GetByExternalDocument(ctx, nil, scope, doc.ID)
	switch {
	case err == nil:
		return existing.ID, nil
	case !domain.IsNotFound(err):
		return "", domain.NewPersistenceError("find document posting", err)
	}

	amount := domain.RoundMoney(doc.TotalAmount)
	if err := domain.ValidateAmount(amount); err != nil {
		return "", err
	}

	accounts, err := resolveActiveAccounts(ctx, uc.accountRepo, scope, doc.CandidateAccountIDs)
	if err != nil {
		return "", err
	}
	if len(accounts) < 2 {
		return "", fmt.Errorf("%w: at least 2 candidate accounts are required, got %d", domain.ErrValidation, len(accounts))
	}

	pattern, err := domain.InferEntryType(accounts)
	if err != nil {
		return "", err
	}
	debitAccount, creditAccount, err := domain.ResolveCounterAccounts(pattern, accounts)
	if err != nil {
		return "", err
	}

	now := uc.now()
	g := &domain.TransactionGroup{
		ID:                 uc.idGen.Generate(),
		Description:        doc.Reference(),
		TransactionDate:    domain.ParseDocumentDate(doc.Identifier, now),
		OrganizationID:     scope.OrganizationID,
		CreatedBy:          scope.ActorID,
		Status:             domain.GroupStatusConfirmed,
		TransactionType:    domain.TransactionTypePurchase,
		FundingType:        domain.FundingTypeOriginal,
		ExternalDocumentID: doc.ID,
		ExternalReference:  doc.Reference(),
		Entries: []domain.Entry{
			{Sequence: 1, AccountID: debitAccount.ID, DebitAmount: amount, Description: doc.Reference()},
			{Sequence: 2, AccountID: creditAccount.ID, CreditAmount: amount, Description: doc.Reference()},
		},
		ConfirmedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	g.NormalizeEntries()
	if pattern == domain.PatternAssetLiability {
		applyPayableInfo(g, accounts)
	}

	if g.GroupNumber, err = uc.numbers.next(ctx, scope, now); err != nil {
		return "", err
	}
	if err := g.Validate(); err != nil {
		return "", err
	}

	err = runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		if _, err := uc.groupRepo.GetByExternalDocument(ctx, tx, scope, doc.ID); err == nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateDocument, doc.ID)
		} else if !domain.IsNotFound(err) {
			return domain.NewPersistenceError("find document posting", err)
		}

		if err := uc.groupRepo.Create(ctx, tx, g); err != nil {
			return domain.NewPersistenceError("create auto entry", err)
		}
		payload := groupPayload(g, scope.ActorID)
		payload["external_document_id"] = doc.ID
		payload["pattern"] = string(pattern)
		event := newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeGroup, g.ID, domain.EventTypeGroupCreated, payload, now)
		return uc.outboxRepo.Create(ctx, tx, event)
	})
	if errors.Is(err, domain.ErrDuplicateDocument) {
		// A concurrent completion of the same document committed first.
		winner, lookupErr := uc.groupRepo.GetByExternalDocument(ctx, nil, scope, doc.ID)
		if lookupErr != nil {
			return "", domain.NewPersistenceError("find document posting", lookupErr)
		}
		return winner.ID, nil
	}
	if err != nil {
		return "", err
	}

	if uc.gateway != nil {
		if err := uc.gateway.LinkTransaction(ctx, doc.ID, g.ID); err != nil {
			l := logger.FromContext(ctx, uc.logger)
			l.Warn().Err(err).
				Str("document_id", doc.ID).
				Str("transaction_id", g.ID).
				Msg("failed to link document to its posting")
			if uc.metrics != nil {
				uc.metrics.NotificationsFailed.WithLabelValues("link").Inc()
			}
		}
	}

	if uc.metrics != nil {
		uc.metrics.AutoEntriesCreated.WithLabelValues(string(pattern)).Inc()
	}
	l := logger.FromContext(ctx, uc.logger)
	l.Info().
		Str("document_id", doc.ID).
		Str("transaction_id", g.ID).
		Str("pattern", string(pattern)).
		Msg("auto entry created")

	return g.ID, nil
}

// ReverseExternalDocument deletes the posting created for documentID. It
// reports whether anything was deleted.
func (uc *AutoEntryUseCase) ReverseExternalDocument(ctx context.Context, documentID string, scope domain.Scope) (bool, error) {
	if err := scope.Validate(); err != nil {
		return false, err
	}

	var deleted *domain.TransactionGroup
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		deleted = nil

		current, err := uc.groupRepo.GetByExternalDocument(ctx, tx, scope, documentID)
		if domain.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return domain.NewPersistenceError("find document posting", err)
		}

		locked, err := lockGroups(ctx, uc.groupRepo, tx, scope, current.ID)
		if err != nil {
			return err
		}
		if err := checkLockedVersion(locked, current); err != nil {
			return err
		}
		g := locked[current.ID]

		count, err := countLiveReferences(ctx, uc.groupRepo, tx, scope, g.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return &domain.ReferencedError{GroupID: g.ID, Count: count}
		}

		if err := uc.groupRepo.Delete(ctx, tx, g); err != nil {
			return domain.NewPersistenceError("delete auto entry", err)
		}
		payload := groupPayload(g, scope.ActorID)
		payload["external_document_id"] = documentID
		event := newOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeGroup, g.ID, domain.EventTypeGroupDeleted, payload, uc.now())
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		deleted = g
		return nil
	})
	if err != nil || deleted == nil {
		return false, err
	}

	if uc.gateway != nil {
		if err := uc.gateway.UnlinkTransaction(ctx, documentID, deleted.ID); err != nil {
			l := logger.FromContext(ctx, uc.logger)
			l.Warn().Err(err).
				Str("document_id", documentID).
				Str("transaction_id", deleted.ID).
				Msg("failed to unlink document from its posting")
			if uc.metrics != nil {
				uc.metrics.NotificationsFailed.WithLabelValues("unlink").Inc()
			}
		}
	}

	if uc.metrics != nil {
		uc.metrics.AutoEntriesReversed.Inc()
		uc.metrics.GroupsDeleted.Inc()
	}
	return true, nil
}

func (uc *AutoEntryUseCase) skipped(reason string) {
	if uc.metrics != nil {
		uc.metrics.AutoEntriesSkipped.WithLabelValues(reason).Inc()
	}
}
