package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/postgres/generated"
	"github.com/iho/pharmledger/internal/usecase"
)

// groupDocument is the JSONB part of a stored group. Columns hold what
// queries filter on; the document holds the rest of the aggregate.
type groupDocument struct {
	SourceTransactionID  string                      `json:"sourceTransactionId,omitempty"`
	LinkedTransactionIDs []string                    `json:"linkedTransactionIds,omitempty"`
	FundingSourceUsages  []domain.FundingSourceUsage `json:"fundingSourceUsages,omitempty"`
	PaymentInfo          *domain.PaymentInfo         `json:"paymentInfo,omitempty"`
	PayableInfo          *domain.PayableInfo         `json:"payableInfo,omitempty"`
	Entries              []domain.Entry              `json:"entries"`
	ExternalReference    string                      `json:"externalReference,omitempty"`
	ConfirmedAt          *time.Time                  `json:"confirmedAt,omitempty"`
	CancelledAt          *time.Time                  `json:"cancelledAt,omitempty"`
	CancelReason         string                      `json:"cancelReason,omitempty"`
}

// GroupRepository implements usecase.GroupRepository on the
// transaction_groups table.
type GroupRepository struct {
	queries *generated.Queries
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db generated.DBTX) *GroupRepository {
	return &GroupRepository{
		queries: generated.New(db),
	}
}

// Create inserts a new aggregate at version 1.
func (r *GroupRepository) Create(ctx context.Context, tx usecase.Transaction, group *domain.TransactionGroup) error {
	doc, err := marshalGroupDocument(group)
	if err != nil {
		return err
	}

	err = queriesFor(r.queries, tx).CreateGroup(ctx, generated.CreateGroupParams{
		ID:                 group.ID,
		CreatedBy:          group.CreatedBy,
		OrganizationID:     group.OrganizationID,
		GroupNumber:        group.GroupNumber,
		Description:        group.Description,
		TransactionDate:    timeToPgTimestamptz(group.TransactionDate),
		Status:             string(group.Status),
		TransactionType:    string(group.TransactionType),
		FundingType:        string(group.FundingType),
		TotalAmount:        decimalToNumeric(group.TotalAmount),
		ExternalDocumentID: group.ExternalDocumentID,
		SourceRefs:         nonNil(group.SourceRefs()),
		PayableRefs:        nonNil(group.PayableRefs()),
		AccountIds:         nonNil(group.AccountIDs()),
		Document:           doc,
		Version:            1,
		CreatedAt:          timeToPgTimestamptz(group.CreatedAt),
		UpdatedAt:          timeToPgTimestamptz(group.UpdatedAt),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return groupUniqueError(err, group)
		}
		return err
	}

	group.Version = 1
	return nil
}

// Update replaces the aggregate when the stored version still matches.
func (r *GroupRepository) Update(ctx context.Context, tx usecase.Transaction, group *domain.TransactionGroup) error {
	doc, err := marshalGroupDocument(group)
	if err != nil {
		return err
	}

	rows, err := queriesFor(r.queries, tx).UpdateGroup(ctx, generated.UpdateGroupParams{
		ID:                 group.ID,
		Version:            group.Version,
		GroupNumber:        group.GroupNumber,
		Description:        group.Description,
		TransactionDate:    timeToPgTimestamptz(group.TransactionDate),
		Status:             string(group.Status),
		TransactionType:    string(group.TransactionType),
		FundingType:        string(group.FundingType),
		TotalAmount:        decimalToNumeric(group.TotalAmount),
		ExternalDocumentID: group.ExternalDocumentID,
		SourceRefs:         nonNil(group.SourceRefs()),
		PayableRefs:        nonNil(group.PayableRefs()),
		AccountIds:         nonNil(group.AccountIDs()),
		Document:           doc,
		UpdatedAt:          timeToPgTimestamptz(group.UpdatedAt),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return groupUniqueError(err, group)
		}
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: group %s at version %d", domain.ErrConcurrentModification, group.ID, group.Version)
	}

	group.Version++
	return nil
}

// Delete removes the aggregate when the stored version still matches.
func (r *GroupRepository) Delete(ctx context.Context, tx usecase.Transaction, group *domain.TransactionGroup) error {
	rows, err := queriesFor(r.queries, tx).DeleteGroup(ctx, generated.DeleteGroupParams{
		ID:      group.ID,
		Version: group.Version,
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: group %s at version %d", domain.ErrConcurrentModification, group.ID, group.Version)
	}

	return nil
}

// GetByID retrieves a group by ID within scope.
func (r *GroupRepository) GetByID(ctx context.Context, tx usecase.Transaction, scope domain.Scope, id string) (*domain.TransactionGroup, error) {
	row, err := queriesFor(r.queries, tx).GetGroupByID(ctx, generated.GetGroupByIDParams{
		ID:             id,
		CreatedBy:      scope.ActorID,
		OrganizationID: scope.OrganizationID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}

	return rowToGroup(row)
}

// GetByIDsForUpdate locks the groups FOR UPDATE in ascending id order.
func (r *GroupRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, scope domain.Scope, ids []string) ([]*domain.TransactionGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := queriesFor(r.queries, tx).GetGroupsByIDsForUpdate(ctx, generated.GetGroupsByIDsForUpdateParams{
		Ids:            ids,
		CreatedBy:      scope.ActorID,
		OrganizationID: scope.OrganizationID,
	})
	if err != nil {
		return nil, err
	}

	return rowsToGroups(rows)
}

// GetByExternalDocument finds the group generated for an external document.
func (r *GroupRepository) GetByExternalDocument(ctx context.Context, tx usecase.Transaction, scope domain.Scope, documentID string) (*domain.TransactionGroup, error) {
	if documentID == "" {
		return nil, domain.ErrGroupNotFound
	}

	row, err := queriesFor(r.queries, tx).GetGroupByExternalDocument(ctx, generated.GetGroupByExternalDocumentParams{
		ExternalDocumentID: documentID,
		CreatedBy:          scope.ActorID,
		OrganizationID:     scope.OrganizationID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}

	return rowToGroup(row)
}

// ExistsGroupNumber reports whether another group in scope uses groupNumber.
func (r *GroupRepository) ExistsGroupNumber(ctx context.Context, tx usecase.Transaction, scope domain.Scope, groupNumber, excludeID string) (bool, error) {
	return queriesFor(r.queries, tx).GroupNumberExists(ctx, generated.GroupNumberExistsParams{
		GroupNumber:    groupNumber,
		CreatedBy:      scope.ActorID,
		OrganizationID: scope.OrganizationID,
		ExcludeID:      excludeID,
	})
}

// List returns one page of matching groups, newest first, and the total match count.
func (r *GroupRepository) List(ctx context.Context, scope domain.Scope, filter usecase.GroupFilter) ([]*domain.TransactionGroup, int, error) {
	dateFrom, dateTo := optionalTimestamptz(filter.DateFrom), optionalTimestamptz(filter.DateTo)

	var limit, offset int32
	if filter.Limit > 0 {
		limit = int32(filter.Limit)
		if filter.Page > 1 {
			offset = int32((filter.Page - 1) * filter.Limit)
		}
	}

	rows, err := r.queries.ListGroups(ctx, generated.ListGroupsParams{
		CreatedBy:       scope.ActorID,
		OrganizationID:  scope.OrganizationID,
		Status:          string(filter.Status),
		TransactionType: string(filter.TransactionType),
		AccountID:       filter.AccountID,
		DateFrom:        dateFrom,
		DateTo:          dateTo,
		Search:          filter.Search,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		return nil, 0, err
	}

	groups, err := rowsToGroups(rows)
	if err != nil {
		return nil, 0, err
	}
	if limit == 0 {
		return groups, len(groups), nil
	}

	total, err := r.queries.CountGroups(ctx, generated.CountGroupsParams{
		CreatedBy:       scope.ActorID,
		OrganizationID:  scope.OrganizationID,
		Status:          string(filter.Status),
		TransactionType: string(filter.TransactionType),
		AccountID:       filter.AccountID,
		DateFrom:        dateFrom,
		DateTo:          dateTo,
		Search:          filter.Search,
	})
	if err != nil {
		return nil, 0, err
	}

	return groups, int(total), nil
}

// ListReferencing returns groups whose source refs contain sourceID.
func (r *GroupRepository) ListReferencing(ctx context.Context, tx usecase.Transaction, scope domain.Scope, sourceID string, statuses []domain.GroupStatus) ([]*domain.TransactionGroup, error) {
	rows, err := queriesFor(r.queries, tx).ListGroupsReferencing(ctx, generated.ListGroupsReferencingParams{
		SourceID:       sourceID,
		CreatedBy:      scope.ActorID,
		OrganizationID: scope.OrganizationID,
		Statuses:       statusStrings(statuses),
	})
	if err != nil {
		return nil, err
	}

	return rowsToGroups(rows)
}

// ListPaymentsForPayable returns payment groups settling payableID.
func (r *GroupRepository) ListPaymentsForPayable(ctx context.Context, tx usecase.Transaction, scope domain.Scope, payableID string, statuses []domain.GroupStatus) ([]*domain.TransactionGroup, error) {
	rows, err := queriesFor(r.queries, tx).ListPaymentsForPayable(ctx, generated.ListPaymentsForPayableParams{
		PayableID:      payableID,
		CreatedBy:      scope.ActorID,
		OrganizationID: scope.OrganizationID,
		Statuses:       statusStrings(statuses),
	})
	if err != nil {
		return nil, err
	}

	return rowsToGroups(rows)
}

func statusStrings(statuses []domain.GroupStatus) []string {
	if len(statuses) == 0 {
		return []string{string(domain.GroupStatusDraft), string(domain.GroupStatusConfirmed), string(domain.GroupStatusCancelled)}
	}
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func marshalGroupDocument(g *domain.TransactionGroup) ([]byte, error) {
	doc := groupDocument{
		SourceTransactionID:  g.SourceTransactionID,
		LinkedTransactionIDs: g.LinkedTransactionIDs,
		FundingSourceUsages:  g.FundingSourceUsages,
		PaymentInfo:          g.PaymentInfo,
		PayableInfo:          g.PayableInfo,
		Entries:              g.Entries,
		ExternalReference:    g.ExternalReference,
		ConfirmedAt:          g.ConfirmedAt,
		CancelledAt:          g.CancelledAt,
		CancelReason:         g.CancelReason,
	}
	if doc.Entries == nil {
		doc.Entries = []domain.Entry{}
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode group %s: %w", g.ID, err)
	}
	return b, nil
}

func rowsToGroups(rows []generated.TransactionGroup) ([]*domain.TransactionGroup, error) {
	groups := make([]*domain.TransactionGroup, 0, len(rows))
	for _, row := range rows {
		g, err := rowToGroup(row)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func rowToGroup(row generated.TransactionGroup) (*domain.TransactionGroup, error) {
	var doc groupDocument
	if len(row.Document) > 0 {
		if err := json.Unmarshal(row.Document, &doc); err != nil {
			return nil, fmt.Errorf("decode group %s: %w", row.ID, err)
		}
	}

	return &domain.TransactionGroup{
		ID:                   row.ID,
		GroupNumber:          row.GroupNumber,
		Description:          row.Description,
		TransactionDate:      timestamptzTime(row.TransactionDate),
		OrganizationID:       row.OrganizationID,
		CreatedBy:            row.CreatedBy,
		Status:               domain.GroupStatus(row.Status),
		TransactionType:      domain.TransactionType(row.TransactionType),
		TotalAmount:          numericToDecimal(row.TotalAmount),
		FundingType:          domain.FundingType(row.FundingType),
		SourceTransactionID:  doc.SourceTransactionID,
		LinkedTransactionIDs: doc.LinkedTransactionIDs,
		FundingSourceUsages:  doc.FundingSourceUsages,
		PaymentInfo:          doc.PaymentInfo,
		PayableInfo:          doc.PayableInfo,
		Entries:              doc.Entries,
		ExternalDocumentID:   row.ExternalDocumentID,
		ExternalReference:    doc.ExternalReference,
		Version:              row.Version,
		ConfirmedAt:          doc.ConfirmedAt,
		CancelledAt:          doc.CancelledAt,
		CancelReason:         doc.CancelReason,
		CreatedAt:            timestamptzTime(row.CreatedAt),
		UpdatedAt:            timestamptzTime(row.UpdatedAt),
	}, nil
}

func timestamptzTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
