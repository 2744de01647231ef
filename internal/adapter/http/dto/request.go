package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	AccountType   string  `json:"accountType"`
	NormalBalance string  `json:"normalBalance,omitempty"`
	ParentID      *string `json:"parentId,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Code:          r.Code,
		Name:          r.Name,
		AccountType:   domain.AccountType(r.AccountType),
		NormalBalance: domain.NormalBalance(r.NormalBalance),
		ParentID:      r.ParentID,
		IsActive:      r.IsActive,
	}
}

// UpdateAccountRequest is a partial account update.
type UpdateAccountRequest struct {
	Name        *string `json:"name,omitempty"`
	AccountType *string `json:"accountType,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateAccountRequest) ToUseCaseInput() usecase.UpdateAccountInput {
	input := usecase.UpdateAccountInput{
		Name:     r.Name,
		ParentID: r.ParentID,
		IsActive: r.IsActive,
	}
	if r.AccountType != nil {
		t := domain.AccountType(*r.AccountType)
		input.AccountType = &t
	}
	return input
}

// EntryRequest is one leg of a transaction group.
type EntryRequest struct {
	AccountID           string          `json:"accountId"`
	DebitAmount         decimal.Decimal `json:"debitAmount"`
	CreditAmount        decimal.Decimal `json:"creditAmount"`
	Description         string          `json:"description,omitempty"`
	SourceTransactionID string          `json:"sourceTransactionId,omitempty"`
	FundingPath         []string        `json:"fundingPath,omitempty"`
}

// FundingSourceUsageRequest declares a precise draw on a funding source.
type FundingSourceUsageRequest struct {
	SourceTransactionID string          `json:"sourceTransactionId"`
	UsedAmount          decimal.Decimal `json:"usedAmount"`
	Description         string          `json:"description,omitempty"`
}

// CreateGroupRequest represents a request to create a transaction group.
type CreateGroupRequest struct {
	GroupNumber          string                      `json:"groupNumber,omitempty"`
	Description          string                      `json:"description"`
	TransactionDate      *time.Time                  `json:"transactionDate,omitempty"`
	TransactionType      string                      `json:"transactionType,omitempty"`
	FundingType          string                      `json:"fundingType,omitempty"`
	SourceTransactionID  string                      `json:"sourceTransactionId,omitempty"`
	LinkedTransactionIDs []string                    `json:"linkedTransactionIds,omitempty"`
	FundingSourceUsages  []FundingSourceUsageRequest `json:"fundingSourceUsages,omitempty"`
	Entries              []EntryRequest              `json:"entries"`
	Status               string                      `json:"status,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateGroupRequest) ToUseCaseInput() usecase.CreateGroupInput {
	return usecase.CreateGroupInput{
		GroupNumber:          r.GroupNumber,
		Description:          r.Description,
		TransactionDate:      r.TransactionDate,
		TransactionType:      domain.TransactionType(r.TransactionType),
		FundingType:          domain.FundingType(r.FundingType),
		SourceTransactionID:  r.SourceTransactionID,
		LinkedTransactionIDs: r.LinkedTransactionIDs,
		FundingSourceUsages:  usagesToDomain(r.FundingSourceUsages),
		Entries:              entriesToDomain(r.Entries),
		Status:               domain.GroupStatus(r.Status),
	}
}

// UpdateGroupRequest is a partial update of a draft group.
type UpdateGroupRequest struct {
	GroupNumber          *string                      `json:"groupNumber,omitempty"`
	Description          *string                      `json:"description,omitempty"`
	TransactionDate      *time.Time                   `json:"transactionDate,omitempty"`
	TransactionType      *string                      `json:"transactionType,omitempty"`
	FundingType          *string                      `json:"fundingType,omitempty"`
	SourceTransactionID  *string                      `json:"sourceTransactionId,omitempty"`
	LinkedTransactionIDs *[]string                    `json:"linkedTransactionIds,omitempty"`
	FundingSourceUsages  *[]FundingSourceUsageRequest `json:"fundingSourceUsages,omitempty"`
	Entries              []EntryRequest               `json:"entries,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateGroupRequest) ToUseCaseInput() usecase.UpdateGroupInput {
	input := usecase.UpdateGroupInput{
		GroupNumber:          r.GroupNumber,
		Description:          r.Description,
		TransactionDate:      r.TransactionDate,
		SourceTransactionID:  r.SourceTransactionID,
		LinkedTransactionIDs: r.LinkedTransactionIDs,
	}
	if r.TransactionType != nil {
		t := domain.TransactionType(*r.TransactionType)
		input.TransactionType = &t
	}
	if r.FundingType != nil {
		f := domain.FundingType(*r.FundingType)
		input.FundingType = &f
	}
	if r.FundingSourceUsages != nil {
		usages := usagesToDomain(*r.FundingSourceUsages)
		if usages == nil {
			usages = []domain.FundingSourceUsage{}
		}
		input.FundingSourceUsages = &usages
	}
	if r.Entries != nil {
		input.Entries = entriesToDomain(r.Entries)
	}
	return input
}

// CancelGroupRequest carries the optional cancel reason.
type CancelGroupRequest struct {
	Reason string `json:"reason,omitempty"`
}

// BatchBalanceRequest asks for the balance of several groups.
type BatchBalanceRequest struct {
	TransactionIDs []string `json:"transactionIds"`
}

// AllocationRequest draws an amount from a source onto one entry.
type AllocationRequest struct {
	SourceTransactionID string          `json:"sourceTransactionId"`
	Amount              decimal.Decimal `json:"amount"`
	EntryIndex          int             `json:"entryIndex"`
}

// CreateAllocationRequest represents a funding allocation on a draft group.
type CreateAllocationRequest struct {
	Allocations []AllocationRequest `json:"allocations"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAllocationRequest) ToUseCaseInput() []usecase.AllocationInput {
	out := make([]usecase.AllocationInput, len(r.Allocations))
	for i, a := range r.Allocations {
		out[i] = usecase.AllocationInput{
			SourceTransactionID: a.SourceTransactionID,
			Amount:              a.Amount,
			EntryIndex:          a.EntryIndex,
		}
	}
	return out
}

// PayableAllocationRequest settles part of one payable.
type PayableAllocationRequest struct {
	PayableTransactionID string          `json:"payableTransactionId"`
	Amount               decimal.Decimal `json:"amount"`
}

// CreatePaymentRequest represents a payment transaction.
type CreatePaymentRequest struct {
	GroupNumber         string                     `json:"groupNumber,omitempty"`
	Description         string                     `json:"description"`
	TransactionDate     *time.Time                 `json:"transactionDate,omitempty"`
	Entries             []EntryRequest             `json:"entries"`
	PayableTransactions []PayableAllocationRequest `json:"payableTransactions"`
	Status              string                     `json:"status,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePaymentRequest) ToUseCaseInput() usecase.CreatePaymentInput {
	payables := make([]domain.PayableAllocation, len(r.PayableTransactions))
	for i, p := range r.PayableTransactions {
		payables[i] = domain.PayableAllocation{PayableTransactionID: p.PayableTransactionID, Amount: p.Amount}
	}
	return usecase.CreatePaymentInput{
		GroupNumber:     r.GroupNumber,
		Description:     r.Description,
		TransactionDate: r.TransactionDate,
		Entries:         entriesToDomain(r.Entries),
		Payables:        payables,
		Status:          domain.GroupStatus(r.Status),
	}
}

// BatchPayableStatusRequest asks which documents have received payments.
type BatchPayableStatusRequest struct {
	DocumentIDs []string `json:"documentIds"`
}

// ExternalDocumentRequest is a business document reported as completed.
type ExternalDocumentRequest struct {
	ID                  string          `json:"id"`
	Identifier          string          `json:"identifier,omitempty"`
	Status              string          `json:"status"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	InvoiceNumber       string          `json:"invoiceNumber,omitempty"`
	Description         string          `json:"description,omitempty"`
	CandidateAccountIDs []string        `json:"candidateAccountIds"`
}

// ToDomain converts the request to a domain document.
func (r *ExternalDocumentRequest) ToDomain(organizationID string) *domain.ExternalDocument {
	return &domain.ExternalDocument{
		ID:                  r.ID,
		Identifier:          r.Identifier,
		Status:              domain.ExternalDocumentStatus(r.Status),
		TotalAmount:         r.TotalAmount,
		InvoiceNumber:       r.InvoiceNumber,
		Description:         r.Description,
		CandidateAccountIDs: r.CandidateAccountIDs,
		OrganizationID:      organizationID,
	}
}

func entriesToDomain(entries []EntryRequest) []domain.Entry {
	if entries == nil {
		return nil
	}
	out := make([]domain.Entry, len(entries))
	for i, e := range entries {
		out[i] = domain.Entry{
			AccountID:           e.AccountID,
			DebitAmount:         e.DebitAmount,
			CreditAmount:        e.CreditAmount,
			Description:         e.Description,
			SourceTransactionID: e.SourceTransactionID,
			FundingPath:         e.FundingPath,
		}
	}
	return out
}

func usagesToDomain(usages []FundingSourceUsageRequest) []domain.FundingSourceUsage {
	if len(usages) == 0 {
		return nil
	}
	out := make([]domain.FundingSourceUsage, len(usages))
	for i, u := range usages {
		out[i] = domain.FundingSourceUsage{
			SourceTransactionID: u.SourceTransactionID,
			UsedAmount:          u.UsedAmount,
			Description:         u.Description,
		}
	}
	return out
}
