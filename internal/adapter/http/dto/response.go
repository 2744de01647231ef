package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/usecase"
)

// ErrorResponse represents an error in API responses. Details carries the
// violating quantities when the error has any.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	AccountType   string    `json:"accountType"`
	NormalBalance string    `json:"normalBalance"`
	ParentID      *string   `json:"parentId,omitempty"`
	Level         int       `json:"level"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		AccountType:   string(a.AccountType),
		NormalBalance: string(a.NormalBalance),
		ParentID:      a.ParentID,
		Level:         a.Level,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a list of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int                `json:"total"`
}

// GroupResponse represents a transaction group in API responses.
type GroupResponse struct {
	ID                   string                      `json:"id"`
	GroupNumber          string                      `json:"groupNumber"`
	Description          string                      `json:"description"`
	TransactionDate      time.Time                   `json:"transactionDate"`
	OrganizationID       string                      `json:"organizationId,omitempty"`
	CreatedBy            string                      `json:"createdBy"`
	Status               string                      `json:"status"`
	TransactionType      string                      `json:"transactionType"`
	FundingType          string                      `json:"fundingType"`
	TotalAmount          decimal.Decimal             `json:"totalAmount"`
	SourceTransactionID  string                      `json:"sourceTransactionId,omitempty"`
	LinkedTransactionIDs []string                    `json:"linkedTransactionIds,omitempty"`
	FundingSourceUsages  []domain.FundingSourceUsage `json:"fundingSourceUsages,omitempty"`
	PaymentInfo          *domain.PaymentInfo         `json:"paymentInfo,omitempty"`
	PayableInfo          *domain.PayableInfo         `json:"payableInfo,omitempty"`
	Entries              []domain.Entry              `json:"entries"`
	ExternalDocumentID   string                      `json:"externalDocumentId,omitempty"`
	ExternalReference    string                      `json:"externalReference,omitempty"`
	Version              int64                       `json:"version"`
	ConfirmedAt          *time.Time                  `json:"confirmedAt,omitempty"`
	CancelledAt          *time.Time                  `json:"cancelledAt,omitempty"`
	CancelReason         string                      `json:"cancelReason,omitempty"`
	CreatedAt            time.Time                   `json:"createdAt"`
	UpdatedAt            time.Time                   `json:"updatedAt"`
}

// GroupFromDomain converts a domain group to response.
func GroupFromDomain(g *domain.TransactionGroup) *GroupResponse {
	entries := g.Entries
	if entries == nil {
		entries = []domain.Entry{}
	}
	return &GroupResponse{
		ID:                   g.ID,
		GroupNumber:          g.GroupNumber,
		Description:          g.Description,
		TransactionDate:      g.TransactionDate,
		OrganizationID:       g.OrganizationID,
		CreatedBy:            g.CreatedBy,
		Status:               string(g.Status),
		TransactionType:      string(g.TransactionType),
		FundingType:          string(g.FundingType),
		TotalAmount:          g.TotalAmount,
		SourceTransactionID:  g.SourceTransactionID,
		LinkedTransactionIDs: g.LinkedTransactionIDs,
		FundingSourceUsages:  g.FundingSourceUsages,
		PaymentInfo:          g.PaymentInfo,
		PayableInfo:          g.PayableInfo,
		Entries:              entries,
		ExternalDocumentID:   g.ExternalDocumentID,
		ExternalReference:    g.ExternalReference,
		Version:              g.Version,
		ConfirmedAt:          g.ConfirmedAt,
		CancelledAt:          g.CancelledAt,
		CancelReason:         g.CancelReason,
		CreatedAt:            g.CreatedAt,
		UpdatedAt:            g.UpdatedAt,
	}
}

// GroupListResponse is one page of groups.
type GroupListResponse struct {
	Items []*GroupResponse `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// GroupPageFromUseCase converts a page of groups.
func GroupPageFromUseCase(p *usecase.GroupPage) *GroupListResponse {
	items := make([]*GroupResponse, len(p.Items))
	for i, g := range p.Items {
		items[i] = GroupFromDomain(g)
	}
	return &GroupListResponse{Items: items, Total: p.Total, Page: p.Page, Limit: p.Limit}
}

// UsageDetailResponse is one referencing group's draw on a source.
type UsageDetailResponse struct {
	TransactionID   string          `json:"transactionId"`
	GroupNumber     string          `json:"groupNumber"`
	Description     string          `json:"description,omitempty"`
	TransactionDate time.Time       `json:"transactionDate"`
	Amount          decimal.Decimal `json:"amount"`
}

// FundingUsageResponse is the balance of a funding source.
type FundingUsageResponse struct {
	SourceTransactionID string                `json:"sourceTransactionId"`
	GroupNumber         string                `json:"groupNumber"`
	Description         string                `json:"description,omitempty"`
	TransactionDate     time.Time             `json:"transactionDate"`
	TotalAmount         decimal.Decimal       `json:"totalAmount"`
	UsedAmount          decimal.Decimal       `json:"usedAmount"`
	AvailableAmount     decimal.Decimal       `json:"availableAmount"`
	ReferencedByCount   int                   `json:"referencedByCount"`
	ReferencedBy        []UsageDetailResponse `json:"referencedBy"`
}

// FundingUsageFromUseCase converts a usage report.
func FundingUsageFromUseCase(u *usecase.FundingUsage) *FundingUsageResponse {
	refs := make([]UsageDetailResponse, len(u.Usages))
	for i, d := range u.Usages {
		refs[i] = UsageDetailResponse{
			TransactionID:   d.TransactionID,
			GroupNumber:     d.GroupNumber,
			Description:     d.Description,
			TransactionDate: d.TransactionDate,
			Amount:          d.Amount,
		}
	}
	return &FundingUsageResponse{
		SourceTransactionID: u.SourceTransactionID,
		GroupNumber:         u.GroupNumber,
		Description:         u.Description,
		TransactionDate:     u.TransactionDate,
		TotalAmount:         u.TotalAmount,
		UsedAmount:          u.UsedAmount,
		AvailableAmount:     u.RemainingAmount,
		ReferencedByCount:   len(refs),
		ReferencedBy:        refs,
	}
}

// FundingUsagesFromUseCase converts a list of usage reports.
func FundingUsagesFromUseCase(usages []*usecase.FundingUsage) []*FundingUsageResponse {
	out := make([]*FundingUsageResponse, len(usages))
	for i, u := range usages {
		out[i] = FundingUsageFromUseCase(u)
	}
	return out
}

// BalanceResultResponse is one item of a batch balance answer.
type BalanceResultResponse struct {
	TransactionID string                `json:"transactionId"`
	Success       bool                  `json:"success"`
	Balance       *FundingUsageResponse `json:"balance,omitempty"`
	Error         string                `json:"error,omitempty"`
}

// BalanceResultsFromUseCase converts batch balance results.
func BalanceResultsFromUseCase(results []usecase.BalanceResult) []BalanceResultResponse {
	out := make([]BalanceResultResponse, len(results))
	for i, r := range results {
		out[i] = BalanceResultResponse{TransactionID: r.TransactionID, Success: r.Success, Error: r.Error}
		if r.Balance != nil {
			out[i].Balance = FundingUsageFromUseCase(r.Balance)
		}
	}
	return out
}

// AllocationReportResponse is the outcome of a funding validation.
type AllocationReportResponse struct {
	TransactionID   string   `json:"transactionId"`
	IsValid         bool     `json:"isValid"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// AllocationReportFromUseCase converts a validation report.
func AllocationReportFromUseCase(r *usecase.AllocationReport) *AllocationReportResponse {
	return &AllocationReportResponse{
		TransactionID:   r.TransactionID,
		IsValid:         r.IsValid,
		Issues:          nonNilStrings(r.Issues),
		Recommendations: nonNilStrings(r.Recommendations),
	}
}

// SourceUtilizationResponse is one source line of a flow analysis.
type SourceUtilizationResponse struct {
	TransactionID   string          `json:"transactionId"`
	GroupNumber     string          `json:"groupNumber"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	UsedAmount      decimal.Decimal `json:"usedAmount"`
	AvailableAmount decimal.Decimal `json:"availableAmount"`
	UtilizationRate decimal.Decimal `json:"utilizationRate"`
}

// FlowAnalysisResponse aggregates funding across sources.
type FlowAnalysisResponse struct {
	TotalFundingAmount decimal.Decimal             `json:"totalFundingAmount"`
	TotalUsedAmount    decimal.Decimal             `json:"totalUsedAmount"`
	TotalAvailable     decimal.Decimal             `json:"totalAvailableAmount"`
	Sources            []SourceUtilizationResponse `json:"sources"`
	Failed             []string                    `json:"failed,omitempty"`
}

// FlowAnalysisFromUseCase converts a flow analysis.
func FlowAnalysisFromUseCase(f *usecase.FlowAnalysis) *FlowAnalysisResponse {
	sources := make([]SourceUtilizationResponse, len(f.Sources))
	for i, s := range f.Sources {
		sources[i] = SourceUtilizationResponse{
			TransactionID:   s.TransactionID,
			GroupNumber:     s.GroupNumber,
			TotalAmount:     s.TotalAmount,
			UsedAmount:      s.UsedAmount,
			AvailableAmount: s.AvailableAmount,
			UtilizationRate: s.UtilizationRate,
		}
	}
	return &FlowAnalysisResponse{
		TotalFundingAmount: f.TotalFundingAmount,
		TotalUsedAmount:    f.TotalUsedAmount,
		TotalAvailable:     f.TotalAvailable,
		Sources:            sources,
		Failed:             f.Failed,
	}
}

// PayableStatusResponse is the settlement state of a document's payable.
type PayableStatusResponse struct {
	DocumentID      string                 `json:"documentId"`
	TransactionID   string                 `json:"transactionId"`
	PayableAmount   decimal.Decimal        `json:"payableAmount"`
	TotalPaidAmount decimal.Decimal        `json:"totalPaidAmount"`
	RemainingAmount decimal.Decimal        `json:"remainingAmount"`
	IsPaidOff       bool                   `json:"isPaidOff"`
	Payments        []domain.PaymentRecord `json:"payments"`
}

// PayableStatusFromUseCase converts a payable status.
func PayableStatusFromUseCase(s *usecase.PayableStatus) *PayableStatusResponse {
	payments := s.Payments
	if payments == nil {
		payments = []domain.PaymentRecord{}
	}
	return &PayableStatusResponse{
		DocumentID:      s.DocumentID,
		TransactionID:   s.TransactionID,
		PayableAmount:   s.PayableAmount,
		TotalPaidAmount: s.TotalPaidAmount,
		RemainingAmount: s.RemainingAmount,
		IsPaidOff:       s.IsPaidOff,
		Payments:        payments,
	}
}

// AutoEntryResponse reports the outcome of a document completion.
type AutoEntryResponse struct {
	DocumentID    string `json:"documentId"`
	TransactionID string `json:"transactionId,omitempty"`
	Created       bool   `json:"created"`
}

// DiscrepancyResponse is one broken group in a consistency report.
type DiscrepancyResponse struct {
	TransactionID string `json:"transactionId"`
	GroupNumber   string `json:"groupNumber"`
	Problem       string `json:"problem"`
}

// ConsistencyResponse is the ledger consistency report.
type ConsistencyResponse struct {
	Status        string                `json:"status"`
	Consistent    bool                  `json:"consistent"`
	CheckedGroups int                   `json:"checkedGroups"`
	TotalDebits   decimal.Decimal       `json:"totalDebits"`
	TotalCredits  decimal.Decimal       `json:"totalCredits"`
	Discrepancies []DiscrepancyResponse `json:"discrepancies"`
	CheckedAt     time.Time             `json:"checkedAt"`
}

// ConsistencyFromUseCase converts a consistency report.
func ConsistencyFromUseCase(r *usecase.ConsistencyReport) *ConsistencyResponse {
	items := make([]DiscrepancyResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		items[i] = DiscrepancyResponse{TransactionID: d.TransactionID, GroupNumber: d.GroupNumber, Problem: d.Problem}
	}
	status := "consistent"
	if !r.Consistent() {
		status = "inconsistent"
	}
	return &ConsistencyResponse{
		Status:        status,
		Consistent:    r.Consistent(),
		CheckedGroups: r.CheckedGroups,
		TotalDebits:   r.TotalDebits,
		TotalCredits:  r.TotalCredits,
		Discrepancies: items,
		CheckedAt:     r.CheckedAt,
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
