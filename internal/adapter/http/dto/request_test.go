package dto

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/pharmledger/internal/domain"
)

func TestCreateAccountRequest_ToUseCaseInput(t *testing.T) {
	parent := "acc-root"
	req := &CreateAccountRequest{
		Code:        "1100",
		Name:        "Cash",
		AccountType: "asset",
		ParentID:    &parent,
	}

	got := req.ToUseCaseInput()

	if got.Code != "1100" || got.Name != "Cash" || got.AccountType != domain.AccountTypeAsset {
		t.Fatalf("unexpected input %+v", got)
	}
	if got.ParentID == nil || *got.ParentID != "acc-root" {
		t.Fatalf("expected parent to be carried, got %v", got.ParentID)
	}
	if got.IsActive != nil {
		t.Fatalf("expected isActive to stay unset")
	}
}

func TestUpdateAccountRequest_ToUseCaseInput(t *testing.T) {
	typ := "expense"
	got := (&UpdateAccountRequest{AccountType: &typ}).ToUseCaseInput()

	if got.AccountType == nil || *got.AccountType != domain.AccountTypeExpense {
		t.Fatalf("expected account type patch, got %+v", got)
	}
	if got.Name != nil || got.ParentID != nil || got.IsActive != nil {
		t.Fatalf("expected untouched fields to stay nil, got %+v", got)
	}
}

func TestCreateGroupRequest_DecodesAmounts(t *testing.T) {
	body := `{
		"description": "Restock",
		"transactionType": "purchase",
		"entries": [
			{"accountId": "inv", "debitAmount": "1000.50", "creditAmount": 0, "sourceTransactionId": "src-1"},
			{"accountId": "cash", "debitAmount": 0, "creditAmount": 1000.5}
		],
		"fundingSourceUsages": [{"sourceTransactionId": "src-1", "usedAmount": "300"}]
	}`

	var req CreateGroupRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	input := req.ToUseCaseInput()

	if input.TransactionType != domain.TransactionTypePurchase {
		t.Fatalf("expected purchase, got %s", input.TransactionType)
	}
	if len(input.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(input.Entries))
	}
	if !input.Entries[0].DebitAmount.Equal(decimal.RequireFromString("1000.5")) {
		t.Fatalf("unexpected debit %s", input.Entries[0].DebitAmount)
	}
	if !input.Entries[1].CreditAmount.Equal(input.Entries[0].DebitAmount) {
		t.Fatalf("expected balanced legs, got %s vs %s", input.Entries[1].CreditAmount, input.Entries[0].DebitAmount)
	}
	if input.Entries[0].SourceTransactionID != "src-1" {
		t.Fatalf("expected source id on first entry")
	}
	if len(input.FundingSourceUsages) != 1 || !input.FundingSourceUsages[0].UsedAmount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected usages %+v", input.FundingSourceUsages)
	}
	if input.Status != "" {
		t.Fatalf("expected empty status to defer to the default, got %q", input.Status)
	}
}

func TestUpdateGroupRequest_ToUseCaseInput(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantEntries bool
		wantUsages  *int
	}{
		{name: "description only", body: `{"description":"x"}`},
		{name: "replace entries", body: `{"entries":[{"accountId":"a","debitAmount":"1"},{"accountId":"b","creditAmount":"1"}]}`, wantEntries: true},
		{name: "clear usages", body: `{"fundingSourceUsages":[]}`, wantUsages: intPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateGroupRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			input := req.ToUseCaseInput()

			if (input.Entries != nil) != tt.wantEntries {
				t.Fatalf("entries presence = %v, want %v", input.Entries != nil, tt.wantEntries)
			}
			if tt.wantUsages == nil && input.FundingSourceUsages != nil {
				t.Fatalf("expected usages untouched")
			}
			if tt.wantUsages != nil && (input.FundingSourceUsages == nil || len(*input.FundingSourceUsages) != *tt.wantUsages) {
				t.Fatalf("expected %d usages, got %v", *tt.wantUsages, input.FundingSourceUsages)
			}
		})
	}
}

func TestCreatePaymentRequest_ToUseCaseInput(t *testing.T) {
	req := &CreatePaymentRequest{
		Description: "Pay supplier",
		Entries: []EntryRequest{
			{AccountID: "ap", DebitAmount: decimal.NewFromInt(400)},
			{AccountID: "cash", CreditAmount: decimal.NewFromInt(400)},
		},
		PayableTransactions: []PayableAllocationRequest{{PayableTransactionID: "pay-1", Amount: decimal.NewFromInt(400)}},
		Status:              "confirmed",
	}

	got := req.ToUseCaseInput()

	if got.Status != domain.GroupStatusConfirmed {
		t.Fatalf("expected confirmed status, got %s", got.Status)
	}
	if len(got.Payables) != 1 || got.Payables[0].PayableTransactionID != "pay-1" {
		t.Fatalf("unexpected payables %+v", got.Payables)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("expected entries to be converted")
	}
}

func TestCreateAllocationRequest_ToUseCaseInput(t *testing.T) {
	req := &CreateAllocationRequest{Allocations: []AllocationRequest{
		{SourceTransactionID: "src-1", Amount: decimal.NewFromInt(200), EntryIndex: 1},
	}}

	got := req.ToUseCaseInput()

	if len(got) != 1 || got[0].EntryIndex != 1 || got[0].SourceTransactionID != "src-1" {
		t.Fatalf("unexpected allocations %+v", got)
	}
}

func TestExternalDocumentRequest_ToDomain(t *testing.T) {
	req := &ExternalDocumentRequest{
		ID:                  "po-1",
		Status:              "completed",
		TotalAmount:         decimal.NewFromInt(900),
		CandidateAccountIDs: []string{"inv", "ap"},
	}

	doc := req.ToDomain("org-1")

	if doc.Status != domain.ExternalDocumentCompleted || doc.OrganizationID != "org-1" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if len(doc.CandidateAccountIDs) != 2 {
		t.Fatalf("expected candidate accounts to be carried")
	}
}

func intPtr(i int) *int { return &i }
