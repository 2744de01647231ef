package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func debit(seq int, account, amount string) Entry {
	return Entry{Sequence: seq, AccountID: account, DebitAmount: d(amount)}
}

func credit(seq int, account, amount string) Entry {
	return Entry{Sequence: seq, AccountID: account, CreditAmount: d(amount)}
}

func TestGroupStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to GroupStatus
		want     bool
	}{
		{GroupStatusDraft, GroupStatusConfirmed, true},
		{GroupStatusDraft, GroupStatusCancelled, true},
		{GroupStatusConfirmed, GroupStatusCancelled, true},
		{GroupStatusConfirmed, GroupStatusDraft, false},
		{GroupStatusCancelled, GroupStatusDraft, false},
		{GroupStatusCancelled, GroupStatusConfirmed, false},
		{GroupStatusDraft, GroupStatusDraft, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransactionGroup_ValidateEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		target  error
	}{
		{
			name:    "balanced",
			entries: []Entry{debit(1, "a", "100"), credit(2, "b", "100")},
		},
		{
			name:    "no entries",
			entries: nil,
			target:  ErrValidation,
		},
		{
			name:    "single entry",
			entries: []Entry{debit(1, "a", "100")},
			target:  ErrValidation,
		},
		{
			name: "both sides positive",
			entries: []Entry{
				{Sequence: 1, AccountID: "a", DebitAmount: d("10"), CreditAmount: d("10")},
				credit(2, "b", "0"),
			},
			target: ErrValidation,
		},
		{
			name:    "neither side positive",
			entries: []Entry{debit(1, "a", "0"), credit(2, "b", "0")},
			target:  ErrValidation,
		},
		{
			name:    "duplicate sequence",
			entries: []Entry{debit(1, "a", "100"), credit(1, "b", "100")},
			target:  ErrValidation,
		},
		{
			name:    "one cent imbalance",
			entries: []Entry{debit(1, "a", "100.01"), credit(2, "b", "100")},
			target:  ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &TransactionGroup{ID: "g1", Entries: tt.entries}
			err := g.ValidateEntries()

			if tt.target == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Fatalf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestTransactionGroup_ImbalanceReportsTotals(t *testing.T) {
	g := &TransactionGroup{Entries: []Entry{debit(1, "a", "1000"), credit(2, "b", "500")}}

	err := g.ValidateEntries()

	var imbalance *ImbalanceError
	if !errors.As(err, &imbalance) {
		t.Fatalf("expected ImbalanceError, got %v", err)
	}
	if !imbalance.Debit.Equal(d("1000")) || !imbalance.Credit.Equal(d("500")) {
		t.Errorf("unexpected totals %s / %s", imbalance.Debit, imbalance.Credit)
	}
	want := "debits (1000) do not equal credits (500), difference 500"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestTransactionGroup_NormalizeEntries(t *testing.T) {
	g := &TransactionGroup{Entries: []Entry{
		credit(5, "b", "99.999"),
		debit(0, "a", "100"),
		debit(2, "c", "0.001"),
	}}

	g.NormalizeEntries()

	wantSeq := []int{2, 5, 6}
	for i, e := range g.Entries {
		if e.Sequence != wantSeq[i] {
			t.Errorf("entry %d sequence = %d, want %d", i, e.Sequence, wantSeq[i])
		}
	}
	if !g.Entries[1].CreditAmount.Equal(d("100")) {
		t.Errorf("expected rounded credit 100, got %s", g.Entries[1].CreditAmount)
	}
	if !g.TotalAmount.Equal(d("100")) {
		t.Errorf("expected total 100, got %s", g.TotalAmount)
	}
}

func TestTransactionGroup_Confirm(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("draft to confirmed", func(t *testing.T) {
		g := &TransactionGroup{
			Status:  GroupStatusDraft,
			Entries: []Entry{debit(1, "a", "1000"), credit(2, "b", "1000")},
		}
		if err := g.Confirm(now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if g.Status != GroupStatusConfirmed || g.ConfirmedAt == nil {
			t.Fatalf("expected confirmed with timestamp, got %s", g.Status)
		}
		if !g.TotalAmount.Equal(d("1000")) {
			t.Errorf("expected total 1000, got %s", g.TotalAmount)
		}
	})

	t.Run("already confirmed", func(t *testing.T) {
		g := &TransactionGroup{Status: GroupStatusConfirmed}
		if err := g.Confirm(now); !errors.Is(err, ErrAlreadyConfirmed) {
			t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
		}
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		g := &TransactionGroup{Status: GroupStatusCancelled}
		if err := g.Confirm(now); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("single entry", func(t *testing.T) {
		g := &TransactionGroup{Status: GroupStatusDraft, Entries: []Entry{debit(1, "a", "10")}}
		if err := g.Confirm(now); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if g.Status != GroupStatusDraft {
			t.Errorf("status changed on failure: %s", g.Status)
		}
	})
}

func TestTransactionGroup_Cancel(t *testing.T) {
	now := time.Now()
	g := &TransactionGroup{Status: GroupStatusConfirmed}

	if err := g.Cancel(now, "duplicate"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Status != GroupStatusCancelled || g.CancelReason != "duplicate" || g.CancelledAt == nil {
		t.Fatalf("unexpected state after cancel: %+v", g)
	}
	if err := g.Cancel(now, "again"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
}

func TestTransactionGroup_EnsureDraft(t *testing.T) {
	if err := (&TransactionGroup{Status: GroupStatusDraft}).EnsureDraft(); err != nil {
		t.Errorf("draft should be mutable, got %v", err)
	}
	if err := (&TransactionGroup{Status: GroupStatusConfirmed}).EnsureDraft(); !errors.Is(err, ErrImmutableTarget) {
		t.Errorf("expected ErrImmutableTarget, got %v", err)
	}
	if err := (&TransactionGroup{Status: GroupStatusCancelled}).EnsureDraft(); !errors.Is(err, ErrTerminal) {
		t.Errorf("expected ErrTerminal, got %v", err)
	}
}

func TestTransactionGroup_SourceRefs(t *testing.T) {
	g := &TransactionGroup{
		Entries:              []Entry{{SourceTransactionID: "s2"}, {SourceTransactionID: "s1"}},
		LinkedTransactionIDs: []string{"s3", "s1"},
		FundingSourceUsages:  []FundingSourceUsage{{SourceTransactionID: "s4"}},
		SourceTransactionID:  "origin",
	}

	refs := g.SourceRefs()
	want := []string{"s1", "s2", "s3", "s4"}
	if len(refs) != len(want) {
		t.Fatalf("refs = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("refs = %v, want %v", refs, want)
		}
	}
}

func TestTransactionGroup_ContributionTo(t *testing.T) {
	t.Run("precise usage wins over entry attribution", func(t *testing.T) {
		g := &TransactionGroup{
			Entries:             []Entry{{SourceTransactionID: "s", DebitAmount: d("300")}},
			FundingSourceUsages: []FundingSourceUsage{{SourceTransactionID: "s", UsedAmount: d("120")}},
		}
		if got := g.ContributionTo("s", nil); !got.Equal(d("120")) {
			t.Errorf("got %s, want 120", got)
		}
	})

	t.Run("entry attribution sums tagged entries", func(t *testing.T) {
		g := &TransactionGroup{Entries: []Entry{
			{SourceTransactionID: "s", DebitAmount: d("300")},
			{CreditAmount: d("300")},
		}}
		if got := g.ContributionTo("s", nil); !got.Equal(d("300")) {
			t.Errorf("got %s, want 300", got)
		}
	})

	t.Run("legacy pro-rata split", func(t *testing.T) {
		g := &TransactionGroup{
			TotalAmount:          d("300"),
			LinkedTransactionIDs: []string{"s1", "s2"},
		}
		totals := map[string]decimal.Decimal{"s1": d("1000"), "s2": d("500")}

		if !g.NeedsLinkedTotals("s1") {
			t.Fatal("expected pro-rata path")
		}
		if got := g.ContributionTo("s1", totals); !got.Equal(d("200")) {
			t.Errorf("s1 got %s, want 200", got)
		}
		if got := g.ContributionTo("s2", totals); !got.Equal(d("100")) {
			t.Errorf("s2 got %s, want 100", got)
		}
	})

	t.Run("unrelated source", func(t *testing.T) {
		g := &TransactionGroup{LinkedTransactionIDs: []string{"s1"}, TotalAmount: d("10")}
		if got := g.ContributionTo("other", nil); !got.IsZero() {
			t.Errorf("got %s, want 0", got)
		}
	})
}

func TestPayableInfo_RemainingAmount(t *testing.T) {
	p := &PayableInfo{PayableAmount: d("1000"), TotalPaidAmount: d("600")}
	if got := p.RemainingAmount(); !got.Equal(d("400")) {
		t.Errorf("got %s, want 400", got)
	}

	p.TotalPaidAmount = d("1200")
	if got := p.RemainingAmount(); !got.IsZero() {
		t.Errorf("overpaid remaining should be 0, got %s", got)
	}
}
