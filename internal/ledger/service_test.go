package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestEntity(t *testing.T, sourceBalance, destinationBalance int64) (*Projection, *Service, *Wallet, *Wallet) {
	t.Helper()

	opened := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	source := NewWallet("src", AssetFiat, dec(sourceBalance), opened)
	destination := NewWallet("dst", AssetFiat, dec(destinationBalance), opened)
	account := &Account{ID: "acct", State: AccountOpen, Wallets: []*Wallet{source, destination}}

	projection := NewProjection()
	projection.Put(NewEntity("entity", account))

	svc := NewService(projection)
	return projection, svc, source, destination
}

func TestTransferConservation(t *testing.T) {
	_, svc, source, destination := newTestEntity(t, 100, 50)

	ids, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(50)},
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 posting id, got %d", len(ids))
	}

	if !source.Balance.Equal(dec(50)) || !destination.Balance.Equal(dec(100)) {
		t.Fatalf("unexpected balances: src=%s dst=%s", source.Balance, destination.Balance)
	}
	total := source.Balance.Add(destination.Balance)
	if !total.Equal(dec(150)) {
		t.Fatalf("value not conserved: total=%s", total)
	}
}

func TestTransferRecordsPostingPair(t *testing.T) {
	_, svc, source, destination := newTestEntity(t, 100, 100)

	ids, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(10)},
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	sp := source.findPosting(ids[0])
	dp := destination.findPosting(ids[0])
	if sp == nil || dp == nil {
		t.Fatalf("posting pair not recorded on both wallets")
	}
	if !sp.Amount.Equal(dec(-10)) || !dp.Amount.Equal(dec(10)) {
		t.Fatalf("posting amounts not negated: src=%s dst=%s", sp.Amount, dp.Amount)
	}
	if sp.State != PostingCleared || dp.State != PostingCleared {
		t.Fatalf("postings not cleared: src=%s dst=%s", sp.State, dp.State)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	_, svc, source, destination := newTestEntity(t, 40, 50)

	_, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(50)},
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if !source.Balance.Equal(dec(40)) || !destination.Balance.Equal(dec(50)) {
		t.Fatalf("balances changed after rejection: src=%s dst=%s", source.Balance, destination.Balance)
	}
}

func TestTransferAccountNotOpen(t *testing.T) {
	for _, state := range []AccountState{AccountClosed, AccountSuspended, AccountFrozen} {
		t.Run(string(state), func(t *testing.T) {
			_, svc, source, destination := newTestEntity(t, 100, 100)
			source.Account().State = state

			_, err := svc.Transfer("entity", []TransferRequest{
				{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(10)},
			})
			if !errors.Is(err, ErrAccountNotOpen) {
				t.Fatalf("expected ErrAccountNotOpen, got %v", err)
			}
			if !source.Balance.Equal(dec(100)) || !destination.Balance.Equal(dec(100)) {
				t.Fatalf("balances changed: src=%s dst=%s", source.Balance, destination.Balance)
			}
		})
	}
}

func TestTransferEntityNotFound(t *testing.T) {
	_, svc, _, _ := newTestEntity(t, 100, 100)

	_, err := svc.Transfer("missing", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(10)},
	})
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestTransferWalletNotFound(t *testing.T) {
	_, svc, _, _ := newTestEntity(t, 100, 100)

	_, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "nope", DestinationWalletID: "dst", Amount: dec(10)},
	})
	if !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestTransferBatchRollback(t *testing.T) {
	_, svc, source, destination := newTestEntity(t, 100, 50)

	sourcePostings := len(source.Postings)
	sourceHistory := len(source.History)

	_, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(50)},
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(100)},
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if !source.Balance.Equal(dec(100)) || !destination.Balance.Equal(dec(50)) {
		t.Fatalf("balances not rolled back: src=%s dst=%s", source.Balance, destination.Balance)
	}
	if len(source.Postings) != sourcePostings || len(destination.Postings) != 0 {
		t.Fatalf("postings from the failed batch were not retracted")
	}
	if len(source.History) != sourceHistory {
		t.Fatalf("history from the failed batch was not retracted")
	}
}

func TestTransferRollbackScopeIsPerCall(t *testing.T) {
	_, svc, source, destination := newTestEntity(t, 100, 50)

	// A successful call must not leave a stale snapshot behind: a later
	// failing call may only restore state as of its own start.
	if _, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(30)},
	}); err != nil {
		t.Fatalf("first transfer failed: %v", err)
	}

	_, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(1000)},
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if !source.Balance.Equal(dec(70)) || !destination.Balance.Equal(dec(80)) {
		t.Fatalf("failed call restored pre-session state instead of pre-call state: src=%s dst=%s", source.Balance, destination.Balance)
	}
}

func TestTransferThenReconcileScenario(t *testing.T) {
	_, svc, source, destination := newTestEntity(t, 100, 100)

	ids, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(10)},
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(20)},
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 posting ids, got %d", len(ids))
	}
	if !source.Balance.Equal(dec(70)) || !destination.Balance.Equal(dec(130)) {
		t.Fatalf("post-transfer balances wrong: src=%s dst=%s", source.Balance, destination.Balance)
	}

	if err := svc.ModifyPosting("entity", "src", "dst", ids[0], dec(15), PostingCleared); err != nil {
		t.Fatalf("modify posting failed: %v", err)
	}
	if !source.Balance.Equal(dec(65)) || !destination.Balance.Equal(dec(135)) {
		t.Fatalf("post-reconciliation balances wrong: src=%s dst=%s", source.Balance, destination.Balance)
	}
}

func TestModifyPostingDelta(t *testing.T) {
	_, svc, source, destination := newTestEntity(t, 100, 100)

	ids, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(10)},
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	// Correcting 10 down to 4 must return 6 to the source.
	if err := svc.ModifyPosting("entity", "src", "dst", ids[0], dec(4), PostingCleared); err != nil {
		t.Fatalf("modify posting failed: %v", err)
	}
	if !source.Balance.Equal(dec(96)) || !destination.Balance.Equal(dec(104)) {
		t.Fatalf("delta applied incorrectly: src=%s dst=%s", source.Balance, destination.Balance)
	}

	sp := source.findPosting(ids[0])
	dp := destination.findPosting(ids[0])
	if !sp.Amount.Equal(dec(-4)) || !dp.Amount.Equal(dec(4)) {
		t.Fatalf("posting amounts not rewritten: src=%s dst=%s", sp.Amount, dp.Amount)
	}
}

func TestModifyPostingToNonClearedLeavesBalances(t *testing.T) {
	_, svc, source, destination := newTestEntity(t, 100, 100)

	ids, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(10)},
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	sourceHistory := len(source.History)

	if err := svc.ModifyPosting("entity", "src", "dst", ids[0], dec(25), PostingFailed); err != nil {
		t.Fatalf("modify posting failed: %v", err)
	}

	if !source.Balance.Equal(dec(90)) || !destination.Balance.Equal(dec(110)) {
		t.Fatalf("balances moved for a non-cleared correction: src=%s dst=%s", source.Balance, destination.Balance)
	}
	if len(source.History) != sourceHistory {
		t.Fatalf("history grew for a non-cleared correction")
	}
	if sp := source.findPosting(ids[0]); sp.State != PostingFailed || !sp.Amount.Equal(dec(-25)) {
		t.Fatalf("posting not rewritten: state=%s amount=%s", sp.State, sp.Amount)
	}
}

func TestModifyPostingIllegalStates(t *testing.T) {
	for _, state := range []PostingState{PostingPending, PostingFailed} {
		t.Run(string(state), func(t *testing.T) {
			_, svc, source, destination := newTestEntity(t, 100, 100)

			ids, err := svc.Transfer("entity", []TransferRequest{
				{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(10)},
			})
			if err != nil {
				t.Fatalf("transfer failed: %v", err)
			}
			source.findPosting(ids[0]).State = state

			err = svc.ModifyPosting("entity", "src", "dst", ids[0], dec(20), PostingCleared)
			if !errors.Is(err, ErrIllegalPostingState) {
				t.Fatalf("expected ErrIllegalPostingState, got %v", err)
			}
			if !source.Balance.Equal(dec(90)) || !destination.Balance.Equal(dec(110)) {
				t.Fatalf("rejected modification mutated balances: src=%s dst=%s", source.Balance, destination.Balance)
			}
			if dp := destination.findPosting(ids[0]); !dp.Amount.Equal(dec(10)) {
				t.Fatalf("rejected modification mutated posting amount: %s", dp.Amount)
			}
		})
	}
}

func TestModifyPostingNotFound(t *testing.T) {
	_, svc, _, _ := newTestEntity(t, 100, 100)

	if _, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(10)},
	}); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	err := svc.ModifyPosting("entity", "src", "dst", "no-such-posting", dec(20), PostingCleared)
	if !errors.Is(err, ErrPostingNotFound) {
		t.Fatalf("expected ErrPostingNotFound, got %v", err)
	}

	err = svc.ModifyPosting("entity", "src", "missing", "id", dec(20), PostingCleared)
	if !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}

	err = svc.ModifyPosting("missing", "src", "dst", "id", dec(20), PostingCleared)
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestChangeAccountState(t *testing.T) {
	_, svc, source, _ := newTestEntity(t, 100, 100)

	if err := svc.ChangeAccountState("entity", "acct", AccountFrozen); err != nil {
		t.Fatalf("change state failed: %v", err)
	}
	if source.Account().State != AccountFrozen {
		t.Fatalf("state not applied: %s", source.Account().State)
	}

	// Any state is reachable from any state.
	if err := svc.ChangeAccountState("entity", "acct", AccountOpen); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if err := svc.ChangeAccountState("entity", "acct", AccountClosed); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := svc.ChangeAccountState("entity", "missing", AccountOpen); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := svc.ChangeAccountState("missing", "acct", AccountOpen); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestHistoryAppendInvariant(t *testing.T) {
	_, svc, source, destination := newTestEntity(t, 100, 100)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	SetClock(svc, func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	ids, err := svc.Transfer("entity", []TransferRequest{
		{SourceWalletID: "src", DestinationWalletID: "dst", Amount: dec(10)},
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	// Opening snapshot plus one entry per balance change.
	if len(source.History) != 2 || len(destination.History) != 2 {
		t.Fatalf("expected one history entry per wallet per transfer, got %d/%d", len(source.History), len(destination.History))
	}

	if err := svc.ModifyPosting("entity", "src", "dst", ids[0], dec(15), PostingCleared); err != nil {
		t.Fatalf("modify posting failed: %v", err)
	}
	if len(source.History) != 3 || len(destination.History) != 3 {
		t.Fatalf("expected one history entry per wallet per correction, got %d/%d", len(source.History), len(destination.History))
	}

	for _, w := range []*Wallet{source, destination} {
		last := w.History[len(w.History)-1]
		if !last.Balance.Equal(w.Balance) {
			t.Fatalf("last history entry %s does not match balance %s", last.Balance, w.Balance)
		}
		for i := 1; i < len(w.History); i++ {
			if w.History[i].Timestamp.Before(w.History[i-1].Timestamp) {
				t.Fatalf("history timestamps not monotonic")
			}
		}
	}
}
