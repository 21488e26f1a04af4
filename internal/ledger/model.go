package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountState gates whether an account's wallets may take part in transfers.
type AccountState string

const (
	AccountOpen      AccountState = "OPEN"
	AccountClosed    AccountState = "CLOSED"
	AccountSuspended AccountState = "SUSPENDED"
	AccountFrozen    AccountState = "FROZEN"
)

// ParseAccountState converts a wire string into an AccountState.
func ParseAccountState(s string) (AccountState, bool) {
	switch AccountState(s) {
	case AccountOpen, AccountClosed, AccountSuspended, AccountFrozen:
		return AccountState(s), true
	}
	return "", false
}

// PostingState tracks the settlement status of one posting leg.
type PostingState string

const (
	PostingPending PostingState = "PENDING"
	PostingCleared PostingState = "CLEARED"
	PostingFailed  PostingState = "FAILED"
)

// ParsePostingState converts a wire string into a PostingState.
func ParsePostingState(s string) (PostingState, bool) {
	switch PostingState(s) {
	case PostingPending, PostingCleared, PostingFailed:
		return PostingState(s), true
	}
	return "", false
}

// AssetType identifies the asset a wallet holds.
type AssetType string

// AssetFiat is the single asset type provisioned for default wallets.
const AssetFiat AssetType = "FIAT_CURRENCY"

// Entity is the top-level ownership unit; it owns an ordered set of accounts.
type Entity struct {
	ID       string
	Accounts []*Account
}

// Account groups wallets under a lifecycle state.
type Account struct {
	ID      string
	State   AccountState
	Wallets []*Wallet
}

// Wallet holds a single-asset balance together with its posting log and
// balance history. The account back-reference exists only so transfer-time
// gating can check the owning account's state.
type Wallet struct {
	ID        string
	AssetType AssetType
	Balance   decimal.Decimal

	account  *Account
	Postings []*Posting
	History  []BalanceEntry
}

// Posting is one signed leg of a movement. The two legs of a movement share
// the same id: negative amount on the source side, positive on the
// destination side.
type Posting struct {
	ID       string
	Amount   decimal.Decimal
	State    PostingState
	DateTime time.Time
}

// BalanceEntry is an immutable snapshot of a wallet balance at a point in time.
type BalanceEntry struct {
	Balance   decimal.Decimal
	Timestamp time.Time
}

// TransferRequest describes one requested leg of a transfer batch.
type TransferRequest struct {
	SourceWalletID      string
	DestinationWalletID string
	Amount              decimal.Decimal
}

// NewEntity constructs an entity owning the given accounts and wires each
// wallet's back-reference to its account.
func NewEntity(id string, accounts ...*Account) *Entity {
	e := &Entity{ID: id, Accounts: accounts}
	for _, a := range e.Accounts {
		for _, w := range a.Wallets {
			w.account = a
		}
	}
	return e
}

// NewWallet constructs a wallet with an opening balance and seeds its history
// with the opening snapshot.
func NewWallet(id string, asset AssetType, opening decimal.Decimal, at time.Time) *Wallet {
	w := &Wallet{ID: id, AssetType: asset, Balance: opening}
	w.recordBalance(at)
	return w
}

// Account returns the owning account, used for transfer-time gating only.
func (w *Wallet) Account() *Account { return w.account }

func (w *Wallet) recordBalance(at time.Time) {
	w.History = append(w.History, BalanceEntry{Balance: w.Balance, Timestamp: at})
}

// BalanceAt returns the wallet balance as of the given instant: the most
// recent history entry whose timestamp is not after t. The second return is
// false when the wallet has no history at or before t.
func (w *Wallet) BalanceAt(t time.Time) (decimal.Decimal, bool) {
	for i := len(w.History) - 1; i >= 0; i-- {
		if !w.History[i].Timestamp.After(t) {
			return w.History[i].Balance, true
		}
	}
	return decimal.Zero, false
}

func (w *Wallet) findPosting(postingID string) *Posting {
	for _, p := range w.Postings {
		if p.ID == postingID {
			return p
		}
	}
	return nil
}

func (e *Entity) findAccount(accountID string) *Account {
	for _, a := range e.Accounts {
		if a.ID == accountID {
			return a
		}
	}
	return nil
}

func (e *Entity) findWallet(walletID string) *Wallet {
	for _, a := range e.Accounts {
		for _, w := range a.Wallets {
			if w.ID == walletID {
				return w
			}
		}
	}
	return nil
}
