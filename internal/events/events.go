package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumapay/lumapay/internal/ledger"
)

// Event is the closed set of domain events the gateway consumes. The
// concrete payload types below are the only implementations; the gateway
// matches on them exhaustively.
type Event interface {
	kind() string
}

// EntityCreated materializes a new entity with its default account and wallets.
type EntityCreated struct {
	EntityID string `json:"entity_id"`
}

// TransferRequested moves amount between the entity's default wallets.
type TransferRequested struct {
	EntityID            string          `json:"entity_id"`
	SourceWalletID      string          `json:"source_wallet_id"`
	DestinationWalletID string          `json:"destination_wallet_id"`
	Amount              decimal.Decimal `json:"amount"`
}

// AccountStatusChanged overwrites an account's lifecycle state.
type AccountStatusChanged struct {
	EntityID  string              `json:"entity_id"`
	AccountID string              `json:"account_id"`
	NewState  ledger.AccountState `json:"new_state"`
}

// PostingModified amends a recorded posting pair's amount and state.
type PostingModified struct {
	EntityID            string              `json:"entity_id"`
	SourceWalletID      string              `json:"source_wallet_id"`
	DestinationWalletID string              `json:"destination_wallet_id"`
	PostingID           string              `json:"posting_id"`
	NewAmount           decimal.Decimal     `json:"new_amount"`
	NewState            ledger.PostingState `json:"new_state"`
}

func (EntityCreated) kind() string        { return "entity_created" }
func (TransferRequested) kind() string    { return "transfer_requested" }
func (AccountStatusChanged) kind() string { return "account_status_changed" }
func (PostingModified) kind() string      { return "posting_modified" }

const (
	// TopicMovementRecorded carries MovementRecorded notifications.
	TopicMovementRecorded = "movement_recorded"
	// TopicBalanceUpdated carries BalanceUpdated notifications.
	TopicBalanceUpdated = "balance_updated"
)

// MovementRecorded notifies downstream consumers that a movement was recorded
// or corrected; PostingID links back to the ledger posting pair.
type MovementRecorded struct {
	MovementID          string          `json:"movement_id"`
	SourceWalletID      string          `json:"source_wallet_id"`
	DestinationWalletID string          `json:"destination_wallet_id"`
	Amount              decimal.Decimal `json:"amount"`
	PostingID           string          `json:"posting_id"`
	RecordedAt          time.Time       `json:"recorded_at"`
}

// BalanceUpdated notifies downstream consumers that wallet balances moved.
type BalanceUpdated struct {
	SourceWalletID      string          `json:"source_wallet_id"`
	DestinationWalletID string          `json:"destination_wallet_id"`
	Amount              decimal.Decimal `json:"amount"`
}
