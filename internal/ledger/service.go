package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service executes transfers, posting reconciliations, and account lifecycle
// changes against a projection. It performs no I/O and never logs; failures
// surface as sentinel errors for the caller to map.
//
// Cross-entity calls may run concurrently; calls against the same entity must
// be serialized by the caller.
type Service struct {
	projection *Projection
	now        func() time.Time
}

// NewService constructs a ledger service over the given projection.
func NewService(projection *Projection) *Service {
	return &Service{projection: projection, now: time.Now}
}

// walletSnapshot captures the pre-call state of one wallet so a failed batch
// can be unwound exactly: balance, posting log length, and history length.
type walletSnapshot struct {
	wallet      *Wallet
	balance     decimal.Decimal
	postingsLen int
	historyLen  int
}

// Transfer processes the requests in order as one atomic batch and returns
// the generated posting ids, one per request. On any failure, every wallet
// touched by the call is restored to its pre-call state: balances, appended
// postings, and appended history entries are all unwound.
func (s *Service) Transfer(entityID string, requests []TransferRequest) ([]string, error) {
	entity, err := s.projection.Get(entityID)
	if err != nil {
		return nil, err
	}

	snapshots := make(map[string]walletSnapshot)
	snapshot := func(w *Wallet) {
		if _, seen := snapshots[w.ID]; !seen {
			snapshots[w.ID] = walletSnapshot{
				wallet:      w,
				balance:     w.Balance,
				postingsLen: len(w.Postings),
				historyLen:  len(w.History),
			}
		}
	}

	postingIDs := make([]string, 0, len(requests))
	for _, req := range requests {
		source := entity.findWallet(req.SourceWalletID)
		if source == nil {
			rollback(snapshots)
			return nil, fmt.Errorf("source wallet %s: %w", req.SourceWalletID, ErrWalletNotFound)
		}
		destination := entity.findWallet(req.DestinationWalletID)
		if destination == nil {
			rollback(snapshots)
			return nil, fmt.Errorf("destination wallet %s: %w", req.DestinationWalletID, ErrWalletNotFound)
		}

		if source.Account().State != AccountOpen || destination.Account().State != AccountOpen {
			rollback(snapshots)
			return nil, ErrAccountNotOpen
		}

		snapshot(source)
		snapshot(destination)

		if source.Balance.Cmp(req.Amount) < 0 {
			rollback(snapshots)
			return nil, ErrInsufficientBalance
		}

		now := s.now()
		moveBalance(source, destination, req.Amount, now)

		postingID := uuid.NewString()
		source.Postings = append(source.Postings, &Posting{
			ID:       postingID,
			Amount:   req.Amount.Neg(),
			State:    PostingCleared,
			DateTime: now,
		})
		destination.Postings = append(destination.Postings, &Posting{
			ID:       postingID,
			Amount:   req.Amount,
			State:    PostingCleared,
			DateTime: now,
		})
		postingIDs = append(postingIDs, postingID)
	}

	return postingIDs, nil
}

// ModifyPosting amends a previously recorded posting pair. Both legs must be
// CLEARED; a PENDING or FAILED leg rejects the call. When the new state is
// CLEARED the wallet balances move by the delta between the old and new
// amount; otherwise only the postings change.
func (s *Service) ModifyPosting(entityID, sourceWalletID, destinationWalletID, postingID string, newAmount decimal.Decimal, newState PostingState) error {
	entity, err := s.projection.Get(entityID)
	if err != nil {
		return err
	}

	source := entity.findWallet(sourceWalletID)
	if source == nil {
		return fmt.Errorf("source wallet %s: %w", sourceWalletID, ErrWalletNotFound)
	}
	destination := entity.findWallet(destinationWalletID)
	if destination == nil {
		return fmt.Errorf("destination wallet %s: %w", destinationWalletID, ErrWalletNotFound)
	}

	sourcePosting := source.findPosting(postingID)
	if sourcePosting == nil {
		return fmt.Errorf("posting %s on wallet %s: %w", postingID, sourceWalletID, ErrPostingNotFound)
	}
	destinationPosting := destination.findPosting(postingID)
	if destinationPosting == nil {
		return fmt.Errorf("posting %s on wallet %s: %w", postingID, destinationWalletID, ErrPostingNotFound)
	}

	if sourcePosting.State == PostingFailed || destinationPosting.State == PostingFailed {
		return fmt.Errorf("cannot modify a failed posting: %w", ErrIllegalPostingState)
	}
	if sourcePosting.State == PostingPending || destinationPosting.State == PostingPending {
		return fmt.Errorf("cannot modify a pending posting: %w", ErrIllegalPostingState)
	}

	oldSourceAmount := sourcePosting.Amount
	sourcePosting.Amount = newAmount.Neg()
	destinationPosting.Amount = newAmount
	sourcePosting.State = newState
	destinationPosting.State = newState

	// Balances move only when the corrected pair clears. The old source
	// amount is negative, so the sum is the delta against the prior amount.
	if newState == PostingCleared {
		difference := newAmount.Add(oldSourceAmount)
		moveBalance(source, destination, difference, s.now())
	}

	return nil
}

// ChangeAccountState overwrites the account's state. Any state is reachable
// from any state; gating is enforced at transfer time instead.
func (s *Service) ChangeAccountState(entityID, accountID string, newState AccountState) error {
	entity, err := s.projection.Get(entityID)
	if err != nil {
		return err
	}

	account := entity.findAccount(accountID)
	if account == nil {
		return fmt.Errorf("account %s: %w", accountID, ErrAccountNotFound)
	}

	account.State = newState
	return nil
}

// moveBalance debits the source and credits the destination by amount,
// appending one history snapshot to each wallet.
func moveBalance(source, destination *Wallet, amount decimal.Decimal, at time.Time) {
	source.Balance = source.Balance.Sub(amount)
	source.recordBalance(at)

	destination.Balance = destination.Balance.Add(amount)
	destination.recordBalance(at)
}

func rollback(snapshots map[string]walletSnapshot) {
	for _, snap := range snapshots {
		w := snap.wallet
		w.Balance = snap.balance
		w.Postings = w.Postings[:snap.postingsLen]
		w.History = w.History[:snap.historyLen]
	}
}
