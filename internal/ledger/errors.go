package ledger

import "errors"

var (
	// ErrEntityNotFound occurs when the entity id does not exist in the projection.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrAccountNotFound occurs when an account id does not resolve inside the entity.
	ErrAccountNotFound = errors.New("account not found")

	// ErrWalletNotFound occurs when a wallet id does not resolve inside the entity.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrPostingNotFound occurs when a posting id is absent from a wallet's posting log.
	ErrPostingNotFound = errors.New("posting not found")

	// ErrAccountNotOpen indicates a transfer touched a wallet whose owning
	// account is not in the OPEN state.
	ErrAccountNotOpen = errors.New("account is not open")

	// ErrInsufficientBalance indicates the source wallet cannot cover the
	// requested amount; the whole batch is rolled back.
	ErrInsufficientBalance = errors.New("insufficient balance in source wallet")

	// ErrIllegalPostingState indicates a reconciliation attempt against a
	// posting pair that is not modifiable (either side PENDING or FAILED).
	ErrIllegalPostingState = errors.New("posting pair is not in a modifiable state")
)
