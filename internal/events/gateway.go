package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumapay/lumapay/internal/archive"
	"github.com/lumapay/lumapay/internal/ledger"
	"github.com/lumapay/lumapay/internal/metrics"
)

// Default layout of a freshly materialized entity: one OPEN account holding a
// fiat source and destination wallet.
const (
	DefaultAccountID           = "ACCOUNT1"
	DefaultSourceWalletID      = "FIAT_CURRENCY_SOURCE_1"
	DefaultDestinationWalletID = "FIAT_CURRENCY_DESTINATION_1"
)

// defaultOpeningBalance seeds each default wallet at materialization time.
var defaultOpeningBalance = decimal.NewFromInt(100)

// Gateway is the single entry point through which domain events drive the
// ledger core. It serializes all operations against one entity while letting
// events for different entities proceed in parallel, and emits downstream
// notifications after successful mutations.
type Gateway struct {
	projection *ledger.Projection
	service    *ledger.Service
	publisher  Publisher
	recorder   archive.Recorder
	collector  *metrics.Collector
	now        func() time.Time

	mapMu sync.Mutex
	muMap map[string]*sync.Mutex
}

// NewGateway wires the gateway over a projection. Recorder and collector may
// be nil; publishing and archiving are best-effort and never fail a ledger
// operation.
func NewGateway(projection *ledger.Projection, publisher Publisher, recorder archive.Recorder, collector *metrics.Collector) *Gateway {
	return &Gateway{
		projection: projection,
		service:    ledger.NewService(projection),
		publisher:  publisher,
		recorder:   recorder,
		collector:  collector,
		now:        time.Now,
		muMap:      make(map[string]*sync.Mutex),
	}
}

func (g *Gateway) entityLock(entityID string) *sync.Mutex {
	g.mapMu.Lock()
	defer g.mapMu.Unlock()

	if _, exists := g.muMap[entityID]; !exists {
		g.muMap[entityID] = &sync.Mutex{}
	}
	return g.muMap[entityID]
}

// Handle dispatches one domain event to the matching engine. The event set
// is closed; an unrecognized payload type is a programming error.
func (g *Gateway) Handle(ctx context.Context, event Event) error {
	switch ev := event.(type) {
	case EntityCreated:
		return g.handleEntityCreated(ev)
	case TransferRequested:
		return g.handleTransferRequested(ctx, ev)
	case AccountStatusChanged:
		return g.handleAccountStatusChanged(ev)
	case PostingModified:
		return g.handlePostingModified(ctx, ev)
	default:
		return fmt.Errorf("unknown event type %T", event)
	}
}

func (g *Gateway) handleEntityCreated(ev EntityCreated) error {
	if ev.EntityID == "" {
		return fmt.Errorf("entity id is required")
	}

	now := g.now()
	source := ledger.NewWallet(DefaultSourceWalletID, ledger.AssetFiat, defaultOpeningBalance, now)
	destination := ledger.NewWallet(DefaultDestinationWalletID, ledger.AssetFiat, defaultOpeningBalance, now)
	account := &ledger.Account{
		ID:      DefaultAccountID,
		State:   ledger.AccountOpen,
		Wallets: []*ledger.Wallet{source, destination},
	}

	g.projection.Put(ledger.NewEntity(ev.EntityID, account))
	return nil
}

func (g *Gateway) handleTransferRequested(ctx context.Context, ev TransferRequested) error {
	mu := g.entityLock(ev.EntityID)
	mu.Lock()
	defer mu.Unlock()

	sourceID := ev.SourceWalletID
	if sourceID == "" {
		sourceID = DefaultSourceWalletID
	}
	destinationID := ev.DestinationWalletID
	if destinationID == "" {
		destinationID = DefaultDestinationWalletID
	}

	start := g.now()
	postingIDs, err := g.service.Transfer(ev.EntityID, []ledger.TransferRequest{
		{SourceWalletID: sourceID, DestinationWalletID: destinationID, Amount: ev.Amount},
	})
	g.collector.ObserveTransfer(g.now().Sub(start), err)
	if err != nil {
		return err
	}

	g.publishMovement(ctx, ev.EntityID, sourceID, destinationID, ev.Amount, postingIDs[0])
	return nil
}

func (g *Gateway) handleAccountStatusChanged(ev AccountStatusChanged) error {
	mu := g.entityLock(ev.EntityID)
	mu.Lock()
	defer mu.Unlock()

	return g.service.ChangeAccountState(ev.EntityID, ev.AccountID, ev.NewState)
}

func (g *Gateway) handlePostingModified(ctx context.Context, ev PostingModified) error {
	mu := g.entityLock(ev.EntityID)
	mu.Lock()
	defer mu.Unlock()

	err := g.service.ModifyPosting(ev.EntityID, ev.SourceWalletID, ev.DestinationWalletID, ev.PostingID, ev.NewAmount, ev.NewState)
	if err != nil {
		return err
	}

	g.publishMovement(ctx, ev.EntityID, ev.SourceWalletID, ev.DestinationWalletID, ev.NewAmount, ev.PostingID)
	return nil
}

// publishMovement emits the movement-recorded and balance-updated
// notifications, archives the movement, and refreshes balance gauges.
// Failures here never unwind the ledger mutation.
func (g *Gateway) publishMovement(ctx context.Context, entityID, sourceID, destinationID string, amount decimal.Decimal, postingID string) {
	now := g.now()
	movement := MovementRecorded{
		MovementID:          uuid.NewString(),
		SourceWalletID:      sourceID,
		DestinationWalletID: destinationID,
		Amount:              amount,
		PostingID:           postingID,
		RecordedAt:          now,
	}

	if g.publisher != nil {
		_ = g.publisher.Publish(ctx, TopicMovementRecorded, movement)
		_ = g.publisher.Publish(ctx, TopicBalanceUpdated, BalanceUpdated{
			SourceWalletID:      sourceID,
			DestinationWalletID: destinationID,
			Amount:              amount,
		})
	}

	if g.recorder != nil {
		_ = g.recorder.RecordMovement(ctx, archive.Movement{
			MovementID:          movement.MovementID,
			PostingID:           postingID,
			SourceWalletID:      sourceID,
			DestinationWalletID: destinationID,
			Amount:              amount,
			RecordedAt:          now,
		})
	}

	if g.collector != nil {
		if entity, err := g.projection.Get(entityID); err == nil {
			for _, a := range entity.Accounts {
				for _, w := range a.Wallets {
					// Gauges are float-valued; the exact decimal stays in the core.
					g.collector.SetWalletBalance(w.ID, string(w.AssetType), w.Balance.InexactFloat64())
				}
			}
		}
	}
}

// WalletBalance is one wallet's balance as of a queried instant. Known is
// false when the wallet had no recorded history at or before that time.
type WalletBalance struct {
	EntityID string
	WalletID string
	Balance  decimal.Decimal
	Known    bool
}

// BalancesAt returns every wallet's balance as recorded in its history at or
// before the given instant.
func (g *Gateway) BalancesAt(t time.Time) []WalletBalance {
	var out []WalletBalance
	g.projection.Range(func(e *ledger.Entity) {
		for _, a := range e.Accounts {
			for _, w := range a.Wallets {
				balance, ok := w.BalanceAt(t)
				out = append(out, WalletBalance{
					EntityID: e.ID,
					WalletID: w.ID,
					Balance:  balance,
					Known:    ok,
				})
			}
		}
	})
	return out
}
