package archive

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Movement is one recorded or corrected value movement, kept for audit and
// reporting. The ledger projection stays in memory; the archive is the
// durable trail written after the fact.
type Movement struct {
	MovementID          string
	PostingID           string
	SourceWalletID      string
	DestinationWalletID string
	Amount              decimal.Decimal
	RecordedAt          time.Time
}

// Recorder persists movements.
type Recorder interface {
	RecordMovement(ctx context.Context, m Movement) error
}
