package archive

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder stores movements in PostgreSQL.
type PostgresRecorder struct {
	db *pgxpool.Pool
}

// NewPostgresRecorder builds a recorder backed by PostgreSQL.
func NewPostgresRecorder(db *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// RecordMovement inserts a movement row. Repeated delivery of the same
// movement id is ignored so replays do not duplicate the trail.
func (r *PostgresRecorder) RecordMovement(ctx context.Context, m Movement) error {
	_, err := r.db.Exec(ctx, `INSERT INTO movements (movement_id, posting_id, source_wallet_id, destination_wallet_id, amount, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (movement_id) DO NOTHING`,
		m.MovementID, m.PostingID, m.SourceWalletID, m.DestinationWalletID, m.Amount.String(), m.RecordedAt.UTC())
	return err
}

var _ Recorder = (*PostgresRecorder)(nil)
