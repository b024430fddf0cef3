package raffledb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository is the data access interface for raffle round persistence.
type Repository interface {
	// GetRound loads the singleton round snapshot, ErrNotFound before first
	// save.
	GetRound(ctx context.Context, db bun.IDB) (*RoundRecord, error)
	// SaveRound upserts the singleton round snapshot.
	SaveRound(ctx context.Context, db bun.IDB, record *RoundRecord) error
	// UpsertWinner replaces the most recent winner record.
	UpsertWinner(ctx context.Context, db bun.IDB, record *WinnerRecord) error
	// GetRecentWinner loads the most recent winner, ErrNotFound before the
	// first settlement.
	GetRecentWinner(ctx context.Context, db bun.IDB) (*WinnerRecord, error)
}
