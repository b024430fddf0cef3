package raffledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when the requested record does not exist yet.
var ErrNotFound = errors.New("raffle record not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new raffle repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetRound loads the singleton round snapshot.
func (r *Impl) GetRound(ctx context.Context, db bun.IDB) (*RoundRecord, error) {
	db = r.resolveDB(db)
	record := new(RoundRecord)
	err := db.NewSelect().
		Model(record).
		Where("id = ?", roundRecordID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get round record: %w", err)
	}
	return record, nil
}

// SaveRound upserts the singleton round snapshot.
func (r *Impl) SaveRound(ctx context.Context, db bun.IDB, record *RoundRecord) error {
	db = r.resolveDB(db)
	record.ID = roundRecordID
	record.UpdatedAt = time.Now()
	_, err := db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("state = EXCLUDED.state").
		Set("participants = EXCLUDED.participants").
		Set("pot_balance = EXCLUDED.pot_balance").
		Set("last_draw_at = EXCLUDED.last_draw_at").
		Set("pending_request_id = EXCLUDED.pending_request_id").
		Set("recent_winner = EXCLUDED.recent_winner").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save round record: %w", err)
	}
	return nil
}

// UpsertWinner replaces the most recent winner record.
func (r *Impl) UpsertWinner(ctx context.Context, db bun.IDB, record *WinnerRecord) error {
	db = r.resolveDB(db)
	record.ID = roundRecordID
	_, err := db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("winner_id = EXCLUDED.winner_id").
		Set("amount = EXCLUDED.amount").
		Set("request_id = EXCLUDED.request_id").
		Set("picked_at = EXCLUDED.picked_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert winner record: %w", err)
	}
	return nil
}

// GetRecentWinner loads the most recent winner record.
func (r *Impl) GetRecentWinner(ctx context.Context, db bun.IDB) (*WinnerRecord, error) {
	db = r.resolveDB(db)
	record := new(WinnerRecord)
	err := db.NewSelect().
		Model(record).
		Where("id = ?", roundRecordID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get winner record: %w", err)
	}
	return record, nil
}
