package ledgerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrAccountNotFound is returned when an account does not exist.
var ErrAccountNotFound = errors.New("ledger account not found")

// ErrInsufficientFunds is returned when a debit would drive a balance
// negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new ledger repository.
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

// GetAccount retrieves an account by ID.
func (r *Impl) GetAccount(ctx context.Context, db bun.IDB, accountID string) (*Account, error) {
	db = r.resolveDB(db)
	account := new(Account)
	err := db.NewSelect().
		Model(account).
		Where("id = ?", accountID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// Debit subtracts amount from the account balance. The balance guard is part
// of the UPDATE predicate so concurrent debits cannot overdraw.
func (r *Impl) Debit(ctx context.Context, db bun.IDB, accountID string, amount int64) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Account)(nil)).
		Set("balance = balance - ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", accountID).
		Where("balance >= ?", amount).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing account from an underfunded one.
		if _, getErr := r.GetAccount(ctx, db, accountID); getErr != nil {
			return getErr
		}
		return ErrInsufficientFunds
	}
	return nil
}

// Credit adds amount to the account balance, creating the account when it
// does not exist yet.
func (r *Impl) Credit(ctx context.Context, db bun.IDB, accountID string, amount int64) error {
	db = r.resolveDB(db)
	now := time.Now()
	account := &Account{
		ID:        accountID,
		Balance:   amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.NewInsert().
		Model(account).
		On("CONFLICT (id) DO UPDATE").
		Set("balance = ledger_accounts.balance + EXCLUDED.balance").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	return nil
}

// InsertJournalEntry records a confirmed transfer.
func (r *Impl) InsertJournalEntry(ctx context.Context, db bun.IDB, entry *JournalEntry) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}
