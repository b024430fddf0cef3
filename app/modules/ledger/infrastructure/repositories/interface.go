package ledgerdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository is the data access interface for ledger accounts.
type Repository interface {
	GetAccount(ctx context.Context, db bun.IDB, accountID string) (*Account, error)
	// Debit subtracts amount from the account, failing with
	// ErrInsufficientFunds when the balance cannot cover it.
	Debit(ctx context.Context, db bun.IDB, accountID string, amount int64) error
	// Credit adds amount to the account, creating it when missing.
	Credit(ctx context.Context, db bun.IDB, accountID string, amount int64) error
	InsertJournalEntry(ctx context.Context, db bun.IDB, entry *JournalEntry) error
}
