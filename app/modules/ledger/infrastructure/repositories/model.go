package ledgerdb

import (
	"time"

	"github.com/uptrace/bun"
)

// Account is one ledger account row. Balances are in minor units and never go
// negative; the debit query enforces it.
type Account struct {
	bun.BaseModel `bun:"table:ledger_accounts"`

	ID        string    `bun:"id,pk"`
	Balance   int64     `bun:"balance,notnull,default:0"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:now()"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:now()"`
}

// JournalEntry records one confirmed transfer between accounts. TopUps have
// an empty FromAccount.
type JournalEntry struct {
	bun.BaseModel `bun:"table:ledger_journal"`

	ID          int64     `bun:"id,pk,autoincrement"`
	FromAccount string    `bun:"from_account"`
	ToAccount   string    `bun:"to_account,notnull"`
	Amount      int64     `bun:"amount,notnull"`
	Kind        string    `bun:"kind,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:now()"`
}
