package ledgerservice

import (
	"context"

	"github.com/uptrace/bun"

	ledgerdb "github.com/lucky-stack/raffle-bot/app/modules/ledger/infrastructure/repositories"
)

// ------------------------
// Fake Ledger Repo
// ------------------------

type FakeLedgerRepo struct {
	trace []string

	GetAccountFunc         func(ctx context.Context, db bun.IDB, accountID string) (*ledgerdb.Account, error)
	DebitFunc              func(ctx context.Context, db bun.IDB, accountID string, amount int64) error
	CreditFunc             func(ctx context.Context, db bun.IDB, accountID string, amount int64) error
	InsertJournalEntryFunc func(ctx context.Context, db bun.IDB, entry *ledgerdb.JournalEntry) error

	Journal []*ledgerdb.JournalEntry
}

func NewFakeLedgerRepo() *FakeLedgerRepo {
	return &FakeLedgerRepo{
		trace: []string{},
	}
}

func (f *FakeLedgerRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeLedgerRepo) GetAccount(ctx context.Context, db bun.IDB, accountID string) (*ledgerdb.Account, error) {
	f.record("GetAccount")
	if f.GetAccountFunc != nil {
		return f.GetAccountFunc(ctx, db, accountID)
	}
	return nil, ledgerdb.ErrAccountNotFound
}

func (f *FakeLedgerRepo) Debit(ctx context.Context, db bun.IDB, accountID string, amount int64) error {
	f.record("Debit")
	if f.DebitFunc != nil {
		return f.DebitFunc(ctx, db, accountID, amount)
	}
	return nil
}

func (f *FakeLedgerRepo) Credit(ctx context.Context, db bun.IDB, accountID string, amount int64) error {
	f.record("Credit")
	if f.CreditFunc != nil {
		return f.CreditFunc(ctx, db, accountID, amount)
	}
	return nil
}

func (f *FakeLedgerRepo) InsertJournalEntry(ctx context.Context, db bun.IDB, entry *ledgerdb.JournalEntry) error {
	f.record("InsertJournalEntry")
	f.Journal = append(f.Journal, entry)
	if f.InsertJournalEntryFunc != nil {
		return f.InsertJournalEntryFunc(ctx, db, entry)
	}
	return nil
}

// --- Accessors for assertions ---

func (f *FakeLedgerRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ ledgerdb.Repository = (*FakeLedgerRepo)(nil)
