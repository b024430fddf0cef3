package ledgermigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating ledger tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ledger_accounts (
					id VARCHAR(128) PRIMARY KEY,
					balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create ledger_accounts table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ledger_journal (
					id BIGSERIAL PRIMARY KEY,
					from_account VARCHAR(128),
					to_account VARCHAR(128) NOT NULL,
					amount BIGINT NOT NULL CHECK (amount > 0),
					kind VARCHAR(32) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_ledger_journal_to_account ON ledger_journal(to_account);
			`); err != nil {
				return fmt.Errorf("failed to create ledger_journal table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping ledger tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS ledger_journal;`); err != nil {
				return fmt.Errorf("failed to drop ledger_journal table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS ledger_accounts;`); err != nil {
				return fmt.Errorf("failed to drop ledger_accounts table: %w", err)
			}
			return nil
		})
	})
}
