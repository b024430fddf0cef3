package rafflemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating raffle tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS raffle_rounds (
					id BIGINT PRIMARY KEY,
					state VARCHAR(16) NOT NULL,
					participants VARCHAR(128)[] NOT NULL DEFAULT '{}',
					pot_balance BIGINT NOT NULL DEFAULT 0 CHECK (pot_balance >= 0),
					last_draw_at TIMESTAMPTZ NOT NULL,
					pending_request_id VARCHAR(64),
					recent_winner VARCHAR(128),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create raffle_rounds table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS raffle_winners (
					id BIGINT PRIMARY KEY,
					winner_id VARCHAR(128) NOT NULL,
					amount BIGINT NOT NULL,
					request_id VARCHAR(64) NOT NULL,
					picked_at TIMESTAMPTZ NOT NULL
				);
			`); err != nil {
				return fmt.Errorf("failed to create raffle_winners table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping raffle tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS raffle_winners;`); err != nil {
				return fmt.Errorf("failed to drop raffle_winners table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS raffle_rounds;`); err != nil {
				return fmt.Errorf("failed to drop raffle_rounds table: %w", err)
			}
			return nil
		})
	})
}
