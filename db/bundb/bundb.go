package bundb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	ledgerdb "github.com/lucky-stack/raffle-bot/app/modules/ledger/infrastructure/repositories"
	raffledb "github.com/lucky-stack/raffle-bot/app/modules/raffle/infrastructure/repositories"
	"github.com/lucky-stack/raffle-bot/config"
)

// DBService bundles the repositories with their shared connection pool.
type DBService struct {
	LedgerDB ledgerdb.Repository
	RaffleDB raffledb.Repository
	db       *bun.DB
}

// GetDB returns the underlying database connection pool.
func (dbService *DBService) GetDB() *bun.DB {
	return dbService.db
}

// NewBunDBService initializes a new DBService with the provided Postgres configuration.
func NewBunDBService(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*DBService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sqldb, err := pgConn(ctx, cfg.DSN)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to PostgreSQL", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	db.RegisterModel(&ledgerdb.Account{})
	db.RegisterModel(&ledgerdb.JournalEntry{})
	db.RegisterModel(&raffledb.RoundRecord{})
	db.RegisterModel(&raffledb.WinnerRecord{})

	logger.InfoContext(ctx, "Database connection initialized")

	return &DBService{
		LedgerDB: ledgerdb.NewRepository(db),
		RaffleDB: raffledb.NewRepository(db),
		db:       db,
	}, nil
}

func pgConn(ctx context.Context, dsn string) (*sql.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return sqldb, nil
}
