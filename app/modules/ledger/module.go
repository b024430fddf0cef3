package ledger

import (
	"context"

	"github.com/uptrace/bun"

	ledgerservice "github.com/lucky-stack/raffle-bot/app/modules/ledger/application"
	ledgerdb "github.com/lucky-stack/raffle-bot/app/modules/ledger/infrastructure/repositories"
	"github.com/lucky-stack/raffle-bot/app/shared/observability"
)

// Module represents the ledger module.
type Module struct {
	LedgerService ledgerservice.Service
}

// NewLedgerModule creates and initializes a new ledger module. potAccount is
// the account holding the pooled raffle balance.
func NewLedgerModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	potAccount string,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "ledger.NewLedgerModule initializing")

	repo := ledgerdb.NewRepository(db)
	metrics := observability.NewOperationMetrics(obs.Registry.Prometheus, "ledger")
	service := ledgerservice.NewLedgerService(repo, potAccount, logger, metrics, tracer, db)

	return &Module{LedgerService: service}, nil
}
