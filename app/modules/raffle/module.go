package raffle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"

	"github.com/lucky-stack/raffle-bot/app/modules/randomness"
	"github.com/lucky-stack/raffle-bot/app/shared/attr"
	"github.com/lucky-stack/raffle-bot/app/shared/eventbus"
	"github.com/lucky-stack/raffle-bot/app/shared/observability"
	"github.com/lucky-stack/raffle-bot/app/shared/utils"
	"github.com/lucky-stack/raffle-bot/config"

	raffleservice "github.com/lucky-stack/raffle-bot/app/modules/raffle/application"
	raffledomain "github.com/lucky-stack/raffle-bot/app/modules/raffle/domain"
	rafflehandlers "github.com/lucky-stack/raffle-bot/app/modules/raffle/infrastructure/handlers"
	rafflequeue "github.com/lucky-stack/raffle-bot/app/modules/raffle/infrastructure/queue"
	raffledb "github.com/lucky-stack/raffle-bot/app/modules/raffle/infrastructure/repositories"
	rafflerouter "github.com/lucky-stack/raffle-bot/app/modules/raffle/infrastructure/router"
)

// Module represents the raffle module.
type Module struct {
	RaffleService raffleservice.Service
	RaffleRouter  *rafflerouter.RaffleRouter
	QueueService  rafflequeue.QueueService
	cancelFunc    context.CancelFunc
	observability observability.Observability
}

// NewRaffleModule creates and initializes a new raffle module. The round is
// restored from its persisted snapshot when one exists, so a draw in flight
// across a restart can still be settled by its original fulfillment.
func NewRaffleModule(
	ctx context.Context,
	obs observability.Observability,
	eventBus eventbus.EventBus,
	router *message.Router,
	helpers utils.Helpers,
	routerCtx context.Context,
	db *bun.DB,
	cfg *config.Config,
	ledger raffledomain.Ledger,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "raffle.NewRaffleModule initializing")

	// 1. Initialize Repository
	repo := raffledb.NewRepository(db)

	// 2. Initialize Metrics
	metrics := observability.NewOperationMetrics(obs.Registry.Prometheus, "raffle")

	// 3. Initialize the randomness client
	randomnessClient := randomness.NewNATSClient(eventBus, helpers, randomness.Config{
		RequestSubject: cfg.Randomness.RequestSubject,
		CallbackBudget: cfg.Randomness.CallbackBudget,
	}, logger)

	// 4. Restore or create the round
	round, err := loadRound(ctx, repo, cfg, randomnessClient, ledger, logger)
	if err != nil {
		return nil, err
	}

	// 5. Initialize Service
	service := raffleservice.NewRaffleService(round, repo, eventBus, helpers, logger, metrics, tracer, db)

	// 6. Initialize Handlers
	handlers := rafflehandlers.NewRaffleHandlers(service, logger)

	// 7. Initialize Router
	raffleRouter := rafflerouter.NewRaffleRouter(
		logger,
		router,
		eventBus,
		eventBus,
		helpers,
		tracer,
		obs.Registry.Prometheus,
	)

	if err := raffleRouter.Configure(routerCtx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure raffle router: %w", err)
	}

	// 8. Initialize the upkeep keeper
	queueService, err := rafflequeue.NewService(
		ctx,
		db,
		logger,
		cfg.Postgres.DSN,
		cfg.Raffle.PollInterval,
		metrics,
		service,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize raffle queue service: %w", err)
	}

	return &Module{
		RaffleService: service,
		RaffleRouter:  raffleRouter,
		QueueService:  queueService,
		observability: obs,
	}, nil
}

// loadRound rebuilds the round from its persisted snapshot, falling back to a
// fresh round when none has been saved yet.
func loadRound(
	ctx context.Context,
	repo raffledb.Repository,
	cfg *config.Config,
	randomnessClient raffledomain.RandomnessSource,
	ledger raffledomain.Ledger,
	logger *slog.Logger,
) (*raffledomain.Round, error) {
	roundCfg := raffledomain.Config{
		EntryFee:     cfg.Raffle.EntryFee,
		DrawInterval: cfg.Raffle.DrawInterval,
	}

	record, err := repo.GetRound(ctx, nil)
	if err != nil {
		if errors.Is(err, raffledb.ErrNotFound) {
			logger.InfoContext(ctx, "No persisted round found, starting fresh")
			return raffledomain.NewRound(roundCfg, randomnessClient, ledger), nil
		}
		return nil, fmt.Errorf("failed to load persisted round: %w", err)
	}

	logger.InfoContext(ctx, "Restoring persisted round",
		attr.String("state", record.State),
		attr.Int("participants", len(record.Participants)),
		attr.Int64("pot_balance", record.PotBalance),
	)

	snap := raffledomain.Snapshot{
		State:            raffledomain.State(record.State),
		Participants:     record.Participants,
		PotBalance:       record.PotBalance,
		LastDrawAt:       record.LastDrawAt,
		RecentWinner:     record.RecentWinner,
		PendingRequestID: record.PendingRequestID,
	}
	return raffledomain.RestoreRound(roundCfg, snap, randomnessClient, ledger), nil
}

// Run starts the raffle module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Provider.Logger
	logger.InfoContext(ctx, "Starting raffle module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if err := m.QueueService.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start raffle queue service", attr.Error(err))
		return
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Raffle module goroutine stopped")
}

// Close shuts down the raffle module.
func (m *Module) Close() error {
	logger := m.observability.Provider.Logger
	logger.Info("Stopping raffle module")

	if m.QueueService != nil {
		if err := m.QueueService.Stop(context.Background()); err != nil {
			logger.Error("Error stopping raffle queue service", "error", err)
		}
	}

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.RaffleRouter != nil {
		if err := m.RaffleRouter.Close(); err != nil {
			logger.Error("Error closing RaffleRouter from module", "error", err)
			return fmt.Errorf("error closing RaffleRouter: %w", err)
		}
	}

	logger.Info("Raffle module stopped")
	return nil
}
