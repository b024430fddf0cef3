package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lucky-stack/raffle-bot/api"
	raffleevents "github.com/lucky-stack/raffle-bot/app/events/raffle"
	randomnessevents "github.com/lucky-stack/raffle-bot/app/events/randomness"
	"github.com/lucky-stack/raffle-bot/app/modules/ledger"
	"github.com/lucky-stack/raffle-bot/app/modules/raffle"
	"github.com/lucky-stack/raffle-bot/app/modules/randomness"
	"github.com/lucky-stack/raffle-bot/app/shared/attr"
	"github.com/lucky-stack/raffle-bot/app/shared/eventbus"
	"github.com/lucky-stack/raffle-bot/app/shared/observability"
	"github.com/lucky-stack/raffle-bot/app/shared/utils"
	"github.com/lucky-stack/raffle-bot/config"
	"github.com/lucky-stack/raffle-bot/db/bundb"
)

// App wires the modules together.
type App struct {
	Config          *config.Config
	Observability   observability.Observability
	WatermillRouter *message.Router
	EventBus        eventbus.EventBus

	LedgerModule     *ledger.Module
	RaffleModule     *raffle.Module
	RandomnessModule *randomness.Module

	db            *bundb.DBService
	httpServer    *http.Server
	metricsServer *http.Server
	helpers       utils.Helpers

	routerCancel context.CancelFunc
}

// NewApp initializes the application with the necessary services and configuration.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs, err := observability.Init(ctx, observability.Config{
		ServiceName:     "raffle-bot",
		Environment:     cfg.Observability.Environment,
		OTLPEndpoint:    cfg.Observability.OTLPEndpoint,
		OTLPInsecure:    cfg.Observability.OTLPInsecure,
		TraceSampleRate: cfg.Observability.TraceSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Provider.Logger

	dbService, err := bundb.NewBunDBService(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	bus, err := eventbus.New(ctx, eventbus.Config{
		URL:      cfg.NATS.URL,
		NKeySeed: cfg.NATS.NKeySeed,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}

	if err := bus.CreateStream(ctx, raffleevents.Stream, []string{"raffle.>"}); err != nil {
		return nil, fmt.Errorf("failed to create raffle stream: %w", err)
	}
	if err := bus.CreateStream(ctx, randomnessevents.Stream, []string{"randomness.>"}); err != nil {
		return nil, fmt.Errorf("failed to create randomness stream: %w", err)
	}

	watermillRouter, err := message.NewRouter(
		message.RouterConfig{CloseTimeout: 10 * time.Second},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Watermill router: %w", err)
	}

	helpers := utils.NewHelper()
	routerCtx, routerCancel := context.WithCancel(ctx)

	ledgerModule, err := ledger.NewLedgerModule(ctx, obs, dbService.GetDB(), cfg.Raffle.PotAccount)
	if err != nil {
		routerCancel()
		return nil, fmt.Errorf("failed to initialize ledger module: %w", err)
	}

	randomnessModule, err := randomness.NewRandomnessModule(
		ctx,
		obs,
		bus,
		watermillRouter,
		helpers,
		randomness.Config{
			RequestSubject: cfg.Randomness.RequestSubject,
			CallbackBudget: cfg.Randomness.CallbackBudget,
		},
		cfg.Randomness.FulfilledSubject,
		cfg.Randomness.DevFulfiller,
	)
	if err != nil {
		routerCancel()
		return nil, fmt.Errorf("failed to initialize randomness module: %w", err)
	}

	raffleModule, err := raffle.NewRaffleModule(
		ctx,
		obs,
		bus,
		watermillRouter,
		helpers,
		routerCtx,
		dbService.GetDB(),
		cfg,
		ledgerModule.LedgerService,
	)
	if err != nil {
		routerCancel()
		return nil, fmt.Errorf("failed to initialize raffle module: %w", err)
	}

	// With a dedicated metrics address, /metrics moves off the public API
	// listener onto its own server.
	apiRegistry := obs.Registry.Prometheus
	var metricsServer *http.Server
	if cfg.Observability.MetricsAddress != "" {
		apiRegistry = nil
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.HandlerFor(obs.Registry.Prometheus, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:              cfg.Observability.MetricsAddress,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	httpHandler := api.NewRouter(
		raffleModule.RaffleService,
		ledgerModule.LedgerService,
		apiRegistry,
		logger,
		api.RouterConfig{
			EnterRate:  cfg.HTTP.EnterRate,
			EnterBurst: cfg.HTTP.EnterBurst,
		},
	)

	return &App{
		Config:           cfg,
		Observability:    obs,
		WatermillRouter:  watermillRouter,
		EventBus:         bus,
		LedgerModule:     ledgerModule,
		RaffleModule:     raffleModule,
		RandomnessModule: randomnessModule,
		db:               dbService,
		helpers:          helpers,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           httpHandler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		metricsServer: metricsServer,
		routerCancel:  routerCancel,
	}, nil
}

// Run starts the message router, the upkeep keeper, and the HTTP server, and
// blocks until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	logger := a.Observability.Provider.Logger

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.WatermillRouter.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Watermill router stopped with error", attr.Error(err))
		}
	}()

	<-a.WatermillRouter.Running()

	wg.Add(1)
	go a.RaffleModule.Run(ctx, &wg)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP server listening", attr.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped with error", attr.Error(err))
		}
	}()

	if a.metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Metrics server listening", attr.String("addr", a.metricsServer.Addr))
			if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server stopped with error", attr.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", attr.Error(err))
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", attr.Error(err))
		}
	}

	wg.Wait()
	return nil
}

// Close releases all application resources.
func (a *App) Close() {
	logger := a.Observability.Provider.Logger

	if a.routerCancel != nil {
		a.routerCancel()
	}

	if a.RaffleModule != nil {
		if err := a.RaffleModule.Close(); err != nil {
			logger.Error("Error closing raffle module", attr.Error(err))
		}
	}

	if a.EventBus != nil {
		if err := a.EventBus.Close(); err != nil {
			logger.Error("Error closing event bus", attr.Error(err))
		}
	}

	if a.db != nil {
		if err := a.db.GetDB().Close(); err != nil {
			logger.Error("Error closing database connection", attr.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Observability.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down observability", attr.Error(err))
	}

	logger.Info("Application shut down gracefully")
}

// DB returns the database service.
func (a *App) DB() *bundb.DBService {
	return a.db
}
