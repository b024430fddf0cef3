package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	ledgerservice "github.com/lucky-stack/raffle-bot/app/modules/ledger/application"
	raffleservice "github.com/lucky-stack/raffle-bot/app/modules/raffle/application"
)

// RouterConfig holds the HTTP surface parameters.
type RouterConfig struct {
	// EnterRate and EnterBurst bound per-IP entry attempts.
	EnterRate  float64
	EnterBurst int
}

// NewRouter builds the chi router for the raffle HTTP surface.
func NewRouter(
	raffle raffleservice.Service,
	ledger ledgerservice.Service,
	registry *prometheus.Registry,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	h := NewHandler(raffle, ledger, logger)
	limiter := NewIPRateLimiter(rate.Limit(cfg.EnterRate), cfg.EnterBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/raffle", func(r chi.Router) {
		r.Get("/", h.Status)
		r.Get("/participants", h.Participants)
		r.Get("/winner", h.Winner)
		r.With(RateLimitMiddleware(limiter)).Post("/enter", h.Enter)
	})

	r.Route("/accounts/{accountID}", func(r chi.Router) {
		r.Get("/balance", h.Balance)
		r.Post("/topup", h.TopUp)
	})

	return r
}
