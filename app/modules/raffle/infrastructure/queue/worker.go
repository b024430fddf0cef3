package rafflequeue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/riverqueue/river"

	raffleservice "github.com/lucky-stack/raffle-bot/app/modules/raffle/application"
	raffledomain "github.com/lucky-stack/raffle-bot/app/modules/raffle/domain"
	"github.com/lucky-stack/raffle-bot/app/shared/attr"
)

// UpkeepWorker polls draw eligibility and starts the draw when due. The
// check-then-perform pair is advisory only; PerformUpkeep re-derives
// eligibility under the round lock, so a concurrent worker run cannot start a
// second draw.
type UpkeepWorker struct {
	river.WorkerDefaults[UpkeepJob]

	service raffleservice.Service
	logger  *slog.Logger
}

// NewUpkeepWorker creates a new UpkeepWorker.
func NewUpkeepWorker(service raffleservice.Service, logger *slog.Logger) *UpkeepWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpkeepWorker{service: service, logger: logger}
}

func (w *UpkeepWorker) Work(ctx context.Context, _ *river.Job[UpkeepJob]) error {
	if !w.service.CheckUpkeep(ctx) {
		return nil
	}

	requestID, err := w.service.PerformUpkeep(ctx)
	if err != nil {
		// The round can lose eligibility between the check and the perform.
		if errors.Is(err, raffledomain.ErrUpkeepNotNeeded) {
			w.logger.DebugContext(ctx, "Upkeep no longer needed", attr.Error(err))
			return nil
		}
		w.logger.ErrorContext(ctx, "Failed to start draw", attr.Error(err))
		return err
	}

	w.logger.InfoContext(ctx, "Draw started",
		attr.String("request_id", requestID),
	)
	return nil
}
