package rafflehandlers

import (
	"context"
	"errors"
	"log/slog"

	raffleevents "github.com/lucky-stack/raffle-bot/app/events/raffle"
	randomnessevents "github.com/lucky-stack/raffle-bot/app/events/randomness"
	raffleservice "github.com/lucky-stack/raffle-bot/app/modules/raffle/application"
	raffledomain "github.com/lucky-stack/raffle-bot/app/modules/raffle/domain"
	"github.com/lucky-stack/raffle-bot/app/shared/attr"
	"github.com/lucky-stack/raffle-bot/app/shared/handlerwrapper"
)

// RaffleHandlers implements the Handlers interface on top of the raffle
// service. Successful operations publish their events from the service layer;
// handlers only emit the rejection events the service has no reason to know
// about.
type RaffleHandlers struct {
	service raffleservice.Service
	logger  *slog.Logger
}

// NewRaffleHandlers creates a new RaffleHandlers.
func NewRaffleHandlers(service raffleservice.Service, logger *slog.Logger) *RaffleHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &RaffleHandlers{service: service, logger: logger}
}

var _ Handlers = (*RaffleHandlers)(nil)

// HandleEntryRequest attempts the entry. A refused entry (below fee, round
// drawing) is acked with a rejection event; an infrastructure error is
// returned so the broker redelivers.
func (h *RaffleHandlers) HandleEntryRequest(ctx context.Context, payload *raffleevents.EntryRequestPayloadV1) ([]handlerwrapper.Result, error) {
	err := h.service.Enter(ctx, payload.ParticipantID, payload.Amount)
	if err == nil {
		return nil, nil
	}

	var reason string
	switch {
	case errors.Is(err, raffledomain.ErrInsufficientEntry):
		reason = "amount below entry fee"
	case errors.Is(err, raffledomain.ErrRoundNotOpen):
		reason = "round is drawing"
	default:
		return nil, err
	}

	h.logger.InfoContext(ctx, "Entry rejected",
		attr.ExtractCorrelationID(ctx),
		attr.String("participant_id", payload.ParticipantID),
		attr.String("reason", reason),
	)

	return []handlerwrapper.Result{{
		Topic: raffleevents.EntryRejectedV1,
		Payload: raffleevents.EntryRejectedPayloadV1{
			ParticipantID: payload.ParticipantID,
			Amount:        payload.Amount,
			Reason:        reason,
		},
	}}, nil
}

// HandleRandomnessFulfilled settles the draw. Stale and duplicate
// fulfillments are acked without effect. A failed payout is returned as an
// error: the round stays DRAWING and redelivery of this same fulfillment
// retries the settlement.
func (h *RaffleHandlers) HandleRandomnessFulfilled(ctx context.Context, payload *randomnessevents.FulfilledPayloadV1) ([]handlerwrapper.Result, error) {
	settlement, err := h.service.Settle(ctx, payload.RequestID, payload.Values)
	if err != nil {
		if errors.Is(err, raffledomain.ErrSettlementNotPending) {
			h.logger.WarnContext(ctx, "Ignoring fulfillment with no pending settlement",
				attr.ExtractCorrelationID(ctx),
				attr.String("request_id", payload.RequestID),
			)
			return nil, nil
		}
		return nil, err
	}

	h.logger.InfoContext(ctx, "Round settled",
		attr.ExtractCorrelationID(ctx),
		attr.String("request_id", payload.RequestID),
		attr.String("winner", settlement.Winner),
		attr.Int64("amount", settlement.Amount),
	)
	return nil, nil
}
