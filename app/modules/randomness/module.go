package randomness

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	randomnessevents "github.com/lucky-stack/raffle-bot/app/events/randomness"
	"github.com/lucky-stack/raffle-bot/app/shared/eventbus"
	"github.com/lucky-stack/raffle-bot/app/shared/handlerwrapper"
	"github.com/lucky-stack/raffle-bot/app/shared/observability"
	"github.com/lucky-stack/raffle-bot/app/shared/utils"
)

// Module represents the randomness module. In production it only hosts the
// request client; with the dev fulfiller enabled it also answers requests
// locally so the whole loop runs without an external provider.
type Module struct {
	Client Client
}

// NewRandomnessModule creates the randomness client and, when devFulfiller is
// set, registers the local fulfiller on the router.
func NewRandomnessModule(
	_ context.Context,
	obs observability.Observability,
	eventBus eventbus.EventBus,
	router *message.Router,
	helpers utils.Helpers,
	cfg Config,
	fulfilledSubject string,
	devFulfiller bool,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	client := NewNATSClient(eventBus, helpers, cfg, logger)

	if devFulfiller {
		logger.Warn("Dev randomness fulfiller enabled; draws are NOT provider-backed",
			slog.String("request_subject", cfg.RequestSubject),
		)
		fulfiller := NewDevFulfiller(fulfilledSubject, logger)
		handlerName := "randomness." + cfg.RequestSubject
		router.AddHandler(
			handlerName,
			cfg.RequestSubject,
			eventBus,
			"", // Watermill reads topic from message metadata when empty
			eventBus,
			handlerwrapper.WrapTransformingTyped(
				handlerName,
				logger,
				tracer,
				helpers,
				nil,
				func(ctx context.Context, payload *randomnessevents.RequestPayloadV1) ([]handlerwrapper.Result, error) {
					return fulfiller.HandleRequest(ctx, payload)
				},
			),
		)
	}

	return &Module{Client: client}, nil
}
