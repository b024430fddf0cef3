package rafflehandlers

import (
	"context"

	raffleevents "github.com/lucky-stack/raffle-bot/app/events/raffle"
	randomnessevents "github.com/lucky-stack/raffle-bot/app/events/randomness"
	"github.com/lucky-stack/raffle-bot/app/shared/handlerwrapper"
)

// Handlers processes the raffle module's incoming messages.
type Handlers interface {
	// HandleEntryRequest processes an entry request, returning a rejection
	// event when the entry is refused.
	HandleEntryRequest(ctx context.Context, payload *raffleevents.EntryRequestPayloadV1) ([]handlerwrapper.Result, error)
	// HandleRandomnessFulfilled settles the pending draw with the delivered
	// random values.
	HandleRandomnessFulfilled(ctx context.Context, payload *randomnessevents.FulfilledPayloadV1) ([]handlerwrapper.Result, error)
}
