package raffleservice

import (
	"context"

	raffledomain "github.com/lucky-stack/raffle-bot/app/modules/raffle/domain"
)

// Settlement is the outcome of a settled round.
type Settlement struct {
	Winner string
	Amount int64
}

// Service is the raffle application surface.
type Service interface {
	// Enter adds a participant to the open round for the given amount.
	Enter(ctx context.Context, participantID string, amount int64) error
	// CheckUpkeep reports whether a draw may start right now. Read-only
	// probe for the periodic trigger; PerformUpkeep re-checks
	// authoritatively.
	CheckUpkeep(ctx context.Context) bool
	// PerformUpkeep starts a draw, returning the randomness request ID.
	PerformUpkeep(ctx context.Context) (string, error)
	// Settle consumes a randomness fulfillment.
	Settle(ctx context.Context, requestID string, values []uint64) (Settlement, error)
	// Status returns a copy of the current round state.
	Status(ctx context.Context) raffledomain.Snapshot
}
