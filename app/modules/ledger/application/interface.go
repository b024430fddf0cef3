package ledgerservice

import "context"

// Service is the ledger surface the rest of the application uses. Deposit and
// Payout satisfy the raffle domain's Ledger collaborator.
type Service interface {
	// Deposit moves an entry amount from the participant's account into the
	// pot account.
	Deposit(ctx context.Context, participantID string, amount int64) error
	// Payout moves amount from the pot account to the winner's account.
	Payout(ctx context.Context, winnerID string, amount int64) error
	// TopUp credits an account from outside the system.
	TopUp(ctx context.Context, accountID string, amount int64) error
	// Balance returns the current balance of an account.
	Balance(ctx context.Context, accountID string) (int64, error)
}
