package raffledomain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for the raffle round. These are business outcomes the caller
// must handle, not infrastructure failures.
var (
	// ErrInsufficientEntry indicates the offered amount is below the entry fee.
	ErrInsufficientEntry = errors.New("entry amount below entry fee")

	// ErrRoundNotOpen indicates the round is not accepting entries.
	ErrRoundNotOpen = errors.New("round is not open")

	// ErrUpkeepNotNeeded indicates draw eligibility does not hold.
	ErrUpkeepNotNeeded = errors.New("upkeep not needed")

	// ErrSettlementNotPending indicates a fulfillment arrived for a round
	// that is not drawing, or with a stale request ID.
	ErrSettlementNotPending = errors.New("no settlement pending for request")

	// ErrPayoutTransferFailed indicates the ledger did not confirm the
	// winner payout. The round stays DRAWING with funds intact.
	ErrPayoutTransferFailed = errors.New("payout transfer failed")
)

// UpkeepNotNeededError carries the round diagnostics at the time of the
// failed eligibility check.
type UpkeepNotNeededError struct {
	State        State
	Participants int
	PotBalance   int64
	Elapsed      time.Duration
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("upkeep not needed: state=%s participants=%d pot=%d elapsed=%s",
		e.State, e.Participants, e.PotBalance, e.Elapsed)
}

func (e *UpkeepNotNeededError) Is(target error) bool {
	return target == ErrUpkeepNotNeeded
}

// PayoutTransferError wraps the ledger failure that blocked a settlement.
type PayoutTransferError struct {
	Winner string
	Amount int64
	Cause  error
}

func (e *PayoutTransferError) Error() string {
	return fmt.Sprintf("payout transfer of %d to %s failed: %v", e.Amount, e.Winner, e.Cause)
}

func (e *PayoutTransferError) Unwrap() error { return e.Cause }

func (e *PayoutTransferError) Is(target error) bool {
	return target == ErrPayoutTransferFailed
}
