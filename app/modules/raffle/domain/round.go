package raffledomain

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the raffle round state.
type State string

const (
	// StateOpen accepts entries.
	StateOpen State = "OPEN"
	// StateDrawing has a randomness request in flight; entries are rejected
	// until settlement.
	StateDrawing State = "DRAWING"
)

// RandomnessSource submits a randomness request and returns the identifier
// its eventual fulfillment will carry.
type RandomnessSource interface {
	RequestRandom(ctx context.Context, count int) (string, error)
}

// Ledger moves value between the participants and the pot. Both calls must
// either confirm the transfer or return an error with no value moved.
type Ledger interface {
	// Deposit moves an entry amount from the participant into the pot.
	Deposit(ctx context.Context, participantID string, amount int64) error
	// Payout moves the pot to the winner.
	Payout(ctx context.Context, winnerID string, amount int64) error
}

// Notifier observes round transitions. Calls are made while the round lock is
// held; implementations must not call back into the round.
type Notifier interface {
	Entered(participantID string, amount int64)
	WinnerPicked(winnerID string, amount int64)
}

// Config holds the immutable round parameters.
type Config struct {
	EntryFee     int64
	DrawInterval time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Snapshot is a point-in-time copy of the round state, used for read access
// and persistence.
type Snapshot struct {
	State            State
	Participants     []string
	PotBalance       int64
	EntryFee         int64
	DrawInterval     time.Duration
	LastDrawAt       time.Time
	RecentWinner     string
	PendingRequestID string
}

// Round is the raffle round state machine. It is the sole owner of the round
// state; every operation serializes on the round mutex for its full duration,
// including the external calls it awaits. There is no terminal state — a
// settlement resets the round into the next one.
type Round struct {
	mu sync.Mutex

	state            State
	participants     []string
	potBalance       int64
	entryFee         int64
	drawInterval     time.Duration
	lastDrawAt       time.Time
	recentWinner     string
	pendingRequestID string

	randomness RandomnessSource
	ledger     Ledger
	notifiers  []Notifier
	now        func() time.Time
}

// NewRound creates a round in OPEN state with an empty roster. lastDrawAt is
// initialized to the current time so the first draw waits a full interval.
func NewRound(cfg Config, randomness RandomnessSource, ledger Ledger, notifiers ...Notifier) *Round {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Round{
		state:        StateOpen,
		entryFee:     cfg.EntryFee,
		drawInterval: cfg.DrawInterval,
		lastDrawAt:   now(),
		randomness:   randomness,
		ledger:       ledger,
		notifiers:    notifiers,
		now:          now,
	}
}

// RestoreRound rebuilds a round from a persisted snapshot. Fee and interval
// come from cfg, not the snapshot; they are fixed per deployment.
func RestoreRound(cfg Config, snap Snapshot, randomness RandomnessSource, ledger Ledger, notifiers ...Notifier) *Round {
	r := NewRound(cfg, randomness, ledger, notifiers...)
	r.state = snap.State
	r.participants = append([]string(nil), snap.Participants...)
	r.potBalance = snap.PotBalance
	if !snap.LastDrawAt.IsZero() {
		r.lastDrawAt = snap.LastDrawAt
	}
	r.recentWinner = snap.RecentWinner
	r.pendingRequestID = snap.PendingRequestID
	return r
}

// Enter adds a participant to the round. The amount is moved into the pot via
// the ledger before any round state changes; a rejected entry leaves the
// round untouched. Re-entry by the same participant is allowed and weights
// their selection odds, one slot per entry.
func (r *Round) Enter(ctx context.Context, participantID string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount < r.entryFee {
		return ErrInsufficientEntry
	}
	if r.state != StateOpen {
		return ErrRoundNotOpen
	}

	if err := r.ledger.Deposit(ctx, participantID, amount); err != nil {
		return fmt.Errorf("entry deposit failed: %w", err)
	}

	r.participants = append(r.participants, participantID)
	r.potBalance += amount

	for _, n := range r.notifiers {
		n.Entered(participantID, amount)
	}
	return nil
}

// Eligible reports whether a draw may start at the given time. Pure read; the
// authoritative check is the one StartDraw performs under the lock.
func (r *Round) Eligible(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eligibility(now) == nil
}

// eligibility returns nil when all draw conditions hold. Callers hold r.mu.
func (r *Round) eligibility(now time.Time) *UpkeepNotNeededError {
	elapsed := now.Sub(r.lastDrawAt)
	if r.state == StateOpen && elapsed > r.drawInterval && len(r.participants) > 0 && r.potBalance > 0 {
		return nil
	}
	return &UpkeepNotNeededError{
		State:        r.state,
		Participants: len(r.participants),
		PotBalance:   r.potBalance,
		Elapsed:      elapsed,
	}
}

// StartDraw re-derives eligibility under the lock, submits a randomness
// request for one value, and flips the round to DRAWING. The re-check and the
// state flip are indivisible; no entry can slip in between them. A failed
// submission leaves the round OPEN and unchanged.
func (r *Round) StartDraw(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.eligibility(r.now()); err != nil {
		return "", err
	}

	requestID, err := r.randomness.RequestRandom(ctx, 1)
	if err != nil {
		return "", fmt.Errorf("randomness request failed: %w", err)
	}

	r.state = StateDrawing
	r.pendingRequestID = requestID
	return requestID, nil
}

// Settle consumes a randomness fulfillment: selects the winner, pays out the
// pot, and resets the round. Duplicate, stale, or misrouted fulfillments are
// rejected with ErrSettlementNotPending and change nothing. A failed payout
// leaves the round DRAWING with roster and pot intact; only a confirmed
// transfer commits the reset.
func (r *Round) Settle(ctx context.Context, requestID string, values []uint64) (string, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateDrawing || requestID == "" || requestID != r.pendingRequestID || len(values) == 0 {
		return "", 0, ErrSettlementNotPending
	}

	// values[0] mod N selection, bias for non-power-of-two rosters included,
	// matching the published draw formula.
	winnerIndex := int(values[0] % uint64(len(r.participants)))
	winner := r.participants[winnerIndex]
	amount := r.potBalance

	if err := r.ledger.Payout(ctx, winner, amount); err != nil {
		return "", 0, &PayoutTransferError{Winner: winner, Amount: amount, Cause: err}
	}

	r.recentWinner = winner
	r.participants = nil
	r.potBalance = 0
	r.lastDrawAt = r.now()
	r.pendingRequestID = ""
	r.state = StateOpen

	for _, n := range r.notifiers {
		n.WinnerPicked(winner, amount)
	}
	return winner, amount, nil
}

// State returns the current round state.
func (r *Round) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ParticipantCount returns the roster length.
func (r *Round) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// Participant returns the roster entry at index.
func (r *Round) Participant(index int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.participants) {
		return "", false
	}
	return r.participants[index], true
}

// PotBalance returns the pooled balance.
func (r *Round) PotBalance() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.potBalance
}

// RecentWinner returns the last settled winner, false before the first
// settlement.
func (r *Round) RecentWinner() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recentWinner, r.recentWinner != ""
}

// LastDrawAt returns the round start / last reset timestamp.
func (r *Round) LastDrawAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastDrawAt
}

// EntryFee returns the fixed entry fee.
func (r *Round) EntryFee() int64 {
	return r.entryFee
}

// DrawInterval returns the fixed draw interval.
func (r *Round) DrawInterval() time.Duration {
	return r.drawInterval
}

// Snapshot returns a copy of the full round state.
func (r *Round) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		State:            r.state,
		Participants:     append([]string(nil), r.participants...),
		PotBalance:       r.potBalance,
		EntryFee:         r.entryFee,
		DrawInterval:     r.drawInterval,
		LastDrawAt:       r.lastDrawAt,
		RecentWinner:     r.recentWinner,
		PendingRequestID: r.pendingRequestID,
	}
}
