package raffledomain

import (
	"context"
	"sync"
	"time"
)

// ------------------------
// Fake Randomness Source
// ------------------------

type FakeRandomnessSource struct {
	RequestRandomFunc func(ctx context.Context, count int) (string, error)

	Requests []int
}

func (f *FakeRandomnessSource) RequestRandom(ctx context.Context, count int) (string, error) {
	f.Requests = append(f.Requests, count)
	if f.RequestRandomFunc != nil {
		return f.RequestRandomFunc(ctx, count)
	}
	return "req-1", nil
}

// ------------------------
// Fake Ledger
// ------------------------

type ledgerCall struct {
	Op      string
	Account string
	Amount  int64
}

type FakeLedger struct {
	DepositFunc func(ctx context.Context, participantID string, amount int64) error
	PayoutFunc  func(ctx context.Context, winnerID string, amount int64) error

	Calls []ledgerCall
}

func (f *FakeLedger) Deposit(ctx context.Context, participantID string, amount int64) error {
	f.Calls = append(f.Calls, ledgerCall{Op: "deposit", Account: participantID, Amount: amount})
	if f.DepositFunc != nil {
		return f.DepositFunc(ctx, participantID, amount)
	}
	return nil
}

func (f *FakeLedger) Payout(ctx context.Context, winnerID string, amount int64) error {
	f.Calls = append(f.Calls, ledgerCall{Op: "payout", Account: winnerID, Amount: amount})
	if f.PayoutFunc != nil {
		return f.PayoutFunc(ctx, winnerID, amount)
	}
	return nil
}

// ------------------------
// Recording Notifier
// ------------------------

type RecordingNotifier struct {
	mu      sync.Mutex
	Entries []string
	Winners []string
}

func (n *RecordingNotifier) Entered(participantID string, amount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Entries = append(n.Entries, participantID)
}

func (n *RecordingNotifier) WinnerPicked(winnerID string, amount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Winners = append(n.Winners, winnerID)
}

// ------------------------
// Manual Clock
// ------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
