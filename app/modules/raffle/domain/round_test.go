package raffledomain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRound(t *testing.T, fee int64, interval time.Duration) (*Round, *FakeRandomnessSource, *FakeLedger, *fakeClock) {
	t.Helper()
	clock := newFakeClock(testStart)
	randomness := &FakeRandomnessSource{}
	ledger := &FakeLedger{}
	round := NewRound(Config{
		EntryFee:     fee,
		DrawInterval: interval,
		Now:          clock.Now,
	}, randomness, ledger)
	return round, randomness, ledger, clock
}

func TestEnter(t *testing.T) {
	tests := []struct {
		name        string
		amount      int64
		setup       func(r *Round, ledger *FakeLedger)
		wantErr     error
		wantRoster  int
		wantBalance int64
	}{
		{
			name:        "exact fee accepted",
			amount:      100,
			wantRoster:  1,
			wantBalance: 100,
		},
		{
			name:        "overpayment accepted in full",
			amount:      250,
			wantRoster:  1,
			wantBalance: 250,
		},
		{
			name:    "below fee rejected",
			amount:  99,
			wantErr: ErrInsufficientEntry,
		},
		{
			name:   "rejected while drawing",
			amount: 100,
			setup: func(r *Round, _ *FakeLedger) {
				r.state = StateDrawing
			},
			wantErr: ErrRoundNotOpen,
		},
		{
			name:   "deposit failure leaves round untouched",
			amount: 100,
			setup: func(_ *Round, ledger *FakeLedger) {
				ledger.DepositFunc = func(context.Context, string, int64) error {
					return errors.New("insufficient funds")
				}
			},
			wantErr: nil, // checked via assert.Error below
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			round, _, ledger, _ := newTestRound(t, 100, time.Minute)
			if tt.setup != nil {
				tt.setup(round, ledger)
			}

			err := round.Enter(context.Background(), "alice", tt.amount)

			if tt.name == "deposit failure leaves round untouched" {
				assert.Error(t, err)
				assert.Equal(t, 0, round.ParticipantCount())
				assert.Equal(t, int64(0), round.PotBalance())
				return
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, round.ParticipantCount())
				assert.Equal(t, int64(0), round.PotBalance())
				assert.Empty(t, ledger.Calls)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.wantRoster, round.ParticipantCount())
			assert.Equal(t, tt.wantBalance, round.PotBalance())
		})
	}
}

func TestEnterAccumulates(t *testing.T) {
	round, _, _, _ := newTestRound(t, 100, time.Minute)
	ctx := context.Background()

	entries := []struct {
		id     string
		amount int64
	}{
		{"alice", 100},
		{"bob", 150},
		{"carol", 100},
	}

	for _, e := range entries {
		require.NoError(t, round.Enter(ctx, e.id, e.amount))
	}

	assert.Equal(t, 3, round.ParticipantCount())
	assert.Equal(t, int64(350), round.PotBalance())

	// Call order is preserved; it is the index space for winner selection.
	for i, e := range entries {
		got, ok := round.Participant(i)
		require.True(t, ok)
		assert.Equal(t, e.id, got)
	}
}

func TestEnterNotifies(t *testing.T) {
	clock := newFakeClock(testStart)
	recorder := &RecordingNotifier{}
	round := NewRound(Config{EntryFee: 100, DrawInterval: time.Minute, Now: clock.Now},
		&FakeRandomnessSource{}, &FakeLedger{}, recorder)

	require.NoError(t, round.Enter(context.Background(), "alice", 100))
	assert.Equal(t, []string{"alice"}, recorder.Entries)
}

func TestEligibility(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *Round, clock *fakeClock)
		want  bool
	}{
		{
			name: "all conditions hold",
			setup: func(r *Round, clock *fakeClock) {
				_ = r.Enter(context.Background(), "alice", 100)
				clock.Advance(61 * time.Second)
			},
			want: true,
		},
		{
			name: "not eligible while drawing",
			setup: func(r *Round, clock *fakeClock) {
				_ = r.Enter(context.Background(), "alice", 100)
				clock.Advance(61 * time.Second)
				r.state = StateDrawing
			},
			want: false,
		},
		{
			name: "not eligible before interval elapses",
			setup: func(r *Round, clock *fakeClock) {
				_ = r.Enter(context.Background(), "alice", 100)
				clock.Advance(30 * time.Second)
			},
			want: false,
		},
		{
			name: "elapsed equal to interval is not enough",
			setup: func(r *Round, clock *fakeClock) {
				_ = r.Enter(context.Background(), "alice", 100)
				clock.Advance(60 * time.Second)
			},
			want: false,
		},
		{
			name: "not eligible with empty roster",
			setup: func(r *Round, clock *fakeClock) {
				clock.Advance(61 * time.Second)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			round, _, _, clock := newTestRound(t, 100, time.Minute)
			tt.setup(round, clock)
			assert.Equal(t, tt.want, round.Eligible(clock.Now()))
		})
	}
}

func TestStartDraw(t *testing.T) {
	t.Run("ineligible start fails with diagnostics and changes nothing", func(t *testing.T) {
		round, randomness, _, clock := newTestRound(t, 100, time.Minute)
		require.NoError(t, round.Enter(context.Background(), "alice", 100))
		// Interval has not elapsed.

		_, err := round.StartDraw(context.Background())
		require.ErrorIs(t, err, ErrUpkeepNotNeeded)

		var diag *UpkeepNotNeededError
		require.ErrorAs(t, err, &diag)
		assert.Equal(t, StateOpen, diag.State)
		assert.Equal(t, 1, diag.Participants)
		assert.Equal(t, int64(100), diag.PotBalance)

		assert.Equal(t, StateOpen, round.State())
		assert.Equal(t, 1, round.ParticipantCount())
		assert.Equal(t, int64(100), round.PotBalance())
		assert.Empty(t, randomness.Requests)
		_ = clock
	})

	t.Run("eligible start requests one value and flips to drawing", func(t *testing.T) {
		round, randomness, _, clock := newTestRound(t, 100, time.Minute)
		require.NoError(t, round.Enter(context.Background(), "alice", 100))
		clock.Advance(61 * time.Second)

		requestID, err := round.StartDraw(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "req-1", requestID)
		assert.Equal(t, []int{1}, randomness.Requests)
		assert.Equal(t, StateDrawing, round.State())

		// No entry may be accepted once the state flipped.
		err = round.Enter(context.Background(), "bob", 100)
		assert.ErrorIs(t, err, ErrRoundNotOpen)
	})

	t.Run("second start while drawing fails", func(t *testing.T) {
		round, _, _, clock := newTestRound(t, 100, time.Minute)
		require.NoError(t, round.Enter(context.Background(), "alice", 100))
		clock.Advance(61 * time.Second)

		_, err := round.StartDraw(context.Background())
		require.NoError(t, err)

		_, err = round.StartDraw(context.Background())
		assert.ErrorIs(t, err, ErrUpkeepNotNeeded)
	})

	t.Run("failed submission leaves round open", func(t *testing.T) {
		round, randomness, _, clock := newTestRound(t, 100, time.Minute)
		randomness.RequestRandomFunc = func(context.Context, int) (string, error) {
			return "", errors.New("provider unavailable")
		}
		require.NoError(t, round.Enter(context.Background(), "alice", 100))
		clock.Advance(61 * time.Second)

		_, err := round.StartDraw(context.Background())
		require.Error(t, err)
		assert.Equal(t, StateOpen, round.State())
		assert.Empty(t, round.Snapshot().PendingRequestID)
	})
}

func TestSettle(t *testing.T) {
	startDrawing := func(t *testing.T, round *Round, clock *fakeClock, entrants ...string) string {
		t.Helper()
		for _, id := range entrants {
			require.NoError(t, round.Enter(context.Background(), id, 100))
		}
		clock.Advance(61 * time.Second)
		requestID, err := round.StartDraw(context.Background())
		require.NoError(t, err)
		return requestID
	}

	t.Run("mismatched request id rejected", func(t *testing.T) {
		round, _, _, clock := newTestRound(t, 100, time.Minute)
		startDrawing(t, round, clock, "alice")

		_, _, err := round.Settle(context.Background(), "stale-req", []uint64{0})
		assert.ErrorIs(t, err, ErrSettlementNotPending)
		assert.Equal(t, StateDrawing, round.State())
		assert.Equal(t, 1, round.ParticipantCount())
	})

	t.Run("settle while open rejected", func(t *testing.T) {
		round, _, _, _ := newTestRound(t, 100, time.Minute)
		require.NoError(t, round.Enter(context.Background(), "alice", 100))

		_, _, err := round.Settle(context.Background(), "req-1", []uint64{0})
		assert.ErrorIs(t, err, ErrSettlementNotPending)
	})

	t.Run("empty values rejected", func(t *testing.T) {
		round, _, _, clock := newTestRound(t, 100, time.Minute)
		requestID := startDrawing(t, round, clock, "alice")

		_, _, err := round.Settle(context.Background(), requestID, nil)
		assert.ErrorIs(t, err, ErrSettlementNotPending)
	})

	t.Run("failed payout keeps round drawing with funds intact", func(t *testing.T) {
		round, _, ledger, clock := newTestRound(t, 100, time.Minute)
		requestID := startDrawing(t, round, clock, "alice", "bob")
		ledger.PayoutFunc = func(context.Context, string, int64) error {
			return errors.New("transfer rejected")
		}

		_, _, err := round.Settle(context.Background(), requestID, []uint64{0})
		require.ErrorIs(t, err, ErrPayoutTransferFailed)

		assert.Equal(t, StateDrawing, round.State())
		assert.Equal(t, 2, round.ParticipantCount())
		assert.Equal(t, int64(200), round.PotBalance())
		_, ok := round.RecentWinner()
		assert.False(t, ok)

		// A retried settlement with the same request succeeds once the
		// transfer confirms.
		ledger.PayoutFunc = nil
		winner, amount, err := round.Settle(context.Background(), requestID, []uint64{0})
		require.NoError(t, err)
		assert.Equal(t, "alice", winner)
		assert.Equal(t, int64(200), amount)
		assert.Equal(t, StateOpen, round.State())
	})

	t.Run("successful settlement resets round", func(t *testing.T) {
		round, _, ledger, clock := newTestRound(t, 100, time.Minute)
		requestID := startDrawing(t, round, clock, "alice", "bob", "carol")

		settledAt := clock.Now().Add(5 * time.Second)
		clock.Advance(5 * time.Second)

		winner, amount, err := round.Settle(context.Background(), requestID, []uint64{7})
		require.NoError(t, err)

		// 7 mod 3 = 1, the second entrant.
		assert.Equal(t, "bob", winner)
		assert.Equal(t, int64(300), amount)

		assert.Equal(t, StateOpen, round.State())
		assert.Equal(t, 0, round.ParticipantCount())
		assert.Equal(t, int64(0), round.PotBalance())
		assert.Equal(t, settledAt, round.LastDrawAt())
		assert.Empty(t, round.Snapshot().PendingRequestID)

		recent, ok := round.RecentWinner()
		require.True(t, ok)
		assert.Equal(t, "bob", recent)

		// The payout went to the winner before any reset.
		last := ledger.Calls[len(ledger.Calls)-1]
		assert.Equal(t, "payout", last.Op)
		assert.Equal(t, "bob", last.Account)
		assert.Equal(t, int64(300), last.Amount)
	})

	t.Run("duplicate fulfillment rejected after settlement", func(t *testing.T) {
		round, _, _, clock := newTestRound(t, 100, time.Minute)
		requestID := startDrawing(t, round, clock, "alice")

		_, _, err := round.Settle(context.Background(), requestID, []uint64{3})
		require.NoError(t, err)

		_, _, err = round.Settle(context.Background(), requestID, []uint64{3})
		assert.ErrorIs(t, err, ErrSettlementNotPending)
	})
}

func TestReEntryWeighting(t *testing.T) {
	round, _, _, clock := newTestRound(t, 100, time.Minute)
	ctx := context.Background()

	require.NoError(t, round.Enter(ctx, "alice", 100))
	require.NoError(t, round.Enter(ctx, "alice", 100))
	require.NoError(t, round.Enter(ctx, "bob", 100))

	// alice holds two of three index slots.
	first, _ := round.Participant(0)
	second, _ := round.Participant(1)
	third, _ := round.Participant(2)
	assert.Equal(t, "alice", first)
	assert.Equal(t, "alice", second)
	assert.Equal(t, "bob", third)

	clock.Advance(61 * time.Second)
	requestID, err := round.StartDraw(ctx)
	require.NoError(t, err)

	// Indexes 0 and 1 select alice, index 2 selects bob.
	winner, _, err := round.Settle(ctx, requestID, []uint64{4})
	require.NoError(t, err)
	assert.Equal(t, "alice", winner) // 4 mod 3 = 1
}

func TestEndToEndScenario(t *testing.T) {
	clock := newFakeClock(testStart)
	randomness := &FakeRandomnessSource{
		RequestRandomFunc: func(context.Context, int) (string, error) { return "vrf-42", nil },
	}
	ledger := &FakeLedger{}
	recorder := &RecordingNotifier{}
	round := NewRound(Config{EntryFee: 100, DrawInterval: 60 * time.Second, Now: clock.Now},
		randomness, ledger, recorder)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, round.Enter(ctx, fmt.Sprintf("player-%d", i), 100))
	}
	assert.Equal(t, int64(300), round.PotBalance())

	assert.False(t, round.Eligible(clock.Now()))
	clock.Advance(61 * time.Second)
	assert.True(t, round.Eligible(clock.Now()))

	requestID, err := round.StartDraw(ctx)
	require.NoError(t, err)
	assert.Equal(t, "vrf-42", requestID)
	assert.Equal(t, StateDrawing, round.State())

	winner, amount, err := round.Settle(ctx, requestID, []uint64{7})
	require.NoError(t, err)
	assert.Equal(t, "player-2", winner)
	assert.Equal(t, int64(300), amount)

	assert.Equal(t, StateOpen, round.State())
	assert.Equal(t, 0, round.ParticipantCount())
	assert.Equal(t, int64(0), round.PotBalance())
	recent, _ := round.RecentWinner()
	assert.Equal(t, "player-2", recent)
	assert.Equal(t, []string{"player-2"}, recorder.Winners)
}

func TestRestoreRound(t *testing.T) {
	clock := newFakeClock(testStart)
	snap := Snapshot{
		State:            StateDrawing,
		Participants:     []string{"alice", "bob"},
		PotBalance:       200,
		LastDrawAt:       testStart.Add(-time.Hour),
		PendingRequestID: "vrf-9",
		RecentWinner:     "carol",
	}

	round := RestoreRound(Config{EntryFee: 100, DrawInterval: time.Minute, Now: clock.Now},
		snap, &FakeRandomnessSource{}, &FakeLedger{})

	assert.Equal(t, StateDrawing, round.State())
	assert.Equal(t, 2, round.ParticipantCount())
	assert.Equal(t, int64(200), round.PotBalance())

	// The restored round settles with its pre-restart request ID.
	winner, amount, err := round.Settle(context.Background(), "vrf-9", []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, "bob", winner)
	assert.Equal(t, int64(200), amount)
}

func TestSnapshotRoundTrip(t *testing.T) {
	gofakeit.Seed(7)
	clock := newFakeClock(testStart)
	cfg := Config{EntryFee: 100, DrawInterval: time.Hour, Now: clock.Now}
	round := NewRound(cfg, &FakeRandomnessSource{}, &FakeLedger{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, round.Enter(ctx, gofakeit.Username(), 100))
	}

	snap := round.Snapshot()
	restored := RestoreRound(cfg, snap, &FakeRandomnessSource{}, &FakeLedger{})

	if diff := cmp.Diff(snap, restored.Snapshot()); diff != "" {
		t.Errorf("restored snapshot mismatch (-want +got):\n%s", diff)
	}
}
