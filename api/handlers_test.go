package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerservice "github.com/lucky-stack/raffle-bot/app/modules/ledger/application"
	ledgerdb "github.com/lucky-stack/raffle-bot/app/modules/ledger/infrastructure/repositories"
	raffleservice "github.com/lucky-stack/raffle-bot/app/modules/raffle/application"
	raffledomain "github.com/lucky-stack/raffle-bot/app/modules/raffle/domain"
)

type fakeRaffle struct {
	enterErr error
	snapshot raffledomain.Snapshot

	entered []string
}

var _ raffleservice.Service = (*fakeRaffle)(nil)

func (f *fakeRaffle) Enter(_ context.Context, participantID string, _ int64) error {
	if f.enterErr != nil {
		return f.enterErr
	}
	f.entered = append(f.entered, participantID)
	return nil
}

func (f *fakeRaffle) CheckUpkeep(context.Context) bool { return false }

func (f *fakeRaffle) PerformUpkeep(context.Context) (string, error) { return "", nil }

func (f *fakeRaffle) Settle(context.Context, string, []uint64) (raffleservice.Settlement, error) {
	return raffleservice.Settlement{}, nil
}

func (f *fakeRaffle) Status(context.Context) raffledomain.Snapshot { return f.snapshot }

type fakeLedger struct {
	topUpErr error
	balances map[string]int64
}

var _ ledgerservice.Service = (*fakeLedger)(nil)

func (f *fakeLedger) Deposit(context.Context, string, int64) error { return nil }
func (f *fakeLedger) Payout(context.Context, string, int64) error  { return nil }

func (f *fakeLedger) TopUp(_ context.Context, accountID string, amount int64) error {
	if f.topUpErr != nil {
		return f.topUpErr
	}
	if f.balances == nil {
		f.balances = make(map[string]int64)
	}
	f.balances[accountID] += amount
	return nil
}

func (f *fakeLedger) Balance(_ context.Context, accountID string) (int64, error) {
	return f.balances[accountID], nil
}

func newTestRouter(raffle *fakeRaffle, ledger *fakeLedger) http.Handler {
	return NewRouter(raffle, ledger, nil, nil, RouterConfig{EnterRate: 100, EnterBurst: 100})
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestEnterEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		enterErr   error
		wantStatus int
	}{
		{
			name:       "accepts a valid entry",
			body:       enterRequest{ParticipantID: "alice", Amount: 100},
			wantStatus: http.StatusOK,
		},
		{
			name:       "rejects a missing participant",
			body:       enterRequest{Amount: 100},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "maps an underfunded entry to 422",
			body:       enterRequest{ParticipantID: "alice", Amount: 1},
			enterErr:   raffledomain.ErrInsufficientEntry,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "maps a drawing round to 409",
			body:       enterRequest{ParticipantID: "alice", Amount: 100},
			enterErr:   raffledomain.ErrRoundNotOpen,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "maps insufficient funds to 422",
			body:       enterRequest{ParticipantID: "alice", Amount: 100},
			enterErr:   ledgerdb.ErrInsufficientFunds,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raffle := &fakeRaffle{
				enterErr: tt.enterErr,
				snapshot: raffledomain.Snapshot{
					Participants: []string{"alice"},
					PotBalance:   100,
				},
			}
			router := newTestRouter(raffle, &fakeLedger{})

			rec := postJSON(t, router, "/raffle/enter", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	raffle := &fakeRaffle{
		snapshot: raffledomain.Snapshot{
			State:        raffledomain.StateOpen,
			Participants: []string{"alice", "bob"},
			PotBalance:   200,
			EntryFee:     100,
			DrawInterval: time.Hour,
			LastDrawAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			RecentWinner: "carol",
		},
	}
	router := newTestRouter(raffle, &fakeLedger{})

	rec := get(t, router, "/raffle")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "OPEN", resp.State)
	assert.Equal(t, 2, resp.Participants)
	assert.Equal(t, int64(200), resp.PotBalance)
	assert.Equal(t, "carol", resp.RecentWinner)
}

func TestWinnerEndpoint(t *testing.T) {
	t.Run("404 before the first settlement", func(t *testing.T) {
		router := newTestRouter(&fakeRaffle{}, &fakeLedger{})
		rec := get(t, router, "/raffle/winner")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns the recent winner", func(t *testing.T) {
		raffle := &fakeRaffle{snapshot: raffledomain.Snapshot{RecentWinner: "bob"}}
		router := newTestRouter(raffle, &fakeLedger{})

		rec := get(t, router, "/raffle/winner")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp winnerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "bob", resp.Winner)
	})
}

func TestAccountEndpoints(t *testing.T) {
	ledger := &fakeLedger{}
	router := newTestRouter(&fakeRaffle{}, ledger)

	rec := postJSON(t, router, "/accounts/alice/topup", topUpRequest{Amount: 500})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp balanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.AccountID)
	assert.Equal(t, int64(500), resp.Balance)

	rec = get(t, router, "/accounts/alice/balance")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(500), resp.Balance)
}

func TestEnterRateLimit(t *testing.T) {
	raffle := &fakeRaffle{snapshot: raffledomain.Snapshot{}}
	router := NewRouter(raffle, &fakeLedger{}, nil, nil, RouterConfig{EnterRate: 1, EnterBurst: 1})

	first := postJSON(t, router, "/raffle/enter", enterRequest{ParticipantID: "alice", Amount: 100})
	assert.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, router, "/raffle/enter", enterRequest{ParticipantID: "alice", Amount: 100})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
