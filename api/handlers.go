package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	ledgerservice "github.com/lucky-stack/raffle-bot/app/modules/ledger/application"
	ledgerdb "github.com/lucky-stack/raffle-bot/app/modules/ledger/infrastructure/repositories"
	raffleservice "github.com/lucky-stack/raffle-bot/app/modules/raffle/application"
	raffledomain "github.com/lucky-stack/raffle-bot/app/modules/raffle/domain"
	"github.com/lucky-stack/raffle-bot/app/shared/attr"
)

// Handler serves the raffle's read and entry endpoints.
type Handler struct {
	raffle raffleservice.Service
	ledger ledgerservice.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(raffle raffleservice.Service, ledger ledgerservice.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{raffle: raffle, ledger: ledger, logger: logger}
}

type enterRequest struct {
	ParticipantID string `json:"participant_id"`
	Amount        int64  `json:"amount"`
}

type enterResponse struct {
	ParticipantID string `json:"participant_id"`
	Amount        int64  `json:"amount"`
	Participants  int    `json:"participants"`
	PotBalance    int64  `json:"pot_balance"`
}

type statusResponse struct {
	State        string `json:"state"`
	Participants int    `json:"participants"`
	PotBalance   int64  `json:"pot_balance"`
	EntryFee     int64  `json:"entry_fee"`
	DrawInterval string `json:"draw_interval"`
	LastDrawAt   string `json:"last_draw_at"`
	RecentWinner string `json:"recent_winner,omitempty"`
}

type participantsResponse struct {
	Participants []string `json:"participants"`
}

type winnerResponse struct {
	Winner string `json:"winner"`
}

type topUpRequest struct {
	Amount int64 `json:"amount"`
}

type balanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Enter handles POST /raffle/enter.
func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	var req enterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.ParticipantID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "participant_id is required"})
		return
	}

	err := h.raffle.Enter(r.Context(), req.ParticipantID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, raffledomain.ErrInsufficientEntry):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "amount below entry fee"})
		case errors.Is(err, raffledomain.ErrRoundNotOpen):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "round is drawing"})
		case errors.Is(err, ledgerdb.ErrInsufficientFunds):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "insufficient funds"})
		case errors.Is(err, ledgerdb.ErrAccountNotFound):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "account not found"})
		default:
			h.logger.ErrorContext(r.Context(), "Entry failed", attr.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	snap := h.raffle.Status(r.Context())
	writeJSON(w, http.StatusOK, enterResponse{
		ParticipantID: req.ParticipantID,
		Amount:        req.Amount,
		Participants:  len(snap.Participants),
		PotBalance:    snap.PotBalance,
	})
}

// Status handles GET /raffle.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.raffle.Status(r.Context())
	writeJSON(w, http.StatusOK, statusResponse{
		State:        string(snap.State),
		Participants: len(snap.Participants),
		PotBalance:   snap.PotBalance,
		EntryFee:     snap.EntryFee,
		DrawInterval: snap.DrawInterval.String(),
		LastDrawAt:   snap.LastDrawAt.Format(time.RFC3339),
		RecentWinner: snap.RecentWinner,
	})
}

// Participants handles GET /raffle/participants.
func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	snap := h.raffle.Status(r.Context())
	participants := snap.Participants
	if participants == nil {
		participants = []string{}
	}
	writeJSON(w, http.StatusOK, participantsResponse{Participants: participants})
}

// Winner handles GET /raffle/winner.
func (h *Handler) Winner(w http.ResponseWriter, r *http.Request) {
	snap := h.raffle.Status(r.Context())
	if snap.RecentWinner == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no winner yet"})
		return
	}
	writeJSON(w, http.StatusOK, winnerResponse{Winner: snap.RecentWinner})
}

// TopUp handles POST /accounts/{accountID}/topup.
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.ledger.TopUp(r.Context(), accountID, req.Amount); err != nil {
		if errors.Is(err, ledgerservice.ErrInvalidAmount) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "amount must be positive"})
			return
		}
		h.logger.ErrorContext(r.Context(), "Top up failed", attr.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	balance, err := h.ledger.Balance(r.Context(), accountID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Balance read failed", attr.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: balance})
}

// Balance handles GET /accounts/{accountID}/balance.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	balance, err := h.ledger.Balance(r.Context(), accountID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Balance read failed", attr.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: balance})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
