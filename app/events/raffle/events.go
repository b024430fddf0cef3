package raffleevents

import "time"

// Stream is the JetStream stream carrying all raffle subjects.
const Stream = "raffle"

// Raffle topics. The topic doubles as the NATS subject.
const (
	EntryRequestV1  = "raffle.entry.request.v1"
	EntryRejectedV1 = "raffle.entry.rejected.v1"
	EnteredV1       = "raffle.entered.v1"
	DrawStartedV1   = "raffle.draw.started.v1"
	WinnerPickedV1  = "raffle.winner.picked.v1"
)

// EntryRequestPayloadV1 asks to enter the open round for the given amount.
type EntryRequestPayloadV1 struct {
	ParticipantID string `json:"participant_id"`
	Amount        int64  `json:"amount"`
}

// EntryRejectedPayloadV1 reports a refused entry.
type EntryRejectedPayloadV1 struct {
	ParticipantID string `json:"participant_id"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
}

// EnteredPayloadV1 confirms an accepted entry with the post-entry totals.
type EnteredPayloadV1 struct {
	ParticipantID string `json:"participant_id"`
	Amount        int64  `json:"amount"`
	Participants  int    `json:"participants"`
	PotBalance    int64  `json:"pot_balance"`
}

// DrawStartedPayloadV1 announces a draw in flight.
type DrawStartedPayloadV1 struct {
	RequestID    string    `json:"request_id"`
	Participants int       `json:"participants"`
	PotBalance   int64     `json:"pot_balance"`
	StartedAt    time.Time `json:"started_at"`
}

// WinnerPickedPayloadV1 announces a settled round.
type WinnerPickedPayloadV1 struct {
	RequestID string    `json:"request_id"`
	Winner    string    `json:"winner"`
	Amount    int64     `json:"amount"`
	PickedAt  time.Time `json:"picked_at"`
}
