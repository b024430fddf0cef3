package raffledb

import (
	"time"

	"github.com/uptrace/bun"
)

// roundRecordID is the primary key of the singleton round row; the raffle has
// exactly one live round at a time.
const roundRecordID = 1

// RoundRecord is the persisted snapshot of the live round. It is written
// after every state change so a restart resumes mid-round, including a round
// stuck in DRAWING.
type RoundRecord struct {
	bun.BaseModel `bun:"table:raffle_rounds"`

	ID               int64     `bun:"id,pk"`
	State            string    `bun:"state,notnull"`
	Participants     []string  `bun:"participants,array"`
	PotBalance       int64     `bun:"pot_balance,notnull,default:0"`
	LastDrawAt       time.Time `bun:"last_draw_at,nullzero,notnull"`
	PendingRequestID string    `bun:"pending_request_id"`
	RecentWinner     string    `bun:"recent_winner"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:now()"`
}

// WinnerRecord holds the most recent settlement. A single upserted row; older
// settlements are overwritten, matching the "most recent winner only"
// retention rule.
type WinnerRecord struct {
	bun.BaseModel `bun:"table:raffle_winners"`

	ID        int64     `bun:"id,pk"`
	WinnerID  string    `bun:"winner_id,notnull"`
	Amount    int64     `bun:"amount,notnull"`
	RequestID string    `bun:"request_id,notnull"`
	PickedAt  time.Time `bun:"picked_at,nullzero,notnull"`
}
