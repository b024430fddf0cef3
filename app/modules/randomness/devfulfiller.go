package randomness

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"

	randomnessevents "github.com/lucky-stack/raffle-bot/app/events/randomness"
	"github.com/lucky-stack/raffle-bot/app/shared/attr"
	"github.com/lucky-stack/raffle-bot/app/shared/handlerwrapper"
)

// DevFulfiller answers randomness requests locally with crypto/rand values.
// It stands in for the external provider in development and test
// deployments; production points the subjects at a real coordinator instead.
type DevFulfiller struct {
	fulfilledSubject string
	logger           *slog.Logger
}

// NewDevFulfiller creates a new DevFulfiller publishing on fulfilledSubject.
func NewDevFulfiller(fulfilledSubject string, logger *slog.Logger) *DevFulfiller {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevFulfiller{
		fulfilledSubject: fulfilledSubject,
		logger:           logger,
	}
}

// HandleRequest fulfills one randomness request with freshly drawn values.
func (f *DevFulfiller) HandleRequest(ctx context.Context, payload *randomnessevents.RequestPayloadV1) ([]handlerwrapper.Result, error) {
	count := payload.Count
	if count < 1 {
		count = 1
	}

	values := make([]uint64, count)
	buf := make([]byte, 8)
	for i := range values {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to draw random value: %w", err)
		}
		values[i] = binary.BigEndian.Uint64(buf)
	}

	f.logger.InfoContext(ctx, "Fulfilling randomness request locally",
		attr.String("request_id", payload.RequestID),
		attr.Int("count", count),
	)

	return []handlerwrapper.Result{{
		Topic: f.fulfilledSubject,
		Payload: &randomnessevents.FulfilledPayloadV1{
			RequestID: payload.RequestID,
			Values:    values,
		},
	}}, nil
}
