package randomness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	randomnessevents "github.com/lucky-stack/raffle-bot/app/events/randomness"
	"github.com/lucky-stack/raffle-bot/app/shared/attr"
	"github.com/lucky-stack/raffle-bot/app/shared/utils"
)

// Client submits randomness requests. The acknowledgment is the request ID;
// the fulfillment arrives later on the fulfilled subject and is routed to the
// raffle module's settlement handler.
type Client interface {
	RequestRandom(ctx context.Context, count int) (string, error)
}

// Config holds the provider connection parameters.
type Config struct {
	RequestSubject string
	// CallbackBudget is forwarded opaquely to providers that charge for
	// fulfillment delivery.
	CallbackBudget int64
}

// NATSClient publishes randomness requests on the configured subject.
type NATSClient struct {
	publisher message.Publisher
	helpers   utils.Helpers
	cfg       Config
	logger    *slog.Logger
}

// NewNATSClient creates a new NATSClient.
func NewNATSClient(publisher message.Publisher, helpers utils.Helpers, cfg Config, logger *slog.Logger) *NATSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSClient{
		publisher: publisher,
		helpers:   helpers,
		cfg:       cfg,
		logger:    logger,
	}
}

// RequestRandom submits a request for count random values and returns the
// request ID its fulfillment will carry.
func (c *NATSClient) RequestRandom(ctx context.Context, count int) (string, error) {
	requestID := uuid.NewString()

	payload := randomnessevents.RequestPayloadV1{
		RequestID:      requestID,
		Count:          count,
		CallbackBudget: c.cfg.CallbackBudget,
	}

	msg, err := c.helpers.CreateNewMessage(payload, c.cfg.RequestSubject)
	if err != nil {
		return "", fmt.Errorf("failed to build randomness request: %w", err)
	}
	msg.SetContext(ctx)

	if err := c.publisher.Publish(c.cfg.RequestSubject, msg); err != nil {
		return "", fmt.Errorf("failed to publish randomness request: %w", err)
	}

	c.logger.InfoContext(ctx, "Randomness request submitted",
		attr.String("request_id", requestID),
		attr.Int("count", count),
	)
	return requestID, nil
}

var _ Client = (*NATSClient)(nil)
