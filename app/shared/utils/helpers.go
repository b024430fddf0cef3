package utils

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// Helpers bundles the message construction utilities handlers need.
type Helpers interface {
	// CreateResultMessage builds an outgoing message from a payload,
	// propagating the correlation ID of the originating message when present.
	CreateResultMessage(original *message.Message, payload any, topic string) (*message.Message, error)
	// CreateNewMessage builds a fresh message with a new correlation ID.
	CreateNewMessage(payload any, topic string) (*message.Message, error)
}

// HelperImpl is the production Helpers implementation.
type HelperImpl struct{}

// NewHelper creates a new HelperImpl.
func NewHelper() *HelperImpl {
	return &HelperImpl{}
}

func (h *HelperImpl) CreateResultMessage(original *message.Message, payload any, topic string) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("topic", topic)

	if original != nil {
		if correlationID := middleware.MessageCorrelationID(original); correlationID != "" {
			middleware.SetCorrelationID(correlationID, msg)
		}
	}
	if middleware.MessageCorrelationID(msg) == "" {
		middleware.SetCorrelationID(watermill.NewUUID(), msg)
	}

	return msg, nil
}

func (h *HelperImpl) CreateNewMessage(payload any, topic string) (*message.Message, error) {
	return h.CreateResultMessage(nil, payload, topic)
}
