package randomnessevents

// Stream is the JetStream stream carrying the randomness subjects.
const Stream = "randomness"

// Randomness topics. Production points these at the external provider's
// subjects; the dev fulfiller answers them locally.
const (
	RequestV1   = "randomness.request.v1"
	FulfilledV1 = "randomness.fulfilled.v1"
)

// RequestPayloadV1 asks the provider for count unpredictable values.
type RequestPayloadV1 struct {
	RequestID string `json:"request_id"`
	Count     int    `json:"count"`
	// CallbackBudget is forwarded opaquely to providers that charge for
	// fulfillment delivery.
	CallbackBudget int64 `json:"callback_budget,omitempty"`
}

// FulfilledPayloadV1 delivers the drawn values for a request.
type FulfilledPayloadV1 struct {
	RequestID string   `json:"request_id"`
	Values    []uint64 `json:"values"`
}
