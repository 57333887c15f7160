package domain

import (
	"time"
)

// WebhookEvent records a processed inbound webhook so retries from the
// payment or payout rail short-circuit to the original response.
type WebhookEvent struct {
	Key          string    `json:"key"` // Format: "source:event_id"
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildPaymentEventKey constructs the key for a payment-confirmation event.
func BuildPaymentEventKey(eventID string) string {
	return "payment:" + eventID
}

// BuildPayoutEventKey constructs the key for a payout-settlement event.
func BuildPayoutEventKey(eventID string) string {
	return "payout:" + eventID
}
