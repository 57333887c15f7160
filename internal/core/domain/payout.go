package domain

import (
	"time"

	"github.com/google/uuid"
)

// PayoutDispatchStatus represents the delivery state of a payout instruction
// sent to the external rail.
type PayoutDispatchStatus string

const (
	PayoutDispatchStatusPending PayoutDispatchStatus = "PENDING"
	PayoutDispatchStatusSent    PayoutDispatchStatus = "SENT"
	PayoutDispatchStatusFailed  PayoutDispatchStatus = "FAILED"
)

// PayoutDispatchLog records each attempt to hand a withdrawal to the rail.
// Settlement itself comes back asynchronously via the payout webhook.
type PayoutDispatchLog struct {
	ID           uuid.UUID            `json:"id"`
	WithdrawalID uuid.UUID            `json:"withdrawal_id"`
	Payload      string               `json:"payload"` // JSON string
	HTTPStatus   *int                 `json:"http_status"`
	Attempt      int                  `json:"attempt"`
	Status       PayoutDispatchStatus `json:"status"`
	LastError    *string              `json:"last_error"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}
