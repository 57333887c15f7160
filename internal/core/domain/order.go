package domain

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCanceled       OrderStatus = "CANCELED"
)

// Order is a paid reading commissioned by a client from a reader.
type Order struct {
	ID                  uuid.UUID        `json:"id"`
	ClientID            uuid.UUID        `json:"client_id"`
	ReaderID            uuid.UUID        `json:"reader_id"`
	GigID               uuid.UUID        `json:"gig_id"`
	Status              OrderStatus      `json:"status"`
	AmountTotal         int64            `json:"amount_total"`      // centavos
	AmountReaderNet     int64            `json:"amount_reader_net"` // centavos, after platform fee
	DeliveryDays        int              `json:"delivery_days"`     // snapshot of the gig's delivery commitment
	DeliverBy           *time.Time       `json:"deliver_by,omitempty"`
	RequirementsAnswers json.RawMessage  `json:"requirements_answers,omitempty"`
	DeliveryContent     *DeliveryContent `json:"delivery_content,omitempty"`
	ContentFinal        bool             `json:"content_final"`
	Version             int64            `json:"-"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// ReaderNetAmount computes the reader's share of an order total after the
// platform fee, rounded to the nearest centavo.
func ReaderNetAmount(amountTotal int64, feeRate float64) int64 {
	return int64(math.Round(float64(amountTotal) * (1 - feeRate)))
}

// IsTerminal returns true if the order is in a final state.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCanceled
}

// CanCancel returns true if the order may still take the cancellation path.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPendingPayment || o.Status == OrderStatusPaid
}

// validTransitions encodes the status graph. No transition skips an
// intermediate state except the cancellation path.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCanceled},
	OrderStatusPaid:           {OrderStatusDelivered, OrderStatusCanceled},
	OrderStatusDelivered:      {OrderStatusCompleted},
}

// CanTransition reports whether from → to is a legal status move.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
