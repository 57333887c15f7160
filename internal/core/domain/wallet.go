package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a reader's earnings. One per reader, created lazily on the
// first pending earning. Balances are never stored here: they are folds over
// the transaction log.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"` // the reader
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Balances is the derived view of a wallet's transaction log.
type Balances struct {
	PendingBalance   int64 `json:"pending_balance"`
	AvailableBalance int64 `json:"available_balance"`
	TotalEarnings    int64 `json:"total_earnings"`
}
