package domain

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus represents the payout lifecycle of a request.
type WithdrawalStatus string

const (
	WithdrawalStatusRequested WithdrawalStatus = "REQUESTED"
	WithdrawalStatusPaid      WithdrawalStatus = "PAID"
	WithdrawalStatusFailed    WithdrawalStatus = "FAILED"
)

// PayoutKeyKind enumerates the pix key flavors a reader can register.
type PayoutKeyKind string

const (
	PayoutKeyKindCPF    PayoutKeyKind = "cpf"
	PayoutKeyKindEmail  PayoutKeyKind = "email"
	PayoutKeyKindPhone  PayoutKeyKind = "phone"
	PayoutKeyKindRandom PayoutKeyKind = "random"
)

// WithdrawalRequest is a reader's request to move available balance onto the
// external payout rail. The debit happens at authorization time; the rail
// settles asynchronously.
type WithdrawalRequest struct {
	ID            uuid.UUID        `json:"id"`
	WalletID      uuid.UUID        `json:"wallet_id"`
	Amount        int64            `json:"amount"` // centavos
	PayoutKeyEnc  string           `json:"-"`      // AES-256-GCM encrypted pix key snapshot
	PayoutKeyKind PayoutKeyKind    `json:"payout_key_kind"`
	Status        WithdrawalStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
}

// IsTerminal returns true once the rail has settled the request.
func (w *WithdrawalRequest) IsTerminal() bool {
	return w.Status == WithdrawalStatusPaid || w.Status == WithdrawalStatusFailed
}
