package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	// TransactionKindEarningPending is credited when an order is paid.
	// A cancellation before release writes a negative row of the same kind.
	TransactionKindEarningPending TransactionKind = "EARNING_PENDING"
	// TransactionKindEarningReleased moves an earning into the available balance.
	TransactionKindEarningReleased TransactionKind = "EARNING_RELEASED"
	// TransactionKindWithdrawal debits the available balance (negative amount).
	// A failed payout writes a compensating positive row of the same kind.
	TransactionKindWithdrawal TransactionKind = "WITHDRAWAL"
)

// Transaction is one append-only ledger entry. Rows are only ever produced
// by the ledger in response to state-machine events, never edited or deleted.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	WalletID     uuid.UUID       `json:"wallet_id"`
	OrderID      *uuid.UUID      `json:"order_id,omitempty"`
	WithdrawalID *uuid.UUID      `json:"withdrawal_id,omitempty"`
	Amount       int64           `json:"amount"` // signed, centavos
	Kind         TransactionKind `json:"kind"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IsReversal reports whether this row compensates an earlier one.
func (t *Transaction) IsReversal() bool {
	switch t.Kind {
	case TransactionKindEarningPending:
		return t.Amount < 0
	case TransactionKindWithdrawal:
		return t.Amount > 0
	default:
		return false
	}
}
