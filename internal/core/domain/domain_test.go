package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReaderNetAmount(t *testing.T) {
	tests := []struct {
		name        string
		amountTotal int64
		feeRate     float64
		want        int64
	}{
		{"standard fee", 12000, 0.15, 10200},
		{"zero fee", 5000, 0, 5000},
		{"rounds to nearest", 999, 0.15, 849}, // 999 * 0.85 = 849.15
		{"rounds half up", 10, 0.15, 9},       // 10 * 0.85 = 8.5
		{"zero total", 0, 0.15, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReaderNetAmount(tt.amountTotal, tt.feeRate))
		})
	}
}

func TestOrder_IsTerminal(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderStatusPendingPayment, false},
		{OrderStatusPaid, false},
		{OrderStatusDelivered, false},
		{OrderStatusCompleted, true},
		{OrderStatusCanceled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			o := &Order{Status: tt.status}
			assert.Equal(t, tt.want, o.IsTerminal())
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to paid", OrderStatusPendingPayment, OrderStatusPaid, true},
		{"pending to canceled", OrderStatusPendingPayment, OrderStatusCanceled, true},
		{"paid to delivered", OrderStatusPaid, OrderStatusDelivered, true},
		{"paid to canceled", OrderStatusPaid, OrderStatusCanceled, true},
		{"delivered to completed", OrderStatusDelivered, OrderStatusCompleted, true},
		{"pending skips to delivered", OrderStatusPendingPayment, OrderStatusDelivered, false},
		{"paid skips to completed", OrderStatusPaid, OrderStatusCompleted, false},
		{"delivered cannot cancel", OrderStatusDelivered, OrderStatusCanceled, false},
		{"completed is final", OrderStatusCompleted, OrderStatusCanceled, false},
		{"canceled is final", OrderStatusCanceled, OrderStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransaction_IsReversal(t *testing.T) {
	tests := []struct {
		name   string
		kind   TransactionKind
		amount int64
		want   bool
	}{
		{"positive pending earning", TransactionKindEarningPending, 10200, false},
		{"negative pending earning", TransactionKindEarningPending, -10200, true},
		{"release", TransactionKindEarningReleased, 10200, false},
		{"withdrawal debit", TransactionKindWithdrawal, -10200, false},
		{"withdrawal compensation", TransactionKindWithdrawal, 10200, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Kind: tt.kind, Amount: tt.amount}
			assert.Equal(t, tt.want, tx.IsReversal())
		})
	}
}

func TestWithdrawalRequest_IsTerminal(t *testing.T) {
	tests := []struct {
		status WithdrawalStatus
		want   bool
	}{
		{WithdrawalStatusRequested, false},
		{WithdrawalStatusPaid, true},
		{WithdrawalStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			w := &WithdrawalRequest{Status: tt.status}
			assert.Equal(t, tt.want, w.IsTerminal())
		})
	}
}

func TestBuildWebhookEventKeys(t *testing.T) {
	assert.Equal(t, "payment:evt-123", BuildPaymentEventKey("evt-123"))
	assert.Equal(t, "payout:evt-456", BuildPayoutEventKey("evt-456"))
}
