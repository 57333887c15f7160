package ports

import (
	"context"
	"encoding/json"
	"time"

	"arcana-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Service Ports (Business Logic) ---

// OrderService owns the order status state machine.
type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	// MarkPaid moves PENDING_PAYMENT → PAID and records the pending earning
	// in the same atomic unit. Idempotent under payment webhook retries.
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	// SaveDraft persists content without changing status. Reader only.
	SaveDraft(ctx context.Context, orderID, callerID uuid.UUID, content *domain.DeliveryContent) (*domain.Order, error)
	// Send validates the supplied content and moves PAID → DELIVERED.
	// A second call on a delivered order is a no-op success.
	Send(ctx context.Context, orderID, callerID uuid.UUID, content *domain.DeliveryContent) (*domain.Order, error)
	// Complete moves DELIVERED → COMPLETED and releases the earning.
	// callerID nil means an external scheduler invoked the completion.
	Complete(ctx context.Context, orderID uuid.UUID, callerID *uuid.UUID) (*domain.Order, error)
	// Cancel moves PENDING_PAYMENT|PAID → CANCELED, reversing any
	// unreleased pending earning.
	Cancel(ctx context.Context, orderID uuid.UUID, callerID *uuid.UUID) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID, callerID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, params OrderListParams) ([]domain.Order, int64, error)
}

// CreateOrderRequest holds validated input from the external checkout flow.
type CreateOrderRequest struct {
	ClientID            uuid.UUID
	ReaderID            uuid.UUID
	GigID               uuid.UUID
	AmountTotal         int64
	DeliveryDays        int
	RequirementsAnswers json.RawMessage
}

// LedgerService writes ledger entries inside the caller's transaction and
// derives balances from the log.
type LedgerService interface {
	// RecordPendingEarning credits amount_reader_net as a pending earning,
	// creating the reader's wallet lazily. At most once per order.
	RecordPendingEarning(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	// ReleaseEarning moves the earning into the available balance. At most
	// once per order.
	ReleaseEarning(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	// ReverseEarning compensates an unreleased pending earning.
	ReverseEarning(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetBalances(ctx context.Context, walletID uuid.UUID) (*domain.Balances, error)
}

// WithdrawalService consumes ledger balances to authorize and settle payouts.
type WithdrawalService interface {
	// Request atomically checks the available balance and debits it.
	Request(ctx context.Context, req WithdrawalInput) (*domain.WithdrawalRequest, error)
	// Confirm settles REQUESTED → PAID. No ledger change.
	Confirm(ctx context.Context, withdrawalID uuid.UUID) (*domain.WithdrawalRequest, error)
	// Fail settles REQUESTED → FAILED and restores the debited amount with a
	// compensating entry, in the same atomic unit.
	Fail(ctx context.Context, withdrawalID uuid.UUID, reason string) (*domain.WithdrawalRequest, error)
}

// WithdrawalInput holds validated input for a withdrawal request.
type WithdrawalInput struct {
	ReaderID      uuid.UUID
	Amount        int64
	PayoutKey     string
	PayoutKeyKind domain.PayoutKeyKind
}

// ReportingService exposes read-only views for the reader dashboard.
type ReportingService interface {
	GetBalances(ctx context.Context, readerID uuid.UUID) (*domain.Balances, error)
	ListTransactions(ctx context.Context, readerID uuid.UUID, params TransactionListParams) ([]domain.Transaction, int64, error)
	ListWithdrawals(ctx context.Context, readerID uuid.UUID, page, pageSize int) ([]domain.WithdrawalRequest, int64, error)
	GetWalletStats(ctx context.Context, readerID uuid.UUID, period string) (*WalletStats, error)
}

// PayoutNotifier hands authorized withdrawals to the external payout rail.
type PayoutNotifier interface {
	EnqueuePayout(ctx context.Context, req *domain.WithdrawalRequest) error
}

// EncryptionService handles AES-256-GCM encryption/decryption of payout keys.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification of webhook
// and payout rail payloads.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// TokenService validates session tokens issued by the external auth service.
type TokenService interface {
	Generate(userID uuid.UUID, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   string // "reader" or "client"
}

// EventCache is the redis-layer lookup for processed webhook events (fast path).
type EventCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for webhook replay protection.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, source string, nonce string, ttl time.Duration) (bool, error)
}

// AuditService records audit entries for mutating operations.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
