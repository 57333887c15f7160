package ports

import (
	"context"
	"time"

	"arcana-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepository defines persistence operations for orders.
// Methods accepting pgx.Tx are used inside transaction blocks so that status
// changes and their ledger entries commit as one atomic unit.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error)
	// UpdateStatus performs a conditional status transition. It returns false
	// when the order was not in the expected `from` status (lost race).
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.OrderStatus) (bool, error)
	SetDeliverBy(ctx context.Context, tx pgx.Tx, id uuid.UUID, deliverBy time.Time) error
	// SaveDraft persists draft content with last-writer-wins semantics.
	// Returns false when the order is no longer accepting drafts.
	SaveDraft(ctx context.Context, id uuid.UUID, content *domain.DeliveryContent) (bool, error)
	// SetFinalContent persists the delivered content and marks it immutable.
	SetFinalContent(ctx context.Context, tx pgx.Tx, id uuid.UUID, content *domain.DeliveryContent) error
	ListByReader(ctx context.Context, params OrderListParams) ([]domain.Order, int64, error)
}

// OrderListParams holds filter + pagination for listing a reader's orders.
type OrderListParams struct {
	ReaderID uuid.UUID
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

// WalletRepository defines persistence operations for wallets.
type WalletRepository interface {
	// Create inserts a wallet inside a transaction; wallets appear lazily on
	// the first pending earning.
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
}

// LedgerRepository defines persistence for the append-only transaction log.
type LedgerRepository interface {
	// Append inserts a ledger entry within a database transaction. Returns
	// false when a unique (order_id, kind) entry already exists, which
	// callers treat as an idempotent no-op.
	Append(ctx context.Context, tx pgx.Tx, entry *domain.Transaction) (bool, error)
	// HasEntry reports whether a positive entry of the given kind exists for
	// the order.
	HasEntry(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, kind domain.TransactionKind) (bool, error)
	// Balances folds the full log of a wallet. Never cached: replaying the
	// log always reproduces the same balances.
	Balances(ctx context.Context, walletID uuid.UUID) (*domain.Balances, error)
	// BalancesInTx is the same fold executed inside a transaction that holds
	// the wallet row lock, for atomic check-and-debit.
	BalancesInTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Balances, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	GetStats(ctx context.Context, walletID uuid.UUID, periodStart *int64) (*WalletStats, error)
}

// TransactionListParams holds filter + pagination for listing ledger entries.
type TransactionListParams struct {
	WalletID uuid.UUID
	Kind     *domain.TransactionKind
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// WalletStats holds aggregated earnings statistics for a reader dashboard.
type WalletStats struct {
	EntriesTotal   int64
	OrdersPending  int64 // orders with an outstanding pending earning
	OrdersReleased int64 // orders whose earning has been released
	EarnedReleased int64 // sum of released earnings
	Withdrawn      int64 // sum of withdrawal debits (positive number)
}

// WithdrawalRepository defines persistence for withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, req *domain.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.WithdrawalRequest, error)
	// UpdateStatus performs a conditional lifecycle move. Returns false when
	// the request was not in the expected `from` status.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.WithdrawalStatus, processedAt time.Time) (bool, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.WithdrawalRequest, int64, error)
}

// WebhookEventRepository defines persistence for processed inbound webhook
// events (DB backup behind the redis fast path).
type WebhookEventRepository interface {
	Create(ctx context.Context, tx pgx.Tx, event *domain.WebhookEvent) error
	Get(ctx context.Context, key string) (*domain.WebhookEvent, error)
}

// PayoutDispatchRepository records payout instructions handed to the rail.
type PayoutDispatchRepository interface {
	Create(ctx context.Context, log *domain.PayoutDispatchLog) error
	Update(ctx context.Context, log *domain.PayoutDispatchLog) error
	GetByWithdrawalID(ctx context.Context, withdrawalID uuid.UUID) ([]domain.PayoutDispatchLog, error)
}

// AuditRepository defines persistence for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
