package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *inMemoryOrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return true, nil
}

func (r *inMemoryOrderRepo) SetDeliverBy(ctx context.Context, tx pgx.Tx, id uuid.UUID, deliverBy time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.DeliverBy = &deliverBy
	return nil
}

func (r *inMemoryOrderRepo) SaveDraft(ctx context.Context, id uuid.UUID, content *domain.DeliveryContent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != domain.OrderStatusPaid || o.ContentFinal {
		return false, nil
	}
	if o.DeliveryContent != nil && content != nil && o.DeliveryContent.Mode != content.Mode {
		return false, nil
	}
	o.DeliveryContent = content
	o.UpdatedAt = time.Now()
	return true, nil
}

func (r *inMemoryOrderRepo) SetFinalContent(ctx context.Context, tx pgx.Tx, id uuid.UUID, content *domain.DeliveryContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.DeliveryContent = content
	o.ContentFinal = true
	o.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryOrderRepo) ListByReader(ctx context.Context, params ports.OrderListParams) ([]domain.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Order
	for _, o := range r.orders {
		if o.ReaderID != params.ReaderID {
			continue
		}
		if params.Status != nil && o.Status != *params.Status {
			continue
		}
		result = append(result, *o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Order{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.OwnerID == w.OwnerID {
			// ON CONFLICT DO NOTHING semantics
			return nil
		}
	}
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerID == ownerID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByOwner(ctx, ownerID)
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.Transaction
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

// Append enforces the unique (order_id, kind) rule for positive order-bound
// entries, the same way the partial unique index does.
func (r *inMemoryLedgerRepo) Append(ctx context.Context, tx pgx.Tx, entry *domain.Transaction) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.Amount > 0 && entry.OrderID != nil {
		for _, e := range r.entries {
			if e.Amount > 0 && e.OrderID != nil && *e.OrderID == *entry.OrderID && e.Kind == entry.Kind {
				return false, nil
			}
		}
	}
	r.entries = append(r.entries, *entry)
	return true, nil
}

func (r *inMemoryLedgerRepo) HasEntry(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, kind domain.TransactionKind) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.OrderID != nil && *e.OrderID == orderID && e.Kind == kind && e.Amount > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryLedgerRepo) Balances(ctx context.Context, walletID uuid.UUID) (*domain.Balances, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fold(walletID), nil
}

func (r *inMemoryLedgerRepo) BalancesInTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Balances, error) {
	return r.Balances(ctx, walletID)
}

func (r *inMemoryLedgerRepo) fold(walletID uuid.UUID) *domain.Balances {
	var pendingSum, releasedSum, withdrawalSum int64
	for _, e := range r.entries {
		if e.WalletID != walletID {
			continue
		}
		switch e.Kind {
		case domain.TransactionKindEarningPending:
			pendingSum += e.Amount
		case domain.TransactionKindEarningReleased:
			releasedSum += e.Amount
		case domain.TransactionKindWithdrawal:
			withdrawalSum += e.Amount
		}
	}
	return &domain.Balances{
		PendingBalance:   pendingSum - releasedSum,
		AvailableBalance: releasedSum + withdrawalSum,
		TotalEarnings:    releasedSum,
	}
}

func (r *inMemoryLedgerRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, e := range r.entries {
		if e.WalletID != params.WalletID {
			continue
		}
		if params.Kind != nil && e.Kind != *params.Kind {
			continue
		}
		if params.From != nil && e.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && e.CreatedAt.Unix() > *params.To {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryLedgerRepo) GetStats(ctx context.Context, walletID uuid.UUID, periodStart *int64) (*ports.WalletStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.WalletStats{}
	pendingOrders := make(map[uuid.UUID]int64)
	for _, e := range r.entries {
		if e.WalletID != walletID {
			continue
		}
		if periodStart != nil && e.CreatedAt.Unix() < *periodStart {
			continue
		}
		stats.EntriesTotal++
		switch e.Kind {
		case domain.TransactionKindEarningPending:
			if e.OrderID != nil {
				pendingOrders[*e.OrderID] += e.Amount
			}
		case domain.TransactionKindEarningReleased:
			stats.OrdersReleased++
			stats.EarnedReleased += e.Amount
			if e.OrderID != nil {
				pendingOrders[*e.OrderID] -= e.Amount
			}
		case domain.TransactionKindWithdrawal:
			if e.Amount < 0 {
				stats.Withdrawn += -e.Amount
			}
		}
	}
	for _, remaining := range pendingOrders {
		if remaining > 0 {
			stats.OrdersPending++
		}
	}
	return stats, nil
}

// --- In-Memory Withdrawal Repo ---

type inMemoryWithdrawalRepo struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.WithdrawalRequest
}

func newInMemoryWithdrawalRepo() *inMemoryWithdrawalRepo {
	return &inMemoryWithdrawalRepo{requests: make(map[uuid.UUID]*domain.WithdrawalRequest)}
}

func (r *inMemoryWithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *inMemoryWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWithdrawalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.WithdrawalStatus, processedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.requests[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	w.ProcessedAt = &processedAt
	return true, nil
}

func (r *inMemoryWithdrawalRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.WithdrawalRequest, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WithdrawalRequest
	for _, w := range r.requests {
		if w.WalletID == walletID {
			result = append(result, *w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := int64(len(result))

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.WithdrawalRequest{}, total, nil
	}
	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Webhook Event Repo ---

type inMemoryWebhookEventRepo struct {
	mu     sync.RWMutex
	events map[string]*domain.WebhookEvent
}

func newInMemoryWebhookEventRepo() *inMemoryWebhookEventRepo {
	return &inMemoryWebhookEventRepo{events: make(map[string]*domain.WebhookEvent)}
}

func (r *inMemoryWebhookEventRepo) Create(ctx context.Context, tx pgx.Tx, event *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[event.Key]; exists {
		return nil
	}
	cp := *event
	r.events[event.Key] = &cp
	return nil
}

func (r *inMemoryWebhookEventRepo) Get(ctx context.Context, key string) (*domain.WebhookEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

// --- In-Memory Payout Dispatch Repo ---

type inMemoryPayoutDispatchRepo struct {
	mu   sync.RWMutex
	logs map[uuid.UUID]*domain.PayoutDispatchLog
}

func newInMemoryPayoutDispatchRepo() *inMemoryPayoutDispatchRepo {
	return &inMemoryPayoutDispatchRepo{logs: make(map[uuid.UUID]*domain.PayoutDispatchLog)}
}

func (r *inMemoryPayoutDispatchRepo) Create(ctx context.Context, log *domain.PayoutDispatchLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *log
	r.logs[log.ID] = &cp
	return nil
}

func (r *inMemoryPayoutDispatchRepo) Update(ctx context.Context, log *domain.PayoutDispatchLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *log
	r.logs[log.ID] = &cp
	return nil
}

func (r *inMemoryPayoutDispatchRepo) GetByWithdrawalID(ctx context.Context, withdrawalID uuid.UUID) ([]domain.PayoutDispatchLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PayoutDispatchLog
	for _, l := range r.logs {
		if l.WithdrawalID == withdrawalID {
			result = append(result, *l)
		}
	}
	return result, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu   sync.Mutex
	logs []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes transactions with one global mutex, standing
// in for the wallet row lock the postgres layer takes with FOR UPDATE. The
// check-and-debit race in the withdrawal path is only closed by this lock.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serialTx{release: func() { t.mu.Unlock() }}, nil
}

// serialTx is a pgx.Tx that holds the transactor's lock until it finishes.
type serialTx struct {
	once    sync.Once
	release func()
}

func (t *serialTx) finish() {
	t.once.Do(t.release)
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serialTx) Commit(ctx context.Context) error          { t.finish(); return nil }
func (t *serialTx) Rollback(ctx context.Context) error        { t.finish(); return nil }
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }
