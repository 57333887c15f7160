package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// LedgerRepo implements ports.LedgerRepository over the append-only
// ledger_entries table. Rows are only ever inserted; balances are folds.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

const balancesQuery = `SELECT
		COALESCE(SUM(amount) FILTER (WHERE kind = 'EARNING_PENDING'), 0),
		COALESCE(SUM(amount) FILTER (WHERE kind = 'EARNING_RELEASED'), 0),
		COALESCE(SUM(amount) FILTER (WHERE kind = 'WITHDRAWAL'), 0)
	FROM ledger_entries WHERE wallet_id = $1`

// Append inserts a ledger entry within a database transaction. A positive
// entry that collides with the per-order (order_id, kind) uniqueness rule is
// reported as (false, nil) so callers can treat replays as no-ops.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.Transaction) (bool, error) {
	query := `INSERT INTO ledger_entries (id, wallet_id, order_id, withdrawal_id, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.WalletID, e.OrderID, e.WithdrawalID, e.Amount, e.Kind, e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}
	return true, nil
}

// HasEntry reports whether a positive entry of the given kind exists for the
// order. Used to decide whether a cancellation must reverse a pending earning.
func (r *LedgerRepo) HasEntry(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, kind domain.TransactionKind) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE order_id = $1 AND kind = $2 AND amount > 0)`

	var exists bool
	if err := tx.QueryRow(ctx, query, orderID, kind).Scan(&exists); err != nil {
		return false, fmt.Errorf("check ledger entry: %w", err)
	}
	return exists, nil
}

// Balances folds the wallet's full transaction log into the derived view.
func (r *LedgerRepo) Balances(ctx context.Context, walletID uuid.UUID) (*domain.Balances, error) {
	return foldBalances(r.pool.QueryRow(ctx, balancesQuery, walletID))
}

// BalancesInTx runs the same fold inside a transaction holding the wallet row
// lock, so a withdrawal's check-and-debit sees a frozen log.
func (r *LedgerRepo) BalancesInTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Balances, error) {
	return foldBalances(tx.QueryRow(ctx, balancesQuery, walletID))
}

func foldBalances(row pgx.Row) (*domain.Balances, error) {
	var pendingSum, releasedSum, withdrawalSum int64
	if err := row.Scan(&pendingSum, &releasedSum, &withdrawalSum); err != nil {
		return nil, fmt.Errorf("fold balances: %w", err)
	}
	return &domain.Balances{
		PendingBalance:   pendingSum - releasedSum,
		AvailableBalance: releasedSum + withdrawalSum,
		TotalEarnings:    releasedSum,
	}, nil
}

// List fetches ledger entries with filtering and pagination.
func (r *LedgerRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
	args = append(args, params.WalletID)
	argIdx++

	if params.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, *params.Kind)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_entries %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT id, wallet_id, order_id, withdrawal_id, amount, kind, created_at
		FROM ledger_entries %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(&t.ID, &t.WalletID, &t.OrderID, &t.WithdrawalID, &t.Amount, &t.Kind, &t.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry row: %w", err)
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger entry rows: %w", err)
	}

	return entries, total, nil
}

// GetStats aggregates a wallet's log for the reader dashboard. A nil
// periodStart means all time.
func (r *LedgerRepo) GetStats(ctx context.Context, walletID uuid.UUID, periodStart *int64) (*ports.WalletStats, error) {
	var since *time.Time
	if periodStart != nil {
		t := time.Unix(*periodStart, 0).UTC()
		since = &t
	}

	statsQuery := `SELECT
			COUNT(*),
			COUNT(DISTINCT order_id) FILTER (WHERE kind = 'EARNING_RELEASED' AND amount > 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'EARNING_RELEASED'), 0),
			COALESCE(-SUM(amount) FILTER (WHERE kind = 'WITHDRAWAL'), 0)
		FROM ledger_entries
		WHERE wallet_id = $1 AND ($2::timestamptz IS NULL OR created_at >= $2)`

	stats := &ports.WalletStats{}
	err := r.pool.QueryRow(ctx, statsQuery, walletID, since).Scan(
		&stats.EntriesTotal, &stats.OrdersReleased, &stats.EarnedReleased, &stats.Withdrawn,
	)
	if err != nil {
		return nil, fmt.Errorf("get wallet stats: %w", err)
	}

	// Orders still awaiting release: a positive pending sum with no release row.
	pendingQuery := `SELECT COUNT(*) FROM (
			SELECT order_id FROM ledger_entries
			WHERE wallet_id = $1 AND order_id IS NOT NULL AND ($2::timestamptz IS NULL OR created_at >= $2)
			GROUP BY order_id
			HAVING COALESCE(SUM(amount) FILTER (WHERE kind = 'EARNING_PENDING'), 0) > 0
			   AND COUNT(*) FILTER (WHERE kind = 'EARNING_RELEASED') = 0
		) AS awaiting`

	if err := r.pool.QueryRow(ctx, pendingQuery, walletID, since).Scan(&stats.OrdersPending); err != nil {
		return nil, fmt.Errorf("get pending order stats: %w", err)
	}

	return stats, nil
}
