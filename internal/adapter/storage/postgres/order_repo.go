package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, client_id, reader_id, gig_id, status, amount_total, amount_reader_net,
		delivery_days, deliver_by, requirements_answers, delivery_content, content_final, version, created_at, updated_at`

// Create inserts a new order in PENDING_PAYMENT.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	content, err := marshalContent(o.DeliveryContent)
	if err != nil {
		return err
	}

	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.pool.Exec(ctx, query,
		o.ID, o.ClientID, o.ReaderID, o.GigID, o.Status,
		o.AmountTotal, o.AmountReaderNet, o.DeliveryDays, o.DeliverBy,
		o.RequirementsAnswers, content, o.ContentFinal, o.Version,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by UUID (without locking).
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches an order with pessimistic locking.
// This MUST be called within a transaction.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return scanOrder(tx.QueryRow(ctx, query, id))
}

// UpdateStatus performs a conditional transition within a database
// transaction. Returns false when the order was not in the expected status,
// which callers resolve as either an idempotent replay or a lost race.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	query := `UPDATE orders SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetDeliverBy stamps the delivery deadline, computed when payment confirms.
func (r *OrderRepo) SetDeliverBy(ctx context.Context, tx pgx.Tx, id uuid.UUID, deliverBy time.Time) error {
	query := `UPDATE orders SET deliver_by = $1, updated_at = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, deliverBy, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set deliver_by: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", id)
	}
	return nil
}

// SaveDraft overwrites the working delivery content. Last writer wins. The
// WHERE clause refuses orders that left PAID or whose content was finalized,
// and refuses a draft whose mode differs from the one already on record, so
// a stale draft can never clobber a delivery or switch the chosen mode.
func (r *OrderRepo) SaveDraft(ctx context.Context, id uuid.UUID, c *domain.DeliveryContent) (bool, error) {
	content, err := marshalContent(c)
	if err != nil {
		return false, err
	}

	query := `UPDATE orders SET delivery_content = $1, updated_at = $2
		WHERE id = $3 AND status = 'PAID' AND content_final = FALSE
		AND (delivery_content IS NULL OR delivery_content->>'mode' = $4)`

	tag, err := r.pool.Exec(ctx, query, content, time.Now(), id, string(c.Mode))
	if err != nil {
		return false, fmt.Errorf("save draft: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetFinalContent persists the delivered content and freezes it. Called in
// the same transaction as the PAID -> DELIVERED move.
func (r *OrderRepo) SetFinalContent(ctx context.Context, tx pgx.Tx, id uuid.UUID, c *domain.DeliveryContent) error {
	content, err := marshalContent(c)
	if err != nil {
		return err
	}

	query := `UPDATE orders SET delivery_content = $1, content_final = TRUE, updated_at = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, content, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set final content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", id)
	}
	return nil
}

// ListByReader fetches a reader's orders with filtering and pagination.
func (r *OrderRepo) ListByReader(ctx context.Context, params ports.OrderListParams) ([]domain.Order, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("reader_id = $%d", argIdx))
	args = append(args, params.ReaderID)
	argIdx++

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, total, nil
}

func marshalContent(c *domain.DeliveryContent) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal delivery content: %w", err)
	}
	return data, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o, err := scanOrderRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

func scanOrderRow(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	var content []byte
	err := row.Scan(
		&o.ID, &o.ClientID, &o.ReaderID, &o.GigID, &o.Status,
		&o.AmountTotal, &o.AmountReaderNet, &o.DeliveryDays, &o.DeliverBy,
		&o.RequirementsAnswers, &content, &o.ContentFinal, &o.Version,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if len(content) > 0 {
		c := &domain.DeliveryContent{}
		if err := json.Unmarshal(content, c); err != nil {
			return nil, fmt.Errorf("unmarshal delivery content: %w", err)
		}
		o.DeliveryContent = c
	}
	return o, nil
}
