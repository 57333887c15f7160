package postgres

import (
	"context"
	"fmt"

	"arcana-settlement/internal/core/domain"

	"github.com/google/uuid"
)

// PayoutDispatchRepo implements ports.PayoutDispatchRepository.
type PayoutDispatchRepo struct {
	pool Pool
}

// NewPayoutDispatchRepo creates a new PayoutDispatchRepo.
func NewPayoutDispatchRepo(pool Pool) *PayoutDispatchRepo {
	return &PayoutDispatchRepo{pool: pool}
}

// Create inserts a new payout dispatch log.
func (r *PayoutDispatchRepo) Create(ctx context.Context, l *domain.PayoutDispatchLog) error {
	query := `INSERT INTO payout_dispatch_logs (id, withdrawal_id, payload, http_status, attempt, status, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.WithdrawalID, l.Payload, l.HTTPStatus, l.Attempt,
		l.Status, l.LastError, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout dispatch log: %w", err)
	}
	return nil
}

// Update persists the outcome of a dispatch attempt.
func (r *PayoutDispatchRepo) Update(ctx context.Context, l *domain.PayoutDispatchLog) error {
	query := `UPDATE payout_dispatch_logs
		SET http_status = $1, attempt = $2, status = $3, last_error = $4, updated_at = $5
		WHERE id = $6`

	tag, err := r.pool.Exec(ctx, query,
		l.HTTPStatus, l.Attempt, l.Status, l.LastError, l.UpdatedAt, l.ID,
	)
	if err != nil {
		return fmt.Errorf("update payout dispatch log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payout dispatch log not found: %s", l.ID)
	}
	return nil
}

// GetByWithdrawalID fetches all dispatch attempts for a withdrawal.
func (r *PayoutDispatchRepo) GetByWithdrawalID(ctx context.Context, withdrawalID uuid.UUID) ([]domain.PayoutDispatchLog, error) {
	query := `SELECT id, withdrawal_id, payload, http_status, attempt, status, last_error, created_at, updated_at
		FROM payout_dispatch_logs WHERE withdrawal_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("list payout dispatch logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.PayoutDispatchLog
	for rows.Next() {
		l := domain.PayoutDispatchLog{}
		err := rows.Scan(
			&l.ID, &l.WithdrawalID, &l.Payload, &l.HTTPStatus, &l.Attempt,
			&l.Status, &l.LastError, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payout dispatch row: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payout dispatch rows: %w", err)
	}

	return logs, nil
}
