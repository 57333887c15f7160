package postgres

import (
	"context"
	"errors"
	"fmt"

	"arcana-settlement/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WebhookEventRepo implements ports.WebhookEventRepository. It is the durable
// backup behind the redis fast path: the row commits in the same transaction
// as the state change the webhook caused.
type WebhookEventRepo struct {
	pool Pool
}

// NewWebhookEventRepo creates a new WebhookEventRepo.
func NewWebhookEventRepo(pool Pool) *WebhookEventRepo {
	return &WebhookEventRepo{pool: pool}
}

// Create inserts a processed webhook event within a database transaction.
func (r *WebhookEventRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.WebhookEvent) error {
	query := `INSERT INTO webhook_events (event_key, response_json, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_key) DO NOTHING`

	_, err := tx.Exec(ctx, query, e.Key, e.ResponseJSON, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

// Get fetches a processed webhook event by key.
func (r *WebhookEventRepo) Get(ctx context.Context, key string) (*domain.WebhookEvent, error) {
	query := `SELECT event_key, response_json, created_at FROM webhook_events WHERE event_key = $1`

	e := &domain.WebhookEvent{}
	err := r.pool.QueryRow(ctx, query, key).Scan(&e.Key, &e.ResponseJSON, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	return e, nil
}
