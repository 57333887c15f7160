package postgres

import (
	"context"
	"testing"
	"time"

	"arcana-settlement/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEventRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookEventRepo(mock)
	e := &domain.WebhookEvent{
		Key:          domain.BuildPaymentEventKey("evt_123"),
		ResponseJSON: []byte(`{"status":"success"}`),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs(e.Key, e.ResponseJSON, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEventRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookEventRepo(mock)
	key := domain.BuildPayoutEventKey("evt_456")
	created := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM webhook_events WHERE event_key").
		WithArgs(key).
		WillReturnRows(pgxmock.NewRows([]string{"event_key", "response_json", "created_at"}).
			AddRow(key, []byte(`{"status":"success"}`), created))

	result, err := repo.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, key, result.Key)
	assert.JSONEq(t, `{"status":"success"}`, string(result.ResponseJSON))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEventRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookEventRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM webhook_events WHERE event_key").
		WithArgs("payment:unknown").
		WillReturnRows(pgxmock.NewRows([]string{"event_key", "response_json", "created_at"}))

	result, err := repo.Get(context.Background(), "payment:unknown")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
