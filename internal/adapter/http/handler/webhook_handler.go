package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"arcana-settlement/internal/adapter/http/dto"
	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"
	"arcana-settlement/pkg/apperror"
	"arcana-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// eventCacheTTL bounds how long processed event responses live in redis. The
// database row behind it is permanent.
const eventCacheTTL = 24 * time.Hour

// WebhookHandler handles the inbound rail callbacks. Both endpoints are
// exactly-once: a replayed event_id returns the original response without
// touching the order or the ledger again.
type WebhookHandler struct {
	orderSvc      ports.OrderService
	withdrawalSvc ports.WithdrawalService
	eventCache    ports.EventCache
	eventRepo     ports.WebhookEventRepository
	transactor    ports.DBTransactor
	log           zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(
	orderSvc ports.OrderService,
	withdrawalSvc ports.WithdrawalService,
	eventCache ports.EventCache,
	eventRepo ports.WebhookEventRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		orderSvc:      orderSvc,
		withdrawalSvc: withdrawalSvc,
		eventCache:    eventCache,
		eventRepo:     eventRepo,
		transactor:    transactor,
		log:           log,
	}
}

// PaymentWebhook handles POST /api/v1/webhooks/payment.
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	var req dto.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	key := domain.BuildPaymentEventKey(req.EventID)
	if h.replayed(c, key) {
		return
	}

	outcome := "ignored"
	if req.Status == "approved" {
		orderID, _ := uuid.Parse(req.OrderID)
		if _, err := h.orderSvc.MarkPaid(c.Request.Context(), orderID); err != nil {
			// Not recorded: the rail retries and may succeed later.
			response.Error(c, err)
			return
		}
		outcome = "order_paid"
	}

	h.acknowledge(c, key, req.EventID, outcome)
}

// PayoutWebhook handles POST /api/v1/webhooks/payout.
func (h *WebhookHandler) PayoutWebhook(c *gin.Context) {
	var req dto.PayoutWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	key := domain.BuildPayoutEventKey(req.EventID)
	if h.replayed(c, key) {
		return
	}

	withdrawalID, _ := uuid.Parse(req.WithdrawalID)

	var outcome string
	var err error
	switch req.Status {
	case "paid":
		_, err = h.withdrawalSvc.Confirm(c.Request.Context(), withdrawalID)
		outcome = "withdrawal_paid"
	case "failed":
		_, err = h.withdrawalSvc.Fail(c.Request.Context(), withdrawalID, req.Reason)
		outcome = "withdrawal_failed"
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	h.acknowledge(c, key, req.EventID, outcome)
}

// replayed short-circuits retried events to their original response. Redis is
// the fast path; the webhook_events table is authoritative when the cache has
// expired or is down.
func (h *WebhookHandler) replayed(c *gin.Context, key string) bool {
	if cached, err := h.eventCache.Get(c.Request.Context(), key); err != nil {
		h.log.Warn().Err(err).Str("event_key", key).Msg("event cache lookup failed")
	} else if cached != nil {
		c.Data(http.StatusOK, "application/json", cached)
		return true
	}

	event, err := h.eventRepo.Get(c.Request.Context(), key)
	if err != nil {
		h.log.Warn().Err(err).Str("event_key", key).Msg("event lookup failed")
		return false
	}
	if event == nil {
		return false
	}

	if err := h.eventCache.Set(c.Request.Context(), key, event.ResponseJSON, eventCacheTTL); err != nil {
		h.log.Warn().Err(err).Str("event_key", key).Msg("event cache backfill failed")
	}
	c.Data(http.StatusOK, "application/json", event.ResponseJSON)
	return true
}

// acknowledge records the processed event and returns its response. The same
// bytes are stored and sent, so replays are byte-identical.
func (h *WebhookHandler) acknowledge(c *gin.Context, key, eventID, outcome string) {
	body, err := json.Marshal(dto.WebhookAck{EventID: eventID, Outcome: outcome})
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	if err := h.recordEvent(c, key, body); err != nil {
		// The state change already committed; dropping the event record only
		// costs a redundant retry.
		h.log.Warn().Err(err).Str("event_key", key).Msg("failed to record webhook event")
	} else if err := h.eventCache.Set(c.Request.Context(), key, body, eventCacheTTL); err != nil {
		h.log.Warn().Err(err).Str("event_key", key).Msg("failed to cache webhook event")
	}

	c.Data(http.StatusOK, "application/json", body)
}

func (h *WebhookHandler) recordEvent(c *gin.Context, key string, body []byte) error {
	ctx := c.Request.Context()
	tx, err := h.transactor.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := h.eventRepo.Create(ctx, tx, &domain.WebhookEvent{
		Key:          key,
		ResponseJSON: body,
		CreatedAt:    time.Now(),
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
