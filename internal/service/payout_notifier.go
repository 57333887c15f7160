package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"arcana-settlement/config"
	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// payoutRetryIntervals spaces the dispatch attempts to the payout rail.
var payoutRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// PayoutInstruction is the JSON structure handed to the payout rail. The rail
// settles asynchronously through the payout webhook.
type PayoutInstruction struct {
	WithdrawalID string `json:"withdrawal_id"`
	Amount       int64  `json:"amount"` // centavos
	PixKey       string `json:"pix_key"`
	PixKeyKind   string `json:"pix_key_kind"`
	RequestedAt  int64  `json:"requested_at"`
	Signature    string `json:"signature"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPPayoutNotifier implements ports.PayoutNotifier over the rail's HTTP API.
type HTTPPayoutNotifier struct {
	dispatchRepo ports.PayoutDispatchRepository
	encSvc       ports.EncryptionService
	sigSvc       ports.SignatureService
	httpClient   HTTPClient
	cfg          config.PayoutConfig
	log          zerolog.Logger
}

// NewHTTPPayoutNotifier creates a new HTTPPayoutNotifier.
func NewHTTPPayoutNotifier(
	dispatchRepo ports.PayoutDispatchRepository,
	encSvc ports.EncryptionService,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	cfg config.PayoutConfig,
	log zerolog.Logger,
) *HTTPPayoutNotifier {
	return &HTTPPayoutNotifier{
		dispatchRepo: dispatchRepo,
		encSvc:       encSvc,
		sigSvc:       sigSvc,
		httpClient:   httpClient,
		cfg:          cfg,
		log:          log,
	}
}

// EnqueuePayout builds the signed instruction, records the dispatch attempt
// and fires it at the rail asynchronously with retries. The caller's debit is
// already committed; a dead rail only delays settlement, never loses money.
func (s *HTTPPayoutNotifier) EnqueuePayout(ctx context.Context, req *domain.WithdrawalRequest) error {
	if s.cfg.RailURL == "" {
		s.log.Debug().
			Str("withdrawal_id", req.ID.String()).
			Msg("payout rail not configured, skipping dispatch")
		return nil
	}

	pixKey, err := s.encSvc.Decrypt(req.PayoutKeyEnc)
	if err != nil {
		return fmt.Errorf("decrypt payout key: %w", err)
	}

	instruction := PayoutInstruction{
		WithdrawalID: req.ID.String(),
		Amount:       req.Amount,
		PixKey:       pixKey,
		PixKeyKind:   string(req.PayoutKeyKind),
		RequestedAt:  time.Now().Unix(),
	}

	unsigned, err := json.Marshal(instruction)
	if err != nil {
		return fmt.Errorf("marshal payout instruction: %w", err)
	}
	instruction.Signature = s.sigSvc.Sign(s.cfg.RailSecret, string(unsigned))

	payload, err := json.Marshal(instruction)
	if err != nil {
		return fmt.Errorf("marshal signed instruction: %w", err)
	}

	now := time.Now()
	dispatch := &domain.PayoutDispatchLog{
		ID:           uuid.New(),
		WithdrawalID: req.ID,
		Payload:      string(payload),
		Status:       domain.PayoutDispatchStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.dispatchRepo.Create(ctx, dispatch); err != nil {
		return fmt.Errorf("record payout dispatch: %w", err)
	}

	go s.deliverWithRetries(dispatch, payload)

	return nil
}

// deliverWithRetries attempts to hand the instruction to the rail, updating
// the dispatch log after every attempt.
func (s *HTTPPayoutNotifier) deliverWithRetries(dispatch *domain.PayoutDispatchLog, payload []byte) {
	withdrawalID := dispatch.WithdrawalID.String()

	for attempt := 0; attempt <= len(payoutRetryIntervals); attempt++ {
		if attempt > 0 {
			time.Sleep(payoutRetryIntervals[attempt-1])
		}
		dispatch.Attempt = attempt + 1

		status, err := s.post(payload)
		dispatch.HTTPStatus = status
		dispatch.UpdatedAt = time.Now()

		if err != nil {
			msg := err.Error()
			dispatch.LastError = &msg
			s.updateDispatch(dispatch)
			s.log.Warn().Err(err).
				Str("withdrawal_id", withdrawalID).
				Int("attempt", dispatch.Attempt).
				Msg("payout dispatch failed")
			continue
		}

		if status != nil && *status >= 200 && *status < 300 {
			dispatch.Status = domain.PayoutDispatchStatusSent
			dispatch.LastError = nil
			s.updateDispatch(dispatch)
			s.log.Info().
				Str("withdrawal_id", withdrawalID).
				Int("attempt", dispatch.Attempt).
				Int("http_status", *status).
				Msg("payout instruction accepted by rail")
			return
		}

		msg := fmt.Sprintf("rail returned status %d", derefStatus(status))
		dispatch.LastError = &msg
		s.updateDispatch(dispatch)
		s.log.Warn().
			Str("withdrawal_id", withdrawalID).
			Int("attempt", dispatch.Attempt).
			Int("http_status", derefStatus(status)).
			Msg("payout dispatch rejected, retrying")
	}

	dispatch.Status = domain.PayoutDispatchStatusFailed
	dispatch.UpdatedAt = time.Now()
	s.updateDispatch(dispatch)
	s.log.Error().
		Str("withdrawal_id", withdrawalID).
		Msg("payout dispatch attempts exhausted")
}

func (s *HTTPPayoutNotifier) post(payload []byte) (*int, error) {
	ctx := context.Background()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.RailURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rail request: %w", err)
	}
	resp.Body.Close()

	return &resp.StatusCode, nil
}

func (s *HTTPPayoutNotifier) updateDispatch(dispatch *domain.PayoutDispatchLog) {
	if err := s.dispatchRepo.Update(context.Background(), dispatch); err != nil {
		s.log.Warn().Err(err).
			Str("dispatch_id", dispatch.ID.String()).
			Msg("failed to update payout dispatch log")
	}
}

func derefStatus(status *int) int {
	if status == nil {
		return 0
	}
	return *status
}
