package service

import (
	"context"
	"fmt"
	"time"

	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"
	"arcana-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WithdrawalServiceImpl implements ports.WithdrawalService. The available
// balance check and the debit happen under the wallet row lock, so N
// concurrent requests can never overdraft the same wallet.
type WithdrawalServiceImpl struct {
	walletRepo     ports.WalletRepository
	withdrawalRepo ports.WithdrawalRepository
	ledgerRepo     ports.LedgerRepository
	encSvc         ports.EncryptionService
	notifier       ports.PayoutNotifier
	transactor     ports.DBTransactor
	log            zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	walletRepo ports.WalletRepository,
	withdrawalRepo ports.WithdrawalRepository,
	ledgerRepo ports.LedgerRepository,
	encSvc ports.EncryptionService,
	notifier ports.PayoutNotifier,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		walletRepo:     walletRepo,
		withdrawalRepo: withdrawalRepo,
		ledgerRepo:     ledgerRepo,
		encSvc:         encSvc,
		notifier:       notifier,
		transactor:     transactor,
		log:            log,
	}
}

// Request authorizes a withdrawal: lock the wallet, fold the log, refuse an
// overdraft, then write the request and the debit entry together. The payout
// rail is notified only after the commit.
func (s *WithdrawalServiceImpl) Request(ctx context.Context, req ports.WithdrawalInput) (*domain.WithdrawalRequest, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.PayoutKey == "" {
		return nil, apperror.Validation("payout key is required")
	}
	switch req.PayoutKeyKind {
	case domain.PayoutKeyKindCPF, domain.PayoutKeyKindEmail, domain.PayoutKeyKindPhone, domain.PayoutKeyKindRandom:
	default:
		return nil, apperror.Validation("unknown payout key kind")
	}

	wallet, err := s.walletRepo.GetByOwner(ctx, req.ReaderID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	keyEnc, err := s.encSvc.Encrypt(req.PayoutKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encrypt payout key: %w", err))
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := s.walletRepo.GetByIDForUpdate(ctx, tx, wallet.ID); err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("lock wallet: %w", err))
	}

	balances, err := s.ledgerRepo.BalancesInTx(ctx, tx, wallet.ID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("fold balances: %w", err))
	}
	if balances.AvailableBalance < req.Amount {
		return nil, apperror.ErrInsufficientBalance()
	}

	withdrawal := &domain.WithdrawalRequest{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Amount:        req.Amount,
		PayoutKeyEnc:  keyEnc,
		PayoutKeyKind: req.PayoutKeyKind,
		Status:        domain.WithdrawalStatusRequested,
		CreatedAt:     time.Now(),
	}

	if err := s.withdrawalRepo.Create(ctx, tx, withdrawal); err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("create withdrawal: %w", err))
	}

	if _, err := s.ledgerRepo.Append(ctx, tx, &domain.Transaction{
		ID:           uuid.New(),
		WalletID:     wallet.ID,
		WithdrawalID: &withdrawal.ID,
		Amount:       -req.Amount,
		Kind:         domain.TransactionKindWithdrawal,
		CreatedAt:    time.Now(),
	}); err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("append withdrawal debit: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", withdrawal.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Int64("amount", req.Amount).
		Msg("withdrawal authorized, balance debited")

	if err := s.notifier.EnqueuePayout(ctx, withdrawal); err != nil {
		// The debit is committed; the rail can be retried out of band.
		s.log.Error().Err(err).
			Str("withdrawal_id", withdrawal.ID.String()).
			Msg("failed to enqueue payout")
	}

	return withdrawal, nil
}

// Confirm settles REQUESTED -> PAID. The money already left the balance at
// request time, so no ledger entry is written. Duplicate rail callbacks find
// the request already settled and return it unchanged.
func (s *WithdrawalServiceImpl) Confirm(ctx context.Context, withdrawalID uuid.UUID) (*domain.WithdrawalRequest, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	withdrawal, err := s.withdrawalRepo.GetByIDForUpdate(ctx, tx, withdrawalID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("lock withdrawal: %w", err))
	}
	if withdrawal == nil {
		return nil, apperror.ErrNotFound("withdrawal")
	}
	if withdrawal.Status == domain.WithdrawalStatusPaid {
		return withdrawal, nil
	}
	if withdrawal.Status == domain.WithdrawalStatusFailed {
		return nil, apperror.ErrWithdrawalSettled()
	}

	now := time.Now()
	moved, err := s.withdrawalRepo.UpdateStatus(ctx, tx, withdrawalID,
		domain.WithdrawalStatusRequested, domain.WithdrawalStatusPaid, now)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("update withdrawal status: %w", err))
	}
	if !moved {
		return nil, apperror.ErrConcurrencyConflict(fmt.Errorf("withdrawal %s settled concurrently", withdrawalID))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	withdrawal.Status = domain.WithdrawalStatusPaid
	withdrawal.ProcessedAt = &now

	s.log.Info().
		Str("withdrawal_id", withdrawalID.String()).
		Msg("withdrawal settled as paid")

	return withdrawal, nil
}

// Fail settles REQUESTED -> FAILED and restores the debited amount with a
// compensating entry, in one transaction. The conditional status move makes
// the compensation single-shot under duplicate rail callbacks.
func (s *WithdrawalServiceImpl) Fail(ctx context.Context, withdrawalID uuid.UUID, reason string) (*domain.WithdrawalRequest, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	withdrawal, err := s.withdrawalRepo.GetByIDForUpdate(ctx, tx, withdrawalID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("lock withdrawal: %w", err))
	}
	if withdrawal == nil {
		return nil, apperror.ErrNotFound("withdrawal")
	}
	if withdrawal.Status == domain.WithdrawalStatusFailed {
		return withdrawal, nil
	}
	if withdrawal.Status == domain.WithdrawalStatusPaid {
		return nil, apperror.ErrWithdrawalSettled()
	}

	if _, err := s.walletRepo.GetByIDForUpdate(ctx, tx, withdrawal.WalletID); err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("lock wallet: %w", err))
	}

	now := time.Now()
	moved, err := s.withdrawalRepo.UpdateStatus(ctx, tx, withdrawalID,
		domain.WithdrawalStatusRequested, domain.WithdrawalStatusFailed, now)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("update withdrawal status: %w", err))
	}
	if !moved {
		return nil, apperror.ErrConcurrencyConflict(fmt.Errorf("withdrawal %s settled concurrently", withdrawalID))
	}

	if _, err := s.ledgerRepo.Append(ctx, tx, &domain.Transaction{
		ID:           uuid.New(),
		WalletID:     withdrawal.WalletID,
		WithdrawalID: &withdrawal.ID,
		Amount:       withdrawal.Amount,
		Kind:         domain.TransactionKindWithdrawal,
		CreatedAt:    now,
	}); err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("append compensating entry: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	withdrawal.Status = domain.WithdrawalStatusFailed
	withdrawal.ProcessedAt = &now

	s.log.Warn().
		Str("withdrawal_id", withdrawalID.String()).
		Str("reason", reason).
		Int64("restored", withdrawal.Amount).
		Msg("withdrawal failed, balance restored")

	return withdrawal, nil
}
