package service

import (
	"context"
	"fmt"
	"time"

	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"
	"arcana-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService. All writes happen inside
// the caller's transaction so a status change and its ledger entry commit or
// roll back together.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		log:        log,
	}
}

// RecordPendingEarning credits the reader's net share as a pending earning.
// The wallet is created lazily here; ON CONFLICT in the repo absorbs the race
// between two payment confirmations for the same reader. The unique
// (order_id, kind) rule makes a webhook replay a silent no-op.
func (s *LedgerServiceImpl) RecordPendingEarning(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	wallet, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, order.ReaderID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		now := time.Now()
		if err := s.walletRepo.Create(ctx, tx, &domain.Wallet{
			ID:        uuid.New(),
			OwnerID:   order.ReaderID,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}
		wallet, err = s.walletRepo.GetByOwnerForUpdate(ctx, tx, order.ReaderID)
		if err != nil || wallet == nil {
			return apperror.InternalError(fmt.Errorf("reload wallet after create: %w", err))
		}
	}

	inserted, err := s.ledgerRepo.Append(ctx, tx, &domain.Transaction{
		ID:        uuid.New(),
		WalletID:  wallet.ID,
		OrderID:   &order.ID,
		Amount:    order.AmountReaderNet,
		Kind:      domain.TransactionKindEarningPending,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return apperror.InternalError(fmt.Errorf("append pending earning: %w", err))
	}
	if !inserted {
		s.log.Debug().
			Str("order_id", order.ID.String()).
			Msg("pending earning already recorded, skipping")
	}
	return nil
}

// ReleaseEarning moves the order's earning from pending into available. The
// same unique rule guarantees at most one release per order.
func (s *LedgerServiceImpl) ReleaseEarning(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	wallet, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, order.ReaderID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}

	hasPending, err := s.ledgerRepo.HasEntry(ctx, tx, order.ID, domain.TransactionKindEarningPending)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check pending earning: %w", err))
	}
	if !hasPending {
		return apperror.InternalError(fmt.Errorf("no pending earning to release for order %s", order.ID))
	}

	inserted, err := s.ledgerRepo.Append(ctx, tx, &domain.Transaction{
		ID:        uuid.New(),
		WalletID:  wallet.ID,
		OrderID:   &order.ID,
		Amount:    order.AmountReaderNet,
		Kind:      domain.TransactionKindEarningReleased,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return apperror.InternalError(fmt.Errorf("append released earning: %w", err))
	}
	if !inserted {
		s.log.Debug().
			Str("order_id", order.ID.String()).
			Msg("earning already released, skipping")
	}
	return nil
}

// ReverseEarning writes a negative pending entry that cancels an unreleased
// earning. Callers invoke it only after winning the conditional status move
// to CANCELED, which is what keeps the reversal single-shot.
func (s *LedgerServiceImpl) ReverseEarning(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	wallet, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, order.ReaderID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		// No wallet means no earning was ever recorded.
		return nil
	}

	hasPending, err := s.ledgerRepo.HasEntry(ctx, tx, order.ID, domain.TransactionKindEarningPending)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check pending earning: %w", err))
	}
	if !hasPending {
		return nil
	}

	hasReleased, err := s.ledgerRepo.HasEntry(ctx, tx, order.ID, domain.TransactionKindEarningReleased)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check released earning: %w", err))
	}
	if hasReleased {
		return apperror.InternalError(fmt.Errorf("cannot reverse released earning for order %s", order.ID))
	}

	if _, err := s.ledgerRepo.Append(ctx, tx, &domain.Transaction{
		ID:        uuid.New(),
		WalletID:  wallet.ID,
		OrderID:   &order.ID,
		Amount:    -order.AmountReaderNet,
		Kind:      domain.TransactionKindEarningPending,
		CreatedAt: time.Now(),
	}); err != nil {
		return apperror.InternalError(fmt.Errorf("append earning reversal: %w", err))
	}
	return nil
}

// GetBalances folds the wallet's transaction log.
func (s *LedgerServiceImpl) GetBalances(ctx context.Context, walletID uuid.UUID) (*domain.Balances, error) {
	balances, err := s.ledgerRepo.Balances(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fold balances: %w", err))
	}
	return balances, nil
}
