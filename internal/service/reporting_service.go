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

// ReportingServiceImpl implements ports.ReportingService. Everything here is
// read-only; balances come from the ledger fold, never from a stored column.
type ReportingServiceImpl struct {
	walletRepo     ports.WalletRepository
	ledgerRepo     ports.LedgerRepository
	withdrawalRepo ports.WithdrawalRepository
	log            zerolog.Logger
}

// NewReportingService creates a new ReportingServiceImpl.
func NewReportingService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	withdrawalRepo ports.WithdrawalRepository,
	log zerolog.Logger,
) *ReportingServiceImpl {
	return &ReportingServiceImpl{
		walletRepo:     walletRepo,
		ledgerRepo:     ledgerRepo,
		withdrawalRepo: withdrawalRepo,
		log:            log,
	}
}

// GetBalances folds the reader's ledger. A reader whose wallet does not exist
// yet simply has zero balances.
func (s *ReportingServiceImpl) GetBalances(ctx context.Context, readerID uuid.UUID) (*domain.Balances, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, readerID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return &domain.Balances{}, nil
	}

	balances, err := s.ledgerRepo.Balances(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("fold balances: %w", err))
	}
	return balances, nil
}

// ListTransactions pages through the reader's ledger entries.
func (s *ReportingServiceImpl) ListTransactions(ctx context.Context, readerID uuid.UUID, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, readerID)
	if err != nil {
		return nil, 0, apperror.ErrStorageFailure(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, 0, nil
	}

	params.WalletID = wallet.ID
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	entries, total, err := s.ledgerRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrStorageFailure(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, total, nil
}

// ListWithdrawals pages through the reader's withdrawal requests.
func (s *ReportingServiceImpl) ListWithdrawals(ctx context.Context, readerID uuid.UUID, page, pageSize int) ([]domain.WithdrawalRequest, int64, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, readerID)
	if err != nil {
		return nil, 0, apperror.ErrStorageFailure(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, 0, nil
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	reqs, total, err := s.withdrawalRepo.ListByWallet(ctx, wallet.ID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.ErrStorageFailure(fmt.Errorf("list withdrawals: %w", err))
	}
	return reqs, total, nil
}

// GetWalletStats aggregates the reader's ledger for the dashboard. Accepted
// periods: "7d", "30d", "90d" and "" or "all" for all time.
func (s *ReportingServiceImpl) GetWalletStats(ctx context.Context, readerID uuid.UUID, period string) (*ports.WalletStats, error) {
	periodStart, err := parsePeriod(period)
	if err != nil {
		return nil, err
	}

	wallet, err := s.walletRepo.GetByOwner(ctx, readerID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return &ports.WalletStats{}, nil
	}

	stats, err := s.ledgerRepo.GetStats(ctx, wallet.ID, periodStart)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get wallet stats: %w", err))
	}
	return stats, nil
}

func parsePeriod(period string) (*int64, error) {
	var days int
	switch period {
	case "", "all":
		return nil, nil
	case "7d":
		days = 7
	case "30d":
		days = 30
	case "90d":
		days = 90
	default:
		return nil, apperror.Validation("period must be one of 7d, 30d, 90d, all")
	}
	start := time.Now().AddDate(0, 0, -days).Unix()
	return &start, nil
}
