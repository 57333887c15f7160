package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"arcana-settlement/config"
	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"
	"arcana-settlement/internal/service"
	"arcana-settlement/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settlementStack wires the real services onto in-memory storage for
// service-level concurrency tests. The serialized transactor plays the role
// of the wallet row lock.
type settlementStack struct {
	orderSvc      ports.OrderService
	withdrawalSvc ports.WithdrawalService
	ledgerSvc     ports.LedgerService
	walletRepo    *inMemoryWalletRepo
	ledgerRepo    *inMemoryLedgerRepo
	transactor    *inMemoryTransactor
}

func newSettlementStack(t *testing.T) *settlementStack {
	t.Helper()
	log := logger.New("error", false)

	orderRepo := newInMemoryOrderRepo()
	walletRepo := newInMemoryWalletRepo()
	ledgerRepo := newInMemoryLedgerRepo()
	withdrawalRepo := newInMemoryWithdrawalRepo()
	dispatchRepo := newInMemoryPayoutDispatchRepo()
	transactor := newInMemoryTransactor()

	encSvc, err := service.NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	sigSvc := service.NewHMACSignatureService()

	ledgerSvc := service.NewLedgerService(walletRepo, ledgerRepo, log)
	orderSvc := service.NewOrderService(orderRepo, ledgerSvc, transactor, 0.15, log)
	notifier := service.NewHTTPPayoutNotifier(dispatchRepo, encSvc, sigSvc, nil, config.PayoutConfig{}, log)
	withdrawalSvc := service.NewWithdrawalService(walletRepo, withdrawalRepo, ledgerRepo, encSvc, notifier, transactor, log)

	return &settlementStack{
		orderSvc:      orderSvc,
		withdrawalSvc: withdrawalSvc,
		ledgerSvc:     ledgerSvc,
		walletRepo:    walletRepo,
		ledgerRepo:    ledgerRepo,
		transactor:    transactor,
	}
}

// seedReleasedEarnings drives amount through the whole earning lifecycle so
// the reader has an available balance.
func (s *settlementStack) seedReleasedEarnings(t *testing.T, readerID uuid.UUID, amountTotal int64) *domain.Order {
	t.Helper()
	ctx := context.Background()

	order, err := s.orderSvc.CreateOrder(ctx, ports.CreateOrderRequest{
		ClientID:     uuid.New(),
		ReaderID:     readerID,
		GigID:        uuid.New(),
		AmountTotal:  amountTotal,
		DeliveryDays: 3,
	})
	require.NoError(t, err)

	_, err = s.orderSvc.MarkPaid(ctx, order.ID)
	require.NoError(t, err)

	content := &domain.DeliveryContent{
		Mode: domain.DeliveryModeDigital,
		Digital: &domain.DigitalReading{
			SpreadName: "Tres Cartas",
			Cards: []domain.Card{
				{CardID: "major-0", Name: "O Louco", Position: "presente", Interpretation: "Um novo ciclo comeca."},
			},
		},
	}
	_, err = s.orderSvc.Send(ctx, order.ID, readerID, content)
	require.NoError(t, err)

	_, err = s.orderSvc.Complete(ctx, order.ID, &order.ClientID)
	require.NoError(t, err)

	return order
}

// TestConcurrentWithdrawals_NeverOverdraft fires many concurrent withdrawal
// requests whose combined amount exceeds the available balance. The
// lock-fold-debit sequence must admit exactly as many as the balance covers.
func TestConcurrentWithdrawals_NeverOverdraft(t *testing.T) {
	s := newSettlementStack(t)
	readerID := uuid.New()
	ctx := context.Background()

	// amount_total 10000 at 15% fee: available balance 8500
	s.seedReleasedEarnings(t, readerID, 10000)

	concurrency := 20
	perRequest := int64(1000) // only 8 of 20 can fit

	var succeeded, refused atomic.Int64
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			_, err := s.withdrawalSvc.Request(ctx, ports.WithdrawalInput{
				ReaderID:      readerID,
				Amount:        perRequest,
				PayoutKey:     "12345678901",
				PayoutKeyKind: domain.PayoutKeyKindCPF,
			})
			if err != nil {
				refused.Add(1)
				return
			}
			succeeded.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8), succeeded.Load())
	assert.Equal(t, int64(12), refused.Load())

	wallet, err := s.walletRepo.GetByOwner(ctx, readerID)
	require.NoError(t, err)
	balances, err := s.ledgerRepo.Balances(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balances.AvailableBalance)
}

// TestConcurrentMarkPaid_SinglePendingEntry replays the payment confirmation
// concurrently. The ledger's uniqueness rule must collapse the replays to one
// pending credit.
func TestConcurrentMarkPaid_SinglePendingEntry(t *testing.T) {
	s := newSettlementStack(t)
	readerID := uuid.New()
	ctx := context.Background()

	order, err := s.orderSvc.CreateOrder(ctx, ports.CreateOrderRequest{
		ClientID:     uuid.New(),
		ReaderID:     readerID,
		GigID:        uuid.New(),
		AmountTotal:  10000,
		DeliveryDays: 5,
	})
	require.NoError(t, err)

	concurrency := 10
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			// Replays and lost races are both fine; money must not double.
			_, _ = s.orderSvc.MarkPaid(ctx, order.ID)
		}()
	}
	wg.Wait()

	got, err := s.orderSvc.GetOrder(ctx, order.ID, readerID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)

	wallet, err := s.walletRepo.GetByOwner(ctx, readerID)
	require.NoError(t, err)
	balances, err := s.ledgerRepo.Balances(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8500), balances.PendingBalance)
}

// TestConcurrentComplete_ReleasesOnce runs the release transition
// concurrently and checks the earning moves to available exactly once.
func TestConcurrentComplete_ReleasesOnce(t *testing.T) {
	s := newSettlementStack(t)
	readerID := uuid.New()
	ctx := context.Background()

	order, err := s.orderSvc.CreateOrder(ctx, ports.CreateOrderRequest{
		ClientID:     uuid.New(),
		ReaderID:     readerID,
		GigID:        uuid.New(),
		AmountTotal:  20000,
		DeliveryDays: 3,
	})
	require.NoError(t, err)
	_, err = s.orderSvc.MarkPaid(ctx, order.ID)
	require.NoError(t, err)

	content := &domain.DeliveryContent{
		Mode: domain.DeliveryModeDigital,
		Digital: &domain.DigitalReading{
			Cards: []domain.Card{{CardID: "major-21", Name: "O Mundo", Position: "futuro", Interpretation: "Conclusao de um ciclo."}},
		},
	}
	_, err = s.orderSvc.Send(ctx, order.ID, readerID, content)
	require.NoError(t, err)

	concurrency := 10
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			_, _ = s.orderSvc.Complete(ctx, order.ID, nil) // scheduler path
		}()
	}
	wg.Wait()

	wallet, err := s.walletRepo.GetByOwner(ctx, readerID)
	require.NoError(t, err)
	balances, err := s.ledgerRepo.Balances(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balances.PendingBalance)
	assert.Equal(t, int64(17000), balances.AvailableBalance)
	assert.Equal(t, int64(17000), balances.TotalEarnings)
}

// TestConcurrentCancelAndSend races a cancellation against the delivery.
// Only one transition can win, and the ledger must agree with the winner.
func TestConcurrentCancelAndSend(t *testing.T) {
	s := newSettlementStack(t)
	readerID := uuid.New()
	ctx := context.Background()

	order, err := s.orderSvc.CreateOrder(ctx, ports.CreateOrderRequest{
		ClientID:     uuid.New(),
		ReaderID:     readerID,
		GigID:        uuid.New(),
		AmountTotal:  10000,
		DeliveryDays: 3,
	})
	require.NoError(t, err)
	_, err = s.orderSvc.MarkPaid(ctx, order.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.orderSvc.Cancel(ctx, order.ID, nil)
	}()
	go func() {
		defer wg.Done()
		content := &domain.DeliveryContent{
			Mode: domain.DeliveryModeDigital,
			Digital: &domain.DigitalReading{
				Cards: []domain.Card{{CardID: "major-13", Name: "A Morte", Position: "presente", Interpretation: "Transformacao."}},
			},
		}
		_, _ = s.orderSvc.Send(ctx, order.ID, readerID, content)
	}()
	wg.Wait()

	time.Sleep(10 * time.Millisecond)

	got, err := s.orderSvc.GetOrder(ctx, order.ID, readerID)
	require.NoError(t, err)

	wallet, err := s.walletRepo.GetByOwner(ctx, readerID)
	require.NoError(t, err)
	balances, err := s.ledgerRepo.Balances(ctx, wallet.ID)
	require.NoError(t, err)

	switch got.Status {
	case domain.OrderStatusCanceled:
		assert.Equal(t, int64(0), balances.PendingBalance)
	case domain.OrderStatusDelivered:
		assert.Equal(t, int64(8500), balances.PendingBalance)
	default:
		t.Fatalf("unexpected terminal status %s", got.Status)
	}
}
