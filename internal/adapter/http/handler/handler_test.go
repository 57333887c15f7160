package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arcana-settlement/internal/adapter/http/dto"
	"arcana-settlement/internal/adapter/http/middleware"
	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"
	"arcana-settlement/internal/core/ports/mocks"
	"arcana-settlement/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func newTestContext(t *testing.T, method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader([]byte{})
	} else {
		reader = bytes.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func sampleOrder() *domain.Order {
	now := time.Now()
	return &domain.Order{
		ID:              uuid.New(),
		ClientID:        uuid.New(),
		ReaderID:        uuid.New(),
		GigID:           uuid.New(),
		Status:          domain.OrderStatusPendingPayment,
		AmountTotal:     12000,
		AmountReaderNet: 10200,
		DeliveryDays:    3,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// --- Order Handler Tests ---

func TestCreateOrder_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrders := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrders)

	order := sampleOrder()
	mockOrders.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.CreateOrderRequest) (*domain.Order, error) {
			assert.Equal(t, order.ClientID, req.ClientID)
			assert.Equal(t, int64(12000), req.AmountTotal)
			return order, nil
		})

	body, _ := json.Marshal(dto.CreateOrderRequest{
		ClientID:     order.ClientID.String(),
		ReaderID:     order.ReaderID.String(),
		GigID:        order.GigID.String(),
		AmountTotal:  12000,
		DeliveryDays: 3,
	})

	c, w := newTestContext(t, http.MethodPost, "/api/v1/orders", body)
	h.CreateOrder(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, order.ID.String(), data["id"])
	assert.Equal(t, "PENDING_PAYMENT", data["status"])
}

func TestCreateOrder_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewOrderHandler(mocks.NewMockOrderService(ctrl))

	c, w := newTestContext(t, http.MethodPost, "/api/v1/orders", []byte("{}"))
	h.CreateOrder(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrders := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrders)

	order := sampleOrder()
	mockOrders.EXPECT().GetOrder(gomock.Any(), order.ID, order.ClientID).Return(order, nil)

	c, w := newTestContext(t, http.MethodGet, "/api/v1/orders/"+order.ID.String(), nil)
	c.Set(middleware.CtxUserID, order.ClientID)
	c.Params = gin.Params{{Key: "id", Value: order.ID.String()}}
	h.GetOrder(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetOrder_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewOrderHandler(mocks.NewMockOrderService(ctrl))

	c, w := newTestContext(t, http.MethodGet, "/api/v1/orders/nope", nil)
	c.Set(middleware.CtxUserID, uuid.New())
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	h.GetOrder(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder_NoToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewOrderHandler(mocks.NewMockOrderService(ctrl))

	c, w := newTestContext(t, http.MethodGet, "/api/v1/orders/x", nil)
	h.GetOrder(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListOrders_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrders := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrders)

	readerID := uuid.New()
	mockOrders.EXPECT().ListOrders(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params ports.OrderListParams) ([]domain.Order, int64, error) {
			assert.Equal(t, readerID, params.ReaderID)
			require.NotNil(t, params.Status)
			assert.Equal(t, domain.OrderStatusPaid, *params.Status)
			assert.Equal(t, 2, params.Page)
			return []domain.Order{*sampleOrder()}, 21, nil
		})

	c, w := newTestContext(t, http.MethodGet, "/api/v1/orders?status=PAID&page=2&page_size=20", nil)
	c.Set(middleware.CtxUserID, readerID)
	h.ListOrders(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(21), data["total"])
	assert.Equal(t, float64(2), data["total_pages"])
}

func TestSaveDraft_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrders := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrders)

	order := sampleOrder()
	order.Status = domain.OrderStatusPaid

	mockOrders.EXPECT().SaveDraft(gomock.Any(), order.ID, order.ReaderID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ uuid.UUID, content *domain.DeliveryContent) (*domain.Order, error) {
			assert.Equal(t, domain.DeliveryModeDigital, content.Mode)
			order.DeliveryContent = content
			return order, nil
		})

	body, _ := json.Marshal(dto.DeliveryContentRequest{
		Mode:    "digital",
		Digital: &dto.DigitalReadingDTO{SpreadName: "Cruz Celta"},
	})

	c, w := newTestContext(t, http.MethodPut, "/api/v1/orders/"+order.ID.String()+"/draft", body)
	c.Set(middleware.CtxUserID, order.ReaderID)
	c.Params = gin.Params{{Key: "id", Value: order.ID.String()}}
	h.SaveDraft(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSend_IncompleteContent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrders := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrders)

	orderID := uuid.New()
	readerID := uuid.New()
	mockOrders.EXPECT().Send(gomock.Any(), orderID, readerID, gomock.Any()).
		Return(nil, apperror.ErrIncompleteContent())

	body, _ := json.Marshal(dto.DeliveryContentRequest{Mode: "digital"})

	c, w := newTestContext(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/send", body)
	c.Set(middleware.CtxUserID, readerID)
	c.Params = gin.Params{{Key: "id", Value: orderID.String()}}
	h.Send(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestComplete_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrders := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrders)

	order := sampleOrder()
	order.Status = domain.OrderStatusCompleted
	mockOrders.EXPECT().Complete(gomock.Any(), order.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, callerID *uuid.UUID) (*domain.Order, error) {
			require.NotNil(t, callerID)
			assert.Equal(t, order.ClientID, *callerID)
			return order, nil
		})

	c, w := newTestContext(t, http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/complete", nil)
	c.Set(middleware.CtxUserID, order.ClientID)
	c.Params = gin.Params{{Key: "id", Value: order.ID.String()}}
	h.Complete(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancel_Conflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrders := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrders)

	orderID := uuid.New()
	callerID := uuid.New()
	mockOrders.EXPECT().Cancel(gomock.Any(), orderID, gomock.Any()).
		Return(nil, apperror.ErrInvalidTransition("DELIVERED", "CANCELED"))

	c, w := newTestContext(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", nil)
	c.Set(middleware.CtxUserID, callerID)
	c.Params = gin.Params{{Key: "id", Value: orderID.String()}}
	h.Cancel(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Wallet Handler Tests ---

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReporting := mocks.NewMockReportingService(ctrl)
	h := NewWalletHandler(mockReporting, mocks.NewMockWithdrawalService(ctrl))

	readerID := uuid.New()
	mockReporting.EXPECT().GetBalances(gomock.Any(), readerID).
		Return(&domain.Balances{PendingBalance: 10200, AvailableBalance: 3400, TotalEarnings: 13600}, nil)

	c, w := newTestContext(t, http.MethodGet, "/api/v1/wallet/balance", nil)
	c.Set(middleware.CtxUserID, readerID)
	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(10200), data["pending_balance"])
	assert.Equal(t, float64(3400), data["available_balance"])
}

func TestRequestWithdrawal_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWithdrawals := mocks.NewMockWithdrawalService(ctrl)
	h := NewWalletHandler(mocks.NewMockReportingService(ctrl), mockWithdrawals)

	readerID := uuid.New()
	withdrawal := &domain.WithdrawalRequest{
		ID:            uuid.New(),
		WalletID:      uuid.New(),
		Amount:        5000,
		PayoutKeyKind: domain.PayoutKeyKindCPF,
		Status:        domain.WithdrawalStatusRequested,
		CreatedAt:     time.Now(),
	}
	mockWithdrawals.EXPECT().Request(gomock.Any(), ports.WithdrawalInput{
		ReaderID:      readerID,
		Amount:        5000,
		PayoutKey:     "12345678901",
		PayoutKeyKind: domain.PayoutKeyKindCPF,
	}).Return(withdrawal, nil)

	body, _ := json.Marshal(dto.WithdrawalCreateRequest{
		Amount:        5000,
		PayoutKey:     "12345678901",
		PayoutKeyKind: "cpf",
	})

	c, w := newTestContext(t, http.MethodPost, "/api/v1/wallet/withdrawals", body)
	c.Set(middleware.CtxUserID, readerID)
	h.RequestWithdrawal(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "REQUESTED", data["status"])
}

func TestRequestWithdrawal_BadPixKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockReportingService(ctrl), mocks.NewMockWithdrawalService(ctrl))

	body, _ := json.Marshal(dto.WithdrawalCreateRequest{
		Amount:        5000,
		PayoutKey:     "not-a-cpf",
		PayoutKeyKind: "cpf",
	})

	c, w := newTestContext(t, http.MethodPost, "/api/v1/wallet/withdrawals", body)
	c.Set(middleware.CtxUserID, uuid.New())
	h.RequestWithdrawal(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestWithdrawal_Insufficient(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWithdrawals := mocks.NewMockWithdrawalService(ctrl)
	h := NewWalletHandler(mocks.NewMockReportingService(ctrl), mockWithdrawals)

	mockWithdrawals.EXPECT().Request(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientBalance())

	body, _ := json.Marshal(dto.WithdrawalCreateRequest{
		Amount:        999999,
		PayoutKey:     "12345678901",
		PayoutKeyKind: "cpf",
	})

	c, w := newTestContext(t, http.MethodPost, "/api/v1/wallet/withdrawals", body)
	c.Set(middleware.CtxUserID, uuid.New())
	h.RequestWithdrawal(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestGetStats_BadPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReporting := mocks.NewMockReportingService(ctrl)
	h := NewWalletHandler(mockReporting, mocks.NewMockWithdrawalService(ctrl))

	mockReporting.EXPECT().GetWalletStats(gomock.Any(), gomock.Any(), "14d").
		Return(nil, apperror.Validation("period must be one of 7d, 30d, 90d, all"))

	c, w := newTestContext(t, http.MethodGet, "/api/v1/wallet/stats?period=14d", nil)
	c.Set(middleware.CtxUserID, uuid.New())
	h.GetStats(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Webhook Handler Tests ---

type webhookTestDeps struct {
	h             *WebhookHandler
	orderSvc      *mocks.MockOrderService
	withdrawalSvc *mocks.MockWithdrawalService
	eventCache    *mocks.MockEventCache
	eventRepo     *mocks.MockWebhookEventRepository
	transactor    *mocks.MockDBTransactor
}

func setupWebhookHandler(ctrl *gomock.Controller) *webhookTestDeps {
	d := &webhookTestDeps{
		orderSvc:      mocks.NewMockOrderService(ctrl),
		withdrawalSvc: mocks.NewMockWithdrawalService(ctrl),
		eventCache:    mocks.NewMockEventCache(ctrl),
		eventRepo:     mocks.NewMockWebhookEventRepository(ctrl),
		transactor:    mocks.NewMockDBTransactor(ctrl),
	}
	d.h = NewWebhookHandler(d.orderSvc, d.withdrawalSvc, d.eventCache, d.eventRepo, d.transactor, zerolog.Nop())
	return d
}

func TestPaymentWebhook_Approved(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWebhookHandler(ctrl)

	order := sampleOrder()
	order.Status = domain.OrderStatusPaid
	key := domain.BuildPaymentEventKey("evt-1")

	d.eventCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.eventRepo.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.orderSvc.EXPECT().MarkPaid(gomock.Any(), order.ID).Return(order, nil)
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.eventRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, event *domain.WebhookEvent) error {
			assert.Equal(t, key, event.Key)
			return nil
		})
	d.eventCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), gomock.Any()).Return(nil)

	body, _ := json.Marshal(dto.PaymentWebhookRequest{
		EventID: "evt-1",
		OrderID: order.ID.String(),
		Status:  "approved",
	})
	c, w := newTestContext(t, http.MethodPost, "/api/v1/webhooks/payment", body)
	d.h.PaymentWebhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack dto.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "evt-1", ack.EventID)
	assert.Equal(t, "order_paid", ack.Outcome)
}

func TestPaymentWebhook_ReplayFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWebhookHandler(ctrl)

	key := domain.BuildPaymentEventKey("evt-1")
	stored := []byte(`{"event_id":"evt-1","outcome":"order_paid"}`)
	d.eventCache.EXPECT().Get(gomock.Any(), key).Return(stored, nil)
	// No MarkPaid, no repo access: the replay answers from cache alone.

	body, _ := json.Marshal(dto.PaymentWebhookRequest{
		EventID: "evt-1",
		OrderID: uuid.New().String(),
		Status:  "approved",
	})
	c, w := newTestContext(t, http.MethodPost, "/api/v1/webhooks/payment", body)
	d.h.PaymentWebhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, stored, w.Body.Bytes())
}

func TestPaymentWebhook_ReplayFromDatabase(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWebhookHandler(ctrl)

	key := domain.BuildPaymentEventKey("evt-2")
	stored := []byte(`{"event_id":"evt-2","outcome":"order_paid"}`)
	d.eventCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.eventRepo.EXPECT().Get(gomock.Any(), key).
		Return(&domain.WebhookEvent{Key: key, ResponseJSON: stored}, nil)
	d.eventCache.EXPECT().Set(gomock.Any(), key, stored, gomock.Any()).Return(nil)

	body, _ := json.Marshal(dto.PaymentWebhookRequest{
		EventID: "evt-2",
		OrderID: uuid.New().String(),
		Status:  "approved",
	})
	c, w := newTestContext(t, http.MethodPost, "/api/v1/webhooks/payment", body)
	d.h.PaymentWebhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, stored, w.Body.Bytes())
}

func TestPaymentWebhook_DeclinedIsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWebhookHandler(ctrl)

	key := domain.BuildPaymentEventKey("evt-3")
	d.eventCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.eventRepo.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	// No MarkPaid for a declined payment.
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.eventRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.eventCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), gomock.Any()).Return(nil)

	body, _ := json.Marshal(dto.PaymentWebhookRequest{
		EventID: "evt-3",
		OrderID: uuid.New().String(),
		Status:  "declined",
	})
	c, w := newTestContext(t, http.MethodPost, "/api/v1/webhooks/payment", body)
	d.h.PaymentWebhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack dto.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "ignored", ack.Outcome)
}

func TestPaymentWebhook_ServiceErrorNotRecorded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWebhookHandler(ctrl)

	orderID := uuid.New()
	key := domain.BuildPaymentEventKey("evt-4")
	d.eventCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.eventRepo.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.orderSvc.EXPECT().MarkPaid(gomock.Any(), orderID).
		Return(nil, apperror.ErrNotFound("order"))
	// No event row: the rail should retry.

	body, _ := json.Marshal(dto.PaymentWebhookRequest{
		EventID: "evt-4",
		OrderID: orderID.String(),
		Status:  "approved",
	})
	c, w := newTestContext(t, http.MethodPost, "/api/v1/webhooks/payment", body)
	d.h.PaymentWebhook(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPayoutWebhook_Paid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWebhookHandler(ctrl)

	withdrawalID := uuid.New()
	key := domain.BuildPayoutEventKey("evt-9")
	d.eventCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.eventRepo.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.withdrawalSvc.EXPECT().Confirm(gomock.Any(), withdrawalID).
		Return(&domain.WithdrawalRequest{ID: withdrawalID, Status: domain.WithdrawalStatusPaid}, nil)
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.eventRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.eventCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), gomock.Any()).Return(nil)

	body, _ := json.Marshal(dto.PayoutWebhookRequest{
		EventID:      "evt-9",
		WithdrawalID: withdrawalID.String(),
		Status:       "paid",
	})
	c, w := newTestContext(t, http.MethodPost, "/api/v1/webhooks/payout", body)
	d.h.PayoutWebhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack dto.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "withdrawal_paid", ack.Outcome)
}

func TestPayoutWebhook_Failed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := setupWebhookHandler(ctrl)

	withdrawalID := uuid.New()
	key := domain.BuildPayoutEventKey("evt-10")
	d.eventCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.eventRepo.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.withdrawalSvc.EXPECT().Fail(gomock.Any(), withdrawalID, "pix key rejected").
		Return(&domain.WithdrawalRequest{ID: withdrawalID, Status: domain.WithdrawalStatusFailed}, nil)
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.eventRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.eventCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), gomock.Any()).Return(nil)

	body, _ := json.Marshal(dto.PayoutWebhookRequest{
		EventID:      "evt-10",
		WithdrawalID: withdrawalID.String(),
		Status:       "failed",
		Reason:       "pix key rejected",
	})
	c, w := newTestContext(t, http.MethodPost, "/api/v1/webhooks/payout", body)
	d.h.PayoutWebhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack dto.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "withdrawal_failed", ack.Outcome)
}

// --- Health Handler Tests ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Ping(context.Context) error { return f.err }
func (f fakeChecker) Name() string               { return f.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	c, w := newTestContext(t, http.MethodGet, "/health", nil)
	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestHealthCheck_Degraded(t *testing.T) {
	c, w := newTestContext(t, http.MethodGet, "/health", nil)
	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis", err: assert.AnError})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}
