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

// OrderServiceImpl implements ports.OrderService. It owns the order status
// state machine; every transition is a conditional UPDATE inside a locked
// transaction, so retries and concurrent calls resolve deterministically.
type OrderServiceImpl struct {
	orderRepo  ports.OrderRepository
	ledgerSvc  ports.LedgerService
	transactor ports.DBTransactor
	feeRate    float64
	log        zerolog.Logger
}

// NewOrderService creates a new OrderServiceImpl.
func NewOrderService(
	orderRepo ports.OrderRepository,
	ledgerSvc ports.LedgerService,
	transactor ports.DBTransactor,
	feeRate float64,
	log zerolog.Logger,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		orderRepo:  orderRepo,
		ledgerSvc:  ledgerSvc,
		transactor: transactor,
		feeRate:    feeRate,
		log:        log,
	}
}

// CreateOrder records a new order in PENDING_PAYMENT. The reader's net share
// and the delivery commitment are snapshotted here so later gig edits cannot
// change the terms of an order already placed.
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, req ports.CreateOrderRequest) (*domain.Order, error) {
	if req.AmountTotal <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.DeliveryDays <= 0 {
		return nil, apperror.Validation("delivery_days must be positive")
	}
	if req.ClientID == req.ReaderID {
		return nil, apperror.Validation("client and reader must differ")
	}

	now := time.Now()
	order := &domain.Order{
		ID:                  uuid.New(),
		ClientID:            req.ClientID,
		ReaderID:            req.ReaderID,
		GigID:               req.GigID,
		Status:              domain.OrderStatusPendingPayment,
		AmountTotal:         req.AmountTotal,
		AmountReaderNet:     domain.ReaderNetAmount(req.AmountTotal, s.feeRate),
		DeliveryDays:        req.DeliveryDays,
		RequirementsAnswers: req.RequirementsAnswers,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("create order: %w", err))
	}

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("reader_id", order.ReaderID.String()).
		Int64("amount_total", order.AmountTotal).
		Int64("amount_reader_net", order.AmountReaderNet).
		Msg("order created")

	return order, nil
}

// MarkPaid moves PENDING_PAYMENT to PAID, stamps the delivery deadline and
// records the pending earning, all in one transaction. Payment webhook
// retries land on an already-PAID order and return it unchanged.
func (s *OrderServiceImpl) MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("lock order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("order")
	}

	switch order.Status {
	case domain.OrderStatusPaid, domain.OrderStatusDelivered, domain.OrderStatusCompleted:
		// Payment was already applied; webhook retry.
		return order, nil
	case domain.OrderStatusCanceled:
		return nil, apperror.ErrInvalidTransition(string(order.Status), string(domain.OrderStatusPaid))
	}

	moved, err := s.orderRepo.UpdateStatus(ctx, tx, orderID, domain.OrderStatusPendingPayment, domain.OrderStatusPaid)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("update order status: %w", err))
	}
	if !moved {
		return nil, apperror.ErrConcurrencyConflict(fmt.Errorf("order %s changed status concurrently", orderID))
	}

	deliverBy := time.Now().Add(time.Duration(order.DeliveryDays) * 24 * time.Hour)
	if err := s.orderRepo.SetDeliverBy(ctx, tx, orderID, deliverBy); err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("stamp deliver_by: %w", err))
	}

	if err := s.ledgerSvc.RecordPendingEarning(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	order.Status = domain.OrderStatusPaid
	order.DeliverBy = &deliverBy

	s.log.Info().
		Str("order_id", orderID.String()).
		Time("deliver_by", deliverBy).
		Msg("order marked paid, pending earning recorded")

	return order, nil
}

// SaveDraft overwrites the working content without touching status. Drafts
// are not validated for completeness; only Send is. Last writer wins, except
// that the mode chosen by the first persisted draft is fixed for the order.
func (s *OrderServiceImpl) SaveDraft(ctx context.Context, orderID, callerID uuid.UUID, content *domain.DeliveryContent) (*domain.Order, error) {
	if content == nil {
		return nil, apperror.Validation("delivery content is required")
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("order")
	}
	if order.ReaderID != callerID {
		return nil, apperror.ErrUnauthorized()
	}
	if order.Status != domain.OrderStatusPaid || order.ContentFinal {
		return nil, apperror.ErrInvalidTransition(string(order.Status), string(domain.OrderStatusDelivered))
	}
	if order.DeliveryContent != nil && order.DeliveryContent.Mode != content.Mode {
		return nil, apperror.ErrModeLocked()
	}

	saved, err := s.orderRepo.SaveDraft(ctx, orderID, content)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("save draft: %w", err))
	}
	if !saved {
		// Passed the checks above, so the order changed under us.
		return nil, apperror.ErrConcurrencyConflict(fmt.Errorf("order %s changed concurrently during draft save", orderID))
	}

	order.DeliveryContent = content
	return order, nil
}

// Send validates the supplied content and performs PAID -> DELIVERED with the
// content frozen as final, atomically. A repeat on a delivered order returns
// it unchanged.
func (s *OrderServiceImpl) Send(ctx context.Context, orderID, callerID uuid.UUID, content *domain.DeliveryContent) (*domain.Order, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("lock order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("order")
	}
	if order.ReaderID != callerID {
		return nil, apperror.ErrUnauthorized()
	}
	if order.Status == domain.OrderStatusDelivered {
		return order, nil
	}
	if order.Status != domain.OrderStatusPaid {
		return nil, apperror.ErrInvalidTransition(string(order.Status), string(domain.OrderStatusDelivered))
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if order.DeliveryContent != nil && order.DeliveryContent.Mode != content.Mode {
		return nil, apperror.ErrModeLocked()
	}

	if err := s.orderRepo.SetFinalContent(ctx, tx, orderID, content); err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("set final content: %w", err))
	}

	moved, err := s.orderRepo.UpdateStatus(ctx, tx, orderID, domain.OrderStatusPaid, domain.OrderStatusDelivered)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("update order status: %w", err))
	}
	if !moved {
		return nil, apperror.ErrConcurrencyConflict(fmt.Errorf("order %s changed status concurrently", orderID))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	order.Status = domain.OrderStatusDelivered
	order.DeliveryContent = content
	order.ContentFinal = true

	s.log.Info().
		Str("order_id", orderID.String()).
		Str("mode", string(content.Mode)).
		Msg("order delivered")

	return order, nil
}

// Complete performs DELIVERED -> COMPLETED and releases the earning in the
// same transaction. A nil callerID means the acceptance window scheduler
// triggered the completion; otherwise the caller must be the order's client.
func (s *OrderServiceImpl) Complete(ctx context.Context, orderID uuid.UUID, callerID *uuid.UUID) (*domain.Order, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("lock order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("order")
	}
	if callerID != nil && order.ClientID != *callerID {
		return nil, apperror.ErrUnauthorized()
	}
	if order.Status == domain.OrderStatusCompleted {
		return order, nil
	}
	if order.Status != domain.OrderStatusDelivered {
		return nil, apperror.ErrInvalidTransition(string(order.Status), string(domain.OrderStatusCompleted))
	}

	moved, err := s.orderRepo.UpdateStatus(ctx, tx, orderID, domain.OrderStatusDelivered, domain.OrderStatusCompleted)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("update order status: %w", err))
	}
	if !moved {
		return nil, apperror.ErrConcurrencyConflict(fmt.Errorf("order %s changed status concurrently", orderID))
	}

	if err := s.ledgerSvc.ReleaseEarning(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	order.Status = domain.OrderStatusCompleted

	s.log.Info().
		Str("order_id", orderID.String()).
		Int64("released", order.AmountReaderNet).
		Msg("order completed, earning released")

	return order, nil
}

// Cancel performs PENDING_PAYMENT|PAID -> CANCELED. A cancellation of a PAID
// order reverses the pending earning in the same transaction. Delivered and
// completed orders cannot be canceled.
func (s *OrderServiceImpl) Cancel(ctx context.Context, orderID uuid.UUID, callerID *uuid.UUID) (*domain.Order, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("lock order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("order")
	}
	if callerID != nil && order.ClientID != *callerID && order.ReaderID != *callerID {
		return nil, apperror.ErrUnauthorized()
	}
	if order.Status == domain.OrderStatusCanceled {
		return order, nil
	}
	if !order.CanCancel() {
		return nil, apperror.ErrInvalidTransition(string(order.Status), string(domain.OrderStatusCanceled))
	}

	wasPaid := order.Status == domain.OrderStatusPaid

	moved, err := s.orderRepo.UpdateStatus(ctx, tx, orderID, order.Status, domain.OrderStatusCanceled)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("update order status: %w", err))
	}
	if !moved {
		return nil, apperror.ErrConcurrencyConflict(fmt.Errorf("order %s changed status concurrently", orderID))
	}

	if wasPaid {
		if err := s.ledgerSvc.ReverseEarning(ctx, tx, order); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	order.Status = domain.OrderStatusCanceled

	s.log.Info().
		Str("order_id", orderID.String()).
		Bool("earning_reversed", wasPaid).
		Msg("order canceled")

	return order, nil
}

// GetOrder fetches an order visible to the caller (its client or reader).
func (s *OrderServiceImpl) GetOrder(ctx context.Context, orderID, callerID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("order")
	}
	if order.ClientID != callerID && order.ReaderID != callerID {
		return nil, apperror.ErrUnauthorized()
	}
	return order, nil
}

// ListOrders fetches a reader's orders with filtering and pagination.
func (s *OrderServiceImpl) ListOrders(ctx context.Context, params ports.OrderListParams) ([]domain.Order, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	orders, total, err := s.orderRepo.ListByReader(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrStorageFailure(fmt.Errorf("list orders: %w", err))
	}
	return orders, total, nil
}

// validateContent maps the domain validator's sentinel errors onto API errors.
func validateContent(content *domain.DeliveryContent) error {
	switch err := content.Validate(); err {
	case nil:
		return nil
	case domain.ErrMissingMode:
		return apperror.ErrMissingMode()
	case domain.ErrIncompleteContent:
		return apperror.ErrIncompleteContent()
	default:
		return apperror.Validation(err.Error())
	}
}
