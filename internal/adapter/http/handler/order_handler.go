package handler

import (
	"strconv"

	"arcana-settlement/internal/adapter/http/dto"
	"arcana-settlement/internal/adapter/http/middleware"
	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"
	"arcana-settlement/pkg/apperror"
	"arcana-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles order fulfillment endpoints.
type OrderHandler struct {
	orderSvc ports.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc ports.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// CreateOrder handles POST /api/v1/orders (signed checkout call).
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	clientID, _ := uuid.Parse(req.ClientID)
	readerID, _ := uuid.Parse(req.ReaderID)
	gigID, _ := uuid.Parse(req.GigID)

	order, err := h.orderSvc.CreateOrder(c.Request.Context(), ports.CreateOrderRequest{
		ClientID:            clientID,
		ReaderID:            readerID,
		GigID:               gigID,
		AmountTotal:         req.AmountTotal,
		DeliveryDays:        req.DeliveryDays,
		RequirementsAnswers: req.RequirementsAnswers,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toOrderResponse(order))
}

// GetOrder handles GET /api/v1/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	order, err := h.orderSvc.GetOrder(c.Request.Context(), orderID, callerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order))
}

// ListOrders handles GET /api/v1/orders (reader's order book).
func (h *OrderHandler) ListOrders(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	params := ports.OrderListParams{
		ReaderID: callerID,
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if s := c.Query("status"); s != "" {
		status := domain.OrderStatus(s)
		params.Status = &status
	}

	orders, total, err := h.orderSvc.ListOrders(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}

	response.OK(c, dto.OrderListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages(total, params.PageSize),
	})
}

// SaveDraft handles PUT /api/v1/orders/:id/draft.
func (h *OrderHandler) SaveDraft(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	var req dto.DeliveryContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	order, err := h.orderSvc.SaveDraft(c.Request.Context(), orderID, callerID, req.ToDomain())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order))
}

// Send handles POST /api/v1/orders/:id/send.
func (h *OrderHandler) Send(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	var req dto.DeliveryContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	order, err := h.orderSvc.Send(c.Request.Context(), orderID, callerID, req.ToDomain())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order))
}

// Complete handles POST /api/v1/orders/:id/complete.
func (h *OrderHandler) Complete(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	order, err := h.orderSvc.Complete(c.Request.Context(), orderID, &callerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order))
}

// Cancel handles POST /api/v1/orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	order, err := h.orderSvc.Cancel(c.Request.Context(), orderID, &callerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order))
}

// toOrderResponse converts domain.Order to DTO.
func toOrderResponse(order *domain.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:                  order.ID.String(),
		ClientID:            order.ClientID.String(),
		ReaderID:            order.ReaderID.String(),
		GigID:               order.GigID.String(),
		Status:              string(order.Status),
		AmountTotal:         order.AmountTotal,
		AmountReaderNet:     order.AmountReaderNet,
		DeliveryDays:        order.DeliveryDays,
		RequirementsAnswers: order.RequirementsAnswers,
		DeliveryContent:     order.DeliveryContent,
		ContentFinal:        order.ContentFinal,
		CreatedAt:           order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:           order.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if order.DeliverBy != nil {
		s := order.DeliverBy.Format("2006-01-02T15:04:05Z07:00")
		resp.DeliverBy = &s
	}
	return resp
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func totalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	pages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pages++
	}
	return int(pages)
}
