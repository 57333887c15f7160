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
)

// WalletHandler handles the reader's wallet endpoints.
type WalletHandler struct {
	reportingSvc  ports.ReportingService
	withdrawalSvc ports.WithdrawalService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(reportingSvc ports.ReportingService, withdrawalSvc ports.WithdrawalService) *WalletHandler {
	return &WalletHandler{
		reportingSvc:  reportingSvc,
		withdrawalSvc: withdrawalSvc,
	}
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balances, err := h.reportingSvc.GetBalances(c.Request.Context(), callerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalancesResponse{
		PendingBalance:   balances.PendingBalance,
		AvailableBalance: balances.AvailableBalance,
		TotalEarnings:    balances.TotalEarnings,
	})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	params := ports.TransactionListParams{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if s := c.Query("kind"); s != "" {
		kind := domain.TransactionKind(s)
		params.Kind = &kind
	}
	if s := c.Query("from"); s != "" {
		if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
			params.From = &ts
		}
	}
	if s := c.Query("to"); s != "" {
		if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
			params.To = &ts
		}
	}

	entries, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), callerID, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toLedgerEntryResponse(&entries[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages(total, params.PageSize),
	})
}

// GetStats handles GET /api/v1/wallet/stats.
func (h *WalletHandler) GetStats(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	period := c.DefaultQuery("period", "all")
	stats, err := h.reportingSvc.GetWalletStats(c.Request.Context(), callerID, period)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletStatsResponse{
		Period:         period,
		EntriesTotal:   stats.EntriesTotal,
		OrdersPending:  stats.OrdersPending,
		OrdersReleased: stats.OrdersReleased,
		EarnedReleased: stats.EarnedReleased,
		Withdrawn:      stats.Withdrawn,
	})
}

// RequestWithdrawal handles POST /api/v1/wallet/withdrawals.
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawalCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	withdrawal, err := h.withdrawalSvc.Request(c.Request.Context(), ports.WithdrawalInput{
		ReaderID:      callerID,
		Amount:        req.Amount,
		PayoutKey:     req.PayoutKey,
		PayoutKeyKind: domain.PayoutKeyKind(req.PayoutKeyKind),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWithdrawalResponse(withdrawal))
}

// ListWithdrawals handles GET /api/v1/wallet/withdrawals.
func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	reqs, total, err := h.reportingSvc.ListWithdrawals(c.Request.Context(), callerID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WithdrawalResponse, 0, len(reqs))
	for i := range reqs {
		items = append(items, toWithdrawalResponse(&reqs[i]))
	}

	response.OK(c, dto.WithdrawalListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

// toLedgerEntryResponse converts domain.Transaction to DTO.
func toLedgerEntryResponse(entry *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:        entry.ID.String(),
		Amount:    entry.Amount,
		Kind:      string(entry.Kind),
		CreatedAt: entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if entry.OrderID != nil {
		s := entry.OrderID.String()
		resp.OrderID = &s
	}
	if entry.WithdrawalID != nil {
		s := entry.WithdrawalID.String()
		resp.WithdrawalID = &s
	}
	return resp
}

// toWithdrawalResponse converts domain.WithdrawalRequest to DTO.
func toWithdrawalResponse(w *domain.WithdrawalRequest) dto.WithdrawalResponse {
	resp := dto.WithdrawalResponse{
		ID:            w.ID.String(),
		Amount:        w.Amount,
		PayoutKeyKind: string(w.PayoutKeyKind),
		Status:        string(w.Status),
		CreatedAt:     w.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if w.ProcessedAt != nil {
		s := w.ProcessedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ProcessedAt = &s
	}
	return resp
}
