package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"arcana-settlement/internal/core/domain"
	"arcana-settlement/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps HTTP methods and paths to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		var actorID *uuid.UUID
		if uid, exists := c.Get(CtxUserID); exists {
			if id, ok := uid.(uuid.UUID); ok {
				actorID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/orders" && method == "POST":
		return domain.AuditActionCreateOrder, "order"
	case path == "/api/v1/webhooks/payment" && method == "POST":
		return domain.AuditActionMarkPaid, "order"
	case path == "/api/v1/webhooks/payout" && method == "POST":
		return domain.AuditActionSettleWithdrawal, "withdrawal"
	case strings.HasSuffix(path, "/draft") && method == "PUT":
		return domain.AuditActionSaveDraft, "order"
	case strings.HasSuffix(path, "/send") && method == "POST":
		return domain.AuditActionSendDelivery, "order"
	case strings.HasSuffix(path, "/complete") && method == "POST":
		return domain.AuditActionCompleteOrder, "order"
	case strings.HasSuffix(path, "/cancel") && method == "POST":
		return domain.AuditActionCancelOrder, "order"
	case path == "/api/v1/wallet/withdrawals" && method == "POST":
		return domain.AuditActionRequestWithdrawal, "withdrawal"
	}
	return "", ""
}
