package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionCreateOrder        AuditAction = "CREATE_ORDER"
	AuditActionMarkPaid           AuditAction = "MARK_PAID"
	AuditActionSaveDraft          AuditAction = "SAVE_DRAFT"
	AuditActionSendDelivery       AuditAction = "SEND_DELIVERY"
	AuditActionCompleteOrder      AuditAction = "COMPLETE_ORDER"
	AuditActionCancelOrder        AuditAction = "CANCEL_ORDER"
	AuditActionRequestWithdrawal  AuditAction = "REQUEST_WITHDRAWAL"
	AuditActionSettleWithdrawal   AuditAction = "SETTLE_WITHDRAWAL"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
