package dto

import (
	"encoding/json"

	"arcana-settlement/internal/core/domain"
)

// CreateOrderRequest is the request body of the signed checkout call.
type CreateOrderRequest struct {
	ClientID            string          `json:"client_id" binding:"required,uuid"`
	ReaderID            string          `json:"reader_id" binding:"required,uuid"`
	GigID               string          `json:"gig_id" binding:"required,uuid"`
	AmountTotal         int64           `json:"amount_total" binding:"required,gt=0"`
	DeliveryDays        int             `json:"delivery_days" binding:"required,gt=0"`
	RequirementsAnswers json.RawMessage `json:"requirements_answers,omitempty"`
}

// CardDTO is one drawn card of a digital reading.
type CardDTO struct {
	CardID         string  `json:"card_id" binding:"required,max=50"`
	Name           string  `json:"name" binding:"required,max=100"`
	Position       string  `json:"position" binding:"max=50"`
	Interpretation string  `json:"interpretation" binding:"max=10000"`
	AudioURL       *string `json:"audio_url,omitempty" binding:"omitempty,safe_url"`
}

// DigitalReadingDTO is the digital shape of delivery content.
type DigitalReadingDTO struct {
	SpreadName string    `json:"spread_name" binding:"max=100"`
	Cards      []CardDTO `json:"cards" binding:"dive"`
}

// SectionDTO is one documented step of a physical reading.
type SectionDTO struct {
	Title          string  `json:"title" binding:"max=100"`
	PhotoURL       *string `json:"photo_url,omitempty" binding:"omitempty,safe_url"`
	AudioURL       *string `json:"audio_url,omitempty" binding:"omitempty,safe_url"`
	Interpretation string  `json:"interpretation" binding:"max=10000"`
}

// PhysicalReadingDTO is the physical shape of delivery content.
type PhysicalReadingDTO struct {
	ReadingTitle string       `json:"reading_title" binding:"max=100"`
	Sections     []SectionDTO `json:"sections" binding:"dive"`
}

// DeliveryContentRequest is the request body for draft saves and delivery.
// Mode discriminates which of the two shapes is meaningful.
type DeliveryContentRequest struct {
	Mode     string              `json:"mode" binding:"omitempty,oneof=digital physical"`
	Digital  *DigitalReadingDTO  `json:"digital,omitempty"`
	Physical *PhysicalReadingDTO `json:"physical,omitempty"`
}

// ToDomain converts the request body into the domain content model.
func (r *DeliveryContentRequest) ToDomain() *domain.DeliveryContent {
	content := &domain.DeliveryContent{Mode: domain.DeliveryMode(r.Mode)}
	if r.Digital != nil {
		digital := &domain.DigitalReading{SpreadName: r.Digital.SpreadName}
		for _, card := range r.Digital.Cards {
			digital.Cards = append(digital.Cards, domain.Card{
				CardID:         card.CardID,
				Name:           card.Name,
				Position:       card.Position,
				Interpretation: card.Interpretation,
				AudioURL:       card.AudioURL,
			})
		}
		content.Digital = digital
	}
	if r.Physical != nil {
		physical := &domain.PhysicalReading{ReadingTitle: r.Physical.ReadingTitle}
		for _, section := range r.Physical.Sections {
			physical.Sections = append(physical.Sections, domain.Section{
				Title:          section.Title,
				PhotoURL:       section.PhotoURL,
				AudioURL:       section.AudioURL,
				Interpretation: section.Interpretation,
			})
		}
		content.Physical = physical
	}
	return content
}

// OrderResponse is the response body for order queries and mutations.
type OrderResponse struct {
	ID                  string                  `json:"id"`
	ClientID            string                  `json:"client_id"`
	ReaderID            string                  `json:"reader_id"`
	GigID               string                  `json:"gig_id"`
	Status              string                  `json:"status"`
	AmountTotal         int64                   `json:"amount_total"`
	AmountReaderNet     int64                   `json:"amount_reader_net"`
	DeliveryDays        int                     `json:"delivery_days"`
	DeliverBy           *string                 `json:"deliver_by,omitempty"`
	RequirementsAnswers json.RawMessage         `json:"requirements_answers,omitempty"`
	DeliveryContent     *domain.DeliveryContent `json:"delivery_content,omitempty"`
	ContentFinal        bool                    `json:"content_final"`
	CreatedAt           string                  `json:"created_at"`
	UpdatedAt           string                  `json:"updated_at"`
}

// OrderListResponse wraps a paginated order list.
type OrderListResponse struct {
	Items      []OrderResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// PaymentWebhookRequest is the payment rail's confirmation callback.
type PaymentWebhookRequest struct {
	EventID string `json:"event_id" binding:"required,max=100,safe_id"`
	OrderID string `json:"order_id" binding:"required,uuid"`
	Status  string `json:"status" binding:"required,oneof=approved declined"`
}

// PayoutWebhookRequest is the payout rail's settlement callback.
type PayoutWebhookRequest struct {
	EventID      string `json:"event_id" binding:"required,max=100,safe_id"`
	WithdrawalID string `json:"withdrawal_id" binding:"required,uuid"`
	Status       string `json:"status" binding:"required,oneof=paid failed"`
	Reason       string `json:"reason" binding:"max=500"`
}

// WebhookAck is the response body stored for and replayed to rail retries.
type WebhookAck struct {
	EventID string `json:"event_id"`
	Outcome string `json:"outcome"`
}

// WithdrawalCreateRequest is the request body for a withdrawal.
type WithdrawalCreateRequest struct {
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	PayoutKey     string `json:"payout_key" binding:"required,max=140"`
	PayoutKeyKind string `json:"payout_key_kind" binding:"required,oneof=cpf email phone random"`
}

// WithdrawalResponse is the response body for withdrawal queries.
type WithdrawalResponse struct {
	ID            string  `json:"id"`
	Amount        int64   `json:"amount"`
	PayoutKeyKind string  `json:"payout_key_kind"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
	ProcessedAt   *string `json:"processed_at,omitempty"`
}

// WithdrawalListResponse wraps a paginated withdrawal list.
type WithdrawalListResponse struct {
	Items      []WithdrawalResponse `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// BalancesResponse is the response for the wallet balance query.
type BalancesResponse struct {
	PendingBalance   int64 `json:"pending_balance"`
	AvailableBalance int64 `json:"available_balance"`
	TotalEarnings    int64 `json:"total_earnings"`
}

// TransactionResponse is one ledger entry in the history view.
type TransactionResponse struct {
	ID           string  `json:"id"`
	OrderID      *string `json:"order_id,omitempty"`
	WithdrawalID *string `json:"withdrawal_id,omitempty"`
	Amount       int64   `json:"amount"`
	Kind         string  `json:"kind"`
	CreatedAt    string  `json:"created_at"`
}

// TransactionListResponse wraps a paginated ledger history.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// WalletStatsResponse is the earnings summary for the reader dashboard.
type WalletStatsResponse struct {
	Period         string `json:"period"`
	EntriesTotal   int64  `json:"entries_total"`
	OrdersPending  int64  `json:"orders_pending"`
	OrdersReleased int64  `json:"orders_released"`
	EarnedReleased int64  `json:"earned_released"`
	Withdrawn      int64  `json:"withdrawn"`
}
