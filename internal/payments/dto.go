package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// PaymentDTO is the transport shape for a recorded payment.
type PaymentDTO struct {
	ID             uuid.UUID           `json:"id"`
	SubscriptionID uuid.UUID           `json:"subscription_id"`
	Amount         decimal.Decimal     `json:"amount"`
	Method         enums.PaymentMethod `json:"method"`
	Status         enums.PaymentStatus `json:"status"`
	TransactionID  string              `json:"transaction_id,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// StartPaymentRequest begins a gateway checkout for a pending subscription.
type StartPaymentRequest struct {
	SubscriptionID uuid.UUID `json:"subscription_id" validate:"required"`
}

// StartPaymentResponse carries everything the checkout widget needs.
type StartPaymentResponse struct {
	OrderID  string          `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	KeyID    string          `json:"key_id"`
}

// ConfirmPaymentRequest is the signed callback the gateway posts after the
// customer completes checkout.
type ConfirmPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// ConfirmPaymentResponse reports the settled payment and whether the linked
// subscription was activated by this call or a prior one.
type ConfirmPaymentResponse struct {
	Payment        *PaymentDTO `json:"payment"`
	SubscriptionID uuid.UUID   `json:"subscription_id"`
	AlreadyActive  bool        `json:"already_active"`
}

func fromModel(p *models.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	transactionID := ""
	if p.TransactionID != nil {
		transactionID = *p.TransactionID
	}
	return &PaymentDTO{
		ID:             p.ID,
		SubscriptionID: p.SubscriptionID,
		Amount:         p.Amount,
		Method:         p.Method,
		Status:         p.Status,
		TransactionID:  transactionID,
		CreatedAt:      p.CreatedAt,
	}
}

func fromModels(list []models.Payment) []PaymentDTO {
	out := make([]PaymentDTO, 0, len(list))
	for i := range list {
		out = append(out, *fromModel(&list[i]))
	}
	return out
}
