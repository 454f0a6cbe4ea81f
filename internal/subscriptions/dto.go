package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// SubscriptionDTO is the transport shape for a subscription, including the
// derived days_left counter.
type SubscriptionDTO struct {
	ID            uuid.UUID                `json:"id"`
	CustomerID    uuid.UUID                `json:"customer_id"`
	PlanID        uuid.UUID                `json:"plan_id"`
	PlanName      string                   `json:"plan_name,omitempty"`
	PlanPrice     *decimal.Decimal         `json:"plan_price,omitempty"`
	Status        enums.SubscriptionStatus `json:"status"`
	IsActive      bool                     `json:"is_active"`
	StartDate     *time.Time               `json:"start_date,omitempty"`
	EndDate       *time.Time               `json:"end_date,omitempty"`
	DaysLeft      *int                     `json:"days_left,omitempty"`
	PhoneNumber   string                   `json:"phone_number,omitempty"`
	Address       string                   `json:"address,omitempty"`
	PaymentMethod enums.PaymentMethod      `json:"payment_method"`
	CreatedAt     time.Time                `json:"created_at"`
}

// CreateSubscriptionRequest is the enrollment form a customer submits.
type CreateSubscriptionRequest struct {
	PlanID        uuid.UUID `json:"plan_id" validate:"required"`
	PhoneNumber   string    `json:"phone_number" validate:"required,min=7,max=20"`
	Address       string    `json:"address" validate:"required,max=500"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
}

func fromModel(s *models.Subscription, today time.Time) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	dto := &SubscriptionDTO{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		PlanID:        s.PlanID,
		Status:        s.Status,
		IsActive:      s.IsActive,
		StartDate:     s.StartDate,
		EndDate:       s.EndDate,
		DaysLeft:      s.DaysLeft(today),
		PhoneNumber:   s.PhoneNumber,
		Address:       s.Address,
		PaymentMethod: s.PaymentMethod,
		CreatedAt:     s.CreatedAt,
	}
	if s.Plan != nil {
		dto.PlanName = s.Plan.Name
		price := s.Plan.FinalPrice(today)
		dto.PlanPrice = &price
	}
	return dto
}

func fromModels(list []models.Subscription, today time.Time) []SubscriptionDTO {
	out := make([]SubscriptionDTO, 0, len(list))
	for i := range list {
		out = append(out, *fromModel(&list[i], today))
	}
	return out
}
