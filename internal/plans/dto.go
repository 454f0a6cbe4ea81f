package plans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// PlanDTO is the transport shape for a plan, including derived pricing.
type PlanDTO struct {
	ID                      uuid.UUID            `json:"id"`
	CategoryID              uuid.UUID            `json:"category_id"`
	Name                    string               `json:"name"`
	Details                 string               `json:"details,omitempty"`
	Features                []string             `json:"features"`
	Duration                enums.PlanDuration   `json:"duration"`
	Status                  enums.PlanStatus     `json:"status"`
	Price                   decimal.Decimal      `json:"price"`
	FinalPrice              decimal.Decimal      `json:"final_price"`
	DiscountPercent         *decimal.Decimal     `json:"discount_percent,omitempty"`
	DiscountStatus          enums.DiscountStatus `json:"discount_status"`
	DiscountActivatedDate   *time.Time           `json:"discount_activated_date,omitempty"`
	DiscountDeactivatedDate *time.Time           `json:"discount_deactivated_date,omitempty"`
	CreatedAt               time.Time            `json:"created_at"`
	UpdatedAt               time.Time            `json:"updated_at"`
}

// CreatePlanRequest is the payload for creating a plan.
type CreatePlanRequest struct {
	CategoryID              uuid.UUID        `json:"category_id" validate:"required"`
	Name                    string           `json:"name" validate:"required,max=150"`
	Details                 string           `json:"details" validate:"max=2000"`
	Features                []string         `json:"features" validate:"max=50,dive,max=200"`
	Duration                string           `json:"duration" validate:"required"`
	Price                   decimal.Decimal  `json:"price" validate:"required"`
	DiscountPercent         *decimal.Decimal `json:"discount_percent,omitempty"`
	DiscountActivatedDate   *time.Time       `json:"discount_activated_date,omitempty"`
	DiscountDeactivatedDate *time.Time       `json:"discount_deactivated_date,omitempty"`
}

// UpdatePlanRequest carries the mutable plan fields.
type UpdatePlanRequest struct {
	Name                    *string          `json:"name,omitempty" validate:"omitempty,max=150"`
	Details                 *string          `json:"details,omitempty" validate:"omitempty,max=2000"`
	Features                *[]string        `json:"features,omitempty" validate:"omitempty,max=50,dive,max=200"`
	Duration                *string          `json:"duration,omitempty"`
	Status                  *string          `json:"status,omitempty"`
	Price                   *decimal.Decimal `json:"price,omitempty"`
	DiscountPercent         *decimal.Decimal `json:"discount_percent,omitempty"`
	DiscountActivatedDate   *time.Time       `json:"discount_activated_date,omitempty"`
	DiscountDeactivatedDate *time.Time       `json:"discount_deactivated_date,omitempty"`
	ClearDiscount           bool             `json:"clear_discount,omitempty"`
}

// ListPlansQuery captures the supported list filters.
type ListPlansQuery struct {
	Search     string
	CategoryID *uuid.UUID
	SortBy     string
	SortDesc   bool
}

func fromModel(p *models.Plan, at time.Time) *PlanDTO {
	if p == nil {
		return nil
	}
	features := make([]string, len(p.Features))
	copy(features, p.Features)
	return &PlanDTO{
		ID:                      p.ID,
		CategoryID:              p.CategoryID,
		Name:                    p.Name,
		Details:                 p.Details,
		Features:                features,
		Duration:                p.Duration,
		Status:                  p.Status,
		Price:                   p.Price,
		FinalPrice:              p.FinalPrice(at),
		DiscountPercent:         p.DiscountPercent,
		DiscountStatus:          p.DiscountStatus(at),
		DiscountActivatedDate:   p.DiscountActivatedDate,
		DiscountDeactivatedDate: p.DiscountDeactivatedDate,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
}

func fromModels(list []models.Plan, at time.Time) []PlanDTO {
	out := make([]PlanDTO, 0, len(list))
	for i := range list {
		out = append(out, *fromModel(&list[i], at))
	}
	return out
}
