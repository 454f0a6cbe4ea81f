package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// Plan is a purchasable subscription tier. An optional discount window lowers
// the effective price while the current time falls inside it.
type Plan struct {
	ID                      uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID              uuid.UUID          `gorm:"column:category_id;type:uuid;not null;index"`
	Name                    string             `gorm:"column:name;not null;uniqueIndex"`
	Details                 string             `gorm:"column:details;not null;default:''"`
	Features                pq.StringArray     `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	Duration                enums.PlanDuration `gorm:"column:duration;type:plan_duration;not null"`
	Status                  enums.PlanStatus   `gorm:"column:status;type:plan_status;not null;default:'active'"`
	Price                   decimal.Decimal    `gorm:"column:price;type:numeric(10,2);not null"`
	DiscountPercent         *decimal.Decimal   `gorm:"column:discount_percent;type:numeric(5,2)"`
	DiscountActivatedDate   *time.Time         `gorm:"column:discount_activated_date"`
	DiscountDeactivatedDate *time.Time         `gorm:"column:discount_deactivated_date"`
	CreatedAt               time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

var percentBase = decimal.NewFromInt(100)

// FinalPrice returns the price effective at the given instant. The discount
// applies only while the window is open; the result never drops below zero.
func (p Plan) FinalPrice(at time.Time) decimal.Decimal {
	if !p.discountWindowOpen(at) {
		return p.Price
	}
	percent := decimal.Zero
	if p.DiscountPercent != nil {
		percent = *p.DiscountPercent
	}
	final := p.Price.Sub(p.Price.Mul(percent).Div(percentBase))
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

// DiscountStatus reports the state of the discount window at the given
// instant. Expired plans always report expired; plans without a configured
// window report none.
func (p Plan) DiscountStatus(at time.Time) enums.DiscountStatus {
	if p.Status == enums.PlanStatusExpired {
		return enums.DiscountStatusExpired
	}
	if p.DiscountActivatedDate == nil || p.DiscountDeactivatedDate == nil {
		return enums.DiscountStatusNone
	}
	if p.discountWindowOpen(at) {
		return enums.DiscountStatusActive
	}
	return enums.DiscountStatusExpired
}

func (p Plan) discountWindowOpen(at time.Time) bool {
	if p.DiscountActivatedDate == nil || p.DiscountDeactivatedDate == nil {
		return false
	}
	return !at.Before(*p.DiscountActivatedDate) && !at.After(*p.DiscountDeactivatedDate)
}
