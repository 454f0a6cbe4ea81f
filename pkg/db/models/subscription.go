package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// Subscription enrolls one customer in one plan. Dates stay null while the
// subscription is pending payment; end_date survives deactivation for
// historical display.
type Subscription struct {
	ID            uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	PlanID        uuid.UUID                `gorm:"column:plan_id;type:uuid;not null;index"`
	Status        enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'pending'"`
	IsActive      bool                     `gorm:"column:is_active;not null;default:false"`
	StartDate     *time.Time               `gorm:"column:start_date;type:date"`
	EndDate       *time.Time               `gorm:"column:end_date;type:date"`
	PhoneNumber   string                   `gorm:"column:phone_number;not null;default:''"`
	Address       string                   `gorm:"column:address;not null;default:''"`
	PaymentMethod enums.PaymentMethod      `gorm:"column:payment_method;type:payment_method;not null;default:'credit_card'"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	Plan     *Plan `gorm:"foreignKey:PlanID"`
	Customer *User `gorm:"foreignKey:CustomerID"`
}

// DaysLeft returns the whole days remaining until end_date, floored at zero.
// It returns nil while no end_date is set.
func (s Subscription) DaysLeft(today time.Time) *int {
	if s.EndDate == nil {
		return nil
	}
	days := int(s.EndDate.Sub(today.Truncate(24*time.Hour)).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}
