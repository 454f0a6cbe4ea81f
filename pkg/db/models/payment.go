package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// Payment records a single gateway payment attempt against a subscription.
// Rows are immutable once written apart from later status corrections.
type Payment struct {
	ID               uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID   uuid.UUID           `gorm:"column:subscription_id;type:uuid;not null;index"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Method           enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	GatewayOrderID   string              `gorm:"column:gateway_order_id;not null;index"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id;uniqueIndex"`
	GatewaySignature string              `gorm:"column:gateway_signature;not null;default:''"`
	TransactionID    *string             `gorm:"column:transaction_id;uniqueIndex"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
}
