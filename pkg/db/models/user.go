package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// User represents the canonical identity entity. Administrators own categories
// (and transitively plans); customers hold subscriptions.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string         `gorm:"type:text;not null;uniqueIndex"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null;default:'customer'"`
	MobileNumber *string        `gorm:"column:mobile_number;uniqueIndex"`
	State        string         `gorm:"column:state;not null;default:''"`
	District     string         `gorm:"column:district;not null;default:''"`
	City         string         `gorm:"column:city;not null;default:''"`
	PinCode      string         `gorm:"column:pin_code;not null;default:''"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
