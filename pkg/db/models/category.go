package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups plans under a single owning administrator. Ownership is a
// single explicit foreign key; plans inherit their scope from it.
type Category struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	CategoryType string    `gorm:"column:category_type;not null;default:''"`
	Description  string    `gorm:"column:description;not null;default:''"`
	OwnerID      uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
