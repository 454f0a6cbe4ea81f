package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// Alert is a lightweight reminder generated by scheduled jobs, never by a
// user action.
type Alert struct {
	ID       uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Category enums.AlertCategory `gorm:"column:category;not null;default:'Subscription'"`
	Subject  string              `gorm:"column:subject;not null"`
	Message  string              `gorm:"column:message;not null;default:''"`
	Email    string              `gorm:"column:email;not null"`
	Read     bool                `gorm:"column:read;not null;default:false"`
	DateSent time.Time           `gorm:"column:date_sent;autoCreateTime"`
}
