package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// Notification stores one outbound message and its delivery bookkeeping.
// Recipient keeps the raw contact string; RecipientUserID is set when the
// contact resolves to a known user. Read tracking is independent of delivery.
type Notification struct {
	ID              uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title           string                   `gorm:"column:title;not null"`
	Recipient       string                   `gorm:"column:recipient;not null"`
	RecipientUserID *uuid.UUID               `gorm:"column:recipient_user_id;type:uuid;index"`
	Type            enums.NotificationType   `gorm:"column:type;type:notification_type;not null"`
	Details         string                   `gorm:"column:details;not null;default:''"`
	Status          enums.NotificationStatus `gorm:"column:status;type:notification_status;not null;default:'pending'"`
	Attempts        int                      `gorm:"column:attempts;not null;default:0"`
	LastAttemptAt   *time.Time               `gorm:"column:last_attempt_at"`
	SentAt          *time.Time               `gorm:"column:sent_at"`
	IsRead          bool                     `gorm:"column:is_read;not null;default:false"`
	ReadAt          *time.Time               `gorm:"column:read_at"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
}
