package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// NotificationDTO is the transport shape for one notification row.
type NotificationDTO struct {
	ID            uuid.UUID                `json:"id"`
	Title         string                   `json:"title"`
	Recipient     string                   `json:"recipient"`
	Type          enums.NotificationType   `json:"type"`
	Details       string                   `json:"details,omitempty"`
	Status        enums.NotificationStatus `json:"status"`
	Attempts      int                      `json:"attempts"`
	LastAttemptAt *time.Time               `json:"last_attempt_at,omitempty"`
	SentAt        *time.Time               `json:"sent_at,omitempty"`
	IsRead        bool                     `json:"is_read"`
	ReadAt        *time.Time               `json:"read_at,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// SendRequest is a single-recipient dispatch.
type SendRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Type      string `json:"type" validate:"required"`
	Details   string `json:"details,omitempty" validate:"max=2000"`
	Recipient string `json:"recipient" validate:"required,max=150"`
}

// BroadcastRequest fans one message out to every active customer.
type BroadcastRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Type    string `json:"type" validate:"required"`
	Details string `json:"details,omitempty" validate:"max=2000"`
}

// DeliveryResult reports the outcome of one dispatch attempt.
type DeliveryResult struct {
	Notification *NotificationDTO `json:"notification"`
	Delivered    bool             `json:"delivered"`
}

// BroadcastResult aggregates a fan-out run.
type BroadcastResult struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func fromModel(n *models.Notification) *NotificationDTO {
	if n == nil {
		return nil
	}
	return &NotificationDTO{
		ID:            n.ID,
		Title:         n.Title,
		Recipient:     n.Recipient,
		Type:          n.Type,
		Details:       n.Details,
		Status:        n.Status,
		Attempts:      n.Attempts,
		LastAttemptAt: n.LastAttemptAt,
		SentAt:        n.SentAt,
		IsRead:        n.IsRead,
		ReadAt:        n.ReadAt,
		CreatedAt:     n.CreatedAt,
	}
}

func fromModels(list []models.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(list))
	for i := range list {
		out = append(out, *fromModel(&list[i]))
	}
	return out
}
