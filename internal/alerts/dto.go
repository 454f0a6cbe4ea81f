package alerts

import (
	"time"

	"github.com/google/uuid"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// AlertDTO is the transport shape for one alert row.
type AlertDTO struct {
	ID       uuid.UUID           `json:"id"`
	Category enums.AlertCategory `json:"category"`
	Subject  string              `json:"subject"`
	Message  string              `json:"message"`
	Email    string              `json:"email"`
	Read     bool                `json:"read"`
	DateSent time.Time           `json:"date_sent"`
}

// GenerateResult summarizes one alert sweep run.
type GenerateResult struct {
	DueToday int `json:"due_today"`
	DueSoon  int `json:"due_soon"`
	Skipped  int `json:"skipped"`
}

func fromModel(a *models.Alert) *AlertDTO {
	if a == nil {
		return nil
	}
	return &AlertDTO{
		ID:       a.ID,
		Category: a.Category,
		Subject:  a.Subject,
		Message:  a.Message,
		Email:    a.Email,
		Read:     a.Read,
		DateSent: a.DateSent,
	}
}

func fromModels(list []models.Alert) []AlertDTO {
	out := make([]AlertDTO, 0, len(list))
	for i := range list {
		out = append(out, *fromModel(&list[i]))
	}
	return out
}
