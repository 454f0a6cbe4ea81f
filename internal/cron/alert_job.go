package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/subhub-labs/subhub-backend/internal/alerts"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

type alertGenerator interface {
	GenerateDueAlerts(ctx context.Context, today time.Time) (*alerts.GenerateResult, error)
}

type AlertJobParams struct {
	Logger *logger.Logger
	Alerts alertGenerator
}

// NewAlertJob generates payment-due alerts for renewals landing today or on
// the configured horizon.
func NewAlertJob(params AlertJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alerts service required")
	}
	return &alertJob{
		logg:   params.Logger,
		alerts: params.Alerts,
		now:    time.Now,
	}, nil
}

type alertJob struct {
	logg   *logger.Logger
	alerts alertGenerator
	now    func() time.Time
}

func (j *alertJob) Name() string { return "alert-generation" }

func (j *alertJob) Run(ctx context.Context) error {
	result, err := j.alerts.GenerateDueAlerts(ctx, j.now().UTC())
	if result != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"due_today": result.DueToday,
			"due_soon":  result.DueSoon,
			"skipped":   result.Skipped,
		})
		j.logg.Info(logCtx, "alert generation complete")
	}
	if err != nil {
		return fmt.Errorf("alert generation: %w", err)
	}
	return nil
}
