package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/subhub-labs/subhub-backend/internal/subscriptions"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

type renewalNotifier interface {
	NotifyExpiringSoon(ctx context.Context, today time.Time) (*subscriptions.SweepResult, error)
}

type RenewalReminderJobParams struct {
	Logger        *logger.Logger
	Subscriptions renewalNotifier
}

// NewRenewalReminderJob warns customers whose subscription ends in a few
// days without changing any state.
func NewRenewalReminderJob(params RenewalReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	return &renewalReminderJob{
		logg: params.Logger,
		subs: params.Subscriptions,
		now:  time.Now,
	}, nil
}

type renewalReminderJob struct {
	logg *logger.Logger
	subs renewalNotifier
	now  func() time.Time
}

func (j *renewalReminderJob) Name() string { return "renewal-reminder" }

func (j *renewalReminderJob) Run(ctx context.Context) error {
	result, err := j.subs.NotifyExpiringSoon(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("renewal reminder sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"notified": len(result.ExpiringSoon),
	})
	j.logg.Info(logCtx, "renewal reminder sweep complete")
	return nil
}
