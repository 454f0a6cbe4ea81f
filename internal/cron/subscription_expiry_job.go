package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/subhub-labs/subhub-backend/internal/subscriptions"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

type subscriptionExpirer interface {
	ExpireDueToday(ctx context.Context, today time.Time) (*subscriptions.SweepResult, error)
}

type SubscriptionExpiryJobParams struct {
	Logger        *logger.Logger
	Subscriptions subscriptionExpirer
}

// NewSubscriptionExpiryJob flips subscriptions whose end date is today to
// inactive.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	return &subscriptionExpiryJob{
		logg: params.Logger,
		subs: params.Subscriptions,
		now:  time.Now,
	}, nil
}

type subscriptionExpiryJob struct {
	logg *logger.Logger
	subs subscriptionExpirer
	now  func() time.Time
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	result, err := j.subs.ExpireDueToday(ctx, j.now().UTC())
	if result != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"expired": len(result.Expired),
		})
		j.logg.Info(logCtx, "subscription expiry sweep complete")
	}
	if err != nil {
		return fmt.Errorf("subscription expiry sweep: %w", err)
	}
	return nil
}
