package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

type notificationCleaner interface {
	Cleanup(ctx context.Context, now time.Time) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications notificationCleaner
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	return &notificationCleanupJob{
		logg:          params.Logger,
		notifications: params.Notifications,
		now:           time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg          *logger.Logger
	notifications notificationCleaner
	now           func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.notifications.Cleanup(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
