package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/subhub-labs/subhub-backend/internal/alerts"
	"github.com/subhub-labs/subhub-backend/internal/cron"
	"github.com/subhub-labs/subhub-backend/internal/notifications"
	"github.com/subhub-labs/subhub-backend/internal/plans"
	subscriptionsvc "github.com/subhub-labs/subhub-backend/internal/subscriptions"
	"github.com/subhub-labs/subhub-backend/internal/users"
	"github.com/subhub-labs/subhub-backend/pkg/config"
	"github.com/subhub-labs/subhub-backend/pkg/db"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
	"github.com/subhub-labs/subhub-backend/pkg/mailer"
	"github.com/subhub-labs/subhub-backend/pkg/metrics"
	"github.com/subhub-labs/subhub-backend/pkg/migrate"
	"github.com/subhub-labs/subhub-backend/pkg/redis"
	"github.com/subhub-labs/subhub-backend/pkg/sms"
)

const lockKeyFormat = "subhub:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	emailProvider, err := mailer.NewMailer(cfg.SMTP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer", err)
		os.Exit(1)
	}

	smsProvider, err := sms.NewSender(cfg.Twilio, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sms sender", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	planRepo := plans.NewRepository(dbClient.DB())
	subscriptionRepo := subscriptionsvc.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())
	alertRepo := alerts.NewRepository(dbClient.DB())

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:   notificationRepo,
		Users:  userRepo,
		Roster: userRepo,
		Email:  emailProvider,
		SMS:    smsProvider,
		Config: cfg.Notifications,
		Logger: logg,
	})
	requireService(logg, "notifications", err)

	subscriptionsService, err := subscriptionsvc.NewService(subscriptionsvc.ServiceParams{
		Repo:     subscriptionRepo,
		Plans:    planRepo,
		Notifier: notificationsService,
		Logger:   logg,
	})
	requireService(logg, "subscriptions", err)

	alertsService, err := alerts.NewService(alerts.ServiceParams{
		Repo:          alertRepo,
		Subscriptions: subscriptionRepo,
		Mailer:        emailProvider,
		DueSoonDays:   cfg.Cron.AlertDueDays,
		Logger:        logg,
	})
	requireService(logg, "alerts", err)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registerJob(logg, registry)(cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger:        logg,
		Subscriptions: subscriptionsService,
	}))
	registerJob(logg, registry)(cron.NewRenewalReminderJob(cron.RenewalReminderJobParams{
		Logger:        logg,
		Subscriptions: subscriptionsService,
	}))
	registerJob(logg, registry)(cron.NewAlertJob(cron.AlertJobParams{
		Logger: logg,
		Alerts: alertsService,
	}))
	registerJob(logg, registry)(cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Notifications: notificationsService,
	}))

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func registerJob(logg *logger.Logger, registry *cron.Registry) func(cron.Job, error) {
	return func(job cron.Job, err error) {
		if err != nil {
			logg.Error(context.Background(), "failed to create cron job", err)
			os.Exit(1)
		}
		registry.Register(job)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	ctx := logg.WithField(context.Background(), "service", name)
	logg.Error(ctx, "failed to create service", err)
	os.Exit(1)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
