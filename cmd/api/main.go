package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/subhub-labs/subhub-backend/api/routes"
	"github.com/subhub-labs/subhub-backend/internal/alerts"
	"github.com/subhub-labs/subhub-backend/internal/analytics"
	"github.com/subhub-labs/subhub-backend/internal/auth"
	"github.com/subhub-labs/subhub-backend/internal/categories"
	"github.com/subhub-labs/subhub-backend/internal/notifications"
	"github.com/subhub-labs/subhub-backend/internal/payments"
	"github.com/subhub-labs/subhub-backend/internal/plans"
	subscriptionsvc "github.com/subhub-labs/subhub-backend/internal/subscriptions"
	"github.com/subhub-labs/subhub-backend/internal/users"
	"github.com/subhub-labs/subhub-backend/pkg/auth/session"
	"github.com/subhub-labs/subhub-backend/pkg/config"
	"github.com/subhub-labs/subhub-backend/pkg/db"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
	"github.com/subhub-labs/subhub-backend/pkg/mailer"
	"github.com/subhub-labs/subhub-backend/pkg/migrate"
	"github.com/subhub-labs/subhub-backend/pkg/razorpay"
	"github.com/subhub-labs/subhub-backend/pkg/redis"
	"github.com/subhub-labs/subhub-backend/pkg/sms"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gateway, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}

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
	categoryRepo := categories.NewRepository(dbClient.DB())
	planRepo := plans.NewRepository(dbClient.DB())
	subscriptionRepo := subscriptionsvc.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())
	alertRepo := alerts.NewRepository(dbClient.DB())
	analyticsRepo := analytics.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	requireService(logg, "auth", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	requireService(logg, "register", err)

	categoriesService, err := categories.NewService(categories.ServiceParams{
		Repo: categoryRepo,
	})
	requireService(logg, "categories", err)

	plansService, err := plans.NewService(plans.ServiceParams{
		Repo:       planRepo,
		Categories: categoryRepo,
	})
	requireService(logg, "plans", err)

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

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:          paymentRepo,
		Subscriptions: subscriptionRepo,
		Activator:     subscriptionsService,
		Gateway:       gateway,
		TxRunner:      dbClient,
		Logger:        logg,
	})
	requireService(logg, "payments", err)

	analyticsService, err := analytics.NewService(analytics.ServiceParams{
		Repo:       analyticsRepo,
		Categories: categoryRepo,
		Config:     cfg.Analytics,
		Logger:     logg,
	})
	requireService(logg, "analytics", err)

	alertsService, err := alerts.NewService(alerts.ServiceParams{
		Repo:          alertRepo,
		Subscriptions: subscriptionRepo,
		Mailer:        emailProvider,
		DueSoonDays:   cfg.Cron.AlertDueDays,
		Logger:        logg,
	})
	requireService(logg, "alerts", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:          authService,
			Register:      registerService,
			Categories:    categoriesService,
			Plans:         plansService,
			Subscriptions: subscriptionsService,
			Payments:      paymentsService,
			Analytics:     analyticsService,
			Notifications: notificationsService,
			Alerts:        alertsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
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
