package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/subhub-labs/subhub-backend/api/controllers"
	"github.com/subhub-labs/subhub-backend/api/middleware"
	"github.com/subhub-labs/subhub-backend/internal/alerts"
	"github.com/subhub-labs/subhub-backend/internal/analytics"
	"github.com/subhub-labs/subhub-backend/internal/auth"
	"github.com/subhub-labs/subhub-backend/internal/categories"
	"github.com/subhub-labs/subhub-backend/internal/notifications"
	"github.com/subhub-labs/subhub-backend/internal/payments"
	"github.com/subhub-labs/subhub-backend/internal/plans"
	subscriptionsvc "github.com/subhub-labs/subhub-backend/internal/subscriptions"
	"github.com/subhub-labs/subhub-backend/pkg/auth/session"
	"github.com/subhub-labs/subhub-backend/pkg/config"
	"github.com/subhub-labs/subhub-backend/pkg/db"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
	"github.com/subhub-labs/subhub-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services aggregates the domain services the router exposes over HTTP.
type Services struct {
	Auth          auth.Service
	Register      auth.RegisterService
	Categories    categories.Service
	Plans         plans.Service
	Subscriptions subscriptionsvc.Service
	Payments      payments.Service
	Analytics     analytics.Service
	Notifications notifications.Service
	Alerts        alerts.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginIdentifierLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterIdentifierLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Register, svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessions, cfg.JWT, logg))
		r.Post("/logout", controllers.AuthLogout(sessions, cfg.JWT, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AdminAuthLogin(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", controllers.CategoryBrowse(svcs.Categories, logg))
			r.Get("/plans", controllers.PlanBrowse(svcs.Plans, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", controllers.SubscriptionCreate(svcs.Subscriptions, logg))
			r.Get("/", controllers.SubscriptionListMine(svcs.Subscriptions, logg))
			r.Get("/{subscriptionId}", controllers.SubscriptionGet(svcs.Subscriptions, logg))
			r.Delete("/{subscriptionId}", controllers.SubscriptionCancel(svcs.Subscriptions, logg))
			r.Get("/{subscriptionId}/payments", controllers.PaymentListForSubscription(svcs.Payments, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/start", controllers.PaymentStart(svcs.Payments, logg))
			r.Post("/confirm", controllers.PaymentConfirm(svcs.Payments, logg))
			r.Get("/", controllers.PaymentListMine(svcs.Payments, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.CategoryCreate(svcs.Categories, logg))
			r.Get("/", controllers.CategoryListOwned(svcs.Categories, logg))
			r.Get("/{categoryId}", controllers.CategoryGet(svcs.Categories, logg))
			r.Put("/{categoryId}", controllers.CategoryUpdate(svcs.Categories, logg))
			r.Delete("/{categoryId}", controllers.CategoryDelete(svcs.Categories, logg))
		})

		r.Route("/plans", func(r chi.Router) {
			r.Post("/", controllers.PlanCreate(svcs.Plans, logg))
			r.Get("/", controllers.PlanListOwned(svcs.Plans, logg))
			r.Get("/{planId}", controllers.PlanGet(svcs.Plans, logg))
			r.Put("/{planId}", controllers.PlanUpdate(svcs.Plans, logg))
			r.Delete("/{planId}", controllers.PlanDelete(svcs.Plans, logg))
		})

		r.Get("/dashboard", controllers.DashboardMetrics(svcs.Analytics, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/send", controllers.NotificationSend(svcs.Notifications, logg))
			r.Post("/broadcast", controllers.NotificationBroadcast(svcs.Notifications, logg))
			r.Get("/", controllers.NotificationList(svcs.Notifications, logg))
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", controllers.AlertList(svcs.Alerts, logg))
			r.Post("/{alertId}/read", controllers.AlertMarkRead(svcs.Alerts, logg))
		})
	})

	return r
}
