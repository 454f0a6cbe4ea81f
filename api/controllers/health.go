package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/subhub-labs/subhub-backend/api/responses"
	"github.com/subhub-labs/subhub-backend/pkg/config"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness without touching dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady checks the backing stores before declaring the service ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["database"] = checkDependency(ctx, logg, "database", database)
		checks["redis"] = checkDependency(ctx, logg, "redis", cache)
		for _, status := range checks {
			if status != "ok" {
				healthy = false
			}
		}

		status := http.StatusOK
		overall := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}

		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": overall,
			"env":    cfg.App.Env,
			"checks": checks,
		})
	}
}

func checkDependency(ctx context.Context, logg *logger.Logger, name string, p pinger) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		if logg != nil {
			logCtx := logg.WithField(ctx, "dependency", name)
			logg.Error(logCtx, "health.dependency.unreachable", err)
		}
		return "unreachable"
	}
	return "ok"
}
