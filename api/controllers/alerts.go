package controllers

import (
	"net/http"

	"github.com/subhub-labs/subhub-backend/api/responses"
	"github.com/subhub-labs/subhub-backend/internal/alerts"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

// AlertList returns renewal alerts, unread ones only when requested.
func AlertList(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unreadOnly := r.URL.Query().Get("unread") == "true"

		list, err := svc.List(r.Context(), unreadOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// AlertMarkRead acknowledges one alert.
func AlertMarkRead(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alertID, err := pathUUID(r, "alertId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), alertID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}
