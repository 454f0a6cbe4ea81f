package controllers

import (
	"net/http"

	"github.com/subhub-labs/subhub-backend/api/responses"
	"github.com/subhub-labs/subhub-backend/internal/analytics"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

// DashboardMetrics returns the metrics snapshot scoped to the categories the
// calling admin owns. An admin with no categories gets an all-zero snapshot.
func DashboardMetrics(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Snapshot(r.Context(), &owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}
