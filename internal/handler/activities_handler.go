package handler

import (
	"net/http"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Activity log — /v1/activities/{entityType}/{entityId}
// ============================================================

func listActivitiesHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/activities/{entityType}/{entityId}")
		defer span.End()

		entries, err := svc.List(ctx, chi.URLParam(r, "entityType"), chi.URLParam(r, "entityId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func appendActivityHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/activities/{entityType}/{entityId}")
		defer span.End()

		var a domain.Activity
		if !decodeBody(w, r, &a) {
			return
		}
		a.EntityType = chi.URLParam(r, "entityType")
		a.EntityID = chi.URLParam(r, "entityId")
		a.CreatedBy = UserIDFromContext(ctx)

		out, err := svc.Append(ctx, CapsFromContext(ctx), &a)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}
