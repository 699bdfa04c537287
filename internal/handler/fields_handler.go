package handler

import (
	"net/http"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Custom fields — /v1/fields
// ============================================================

func listFieldsHandler(svc *service.FieldsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/fields")
		defer span.End()

		fields, err := svc.List(ctx, filtersFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, fields)
	}
}

func createFieldHandler(svc *service.FieldsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/fields")
		defer span.End()

		var f domain.CustomField
		if !decodeBody(w, r, &f) {
			return
		}
		out, err := svc.Create(ctx, CapsFromContext(ctx), &f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func updateFieldHandler(svc *service.FieldsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/fields/{fieldId}")
		defer span.End()

		id := chi.URLParam(r, "fieldId")
		var patch map[string]any
		if !decodeBody(w, r, &patch) {
			return
		}
		if err := svc.Update(ctx, CapsFromContext(ctx), id, patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func deleteFieldHandler(svc *service.FieldsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/fields/{fieldId}")
		defer span.End()

		id := chi.URLParam(r, "fieldId")
		if err := svc.Delete(ctx, CapsFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Scoring rules — /v1/scoring/rules
// ============================================================

func listRulesHandler(svc *service.ScoringService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/scoring/rules")
		defer span.End()

		rules, err := svc.List(ctx, filtersFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rules)
	}
}

func createRuleHandler(svc *service.ScoringService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/scoring/rules")
		defer span.End()

		var rule domain.ScoringRule
		if !decodeBody(w, r, &rule) {
			return
		}
		out, err := svc.Create(ctx, CapsFromContext(ctx), &rule)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func updateRuleHandler(svc *service.ScoringService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/scoring/rules/{ruleId}")
		defer span.End()

		id := chi.URLParam(r, "ruleId")
		var patch map[string]any
		if !decodeBody(w, r, &patch) {
			return
		}
		if err := svc.Update(ctx, CapsFromContext(ctx), id, patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func setRuleActiveHandler(svc *service.ScoringService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/scoring/rules/{ruleId}/active")
		defer span.End()

		id := chi.URLParam(r, "ruleId")
		var req struct {
			Active bool `json:"active"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.SetActive(ctx, CapsFromContext(ctx), id, req.Active); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
	}
}

func deleteRuleHandler(svc *service.ScoringService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/scoring/rules/{ruleId}")
		defer span.End()

		id := chi.URLParam(r, "ruleId")
		if err := svc.Delete(ctx, CapsFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
