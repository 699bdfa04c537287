package handler

import (
	"net/http"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Leads — /v1/leads
// ============================================================

func listLeadsHandler(svc *service.LeadsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads")
		defer span.End()

		leads, err := svc.List(ctx, filtersFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, leads)
	}
}

func createLeadHandler(svc *service.LeadsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads")
		defer span.End()

		var l domain.Lead
		if !decodeBody(w, r, &l) {
			return
		}
		out, err := svc.Create(ctx, CapsFromContext(ctx), &l)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func updateLeadHandler(svc *service.LeadsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/leads/{leadId}")
		defer span.End()

		id := chi.URLParam(r, "leadId")
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

func setLeadPriorityHandler(svc *service.LeadsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/{leadId}/priority")
		defer span.End()

		id := chi.URLParam(r, "leadId")
		var req struct {
			Priority string `json:"priority"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.SetPriority(ctx, CapsFromContext(ctx), id, req.Priority); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"priority": req.Priority})
	}
}

func deleteLeadHandler(svc *service.LeadsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/leads/{leadId}")
		defer span.End()

		id := chi.URLParam(r, "leadId")
		if err := svc.Delete(ctx, CapsFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func bulkDeleteLeadsHandler(svc *service.LeadsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/bulk/delete")
		defer span.End()

		var req idsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.BulkDelete(ctx, CapsFromContext(ctx), req.IDs); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": len(req.IDs)})
	}
}

func bulkUpdateLeadsHandler(svc *service.LeadsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/bulk/update")
		defer span.End()

		var req struct {
			IDs   []string       `json:"ids"`
			Patch map[string]any `json:"patch"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.BulkUpdate(ctx, CapsFromContext(ctx), req.IDs, req.Patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"updated": len(req.IDs)})
	}
}

func leadScoreHistoryHandler(svc *service.LeadsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/{leadId}/score-history")
		defer span.End()

		id := chi.URLParam(r, "leadId")
		entries, err := svc.ScoreHistory(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func exportLeadsHandler(svc *service.LeadsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/export.csv")
		defer span.End()

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)
		if err := svc.Export(ctx, w); err != nil {
			logger.Error("lead export failed", zap.Error(err))
		}
	}
}

func importLeadsHandler(svc *service.LeadsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/import")
		defer span.End()

		summary, err := svc.Import(ctx, CapsFromContext(ctx), r.Body)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
