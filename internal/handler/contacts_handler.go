package handler

import (
	"net/http"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Contacts — /v1/contacts
// ============================================================

func listContactsHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/contacts")
		defer span.End()

		contacts, err := svc.List(ctx, filtersFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

func createContactHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contacts")
		defer span.End()

		var c domain.Contact
		if !decodeBody(w, r, &c) {
			return
		}
		out, err := svc.Create(ctx, CapsFromContext(ctx), &c)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func updateContactHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/contacts/{contactId}")
		defer span.End()

		id := chi.URLParam(r, "contactId")
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

func setContactStatusHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contacts/{contactId}/status")
		defer span.End()

		id := chi.URLParam(r, "contactId")
		var req struct {
			Status string `json:"status"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.SetStatus(ctx, CapsFromContext(ctx), id, req.Status); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
	}
}

func deleteContactHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/contacts/{contactId}")
		defer span.End()

		id := chi.URLParam(r, "contactId")
		if err := svc.Delete(ctx, CapsFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func bulkDeleteContactsHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contacts/bulk/delete")
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

func bulkUpdateContactsHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contacts/bulk/update")
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

func exportContactsHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/contacts/export.csv")
		defer span.End()

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="contactos.csv"`)
		if err := svc.Export(ctx, w); err != nil {
			logger.Error("contact export failed", zap.Error(err))
		}
	}
}

func importContactsHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contacts/import")
		defer span.End()

		summary, err := svc.Import(ctx, CapsFromContext(ctx), r.Body)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
