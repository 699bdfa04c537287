package handler

import (
	"net/http"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Groups — /v1/groups
// ============================================================

func listGroupsHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/groups")
		defer span.End()

		groups, err := svc.ListGroups(ctx, filtersFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	}
}

func createGroupHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/groups")
		defer span.End()

		var g domain.Group
		if !decodeBody(w, r, &g) {
			return
		}
		out, err := svc.CreateGroup(ctx, CapsFromContext(ctx), &g)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func updateGroupHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/groups/{groupId}")
		defer span.End()

		id := chi.URLParam(r, "groupId")
		var patch map[string]any
		if !decodeBody(w, r, &patch) {
			return
		}
		if err := svc.UpdateGroup(ctx, CapsFromContext(ctx), id, patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func setGroupActiveHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/groups/{groupId}/active")
		defer span.End()

		id := chi.URLParam(r, "groupId")
		var req struct {
			Active bool `json:"active"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.SetGroupActive(ctx, CapsFromContext(ctx), id, req.Active); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
	}
}

func deleteGroupHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/groups/{groupId}")
		defer span.End()

		id := chi.URLParam(r, "groupId")
		if err := svc.DeleteGroup(ctx, CapsFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listGroupMembersHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/groups/{groupId}/members")
		defer span.End()

		id := chi.URLParam(r, "groupId")
		members, err := svc.ListMembers(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, members)
	}
}

func addGroupMemberHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/groups/{groupId}/members")
		defer span.End()

		id := chi.URLParam(r, "groupId")
		var req struct {
			ContactID string `json:"contact_id"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.AddMember(ctx, CapsFromContext(ctx), id, req.ContactID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
	}
}

func removeGroupMemberHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/groups/{groupId}/members/{contactId}")
		defer span.End()

		if err := svc.RemoveMember(ctx, CapsFromContext(ctx), chi.URLParam(r, "groupId"), chi.URLParam(r, "contactId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Tags — /v1/tags
// ============================================================

func listTagsHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tags")
		defer span.End()

		tags, err := svc.ListTags(ctx, filtersFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tags)
	}
}

func createTagHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tags")
		defer span.End()

		var t domain.Tag
		if !decodeBody(w, r, &t) {
			return
		}
		out, err := svc.CreateTag(ctx, CapsFromContext(ctx), &t)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func updateTagHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/tags/{tagId}")
		defer span.End()

		id := chi.URLParam(r, "tagId")
		var patch map[string]any
		if !decodeBody(w, r, &patch) {
			return
		}
		if err := svc.UpdateTag(ctx, CapsFromContext(ctx), id, patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func deleteTagHandler(svc *service.GroupsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/tags/{tagId}")
		defer span.End()

		id := chi.URLParam(r, "tagId")
		if err := svc.DeleteTag(ctx, CapsFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
