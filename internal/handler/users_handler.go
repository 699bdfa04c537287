package handler

import (
	"net/http"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Users & invitations — /v1/users (admin only)
// ============================================================

func listUsersHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users")
		defer span.End()

		users, err := svc.List(ctx, CapsFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func updateUserHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/users/{userId}")
		defer span.End()

		id := chi.URLParam(r, "userId")
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

func deleteUserHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/users/{userId}")
		defer span.End()

		id := chi.URLParam(r, "userId")
		if err := svc.Delete(ctx, CapsFromContext(ctx), UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listInvitationsHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/invitations")
		defer span.End()

		invitations, err := svc.ListInvitations(ctx, CapsFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, invitations)
	}
}

func inviteUserHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/invitations")
		defer span.End()

		var req struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := svc.Invite(ctx, CapsFromContext(ctx), UserIDFromContext(ctx), req.Email, req.Role)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func revokeInvitationHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/users/invitations/{invitationId}")
		defer span.End()

		id := chi.URLParam(r, "invitationId")
		if err := svc.RevokeInvitation(ctx, CapsFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// acceptInvitationHandler is public: the token is the credential.
func acceptInvitationHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/invitations/accept")
		defer span.End()

		var req domain.AcceptInvitationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := svc.AcceptInvitation(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}
