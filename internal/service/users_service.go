package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var usersTracer = otel.Tracer("service/users")

// invitationTTL is how long an invitation stays redeemable.
const invitationTTL = 7 * 24 * time.Hour

// UsersService administers operator accounts and invitations. Every
// operation except AcceptInvitation is admin-only.
type UsersService struct {
	users   port.UserStore
	invites port.InvitationStore
	auth    *AuthService
	logger  *zap.Logger
}

// NewUsersService creates a users service.
func NewUsersService(users port.UserStore, invites port.InvitationStore, auth *AuthService, logger *zap.Logger) *UsersService {
	return &UsersService{users: users, invites: invites, auth: auth, logger: logger}
}

// List returns all operator accounts.
func (s *UsersService) List(ctx context.Context, caps domain.Capabilities) ([]domain.UserProfile, error) {
	ctx, span := usersTracer.Start(ctx, "UsersService.List")
	defer span.End()

	if !caps.IsAdmin {
		return nil, &domain.ErrForbidden{Action: "administrar usuarios"}
	}
	return s.users.ListUsers(ctx)
}

// Update patches one account. Role and activation changes invalidate
// the cached profile so they take effect on the next request.
func (s *UsersService) Update(ctx context.Context, caps domain.Capabilities, id string, patch map[string]any) error {
	ctx, span := usersTracer.Start(ctx, "UsersService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", id))

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "administrar usuarios"}
	}
	if v, ok := patch["role"].(string); ok && !domain.ValidRole(v) {
		return &domain.ErrValidation{Field: "role", Message: fmt.Sprintf("rol desconocido %q", v)}
	}
	if err := s.users.UpdateUser(ctx, id, patch); err != nil {
		return err
	}
	s.auth.InvalidateProfile(id)
	if v, ok := patch["is_active"].(bool); ok && !v {
		// Deactivation also kills open sessions.
		if err := s.auth.LogoutAll(ctx, id); err != nil {
			s.logger.Warn("revoke sessions failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	return nil
}

// Delete removes one account and revokes its sessions.
func (s *UsersService) Delete(ctx context.Context, caps domain.Capabilities, actorID, id string) error {
	ctx, span := usersTracer.Start(ctx, "UsersService.Delete")
	defer span.End()

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "administrar usuarios"}
	}
	if actorID == id {
		return &domain.ErrValidation{Field: "id", Message: "no puedes eliminar tu propia cuenta"}
	}
	if err := s.auth.LogoutAll(ctx, id); err != nil {
		s.logger.Warn("revoke sessions failed", zap.String("user_id", id), zap.Error(err))
	}
	return s.users.DeleteUser(ctx, id)
}

// ============================================================
// Invitations
// ============================================================

// ListInvitations returns all invitations, redeemed and pending.
func (s *UsersService) ListInvitations(ctx context.Context, caps domain.Capabilities) ([]domain.Invitation, error) {
	ctx, span := usersTracer.Start(ctx, "UsersService.ListInvitations")
	defer span.End()

	if !caps.IsAdmin {
		return nil, &domain.ErrForbidden{Action: "administrar usuarios"}
	}
	return s.invites.ListInvitations(ctx)
}

// Invite creates a pending invitation for a new operator account.
func (s *UsersService) Invite(ctx context.Context, caps domain.Capabilities, invitedBy, email, role string) (*domain.Invitation, error) {
	ctx, span := usersTracer.Start(ctx, "UsersService.Invite")
	defer span.End()

	if !caps.IsAdmin {
		return nil, &domain.ErrForbidden{Action: "administrar usuarios"}
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, &domain.ErrValidation{Field: "email", Message: "correo inválido"}
	}
	if !domain.ValidRole(role) {
		return nil, &domain.ErrValidation{Field: "role", Message: fmt.Sprintf("rol desconocido %q", role)}
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "el correo ya tiene una cuenta"}
	}

	token, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}
	inv := &domain.Invitation{
		Email:     email,
		Role:      role,
		Token:     token,
		InvitedBy: invitedBy,
		ExpiresAt: time.Now().Add(invitationTTL),
	}
	out, err := s.invites.InsertInvitation(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	s.logger.Info("invitation created",
		zap.String("invitation_id", out.ID),
		zap.String("email", email),
		zap.String("role", role),
	)
	// The plaintext token only exists in this response.
	out.Token = token
	return out, nil
}

// RevokeInvitation deletes a pending invitation.
func (s *UsersService) RevokeInvitation(ctx context.Context, caps domain.Capabilities, id string) error {
	ctx, span := usersTracer.Start(ctx, "UsersService.RevokeInvitation")
	defer span.End()

	if !caps.IsAdmin {
		return &domain.ErrForbidden{Action: "administrar usuarios"}
	}
	return s.invites.DeleteInvitation(ctx, id)
}

// AcceptInvitation redeems a token: it creates the profile with the
// invited role, stores the chosen password and marks the invitation
// accepted. Public endpoint, no capability check.
func (s *UsersService) AcceptInvitation(ctx context.Context, req *domain.AcceptInvitationRequest) (*domain.UserProfile, error) {
	ctx, span := usersTracer.Start(ctx, "UsersService.AcceptInvitation")
	defer span.End()

	inv, err := s.invites.GetInvitationByToken(ctx, req.Token)
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv == nil || inv.ExpiresAt.Before(time.Now()) {
		return nil, &domain.ErrUnauthorized{Message: "Invitación inválida o expirada"}
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, &domain.ErrValidation{Field: "full_name", Message: "el nombre es obligatorio"}
	}
	if len(req.Password) < 8 {
		return nil, &domain.ErrValidation{Field: "password", Message: "la contraseña debe tener al menos 8 caracteres"}
	}

	profile := &domain.UserProfile{
		Email:    inv.Email,
		FullName: req.FullName,
		Role:     inv.Role,
		IsActive: true,
	}
	out, err := s.users.InsertUser(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.auth.SetPassword(ctx, out.ID, req.Password); err != nil {
		return nil, err
	}
	if err := s.invites.MarkInvitationAccepted(ctx, inv.ID); err != nil {
		s.logger.Warn("mark invitation accepted failed",
			zap.String("invitation_id", inv.ID),
			zap.Error(err),
		)
	}
	s.logger.Info("invitation accepted",
		zap.String("invitation_id", inv.ID),
		zap.String("user_id", out.ID),
	)
	return out, nil
}
